package sqlstore

import (
	"go.uber.org/zap"

	"github.com/upb/publish-guard/config"
	"github.com/upb/publish-guard/repositories"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory opens the database and creates a factory over it
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return NewRepositoryFactoryFromDB(db, logger), nil
}

// NewRepositoryFactoryFromDB creates a factory over an existing pool
func NewRepositoryFactoryFromDB(db *DB, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, logger: logger}
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Content:     NewContentRepository(f.db, f.logger),
		Attachments: NewAttachmentRepository(f.db, f.logger),
		Options:     NewOptionRepository(f.db, f.logger),
		AuditLogs:   NewAuditRepository(f.db, f.logger),
	}
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
