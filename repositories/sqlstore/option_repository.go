package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upb/publish-guard/repositories"
)

// OptionRepository implements the repositories.OptionRepository interface
type OptionRepository struct {
	db     *DB
	logger *zap.Logger
	now    func() time.Time
}

// NewOptionRepository creates a new option repository
func NewOptionRepository(db *DB, logger *zap.Logger) repositories.OptionRepository {
	return &OptionRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the stored value of an option
func (r *OptionRepository) Get(ctx context.Context, name string) (json.RawMessage, bool, error) {
	query := `SELECT value FROM guard_options WHERE name = $1`

	var value string
	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, r.db.rebind(query), name).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get option %s: %w", name, err)
	}
	return json.RawMessage(value), true, nil
}

// Set writes an option, replacing the previous value
func (r *OptionRepository) Set(ctx context.Context, name string, value json.RawMessage) error {
	query := `
		INSERT INTO guard_options (name, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, r.db.rebind(query), name, string(value), toMillis(r.now())); err != nil {
		return fmt.Errorf("failed to set option %s: %w", name, err)
	}

	r.logger.Debug("option updated", zap.String("name", name))
	return nil
}

// AddIfAbsent writes an option only when it does not exist yet
func (r *OptionRepository) AddIfAbsent(ctx context.Context, name string, value json.RawMessage) (bool, error) {
	query := `
		INSERT INTO guard_options (name, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, r.db.rebind(query), name, string(value), toMillis(r.now()))
	if err != nil {
		return false, fmt.Errorf("failed to add option %s: %w", name, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	added := rows > 0
	if added {
		r.logger.Debug("option added", zap.String("name", name))
	}
	return added, nil
}
