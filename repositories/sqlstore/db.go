// Package sqlstore implements the repositories over database/sql. The same
// queries run on PostgreSQL (lib/pq) and on embedded SQLite (modernc).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/upb/publish-guard/config"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	driver string
	logger *zap.Logger
}

// NewDB opens and verifies a connection pool for the configured driver
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.Driver == config.DriverSQLite {
		// each connection to :memory: is a separate database; a single
		// writer also avoids SQLITE_BUSY on files
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return Wrap(db, cfg.Driver, logger), nil
}

// Wrap adapts an already open pool
func Wrap(db *sql.DB, driver string, logger *zap.Logger) *DB {
	return &DB{
		DB:     db,
		driver: driver,
		logger: logger,
	}
}

// Driver returns the driver name the pool was opened with
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// rebind converts $N placeholders to the driver's syntax. SQLite takes ?N.
func (db *DB) rebind(query string) string {
	if db.driver != config.DriverSQLite {
		return query
	}
	return placeholderPattern.ReplaceAllString(query, "?$1")
}

// InitSchema creates the tables when they do not exist
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range splitStatements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	db.logger.Info("database schema initialized successfully", zap.String("driver", db.driver))
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// timestamps are stored as unix milliseconds so both drivers agree on them
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

const schema = `
	CREATE TABLE IF NOT EXISTS guard_options (
		name VARCHAR(191) PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attachments (
		id VARCHAR(36) PRIMARY KEY,
		url TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		created_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS content_items (
		id VARCHAR(36) PRIMARY KEY,
		post_type VARCHAR(100) NOT NULL,
		title TEXT NOT NULL,
		status VARCHAR(20) NOT NULL,
		featured_image_id VARCHAR(36) REFERENCES attachments(id) ON DELETE SET NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS guard_audit_logs (
		id VARCHAR(36) PRIMARY KEY,
		item_id VARCHAR(36) NOT NULL,
		post_type VARCHAR(100) NOT NULL,
		action VARCHAR(50) NOT NULL,
		reason VARCHAR(50) NOT NULL,
		old_status VARCHAR(20) NOT NULL,
		new_status VARCHAR(20) NOT NULL,
		reverted_to VARCHAR(20),
		request_id VARCHAR(255),
		ip_address VARCHAR(45),
		user_agent TEXT,
		timestamp BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_content_items_post_type ON content_items(post_type);
	CREATE INDEX IF NOT EXISTS idx_guard_audit_logs_item_id ON guard_audit_logs(item_id);
	CREATE INDEX IF NOT EXISTS idx_guard_audit_logs_action ON guard_audit_logs(action);
	CREATE INDEX IF NOT EXISTS idx_guard_audit_logs_timestamp ON guard_audit_logs(timestamp)
`
