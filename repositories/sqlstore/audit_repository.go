package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/repositories"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

const auditColumns = `id, item_id, post_type, action, reason, old_status, new_status,
	reverted_to, request_id, ip_address, user_agent, timestamp`

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO guard_audit_logs (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var reverted sql.NullString
	if log.RevertedTo != nil {
		reverted = sql.NullString{String: string(*log.RevertedTo), Valid: true}
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, r.db.rebind(query),
		log.ID.String(),
		log.ItemID.String(),
		log.PostType,
		string(log.Action),
		log.Reason,
		string(log.OldStatus),
		string(log.NewStatus),
		reverted,
		log.RequestID,
		log.IPAddress,
		log.UserAgent,
		toMillis(log.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// GetByItemID retrieves audit logs for an item with pagination
func (r *AuditRepository) GetByItemID(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM guard_audit_logs
		WHERE item_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	return r.query(ctx, query, itemID.String(), limit, offset)
}

// GetByAction retrieves audit logs by action type with pagination
func (r *AuditRepository) GetByAction(ctx context.Context, action models.AuditAction, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM guard_audit_logs
		WHERE action = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	return r.query(ctx, query, string(action), limit, offset)
}

func (r *AuditRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.AuditLog, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}
	return logs, nil
}

func scanAuditLog(rows *sql.Rows) (*models.AuditLog, error) {
	var (
		log                          models.AuditLog
		id, itemID                   string
		action, oldStatus, newStatus string
		reverted                     sql.NullString
		requestID, ipAddress, agent  sql.NullString
		timestamp                    int64
	)
	err := rows.Scan(
		&id,
		&itemID,
		&log.PostType,
		&action,
		&log.Reason,
		&oldStatus,
		&newStatus,
		&reverted,
		&requestID,
		&ipAddress,
		&agent,
		&timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit log: %w", err)
	}

	if log.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("audit log has malformed id %q: %w", id, err)
	}
	if log.ItemID, err = uuid.Parse(itemID); err != nil {
		return nil, fmt.Errorf("audit log has malformed item id %q: %w", itemID, err)
	}
	log.Action = models.AuditAction(action)
	log.OldStatus = models.PostStatus(oldStatus)
	log.NewStatus = models.PostStatus(newStatus)
	if reverted.Valid {
		status := models.PostStatus(reverted.String)
		log.RevertedTo = &status
	}
	log.RequestID = requestID.String
	log.IPAddress = ipAddress.String
	log.UserAgent = agent.String
	log.Timestamp = fromMillis(timestamp)

	return &log, nil
}
