package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/repositories"
)

// ContentRepository implements the repositories.ContentRepository interface
type ContentRepository struct {
	db     *DB
	logger *zap.Logger
	now    func() time.Time
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *DB, logger *zap.Logger) repositories.ContentRepository {
	return &ContentRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Create inserts a new item
func (r *ContentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	query := `
		INSERT INTO content_items (id, post_type, title, status, featured_image_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, r.db.rebind(query),
		item.ID.String(),
		item.PostType,
		item.Title,
		string(item.Status),
		nullableID(item.FeaturedImageID),
		toMillis(item.CreatedAt),
		toMillis(item.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create content item: %w", err)
	}

	r.logger.Debug("content item created", zap.String("id", item.ID.String()), zap.String("post_type", item.PostType))
	return nil
}

// GetByID retrieves an item by ID
func (r *ContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	query := `
		SELECT id, post_type, title, status, featured_image_id, created_at, updated_at
		FROM content_items
		WHERE id = $1
	`

	var (
		item               models.ContentItem
		rawID, status      string
		imageID            sql.NullString
		createdAt, updated int64
	)

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, r.db.rebind(query), id.String()).Scan(
		&rawID,
		&item.PostType,
		&item.Title,
		&status,
		&imageID,
		&createdAt,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("content item %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}

	if item.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("content item has malformed id %q: %w", rawID, err)
	}
	if imageID.Valid {
		parsed, err := uuid.Parse(imageID.String)
		if err != nil {
			return nil, fmt.Errorf("content item %s has malformed image id: %w", id, err)
		}
		item.FeaturedImageID = &parsed
	}
	item.Status = models.PostStatus(status)
	item.CreatedAt = fromMillis(createdAt)
	item.UpdatedAt = fromMillis(updated)

	return &item, nil
}

// UpdateStatus sets the status of an item
func (r *ContentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PostStatus) error {
	query := `UPDATE content_items SET status = $1, updated_at = $2 WHERE id = $3`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, r.db.rebind(query), string(status), toMillis(r.now()), id.String())
	if err != nil {
		return fmt.Errorf("failed to update content item status: %w", err)
	}
	if err := requireRow(result, id); err != nil {
		return err
	}

	r.logger.Debug("content item status updated", zap.String("id", id.String()), zap.String("status", string(status)))
	return nil
}

// SetFeaturedImage links or unlinks the featured image
func (r *ContentRepository) SetFeaturedImage(ctx context.Context, id uuid.UUID, attachmentID *uuid.UUID) error {
	query := `UPDATE content_items SET featured_image_id = $1, updated_at = $2 WHERE id = $3`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, r.db.rebind(query), nullableID(attachmentID), toMillis(r.now()), id.String())
	if err != nil {
		return fmt.Errorf("failed to set featured image: %w", err)
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id uuid.UUID) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("content item %s: %w", id, repositories.ErrNotFound)
	}
	return nil
}

func nullableID(id *uuid.UUID) sql.NullString {
	if id == nil || *id == uuid.Nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}
