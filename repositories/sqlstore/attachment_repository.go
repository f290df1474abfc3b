package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/repositories"
)

// AttachmentRepository implements the repositories.AttachmentRepository interface
type AttachmentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *DB, logger *zap.Logger) repositories.AttachmentRepository {
	return &AttachmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create registers an attachment
func (r *AttachmentRepository) Create(ctx context.Context, att *models.Attachment) error {
	query := `
		INSERT INTO attachments (id, url, width, height, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, r.db.rebind(query),
		att.ID.String(),
		att.URL,
		att.Width,
		att.Height,
		toMillis(att.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	r.logger.Debug("attachment created",
		zap.String("id", att.ID.String()),
		zap.Int("width", att.Width),
		zap.Int("height", att.Height),
	)
	return nil
}

// GetByID retrieves an attachment by ID
func (r *AttachmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	query := `SELECT id, url, width, height, created_at FROM attachments WHERE id = $1`

	var (
		att       models.Attachment
		rawID     string
		createdAt int64
	)

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, r.db.rebind(query), id.String()).Scan(
		&rawID,
		&att.URL,
		&att.Width,
		&att.Height,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attachment %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	if att.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("attachment has malformed id %q: %w", rawID, err)
	}
	att.CreatedAt = fromMillis(createdAt)

	return &att, nil
}

// GetDimensionsForItem returns the featured image size of an item
func (r *AttachmentRepository) GetDimensionsForItem(ctx context.Context, itemID uuid.UUID) (models.ImageDimensions, bool, error) {
	query := `
		SELECT a.width, a.height
		FROM content_items c
		JOIN attachments a ON a.id = c.featured_image_id
		WHERE c.id = $1
	`

	var dims models.ImageDimensions
	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, r.db.rebind(query), itemID.String()).Scan(&dims.Width, &dims.Height)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ImageDimensions{}, false, nil
		}
		return models.ImageDimensions{}, false, fmt.Errorf("failed to get featured image dimensions: %w", err)
	}
	return dims, true, nil
}
