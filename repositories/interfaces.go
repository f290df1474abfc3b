package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/publish-guard/models"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// The context passed to fn carries the transaction so repositories
	// called with it join the same unit of work. Commits if fn succeeds,
	// rolls back on error or panic.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// ContentRepository is the host content store
type ContentRepository interface {
	// Create inserts a new item
	Create(ctx context.Context, item *models.ContentItem) error

	// GetByID retrieves an item; ErrNotFound when absent
	GetByID(ctx context.Context, id uuid.UUID) (*models.ContentItem, error)

	// UpdateStatus sets the status of an item
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.PostStatus) error

	// SetFeaturedImage links or, with nil, unlinks the item's featured image
	SetFeaturedImage(ctx context.Context, id uuid.UUID, attachmentID *uuid.UUID) error
}

// AttachmentRepository is the media registry
type AttachmentRepository interface {
	// Create registers an attachment
	Create(ctx context.Context, att *models.Attachment) error

	// GetByID retrieves an attachment; ErrNotFound when absent
	GetByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error)

	// GetDimensionsForItem returns the featured image size of an item.
	// ok is false when the item has no featured image.
	GetDimensionsForItem(ctx context.Context, itemID uuid.UUID) (dims models.ImageDimensions, ok bool, err error)
}

// OptionRepository is the key-value option store. Values are raw JSON.
type OptionRepository interface {
	// Get returns the stored value; ok is false when the option was never set
	Get(ctx context.Context, name string) (value json.RawMessage, ok bool, err error)

	// Set writes the value, replacing any previous one
	Set(ctx context.Context, name string, value json.RawMessage) error

	// AddIfAbsent writes the value only when the option does not exist yet.
	// It reports whether the value was written.
	AddIfAbsent(ctx context.Context, name string, value json.RawMessage) (bool, error)
}

// AuditRepository handles guard audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByItemID retrieves audit logs for an item, newest first
	GetByItemID(ctx context.Context, itemID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByAction retrieves audit logs by action type, newest first
	GetByAction(ctx context.Context, action models.AuditAction, limit, offset int) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Content     ContentRepository
	Attachments AttachmentRepository
	Options     OptionRepository
	AuditLogs   AuditRepository
}
