package models

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus represents the lifecycle status of a content item
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPending   PostStatus = "pending"
	PostStatusPrivate   PostStatus = "private"
	PostStatusFuture    PostStatus = "future"
	PostStatusPublish   PostStatus = "publish"
	PostStatusTrash     PostStatus = "trash"
	PostStatusAutoDraft PostStatus = "auto-draft"
)

// validStatuses lists every status the host accepts on a transition
var validStatuses = map[PostStatus]struct{}{
	PostStatusDraft:     {},
	PostStatusPending:   {},
	PostStatusPrivate:   {},
	PostStatusFuture:    {},
	PostStatusPublish:   {},
	PostStatusTrash:     {},
	PostStatusAutoDraft: {},
}

// IsValid reports whether the status is one the host knows about
func (s PostStatus) IsValid() bool {
	_, ok := validStatuses[s]
	return ok
}

// ContentItem represents a post, page or any other typed content entry
type ContentItem struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	PostType        string     `json:"post_type" db:"post_type"`
	Title           string     `json:"title" db:"title"`
	Status          PostStatus `json:"status" db:"status"`
	FeaturedImageID *uuid.UUID `json:"featured_image_id,omitempty" db:"featured_image_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the ContentItem model
func (ContentItem) TableName() string {
	return "content_items"
}

// NewContentItem creates a new draft ContentItem
func NewContentItem(postType, title string) *ContentItem {
	now := time.Now().UTC()
	return &ContentItem{
		ID:        uuid.New(),
		PostType:  postType,
		Title:     title,
		Status:    PostStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasFeaturedImage reports whether the item references an attachment
func (c *ContentItem) HasFeaturedImage() bool {
	return c.FeaturedImageID != nil && *c.FeaturedImageID != uuid.Nil
}
