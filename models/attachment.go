package models

import (
	"time"

	"github.com/google/uuid"
)

// ImageDimensions is the full-size width and height of an image in pixels
type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Attachment represents a media registry entry for an uploaded image
type Attachment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	URL       string    `json:"url" db:"url"`
	Width     int       `json:"width" db:"width"`
	Height    int       `json:"height" db:"height"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Attachment model
func (Attachment) TableName() string {
	return "attachments"
}

// NewAttachment creates a new Attachment instance
func NewAttachment(url string, width, height int) *Attachment {
	return &Attachment{
		ID:        uuid.New(),
		URL:       url,
		Width:     width,
		Height:    height,
		CreatedAt: time.Now().UTC(),
	}
}

// Dimensions returns the attachment size
func (a *Attachment) Dimensions() ImageDimensions {
	return ImageDimensions{Width: a.Width, Height: a.Height}
}
