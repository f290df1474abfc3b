package models

import (
	"sort"
	"time"
)

// Option names used in the key-value option store
const (
	OptionPostTypes        = "guard_post_types"
	OptionMinimumSize      = "guard_minimum_size"
	OptionEnforcementStart = "guard_enforcement_start"
)

// DefaultPostType is the only post type enforced when nothing is configured
const DefaultPostType = "post"

// Default windows for the enforcement start instant
const (
	// DefaultEnforcementLookback applies when the start was never stored
	DefaultEnforcementLookback = 14 * 24 * time.Hour
	// ActivationEnforcementLookback is seeded when the guard is installed
	ActivationEnforcementLookback = 24 * time.Hour
)

// MinimumSize is the smallest acceptable featured image, in pixels.
// The zero value means no size is enforced.
type MinimumSize struct {
	Width  int `json:"width" validate:"gte=0"`
	Height int `json:"height" validate:"gte=0"`
}

// ActivationMinimumSize is written once at installation
var ActivationMinimumSize = MinimumSize{Width: 800, Height: 600}

// IsZero reports whether neither dimension is enforced
func (m MinimumSize) IsZero() bool {
	return m.Width == 0 && m.Height == 0
}

// Satisfies reports whether an image of the given size is large enough
func (m MinimumSize) Satisfies(d ImageDimensions) bool {
	return d.Width >= m.Width && d.Height >= m.Height
}

// Normalize clamps negative dimensions to zero
func (m MinimumSize) Normalize() MinimumSize {
	if m.Width < 0 {
		m.Width = 0
	}
	if m.Height < 0 {
		m.Height = 0
	}
	return m
}

// PostTypeSet is a set of post type tags compared by exact string match
type PostTypeSet map[string]struct{}

// NewPostTypeSet builds a set, dropping duplicates and blank entries
func NewPostTypeSet(types ...string) PostTypeSet {
	set := make(PostTypeSet, len(types))
	for _, t := range types {
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

// Contains reports exact membership
func (s PostTypeSet) Contains(postType string) bool {
	_, ok := s[postType]
	return ok
}

// Slice returns the members in sorted order
func (s PostTypeSet) Slice() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// PolicyConfig is the publish guard policy as one immutable snapshot
type PolicyConfig struct {
	EnforcedTypes    PostTypeSet
	MinimumSize      MinimumSize
	EnforcementStart time.Time
}

// Enforces reports whether items of the post type are subject to the guard
func (p PolicyConfig) Enforces(postType string) bool {
	return p.EnforcedTypes.Contains(postType)
}

// InEnforcementWindow reports whether an item created at createdAt is new
// enough to be checked. Items created at or before the start are exempt.
func (p PolicyConfig) InEnforcementWindow(createdAt time.Time) bool {
	return createdAt.After(p.EnforcementStart)
}

// AppliesTo combines the post type and enforcement window checks
func (p PolicyConfig) AppliesTo(item *ContentItem) bool {
	return p.Enforces(item.PostType) && p.InEnforcementWindow(item.CreatedAt)
}
