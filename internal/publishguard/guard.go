// Package publishguard decides whether a status transition on a content item
// may proceed to publish. Decisions are computed from an explicit policy
// snapshot and an image lookup; nothing here reads ambient configuration.
package publishguard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/upb/publish-guard/internal/i18n"
	"github.com/upb/publish-guard/models"
)

// Reason names why a decision was reached
type Reason string

const (
	ReasonBypassed      Reason = "bypassed"
	ReasonNotPublishing Reason = "not_publishing"
	ReasonNotEnforced   Reason = "not_enforced"
	ReasonMissingImage  Reason = "missing_image"
	ReasonImageTooSmall Reason = "image_too_small"
	ReasonSatisfied     Reason = "satisfied"
)

// ImageLookup resolves the featured image dimensions of an item.
// ok is false when the item has no image.
type ImageLookup interface {
	ImageDimensions(ctx context.Context, itemID uuid.UUID) (dims models.ImageDimensions, ok bool, err error)
}

// ImageLookupFunc adapts a function to ImageLookup
type ImageLookupFunc func(ctx context.Context, itemID uuid.UUID) (models.ImageDimensions, bool, error)

// ImageDimensions calls f
func (f ImageLookupFunc) ImageDimensions(ctx context.Context, itemID uuid.UUID) (models.ImageDimensions, bool, error) {
	return f(ctx, itemID)
}

// Transition is one status change attempt on an item
type Transition struct {
	Item      *models.ContentItem
	NewStatus models.PostStatus
	OldStatus models.PostStatus
	// Bypass is set for internal tooling requests and skips every check
	Bypass bool
	// Locale selects the language of the deny message; zero means default
	Locale language.Tag
}

// Decision is the outcome of an evaluation
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
	Message string `json:"message,omitempty"`
}

// Denied reports whether the transition must be reverted
func (d Decision) Denied() bool {
	return !d.Allowed
}

func allow(reason Reason) Decision {
	return Decision{Allowed: true, Reason: reason}
}

// Guard evaluates transitions
type Guard struct {
	images ImageLookup
}

// New creates a Guard backed by the given image lookup
func New(images ImageLookup) *Guard {
	return &Guard{images: images}
}

// Evaluate decides a transition against the policy. It has no side effects,
// so evaluating the same input twice yields the same decision.
func (g *Guard) Evaluate(ctx context.Context, policy models.PolicyConfig, t Transition) (Decision, error) {
	if t.Bypass {
		return allow(ReasonBypassed), nil
	}
	if t.NewStatus != models.PostStatusPublish {
		return allow(ReasonNotPublishing), nil
	}
	if t.Item == nil {
		return Decision{}, fmt.Errorf("evaluate transition: item is required")
	}
	if !policy.AppliesTo(t.Item) {
		return allow(ReasonNotEnforced), nil
	}

	dims, ok, err := g.images.ImageDimensions(ctx, t.Item.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("lookup featured image for %s: %w", t.Item.ID, err)
	}

	tag := t.Locale
	if tag == (language.Tag{}) {
		tag = i18n.DefaultTag()
	}
	switch {
	case !ok:
		return deny(ReasonMissingImage, tag, policy.MinimumSize), nil
	case !policy.MinimumSize.Satisfies(dims):
		return deny(ReasonImageTooSmall, tag, policy.MinimumSize), nil
	}
	return allow(ReasonSatisfied), nil
}

// the message depends only on the configured minimum, not on which check failed
func deny(reason Reason, tag language.Tag, size models.MinimumSize) Decision {
	return Decision{
		Allowed: false,
		Reason:  reason,
		Message: i18n.DenyMessage(tag, size),
	}
}

// RevertStatus is the status a denied item is put back to. An item that was
// already published goes back to draft; anything else returns to where it was.
func RevertStatus(old models.PostStatus) models.PostStatus {
	if old == models.PostStatusPublish {
		return models.PostStatusDraft
	}
	return old
}
