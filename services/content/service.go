// Package content manages content items, their featured images and status
// transitions. Every transition to publish passes through the guard.
package content

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/upb/publish-guard/internal/i18n"
	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/repositories"
	"github.com/upb/publish-guard/services"
	"github.com/upb/publish-guard/services/guard"
)

// Guard evaluates persisted transitions
type Guard interface {
	Policy(ctx context.Context) (models.PolicyConfig, error)
	EvaluateTransition(ctx context.Context, req guard.TransitionRequest) (guard.Outcome, error)
}

// Service handles content item operations
type Service struct {
	content     repositories.ContentRepository
	attachments repositories.AttachmentRepository
	txMgr       repositories.TransactionManager
	guard       Guard
	logger      *zap.Logger
}

// NewService creates a new content Service
func NewService(
	content repositories.ContentRepository,
	attachments repositories.AttachmentRepository,
	txMgr repositories.TransactionManager,
	g Guard,
	logger *zap.Logger,
) *Service {
	return &Service{
		content:     content,
		attachments: attachments,
		txMgr:       txMgr,
		guard:       g,
		logger:      logger,
	}
}

// TransitionRequest is a status change requested by an editor
type TransitionRequest struct {
	ItemID    uuid.UUID
	NewStatus models.PostStatus
	Bypass    bool
	Locale    language.Tag

	RequestID string
	IPAddress string
	UserAgent string
}

// Denial describes a blocked publish
type Denial struct {
	Message    string            `json:"message"`
	Reason     string            `json:"reason"`
	RevertedTo models.PostStatus `json:"reverted_to"`
}

// TransitionResult carries the item after the transition and, when the
// guard blocked it, the denial
type TransitionResult struct {
	Item   *models.ContentItem `json:"item"`
	Denial *Denial             `json:"denial,omitempty"`
}

// Denied reports whether the transition was blocked
func (r *TransitionResult) Denied() bool {
	return r.Denial != nil
}

// Bootstrap is the configuration handed to the editor monitor
type Bootstrap struct {
	Enforced            bool   `json:"enforced"`
	MissingImageMessage string `json:"missing_image_message"`
	TooSmallMessage     string `json:"too_small_message"`
	MinWidth            int    `json:"min_width"`
	MinHeight           int    `json:"min_height"`
}

// Create inserts a new draft item
func (s *Service) Create(ctx context.Context, postType, title string) (*models.ContentItem, error) {
	postType = strings.TrimSpace(postType)
	if postType == "" {
		return nil, services.ErrInvalidPostType
	}

	item := models.NewContentItem(postType, title)
	if err := s.content.Create(ctx, item); err != nil {
		return nil, services.WrapInternal("failed to create content item", err)
	}

	s.logger.Info("content item created",
		zap.String("item_id", item.ID.String()),
		zap.String("post_type", item.PostType))
	return item, nil
}

// Get retrieves an item by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	item, err := s.content.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrItemNotFound
		}
		return nil, services.WrapInternal("failed to get content item", err)
	}
	return item, nil
}

// SetFeaturedImage registers the image in the media registry and links it
// as the item's featured image
func (s *Service) SetFeaturedImage(ctx context.Context, id uuid.UUID, url string, width, height int) (*models.ContentItem, error) {
	if strings.TrimSpace(url) == "" || width < 0 || height < 0 {
		return nil, services.ErrInvalidImage
	}

	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.ContentItem, error) {
		item, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		att := models.NewAttachment(url, width, height)
		if err := s.attachments.Create(ctx, att); err != nil {
			return nil, services.WrapInternal("failed to register attachment", err)
		}
		if err := s.content.SetFeaturedImage(ctx, item.ID, &att.ID); err != nil {
			return nil, services.WrapInternal("failed to link featured image", err)
		}
		item.FeaturedImageID = &att.ID

		s.logger.Info("featured image set",
			zap.String("item_id", item.ID.String()),
			zap.String("attachment_id", att.ID.String()),
			zap.Int("width", width),
			zap.Int("height", height))
		return item, nil
	})
}

// ClearFeaturedImage unlinks the item's featured image
func (s *Service) ClearFeaturedImage(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.ContentItem, error) {
		item, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.content.SetFeaturedImage(ctx, item.ID, nil); err != nil {
			return nil, services.WrapInternal("failed to clear featured image", err)
		}
		item.FeaturedImageID = nil
		return item, nil
	})
}

// TransitionStatus persists the new status and runs the guard on it within
// one transaction. A denied publish commits the reverted status and is
// reported through the result, not as an error.
func (s *Service) TransitionStatus(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if !req.NewStatus.IsValid() {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid post status", nil).
			WithDetail("status", string(req.NewStatus))
	}

	result, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*TransitionResult, error) {
		item, err := s.Get(ctx, req.ItemID)
		if err != nil {
			return nil, err
		}

		oldStatus := item.Status
		if err := s.content.UpdateStatus(ctx, item.ID, req.NewStatus); err != nil {
			return nil, services.WrapInternal("failed to update item status", err)
		}
		item.Status = req.NewStatus

		outcome, err := s.guard.EvaluateTransition(ctx, guard.TransitionRequest{
			Item:      item,
			OldStatus: oldStatus,
			NewStatus: req.NewStatus,
			Bypass:    req.Bypass,
			Locale:    req.Locale,
			RequestID: req.RequestID,
			IPAddress: req.IPAddress,
			UserAgent: req.UserAgent,
		})
		if err != nil {
			return nil, err
		}

		result := &TransitionResult{Item: item}
		if outcome.Denied() {
			result.Denial = &Denial{
				Message:    outcome.Message,
				Reason:     string(outcome.Reason),
				RevertedTo: *outcome.RevertedTo,
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item status transition",
		zap.String("item_id", req.ItemID.String()),
		zap.String("new_status", string(req.NewStatus)),
		zap.String("final_status", string(result.Item.Status)),
		zap.Bool("bypass", req.Bypass),
		zap.Bool("denied", result.Denied()))
	return result, nil
}

// EditorBootstrap returns what the editor monitor needs for an item.
// Enforced is false when the monitor should not run at all.
func (s *Service) EditorBootstrap(ctx context.Context, id uuid.UUID, tag language.Tag) (*Bootstrap, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	policy, err := s.guard.Policy(ctx)
	if err != nil {
		return nil, err
	}

	if tag == (language.Tag{}) {
		tag = i18n.DefaultTag()
	}
	return &Bootstrap{
		Enforced:            policy.AppliesTo(item),
		MissingImageMessage: i18n.EditorNoImageNotice(tag),
		TooSmallMessage:     i18n.EditorTooSmallNotice(tag, policy.MinimumSize),
		MinWidth:            policy.MinimumSize.Width,
		MinHeight:           policy.MinimumSize.Height,
	}, nil
}
