// Package guard runs the publish guard against live content: it loads the
// policy snapshot, evaluates a status change and reverts the item when the
// change is denied.
package guard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/upb/publish-guard/internal/observability"
	"github.com/upb/publish-guard/internal/publishguard"
	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/repositories"
	"github.com/upb/publish-guard/services"
)

// PolicySource provides the current policy snapshot
type PolicySource interface {
	Policy(ctx context.Context) (models.PolicyConfig, error)
}

// DecisionRecorder receives one audit entry per guarded publish attempt
type DecisionRecorder interface {
	LogDecision(log *models.AuditLog) error
}

// TransitionRequest describes a status change that has already been
// persisted on the item
type TransitionRequest struct {
	Item      *models.ContentItem
	OldStatus models.PostStatus
	NewStatus models.PostStatus
	Bypass    bool
	Locale    language.Tag

	RequestID string
	IPAddress string
	UserAgent string
}

// Outcome is a decision plus the status the item was put back to on deny
type Outcome struct {
	publishguard.Decision
	RevertedTo *models.PostStatus `json:"reverted_to,omitempty"`
}

// Service evaluates transitions and applies the revert
type Service struct {
	guard    *publishguard.Guard
	policies PolicySource
	content  repositories.ContentRepository
	recorder DecisionRecorder
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewService creates a new guard Service. recorder and metrics may be nil.
func NewService(
	policies PolicySource,
	content repositories.ContentRepository,
	attachments repositories.AttachmentRepository,
	recorder DecisionRecorder,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		guard:    publishguard.New(attachmentLookup(attachments)),
		policies: policies,
		content:  content,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
	}
}

func attachmentLookup(attachments repositories.AttachmentRepository) publishguard.ImageLookup {
	return publishguard.ImageLookupFunc(func(ctx context.Context, itemID uuid.UUID) (models.ImageDimensions, bool, error) {
		return attachments.GetDimensionsForItem(ctx, itemID)
	})
}

// Policy returns the policy snapshot the guard evaluates against
func (s *Service) Policy(ctx context.Context) (models.PolicyConfig, error) {
	return s.policies.Policy(ctx)
}

// EvaluateTransition decides the transition and, when it is denied, writes
// the revert status through the content repository. Pass the caller's
// transaction context so the revert joins the same unit of work.
func (s *Service) EvaluateTransition(ctx context.Context, req TransitionRequest) (Outcome, error) {
	if req.Item == nil {
		return Outcome{}, services.ErrInvalidInput
	}

	policy, err := s.policies.Policy(ctx)
	if err != nil {
		return Outcome{}, err
	}

	decision, err := s.guard.Evaluate(ctx, policy, publishguard.Transition{
		Item:      req.Item,
		NewStatus: req.NewStatus,
		OldStatus: req.OldStatus,
		Bypass:    req.Bypass,
		Locale:    req.Locale,
	})
	if err != nil {
		return Outcome{}, services.WrapInternal("failed to evaluate transition", err)
	}

	outcome := Outcome{Decision: decision}
	if decision.Denied() {
		revert := publishguard.RevertStatus(req.OldStatus)
		if err := s.content.UpdateStatus(ctx, req.Item.ID, revert); err != nil {
			return Outcome{}, services.WrapInternal("failed to revert item status", err)
		}
		req.Item.Status = revert
		outcome.RevertedTo = &revert
		s.metrics.ObserveRevert(string(revert))

		s.logger.Info("publish denied",
			zap.String("item_id", req.Item.ID.String()),
			zap.String("post_type", req.Item.PostType),
			zap.String("reason", string(decision.Reason)),
			zap.String("reverted_to", string(revert)))
	}

	s.metrics.ObserveDecision(decision.Allowed, string(decision.Reason))
	if req.NewStatus == models.PostStatusPublish {
		s.record(req, outcome)
	}
	return outcome, nil
}

func (s *Service) record(req TransitionRequest, outcome Outcome) {
	if s.recorder == nil {
		return
	}

	action := models.AuditActionPublishAllowed
	switch {
	case outcome.Reason == publishguard.ReasonBypassed:
		action = models.AuditActionPublishBypassed
	case outcome.Denied():
		action = models.AuditActionPublishDenied
	}

	entry := models.NewAuditLog(req.Item, action, req.OldStatus, req.NewStatus).
		WithReason(string(outcome.Reason)).
		WithRequestInfo(req.RequestID, req.IPAddress, req.UserAgent)
	if outcome.RevertedTo != nil {
		entry.WithRevert(*outcome.RevertedTo)
	}

	// a lost audit entry never changes the decision
	if err := s.recorder.LogDecision(entry); err != nil {
		s.logger.Warn("failed to queue audit entry",
			zap.String("item_id", req.Item.ID.String()),
			zap.Error(err))
	}
}

// String renders an outcome for logs
func (o Outcome) String() string {
	if o.RevertedTo != nil {
		return fmt.Sprintf("%s (reverted to %s)", o.Reason, *o.RevertedTo)
	}
	return string(o.Reason)
}
