package handlers

import (
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/upb/publish-guard/middleware"
	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/services/content"
	"github.com/upb/publish-guard/utils"
)

// BypassQueryParam and BypassQueryValue mark a request from the user locale
// switcher, which skips the publish guard
const (
	BypassQueryParam = "_locale"
	BypassQueryValue = "user"
)

// ContentService defines the item operations the HTTP surface needs
type ContentService interface {
	Create(ctx context.Context, postType, title string) (*models.ContentItem, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ContentItem, error)
	SetFeaturedImage(ctx context.Context, id uuid.UUID, url string, width, height int) (*models.ContentItem, error)
	ClearFeaturedImage(ctx context.Context, id uuid.UUID) (*models.ContentItem, error)
	TransitionStatus(ctx context.Context, req content.TransitionRequest) (*content.TransitionResult, error)
	EditorBootstrap(ctx context.Context, id uuid.UUID, tag language.Tag) (*content.Bootstrap, error)
}

// CreateItemRequest represents a request to create a content item
type CreateItemRequest struct {
	PostType string `json:"post_type" validate:"required,post_type"`
	Title    string `json:"title" validate:"max=255"`
}

// SetFeaturedImageRequest registers an image and links it to the item
type SetFeaturedImageRequest struct {
	URL    string `json:"url" validate:"required,url"`
	Width  int    `json:"width" validate:"gte=0"`
	Height int    `json:"height" validate:"gte=0"`
}

// TransitionRequest asks for a status change
type TransitionRequest struct {
	Status string `json:"status" validate:"required,post_status"`
}

// ItemHandler handles content item requests
type ItemHandler struct {
	content ContentService
	logger  *zap.Logger
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(content ContentService, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		content: content,
		logger:  logger,
	}
}

// HandleCreateItem handles POST /api/v1/items
func (h *ItemHandler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With(zap.String("request_id", middleware.GetRequestIDFromContext(ctx)))

	var req CreateItemRequest
	if !decodeJSON(w, r, &req, logger) {
		return
	}

	item, err := h.content.Create(ctx, req.PostType, req.Title)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	_ = utils.WriteCreated(w, item)
}

// HandleGetItem handles GET /api/v1/items/{id}
func (h *ItemHandler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	item, err := h.content.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, item)
}

// HandleSetFeaturedImage handles PUT /api/v1/items/{id}/featured-image
func (h *ItemHandler) HandleSetFeaturedImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With(zap.String("request_id", middleware.GetRequestIDFromContext(ctx)))

	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	var req SetFeaturedImageRequest
	if !decodeJSON(w, r, &req, logger) {
		return
	}

	item, err := h.content.SetFeaturedImage(ctx, id, req.URL, req.Width, req.Height)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	_ = utils.WriteOK(w, item)
}

// HandleClearFeaturedImage handles DELETE /api/v1/items/{id}/featured-image
func (h *ItemHandler) HandleClearFeaturedImage(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	item, err := h.content.ClearFeaturedImage(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, item)
}

// HandleTransition handles POST /api/v1/items/{id}/status.
// A denied publish ends the request with the bare deny message.
func (h *ItemHandler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)
	logger := h.logger.With(zap.String("request_id", requestID))

	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	var req TransitionRequest
	if !decodeJSON(w, r, &req, logger) {
		return
	}

	result, err := h.content.TransitionStatus(ctx, content.TransitionRequest{
		ItemID:    id,
		NewStatus: models.PostStatus(req.Status),
		Bypass:    r.URL.Query().Get(BypassQueryParam) == BypassQueryValue,
		Locale:    middleware.GetLocaleFromContext(ctx),
		RequestID: requestID,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if result.Denied() {
		logger.Info("publish blocked",
			zap.String("item_id", id.String()),
			zap.String("reason", result.Denial.Reason),
			zap.String("reverted_to", string(result.Denial.RevertedTo)))
		if err := utils.WriteHTML(w, http.StatusForbidden, result.Denial.Message); err != nil {
			logger.Error("failed to write hard stop", zap.Error(err))
		}
		return
	}

	_ = utils.WriteOK(w, result.Item)
}

// HandleEditorBootstrap handles GET /api/v1/items/{id}/editor-bootstrap
func (h *ItemHandler) HandleEditorBootstrap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	boot, err := h.content.EditorBootstrap(ctx, id, middleware.GetLocaleFromContext(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, boot)
}

// clientIP returns the caller address without its port. RealIP middleware
// has already replaced RemoteAddr when a proxy header was present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
