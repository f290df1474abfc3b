package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/publish-guard/middleware"
	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/utils"
)

// SettingsService is the policy store as seen by the settings surface
type SettingsService interface {
	Policy(ctx context.Context) (models.PolicyConfig, error)
	AvailablePostTypes() []string
	SetEnforcedTypes(ctx context.Context, types []string) (models.PostTypeSet, error)
	SetMinimumSize(ctx context.Context, size models.MinimumSize) error
}

// SettingsResponse is the settings page state
type SettingsResponse struct {
	PostTypes          []string           `json:"post_types"`
	MinimumSize        models.MinimumSize `json:"minimum_size"`
	EnforcementStart   time.Time          `json:"enforcement_start"`
	AvailablePostTypes []string           `json:"available_post_types"`
}

// UpdatePostTypesRequest replaces the enforced post types. An empty list
// disables enforcement.
type UpdatePostTypesRequest struct {
	PostTypes []string `json:"post_types" validate:"dive,post_type"`
}

// UpdateMinimumSizeRequest replaces the minimum image size
type UpdateMinimumSizeRequest struct {
	Width  int `json:"width" validate:"gte=0"`
	Height int `json:"height" validate:"gte=0"`
}

// SettingsHandler serves the guard settings
type SettingsHandler struct {
	settings SettingsService
	logger   *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logger,
	}
}

// HandleGetSettings handles GET /api/v1/settings
func (h *SettingsHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	h.writeSettings(w, r)
}

// HandleUpdatePostTypes handles PUT /api/v1/settings/post-types
func (h *SettingsHandler) HandleUpdatePostTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)
	logger := h.logger.With(zap.String("request_id", requestID))

	var req UpdatePostTypesRequest
	if !decodeJSON(w, r, &req, logger) {
		return
	}

	if _, err := h.settings.SetEnforcedTypes(ctx, req.PostTypes); err != nil {
		logger.Warn("failed to update post types", zap.Error(err))
		HandleServiceError(w, err, logger)
		return
	}

	h.writeSettings(w, r)
}

// HandleUpdateMinimumSize handles PUT /api/v1/settings/minimum-size
func (h *SettingsHandler) HandleUpdateMinimumSize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)
	logger := h.logger.With(zap.String("request_id", requestID))

	var req UpdateMinimumSizeRequest
	if !decodeJSON(w, r, &req, logger) {
		return
	}

	size := models.MinimumSize{Width: req.Width, Height: req.Height}
	if err := h.settings.SetMinimumSize(ctx, size); err != nil {
		logger.Warn("failed to update minimum size", zap.Error(err))
		HandleServiceError(w, err, logger)
		return
	}

	h.writeSettings(w, r)
}

func (h *SettingsHandler) writeSettings(w http.ResponseWriter, r *http.Request) {
	policy, err := h.settings.Policy(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	available := h.settings.AvailablePostTypes()
	if available == nil {
		available = []string{}
	}
	_ = utils.WriteOK(w, SettingsResponse{
		PostTypes:          policy.EnforcedTypes.Slice(),
		MinimumSize:        policy.MinimumSize,
		EnforcementStart:   policy.EnforcementStart,
		AvailablePostTypes: available,
	})
}
