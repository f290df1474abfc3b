package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/publish-guard/middleware"
	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/repositories"
	"github.com/upb/publish-guard/utils"
)

// AuditListResponse is one page of guard decisions
type AuditListResponse struct {
	Entries []*models.AuditLog `json:"entries"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// AuditHandler serves the guard decision trail
type AuditHandler struct {
	auditRepo repositories.AuditRepository
	logger    *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditRepo repositories.AuditRepository, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// HandleListForItem handles GET /api/v1/items/{id}/audit
func (h *AuditHandler) HandleListForItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	limit, offset := utils.ParsePagination(r)

	logs, err := h.auditRepo.GetByItemID(ctx, id, limit, offset)
	if err != nil {
		h.logger.Error("failed to list audit logs",
			zap.String("request_id", requestID),
			zap.String("item_id", id.String()),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve audit logs")
		return
	}

	_ = utils.WriteOK(w, newAuditList(logs, limit, offset))
}

// HandleListByAction handles GET /api/v1/audit?action=
func (h *AuditHandler) HandleListByAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	action := models.AuditAction(r.URL.Query().Get("action"))
	if action == "" {
		action = models.AuditActionPublishDenied
	}
	if !action.IsValid() {
		_ = utils.WriteBadRequest(w, "Invalid audit action", map[string]interface{}{
			"action":  string(action),
			"allowed": models.AuditActions(),
		})
		return
	}
	limit, offset := utils.ParsePagination(r)

	logs, err := h.auditRepo.GetByAction(ctx, action, limit, offset)
	if err != nil {
		h.logger.Error("failed to list audit logs",
			zap.String("request_id", requestID),
			zap.String("action", string(action)),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve audit logs")
		return
	}

	_ = utils.WriteOK(w, newAuditList(logs, limit, offset))
}

func newAuditList(logs []*models.AuditLog, limit, offset int) AuditListResponse {
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	return AuditListResponse{Entries: logs, Limit: limit, Offset: offset}
}
