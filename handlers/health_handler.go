package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/publish-guard/services/audit"
	"github.com/upb/publish-guard/utils"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// AuditStatus reports the state of the audit pipeline
type AuditStatus interface {
	GetStats() audit.Stats
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     *sql.DB
	audit  AuditStatus
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *sql.DB, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// WithAudit adds the audit pipeline to the readiness checks
func (h *HealthHandler) WithAudit(a AuditStatus) *HealthHandler {
	h.audit = a
	return h
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Readiness check - validates that all dependencies are available
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	// Check database connectivity
	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.audit != nil {
		stats := h.audit.GetStats()
		if stats.Started {
			checks["audit"] = "healthy"
		} else {
			h.logger.Warn("audit pipeline not running")
			checks["audit"] = "unhealthy"
			allHealthy = false
		}
	}

	// Determine overall status
	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil // No database configured
	}

	// Ping database with timeout
	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	// Check if we can execute a simple query
	var result int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return err
	}

	return nil
}
