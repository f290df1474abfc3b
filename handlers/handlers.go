// Package handlers holds the HTTP handlers of the publish guard service.
// Handlers stay thin: decode, validate, call a service, map the result.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/publish-guard/utils"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst and validates it. It writes the 400
// response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		logger.Warn("failed to parse request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return false
	}

	if err := utils.ValidateStruct(dst); err != nil {
		logger.Warn("request validation failed", zap.Error(err))
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

// itemIDParam parses the {id} path parameter, writing a 400 when malformed
func itemIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid item ID format", nil)
		return uuid.Nil, false
	}
	return id, true
}
