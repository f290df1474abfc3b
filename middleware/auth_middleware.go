package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/publish-guard/internal/auth"
	"github.com/upb/publish-guard/utils"
)

// TokenValidator defines the interface for validating bearer tokens
type TokenValidator interface {
	// ValidateToken validates a token and returns claims
	ValidateToken(ctx context.Context, token string) (*auth.ParsedClaims, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// authTokenCookieName is the cookie the editor screens send the token in.
// The Authorization header takes precedence.
const authTokenCookieName = "auth_token"

// RequireAuth is a middleware that requires a valid token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx = WithClaims(ctx, claims)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Subject))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCapability is a middleware that requires the caller to hold cap.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireCapability(cap auth.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			claims := GetClaimsFromContext(ctx)
			if claims == nil {
				m.logger.Error("claims not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !claims.HasCapability(cap) {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("required_capability", string(cap)),
					zap.Strings("capabilities", claims.CapabilityStrings()))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads the Authorization header, then the auth_token cookie
func extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(authTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
