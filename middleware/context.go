package middleware

import (
	"context"

	"golang.org/x/text/language"

	"github.com/upb/publish-guard/internal/auth"
	"github.com/upb/publish-guard/internal/observability"
)

// Context key type to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for validated token claims
	ClaimsKey contextKey = "claims"

	// LocaleKey is the context key for the resolved request locale
	LocaleKey contextKey = "locale"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	return observability.RequestID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return observability.WithRequestID(ctx, requestID)
}

// GetClaimsFromContext retrieves token claims from context
func GetClaimsFromContext(ctx context.Context) *auth.ParsedClaims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*auth.ParsedClaims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds token claims to the context
func WithClaims(ctx context.Context, claims *auth.ParsedClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetLocaleFromContext retrieves the request locale; the zero tag when unset
func GetLocaleFromContext(ctx context.Context) language.Tag {
	if val := ctx.Value(LocaleKey); val != nil {
		if tag, ok := val.(language.Tag); ok {
			return tag
		}
	}
	return language.Tag{}
}

// WithLocale adds the request locale to the context
func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, LocaleKey, tag)
}
