package observability

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field represents a structured log field.
type Field = zap.Field

type requestIDKey struct{}

// NewLogger builds the process logger from a level name and a format
// ("json" or "text").
func NewLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "text", "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// WithRequestID stores the request ID for ForRequest
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID carried by ctx, if any
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// ForRequest returns logger annotated with the request ID carried by ctx
func ForRequest(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if id := RequestID(ctx); id != "" {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}
