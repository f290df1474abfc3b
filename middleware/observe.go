package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/upb/publish-guard/internal/observability"
)

// RequestContext copies the chi request id into the observability context
// so services can log it. It must run after chi's RequestID middleware.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimw.GetReqID(ctx); id != "" {
			ctx = WithRequestID(ctx, id)
			w.Header().Set("X-Request-ID", id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Observe logs each request and records its metrics. Metrics may be nil.
func Observe(logger *zap.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)
			route := routePattern(r)

			if metrics != nil {
				metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
				metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
			}

			observability.ForRequest(r.Context(), logger).Info("request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", duration))
		})
	}
}

// routePattern keeps metric labels bounded by using the matched chi pattern
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
