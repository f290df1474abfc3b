// Package observability provides structured logging and Prometheus metrics
// for the publish guard.
//
// This package implements:
//   - zap logger construction from LOG_LEVEL and LOG_FORMAT
//   - Request ID propagation into log fields
//   - Guard decision, revert, cache and audit counters
package observability
