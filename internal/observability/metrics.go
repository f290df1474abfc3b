package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the guard service.
// Pass to components that need to record metrics; a nil *Metrics is a no-op.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	GuardDecisions      *prometheus.CounterVec
	StatusReverts       *prometheus.CounterVec
	SettingsCacheResult *prometheus.CounterVec
	AuditDropsTotal     prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "publish_guard",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "publish_guard",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		GuardDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "publish_guard",
				Name:      "decisions_total",
				Help:      "Publish guard decisions by outcome and reason",
			},
			[]string{"result", "reason"}, // result=allow/deny
		),
		StatusReverts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "publish_guard",
				Name:      "status_reverts_total",
				Help:      "Denied transitions reverted, by target status",
			},
			[]string{"status"},
		),
		SettingsCacheResult: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "publish_guard",
				Name:      "settings_cache_total",
				Help:      "Policy snapshot cache lookups",
			},
			[]string{"result"}, // result=hit/miss
		),
		AuditDropsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "publish_guard",
				Name:      "audit_drops_total",
				Help:      "Audit records dropped due to backpressure",
			},
		),
	}
}

// ObserveDecision records one guard decision
func (m *Metrics) ObserveDecision(allowed bool, reason string) {
	if m == nil {
		return
	}
	result := "allow"
	if !allowed {
		result = "deny"
	}
	m.GuardDecisions.WithLabelValues(result, reason).Inc()
}

// ObserveRevert records a status revert
func (m *Metrics) ObserveRevert(status string) {
	if m == nil {
		return
	}
	m.StatusReverts.WithLabelValues(status).Inc()
}

// ObserveCache records a settings cache lookup
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SettingsCacheResult.WithLabelValues(result).Inc()
}

// ObserveAuditDrop records an audit event dropped on a full buffer
func (m *Metrics) ObserveAuditDrop() {
	if m == nil {
		return
	}
	m.AuditDropsTotal.Inc()
}
