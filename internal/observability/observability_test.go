package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "json")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = NewLogger("WARN", "text")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = NewLogger("loud", "json")
	assert.Error(t, err)

	_, err = NewLogger("info", "xml")
	assert.Error(t, err)
}

func TestForRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	ForRequest(context.Background(), logger).Info("no id")
	ForRequest(WithRequestID(context.Background(), "req-42"), logger).Info("with id")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].ContextMap())
	assert.Equal(t, "req-42", entries[1].ContextMap()["request_id"])
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveDecision(false, "missing_image")
	m.ObserveDecision(false, "missing_image")
	m.ObserveDecision(true, "satisfied")
	m.ObserveRevert("draft")
	m.ObserveCache(true)
	m.ObserveAuditDrop()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GuardDecisions.WithLabelValues("deny", "missing_image")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisions.WithLabelValues("allow", "satisfied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusReverts.WithLabelValues("draft")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SettingsCacheResult.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditDropsTotal))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDecision(true, "satisfied")
		m.ObserveRevert("draft")
		m.ObserveCache(false)
		m.ObserveAuditDrop()
	})
}
