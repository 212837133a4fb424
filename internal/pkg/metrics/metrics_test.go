package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncCreated()
	m.IncConsumed()
	m.IncConsumed()
	m.IncRejected("NOT_ELIGIBLE")
	m.IncOrphaned()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransfersCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChargesConsumed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransfersRejected.WithLabelValues("NOT_ELIGIBLE")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TransfersRejected.WithLabelValues("VALIDATION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransfersOrphaned))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncCreated()
		m.IncRejected("x")
		m.IncConsumed()
		m.IncOrphaned()
	})
}
