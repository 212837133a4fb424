package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the transfer workflow counters. A nil *Metrics is a no-op.
type Metrics struct {
	TransfersCreated  prometheus.Counter
	TransfersRejected *prometheus.CounterVec
	ChargesConsumed   prometheus.Counter
	TransfersOrphaned prometheus.Counter
}

// New creates the counters and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TransfersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "unit_transfer_created_total",
			Help: "Transfers recorded with their charge consumed",
		}),
		TransfersRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unit_transfer_rejected_total",
			Help: "Transfer attempts rejected at a gate, by reason",
		}, []string{"reason"}),
		ChargesConsumed: f.NewCounter(prometheus.CounterOpts{
			Name: "transfer_charge_consumed_total",
			Help: "Transfer-charge ledger entries consumed",
		}),
		TransfersOrphaned: f.NewCounter(prometheus.CounterOpts{
			Name: "unit_transfer_orphaned_total",
			Help: "Transfers flagged for manual reconciliation",
		}),
	}
}

func (m *Metrics) IncCreated() {
	if m != nil {
		m.TransfersCreated.Inc()
	}
}

func (m *Metrics) IncRejected(reason string) {
	if m != nil {
		m.TransfersRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncConsumed() {
	if m != nil {
		m.ChargesConsumed.Inc()
	}
}

func (m *Metrics) IncOrphaned() {
	if m != nil {
		m.TransfersOrphaned.Inc()
	}
}
