package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts scan activity. A nil *Metrics records nothing.
type Metrics struct {
	scans         prometheus.Counter
	evaluated     prometheus.Counter
	passed        prometheus.Counter
	skipped       *prometheus.CounterVec
	batchFailures prometheus.Counter
	duration      prometheus.Histogram
}

// NewMetrics registers the scan metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		scans: f.NewCounter(prometheus.CounterOpts{
			Name: "vcp_scans_total",
			Help: "Bulk scans started.",
		}),
		evaluated: f.NewCounter(prometheus.CounterOpts{
			Name: "vcp_symbols_evaluated_total",
			Help: "Symbols that reached pattern evaluation.",
		}),
		passed: f.NewCounter(prometheus.CounterOpts{
			Name: "vcp_symbols_passed_total",
			Help: "Symbols that met every criterion.",
		}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vcp_symbols_skipped_total",
			Help: "Symbols excluded before evaluation, by reason.",
		}, []string{"reason"}),
		batchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "vcp_batch_failures_total",
			Help: "Batches whose download failed.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vcp_scan_duration_seconds",
			Help:    "Wall time of a bulk scan.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 8),
		}),
	}
}

func (m *Metrics) scanStarted() {
	if m != nil {
		m.scans.Inc()
	}
}

func (m *Metrics) observe(o SymbolOutcome) {
	if m == nil {
		return
	}
	if o.Skip != "" {
		m.skipped.WithLabelValues(string(o.Skip)).Inc()
		return
	}
	m.evaluated.Inc()
	if o.Passed {
		m.passed.Inc()
	}
}

func (m *Metrics) batchFailed() {
	if m != nil {
		m.batchFailures.Inc()
	}
}

func (m *Metrics) scanFinished(seconds float64) {
	if m != nil {
		m.duration.Observe(seconds)
	}
}
