package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for verdict computation.
type Metrics struct {
	Computed        *prometheus.CounterVec
	ComputeDuration prometheus.Histogram
}

// New creates a new Metrics instance with all verdict metrics registered.
func New() *Metrics {
	return &Metrics{
		Computed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mic_verdicts_computed_total",
			Help: "Verdicts computed by resulting status",
		}, []string{"status"}),

		ComputeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mic_verdict_compute_duration_seconds",
			Help:    "Time spent reading validations, scoring and persisting a verdict",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}
}

func (m *Metrics) IncrementComputed(status string) {
	if m != nil {
		m.Computed.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ObserveComputeDuration(seconds float64) {
	if m != nil {
		m.ComputeDuration.Observe(seconds)
	}
}
