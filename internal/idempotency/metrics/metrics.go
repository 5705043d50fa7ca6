package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for idempotency slot arbitration.
type Metrics struct {
	Outcomes  *prometheus.CounterVec
	Takeovers prometheus.Counter
}

// New creates a new Metrics instance with all idempotency metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mic_idempotency_outcomes_total",
			Help: "Idempotency slot outcomes by kind",
		}, []string{"outcome"}), // outcome: "winner", "replay", "conflict", "in_progress"

		Takeovers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_idempotency_stale_takeovers_total",
			Help: "Pending idempotency records taken over after exceeding the pending TTL",
		}),
	}
}

// IncrementOutcome records one slot outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

// IncrementTakeover records a stale pending record being reclaimed.
func (m *Metrics) IncrementTakeover() {
	if m != nil {
		m.Takeovers.Inc()
	}
}
