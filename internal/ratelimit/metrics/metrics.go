package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decisions recorded by the rate-limit middleware.
const (
	DecisionAllowed  = "allowed"
	DecisionRejected = "rejected"
	DecisionError    = "error"
	DecisionDegraded = "degraded"
)

type Metrics struct {
	Decisions    *prometheus.CounterVec
	BreakerState prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mic_ratelimit_decisions_total",
			Help: "Rate limit decisions for write requests",
		}, []string{"decision"}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mic_ratelimit_breaker_open",
			Help: "1 while the rate-limit counter store is bypassed after repeated failures",
		}),
	}
}

func (m *Metrics) IncrementDecision(decision string) {
	if m != nil {
		m.Decisions.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
		return
	}
	m.BreakerState.Set(0)
}
