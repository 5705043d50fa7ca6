package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger and its outbox relay.
type Metrics struct {
	Appended        *prometheus.CounterVec
	Published       prometheus.Counter
	PublishFailures prometheus.Counter
}

// New creates a new Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		Appended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mic_ledger_events_appended_total",
			Help: "Ledger events appended by event type",
		}, []string{"event_type"}),

		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_outbox_published_total",
			Help: "Ledger events published to Kafka by the outbox relay",
		}),

		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_outbox_publish_failures_total",
			Help: "Outbox relay batches that failed to publish",
		}),
	}
}

func (m *Metrics) IncrementAppended(eventType string) {
	if m != nil {
		m.Appended.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) AddPublished(n int) {
	if m != nil {
		m.Published.Add(float64(n))
	}
}

func (m *Metrics) IncrementPublishFailures() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}
