// Package outbox publishes committed ledger events to Kafka. Each event is
// recorded in event_outbox in the same transaction that wrote it; the relay
// drains unpublished rows in batches.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mic/internal/ledger/metrics"
	"mic/internal/ledger/models"
	"mic/pkg/platform/tx"
)

// Store is the outbox side of the ledger store.
type Store interface {
	ClaimUnpublished(ctx context.Context, limit int) ([]*models.Event, error)
	MarkPublished(ctx context.Context, eventIDs []string, at time.Time) error
}

// Publisher delivers a batch of events downstream. It must not return until
// every event is acknowledged or an error occurs.
type Publisher interface {
	Publish(ctx context.Context, events []*models.Event) error
}

var tracer = otel.Tracer("mic/outbox")

const (
	DefaultBatchSize    = 100
	DefaultPollInterval = time.Second
)

type Relay struct {
	store     Store
	tx        tx.Runner
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	batchSize int
	interval  time.Duration
	now       func() time.Time
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

func NewRelay(store Store, runner tx.Runner, publisher Publisher, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		tx:        runner,
		publisher: publisher,
		logger:    logger,
		batchSize: DefaultBatchSize,
		interval:  DefaultPollInterval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PublishBatch publishes one batch and marks it published. Rows stay locked
// for the duration, so concurrent relays never publish the same batch. If
// publishing fails nothing is marked and the batch is retried later; Kafka
// consumers therefore see at-least-once delivery.
func (r *Relay) PublishBatch(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "outbox.PublishBatch")
	defer span.End()

	var published int
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		events, err := r.store.ClaimUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		if err := r.publisher.Publish(ctx, events); err != nil {
			return fmt.Errorf("publish %d events: %w", len(events), err)
		}
		ids := make([]string, len(events))
		for i, ev := range events {
			ids[i] = ev.EventID
		}
		if err := r.store.MarkPublished(ctx, ids, r.now().UTC()); err != nil {
			return err
		}
		published = len(events)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		r.metrics.IncrementPublishFailures()
		return 0, err
	}
	span.SetAttributes(attribute.Int("outbox.published", published))
	r.metrics.AddPublished(published)
	return published, nil
}

// Run drains the outbox until ctx is cancelled. A full batch is followed
// immediately by another; otherwise the relay waits for the poll interval.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "outbox relay started",
		"batch_size", r.batchSize,
		"interval", r.interval.String(),
	)
	for {
		n, err := r.PublishBatch(ctx)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			r.logger.ErrorContext(ctx, "outbox publish failed", "error", err)
		} else if n > 0 {
			r.logger.DebugContext(ctx, "outbox batch published", "count", n)
		}
		if err == nil && n == r.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
		case <-time.After(r.interval):
		}
	}
	r.logger.InfoContext(context.WithoutCancel(ctx), "outbox relay stopped")
	return nil
}
