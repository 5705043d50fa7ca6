// Package ledger appends immutable, schema-versioned events that document
// every state change. Appends join the caller's transaction so an effect and
// its audit record commit or abort together.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mic/internal/ledger/metrics"
	"mic/internal/ledger/models"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/requestcontext"
)

// Store persists events. Insert must join the transaction carried by ctx.
type Store interface {
	Insert(ctx context.Context, ev *models.Event) error
	ListByAggregate(ctx context.Context, aggregateType, aggregateID string, after *models.Cursor, limit int) ([]*models.Event, error)
}

// AppendInput describes one event. The event id and timestamp are assigned by
// the writer.
type AppendInput struct {
	EventType     string
	AggregateType string
	AggregateID   string
	Actor         requestcontext.Actor
	Payload       any
	CorrelationID string
}

type Writer struct {
	store   Store
	metrics *metrics.Metrics
}

func NewWriter(store Store, m *metrics.Metrics) *Writer {
	return &Writer{store: store, metrics: m}
}

// Append validates in and inserts the event, returning its generated id.
// Validation happens before any write.
func (w *Writer) Append(ctx context.Context, in AppendInput) (string, error) {
	if err := ValidateEventType(in.EventType, in.AggregateType); err != nil {
		return "", err
	}
	if in.AggregateID == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "aggregate_id is required")
	}
	if in.Actor.IsZero() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "actor identity is required")
	}
	payload, err := json.Marshal(in.Payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", in.EventType, err)
	}
	if _, err := ValidatePayload(payload); err != nil {
		return "", err
	}

	// v7 ids are time-ordered, so events sharing a request timestamp keep
	// their append order under the (created_at, event_id) sort.
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate event id: %w", err)
	}
	ev := &models.Event{
		EventID:       id.String(),
		EventType:     in.EventType,
		AggregateType: in.AggregateType,
		AggregateID:   in.AggregateID,
		ActorType:     in.Actor.Type,
		ActorID:       in.Actor.ID,
		CorrelationID: in.CorrelationID,
		Payload:       payload,
		CreatedAt:     requestcontext.Now(ctx).UTC().Truncate(time.Microsecond),
	}
	if err := w.store.Insert(ctx, ev); err != nil {
		return "", fmt.Errorf("append %s: %w", in.EventType, err)
	}
	w.metrics.IncrementAppended(in.EventType)
	return ev.EventID, nil
}

// List returns up to limit events for one aggregate in (created_at, event_id)
// order, starting strictly after the cursor when one is given.
func (w *Writer) List(ctx context.Context, aggregateType, aggregateID string, after *models.Cursor, limit int) ([]*models.Event, error) {
	events, err := w.store.ListByAggregate(ctx, aggregateType, aggregateID, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list events for %s %s: %w", aggregateType, aggregateID, err)
	}
	return events, nil
}
