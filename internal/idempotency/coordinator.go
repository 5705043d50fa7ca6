// Package idempotency arbitrates duplicate and concurrent write attempts that
// share an (actor, idempotency key) pair. Exactly one attempt wins and runs
// the mutation; later attempts replay its stored response, or fail when the
// payload differs or the winner has not finished.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mic/internal/idempotency/metrics"
	"mic/internal/idempotency/models"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/platform/sentinel"
	"mic/pkg/platform/tx"
	"mic/pkg/requestcontext"
)

// HeaderKey is the request header carrying the idempotency key.
const HeaderKey = "Idempotency-Key"

// MaxKeyLength bounds caller-supplied keys.
const MaxKeyLength = 255

var tracer = otel.Tracer("mic/idempotency")

// Outcome is the result of claiming a slot.
type Outcome int

const (
	OutcomeWinner Outcome = iota
	OutcomeReplay
	OutcomeConflict
	OutcomeInProgress
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWinner:
		return "winner"
	case OutcomeReplay:
		return "replay"
	case OutcomeConflict:
		return "conflict"
	case OutcomeInProgress:
		return "in_progress"
	default:
		return "unknown"
	}
}

// Store persists idempotency records. InsertPending must be an atomic
// insert-unless-exists on the record key.
type Store interface {
	InsertPending(ctx context.Context, rec *models.Record) (bool, error)
	Get(ctx context.Context, key models.Key) (*models.Record, error)
	TakeOverStale(ctx context.Context, key models.Key, requestHash string, staleBefore, now time.Time) (bool, error)
	Finalize(ctx context.Context, key models.Key, fin models.Finalization) error
}

// Request identifies one write attempt.
type Request struct {
	Key         models.Key
	RequestHash string
}

// Slot is the outcome of ClaimSlot. Record is set for Replay.
type Slot struct {
	Outcome Outcome
	Record  *models.Record
}

// Response is what the winning mutation produced and what replays return.
type Response struct {
	StatusCode    int
	Body          []byte
	EventID       string
	AggregateType string
	AggregateID   string
}

// Result is returned by Execute.
type Result struct {
	Response
	Replayed bool
}

// Func performs the business mutation for a winning request. It runs inside
// the coordinator's transaction, carried by ctx.
type Func func(ctx context.Context) (*Response, error)

type Coordinator struct {
	store      Store
	tx         tx.Runner
	pendingTTL time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Coordinator)

// WithPendingTTL lets a matching retry take over a pending record older than ttl.
// Zero disables takeover.
func WithPendingTTL(ttl time.Duration) Option {
	return func(c *Coordinator) { c.pendingTTL = ttl }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func New(store Store, runner tx.Runner, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      store,
		tx:         runner,
		pendingTTL: 5 * time.Minute,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRequest validates the caller-supplied key and builds a Request.
func NewRequest(actor requestcontext.Actor, key, requestHash string) (Request, error) {
	if actor.IsZero() {
		return Request{}, dErrors.New(dErrors.CodeUnauthorized, "actor identity is required")
	}
	if key == "" {
		return Request{}, dErrors.New(dErrors.CodeBadRequest, HeaderKey+" header is required")
	}
	if len(key) > MaxKeyLength {
		return Request{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s must be at most %d characters", HeaderKey, MaxKeyLength))
	}
	return Request{
		Key:         models.Key{ActorType: actor.Type, ActorID: actor.ID, IdempotencyKey: key},
		RequestHash: requestHash,
	}, nil
}

// ClaimSlot arbitrates req against any stored record. It must run inside the
// transaction that will perform the mutation and Finalize.
func (c *Coordinator) ClaimSlot(ctx context.Context, req Request) (Slot, error) {
	now := requestcontext.Now(ctx)
	inserted, err := c.store.InsertPending(ctx, &models.Record{
		Key:         req.Key,
		RequestHash: req.RequestHash,
		CreatedAt:   now,
	})
	if err != nil {
		return Slot{}, fmt.Errorf("insert pending idempotency record: %w", err)
	}
	if inserted {
		return Slot{Outcome: OutcomeWinner}, nil
	}

	existing, err := c.store.Get(ctx, req.Key)
	if err != nil {
		return Slot{}, fmt.Errorf("load idempotency record: %w", err)
	}
	if existing.RequestHash != req.RequestHash {
		return Slot{Outcome: OutcomeConflict}, nil
	}
	if existing.Finalized() {
		return Slot{Outcome: OutcomeReplay, Record: existing}, nil
	}

	if c.pendingTTL > 0 {
		cutoff := now.Add(-c.pendingTTL)
		if existing.CreatedAt.Before(cutoff) {
			took, err := c.store.TakeOverStale(ctx, req.Key, req.RequestHash, cutoff, now)
			if err != nil {
				return Slot{}, fmt.Errorf("take over stale idempotency record: %w", err)
			}
			if took {
				c.metrics.IncrementTakeover()
				c.logger.WarnContext(ctx, "took over stale pending idempotency record",
					"actor_type", req.Key.ActorType,
					"actor_id", req.Key.ActorID,
					"pending_since", existing.CreatedAt,
					"trace_id", requestcontext.TraceID(ctx),
				)
				return Slot{Outcome: OutcomeWinner}, nil
			}
		}
	}
	return Slot{Outcome: OutcomeInProgress}, nil
}

// Finalize stores the winner's response. It must run in the same transaction
// as ClaimSlot and the mutation.
func (c *Coordinator) Finalize(ctx context.Context, key models.Key, resp *Response) error {
	if resp == nil || resp.Body == nil {
		return errors.New("finalize idempotency record: empty response")
	}
	if resp.StatusCode < 100 || resp.StatusCode > 599 {
		return fmt.Errorf("finalize idempotency record: invalid status %d", resp.StatusCode)
	}
	err := c.store.Finalize(ctx, key, models.Finalization{
		StatusCode:        resp.StatusCode,
		Body:              resp.Body,
		EventID:           resp.EventID,
		AggregateType:     resp.AggregateType,
		AggregateID:       resp.AggregateID,
		ResponseCreatedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("finalize idempotency record: slot not held: %w", err)
		}
		return fmt.Errorf("finalize idempotency record: %w", err)
	}
	return nil
}

// Execute claims the slot for req and, when it wins, runs fn and stores its
// response in one transaction. Any error from fn rolls back the pending
// record with the mutation, so a retry gets a fresh attempt.
func (c *Coordinator) Execute(ctx context.Context, req Request, fn Func) (*Result, error) {
	ctx, span := tracer.Start(ctx, "idempotency.Execute")
	defer span.End()

	var result *Result
	var outcome Outcome
	err := c.tx.RunInTx(ctx, func(ctx context.Context) error {
		slot, err := c.ClaimSlot(ctx, req)
		if err != nil {
			return err
		}
		outcome = slot.Outcome

		switch slot.Outcome {
		case OutcomeReplay:
			result = &Result{Response: responseFromRecord(slot.Record), Replayed: true}
			return nil
		case OutcomeConflict:
			return dErrors.New(dErrors.CodeIdempotencyConflict,
				"idempotency key was already used with a different request payload")
		case OutcomeInProgress:
			return dErrors.New(dErrors.CodeIdempotencyInProgress,
				"a request with this idempotency key is still in progress; retry later")
		}

		resp, err := fn(ctx)
		if err != nil {
			return err
		}
		if err := c.Finalize(ctx, req.Key, resp); err != nil {
			return err
		}
		result = &Result{Response: *resp}
		return nil
	})

	span.SetAttributes(attribute.String("idempotency.outcome", outcome.String()))
	if err != nil {
		if outcome == OutcomeConflict || outcome == OutcomeInProgress {
			c.metrics.IncrementOutcome(outcome.String())
		}
		return nil, err
	}
	c.metrics.IncrementOutcome(outcome.String())
	return result, nil
}

func responseFromRecord(rec *models.Record) Response {
	status := rec.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	return Response{
		StatusCode:    status,
		Body:          rec.ResponseBody,
		EventID:       rec.EventID,
		AggregateType: rec.AggregateType,
		AggregateID:   rec.AggregateID,
	}
}
