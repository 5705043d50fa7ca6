package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	claimsmodels "mic/internal/claims/models"
	"mic/internal/ledger"
	"mic/internal/verdict"
	"mic/internal/verdict/metrics"
	"mic/internal/verdict/models"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/platform/sentinel"
	"mic/pkg/platform/tx"
	"mic/pkg/requestcontext"
)

var tracer = otel.Tracer("mic/verdict")

type Store interface {
	Insert(ctx context.Context, v *models.Verdict) error
	Latest(ctx context.Context, claimID string) (*models.Verdict, error)
	List(ctx context.Context, claimID string, limit int) ([]*models.Verdict, error)
}

// ClaimReader exposes the claim data a verdict is computed from.
type ClaimReader interface {
	GetClaim(ctx context.Context, claimID string) (*claimsmodels.Claim, error)
	ListValidations(ctx context.Context, claimID string) ([]*claimsmodels.Validation, error)
}

// SourceTiers resolves source authority tiers. Unknown sources are absent
// from the returned map.
type SourceTiers interface {
	Tiers(ctx context.Context, sourceIDs []string) (map[string]string, error)
}

// EventAppender records ledger events in the caller's transaction.
type EventAppender interface {
	Append(ctx context.Context, in ledger.AppendInput) (string, error)
}

type Service struct {
	store   Store
	claims  ClaimReader
	sources SourceTiers
	events  EventAppender
	tx      tx.Runner
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(store Store, claims ClaimReader, sources SourceTiers, events EventAppender, runner tx.Runner, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		claims:  claims,
		sources: sources,
		events:  events,
		tx:      runner,
		metrics: m,
		logger:  logger,
	}
}

// Compute scores the claim's current validations and appends a new verdict
// with a verdict.computed event. Concurrent computations for one claim are
// not coordinated; each persists its own snapshot.
func (s *Service) Compute(ctx context.Context, claimID string) (*models.Verdict, error) {
	ctx, span := tracer.Start(ctx, "verdict.Compute")
	defer span.End()
	start := time.Now()

	actor, ok := requestcontext.ActorFrom(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor identity is required")
	}

	var validations []*claimsmodels.Validation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.claims.GetClaim(gctx, claimID)
		return err
	})
	g.Go(func() error {
		var err error
		validations, err = s.claims.ListValidations(gctx, claimID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inputs, err := s.join(ctx, validations)
	if err != nil {
		return nil, err
	}
	res := verdict.Score(inputs)

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate verdict id: %w", err)
	}
	v := &models.Verdict{
		ID:                    id.String(),
		ClaimID:               claimID,
		Status:                res.Status,
		Score:                 res.Score,
		ValidationIDs:         res.ValidationIDs,
		ValidationCountTotal:  res.CountTotal,
		ValidationCountScored: res.CountScored,
		CreatedAt:             requestcontext.Now(ctx).UTC().Truncate(time.Microsecond),
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Insert(ctx, v); err != nil {
			return err
		}
		_, err := s.events.Append(ctx, ledger.AppendInput{
			EventType:     "verdict.computed",
			AggregateType: "verdict",
			AggregateID:   v.ID,
			Actor:         actor,
			CorrelationID: requestcontext.TraceID(ctx),
			Payload: map[string]any{
				"schema_version":          1,
				"claim_id":                v.ClaimID,
				"status":                  v.Status,
				"score":                   v.Score,
				"validation_ids":          v.ValidationIDs,
				"validation_count_total":  v.ValidationCountTotal,
				"validation_count_scored": v.ValidationCountScored,
			},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("persist verdict: %w", err)
	}

	span.SetAttributes(
		attribute.String("verdict.status", string(v.Status)),
		attribute.Int("verdict.validations_total", v.ValidationCountTotal),
	)
	s.metrics.IncrementComputed(string(v.Status))
	s.metrics.ObserveComputeDuration(time.Since(start).Seconds())
	return v, nil
}

// Latest returns the newest verdict for an existing claim, or ErrNoVerdict
// when it has never been scored.
func (s *Service) Latest(ctx context.Context, claimID string) (*models.Verdict, error) {
	if _, err := s.claims.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	v, err := s.store.Latest(ctx, claimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrNoVerdict
	}
	if err != nil {
		return nil, fmt.Errorf("latest verdict for claim %s: %w", claimID, err)
	}
	return v, nil
}

// List returns up to limit verdicts for an existing claim, newest first.
func (s *Service) List(ctx context.Context, claimID string, limit int) ([]*models.Verdict, error) {
	if _, err := s.claims.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	list, err := s.store.List(ctx, claimID, limit)
	if err != nil {
		return nil, fmt.Errorf("list verdicts for claim %s: %w", claimID, err)
	}
	return list, nil
}

// ErrNoVerdict reports that a claim exists but has never been scored.
var ErrNoVerdict = dErrors.New(dErrors.CodeNotFound, "no verdict exists for this claim yet")

func (s *Service) join(ctx context.Context, validations []*claimsmodels.Validation) ([]verdict.Input, error) {
	ids := make([]string, 0, len(validations))
	seen := make(map[string]bool, len(validations))
	for _, v := range validations {
		if !seen[v.SourceID] {
			seen[v.SourceID] = true
			ids = append(ids, v.SourceID)
		}
	}
	tiers, err := s.sources.Tiers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve source tiers: %w", err)
	}
	inputs := make([]verdict.Input, len(validations))
	for i, v := range validations {
		inputs[i] = verdict.Input{
			ValidationID: v.ID,
			Outcome:      v.Outcome,
			Confidence:   v.Confidence,
			Tier:         tiers[v.SourceID],
			CreatedAt:    v.CreatedAt,
		}
	}
	return inputs, nil
}
