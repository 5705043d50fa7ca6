package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mic/internal/claims/models"
	"mic/internal/ledger"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/platform/sentinel"
	"mic/pkg/platform/tx"
	"mic/pkg/requestcontext"
)

type Store interface {
	CreateClaim(ctx context.Context, claim *models.Claim) error
	GetClaim(ctx context.Context, claimID string) (*models.Claim, error)
	CreateValidation(ctx context.Context, v *models.Validation) error
	ListValidations(ctx context.Context, claimID string, limit int) ([]*models.Validation, error)
}

// EventAppender records ledger events in the caller's transaction.
type EventAppender interface {
	Append(ctx context.Context, in ledger.AppendInput) (string, error)
}

// Service owns claim and validation writes. Every write and its ledger event
// commit together.
type Service struct {
	store  Store
	events EventAppender
	tx     tx.Runner
	logger *slog.Logger
}

func New(store Store, events EventAppender, runner tx.Runner, logger *slog.Logger) *Service {
	return &Service{store: store, events: events, tx: runner, logger: logger}
}

// CreateClaim stores a new claim and its claim.created event, returning the
// claim and the event id. It joins the transaction carried by ctx when there
// is one.
func (s *Service) CreateClaim(ctx context.Context, req models.CreateClaimRequest) (*models.Claim, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}
	actor, ok := requestcontext.ActorFrom(ctx)
	if !ok {
		return nil, "", dErrors.New(dErrors.CodeUnauthorized, "actor identity is required")
	}

	claim := &models.Claim{
		ID:        uuid.NewString(),
		Content:   req.Content,
		CreatedAt: requestcontext.Now(ctx).UTC().Truncate(time.Microsecond),
	}
	var eventID string
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateClaim(ctx, claim); err != nil {
			return err
		}
		var err error
		eventID, err = s.events.Append(ctx, ledger.AppendInput{
			EventType:     "claim.created",
			AggregateType: "claim",
			AggregateID:   claim.ID,
			Actor:         actor,
			CorrelationID: requestcontext.TraceID(ctx),
			Payload: map[string]any{
				"schema_version": 1,
				"content":        claim.Content,
			},
		})
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("create claim: %w", err)
	}
	return claim, eventID, nil
}

// CreateValidation records a validation against an existing claim and its
// validation.created event. It is not idempotency-protected.
func (s *Service) CreateValidation(ctx context.Context, req models.CreateValidationRequest) (*models.Validation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor, ok := requestcontext.ActorFrom(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor identity is required")
	}

	v := &models.Validation{
		ID:          uuid.NewString(),
		ClaimID:     req.ClaimID,
		SourceID:    req.SourceID,
		Outcome:     req.Outcome,
		Confidence:  *req.Confidence,
		EvidenceRef: req.EvidenceRef,
		CreatedAt:   requestcontext.Now(ctx).UTC().Truncate(time.Microsecond),
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.getClaim(ctx, req.ClaimID); err != nil {
			return err
		}
		if err := s.store.CreateValidation(ctx, v); err != nil {
			return err
		}
		_, err := s.events.Append(ctx, ledger.AppendInput{
			EventType:     "validation.created",
			AggregateType: "validation",
			AggregateID:   v.ID,
			Actor:         actor,
			CorrelationID: requestcontext.TraceID(ctx),
			Payload: map[string]any{
				"schema_version": 1,
				"claim_id":       v.ClaimID,
				"source_id":      v.SourceID,
				"outcome":        v.Outcome,
				"confidence":     v.Confidence,
			},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create validation: %w", err)
	}
	return v, nil
}

// GetClaim returns the claim or a not-found error.
func (s *Service) GetClaim(ctx context.Context, claimID string) (*models.Claim, error) {
	return s.getClaim(ctx, claimID)
}

// GetClaimWithValidations returns the claim and up to limit validations,
// newest first. A limit of zero or less returns all validations.
func (s *Service) GetClaimWithValidations(ctx context.Context, claimID string, limit int) (*models.Claim, []*models.Validation, error) {
	claim, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, nil, err
	}
	validations, err := s.store.ListValidations(ctx, claimID, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("list validations for claim %s: %w", claimID, err)
	}
	return claim, validations, nil
}

// ListValidations returns every validation for a claim, newest first. The
// claim's existence is not checked.
func (s *Service) ListValidations(ctx context.Context, claimID string) ([]*models.Validation, error) {
	if uuid.Validate(claimID) != nil {
		return nil, nil
	}
	return s.store.ListValidations(ctx, claimID, 0)
}

func (s *Service) getClaim(ctx context.Context, claimID string) (*models.Claim, error) {
	if uuid.Validate(claimID) != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	claim, err := s.store.GetClaim(ctx, claimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get claim %s: %w", claimID, err)
	}
	return claim, nil
}
