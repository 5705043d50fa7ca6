// Package service screens entity names against sanctions reference lists
// and records each screening as a claim with its ledger trail.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	claimsmodels "mic/internal/claims/models"
	"mic/internal/ledger"
	"mic/internal/sanctions/models"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/requestcontext"
)

// ClaimCreator records the screening claim and its claim.created event.
type ClaimCreator interface {
	CreateClaim(ctx context.Context, req claimsmodels.CreateClaimRequest) (*claimsmodels.Claim, string, error)
}

// EventAppender records ledger events in the caller's transaction.
type EventAppender interface {
	Append(ctx context.Context, in ledger.AppendInput) (string, error)
}

type Screener struct {
	lists  Lists
	claims ClaimCreator
	events EventAppender
	logger *slog.Logger
}

func NewScreener(lists Lists, claims ClaimCreator, events EventAppender, logger *slog.Logger) *Screener {
	return &Screener{lists: lists, claims: claims, events: events, logger: logger}
}

// Screen searches both lists and records the outcome. It must run inside the
// caller's transaction; it returns the result and the claim.screened event id.
// A list lookup failure records nothing.
func (s *Screener) Screen(ctx context.Context, req models.ScreenRequest) (*models.Result, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}
	actor, ok := requestcontext.ActorFrom(ctx)
	if !ok {
		return nil, "", dErrors.New(dErrors.CodeUnauthorized, "actor identity is required")
	}
	name := strings.TrimSpace(req.EntityName)

	var ofac, bis []models.Match
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ofac, err = s.lists.SearchOFAC(gctx, name, models.MaxMatchesPerList)
		return err
	})
	g.Go(func() error {
		var err error
		bis, err = s.lists.SearchBIS(gctx, name, models.MaxMatchesPerList)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "sanctions list lookup failed",
			"trace_id", requestcontext.TraceID(ctx),
			"error", err,
		)
		return nil, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "sanctions lists are unavailable")
	}

	matches := make([]models.Match, 0, len(ofac)+len(bis))
	matches = append(matches, ofac...)
	matches = append(matches, bis...)
	for i := range matches {
		if matches[i].Programs == nil {
			matches[i].Programs = []string{}
		}
	}

	claim, _, err := s.claims.CreateClaim(ctx, claimsmodels.CreateClaimRequest{
		Content: "Sanctions screening: " + name,
	})
	if err != nil {
		return nil, "", err
	}
	result := &models.Result{
		ClaimID:    claim.ID,
		Entity:     name,
		Matched:    len(matches) > 0,
		Matches:    matches,
		Detail:     detail(matches),
		VerifiedAt: requestcontext.Now(ctx).UTC().Truncate(time.Microsecond),
		Source:     models.Source,
	}

	eventID, err := s.events.Append(ctx, ledger.AppendInput{
		EventType:     "claim.screened",
		AggregateType: "claim",
		AggregateID:   claim.ID,
		Actor:         actor,
		CorrelationID: requestcontext.TraceID(ctx),
		Payload: map[string]any{
			"schema_version": 1,
			"entity":         name,
			"matched":        result.Matched,
			"match_count":    len(matches),
			"detail":         result.Detail,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("record screening: %w", err)
	}
	return result, eventID, nil
}

func detail(matches []models.Match) string {
	if len(matches) == 0 {
		return "No match found on OFAC SDN or BIS DPL lists"
	}
	hit := matches[0]
	d := fmt.Sprintf("MATCH FOUND on %s: %s", hit.List, hit.Name)
	if hit.EntityType != "" {
		d += " | Type: " + hit.EntityType
	}
	if len(hit.Programs) > 0 {
		d += " | Programs: " + strings.Join(hit.Programs, ", ")
	}
	return d
}
