package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	claimsmodels "mic/internal/claims/models"
	claimsservice "mic/internal/claims/service"
	claimstore "mic/internal/claims/store"
	"mic/internal/ledger"
	ledgerstore "mic/internal/ledger/store"
	"mic/internal/platform/logger"
	sourcesmodels "mic/internal/sources/models"
	sourcestore "mic/internal/sources/store"
	"mic/internal/verdict/models"
	"mic/internal/verdict/service"
	verdictstore "mic/internal/verdict/store"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/platform/tx"
	"mic/pkg/requestcontext"
)

type VerdictServiceSuite struct {
	suite.Suite
	ctx     context.Context
	claims  *claimsservice.Service
	sources *sourcestore.InMemoryStore
	ledger  *ledger.Writer
	service *service.Service
}

func TestVerdictServiceSuite(t *testing.T) {
	suite.Run(t, new(VerdictServiceSuite))
}

func (s *VerdictServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithActor(context.Background(), requestcontext.Actor{Type: "service", ID: "scorer"})
	s.ctx = requestcontext.WithTime(s.ctx, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	runner := tx.NewMemoryRunner()
	s.ledger = ledger.NewWriter(ledgerstore.NewInMemoryStore(), nil)
	s.claims = claimsservice.New(claimstore.NewInMemoryStore(), s.ledger, runner, logger.Discard())
	s.sources = sourcestore.NewInMemoryStore()
	s.service = service.New(verdictstore.NewInMemoryStore(), s.claims, s.sources, s.ledger, runner, nil, logger.Discard())

	for id, tier := range map[string]string{
		"reuters": "primary",
		"blog":    sourcesmodels.TierUnclassified,
	} {
		s.Require().NoError(s.sources.Upsert(s.ctx, &sourcesmodels.Source{ID: id, AuthorityTier: tier}))
	}
}

func (s *VerdictServiceSuite) claim() string {
	c, _, err := s.claims.CreateClaim(s.ctx, claimsmodels.CreateClaimRequest{Content: "claim"})
	s.Require().NoError(err)
	return c.ID
}

func (s *VerdictServiceSuite) validate(claimID, source, outcome string, confidence float64) string {
	v, err := s.claims.CreateValidation(s.ctx, claimsmodels.CreateValidationRequest{
		ClaimID: claimID, SourceID: source, Outcome: outcome, Confidence: &confidence,
	})
	s.Require().NoError(err)
	return v.ID
}

func (s *VerdictServiceSuite) TestComputeWithoutValidations() {
	claimID := s.claim()
	v, err := s.service.Compute(s.ctx, claimID)
	s.Require().NoError(err)
	s.Equal(models.StatusInsufficientEvidence, v.Status)
	s.Equal(0.5, v.Score)
	s.Empty(v.ValidationIDs)
	s.Zero(v.ValidationCountTotal)
}

func (s *VerdictServiceSuite) TestComputeZeroConfidencePairsAreDisputed() {
	claimID := s.claim()
	v1 := s.validate(claimID, "reuters", "supports", 0)
	v2 := s.validate(claimID, "reuters", "refutes", 0)

	v, err := s.service.Compute(s.ctx, claimID)
	s.Require().NoError(err)
	s.Equal(models.StatusDisputed, v.Status)
	s.Equal(0.5, v.Score)
	s.Equal(2, v.ValidationCountScored)
	s.ElementsMatch([]string{v1, v2}, v.ValidationIDs)
}

func (s *VerdictServiceSuite) TestComputeScoresClassifiedValidations() {
	claimID := s.claim()
	v1 := s.validate(claimID, "reuters", "supports", 0.9)
	v2 := s.validate(claimID, "reuters", "refutes", 0.1)
	s.validate(claimID, "blog", "refutes", 1.0)
	s.validate(claimID, "unknown-source", "refutes", 1.0)
	s.validate(claimID, "reuters", "inconclusive", 0.5)

	v, err := s.service.Compute(s.ctx, claimID)
	s.Require().NoError(err)
	s.Equal(models.StatusSupported, v.Status)
	s.InDelta(0.9, v.Score, 1e-9)
	s.Equal(5, v.ValidationCountTotal)
	s.Equal(3, v.ValidationCountScored)
	s.ElementsMatch([]string{v1, v2}, v.ValidationIDs)

	events, err := s.ledger.List(s.ctx, "verdict", v.ID, nil, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("verdict.computed", events[0].EventType)
}

func (s *VerdictServiceSuite) TestSnapshotIsFrozen() {
	claimID := s.claim()
	first := s.validate(claimID, "reuters", "supports", 0.4)
	s.validate(claimID, "reuters", "refutes", 0.6)

	before, err := s.service.Compute(s.ctx, claimID)
	s.Require().NoError(err)
	s.Equal(models.StatusDisputed, before.Status)

	later := requestcontext.WithTime(s.ctx, time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC))
	s.validate(claimID, "reuters", "supports", 1.0)
	after, err := s.service.Compute(later, claimID)
	s.Require().NoError(err)
	s.NotEqual(before.ID, after.ID)
	s.Len(after.ValidationIDs, 3)

	list, err := s.service.List(s.ctx, claimID, 10)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(after.ID, list[0].ID)
	s.Equal(before.ID, list[1].ID)
	s.Len(list[1].ValidationIDs, 2)
	s.Contains(list[1].ValidationIDs, first)

	latest, err := s.service.Latest(s.ctx, claimID)
	s.Require().NoError(err)
	s.Equal(after.ID, latest.ID)
}

func (s *VerdictServiceSuite) TestRecomputeIsStable() {
	claimID := s.claim()
	s.validate(claimID, "reuters", "supports", 0.4)
	s.validate(claimID, "reuters", "refutes", 0.6)

	a, err := s.service.Compute(s.ctx, claimID)
	s.Require().NoError(err)
	b, err := s.service.Compute(s.ctx, claimID)
	s.Require().NoError(err)
	s.Equal(a.Status, b.Status)
	s.Equal(a.Score, b.Score)
	s.Equal(a.ValidationIDs, b.ValidationIDs)
	s.NotEqual(a.ID, b.ID)
}

func (s *VerdictServiceSuite) TestUnknownClaim() {
	missing := "8f7d1c2e-5b6a-4c3d-9e8f-1a2b3c4d5e6f"

	_, err := s.service.Compute(s.ctx, missing)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	_, err = s.service.Latest(s.ctx, missing)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	s.NotErrorIs(err, service.ErrNoVerdict)
}

func (s *VerdictServiceSuite) TestLatestWithoutVerdict() {
	claimID := s.claim()
	_, err := s.service.Latest(s.ctx, claimID)
	s.ErrorIs(err, service.ErrNoVerdict)
}

func (s *VerdictServiceSuite) TestComputeRequiresActor() {
	claimID := s.claim()
	_, err := s.service.Compute(context.Background(), claimID)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}
