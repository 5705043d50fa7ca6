package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"mic/internal/claims/models"
	"mic/internal/claims/service"
	claimstore "mic/internal/claims/store"
	"mic/internal/ledger"
	ledgerstore "mic/internal/ledger/store"
	"mic/internal/platform/logger"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/platform/tx"
	"mic/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *claimstore.InMemoryStore
	ledger  *ledger.Writer
	runner  *tx.MemoryRunner
	service *service.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithActor(context.Background(), requestcontext.Actor{Type: "user", ID: "u1"})
	s.ctx = requestcontext.WithTime(s.ctx, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	s.store = claimstore.NewInMemoryStore()
	s.ledger = ledger.NewWriter(ledgerstore.NewInMemoryStore(), nil)
	s.runner = tx.NewMemoryRunner()
	s.service = service.New(s.store, s.ledger, s.runner, logger.Discard())
}

func confidence(v float64) *float64 { return &v }

func (s *ServiceSuite) createClaim(content string) *models.Claim {
	claim, _, err := s.service.CreateClaim(s.ctx, models.CreateClaimRequest{Content: content})
	s.Require().NoError(err)
	return claim
}

func (s *ServiceSuite) TestCreateClaimWritesClaimAndEvent() {
	claim, eventID, err := s.service.CreateClaim(s.ctx, models.CreateClaimRequest{Content: "the sky is blue"})
	s.Require().NoError(err)
	s.NotEmpty(claim.ID)
	s.Equal("the sky is blue", claim.Content)

	events, err := s.ledger.List(s.ctx, "claim", claim.ID, nil, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(eventID, events[0].EventID)
	s.Equal("claim.created", events[0].EventType)
	s.Equal("u1", events[0].ActorID)

	stored, err := s.service.GetClaim(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(claim, stored)
}

func (s *ServiceSuite) TestCreateClaimRejectsInvalidContent() {
	for _, content := range []string{"", "   ", strings.Repeat("x", models.MaxContentLength+1)} {
		_, _, err := s.service.CreateClaim(s.ctx, models.CreateClaimRequest{Content: content})
		s.Require().Error(err)
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
	}
}

func (s *ServiceSuite) TestCreateClaimRequiresActor() {
	_, _, err := s.service.CreateClaim(context.Background(), models.CreateClaimRequest{Content: "x"})
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestCreateClaimRollsBackWithOuterTransaction() {
	var claimID string
	boom := errors.New("finalize failed")
	err := s.runner.RunInTx(s.ctx, func(ctx context.Context) error {
		claim, _, err := s.service.CreateClaim(ctx, models.CreateClaimRequest{Content: "x"})
		if err != nil {
			return err
		}
		claimID = claim.ID
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.service.GetClaim(s.ctx, claimID)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	events, err := s.ledger.List(s.ctx, "claim", claimID, nil, 10)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *ServiceSuite) TestCreateValidation() {
	claim := s.createClaim("water boils at 100C")

	v, err := s.service.CreateValidation(s.ctx, models.CreateValidationRequest{
		ClaimID:     claim.ID,
		SourceID:    "src-1",
		Outcome:     models.OutcomeSupports,
		Confidence:  confidence(0.8),
		EvidenceRef: "https://example.org/doc",
	})
	s.Require().NoError(err)
	s.Equal(claim.ID, v.ClaimID)

	events, err := s.ledger.List(s.ctx, "validation", v.ID, nil, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("validation.created", events[0].EventType)
}

func (s *ServiceSuite) TestCreateValidationUnknownClaim() {
	for _, id := range []string{"not-a-uuid", "8f7d1c2e-5b6a-4c3d-9e8f-1a2b3c4d5e6f"} {
		_, err := s.service.CreateValidation(s.ctx, models.CreateValidationRequest{
			ClaimID: id, SourceID: "src-1", Outcome: "supports", Confidence: confidence(0.5),
		})
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err), id)
	}
}

func (s *ServiceSuite) TestCreateValidationRejectsBadConfidence() {
	claim := s.createClaim("x")
	for _, c := range []*float64{nil, confidence(-0.01), confidence(1.01)} {
		_, err := s.service.CreateValidation(s.ctx, models.CreateValidationRequest{
			ClaimID: claim.ID, SourceID: "src-1", Outcome: "supports", Confidence: c,
		})
		s.Require().Error(err)
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal(dErrors.CodeValidation, de.Code)
		s.Contains(de.Fields, "confidence")
	}
}

func (s *ServiceSuite) TestGetClaimWithValidationsNewestFirst() {
	claim := s.createClaim("x")
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 3 {
		ctx := requestcontext.WithTime(s.ctx, base.Add(time.Duration(i)*time.Minute))
		v, err := s.service.CreateValidation(ctx, models.CreateValidationRequest{
			ClaimID: claim.ID, SourceID: "src", Outcome: "inconclusive", Confidence: confidence(0.5),
		})
		s.Require().NoError(err)
		ids = append(ids, v.ID)
	}

	got, validations, err := s.service.GetClaimWithValidations(s.ctx, claim.ID, 2)
	s.Require().NoError(err)
	s.Equal(claim.ID, got.ID)
	s.Require().Len(validations, 2)
	s.Equal(ids[2], validations[0].ID)
	s.Equal(ids[1], validations[1].ID)

	_, _, err = s.service.GetClaimWithValidations(s.ctx, "8f7d1c2e-5b6a-4c3d-9e8f-1a2b3c4d5e6f", 10)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestCreateValidationRequest_Validate(t *testing.T) {
	req := models.CreateValidationRequest{
		ClaimID:     "c",
		SourceID:    "s",
		Outcome:     "disputes",
		Confidence:  confidence(0),
		EvidenceRef: strings.Repeat("r", models.MaxEvidenceRefLength+1),
	}
	err := req.Validate()
	require.Error(t, err)
	de, ok := dErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"evidence_ref": "must be at most 2048 characters"}, de.Fields)
}
