package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	claimsservice "mic/internal/claims/service"
	claimstore "mic/internal/claims/store"
	"mic/internal/ledger"
	ledgerstore "mic/internal/ledger/store"
	"mic/internal/platform/logger"
	"mic/internal/sanctions/mocks"
	"mic/internal/sanctions/models"
	"mic/internal/sanctions/service"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/platform/tx"
	"mic/pkg/requestcontext"
)

type ScreenerSuite struct {
	suite.Suite
	ctx      context.Context
	lists    *mocks.MockLists
	ledger   *ledger.Writer
	claims   *claimsservice.Service
	screener *service.Screener
}

func TestScreenerSuite(t *testing.T) {
	suite.Run(t, new(ScreenerSuite))
}

func (s *ScreenerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.lists = mocks.NewMockLists(ctrl)
	s.ctx = requestcontext.WithActor(context.Background(), requestcontext.Actor{Type: "service", ID: "kyc"})
	s.ctx = requestcontext.WithTime(s.ctx, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	runner := tx.NewMemoryRunner()
	s.ledger = ledger.NewWriter(ledgerstore.NewInMemoryStore(), nil)
	s.claims = claimsservice.New(claimstore.NewInMemoryStore(), s.ledger, runner, logger.Discard())
	s.screener = service.NewScreener(s.lists, s.claims, s.ledger, logger.Discard())
}

func (s *ScreenerSuite) TestMatchRecordsClaimAndEvents() {
	s.lists.EXPECT().SearchOFAC(gomock.Any(), "Acme Trading", models.MaxMatchesPerList).Return([]models.Match{{
		List: models.ListOFACSDN, UID: "1234", Name: "ACME TRADING", EntityType: "Entity", Programs: []string{"SDGT"},
	}}, nil)
	s.lists.EXPECT().SearchBIS(gomock.Any(), "Acme Trading", models.MaxMatchesPerList).Return(nil, nil)

	result, eventID, err := s.screener.Screen(s.ctx, models.ScreenRequest{EntityName: "  Acme Trading "})
	s.Require().NoError(err)
	s.True(result.Matched)
	s.Equal("Acme Trading", result.Entity)
	s.Require().Len(result.Matches, 1)
	s.Equal("MATCH FOUND on ofac_sdn: ACME TRADING | Type: Entity | Programs: SDGT", result.Detail)
	s.Equal(models.Source, result.Source)

	claim, err := s.claims.GetClaim(s.ctx, result.ClaimID)
	s.Require().NoError(err)
	s.Equal("Sanctions screening: Acme Trading", claim.Content)

	events, err := s.ledger.List(s.ctx, "claim", result.ClaimID, nil, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("claim.created", events[0].EventType)
	s.Equal("claim.screened", events[1].EventType)
	s.Equal(eventID, events[1].EventID)
}

func (s *ScreenerSuite) TestNoMatch() {
	s.lists.EXPECT().SearchOFAC(gomock.Any(), "Nobody", gomock.Any()).Return(nil, nil)
	s.lists.EXPECT().SearchBIS(gomock.Any(), "Nobody", gomock.Any()).Return(nil, nil)

	result, _, err := s.screener.Screen(s.ctx, models.ScreenRequest{EntityName: "Nobody"})
	s.Require().NoError(err)
	s.False(result.Matched)
	s.NotNil(result.Matches)
	s.Empty(result.Matches)
	s.Equal("No match found on OFAC SDN or BIS DPL lists", result.Detail)
}

func (s *ScreenerSuite) TestLookupFailureRecordsNothing() {
	s.lists.EXPECT().SearchOFAC(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
	s.lists.EXPECT().SearchBIS(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	_, _, err := s.screener.Screen(s.ctx, models.ScreenRequest{EntityName: "Acme"})
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

func (s *ScreenerSuite) TestRejectsBlankName() {
	_, _, err := s.screener.Screen(s.ctx, models.ScreenRequest{EntityName: " "})
	s.Require().Error(err)
	s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
}
