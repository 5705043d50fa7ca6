//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mic/internal/ledger"
	"mic/internal/ledger/models"
	"mic/internal/ledger/store"
	"mic/pkg/platform/tx"
	"mic/pkg/requestcontext"
	"mic/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	writer   *ledger.Writer
	runner   *tx.SQLRunner
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.writer = ledger.NewWriter(s.store, nil)
	s.runner = tx.NewSQLRunner(s.postgres.DB, 5*time.Second)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "event_outbox", "events")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) append(ctx context.Context, aggregateID, action string) string {
	id, err := s.writer.Append(ctx, ledger.AppendInput{
		EventType:     "claim." + action,
		AggregateType: "claim",
		AggregateID:   aggregateID,
		Actor:         requestcontext.Actor{Type: "user", ID: "alice"},
		Payload:       map[string]any{"schema_version": 1},
	})
	s.Require().NoError(err)
	return id
}

// TestSameTimestampEventsKeepAppendOrder verifies the event_id tie-break for
// events stamped with one request time.
func (s *PostgresStoreSuite) TestSameTimestampEventsKeepAppendOrder() {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	var appended []string
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		for _, action := range []string{"created", "screened", "annotated"} {
			appended = append(appended, s.append(ctx, "agg-1", action))
		}
		return nil
	})
	s.Require().NoError(err)
	s.append(ctx, "agg-2", "created")

	events, err := s.writer.List(ctx, "claim", "agg-1", nil, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	for i, ev := range events {
		s.Equal(appended[i], ev.EventID)
		s.True(ev.CreatedAt.Equal(events[0].CreatedAt))
	}

	cursor := models.CursorAfter(events[0])
	rest, err := s.writer.List(ctx, "claim", "agg-1", &cursor, 10)
	s.Require().NoError(err)
	s.Require().Len(rest, 2)
	s.Equal(appended[1], rest[0].EventID)
}

func (s *PostgresStoreSuite) TestRolledBackAppendLeavesNoOutboxRow() {
	ctx := requestcontext.WithTime(context.Background(), time.Now().UTC())
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		s.append(ctx, "agg-3", "created")
		return context.Canceled
	})
	s.Require().ErrorIs(err, context.Canceled)

	var events, outbox int
	s.Require().NoError(s.postgres.DB.QueryRow("SELECT count(*) FROM events").Scan(&events))
	s.Require().NoError(s.postgres.DB.QueryRow("SELECT count(*) FROM event_outbox").Scan(&outbox))
	s.Zero(events)
	s.Zero(outbox)
}

// TestClaimUnpublishedSkipsLockedRows verifies that two relays never claim
// the same outbox row.
func (s *PostgresStoreSuite) TestClaimUnpublishedSkipsLockedRows() {
	ctx := requestcontext.WithTime(context.Background(), time.Now().UTC())
	for _, action := range []string{"created", "screened"} {
		s.append(ctx, "agg-4", action)
	}

	first := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.runner.RunInTx(ctx, func(ctx context.Context) error {
			claimed, err := s.store.ClaimUnpublished(ctx, 1)
			if err != nil {
				return err
			}
			s.Len(claimed, 1)
			close(first)
			<-release
			return nil
		})
	}()
	<-first

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		claimed, err := s.store.ClaimUnpublished(ctx, 10)
		if err != nil {
			return err
		}
		s.Len(claimed, 1, "the row locked by the other relay is skipped")
		return s.store.MarkPublished(ctx, []string{claimed[0].EventID}, time.Now().UTC())
	})
	s.Require().NoError(err)
	close(release)
	s.Require().NoError(<-done)

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		claimed, err := s.store.ClaimUnpublished(ctx, 10)
		s.Len(claimed, 1)
		return err
	})
	s.Require().NoError(err)
}
