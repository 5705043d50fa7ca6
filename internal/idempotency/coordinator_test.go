package idempotency_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"mic/internal/idempotency"
	"mic/internal/idempotency/models"
	"mic/internal/idempotency/store"
	"mic/internal/platform/logger"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/platform/tx"
	"mic/pkg/requestcontext"
)

type CoordinatorSuite struct {
	suite.Suite
	store *store.InMemoryStore
	coord *idempotency.Coordinator
	now   time.Time
	ctx   context.Context
	actor requestcontext.Actor
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.coord = idempotency.New(s.store, tx.NewMemoryRunner(), logger.Discard(),
		idempotency.WithPendingTTL(5*time.Minute))
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.actor = requestcontext.Actor{Type: "service", ID: "ingest"}
}

func (s *CoordinatorSuite) request(key, hash string) idempotency.Request {
	req, err := idempotency.NewRequest(s.actor, key, hash)
	s.Require().NoError(err)
	return req
}

func counting(calls *int32, body string) idempotency.Func {
	return func(ctx context.Context) (*idempotency.Response, error) {
		atomic.AddInt32(calls, 1)
		return &idempotency.Response{
			StatusCode:    http.StatusCreated,
			Body:          []byte(body),
			EventID:       "evt-1",
			AggregateType: "claim",
			AggregateID:   "claim-1",
		}, nil
	}
}

func (s *CoordinatorSuite) TestWinnerRunsMutationAndFinalizes() {
	var calls int32
	res, err := s.coord.Execute(s.ctx, s.request("k1", "h1"), counting(&calls, `{"claim_id":"claim-1"}`))

	s.Require().NoError(err)
	s.False(res.Replayed)
	s.Equal(http.StatusCreated, res.StatusCode)
	s.EqualValues(1, calls)

	rec, err := s.store.Get(s.ctx, models.Key{ActorType: "service", ActorID: "ingest", IdempotencyKey: "k1"})
	s.Require().NoError(err)
	s.True(rec.Finalized())
	s.Equal("evt-1", rec.EventID)
	s.Equal("claim", rec.AggregateType)
	s.Equal(s.now, *rec.ResponseCreatedAt)
}

func (s *CoordinatorSuite) TestReplayReturnsStoredResponseWithoutReExecuting() {
	var calls int32
	first, err := s.coord.Execute(s.ctx, s.request("k1", "h1"), counting(&calls, `{"claim_id":"claim-1"}`))
	s.Require().NoError(err)

	second, err := s.coord.Execute(s.ctx, s.request("k1", "h1"), counting(&calls, `{"claim_id":"other"}`))
	s.Require().NoError(err)

	s.True(second.Replayed)
	s.Equal(first.StatusCode, second.StatusCode)
	s.Equal(first.Body, second.Body)
	s.EqualValues(1, calls)
}

func (s *CoordinatorSuite) TestConflictOnDifferentPayload() {
	var calls int32
	_, err := s.coord.Execute(s.ctx, s.request("k1", "h1"), counting(&calls, `{}`))
	s.Require().NoError(err)

	_, err = s.coord.Execute(s.ctx, s.request("k1", "h2"), counting(&calls, `{}`))
	s.True(dErrors.HasCode(err, dErrors.CodeIdempotencyConflict))
	s.EqualValues(1, calls)
}

func (s *CoordinatorSuite) TestKeysAreScopedPerActor() {
	var calls int32
	_, err := s.coord.Execute(s.ctx, s.request("k1", "h1"), counting(&calls, `{}`))
	s.Require().NoError(err)

	other, err := idempotency.NewRequest(requestcontext.Actor{Type: "user", ID: "alice"}, "k1", "h2")
	s.Require().NoError(err)
	res, err := s.coord.Execute(s.ctx, other, counting(&calls, `{}`))
	s.Require().NoError(err)
	s.False(res.Replayed)
	s.EqualValues(2, calls)
}

func (s *CoordinatorSuite) TestInProgressWhenPendingRecordIsFresh() {
	key := models.Key{ActorType: "service", ActorID: "ingest", IdempotencyKey: "k1"}
	_, err := s.store.InsertPending(s.ctx, &models.Record{Key: key, RequestHash: "h1", CreatedAt: s.now.Add(-time.Minute)})
	s.Require().NoError(err)

	var calls int32
	_, err = s.coord.Execute(s.ctx, s.request("k1", "h1"), counting(&calls, `{}`))

	s.True(dErrors.HasCode(err, dErrors.CodeIdempotencyInProgress))
	s.EqualValues(0, calls)
}

func (s *CoordinatorSuite) TestStalePendingRecordIsTakenOver() {
	key := models.Key{ActorType: "service", ActorID: "ingest", IdempotencyKey: "k1"}
	_, err := s.store.InsertPending(s.ctx, &models.Record{Key: key, RequestHash: "h1", CreatedAt: s.now.Add(-time.Hour)})
	s.Require().NoError(err)

	var calls int32
	res, err := s.coord.Execute(s.ctx, s.request("k1", "h1"), counting(&calls, `{"ok":true}`))

	s.Require().NoError(err)
	s.False(res.Replayed)
	s.EqualValues(1, calls)
}

func (s *CoordinatorSuite) TestStalePendingRecordWithDifferentPayloadConflicts() {
	key := models.Key{ActorType: "service", ActorID: "ingest", IdempotencyKey: "k1"}
	_, err := s.store.InsertPending(s.ctx, &models.Record{Key: key, RequestHash: "h1", CreatedAt: s.now.Add(-time.Hour)})
	s.Require().NoError(err)

	var calls int32
	_, err = s.coord.Execute(s.ctx, s.request("k1", "h2"), counting(&calls, `{}`))
	s.True(dErrors.HasCode(err, dErrors.CodeIdempotencyConflict))
}

func (s *CoordinatorSuite) TestFailedMutationReleasesTheSlot() {
	failing := func(ctx context.Context) (*idempotency.Response, error) {
		return nil, errors.New("insert claim: connection reset")
	}
	_, err := s.coord.Execute(s.ctx, s.request("k1", "h1"), failing)
	s.Require().Error(err)

	var calls int32
	res, err := s.coord.Execute(s.ctx, s.request("k1", "h1"), counting(&calls, `{}`))
	s.Require().NoError(err)
	s.False(res.Replayed)
	s.EqualValues(1, calls)
}

func (s *CoordinatorSuite) TestFinalizeRejectsEmptyResponse() {
	empty := func(ctx context.Context) (*idempotency.Response, error) {
		return &idempotency.Response{StatusCode: http.StatusCreated}, nil
	}
	_, err := s.coord.Execute(s.ctx, s.request("k1", "h1"), empty)
	s.Require().Error(err)

	_, err = s.store.Get(s.ctx, models.Key{ActorType: "service", ActorID: "ingest", IdempotencyKey: "k1"})
	s.Error(err, "pending record must not survive a failed finalize")
}

func (s *CoordinatorSuite) TestConcurrentDuplicatesProduceOneWinner() {
	const attempts = 50
	var calls int32
	var replays int32
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.coord.Execute(s.ctx, s.request("k1", "h1"), counting(&calls, `{"claim_id":"claim-1"}`))
			if err == nil && res.Replayed {
				atomic.AddInt32(&replays, 1)
			}
		}()
	}
	wg.Wait()

	s.EqualValues(1, calls)
	s.EqualValues(attempts-1, replays)
}

func TestNewRequest(t *testing.T) {
	actor := requestcontext.Actor{Type: "service", ID: "ingest"}

	t.Run("missing key is a bad request", func(t *testing.T) {
		_, err := idempotency.NewRequest(actor, "", "h")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("missing actor is unauthorized", func(t *testing.T) {
		_, err := idempotency.NewRequest(requestcontext.Actor{}, "k", "h")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("oversized key", func(t *testing.T) {
		long := make([]byte, idempotency.MaxKeyLength+1)
		for i := range long {
			long[i] = 'k'
		}
		_, err := idempotency.NewRequest(actor, string(long), "h")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("valid", func(t *testing.T) {
		req, err := idempotency.NewRequest(actor, "k", "h")
		require.NoError(t, err)
		assert.Equal(t, "ingest", req.Key.ActorID)
		assert.Equal(t, "h", req.RequestHash)
	})
}
