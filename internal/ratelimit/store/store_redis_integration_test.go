//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mic/internal/ratelimit/models"
	"mic/internal/ratelimit/store"
	"mic/pkg/requestcontext"
	"mic/pkg/testutil/containers"
)

type RedisLimiterSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	now   time.Time
}

func TestRedisLimiterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLimiterSuite))
}

func (s *RedisLimiterSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *RedisLimiterSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.now = time.Date(2026, 3, 1, 10, 0, 30, 0, time.UTC)
}

func (s *RedisLimiterSuite) limiter(limit int) *store.RedisLimiter {
	return store.NewRedisLimiter(s.redis.Client, limit).WithClock(func() time.Time { return s.now })
}

// TestConcurrentWritesRespectLimit verifies that INCR keeps the count exact
// under concurrent writers.
func (s *RedisLimiterSuite) TestConcurrentWritesRespectLimit() {
	ctx := context.Background()
	actor := requestcontext.Actor{Type: "service", ID: "ingest"}
	l := s.limiter(10)
	const goroutines = 40

	var wg sync.WaitGroup
	var allowed, denied atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Allow(ctx, actor)
			s.Require().NoError(err)
			if res.Allowed {
				allowed.Add(1)
			} else {
				denied.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(10), allowed.Load())
	s.Equal(int32(goroutines-10), denied.Load())
}

func (s *RedisLimiterSuite) TestCounterKeyHasTTL() {
	ctx := context.Background()
	actor := requestcontext.Actor{Type: "user", ID: "u1"}

	_, err := s.limiter(5).Allow(ctx, actor)
	s.Require().NoError(err)

	key := models.PostKey(actor, models.WindowStart(s.now))
	ttl, err := s.redis.Client.TTL(ctx, key).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Minute)
	s.LessOrEqual(ttl, models.KeyTTL)
}

func (s *RedisLimiterSuite) TestNextWindowStartsFresh() {
	ctx := context.Background()
	actor := requestcontext.Actor{Type: "user", ID: "u2"}
	l := s.limiter(1)

	res, err := l.Allow(ctx, actor)
	s.Require().NoError(err)
	s.True(res.Allowed)

	res, err = l.Allow(ctx, actor)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(30, res.RetryAfter)

	s.now = s.now.Add(time.Minute)
	res, err = l.Allow(ctx, actor)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
