package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mic/internal/ratelimit/models"
	"mic/pkg/platform/sentinel"
	"mic/pkg/requestcontext"
)

// RedisLimiter counts writes per actor in fixed one-minute windows. INCR and
// EXPIRE are sent in one pipeline so a counter never lives without a TTL.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int
	now    func() time.Time
}

func NewRedisLimiter(client redis.Cmdable, limit int) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, now: time.Now}
}

// WithClock overrides the time source (tests).
func (l *RedisLimiter) WithClock(now func() time.Time) *RedisLimiter {
	l.now = now
	return l
}

func (l *RedisLimiter) Allow(ctx context.Context, actor requestcontext.Actor) (*models.Result, error) {
	now := l.now()
	start := models.WindowStart(now)
	key := models.PostKey(actor, start)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, models.KeyTTL)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count writes for %s: %w: %w", actor, sentinel.ErrUnavailable, err)
	}
	return models.Decide(incr.Val(), l.limit, start, now), nil
}
