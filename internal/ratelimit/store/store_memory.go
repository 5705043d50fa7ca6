package store

import (
	"context"
	"sync"
	"time"

	"mic/internal/ratelimit/models"
	"mic/pkg/requestcontext"
)

// InMemoryLimiter is a single-process fixed-window limiter for tests and
// local runs without Redis.
type InMemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Time
	counts map[string]int64
	now    func() time.Time
}

func NewInMemoryLimiter(limit int) *InMemoryLimiter {
	return &InMemoryLimiter{limit: limit, counts: make(map[string]int64), now: time.Now}
}

func (l *InMemoryLimiter) Allow(_ context.Context, actor requestcontext.Actor) (*models.Result, error) {
	now := l.now()
	start := models.WindowStart(now)
	key := models.PostKey(actor, start)

	l.mu.Lock()
	defer l.mu.Unlock()
	if !start.Equal(l.window) {
		l.window = start
		l.counts = make(map[string]int64)
	}
	l.counts[key]++
	return models.Decide(l.counts[key], l.limit, start, now), nil
}

// NoopLimiter allows every request without counting. It stands in when no
// counter store is configured.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, requestcontext.Actor) (*models.Result, error) {
	return &models.Result{Allowed: true}, nil
}
