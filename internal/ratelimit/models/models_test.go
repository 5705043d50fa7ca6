package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mic/pkg/requestcontext"
)

func TestPostKey(t *testing.T) {
	start := WindowStart(time.Date(2026, 3, 1, 10, 15, 42, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC), start)

	key := PostKey(requestcontext.Actor{Type: "service", ID: "ingest"}, start)
	assert.Equal(t, "rl:post:service:ingest:29539335", key)
}

func TestDecide(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	now := start.Add(20 * time.Second)

	allowed := Decide(3, 5, start, now)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 2, allowed.Remaining)
	assert.Equal(t, start.Add(time.Minute), allowed.ResetAt)
	assert.Zero(t, allowed.RetryAfter)

	last := Decide(5, 5, start, now)
	assert.True(t, last.Allowed)
	assert.Zero(t, last.Remaining)

	over := Decide(6, 5, start, now)
	assert.False(t, over.Allowed)
	assert.Zero(t, over.Remaining)
	assert.Equal(t, 40, over.RetryAfter)
}
