package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mic/pkg/platform/sentinel"
	"mic/pkg/requestcontext"
)

func TestRedisLimiterUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, 2)
	res, err := l.Allow(context.Background(), requestcontext.Actor{Type: "user", ID: "alice"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Nil(t, res)
}
