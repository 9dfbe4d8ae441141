package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/scrapekit/pkg/ratelimiter"
)

func TestRedisStoreUnavailable(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	l, err := ratelimiter.NewFixedWindow(ratelimiter.NewRedisStore(client), ratelimiter.Config{Limit: 1, Window: time.Minute})
	require.NoError(t, err)

	_, err = l.Allow(context.Background(), "u")
	assert.ErrorIs(t, err, ratelimiter.ErrStoreUnavailable)
	assert.Error(t, l.Reset(context.Background(), "u"))
}

func TestNewRedisStorePanicsWithoutClient(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { ratelimiter.NewRedisStore(nil) })
}
