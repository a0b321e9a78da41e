package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (CacheService, string) {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { client.Close() })

	prefix := "cache-test:" + uuid.NewString() + ":"
	c := NewRedisCache(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = c.DeletePattern(context.Background(), prefix+"*") })
	return c, prefix
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c, prefix := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var got payload
	assert.ErrorIs(t, c.Get(ctx, prefix+"a", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, prefix+"a", payload{Name: "x", Count: 3}, time.Minute))
	require.NoError(t, c.Get(ctx, prefix+"a", &got))
	assert.Equal(t, payload{Name: "x", Count: 3}, got)

	require.NoError(t, c.Delete(ctx, prefix+"a"))
	assert.ErrorIs(t, c.Get(ctx, prefix+"a", &got), ErrCacheMiss)
}

func TestRedisCache_DeletePattern(t *testing.T) {
	c, prefix := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, prefix+"q:en", 1, time.Minute))
	require.NoError(t, c.Set(ctx, prefix+"q:hi", 2, time.Minute))
	require.NoError(t, c.Set(ctx, prefix+"other", 3, time.Minute))

	require.NoError(t, c.DeletePattern(ctx, prefix+"q:*"))

	var v int
	assert.ErrorIs(t, c.Get(ctx, prefix+"q:en", &v), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, prefix+"q:hi", &v), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, prefix+"other", &v))
	assert.Equal(t, 3, v)
}
