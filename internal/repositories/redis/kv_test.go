package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration test, runs only when TEST_REDIS_URL points at a disposable Redis.
func TestKV_Integration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_REDIS_URL not set")
	}

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	namespace := fmt.Sprintf("screening-test-%d:", time.Now().UnixNano())
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, namespace+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	})

	kv := NewKV(client, namespace)

	_, err = kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "scores:s1", []byte(`{"a":1}`)))
	got, err := kv.Get(ctx, "scores:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	written, err := kv.SetIfAbsent(ctx, "history:1", []byte(`1`))
	require.NoError(t, err)
	assert.True(t, written)
	written, err = kv.SetIfAbsent(ctx, "history:1", []byte(`2`))
	require.NoError(t, err)
	assert.False(t, written)

	keys, err := kv.Keys(ctx, "history:")
	require.NoError(t, err)
	assert.Equal(t, []string{"history:1"}, keys)
}
