package memory

import (
	"context"
	"testing"

	"github.com/SAP-F-2025/screening-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV(t *testing.T) {
	ctx := context.Background()
	kv := NewKV()

	_, err := kv.Get(ctx, "a")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	value := []byte("1")
	require.NoError(t, kv.Set(ctx, "history:2", value))
	value[0] = '9'

	got, err := kv.Get(ctx, "history:2")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	written, err := kv.SetIfAbsent(ctx, "history:2", []byte("2"))
	require.NoError(t, err)
	assert.False(t, written)

	written, err = kv.SetIfAbsent(ctx, "history:1", []byte("3"))
	require.NoError(t, err)
	assert.True(t, written)
	require.NoError(t, kv.Set(ctx, "scores:x", []byte("4")))

	keys, err := kv.Keys(ctx, "history:")
	require.NoError(t, err)
	assert.Equal(t, []string{"history:1", "history:2"}, keys)
}
