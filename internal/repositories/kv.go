package repositories

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Key prefixes of the stored records.
const (
	HistoryKeyPrefix = "history:"
	ScoreKeyPrefix   = "scores:"
)

// KVStore is the persistent key-value store behind history and score snapshots.
type KVStore interface {
	// Get returns ErrNotFound when the key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetIfAbsent writes only when key does not exist yet and reports whether it wrote
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	// Keys lists the stored keys starting with prefix
	Keys(ctx context.Context, prefix string) ([]string, error)
}
