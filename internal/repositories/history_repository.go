package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/models"
)

// maxKeyCollisions bounds the retries when two entries share a timestamp.
const maxKeyCollisions = 1000

var ErrHistoryKeyExhausted = errors.New("no free history key")

// HistoryRepository is the append-only trend log
type HistoryRepository interface {
	Append(ctx context.Context, entry models.HistoryEntry) error
	// List returns every entry sorted by timestamp ascending
	List(ctx context.Context) ([]models.HistoryEntry, error)
}

type kvHistoryRepository struct {
	kv KVStore
}

func NewHistoryRepository(kv KVStore) HistoryRepository {
	return &kvHistoryRepository{kv: kv}
}

// Append stores entry under a key derived from its timestamp. Existing entries are never
// overwritten: a taken key is bumped by one nanosecond until a free one is found.
func (r *kvHistoryRepository) Append(ctx context.Context, entry models.HistoryEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	for i := 0; i < maxKeyCollisions; i++ {
		value, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}

		written, err := r.kv.SetIfAbsent(ctx, historyKey(entry.Timestamp), value)
		if err != nil {
			return fmt.Errorf("append history entry: %w", err)
		}
		if written {
			return nil
		}
		entry.Timestamp = entry.Timestamp.Add(time.Nanosecond)
	}

	return ErrHistoryKeyExhausted
}

func (r *kvHistoryRepository) List(ctx context.Context) ([]models.HistoryEntry, error) {
	keys, err := r.kv.Keys(ctx, HistoryKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list history keys: %w", err)
	}

	entries := make([]models.HistoryEntry, 0, len(keys))
	for _, key := range keys {
		value, err := r.kv.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read history entry %s: %w", key, err)
		}

		var entry models.HistoryEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			return nil, fmt.Errorf("decode history entry %s: %w", key, err)
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// historyKey zero-pads the timestamp so keys also sort lexically.
func historyKey(ts time.Time) string {
	return fmt.Sprintf("%s%020d", HistoryKeyPrefix, ts.UnixNano())
}
