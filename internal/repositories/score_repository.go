package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SAP-F-2025/screening-service/internal/models"
)

// ScoreRepository persists the per-question score snapshot of each session
type ScoreRepository interface {
	Save(ctx context.Context, snapshot models.ScoreSnapshot) error
	// Get returns ErrNotFound for an unknown session
	Get(ctx context.Context, sessionID string) (*models.ScoreSnapshot, error)
}

type kvScoreRepository struct {
	kv KVStore
}

func NewScoreRepository(kv KVStore) ScoreRepository {
	return &kvScoreRepository{kv: kv}
}

func (r *kvScoreRepository) Save(ctx context.Context, snapshot models.ScoreSnapshot) error {
	value, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode score snapshot: %w", err)
	}
	return r.kv.Set(ctx, ScoreKeyPrefix+snapshot.SessionID, value)
}

func (r *kvScoreRepository) Get(ctx context.Context, sessionID string) (*models.ScoreSnapshot, error) {
	value, err := r.kv.Get(ctx, ScoreKeyPrefix+sessionID)
	if err != nil {
		return nil, err
	}

	var snapshot models.ScoreSnapshot
	if err := json.Unmarshal(value, &snapshot); err != nil {
		return nil, fmt.Errorf("decode score snapshot: %w", err)
	}
	return &snapshot, nil
}
