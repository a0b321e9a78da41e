package models

import (
	"time"

	"gorm.io/datatypes"
)

// KVEntry is one row of the key-value table backing history and score snapshots.
type KVEntry struct {
	Key       string         `json:"key" gorm:"primaryKey;size:255"`
	Value     datatypes.JSON `json:"value" gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
