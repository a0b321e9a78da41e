package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KVPostgreSQL struct {
	db *gorm.DB
}

func NewKVPostgreSQL(db *gorm.DB) repositories.KVStore {
	return &KVPostgreSQL{db: db}
}

func (k KVPostgreSQL) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.KVEntry
	if err := k.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return []byte(entry.Value), nil
}

func (k KVPostgreSQL) Set(ctx context.Context, key string, value []byte) error {
	entry := models.KVEntry{Key: key, Value: datatypes.JSON(value)}
	return k.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
}

func (k KVPostgreSQL) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	entry := models.KVEntry{Key: key, Value: datatypes.JSON(value)}
	result := k.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (k KVPostgreSQL) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	if err := k.db.WithContext(ctx).
		Model(&models.KVEntry{}).
		Where("key LIKE ?", escapeLike(prefix)+"%").
		Order("key ASC").
		Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
