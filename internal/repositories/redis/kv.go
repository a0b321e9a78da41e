// Package redis stores key-value records in Redis.
package redis

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/SAP-F-2025/screening-service/internal/repositories"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// KV keeps every key under a namespace so the service can share a Redis database.
type KV struct {
	client    *redis.Client
	namespace string
}

func NewKV(client *redis.Client, namespace string) *KV {
	return &KV{client: client, namespace: namespace}
}

func (r *KV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.namespace+key, value, 0).Err()
}

func (r *KV) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	return r.client.SetNX(ctx, r.namespace+key, value, 0).Result()
}

func (r *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	iter := r.client.Scan(ctx, 0, r.namespace+prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}
