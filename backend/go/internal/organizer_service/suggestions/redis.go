package suggestions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "file-organizer:suggestion:"

// redisAPI is the subset of *redis.Client the store uses.
type redisAPI interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps records as JSON strings with a TTL.
type RedisStore struct {
	rdb redisAPI
	ttl time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb redisAPI, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode suggestion: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+key(rec.Target, rec.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store suggestion: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, target Target, id string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+key(target, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load suggestion: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode suggestion: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, target Target, id string) (bool, error) {
	n, err := s.rdb.Del(ctx, redisKeyPrefix+key(target, id)).Result()
	if err != nil {
		return false, fmt.Errorf("delete suggestion: %w", err)
	}
	return n > 0, nil
}
