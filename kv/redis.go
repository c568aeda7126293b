package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default Redis key prefix for stored values.
const defaultRedisPrefix = "wallet:"

// RedisStore implements Store using Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-based store.
// A ttl <= 0 keeps keys until they are deleted.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get implements Store.
// Refreshes TTL on every read when a TTL is configured.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	k := s.key(key)
	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if s.ttl > 0 {
		// Refresh TTL on read; a failed refresh does not fail the read.
		_ = s.client.Expire(ctx, k, s.ttl).Err()
	}

	return val, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, s.ttl).Err()
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.client.Del(ctx, full...).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// key constructs the Redis key for a store key.
func (s *RedisStore) key(k string) string {
	return s.prefix + k
}
