package kv

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreOption is a functional option for configuring a store.
type StoreOption func(*storeConfig)

// storeConfig holds configuration for stores.
type storeConfig struct {
	redisClient *redis.Client
	redisTTL    time.Duration
	redisPrefix string
	filePath    string
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the TTL for Redis keys. Zero keeps keys forever.
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

// WithRedisPrefix sets the key prefix for Redis keys.
// Default: "wallet:".
func WithRedisPrefix(prefix string) StoreOption {
	return func(c *storeConfig) {
		c.redisPrefix = prefix
	}
}

// WithFilePath sets the path of the JSON file backing the file store.
func WithFilePath(path string) StoreOption {
	return func(c *storeConfig) {
		c.filePath = path
	}
}
