package supabase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/creastat/wallet/kv"
	"github.com/supabase-community/supabase-go"
)

// Config holds Supabase connection configuration
type Config struct {
	URL      string
	APIKey   string
	Table    string        // Default: DefaultTable
	CacheTTL time.Duration // Default: 5 minutes
}

// Client implements kv.Store using a Supabase table
type Client struct {
	client   *supabase.Client
	table    string
	cache    *cache
	cacheTTL time.Duration
}

// cache provides thread-safe caching of recently read or written values
type cache struct {
	mu     sync.RWMutex
	byKey  map[string]*cacheEntry
	closed bool
}

type cacheEntry struct {
	value     string
	present   bool
	expiresAt time.Time
}

// New creates a new Supabase-backed store
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required: %w", kv.ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required: %w", kv.ErrInvalidConfig)
	}

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{
		client:   client,
		table:    cfg.Table,
		cacheTTL: cfg.CacheTTL,
		cache:    &cache{byKey: make(map[string]*cacheEntry)},
	}, nil
}

// Get retrieves a value by key
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	if c.cache.isClosed() {
		return "", false, kv.ErrClosed
	}

	// Check cache first
	if e := c.cache.get(key); e != nil {
		return e.value, e.present, nil
	}

	var rows []Row
	_, err := c.client.From(c.table).
		Select("*", "", false).
		Eq("key", key).
		ExecuteTo(&rows)

	if err != nil {
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}

	if len(rows) == 0 {
		c.cache.put(key, "", false, c.cacheTTL)
		return "", false, nil
	}

	c.cache.put(key, rows[0].Value, true, c.cacheTTL)
	return rows[0].Value, true, nil
}

// Set upserts a value by key
func (c *Client) Set(ctx context.Context, key, value string) error {
	if c.cache.isClosed() {
		return kv.ErrClosed
	}

	row := Row{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, _, err := c.client.From(c.table).
		Upsert(row, "key", "minimal", "").
		Execute()

	if err != nil {
		c.cache.drop(key)
		return fmt.Errorf("failed to set %q: %w", key, err)
	}

	c.cache.put(key, value, true, c.cacheTTL)
	return nil
}

// Delete removes the given keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if c.cache.isClosed() {
		return kv.ErrClosed
	}
	if len(keys) == 0 {
		return nil
	}

	_, _, err := c.client.From(c.table).
		Delete("minimal", "").
		In("key", keys).
		Execute()

	for _, k := range keys {
		c.cache.drop(k)
	}

	if err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Close drops the cache. The Supabase client itself doesn't require explicit close
func (c *Client) Close() error {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()

	c.cache.closed = true
	c.cache.byKey = nil
	return nil
}

func (c *cache) get(key string) *cacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.byKey[key]; ok {
		if time.Now().Before(e.expiresAt) {
			return e
		}
	}
	return nil
}

func (c *cache) put(key, value string, present bool, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.byKey[key] = &cacheEntry{
		value:     value,
		present:   present,
		expiresAt: time.Now().Add(ttl),
	}
}

func (c *cache) drop(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.byKey, key)
}

func (c *cache) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Compile-time check that Client implements kv.Store
var _ kv.Store = (*Client)(nil)
