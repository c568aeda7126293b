// Package config loads walletd settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/creastat/wallet/kv"
)

// StoreTypeSupabase selects the Supabase-backed store.
const StoreTypeSupabase kv.StoreType = "supabase"

// Config holds walletd settings.
type Config struct {
	// ProviderURL is the wallet bridge WebSocket URL. Empty means no wallet is installed.
	ProviderURL string

	// Store selects the durable store: memory, file, redis or supabase.
	Store kv.StoreType

	// DataDir holds the file store and log file.
	DataDir string

	// StorePath is the file store path. Default: DataDir/storage.json.
	StorePath string

	// KeyPrefix is prepended to the session storage keys.
	KeyPrefix string

	RedisURL string
	RedisTTL time.Duration

	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string

	// Addr is the HTTP listen address.
	Addr string

	DevMode bool
}

// Load reads the configuration from the environment and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		ProviderURL:   os.Getenv("WALLET_PROVIDER_URL"),
		Store:         kv.StoreType(getenv("WALLET_STORE", string(kv.StoreTypeFile))),
		DataDir:       os.Getenv("WALLET_DATA_DIR"),
		StorePath:     os.Getenv("WALLET_STORE_PATH"),
		KeyPrefix:     os.Getenv("WALLET_KEY_PREFIX"),
		RedisURL:      os.Getenv("REDIS_URL"),
		SupabaseURL:   os.Getenv("SUPABASE_URL"),
		SupabaseKey:   os.Getenv("SUPABASE_KEY"),
		SupabaseTable: os.Getenv("SUPABASE_TABLE"),
		Addr:          ":" + getenv("PORT", "8080"),
	}

	if v := os.Getenv("REDIS_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REDIS_TTL %q: %w", v, err)
		}
		cfg.RedisTTL = ttl
	}

	if v := os.Getenv("DEV_MODE"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEV_MODE %q: %w", v, err)
		}
		cfg.DevMode = dev
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".walletd")
	}

	return cfg, nil
}

// Validate checks that the selected store has what it needs.
func (c Config) Validate() error {
	switch c.Store {
	case kv.StoreTypeMemory:
	case kv.StoreTypeFile:
		if c.StorePath == "" && c.DataDir == "" {
			return fmt.Errorf("file store needs WALLET_STORE_PATH or WALLET_DATA_DIR: %w", kv.ErrInvalidConfig)
		}
	case kv.StoreTypeRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis store needs REDIS_URL: %w", kv.ErrInvalidConfig)
		}
	case StoreTypeSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("supabase store needs SUPABASE_URL and SUPABASE_KEY: %w", kv.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %q", kv.ErrInvalidStoreType, c.Store)
	}
	return nil
}

// FileStorePath returns the file store location.
func (c Config) FileStorePath() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	return filepath.Join(c.DataDir, "storage.json")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
