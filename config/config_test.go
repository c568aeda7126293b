package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/creastat/wallet/kv"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"WALLET_PROVIDER_URL", "WALLET_STORE", "WALLET_DATA_DIR", "WALLET_STORE_PATH",
		"WALLET_KEY_PREFIX", "REDIS_URL", "REDIS_TTL", "SUPABASE_URL", "SUPABASE_KEY",
		"SUPABASE_TABLE", "PORT", "DEV_MODE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("WALLET_DATA_DIR", "/tmp/walletd")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store != kv.StoreTypeFile {
		t.Errorf("Store = %q, want file", cfg.Store)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if got := cfg.FileStorePath(); got != filepath.Join("/tmp/walletd", "storage.json") {
		t.Errorf("FileStorePath = %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WALLET_DATA_DIR", "/data")
	t.Setenv("WALLET_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_TTL", "90m")
	t.Setenv("PORT", "9090")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store != kv.StoreTypeRedis || cfg.RedisTTL != 90*time.Minute || cfg.Addr != ":9090" || !cfg.DevMode {
		t.Fatalf("cfg = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoad_BadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("WALLET_DATA_DIR", "/data")
	t.Setenv("REDIS_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad REDIS_TTL")
	}

	t.Setenv("REDIS_TTL", "")
	t.Setenv("DEV_MODE", "maybe")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad DEV_MODE")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "memory", cfg: Config{Store: kv.StoreTypeMemory}},
		{name: "redis without url", cfg: Config{Store: kv.StoreTypeRedis}, wantErr: kv.ErrInvalidConfig},
		{name: "supabase without key", cfg: Config{Store: StoreTypeSupabase, SupabaseURL: "http://x"}, wantErr: kv.ErrInvalidConfig},
		{name: "supabase", cfg: Config{Store: StoreTypeSupabase, SupabaseURL: "http://x", SupabaseKey: "k"}},
		{name: "file without dirs", cfg: Config{Store: kv.StoreTypeFile}, wantErr: kv.ErrInvalidConfig},
		{name: "unknown", cfg: Config{Store: "etcd"}, wantErr: kv.ErrInvalidStoreType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
