package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// exerciseStore runs the behaviour every driver must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := s.Set(ctx, "account", "0xabc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "connected", "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := s.Get(ctx, "account")
	if err != nil || !ok || got != "0xabc" {
		t.Fatalf("Get(account) = %q ok=%v err=%v", got, ok, err)
	}

	if err := s.Set(ctx, "account", "0xdef"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got, _, _ := s.Get(ctx, "account"); got != "0xdef" {
		t.Fatalf("Get after overwrite = %q, want 0xdef", got)
	}

	if err := s.Delete(ctx, "account", "connected", "never-set"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, k := range []string{"account", "connected"} {
		if _, ok, _ := s.Get(ctx, k); ok {
			t.Fatalf("key %q still present after Delete", k)
		}
	}

	if err := s.Delete(ctx); err != nil {
		t.Fatalf("Delete with no keys: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Set(context.Background(), "k", "v"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Set after Close = %v, want ErrClosed", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	exerciseStore(t, s)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s.Set(ctx, "chainlocker_account", "0xabc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = s.Close()

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok, err := reopened.Get(ctx, "chainlocker_account")
	if err != nil || !ok || got != "0xabc" {
		t.Fatalf("Get after reopen = %q ok=%v err=%v", got, ok, err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := NewRedisStore(client, "test:", 0)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestRedisStore_PrefixAndTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := NewRedisStore(client, "", time.Hour)
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Set(ctx, "account", "0xabc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("wallet:account") {
		t.Fatal("expected key under default prefix")
	}
	if ttl := mr.TTL("wallet:account"); ttl != time.Hour {
		t.Fatalf("TTL = %v, want 1h", ttl)
	}

	mr.FastForward(30 * time.Minute)
	if _, ok, err := s.Get(ctx, "account"); err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if ttl := mr.TTL("wallet:account"); ttl != time.Hour {
		t.Fatalf("TTL after read = %v, want refreshed to 1h", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok, _ := s.Get(ctx, "account"); ok {
		t.Fatal("expected key to expire")
	}
}

func TestNewStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name      string
		storeType StoreType
		opts      []StoreOption
		wantErr   error
	}{
		{name: "memory", storeType: StoreTypeMemory},
		{name: "file", storeType: StoreTypeFile, opts: []StoreOption{WithFilePath(filepath.Join(t.TempDir(), "s.json"))}},
		{name: "file without path", storeType: StoreTypeFile, wantErr: ErrInvalidConfig},
		{name: "redis", storeType: StoreTypeRedis, opts: []StoreOption{
			WithRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
			WithRedisPrefix("x:"),
			WithRedisTTL(time.Minute),
		}},
		{name: "redis without client", storeType: StoreTypeRedis, wantErr: ErrInvalidConfig},
		{name: "unknown", storeType: "etcd", wantErr: ErrInvalidStoreType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(tt.storeType, tt.opts...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
		})
	}
}
