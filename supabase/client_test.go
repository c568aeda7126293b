package supabase

import (
	"errors"
	"testing"
	"time"

	"github.com/creastat/wallet/kv"
)

func TestNew_RequiresURLAndKey(t *testing.T) {
	if _, err := New(Config{APIKey: "k"}); !errors.Is(err, kv.ErrInvalidConfig) {
		t.Fatalf("missing URL: err = %v, want ErrInvalidConfig", err)
	}
	if _, err := New(Config{URL: "http://localhost:54321"}); !errors.Is(err, kv.ErrInvalidConfig) {
		t.Fatalf("missing key: err = %v, want ErrInvalidConfig", err)
	}
}

func TestCache_Expiry(t *testing.T) {
	c := &cache{byKey: make(map[string]*cacheEntry)}

	c.put("account", "0xabc", true, time.Hour)
	if e := c.get("account"); e == nil || e.value != "0xabc" || !e.present {
		t.Fatalf("get = %+v, want cached 0xabc", e)
	}

	c.put("gone", "", false, -time.Second)
	if e := c.get("gone"); e != nil {
		t.Fatalf("expired entry returned: %+v", e)
	}

	c.drop("account")
	if e := c.get("account"); e != nil {
		t.Fatalf("dropped entry returned: %+v", e)
	}
}

func TestCache_ClosedIgnoresPut(t *testing.T) {
	c := &cache{byKey: make(map[string]*cacheEntry)}
	c.closed = true
	c.byKey = nil

	c.put("k", "v", true, time.Hour)
	if c.get("k") != nil {
		t.Fatal("closed cache stored a value")
	}
	if !c.isClosed() {
		t.Fatal("isClosed = false")
	}
}
