package storage

import (
	"testing"
	"time"

	"cost_engine/internal/models"
)

func testConfig(provider string) *models.PricingConfig {
	return &models.PricingConfig{Provider: provider, Mode: models.PricingModeMonthlyFee, Currency: "USD"}
}

func TestConfigCacheGetSet(t *testing.T) {
	cache := NewConfigCache(4, time.Minute)

	if _, found := cache.Get("openai"); found {
		t.Fatal("empty cache reported a hit")
	}

	cache.Set("openai", testConfig("openai"))
	got, found := cache.Get("openai")
	if !found {
		t.Fatal("expected a hit after Set")
	}
	if got.Provider != "openai" {
		t.Errorf("got provider %q, want openai", got.Provider)
	}
}

func TestConfigCacheTTLExpiry(t *testing.T) {
	cache := NewConfigCache(4, 10*time.Millisecond)
	cache.Set("openai", testConfig("openai"))

	time.Sleep(30 * time.Millisecond)

	if _, found := cache.Get("openai"); found {
		t.Fatal("expired entry still served")
	}
}

func TestConfigCacheEvictsLRU(t *testing.T) {
	cache := NewConfigCache(2, time.Minute)
	cache.Set("a", testConfig("a"))
	cache.Set("b", testConfig("b"))

	// Touch "a" so "b" is the eviction candidate.
	cache.Get("a")
	cache.Set("c", testConfig("c"))

	if _, found := cache.Get("b"); found {
		t.Error("least recently used entry was not evicted")
	}
	if _, found := cache.Get("a"); !found {
		t.Error("recently used entry was evicted")
	}
	if _, found := cache.Get("c"); !found {
		t.Error("new entry missing")
	}
}

func TestConfigCacheInvalidate(t *testing.T) {
	cache := NewConfigCache(4, time.Minute)
	cache.Set("openai", testConfig("openai"))
	cache.Invalidate("openai")

	if _, found := cache.Get("openai"); found {
		t.Fatal("invalidated entry still served")
	}
}

func TestConfigCacheStats(t *testing.T) {
	cache := NewConfigCache(4, time.Minute)
	cache.Set("openai", testConfig("openai"))

	cache.Get("openai")
	cache.Get("missing")

	stats := cache.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("got hits=%d misses=%d, want 1/1", stats.Hits, stats.Misses)
	}
	if stats.Size != 1 {
		t.Errorf("got size=%d, want 1", stats.Size)
	}
}
