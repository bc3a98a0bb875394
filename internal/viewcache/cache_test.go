package viewcache

import (
	"fmt"
	"testing"
	"time"

	"cost_engine/internal/models"
)

func TestPageCacheExactKeyOnly(t *testing.T) {
	cache := NewPageCache(10, time.Minute)
	cache.Put(&models.CacheEntry{QueryKey: "providers=openai|window=day|cursor=0"})

	if got := cache.Get("providers=openai|window=day|cursor=0"); got == nil {
		t.Fatal("exact key must hit")
	}
	if got := cache.Get("providers=openai|window=day|cursor=1"); got != nil {
		t.Errorf("different cursor must miss, got %q", got.QueryKey)
	}
}

func TestPageCacheTTLExpiry(t *testing.T) {
	cache := NewPageCache(10, 10*time.Millisecond)
	cache.Put(&models.CacheEntry{QueryKey: "k"})

	if cache.Get("k") == nil {
		t.Fatal("fresh entry must hit")
	}

	time.Sleep(20 * time.Millisecond)
	if got := cache.Get("k"); got != nil {
		t.Errorf("expired entry must miss, got %q", got.QueryKey)
	}
}

func TestPageCacheEvictsLRU(t *testing.T) {
	cache := NewPageCache(2, time.Minute)
	cache.Put(&models.CacheEntry{QueryKey: "a"})
	cache.Put(&models.CacheEntry{QueryKey: "b"})

	// Touch "a" so "b" is the eviction candidate.
	cache.Get("a")
	cache.Put(&models.CacheEntry{QueryKey: "c"})

	if cache.Get("b") != nil {
		t.Error("least recently used entry must be evicted")
	}
	if cache.Get("a") == nil || cache.Get("c") == nil {
		t.Error("recently used entries must survive eviction")
	}
}

func TestPageCacheLastNonEmpty(t *testing.T) {
	cache := NewPageCache(10, time.Minute)

	if cache.LastNonEmpty() != nil {
		t.Fatal("empty cache has no last non-empty entry")
	}

	cache.Put(&models.CacheEntry{QueryKey: "empty"})
	if cache.LastNonEmpty() != nil {
		t.Error("entries without rows must not become last non-empty")
	}

	withRows := &models.CacheEntry{
		QueryKey: "full",
		Rows:     []models.RequestRow{{Provider: "openai"}},
	}
	cache.Put(withRows)
	if got := cache.LastNonEmpty(); got == nil || got.QueryKey != "full" {
		t.Errorf("last non-empty = %v, want the entry with rows", got)
	}

	// Invalidation of the key does not erase the flicker guard; Clear does.
	cache.Invalidate("full")
	if cache.LastNonEmpty() == nil {
		t.Error("invalidate must not drop the last non-empty marker")
	}
	cache.Clear()
	if cache.LastNonEmpty() != nil {
		t.Error("clear must drop the last non-empty marker")
	}
}

func TestPageCacheCapacityChurn(t *testing.T) {
	cache := NewPageCache(4, time.Minute)
	for i := 0; i < 100; i++ {
		cache.Put(&models.CacheEntry{QueryKey: fmt.Sprintf("key-%d", i)})
	}
	if cache.Len() != 4 {
		t.Errorf("cache length = %d, want capacity 4", cache.Len())
	}
}
