package storage

import (
	"container/list"
	"sync"
	"time"

	"cost_engine/internal/models"
)

type configCacheEntry struct {
	key       string
	config    *models.PricingConfig
	expiresAt time.Time
}

// ConfigCache is a thread-safe LRU cache for pricing configs with TTL support.
// It sits in front of the pricing repository so the refresh loop does not hit
// Postgres for every provider on every cycle.
type ConfigCache struct {
	mu           sync.Mutex
	capacity     int
	ttl          time.Duration
	items        map[string]*list.Element
	evictionList *list.List

	hits   int64
	misses int64
}

// NewConfigCache creates a new pricing config cache.
func NewConfigCache(capacity int, ttl time.Duration) *ConfigCache {
	return &ConfigCache{
		capacity:     capacity,
		ttl:          ttl,
		items:        make(map[string]*list.Element, capacity),
		evictionList: list.New(),
	}
}

// Get retrieves a pricing config from the cache.
func (c *ConfigCache) Get(provider string) (*models.PricingConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.items[provider]
	if !found {
		c.misses++
		return nil, false
	}

	entry := elem.Value.(*configCacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		c.misses++
		return nil, false
	}

	c.evictionList.MoveToFront(elem)
	c.hits++
	return entry.config, true
}

// Set adds or updates a pricing config in the cache.
func (c *ConfigCache) Set(provider string, config *models.PricingConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if elem, found := c.items[provider]; found {
		c.evictionList.MoveToFront(elem)
		entry := elem.Value.(*configCacheEntry)
		entry.config = config
		entry.expiresAt = expiresAt
		return
	}

	elem := c.evictionList.PushFront(&configCacheEntry{
		key:       provider,
		config:    config,
		expiresAt: expiresAt,
	})
	c.items[provider] = elem

	if c.evictionList.Len() > c.capacity {
		oldest := c.evictionList.Back()
		if oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Invalidate removes a provider's config from the cache. Called after every
// save so readers never observe a stale pricing mode.
func (c *ConfigCache) Invalidate(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.items[provider]; found {
		c.removeElement(elem)
	}
}

// Clear removes all entries from the cache.
func (c *ConfigCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.evictionList.Init()
}

// CacheStats contains hit and miss counters for a config cache.
type CacheStats struct {
	Hits   int64
	Misses int64
	Size   int
}

// GetStats returns the current cache counters.
func (c *ConfigCache) GetStats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Hits:   c.hits,
		Misses: c.misses,
		Size:   c.evictionList.Len(),
	}
}

// CleanupExpired removes expired entries and returns how many were removed.
func (c *ConfigCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	for elem := c.evictionList.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*configCacheEntry)
		if now.After(entry.expiresAt) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}

	return removed
}

func (c *ConfigCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*configCacheEntry)
	delete(c.items, entry.key)
	c.evictionList.Remove(elem)
}
