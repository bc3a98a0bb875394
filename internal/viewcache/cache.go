package viewcache

import (
	"container/list"
	"sync"
	"time"

	"cost_engine/internal/models"
)

// PageCache is a thread-safe LRU cache of request pages keyed by their exact
// QueryKey, with TTL expiry. It also remembers the most recently stored
// non-empty entry, which analytics views use to avoid flicker while a
// refetch is in flight.
type PageCache struct {
	mu           sync.Mutex
	capacity     int
	ttl          time.Duration
	items        map[string]*list.Element
	evictionList *list.List
	lastNonEmpty *models.CacheEntry
}

type pageCacheItem struct {
	entry     *models.CacheEntry
	expiresAt time.Time
}

// NewPageCache creates a page cache holding up to capacity entries for ttl.
func NewPageCache(capacity int, ttl time.Duration) *PageCache {
	return &PageCache{
		capacity:     capacity,
		ttl:          ttl,
		items:        make(map[string]*list.Element, capacity),
		evictionList: list.New(),
	}
}

// Get returns the entry recorded for queryKey, or nil when absent or
// expired. The key must encode the full filter scope; there is no partial
// matching here by design.
func (c *PageCache) Get(queryKey string) *models.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.items[queryKey]
	if !found {
		return nil
	}
	item := elem.Value.(*pageCacheItem)
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return nil
	}
	c.evictionList.MoveToFront(elem)
	return item.entry
}

// Put stores an entry under its QueryKey, evicting the least recently used
// entry when over capacity.
func (c *PageCache) Put(entry *models.CacheEntry) {
	if entry == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(entry.Rows) > 0 {
		c.lastNonEmpty = entry
	}

	expiresAt := time.Now().Add(c.ttl)
	if elem, found := c.items[entry.QueryKey]; found {
		c.evictionList.MoveToFront(elem)
		item := elem.Value.(*pageCacheItem)
		item.entry = entry
		item.expiresAt = expiresAt
		return
	}

	elem := c.evictionList.PushFront(&pageCacheItem{entry: entry, expiresAt: expiresAt})
	c.items[entry.QueryKey] = elem

	for c.evictionList.Len() > c.capacity {
		if back := c.evictionList.Back(); back != nil {
			c.removeElement(back)
		}
	}
}

// Invalidate drops the entry recorded for queryKey, if any.
func (c *PageCache) Invalidate(queryKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, found := c.items[queryKey]; found {
		c.removeElement(elem)
	}
}

// Clear drops every entry, including the last non-empty marker.
func (c *PageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.evictionList.Init()
	c.lastNonEmpty = nil
}

// LastNonEmpty returns the most recently stored entry that had rows, or nil.
func (c *PageCache) LastNonEmpty() *models.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastNonEmpty
}

// Len returns the number of cached pages.
func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictionList.Len()
}

func (c *PageCache) removeElement(elem *list.Element) {
	c.evictionList.Remove(elem)
	item := elem.Value.(*pageCacheItem)
	delete(c.items, item.entry.QueryKey)
}
