package resolver

import (
	"sync"
	"time"
)

// queryCache memoizes resolutions by normalized query for a fixed TTL.
// Stale entries are evicted lazily on lookup.
type queryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	resolution *Resolution
	expires    time.Time
}

func newQueryCache(ttl time.Duration) *queryCache {
	return &queryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *queryCache) get(key string) (*Resolution, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.resolution, true
}

func (c *queryCache) put(key string, resolution *Resolution) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{resolution: resolution, expires: c.now().Add(c.ttl)}
}
