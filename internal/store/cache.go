package store

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a loaded registry stays fresh.
const DefaultCacheTTL = 60 * time.Second

// Cache holds recently loaded registries keyed by file path. It is an
// explicit object handed to each Store rather than process-wide state, so
// tests get isolated caches for free.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	registry Registry
	loadedAt time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *Cache) get(path string) (Registry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[path]
	if !ok || c.now().Sub(entry.loadedAt) > c.ttl {
		delete(c.entries, path)
		return Registry{}, false
	}
	return entry.registry.clone(), true
}

func (c *Cache) put(path string, reg Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{registry: reg.clone(), loadedAt: c.now()}
}

func (c *Cache) invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}
