package runtime

import (
	"context"
	"sync"
	"time"

	"pathway-engine/application/ports"
)

// ResourceCache is an in-memory TTL cache for remote reads, keyed by
// resource kind and id. Writes to a resource invalidate its entry, so a
// read after a write always reflects the new remote state.
type ResourceCache struct {
	mu       sync.RWMutex
	items    map[string]cacheItem
	stop     chan struct{}
	stopOnce sync.Once
}

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

// NewResourceCache creates a resource cache and starts its expiry sweeper.
// Callers that own the cache's lifecycle stop the sweeper with Close.
func NewResourceCache() *ResourceCache {
	cache := &ResourceCache{
		items: make(map[string]cacheItem),
		stop:  make(chan struct{}),
	}
	go cache.sweep()
	return cache
}

// Close stops the expiry sweeper. Safe to call more than once; the cache
// itself stays usable, entries just expire lazily on read.
func (c *ResourceCache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// CacheKey builds the canonical cache key for a resource
func CacheKey(kind ports.ResourceKind, id string) string {
	return string(kind) + ":" + id
}

// Get retrieves a value from cache
func (c *ResourceCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists {
		return nil, false
	}
	if time.Now().After(item.expiresAt) {
		return nil, false
	}
	return item.value, true
}

// Set stores a value in cache with a TTL
func (c *ResourceCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a value from cache
func (c *ResourceCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Clear removes all values from cache
func (c *ResourceCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]cacheItem)
	return nil
}

// sweep periodically removes expired items until Close
func (c *ResourceCache) sweep() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		now := time.Now()
		for key, item := range c.items {
			if now.After(item.expiresAt) {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}
