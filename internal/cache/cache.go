// Package cache holds course listings between writes. The in-process TTL map
// serves single-instance deployments; Redis is used when REDIS_ADDR is set.
package cache

import (
	"sync"
	"time"
)

const defaultTTL = 5 * time.Second

// Cache is a typed TTL map. Expired entries are dropped on read and the whole
// map can be flushed at once, which is how course writes invalidate listings.
type Cache[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[V]
	now     func() time.Time
}

type entry[V any] struct {
	val       V
	expiresAt time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	switch {
	case !ok:
		return zero, false
	case !now.After(e.expiresAt):
		return e.val, true
	}

	c.mu.Lock()
	// a Set may have landed between the two locks
	if cur, ok := c.entries[key]; ok && now.After(cur.expiresAt) {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	return zero, false
}

func (c *Cache[V]) Set(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{val: val, expiresAt: c.now().Add(c.ttl)}
}

// Flush drops every entry.
func (c *Cache[V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
