// Package cachex provides a small in-process cache with a bounded entry
// count and expiry after last access. Writers of the underlying data are
// expected to call Remove/Purge synchronously, so the cache can stay
// read-through and never serve a value that survived a known write.
package cachex

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value      V
	lastAccess time.Time
}

// Cache is a bounded map with TTL-after-last-access semantics. When the
// capacity is exceeded the least-recently-accessed entry is dropped.
// All methods are safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[K]*entry[V]

	now func() time.Time // test seam
}

// New creates a cache holding at most capacity entries, each expiring ttl
// after its last access.
func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[K]*entry[V]),
		now:      time.Now,
	}
}

// Get returns the cached value and refreshes its access time. Expired
// entries are dropped and reported as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.lastAccess) > c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	e.lastAccess = c.now()
	return e.value, true
}

// Put stores value under key, evicting expired entries first and then the
// least-recently-accessed entry if the cache is still full.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.lastAccess) > c.ttl {
			delete(c.entries, k)
		}
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		var oldestKey K
		var oldest time.Time
		first := true
		for k, e := range c.entries {
			if first || e.lastAccess.Before(oldest) {
				oldestKey, oldest, first = k, e.lastAccess, false
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[key] = &entry[V]{value: value, lastAccess: now}
}

// Remove drops a single entry.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*entry[V])
}

// Len reports the current entry count, including not-yet-collected expired
// entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
