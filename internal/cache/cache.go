// Package cache implements the read-cache consistency layer: a TTL-bounded
// snapshot store, the key derivation policy, and the mutation-driven
// invalidator that sits between the task service and the HTTP layer.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL bounds how long a snapshot may be served without revalidation.
const DefaultTTL = 60 * time.Second

type entry struct {
	snapshot  []byte
	expiresAt time.Time
}

// ReadCache is a concurrency-safe key -> snapshot store with lazy TTL expiry.
// Snapshots are immutable byte copies: neither the caller's slice nor the
// stored slice is ever aliased, so a cached entry can only change through
// explicit eviction.
type ReadCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty ReadCache.
func New() *ReadCache {
	return &ReadCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the snapshot for key, or false on a miss. An expired entry is
// removed and reported as a miss; there is no background sweeper.
func (c *ReadCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a Set may have raced the expiry.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	out := make([]byte, len(e.snapshot))
	copy(out, e.snapshot)
	return out, true
}

// Set stores a snapshot under key for ttl. A non-positive ttl falls back to
// DefaultTTL.
func (c *ReadCache) Set(key string, snapshot []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	owned := make([]byte, len(snapshot))
	copy(owned, snapshot)

	c.mu.Lock()
	c.entries[key] = entry{snapshot: owned, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Evict drops a single key.
func (c *ReadCache) Evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry. Used as the coarse invalidation fallback and on
// shutdown.
func (c *ReadCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the number of live entries, counting not-yet-swept expired ones.
func (c *ReadCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
