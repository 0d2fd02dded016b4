// Package cache provides a generic in-memory key/value store with per-entry
// time-to-live expiry. It memoizes expensive lookups (knowledge retrieval,
// context assembly) and is shared process-wide, so all operations are
// mutex-guarded.
//
// There is no eviction beyond TTL expiry and the explicit CleanupExpired
// sweep; the store is otherwise unbounded. That is a known limitation, not a
// correctness issue, for the traffic this service expects.
package cache

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// entry is a stored value with its expiry deadline.
type entry[V any] struct {
	value     V
	createdAt time.Time
	expiresAt time.Time
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Size    int     `json:"size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Cache is a string-keyed TTL cache. The zero value is not usable; use New.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	defaultTTL time.Duration
	hits       uint64
	misses     uint64

	// now is swappable for deterministic expiry tests.
	now func() time.Time
}

// DefaultTTL is used by SetDefault when New receives a non-positive TTL.
const DefaultTTL = 15 * time.Minute

// New creates a cache with the given default TTL.
func New[V any](defaultTTL time.Duration) *Cache[V] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache[V]{
		entries:    make(map[string]entry[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the value for key if present and unexpired.
// An expired entry is removed lazily and counts as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}

	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		var zero V
		return zero, false
	}

	c.hits++
	return e.value, true
}

// Set stores value under key with the given TTL.
// A non-positive TTL falls back to the cache default.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry[V]{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// SetDefault stores value under key with the cache's default TTL.
func (c *Cache[V]) SetDefault(key string, value V) {
	c.Set(key, value, c.defaultTTL)
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries. Counters are preserved.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// CleanupExpired removes every expired entry and returns how many were removed.
func (c *Cache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Stats returns current size and hit/miss counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:   len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Key derives a stable cache key from a function identity and its arguments.
// Arguments are rendered with %v, so keys are stable for value types; callers
// memoizing by pointer should pass the pointed-to value instead.
func Key(fn string, args ...any) string {
	h := fnv.New64a()
	fmt.Fprint(h, fn)
	for _, a := range args {
		fmt.Fprintf(h, "|%v", a)
	}
	return fmt.Sprintf("%s:%x", fn, h.Sum64())
}
