package cache

import (
	"fmt"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache configuration constants
const (
	DefaultMaxEntries = 1000
	MinMaxEntries     = 16
)

// Stats is a point-in-time view of cache effectiveness
type Stats struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hitRate"`
}

// LRU is a fixed-capacity string-keyed cache with least-recently-used eviction.
// It is safe for concurrent use.
type LRU[V any] struct {
	inner    *lru.Cache[string, V]
	capacity int

	// Atomic counters
	hits      int64
	misses    int64
	evictions int64

	observer func(hit bool)
}

// New creates a cache holding at most size entries
func New[V any](size int) (*LRU[V], error) {
	if size <= 0 {
		size = DefaultMaxEntries
	}
	if size < MinMaxEntries {
		size = MinMaxEntries
	}

	c := &LRU[V]{capacity: size}
	inner, err := lru.NewWithEvict[string, V](size, func(string, V) {
		atomic.AddInt64(&c.evictions, 1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	c.inner = inner
	return c, nil
}

// MustNew is New for sizes known to be valid
func MustNew[V any](size int) *LRU[V] {
	c, err := New[V](size)
	if err != nil {
		panic(err)
	}
	return c
}

// SetObserver registers a callback invoked on every Get with the hit/miss outcome
func (c *LRU[V]) SetObserver(fn func(hit bool)) {
	c.observer = fn
}

// Get returns the cached value and marks it most recently used
func (c *LRU[V]) Get(key string) (V, bool) {
	v, ok := c.inner.Get(key)
	if ok {
		atomic.AddInt64(&c.hits, 1)
	} else {
		atomic.AddInt64(&c.misses, 1)
	}
	if c.observer != nil {
		c.observer(ok)
	}
	return v, ok
}

// Add stores a value, evicting the least recently used entry when full
func (c *LRU[V]) Add(key string, value V) {
	c.inner.Add(key, value)
}

// Remove drops a single key
func (c *LRU[V]) Remove(key string) bool {
	return c.inner.Remove(key)
}

// InvalidatePrefix removes every key starting with prefix and returns how many were dropped.
// Removals here are invalidations, not evictions.
func (c *LRU[V]) InvalidatePrefix(prefix string) int {
	removed := 0
	for _, key := range c.inner.Keys() {
		if strings.HasPrefix(key, prefix) {
			// Remove fires the evict callback; the counter is compensated below
			if c.inner.Remove(key) {
				removed++
			}
		}
	}
	if removed > 0 {
		atomic.AddInt64(&c.evictions, -int64(removed))
	}
	return removed
}

// Purge empties the cache without counting evictions
func (c *LRU[V]) Purge() {
	n := c.inner.Len()
	c.inner.Purge()
	if n > 0 {
		atomic.AddInt64(&c.evictions, -int64(n))
	}
}

// Len returns the number of cached entries
func (c *LRU[V]) Len() int {
	return c.inner.Len()
}

// Stats returns current counters
func (c *LRU[V]) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Size:      c.inner.Len(),
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: atomic.LoadInt64(&c.evictions),
		HitRate:   rate,
	}
}
