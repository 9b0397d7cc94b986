// Package cache provides a size-bounded LRU cache with optional TTL.
package cache

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// Stats represents cache statistics.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// LRUCache is safe for concurrent use.
type LRUCache[V any] struct {
	mu         sync.Mutex
	lru        *lru.Cache
	maxSize    int
	defaultTTL time.Duration
	stats      Stats
}

// NewLRUCache creates a cache holding at most maxSize entries. A zero
// defaultTTL keeps entries until they are evicted.
func NewLRUCache[V any](maxSize int, defaultTTL time.Duration) *LRUCache[V] {
	return &LRUCache[V]{
		lru:        lru.New(maxSize),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		stats:      Stats{MaxSize: maxSize},
	}
}

// Get retrieves a value from the cache.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	raw, ok := c.lru.Get(key)
	if !ok {
		c.stats.Misses++
		return zero, false
	}

	e := raw.(*entry[V])
	if e.expired(time.Now()) {
		c.lru.Remove(key)
		c.stats.Misses++
		return zero, false
	}

	c.stats.Hits++
	return e.value, true
}

// Set stores a value. A zero ttl uses the default TTL.
func (c *LRUCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.defaultTTL
	}
	e := &entry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	if _, exists := c.lru.Get(key); !exists && c.maxSize > 0 && c.lru.Len() >= c.maxSize {
		c.stats.Evictions++
	}
	c.lru.Add(key, e)
}

// Clear removes all entries. Counters are kept.
func (c *LRUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
}

// GetStats returns cache statistics.
func (c *LRUCache[V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.lru.Len()
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}
