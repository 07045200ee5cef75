package review

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/place-dedup/internal/dedupe"
)

// ClusterCache is a concurrent-safe LRU cache for computed cluster sets with
// TTL expiration. Invalidate bumps a generation counter so results computed
// before an invalidation are never stored after it.
type ClusterCache struct {
	mu         sync.RWMutex
	entries    map[string]*clusterCacheEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	generation uint64
	hits       atomic.Int64
	misses     atomic.Int64
}

type clusterCacheEntry struct {
	result    clusterResult
	createdAt time.Time
}

// clusterResult is the cached, limit-independent part of a cluster report.
type clusterResult struct {
	clusters      []dedupe.DuplicateCluster
	placesScanned int
	truncated     bool
	computedAt    time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewClusterCache creates a ClusterCache with the given capacity and TTL.
// A capacity or TTL of zero disables caching.
func NewClusterCache(maxEntries int, ttl time.Duration) *ClusterCache {
	return &ClusterCache{
		entries:    make(map[string]*clusterCacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

func (c *ClusterCache) enabled() bool {
	return c.maxEntries > 0 && c.ttl > 0
}

// Generation returns the current invalidation generation. Pass it to Put.
func (c *ClusterCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Get retrieves a cached result. Returns false on miss or expiration.
func (c *ClusterCache) Get(key string) (clusterResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return clusterResult{}, false
	}

	if time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return clusterResult{}, false
	}

	// Move to back (most recently used).
	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return entry.result, true
}

// Put stores a result computed during generation gen, evicting the oldest
// entry if at capacity. Stale generations are dropped.
func (c *ClusterCache) Put(gen uint64, key string, result clusterResult) {
	if !c.enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}

	if _, ok := c.entries[key]; ok {
		c.entries[key] = &clusterCacheEntry{result: result, createdAt: time.Now()}
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &clusterCacheEntry{result: result, createdAt: time.Now()}
	c.order = append(c.order, key)
}

// Invalidate drops every cached entry.
func (c *ClusterCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*clusterCacheEntry)
	c.order = nil
	c.generation++
}

// Stats returns cache performance statistics.
func (c *ClusterCache) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	maxEntries := c.maxEntries
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

// removeFromOrder removes a key from the LRU order slice.
func (c *ClusterCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
