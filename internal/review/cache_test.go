package review

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/place-dedup/internal/dedupe"
)

func resultWith(n int) clusterResult {
	return clusterResult{placesScanned: n, clusters: []dedupe.DuplicateCluster{}}
}

func TestClusterCache_BasicGetPut(t *testing.T) {
	cache := NewClusterCache(10, time.Hour)

	_, ok := cache.Get("q")
	assert.False(t, ok)

	cache.Put(cache.Generation(), "q", resultWith(7))
	got, ok := cache.Get("q")
	require.True(t, ok)
	assert.Equal(t, 7, got.placesScanned)

	_, ok = cache.Get("other")
	assert.False(t, ok)
}

func TestClusterCache_TTLExpiration(t *testing.T) {
	cache := NewClusterCache(10, 50*time.Millisecond)

	cache.Put(cache.Generation(), "q", resultWith(1))
	_, ok := cache.Get("q")
	assert.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = cache.Get("q")
	assert.False(t, ok)

	cache.mu.RLock()
	_, exists := cache.entries["q"]
	cache.mu.RUnlock()
	assert.False(t, exists)
}

func TestClusterCache_LRUEviction(t *testing.T) {
	cache := NewClusterCache(2, time.Hour)
	gen := cache.Generation()

	cache.Put(gen, "a", resultWith(1))
	cache.Put(gen, "b", resultWith(2))
	cache.Get("a")
	cache.Put(gen, "c", resultWith(3))

	_, ok := cache.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = cache.Get("a")
	assert.True(t, ok)
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestClusterCache_StaleGenerationDropped(t *testing.T) {
	cache := NewClusterCache(10, time.Hour)

	gen := cache.Generation()
	cache.Invalidate()
	cache.Put(gen, "q", resultWith(1))

	_, ok := cache.Get("q")
	assert.False(t, ok)
}

func TestClusterCache_Invalidate(t *testing.T) {
	cache := NewClusterCache(10, time.Hour)
	cache.Put(cache.Generation(), "a", resultWith(1))
	cache.Put(cache.Generation(), "b", resultWith(2))

	cache.Invalidate()

	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestClusterCache_Disabled(t *testing.T) {
	cache := NewClusterCache(0, time.Hour)
	cache.Put(cache.Generation(), "q", resultWith(1))

	_, ok := cache.Get("q")
	assert.False(t, ok)
}

func TestClusterCache_Stats(t *testing.T) {
	cache := NewClusterCache(100, time.Hour)
	cache.Put(cache.Generation(), "a", resultWith(1))

	cache.Get("a") // hit
	cache.Get("a") // hit
	cache.Get("b") // miss

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 100, stats.MaxEntries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.6667, stats.HitRate, 0.01)
}

func TestClusterCache_ConcurrentAccess(t *testing.T) {
	cache := NewClusterCache(8, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%16))
			cache.Put(cache.Generation(), key, resultWith(n))
			cache.Get(key)
			if n%10 == 0 {
				cache.Invalidate()
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Stats().Entries, 8)
}
