package resolver

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vjranagit/ecoatlas/pkg/types"
)

func TestEntityCache(t *testing.T) {
	cache := NewEntityCache(100, time.Minute)

	_, ok := cache.Get("Brazil")
	assert.False(t, ok, "expected cache miss")

	cache.Put("Brazil", types.Entity{ID: "1", DisplayName: "Brazil"})
	e, ok := cache.Get("Brazil")
	assert.True(t, ok)
	assert.Equal(t, "1", e.ID)

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 50.0, stats.HitRate)
}

func TestEntityCacheTTL(t *testing.T) {
	cache := NewEntityCache(100, 50*time.Millisecond)
	cache.Put("Peru", types.Entity{ID: "2"})

	_, ok := cache.Get("Peru")
	assert.True(t, ok)

	time.Sleep(80 * time.Millisecond)

	_, ok = cache.Get("Peru")
	assert.False(t, ok, "expected miss after TTL expiry")
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestEntityCacheLRUEviction(t *testing.T) {
	cache := NewEntityCache(3, time.Minute)

	for i := 0; i < 4; i++ {
		cache.Put(fmt.Sprintf("country_%d", i), types.Entity{ID: fmt.Sprint(i)})
	}

	assert.Equal(t, 3, cache.Stats().Size)
	_, ok := cache.Get("country_0")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = cache.Get("country_3")
	assert.True(t, ok)
}

func TestEntityCacheOverwriteAndClear(t *testing.T) {
	cache := NewEntityCache(0, 0)
	cache.Put("Kenya", types.Entity{ID: "3"})
	cache.Put("Kenya", types.Entity{ID: "3"})
	assert.Equal(t, 1, cache.Stats().Size)

	cache.Remove("Kenya")
	assert.Equal(t, 0, cache.Stats().Size)

	cache.Put("Kenya", types.Entity{ID: "3"})
	cache.Clear()
	_, ok := cache.Get("Kenya")
	assert.False(t, ok)
}
