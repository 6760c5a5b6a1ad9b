package resolver

import (
	"container/list"
	"sync"
	"time"

	"github.com/vjranagit/ecoatlas/pkg/types"
)

// EntityCache is an LRU cache of display name -> entity with an optional TTL
type EntityCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	cache    map[string]*cacheEntry
	lru      *list.List
	hits     uint64
	misses   uint64
}

type cacheEntry struct {
	name      string
	entity    types.Entity
	timestamp time.Time
	element   *list.Element
}

// NewEntityCache creates a cache. capacity <= 0 means unbounded, ttl <= 0 means no expiry.
func NewEntityCache(capacity int, ttl time.Duration) *EntityCache {
	return &EntityCache{
		capacity: capacity,
		ttl:      ttl,
		cache:    make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

// Get retrieves a cached entity
func (c *EntityCache) Get(name string) (types.Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.cache[name]
	if !exists {
		c.misses++
		return types.Entity{}, false
	}

	if c.ttl > 0 && time.Since(entry.timestamp) > c.ttl {
		c.removeLocked(name)
		c.misses++
		return types.Entity{}, false
	}

	c.lru.MoveToFront(entry.element)
	c.hits++
	return entry.entity, true
}

// Put stores an entity. Overwriting an existing name is idempotent.
func (c *EntityCache) Put(name string, entity types.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.cache[name]; exists {
		entry.entity = entity
		entry.timestamp = time.Now()
		c.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{
		name:      name,
		entity:    entity,
		timestamp: time.Now(),
	}
	entry.element = c.lru.PushFront(entry)
	c.cache[name] = entry

	if c.capacity > 0 && c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeLocked(oldest.Value.(*cacheEntry).name)
		}
	}
}

// removeLocked removes an entry from the cache (must hold lock)
func (c *EntityCache) removeLocked(name string) {
	if entry, exists := c.cache[name]; exists {
		c.lru.Remove(entry.element)
		delete(c.cache, name)
	}
}

// Remove drops a single name
func (c *EntityCache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(name)
}

// Clear clears all cache entries
func (c *EntityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*cacheEntry)
	c.lru = list.New()
}

// CacheStats contains cache statistics
type CacheStats struct {
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRate  float64 `json:"hitRate"`
}

// Stats returns cache statistics
func (c *EntityCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:     len(c.cache),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total) * 100.0
	}
	return stats
}
