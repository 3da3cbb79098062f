package tiles

import (
	"sync"

	"gioui.org/op/paint"
)

// DefaultCacheCapacity bounds the number of tiles kept in memory.
const DefaultCacheCapacity = 512

// Cache is a bounded, concurrency-safe tile cache. When full, the oldest
// inserted entry is evicted first.
type Cache[V any] struct {
	mu       sync.RWMutex
	entries  map[Tile]V
	order    []Tile
	capacity int
}

// ImageOpCache holds tiles already converted to Gio paint operations.
type ImageOpCache = Cache[paint.ImageOp]

// NewCache returns an empty cache holding at most capacity entries. A
// non-positive capacity means DefaultCacheCapacity.
func NewCache[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache[V]{
		entries:  make(map[Tile]V, capacity),
		capacity: capacity,
	}
}

func (c *Cache[V]) Get(tile Tile) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.entries[tile]
	return val, ok
}

func (c *Cache[V]) Set(tile Tile, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[tile]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, tile)
	}
	c.entries[tile] = value
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[Tile]V, c.capacity)
	c.order = nil
	c.mu.Unlock()
}
