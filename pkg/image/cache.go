package image

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
)

// CacheKey identifies one rendering of a texture: the protocol and the
// target cell area change the escape sequence, the texture ID its content.
type CacheKey struct {
	Protocol  string
	Width     int
	Height    int
	TextureID string
}

// String returns a human-readable key for debugging.
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%dx%d:%s", k.Protocol, k.Width, k.Height, k.TextureID)
}

// CacheStats reports hit/miss counts for observability.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
	SizeBytes int64
}

type cacheEntry struct {
	key      CacheKey
	rendered string
}

// Cache is a byte-bounded LRU of rendered escape strings. Animations
// cycle through the same few frames, so every frame after the first loop
// is a hit.
type Cache struct {
	mu        sync.Mutex
	items     map[CacheKey]*list.Element
	order     *list.List // front = most recent
	maxBytes  int64
	usedBytes int64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewCache creates a cache holding at most maxMB megabytes of rendered
// output. If maxMB is <= 0, 32 MB is used.
func NewCache(maxMB int) *Cache {
	if maxMB <= 0 {
		maxMB = 32
	}
	return &Cache{
		items:    make(map[CacheKey]*list.Element),
		order:    list.New(),
		maxBytes: int64(maxMB) << 20,
	}
}

// Get returns the cached rendering for key and promotes it.
func (c *Cache) Get(key CacheKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return "", false
	}
	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return elem.Value.(*cacheEntry).rendered, true
}

// Put stores a rendering, evicting least recently used entries until the
// cache fits its budget. A single entry larger than the budget is not
// stored.
func (c *Cache) Put(key CacheKey, rendered string) {
	size := int64(len(rendered))
	if size > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		c.usedBytes += size - int64(len(entry.rendered))
		entry.rendered = rendered
		c.order.MoveToFront(elem)
	} else {
		c.items[key] = c.order.PushFront(&cacheEntry{key: key, rendered: rendered})
		c.usedBytes += size
	}

	for c.usedBytes > c.maxBytes && c.order.Len() > 1 {
		back := c.order.Back()
		entry := c.order.Remove(back).(*cacheEntry)
		delete(c.items, entry.key)
		c.usedBytes -= int64(len(entry.rendered))
		c.evictions.Add(1)
	}
}

// Invalidate clears all entries.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[CacheKey]*list.Element)
	c.order.Init()
	c.usedBytes = 0
}

// Stats returns current cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.order.Len(),
		SizeBytes: c.usedBytes,
	}
}
