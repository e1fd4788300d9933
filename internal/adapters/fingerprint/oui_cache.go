package fingerprint

import (
	"container/list"
	"sync"
)

// OUICache is a fixed-size LRU of resolved vendors keyed by OUI.
type OUICache struct {
	capacity int

	mu      sync.Mutex
	entries map[[3]byte]*list.Element
	order   *list.List // front is most recent
	hits    int64
	misses  int64
}

type cached struct {
	oui    [3]byte
	vendor string
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// NewOUICache returns a cache holding at most capacity OUIs (minimum 1).
func NewOUICache(capacity int) *OUICache {
	if capacity <= 0 {
		capacity = 1
	}
	return &OUICache{
		capacity: capacity,
		entries:  make(map[[3]byte]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *OUICache) Get(oui [3]byte) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[oui]
	if !ok {
		c.misses++
		return "", false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*cached).vendor, true
}

func (c *OUICache) Set(oui [3]byte, vendor string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[oui]; ok {
		elem.Value.(*cached).vendor = vendor
		c.order.MoveToFront(elem)
		return
	}
	c.entries[oui] = c.order.PushFront(&cached{oui: oui, vendor: vendor})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cached).oui)
	}
}

func (c *OUICache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *OUICache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses}
}

// Clear drops every entry; counters are kept.
func (c *OUICache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[[3]byte]*list.Element, c.capacity)
	c.order.Init()
}
