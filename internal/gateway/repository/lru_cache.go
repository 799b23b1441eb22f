package repository

import (
	"container/list"
	"sync"
	"time"
)

type lruEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// LRUCache is a size-bounded in-process cache with per-entry TTL for hot-path checks.
type LRUCache[V any] struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewLRUCache creates a cache holding at most maxSize entries; ttl is the default entry lifetime.
func NewLRUCache[V any](maxSize int, ttl time.Duration) *LRUCache[V] {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &LRUCache[V]{
		items:   make(map[string]*list.Element, maxSize),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the value and whether a live entry was found.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	entry := elem.Value.(*lruEntry[V])
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return entry.value, true
}

// Set stores value; ttl 0 uses the cache default, a negative ttl never expires.
func (c *LRUCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.ttl
	}
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*lruEntry[V])
		entry.value = value
		entry.expiresAt = exp
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&lruEntry[V]{key: key, value: value, expiresAt: exp})
	c.items[key] = elem
	if len(c.items) > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *LRUCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[V]) removeElement(elem *list.Element) {
	entry := elem.Value.(*lruEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(elem)
}
