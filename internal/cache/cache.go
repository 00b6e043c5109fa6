// Package cache provides a small generic LRU with per-entry TTL. The
// store uses it to memoize sorted list snapshots between mutations;
// aggregate totals are deliberately never cached.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// LRU evicts least-recently-used entries past a size cap and lazily
// drops expired ones on read. Safe for concurrent use.
type LRU[V any] struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	items map[string]*list.Element
	order *list.List // front = most recently used
}

func New[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[V]{
		cap:   capacity,
		ttl:   ttl,
		items: make(map[string]*list.Element),
		order: list.New(),
	}
}

func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		c.evict(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: time.Now().Add(c.ttl)})
	c.items[key] = el
	for len(c.items) > c.cap {
		c.evict(c.order.Back())
	}
}

// Purge drops every entry. The store invalidates through versioned
// keys instead and lets stale snapshots age out; Purge is for callers
// that need the memory back immediately.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU[V]) evict(el *list.Element) {
	if el == nil {
		return
	}
	e := el.Value.(*entry[V])
	delete(c.items, e.key)
	c.order.Remove(el)
}
