// Package cache provides a thread-safe LRU cache for compiled formulas.
//
// The evaluator uses it when caching is enabled. A formula is compiled
// against the registry of one context, so entries are keyed by context and
// script mode as well as by source text.
//
// # Example
//
//	c := cache.New(1024)
//	expr, err := c.GetOrCompile(cache.Key{Source: "close[1] * 2"}, compile)
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/sandrolain/goformula/pkg/ast"
	"github.com/sandrolain/goformula/pkg/functions"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

// Key identifies a compiled formula: its source and the settings it was
// compiled with. Registry is compared by identity, so evaluators sharing a
// cache but resolving names in different registries never see each other's
// trees.
type Key struct {
	Context  string
	Source   string
	Script   bool
	Simplify bool
	Registry *functions.Registry
}

type entry struct {
	key  Key
	expr *ast.Expression
}

// Cache is an LRU cache of compiled expressions. Once the capacity is
// reached, the least recently used entry is evicted.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[Key]*list.Element

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a new LRU cache with the given capacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[Key]*list.Element, capacity),
	}
}

// Get returns the expression cached under key and marks it as most recently
// used.
func (c *Cache) Get(key Key) (*ast.Expression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.ll.MoveToFront(el)
	return el.Value.(*entry).expr, true
}

// Set inserts or replaces an expression, evicting the least recently used
// entry when the cache is full.
func (c *Cache) Set(key Key, expr *ast.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).expr = expr
		c.ll.MoveToFront(el)
		return
	}
	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, expr: expr})
}

// GetOrCompile returns the cached expression for key, or compiles, caches
// and returns it. Errors are not cached.
func (c *Cache) GetOrCompile(key Key, compile func() (*ast.Expression, error)) (*ast.Expression, error) {
	if expr, ok := c.Get(key); ok {
		return expr, nil
	}
	expr, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(key, expr)
	return expr, nil
}

// Len returns the number of entries currently in the cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of entries.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Stats returns the number of lookups that hit and missed.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Invalidate removes a single entry.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// InvalidateContext removes every entry compiled in context. Registering
// functions or variables in a context makes its entries stale.
func (c *Cache) InvalidateContext(context string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.items {
		if key.Context == context {
			c.ll.Remove(el)
			delete(c.items, key)
		}
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[Key]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry. c.mu must be held.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
