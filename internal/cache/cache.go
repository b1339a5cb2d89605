package cache

import (
	"container/list"
	"sync"
)

// Cache is a thread-safe LRU cache bounded by the summed cost of its
// entries. When the total exceeds maxCost, least recently used entries are
// evicted. A maxCost of 0 or less means unlimited.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*list.Element
	order   *list.List // front = most recently used
	maxCost int64
	cost    int64

	hits, misses, evictions uint64
}

type entry[K comparable, V any] struct {
	key   K
	value V
	cost  int64
}

// New creates a cache holding at most maxCost total cost.
func New[K comparable, V any](maxCost int64) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*list.Element),
		order:   list.New(),
		maxCost: maxCost,
	}
}

// Get retrieves a value and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Set stores a value with the given cost, replacing any previous value for
// key. A value costing more than the whole budget is not stored.
func (c *Cache[K, V]) Set(key K, value V, cost int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, cost)
}

// GetOrCreate returns the cached value or stores the result of create.
// create runs under the cache lock, so concurrent callers for one key
// create it once.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, int64)) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.hits++
		c.order.MoveToFront(el)
		return el.Value.(*entry[K, V]).value
	}
	c.misses++
	value, cost := create()
	c.setLocked(key, value, cost)
	return value
}

// Delete removes an entry. It reports whether the entry was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if ok {
		c.removeLocked(el)
	}
	return ok
}

// Clear removes all entries. Statistics are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element)
	c.order.Init()
	c.cost = 0
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       len(c.entries),
		Cost:      c.cost,
		MaxCost:   c.maxCost,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// setLocked stores an entry and evicts down to maxCost. Caller holds mu.
func (c *Cache[K, V]) setLocked(key K, value V, cost int64) {
	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
	if c.maxCost > 0 && cost > c.maxCost {
		return
	}
	c.entries[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, cost: cost})
	c.cost += cost

	for c.maxCost > 0 && c.cost > c.maxCost {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		c.evictions++
	}
}

func (c *Cache[K, V]) removeLocked(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.entries, e.key)
	c.cost -= e.cost
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Cost is the summed cost of the entries.
	Cost int64
	// MaxCost is the cost budget, 0 for unlimited.
	MaxCost int64
	// Hits and Misses count Get and GetOrCreate lookups.
	Hits, Misses uint64
	// HitRate is Hits / (Hits + Misses), 0 before any lookup.
	HitRate float64
	// Evictions is the number of entries evicted for cost.
	Evictions uint64
}
