// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import "sync"

// Cache is a generic LRU cache with a soft limit and an eviction hook.
// When the cache exceeds softLimit, the least recently used entries are
// evicted until it is back to three quarters of the limit.
//
// The eviction hook runs for every value that leaves the cache (eviction,
// Delete, replacement by Set, Clear). It is called after the internal lock
// is released, so it may use the cache again.
//
// Cache is safe for concurrent use.
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*node[K, V]
	head      *node[K, V] // most recently used
	tail      *node[K, V] // least recently used
	softLimit int
	onEvict   func(K, V)

	hits      uint64
	misses    uint64
	evictions uint64
}

// node is an entry in the recency list.
type node[K comparable, V any] struct {
	key   K
	value V
	prev  *node[K, V]
	next  *node[K, V]
}

// evicted is a key/value pair removed under lock, reported after unlock.
type evicted[K comparable, V any] struct {
	key   K
	value V
}

// New creates a new cache with the given soft limit.
// A softLimit of 0 means unlimited.
func New[K comparable, V any](softLimit int) *Cache[K, V] {
	return NewWithEvict[K, V](softLimit, nil)
}

// NewWithEvict creates a new cache that reports removed values to onEvict.
func NewWithEvict[K comparable, V any](softLimit int, onEvict func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries:   make(map[K]*node[K, V]),
		softLimit: softLimit,
		onEvict:   onEvict,
	}
}

// Get retrieves a value from the cache and marks it as recently used.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.moveToFront(n)
	return n.value, true
}

// Peek retrieves a value without touching its recency.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		return n.value, true
	}
	var zero V
	return zero, false
}

// Set stores a value in the cache. A previous value for the same key is
// reported to the eviction hook.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	var out []evicted[K, V]
	if n, ok := c.entries[key]; ok {
		out = append(out, evicted[K, V]{n.key, n.value})
		n.value = value
		c.moveToFront(n)
	} else {
		c.insert(key, value)
		out = c.evictOver(out)
	}
	c.mu.Unlock()

	c.report(out)
}

// GetOrCreate returns the cached value or creates it.
// create is called under lock to prevent duplicate creation.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	if n, ok := c.entries[key]; ok {
		c.hits++
		c.moveToFront(n)
		c.mu.Unlock()
		return n.value
	}
	c.misses++
	value := create()
	c.insert(key, value)
	out := c.evictOver(nil)
	c.mu.Unlock()

	c.report(out)
	return value
}

// Delete removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	n, ok := c.entries[key]
	if ok {
		c.unlink(n)
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if ok {
		c.report([]evicted[K, V]{{n.key, n.value}})
	}
	return ok
}

// Clear removes all entries from the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	out := make([]evicted[K, V], 0, len(c.entries))
	for n := c.head; n != nil; n = n.next {
		out = append(out, evicted[K, V]{n.key, n.value})
	}
	c.entries = make(map[K]*node[K, V])
	c.head, c.tail = nil, nil
	c.mu.Unlock()

	c.report(out)
}

// Range calls fn for every entry from most to least recently used until
// fn returns false. fn must not modify the cache.
func (c *Cache[K, V]) Range(fn func(K, V) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for n := c.head; n != nil; n = n.next {
		if !fn(n.key, n.value) {
			return
		}
	}
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Capacity returns the soft limit of the cache.
func (c *Cache[K, V]) Capacity() int {
	return c.softLimit
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       len(c.entries),
		Capacity:  c.softLimit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// insert adds a new node at the front. Caller must hold c.mu.
func (c *Cache[K, V]) insert(key K, value V) {
	n := &node[K, V]{key: key, value: value}
	c.entries[key] = n
	c.pushFront(n)
}

// evictOver removes least recently used entries while over the soft limit.
// Caller must hold c.mu.
func (c *Cache[K, V]) evictOver(out []evicted[K, V]) []evicted[K, V] {
	if c.softLimit <= 0 || len(c.entries) <= c.softLimit {
		return out
	}
	target := c.softLimit * 3 / 4
	if target < 1 {
		target = 1
	}
	for len(c.entries) > target && c.tail != nil {
		n := c.tail
		c.unlink(n)
		delete(c.entries, n.key)
		c.evictions++
		out = append(out, evicted[K, V]{n.key, n.value})
	}
	return out
}

func (c *Cache[K, V]) report(out []evicted[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range out {
		c.onEvict(e.key, e.value)
	}
}

func (c *Cache[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *Cache[K, V]) moveToFront(n *node[K, V]) {
	if c.head == n {
		return
	}
	c.unlink(n)
	c.pushFront(n)
}

func (c *Cache[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the soft limit, 0 when unlimited.
	Capacity int
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that did not.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0 before the first lookup.
	HitRate float64
	// Evictions is the number of entries dropped for exceeding the soft limit.
	Evictions uint64
}
