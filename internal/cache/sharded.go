// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import "hash/maphash"

// ShardCount is the number of shards of a Sharded cache.
const ShardCount = 16

// Sharded spreads keys over ShardCount independent caches so that
// goroutines working on different keys rarely contend for a lock. Each
// shard is an LRU cache with its own soft limit.
//
// Sharded is safe for concurrent use.
type Sharded[K comparable, V any] struct {
	seed   maphash.Seed
	shards [ShardCount]*Cache[K, V]
}

// NewSharded creates a sharded cache whose shards each hold about
// perShard entries. A perShard of 0 means unlimited.
func NewSharded[K comparable, V any](perShard int) *Sharded[K, V] {
	s := &Sharded[K, V]{seed: maphash.MakeSeed()}
	for i := range s.shards {
		s.shards[i] = New[K, V](perShard)
	}
	return s
}

func (s *Sharded[K, V]) shard(key K) *Cache[K, V] {
	return s.shards[maphash.Comparable(s.seed, key)%ShardCount]
}

// Get retrieves a value and marks it as recently used.
func (s *Sharded[K, V]) Get(key K) (V, bool) { return s.shard(key).Get(key) }

// Set stores a value.
func (s *Sharded[K, V]) Set(key K, value V) { s.shard(key).Set(key, value) }

// GetOrCreate returns the cached value or creates it. Only the shard of
// key is locked while create runs.
func (s *Sharded[K, V]) GetOrCreate(key K, create func() V) V {
	return s.shard(key).GetOrCreate(key, create)
}

// Delete removes an entry and reports whether it was present.
func (s *Sharded[K, V]) Delete(key K) bool { return s.shard(key).Delete(key) }

// Clear removes every entry.
func (s *Sharded[K, V]) Clear() {
	for _, c := range s.shards {
		c.Clear()
	}
}

// Len returns the number of entries across all shards.
func (s *Sharded[K, V]) Len() int {
	n := 0
	for _, c := range s.shards {
		n += c.Len()
	}
	return n
}

// Stats sums the statistics of all shards. Capacity is the total soft
// limit.
func (s *Sharded[K, V]) Stats() Stats {
	var st Stats
	for _, c := range s.shards {
		cs := c.Stats()
		st.Len += cs.Len
		st.Capacity += cs.Capacity
		st.Hits += cs.Hits
		st.Misses += cs.Misses
		st.Evictions += cs.Evictions
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}
