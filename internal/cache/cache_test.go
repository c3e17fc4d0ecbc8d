// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string, int](0)
	if _, ok := c.Get("a"); ok {
		t.Fatal("Get() on empty cache found a value")
	}
	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v, want 1, true", v, ok)
	}
	if got := c.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestCache_SetReplaceReportsOldValue(t *testing.T) {
	var gone []int
	c := NewWithEvict[string, int](0, func(_ string, v int) { gone = append(gone, v) })
	c.Set("a", 1)
	c.Set("a", 2)
	if diff := cmp.Diff([]int{1}, gone); diff != "" {
		t.Errorf("evicted mismatch (-want +got):\n%s", diff)
	}
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) = %d, want 2", v)
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	var gone []int
	c := NewWithEvict[int, int](4, func(k, _ int) { gone = append(gone, k) })
	for i := range 4 {
		c.Set(i, i)
	}
	// Touch 0 and 1 so 2 and 3 become the oldest.
	c.Get(0)
	c.Get(1)
	c.Set(4, 4)

	// Over the limit of 4: trimmed to 3 entries, dropping 2 and 3.
	if diff := cmp.Diff([]int{2, 3}, gone); diff != "" {
		t.Errorf("evicted mismatch (-want +got):\n%s", diff)
	}
	for _, k := range []int{0, 1, 4} {
		if _, ok := c.Peek(k); !ok {
			t.Errorf("Peek(%d) missing after eviction", k)
		}
	}
	if s := c.Stats(); s.Evictions != 2 {
		t.Errorf("Stats().Evictions = %d, want 2", s.Evictions)
	}
}

func TestCache_GetOrCreate(t *testing.T) {
	c := New[string, int](0)
	calls := 0
	create := func() int { calls++; return 7 }
	for range 3 {
		if v := c.GetOrCreate("k", create); v != 7 {
			t.Errorf("GetOrCreate() = %d, want 7", v)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats() hits=%d misses=%d, want 2 and 1", s.Hits, s.Misses)
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	var gone []string
	c := NewWithEvict[string, int](0, func(k string, _ int) { gone = append(gone, k) })
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if !c.Delete("b") {
		t.Error("Delete(b) = false, want true")
	}
	if c.Delete("b") {
		t.Error("second Delete(b) = true, want false")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
	if diff := cmp.Diff([]string{"b", "c", "a"}, gone); diff != "" {
		t.Errorf("evicted mismatch (-want +got):\n%s", diff)
	}
}

func TestCache_HookMayReenter(t *testing.T) {
	var c *Cache[int, int]
	c = NewWithEvict[int, int](0, func(k, _ int) {
		// Must not deadlock.
		_ = c.Len()
	})
	c.Set(1, 1)
	c.Delete(1)
}

func TestCache_RangeOrder(t *testing.T) {
	c := New[int, int](0)
	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3)
	c.Get(1)

	var keys []int
	c.Range(func(k, _ int) bool {
		keys = append(keys, k)
		return true
	})
	if diff := cmp.Diff([]int{1, 3, 2}, keys); diff != "" {
		t.Errorf("Range order mismatch (-want +got):\n%s", diff)
	}
}

func BenchmarkCacheGet(b *testing.B) {
	c := New[uint64, int](256)
	for i := range uint64(256) {
		c.Set(i, int(i))
	}
	b.ReportAllocs()
	var k uint64
	for b.Loop() {
		c.Get(k & 255)
		k++
	}
}
