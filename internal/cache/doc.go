// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides a generic LRU cache with an eviction hook.
//
// The resource pools use it to keep recreated GPU resources keyed by a
// structural hash of their shape. Values that leave the cache are handed to
// the eviction hook so that their backend references can be released:
//
//	c := cache.NewWithEvict[uint64, *entry](256, func(_ uint64, e *entry) {
//	    e.release()
//	})
//	c.Set(hash, e)
//	e, ok := c.Get(hash)
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
