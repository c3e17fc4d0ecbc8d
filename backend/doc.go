// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend defines the graphics backend the scripting core drives.
//
// A Backend exposes the pipeline binding points per stage and slot kind,
// resource and view creation, copy, region copy and resolve primitives,
// map/unmap for readback and the draw and dispatch entry points. Backends
// may also implement Stereo.
//
// # Reference counting
//
// Resources and views are reference counted. Every getter returns a
// reference owned by the caller, which must release it exactly once; every
// setter takes its own reference. State implements this bookkeeping for
// backend implementations.
//
// # Backend Registration
//
// Implementations register a factory from init():
//
//	import _ "github.com/gogpu/migoto/backend/memory"
//
//	b, err := backend.Open("memory")
//
// Default returns the highest priority registered backend.
package backend
