// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package resource resolves symbolic binding points and moves resources
// between them.
//
// A Target names a binding point such as "ps-t0", "o1", "vb0" or a custom
// resource "ResourceFoo". Resolving a target against an Env returns a
// Resolved holding owned references to whatever is bound there; Bind puts
// a Resolved back. Render targets and stream outputs are exposed by the
// backend only as whole arrays, so binding one slot rewrites the array
// with that slot replaced.
//
// Copy implements "dst = [options] src". Without an explicit copy or ref
// option DefaultMethod decides between binding the source itself and
// copying it into a destination recreated from the source shape. Recreated
// destinations come from a Pool keyed by the structural hash of their
// shape, so a copy that runs every frame allocates once per device.
//
// Custom resources are created on first use from an image or raw file,
// from an Override shape, or left empty until a copy assigns them, and are
// recreated when the backend reports a new device.
//
// Nothing here is safe for concurrent use. All of it runs on the render
// thread.
package resource
