// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package halgpu implements the migoto backend on a wgpu HAL device.
//
// Resources map to HAL buffers and textures, transfers and clears are
// recorded into command encoders and submitted to the device queue, and
// draws are encoded against the bound render targets and buffers. Staging
// textures are backed by mappable buffers, the way WebGPU reads textures
// back.
//
// Importing the package registers the "hal-noop" backend, which opens the
// wgpu noop device. The noop device accepts every command and keeps the
// contents written through its queue, so command lists can be exercised
// end to end without a GPU:
//
//	import _ "github.com/gogpu/migoto/backend/halgpu"
//
//	b, err := backend.Open(backend.NameHAL)
//
// Other HAL backends are reached with [Open].
package halgpu
