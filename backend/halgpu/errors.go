// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import "errors"

// Package errors for the HAL backend.
var (
	// ErrNoHALBackend is returned when the requested HAL backend is not
	// compiled in.
	ErrNoHALBackend = errors.New("halgpu: HAL backend not registered")

	// ErrNoAdapter is returned when the HAL instance exposes no adapter.
	ErrNoAdapter = errors.New("halgpu: no adapter available")

	// ErrInvalidDesc is returned for resource descriptions the device
	// cannot create.
	ErrInvalidDesc = errors.New("halgpu: invalid resource description")
)
