// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"time"

	"github.com/gogpu/gpucontext"
)

// DefaultMaxRecursion is the default limit on nested list invocations.
const DefaultMaxRecursion = 64

// Option configures a Runtime during creation.
//
// Example:
//
//	rt := command.New(b,
//		command.WithMaxRecursion(32),
//		command.WithWindow(window),
//	)
type Option func(*options)

type options struct {
	maxRecursion int
	clock        func() time.Duration
	window       gpucontext.WindowProvider
	cursor       gpucontext.PointerEventSource
}

func defaultOptions() options {
	start := time.Now()
	return options{
		maxRecursion: DefaultMaxRecursion,
		clock:        func() time.Duration { return time.Since(start) },
	}
}

// WithMaxRecursion sets the limit on nested list invocations. Values below
// 1 keep the default.
func WithMaxRecursion(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRecursion = n
		}
	}
}

// WithClock sets the source of the time operand, the elapsed time since
// the runtime started.
func WithClock(clock func() time.Duration) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithWindow sets the window the window_width and window_height operands
// read.
func WithWindow(w gpucontext.WindowProvider) Option {
	return func(o *options) {
		o.window = w
	}
}

// WithCursor subscribes the cursor_x and cursor_y operands to pointer
// events from src.
func WithCursor(src gpucontext.PointerEventSource) Option {
	return func(o *options) {
		o.cursor = src
	}
}
