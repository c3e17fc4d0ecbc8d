// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package migoto

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost in the per-draw
// hot path.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called from a control goroutine while the render
// thread is logging.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for migoto and all its sub-packages.
// By default, migoto produces no log output. Call SetLogger to enable logging.
//
// The logger is also handed to the wgpu HAL so that device level messages
// from the halgpu backend end up in the same sink.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by migoto:
//   - [slog.LevelDebug]: per-frame diagnostics (pending readbacks, pool hits, skipped copies)
//   - [slog.LevelInfo]: lifecycle events (backend opened, command lists optimised)
//   - [slog.LevelWarn]: degraded behavior (recursion limit, ill-formed blocks, creation failures)
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	migoto.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	hal.SetLogger(l)
}

// Logger returns the current logger used by migoto.
// Sub-packages (command, resource, backend/...) call this to share the same
// logger configuration without introducing import cycles.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
