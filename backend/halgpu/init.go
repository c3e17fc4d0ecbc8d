// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/noop" // registers the noop HAL backend

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
)

// init registers the noop HAL device as the "hal-noop" backend.
func init() {
	backend.Register(backend.NameHAL, func() backend.Backend {
		b, err := Open(gputypes.BackendEmpty)
		if err != nil {
			migoto.Logger().Warn("halgpu: opening noop device failed", "err", err)
			return nil
		}
		return b
	})
}
