// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// CheckViewUsage reports whether a view described by vd may be created on
// a resource described by rd. The error wraps ErrUnsupported.
func CheckViewUsage(rd ResourceDesc, vd ViewDesc) error {
	if rd.Kind == KindBuffer {
		u := rd.Buffer.Usage
		switch vd.Kind {
		case ViewShaderResource:
			if u.Contains(gputypes.BufferUsageStorage) || u.Contains(gputypes.BufferUsageUniform) {
				return nil
			}
		case ViewUnorderedAccess:
			if u.Contains(gputypes.BufferUsageStorage) {
				return nil
			}
		}
		return fmt.Errorf("%v view of buffer with usage %#x: %w", vd.Kind, uint64(u), ErrUnsupported)
	}

	u := rd.Texture.Usage
	var need gputypes.TextureUsage
	switch vd.Kind {
	case ViewShaderResource:
		need = gputypes.TextureUsageTextureBinding
	case ViewUnorderedAccess:
		need = gputypes.TextureUsageStorageBinding
	case ViewRenderTarget, ViewDepthStencil:
		need = gputypes.TextureUsageRenderAttachment
	}
	if !u.Contains(need) {
		return fmt.Errorf("%v view of texture with usage %#x: %w", vd.Kind, uint64(u), ErrUnsupported)
	}
	format := vd.Format
	if format == gputypes.TextureFormatUndefined {
		format = rd.Texture.Format
	}
	if (vd.Kind == ViewDepthStencil) != format.IsDepthStencil() && vd.Kind != ViewShaderResource {
		return fmt.Errorf("%v view with format %v: %w", vd.Kind, format, ErrUnsupported)
	}
	return nil
}
