// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/resource"
)

// readback reads the first element of a custom resource back to the host
// through a staging resource. Reads lag behind by however many frames the
// device needs to finish the copy.
type readback struct {
	custom  *resource.Custom
	staging backend.Resource
	format  gputypes.TextureFormat
	pending bool
	values  [4]float32
}

func (r *Runtime) readbackFor(c *resource.Custom) *readback {
	rb, ok := r.readbacks[c]
	if !ok {
		rb = &readback{custom: c}
		r.readbacks[c] = rb
	}
	return rb
}

// value returns component comp of the last completed read and issues a
// fresh read for the following frame. A read still in flight keeps the
// previous value.
func (rb *readback) value(c *Context, comp int) float32 {
	b := c.rt.backend
	if rb.pending {
		data, err := b.Map(rb.staging)
		switch {
		case err == nil:
			rb.values = decodeTexel(data, rb.format)
			b.Unmap(rb.staging)
		case errors.Is(err, backend.ErrNotReady):
			migoto.Logger().Debug("command: readback pending", "resource", rb.custom.Name)
		default:
			migoto.Logger().Warn("command: readback failed", "resource", rb.custom.Name, "err", err)
			rb.release()
		}
	}
	rb.issue(c)
	return rb.values[comp&3]
}

// issue copies the first element of the resource into the staging
// resource.
func (rb *readback) issue(c *Context) {
	b := c.rt.backend
	rb.custom.Substantiate(&c.env)
	src := rb.custom.Resolved()
	defer src.Release()
	if src.Resource == nil {
		return
	}
	sd := src.Resource.Desc()

	var desc backend.ResourceDesc
	var box backend.Box
	if sd.Kind == backend.KindBuffer {
		desc = backend.BufferDesc(16, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
		box = backend.Box{Left: src.Offset, Right: src.Offset + 16, Bottom: 1, Back: 1}
		rb.format = src.Format
	} else {
		desc = backend.Texture2DDesc(1, 1, sd.Format(), gputypes.TextureUsageCopyDst)
		box = backend.Box{Right: 1, Bottom: 1, Back: 1}
		rb.format = sd.Format()
	}
	desc.Misc |= backend.MiscStaging
	desc.SetLabel("readback " + rb.custom.Name)

	if rb.staging != nil && (!backend.SameDevice(rb.staging.Device(), b.Device()) || rb.staging.Desc().Format() != desc.Format()) {
		rb.release()
	}
	if rb.staging == nil {
		st, err := b.CreateResource(desc, nil)
		if err != nil {
			migoto.Logger().Warn("command: creating readback staging failed", "resource", rb.custom.Name, "err", err)
			return
		}
		rb.staging = st
	}
	if err := b.CopyRegion(rb.staging, 0, 0, 0, src.Resource, &box); err != nil {
		migoto.Logger().Warn("command: readback copy failed", "resource", rb.custom.Name, "err", err)
		return
	}
	rb.pending = true
}

func (rb *readback) release() {
	backend.Release(rb.staging)
	rb.staging = nil
	rb.pending = false
}

// decodeTexel converts the first texel of data to up to four floats.
// Buffers without a format are read as float32 words.
func decodeTexel(data []byte, format gputypes.TextureFormat) [4]float32 {
	var out [4]float32
	switch format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatR8Unorm, gputypes.TextureFormatRG8Unorm:
		n := min(len(data), int(backend.FormatSize(format)))
		for i := range n {
			out[i] = float32(data[i]) / 255
		}
		return out
	case gputypes.TextureFormatR32Uint, gputypes.TextureFormatRG32Uint, gputypes.TextureFormatRGBA32Uint:
		for i := 0; i < 4 && 4*i+4 <= len(data) && 4*i < int(backend.FormatSize(format)); i++ {
			out[i] = float32(binary.LittleEndian.Uint32(data[4*i:]))
		}
		return out
	}
	limit := 16
	if format != gputypes.TextureFormatUndefined {
		limit = int(backend.FormatSize(format))
	}
	for i := 0; i < 4 && 4*i+4 <= len(data) && 4*i < limit; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return out
}
