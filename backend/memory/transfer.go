// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package memory

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/migoto/backend"
)

// CopyResource implements backend.Transfer.
func (b *Backend) CopyResource(dst, src backend.Resource) error {
	b.copies++
	d, err := b.own(dst)
	if err != nil {
		return err
	}
	s, err := b.own(src)
	if err != nil {
		return err
	}
	if len(d.data) != len(s.data) || d.desc.Kind != s.desc.Kind {
		return fmt.Errorf("memory: copy %v (%d bytes) to %v (%d bytes): size mismatch",
			s.desc.Kind, len(s.data), d.desc.Kind, len(d.data))
	}
	copy(d.data, s.data)
	b.written(d)
	return nil
}

// written marks d as being written by the GPU this frame. A write queued
// while an earlier one is still in flight completes with it.
func (b *Backend) written(d *Resource) {
	if d.readyFrame > b.frame {
		return
	}
	d.readyFrame = b.frame + b.mapLatency
}

// CopyRegion implements backend.Transfer.
func (b *Backend) CopyRegion(dst backend.Resource, dstX, dstY, dstZ uint32, src backend.Resource, box *backend.Box) error {
	b.copies++
	d, err := b.own(dst)
	if err != nil {
		return err
	}
	s, err := b.own(src)
	if err != nil {
		return err
	}

	if s.desc.Kind == backend.KindBuffer || d.desc.Kind == backend.KindBuffer {
		left, right := uint64(0), uint64(len(s.data))
		if box != nil {
			left, right = uint64(box.Left), min(uint64(box.Right), uint64(len(s.data)))
		}
		if left >= right || uint64(dstX) >= uint64(len(d.data)) {
			return nil
		}
		copy(d.data[dstX:], s.data[left:right])
		b.written(d)
		return nil
	}

	st, dt := s.desc.Texture, d.desc.Texture
	texel := backend.FormatSize(st.Format) * max(st.SampleCount, 1)
	if backend.FormatSize(dt.Format)*max(dt.SampleCount, 1) != texel {
		return fmt.Errorf("memory: region copy between %v and %v: %w", st.Format, dt.Format, backend.ErrUnsupported)
	}
	bx := backend.Box{Right: st.Size.Width, Bottom: max(st.Size.Height, 1), Back: max(st.Size.DepthOrArrayLayers, 1)}
	if box != nil {
		bx = *box
	}
	sw, sh := st.Size.Width, max(st.Size.Height, 1)
	dw, dh, dd := dt.Size.Width, max(dt.Size.Height, 1), max(dt.Size.DepthOrArrayLayers, 1)
	for z := bx.Front; z < bx.Back; z++ {
		tz := dstZ + z - bx.Front
		if tz >= dd {
			break
		}
		for y := bx.Top; y < bx.Bottom && y < sh; y++ {
			ty := dstY + y - bx.Top
			if ty >= dh {
				break
			}
			right := min(bx.Right, sw, bx.Left+dw-dstX)
			if bx.Left >= right || dstX >= dw {
				continue
			}
			so := (uint64(z)*uint64(sh)*uint64(sw) + uint64(y)*uint64(sw) + uint64(bx.Left)) * uint64(texel)
			do := (uint64(tz)*uint64(dh)*uint64(dw) + uint64(ty)*uint64(dw) + uint64(dstX)) * uint64(texel)
			n := uint64(right-bx.Left) * uint64(texel)
			copy(d.data[do:do+n], s.data[so:so+n])
		}
	}
	b.written(d)
	return nil
}

// ResolveSubresource implements backend.Transfer. Each destination texel
// receives the first sample of the source texel.
func (b *Backend) ResolveSubresource(dst backend.Resource, _ uint32, src backend.Resource, _ uint32, format gputypes.TextureFormat) error {
	d, err := b.own(dst)
	if err != nil {
		return err
	}
	s, err := b.own(src)
	if err != nil {
		return err
	}
	if !b.FormatSupport(format).Has(backend.FormatSupportResolve) {
		return fmt.Errorf("memory: resolve of %v: %w", format, backend.ErrUnsupported)
	}
	samples := uint64(max(s.desc.Texture.SampleCount, 1))
	texel := uint64(backend.FormatSize(format))
	n := min(uint64(len(d.data))/texel, uint64(len(s.data))/(texel*samples))
	for i := range n {
		copy(d.data[i*texel:(i+1)*texel], s.data[i*texel*samples:])
	}
	b.written(d)
	return nil
}

// Map implements backend.Transfer.
func (b *Backend) Map(res backend.Resource) ([]byte, error) {
	r, err := b.own(res)
	if err != nil {
		return nil, err
	}
	if r.desc.Misc&backend.MiscStaging == 0 && !r.desc.Buffer.Usage.Contains(gputypes.BufferUsageMapRead) {
		return nil, fmt.Errorf("memory: map of non-staging %v: %w", r.desc.Kind, backend.ErrUnsupported)
	}
	if b.frame < r.readyFrame {
		return nil, backend.ErrNotReady
	}
	r.mapped = true
	return append([]byte(nil), r.data...), nil
}

// Unmap implements backend.Transfer.
func (b *Backend) Unmap(res backend.Resource) {
	if r, err := b.own(res); err == nil {
		r.mapped = false
	}
}

// ClearRenderTarget implements backend.Transfer.
func (b *Backend) ClearRenderTarget(v backend.View, color gputypes.Color) {
	b.clears = append(b.clears, Clear{Kind: backend.ViewRenderTarget, View: v, Color: color})
	if r := b.viewResource(v); r != nil {
		fill(r.data, encodeColor(r.desc.Format(), color))
		b.written(r)
	}
}

// ClearDepthStencil implements backend.Transfer.
func (b *Backend) ClearDepthStencil(v backend.View, depth float32, stencil uint8) {
	b.clears = append(b.clears, Clear{Kind: backend.ViewDepthStencil, View: v, Depth: depth, Values: [4]uint32{uint32(stencil)}})
	if r := b.viewResource(v); r != nil {
		var px [4]byte
		binary.LittleEndian.PutUint32(px[:], math.Float32bits(depth))
		fill(r.data, px[:])
		b.written(r)
	}
}

// ClearUnorderedAccessFloat implements backend.Transfer.
func (b *Backend) ClearUnorderedAccessFloat(v backend.View, values [4]float32) {
	var bits [4]uint32
	for i, f := range values {
		bits[i] = math.Float32bits(f)
	}
	b.clearUAV(v, bits)
}

// ClearUnorderedAccessUint implements backend.Transfer.
func (b *Backend) ClearUnorderedAccessUint(v backend.View, values [4]uint32) {
	b.clearUAV(v, values)
}

func (b *Backend) clearUAV(v backend.View, values [4]uint32) {
	b.clears = append(b.clears, Clear{Kind: backend.ViewUnorderedAccess, View: v, Values: values})
	r := b.viewResource(v)
	if r == nil {
		return
	}
	comps := 1
	if f := r.desc.Format(); f != gputypes.TextureFormatUndefined {
		comps = int(max(backend.FormatSize(f)/4, 1))
	}
	px := make([]byte, 4*comps)
	for i := range comps {
		binary.LittleEndian.PutUint32(px[4*i:], values[i])
	}
	fill(r.data, px)
	b.written(r)
}

func (b *Backend) viewResource(v backend.View) *Resource {
	if v == nil {
		return nil
	}
	r, err := b.own(v.Resource())
	if err != nil {
		return nil
	}
	return r
}

// fill repeats pattern over data.
func fill(data, pattern []byte) {
	if len(pattern) == 0 {
		return
	}
	for i := 0; i < len(data); i += len(pattern) {
		copy(data[i:], pattern)
	}
}

// encodeColor encodes color as one texel of format.
func encodeColor(format gputypes.TextureFormat, c gputypes.Color) []byte {
	unorm := func(v float64) byte { return byte(math.Round(math.Max(0, math.Min(1, v)) * 255)) }
	switch format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
		return []byte{unorm(c.R), unorm(c.G), unorm(c.B), unorm(c.A)}
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return []byte{unorm(c.B), unorm(c.G), unorm(c.R), unorm(c.A)}
	case gputypes.TextureFormatR8Unorm:
		return []byte{unorm(c.R)}
	}
	n := backend.FormatSize(format) / 4
	comps := [4]float64{c.R, c.G, c.B, c.A}
	out := make([]byte, 4*max(n, 1))
	for i := range max(n, 1) {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(float32(comps[i])))
	}
	return out
}
