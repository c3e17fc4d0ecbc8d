// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
)

// CopyResource implements backend.Transfer.
func (b *Backend) CopyResource(dst, src backend.Resource) error {
	return b.CopyRegion(dst, 0, 0, 0, src, nil)
}

// CopyRegion implements backend.Transfer.
func (b *Backend) CopyRegion(dst backend.Resource, dstX, dstY, dstZ uint32, src backend.Resource, box *backend.Box) error {
	d, err := b.own(dst)
	if err != nil {
		return err
	}
	s, err := b.own(src)
	if err != nil {
		return err
	}
	if !backend.SameDevice(d.dev, b.dev) || !backend.SameDevice(s.dev, b.dev) {
		return fmt.Errorf("halgpu: copy across devices: %w", backend.ErrInvalidResource)
	}

	var record func(enc hal.CommandEncoder)
	switch {
	case s.buf != nil && d.buf != nil && s.desc.Kind == backend.KindBuffer:
		lo, hi := uint64(0), s.size()
		if box != nil {
			lo, hi = uint64(box.Left), min(uint64(box.Right), hi)
		}
		if hi <= lo || uint64(dstX) >= d.size() {
			return nil
		}
		region := hal.BufferCopy{SrcOffset: lo, DstOffset: uint64(dstX), Size: min(hi-lo, d.size()-uint64(dstX))}
		record = func(enc hal.CommandEncoder) {
			enc.CopyBufferToBuffer(s.buf, d.buf, []hal.BufferCopy{region})
		}
	case s.tex != nil && d.tex != nil:
		origin, size := texBox(s, box)
		region := hal.TextureCopy{
			SrcBase: hal.ImageCopyTexture{Texture: s.tex, Origin: origin, Aspect: gputypes.TextureAspectAll},
			DstBase: hal.ImageCopyTexture{Texture: d.tex, Origin: hal.Origin3D{X: dstX, Y: dstY, Z: dstZ}, Aspect: gputypes.TextureAspectAll},
			Size:    size,
		}
		record = func(enc hal.CommandEncoder) {
			enc.CopyTextureToTexture(s.tex, d.tex, []hal.TextureCopy{region})
		}
	case s.tex != nil:
		origin, size := texBox(s, box)
		pitch := s.rowPitch()
		if d.desc.Kind.IsTexture() {
			pitch = d.rowPitch()
		}
		texel := uint64(backend.FormatSize(s.desc.Texture.Format))
		offset := (uint64(dstZ)*uint64(max(d.desc.Texture.Size.Height, 1))+uint64(dstY))*uint64(pitch) + uint64(dstX)*texel
		region := hal.BufferTextureCopy{
			BufferLayout: hal.ImageDataLayout{Offset: offset, BytesPerRow: pitch, RowsPerImage: max(d.desc.Texture.Size.Height, size.Height)},
			TextureBase:  hal.ImageCopyTexture{Texture: s.tex, Origin: origin, Aspect: gputypes.TextureAspectAll},
			Size:         size,
		}
		record = func(enc hal.CommandEncoder) {
			enc.CopyTextureToBuffer(s.tex, d.buf, []hal.BufferTextureCopy{region})
		}
	case d.tex != nil:
		_, size := texBox(d, nil)
		if box != nil {
			size = hal.Extent3D{
				Width:              box.Right - box.Left,
				Height:             max(box.Bottom-box.Top, 1),
				DepthOrArrayLayers: max(box.Back-box.Front, 1),
			}
		}
		region := hal.BufferTextureCopy{
			BufferLayout: hal.ImageDataLayout{BytesPerRow: d.rowPitch(), RowsPerImage: size.Height},
			TextureBase:  hal.ImageCopyTexture{Texture: d.tex, Origin: hal.Origin3D{X: dstX, Y: dstY, Z: dstZ}, Aspect: gputypes.TextureAspectAll},
			Size:         size,
		}
		if s.desc.Kind.IsTexture() {
			region.BufferLayout.BytesPerRow = s.rowPitch()
		}
		record = func(enc hal.CommandEncoder) {
			enc.CopyBufferToTexture(s.buf, d.tex, []hal.BufferTextureCopy{region})
		}
	default:
		lo, hi := uint64(0), min(s.size(), d.size())
		if box != nil {
			lo = min(uint64(box.Left), hi)
		}
		region := hal.BufferCopy{SrcOffset: lo, Size: hi - lo}
		record = func(enc hal.CommandEncoder) {
			enc.CopyBufferToBuffer(s.buf, d.buf, []hal.BufferCopy{region})
		}
	}

	idx, err := b.encode("CopyRegion", record)
	if err != nil {
		return err
	}
	d.written = idx
	return nil
}

// texBox returns the origin and extent of box within r, the whole top
// mip level when box is nil.
func texBox(r *Resource, box *backend.Box) (hal.Origin3D, hal.Extent3D) {
	whole := extent(r.desc)
	if box == nil {
		return hal.Origin3D{}, whole
	}
	clamp := func(lo, hi, limit uint32) uint32 {
		hi = min(hi, limit)
		if hi <= lo {
			return 1
		}
		return hi - lo
	}
	return hal.Origin3D{X: box.Left, Y: box.Top, Z: box.Front}, hal.Extent3D{
		Width:              clamp(box.Left, box.Right, whole.Width),
		Height:             clamp(box.Top, box.Bottom, whole.Height),
		DepthOrArrayLayers: clamp(box.Front, box.Back, whole.DepthOrArrayLayers),
	}
}

// ResolveSubresource implements backend.Transfer. The resolve runs as a
// render pass with src as the multisampled attachment.
func (b *Backend) ResolveSubresource(dst backend.Resource, dstSub uint32, src backend.Resource, srcSub uint32, format gputypes.TextureFormat) error {
	d, err := b.own(dst)
	if err != nil {
		return err
	}
	s, err := b.own(src)
	if err != nil {
		return err
	}
	if s.tex == nil || d.tex == nil || s.desc.Texture.SampleCount <= 1 || d.desc.Texture.SampleCount > 1 {
		return fmt.Errorf("halgpu: resolve %v into %v: %w", s.desc.Kind, d.desc.Kind, backend.ErrUnsupported)
	}
	sv, err := b.subresourceView(s, srcSub, format)
	if err != nil {
		return err
	}
	defer b.dev.hal.DestroyTextureView(sv)
	dv, err := b.subresourceView(d, dstSub, format)
	if err != nil {
		return err
	}
	defer b.dev.hal.DestroyTextureView(dv)

	idx, err := b.encode("ResolveSubresource", func(enc hal.CommandEncoder) {
		pass := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "ResolveSubresource",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:          sv,
				ResolveTarget: dv,
				LoadOp:        gputypes.LoadOpLoad,
				StoreOp:       gputypes.StoreOpStore,
			}},
		})
		pass.End()
	})
	if err != nil {
		return err
	}
	d.written = idx
	return nil
}

// subresourceView creates a single mip, single layer view of subresource
// sub, numbered mip first as in D3D.
func (b *Backend) subresourceView(r *Resource, sub uint32, format gputypes.TextureFormat) (hal.TextureView, error) {
	mips := max(r.desc.Texture.MipLevelCount, 1)
	tv, err := r.dev.hal.CreateTextureView(r.tex, &hal.TextureViewDescriptor{
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		BaseMipLevel:    sub % mips,
		MipLevelCount:   1,
		BaseArrayLayer:  sub / mips,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("halgpu: view of subresource %d: %w", sub, err)
	}
	return tv, nil
}

// Map implements backend.Transfer. Only staging resources can be mapped.
func (b *Backend) Map(res backend.Resource) ([]byte, error) {
	r, err := b.own(res)
	if err != nil {
		return nil, err
	}
	if r.buf == nil || !r.staging() {
		return nil, fmt.Errorf("halgpu: map of non-staging %v: %w", r.desc.Kind, backend.ErrUnsupported)
	}
	if r.written > r.dev.queue.PollCompleted() {
		return nil, backend.ErrNotReady
	}
	size := r.size()
	m, err := r.dev.hal.MapBuffer(r.buf, 0, size)
	if err != nil {
		return nil, fmt.Errorf("halgpu: map: %w", err)
	}
	r.mapped = true
	return append([]byte(nil), unsafe.Slice((*byte)(m.Ptr), size)...), nil
}

// Unmap implements backend.Transfer.
func (b *Backend) Unmap(res backend.Resource) {
	r, err := b.own(res)
	if err != nil || !r.mapped {
		return
	}
	r.mapped = false
	if err := r.dev.hal.UnmapBuffer(r.buf); err != nil {
		migoto.Logger().Warn("halgpu: unmap failed", "err", err)
	}
}

// ClearRenderTarget implements backend.Transfer.
func (b *Backend) ClearRenderTarget(v backend.View, color gputypes.Color) {
	hv := b.view(v)
	if hv == nil || hv.tv == nil {
		return
	}
	b.clearPass(hv, "ClearRenderTarget", &hal.RenderPassDescriptor{
		Label: "ClearRenderTarget",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       hv.tv,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: color,
		}},
	})
}

// ClearDepthStencil implements backend.Transfer.
func (b *Backend) ClearDepthStencil(v backend.View, depth float32, stencil uint8) {
	hv := b.view(v)
	if hv == nil || hv.tv == nil {
		return
	}
	att := &hal.RenderPassDepthStencilAttachment{
		View:            hv.tv,
		DepthLoadOp:     gputypes.LoadOpClear,
		DepthStoreOp:    gputypes.StoreOpStore,
		DepthClearValue: depth,
	}
	if hv.res.desc.Texture.Format.HasStencil() {
		att.StencilLoadOp = gputypes.LoadOpClear
		att.StencilStoreOp = gputypes.StoreOpStore
		att.StencilClearValue = uint32(stencil)
	}
	b.clearPass(hv, "ClearDepthStencil", &hal.RenderPassDescriptor{
		Label:                  "ClearDepthStencil",
		DepthStencilAttachment: att,
	})
}

func (b *Backend) clearPass(hv *View, label string, desc *hal.RenderPassDescriptor) {
	idx, err := b.encode(label, func(enc hal.CommandEncoder) {
		enc.BeginRenderPass(desc).End()
	})
	if err != nil {
		migoto.Logger().Warn("halgpu: clear failed", "op", label, "err", err)
		return
	}
	hv.res.written = idx
}

// ClearUnorderedAccessFloat implements backend.Transfer.
func (b *Backend) ClearUnorderedAccessFloat(v backend.View, values [4]float32) {
	var bits [4]uint32
	for i, f := range values {
		bits[i] = math.Float32bits(f)
	}
	b.clearUAV(v, bits, true)
}

// ClearUnorderedAccessUint implements backend.Transfer.
func (b *Backend) ClearUnorderedAccessUint(v backend.View, values [4]uint32) {
	b.clearUAV(v, values, false)
}

// clearUAV fills the view through the queue. Zero buffer clears are
// encoded as ClearBuffer.
func (b *Backend) clearUAV(v backend.View, values [4]uint32, float bool) {
	hv := b.view(v)
	if hv == nil {
		return
	}
	r := hv.res
	format := hv.desc.Format
	if format == gputypes.TextureFormatUndefined {
		format = r.desc.Format()
	}
	pattern := texel(format, values, float)

	if r.buf != nil {
		offset, size := hv.byteRange()
		if values == [4]uint32{} {
			idx, err := b.encode("ClearBuffer", func(enc hal.CommandEncoder) {
				enc.ClearBuffer(r.buf, offset, size)
			})
			if err != nil {
				migoto.Logger().Warn("halgpu: clear failed", "err", err)
				return
			}
			r.written = idx
			return
		}
		if err := r.dev.queue.WriteBuffer(r.buf, offset, fill(int(size), pattern)); err != nil { // #nosec G115 -- view ranges fit in memory
			migoto.Logger().Warn("halgpu: clear failed", "err", err)
		}
		return
	}

	ext := extent(r.desc)
	data := fill(int(r.size()), pattern) // #nosec G115 -- texture sizes fit in memory
	err := r.dev.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: r.tex, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: r.rowPitch(), RowsPerImage: ext.Height},
		&ext,
	)
	if err != nil {
		migoto.Logger().Warn("halgpu: clear failed", "err", err)
	}
}

// texel encodes one element of format from four clear values. Float
// values are converted for 8-bit normalized formats; everything else takes
// the raw 32-bit words.
func texel(format gputypes.TextureFormat, values [4]uint32, float bool) []byte {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		if float {
			out := make([]byte, 4)
			for i, w := range values {
				f := float64(math.Float32frombits(w))
				out[i] = byte(math.Round(math.Max(0, math.Min(1, f)) * 255))
			}
			if format == gputypes.TextureFormatBGRA8Unorm || format == gputypes.TextureFormatBGRA8UnormSrgb {
				out[0], out[2] = out[2], out[0]
			}
			return out
		}
	}
	n := backend.FormatSize(format)
	if format == gputypes.TextureFormatUndefined {
		n = 4
	}
	var words [16]byte
	for i, w := range values {
		binary.LittleEndian.PutUint32(words[4*i:], w)
	}
	return append([]byte(nil), words[:min(n, 16)]...)
}

func fill(n int, pattern []byte) []byte {
	out := make([]byte, n)
	if len(pattern) == 0 {
		return out
	}
	for i := 0; i < n; i += len(pattern) {
		copy(out[i:], pattern)
	}
	return out
}
