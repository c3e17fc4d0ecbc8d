// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
)

// renderPass encodes fn in a pass over the bound render targets with the
// bound viewport, scissor and buffers set.
func (b *Backend) renderPass(label string, fn func(p hal.RenderPassEncoder)) {
	rtvs, dsv := b.RenderTargets()
	defer backend.Release(dsv)
	defer backend.Release(rtvs...)

	desc := &hal.RenderPassDescriptor{Label: label}
	for _, v := range rtvs {
		if hv := b.view(v); hv != nil && hv.tv != nil {
			desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
				View:    hv.tv,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			})
		}
	}
	if hv := b.view(dsv); hv != nil && hv.tv != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:         hv.tv,
			DepthLoadOp:  gputypes.LoadOpLoad,
			DepthStoreOp: gputypes.StoreOpStore,
		}
	}

	var vbs []*Resource
	var offsets []uint32
	for slot := range backend.MaxVertexBuffers {
		res, _, off := b.VertexBuffer(slot)
		if res == nil {
			vbs = append(vbs, nil)
			offsets = append(offsets, 0)
			continue
		}
		r, _ := b.own(res)
		vbs = append(vbs, r)
		offsets = append(offsets, off)
		defer res.Release()
	}
	ib, ibFormat, ibOffset := b.IndexBuffer()
	if ib != nil {
		defer ib.Release()
	}

	_, err := b.encode(label, func(enc hal.CommandEncoder) {
		p := enc.BeginRenderPass(desc)
		if vp := b.Viewport(); vp.Width > 0 && vp.Height > 0 {
			p.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
		}
		if sc := b.Scissor(); sc.Left >= 0 && sc.Top >= 0 && sc.Right > sc.Left && sc.Bottom > sc.Top {
			p.SetScissorRect(uint32(sc.Left), uint32(sc.Top), uint32(sc.Right-sc.Left), uint32(sc.Bottom-sc.Top)) // #nosec G115 -- checked above
		}
		for slot, r := range vbs {
			if r != nil && r.buf != nil {
				p.SetVertexBuffer(uint32(slot), r.buf, uint64(offsets[slot])) // #nosec G115 -- slot < MaxVertexBuffers
			}
		}
		if r, err := b.own(ib); err == nil && r.buf != nil {
			p.SetIndexBuffer(r.buf, ibFormat, uint64(ibOffset))
		}
		fn(p)
		p.End()
	})
	if err != nil {
		migoto.Logger().Warn("halgpu: draw failed", "op", label, "err", err)
		return
	}
	b.draws++
}

func (b *Backend) computePass(label string, fn func(p hal.ComputePassEncoder)) {
	_, err := b.encode(label, func(enc hal.CommandEncoder) {
		p := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
		fn(p)
		p.End()
	})
	if err != nil {
		migoto.Logger().Warn("halgpu: dispatch failed", "op", label, "err", err)
		return
	}
	b.draws++
}

// indirect returns the HAL buffer of an argument resource, or nil.
func (b *Backend) indirect(args backend.Resource) hal.Buffer {
	r, err := b.own(args)
	if err != nil || r.buf == nil {
		migoto.Logger().Debug("halgpu: indirect arguments are not a buffer", "err", err)
		return nil
	}
	return r.buf
}

// Draw implements backend.Draws.
func (b *Backend) Draw(vertexCount, startVertex uint32) {
	b.renderPass("Draw", func(p hal.RenderPassEncoder) {
		p.Draw(vertexCount, 1, startVertex, 0)
	})
}

// DrawIndexed implements backend.Draws.
func (b *Backend) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	b.renderPass("DrawIndexed", func(p hal.RenderPassEncoder) {
		p.DrawIndexed(indexCount, 1, startIndex, baseVertex, 0)
	})
}

// DrawInstanced implements backend.Draws.
func (b *Backend) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	b.renderPass("DrawInstanced", func(p hal.RenderPassEncoder) {
		p.Draw(vertexCount, instanceCount, startVertex, startInstance)
	})
}

// DrawIndexedInstanced implements backend.Draws.
func (b *Backend) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	b.renderPass("DrawIndexedInstanced", func(p hal.RenderPassEncoder) {
		p.DrawIndexed(indexCount, instanceCount, startIndex, baseVertex, startInstance)
	})
}

// DrawAuto implements backend.Draws. WebGPU has no stream output, so
// there is nothing to draw from.
func (b *Backend) DrawAuto() {
	migoto.Logger().Debug("halgpu: DrawAuto is not supported by the HAL")
}

// DrawInstancedIndirect implements backend.Draws.
func (b *Backend) DrawInstancedIndirect(args backend.Resource, offset uint32) {
	if buf := b.indirect(args); buf != nil {
		b.renderPass("DrawInstancedIndirect", func(p hal.RenderPassEncoder) {
			p.DrawIndirect(buf, uint64(offset))
		})
	}
}

// DrawIndexedInstancedIndirect implements backend.Draws.
func (b *Backend) DrawIndexedInstancedIndirect(args backend.Resource, offset uint32) {
	if buf := b.indirect(args); buf != nil {
		b.renderPass("DrawIndexedInstancedIndirect", func(p hal.RenderPassEncoder) {
			p.DrawIndexedIndirect(buf, uint64(offset))
		})
	}
}

// Dispatch implements backend.Draws.
func (b *Backend) Dispatch(x, y, z uint32) {
	b.computePass("Dispatch", func(p hal.ComputePassEncoder) {
		p.Dispatch(x, y, z)
	})
}

// DispatchIndirect implements backend.Draws.
func (b *Backend) DispatchIndirect(args backend.Resource, offset uint32) {
	if buf := b.indirect(args); buf != nil {
		b.computePass("DispatchIndirect", func(p hal.ComputePassEncoder) {
			p.DispatchIndirect(buf, uint64(offset))
		})
	}
}
