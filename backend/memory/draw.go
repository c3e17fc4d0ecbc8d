// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package memory

import (
	"github.com/gogpu/migoto/backend"
)

func (b *Backend) record(c backend.DrawCall) {
	b.calls = append(b.calls, c)
}

// Draw implements backend.Draws.
func (b *Backend) Draw(vertexCount, startVertex uint32) {
	b.record(backend.DrawCall{Type: backend.CallDraw, VertexCount: vertexCount, FirstVertex: startVertex})
}

// DrawIndexed implements backend.Draws.
func (b *Backend) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	b.record(backend.DrawCall{Type: backend.CallDrawIndexed, IndexCount: indexCount, FirstIndex: startIndex, BaseVertex: baseVertex})
}

// DrawInstanced implements backend.Draws.
func (b *Backend) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	b.record(backend.DrawCall{
		Type:          backend.CallDrawInstanced,
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   startVertex,
		FirstInstance: startInstance,
	})
}

// DrawIndexedInstanced implements backend.Draws.
func (b *Backend) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	b.record(backend.DrawCall{
		Type:          backend.CallDrawIndexedInstanced,
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    startIndex,
		BaseVertex:    baseVertex,
		FirstInstance: startInstance,
	})
}

// DrawAuto implements backend.Draws.
func (b *Backend) DrawAuto() {
	b.record(backend.DrawCall{Type: backend.CallDrawAuto})
}

// DrawInstancedIndirect implements backend.Draws.
func (b *Backend) DrawInstancedIndirect(args backend.Resource, offset uint32) {
	b.record(backend.DrawCall{Type: backend.CallDrawInstancedIndirect, IndirectArgs: args, IndirectOffset: offset})
}

// DrawIndexedInstancedIndirect implements backend.Draws.
func (b *Backend) DrawIndexedInstancedIndirect(args backend.Resource, offset uint32) {
	b.record(backend.DrawCall{Type: backend.CallDrawIndexedInstancedIndirect, IndirectArgs: args, IndirectOffset: offset})
}

// Dispatch implements backend.Draws.
func (b *Backend) Dispatch(x, y, z uint32) {
	b.record(backend.DrawCall{Type: backend.CallDispatch, ThreadGroups: [3]uint32{x, y, z}})
}

// DispatchIndirect implements backend.Draws.
func (b *Backend) DispatchIndirect(args backend.Resource, offset uint32) {
	b.record(backend.DrawCall{Type: backend.CallDispatchIndirect, IndirectArgs: args, IndirectOffset: offset})
}
