// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

// CallType identifies the API entry point of a draw or dispatch.
type CallType uint8

const (
	CallNone CallType = iota
	CallDraw
	CallDrawIndexed
	CallDrawInstanced
	CallDrawIndexedInstanced
	CallDrawInstancedIndirect
	CallDrawIndexedInstancedIndirect
	CallDrawAuto
	CallDispatch
	CallDispatchIndirect
)

var callTypeNames = [...]string{
	CallNone:                         "None",
	CallDraw:                         "Draw",
	CallDrawIndexed:                  "DrawIndexed",
	CallDrawInstanced:                "DrawInstanced",
	CallDrawIndexedInstanced:         "DrawIndexedInstanced",
	CallDrawInstancedIndirect:        "DrawInstancedIndirect",
	CallDrawIndexedInstancedIndirect: "DrawIndexedInstancedIndirect",
	CallDrawAuto:                     "DrawAuto",
	CallDispatch:                     "Dispatch",
	CallDispatchIndirect:             "DispatchIndirect",
}

// String returns the entry point name.
func (c CallType) String() string {
	if int(c) < len(callTypeNames) {
		return callTypeNames[c]
	}
	return "Unknown"
}

// IsIndirect reports whether the arguments live in a GPU buffer.
func (c CallType) IsIndirect() bool {
	return c == CallDrawInstancedIndirect || c == CallDrawIndexedInstancedIndirect || c == CallDispatchIndirect
}

// IsDispatch reports whether c is a compute dispatch.
func (c CallType) IsDispatch() bool {
	return c == CallDispatch || c == CallDispatchIndirect
}

// DrawCall describes the intercepted call a command list runs around.
type DrawCall struct {
	Type CallType

	VertexCount   uint32
	IndexCount    uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstIndex    uint32
	FirstInstance uint32
	BaseVertex    int32

	ThreadGroups [3]uint32

	// IndirectArgs and IndirectOffset locate the arguments of indirect calls.
	// The reference is borrowed from the caller.
	IndirectArgs   Resource
	IndirectOffset uint32

	// Skip is set by command lists that want the original call dropped.
	Skip bool
}

// Replay issues the call described by c on d.
func (c *DrawCall) Replay(d Draws) {
	switch c.Type {
	case CallDraw:
		d.Draw(c.VertexCount, c.FirstVertex)
	case CallDrawIndexed:
		d.DrawIndexed(c.IndexCount, c.FirstIndex, c.BaseVertex)
	case CallDrawInstanced:
		d.DrawInstanced(c.VertexCount, c.InstanceCount, c.FirstVertex, c.FirstInstance)
	case CallDrawIndexedInstanced:
		d.DrawIndexedInstanced(c.IndexCount, c.InstanceCount, c.FirstIndex, c.BaseVertex, c.FirstInstance)
	case CallDrawInstancedIndirect:
		if c.IndirectArgs != nil {
			d.DrawInstancedIndirect(c.IndirectArgs, c.IndirectOffset)
		}
	case CallDrawIndexedInstancedIndirect:
		if c.IndirectArgs != nil {
			d.DrawIndexedInstancedIndirect(c.IndirectArgs, c.IndirectOffset)
		}
	case CallDrawAuto:
		d.DrawAuto()
	case CallDispatch:
		d.Dispatch(c.ThreadGroups[0], c.ThreadGroups[1], c.ThreadGroups[2])
	case CallDispatchIndirect:
		if c.IndirectArgs != nil {
			d.DispatchIndirect(c.IndirectArgs, c.IndirectOffset)
		}
	}
}
