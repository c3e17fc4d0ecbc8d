// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"github.com/gogpu/gputypes"
)

// State tracks pipeline bindings with reference counting. Backends embed
// it to implement Bindings.
//
// State is not safe for concurrent use.
type State struct {
	cbs     [NumStages][MaxConstantBuffers]Resource
	srvs    [NumStages][MaxShaderResources]View
	uavs    [NumStages][MaxUnorderedAccess]View
	shaders [NumStages]Shader

	rtvs []View
	dsv  View

	vbs      [MaxVertexBuffers]vertexBinding
	ib       Resource
	ibFormat gputypes.IndexFormat
	ibOffset uint32

	sos       []Resource
	soOffsets []uint32

	viewport Viewport
	scissor  Rect

	backBuffer     Resource
	realBackBuffer Resource
}

type vertexBinding struct {
	res    Resource
	stride uint32
	offset uint32
}

func inRange(slot, n int) bool { return slot >= 0 && slot < n }

func addRef[T interface{ AddRef() }](v T) T {
	if any(v) != nil {
		v.AddRef()
	}
	return v
}

func swapRef[T interface {
	AddRef()
	Release() int
}](slot *T, v T) {
	addRef(v)
	if any(*slot) != nil {
		(*slot).Release()
	}
	*slot = v
}

// ConstantBuffer implements Bindings.
func (s *State) ConstantBuffer(stage ShaderStage, slot int) Resource {
	if stage >= NumStages || !inRange(slot, MaxConstantBuffers) {
		return nil
	}
	return addRef(s.cbs[stage][slot])
}

// SetConstantBuffer implements Bindings.
func (s *State) SetConstantBuffer(stage ShaderStage, slot int, res Resource) {
	if stage >= NumStages || !inRange(slot, MaxConstantBuffers) {
		return
	}
	swapRef(&s.cbs[stage][slot], res)
}

// ShaderResource implements Bindings.
func (s *State) ShaderResource(stage ShaderStage, slot int) View {
	if stage >= NumStages || !inRange(slot, MaxShaderResources) {
		return nil
	}
	return addRef(s.srvs[stage][slot])
}

// SetShaderResource implements Bindings.
func (s *State) SetShaderResource(stage ShaderStage, slot int, v View) {
	if stage >= NumStages || !inRange(slot, MaxShaderResources) {
		return
	}
	swapRef(&s.srvs[stage][slot], v)
}

// UnorderedAccess implements Bindings.
func (s *State) UnorderedAccess(stage ShaderStage, slot int) View {
	if stage >= NumStages || !inRange(slot, MaxUnorderedAccess) {
		return nil
	}
	return addRef(s.uavs[stage][slot])
}

// SetUnorderedAccess implements Bindings.
func (s *State) SetUnorderedAccess(stage ShaderStage, slot int, v View) {
	if stage >= NumStages || !inRange(slot, MaxUnorderedAccess) {
		return
	}
	swapRef(&s.uavs[stage][slot], v)
}

// RenderTargets implements Bindings. The returned slice is a copy.
func (s *State) RenderTargets() ([]View, View) {
	rtvs := make([]View, len(s.rtvs))
	for i, v := range s.rtvs {
		rtvs[i] = addRef(v)
	}
	return rtvs, addRef(s.dsv)
}

// SetRenderTargets implements Bindings.
func (s *State) SetRenderTargets(rtvs []View, dsv View) {
	if len(rtvs) > MaxRenderTargets {
		rtvs = rtvs[:MaxRenderTargets]
	}
	next := make([]View, len(rtvs))
	for i, v := range rtvs {
		next[i] = addRef(v)
	}
	Release(s.rtvs...)
	s.rtvs = next
	swapRef(&s.dsv, dsv)
}

// VertexBuffer implements Bindings.
func (s *State) VertexBuffer(slot int) (Resource, uint32, uint32) {
	if !inRange(slot, MaxVertexBuffers) {
		return nil, 0, 0
	}
	vb := s.vbs[slot]
	return addRef(vb.res), vb.stride, vb.offset
}

// SetVertexBuffer implements Bindings.
func (s *State) SetVertexBuffer(slot int, res Resource, stride, offset uint32) {
	if !inRange(slot, MaxVertexBuffers) {
		return
	}
	swapRef(&s.vbs[slot].res, res)
	s.vbs[slot].stride = stride
	s.vbs[slot].offset = offset
}

// IndexBuffer implements Bindings.
func (s *State) IndexBuffer() (Resource, gputypes.IndexFormat, uint32) {
	return addRef(s.ib), s.ibFormat, s.ibOffset
}

// SetIndexBuffer implements Bindings.
func (s *State) SetIndexBuffer(res Resource, format gputypes.IndexFormat, offset uint32) {
	swapRef(&s.ib, res)
	s.ibFormat = format
	s.ibOffset = offset
}

// StreamOutputs implements Bindings. The returned slices are copies.
func (s *State) StreamOutputs() ([]Resource, []uint32) {
	targets := make([]Resource, len(s.sos))
	for i, r := range s.sos {
		targets[i] = addRef(r)
	}
	return targets, append([]uint32(nil), s.soOffsets...)
}

// SetStreamOutputs implements Bindings.
func (s *State) SetStreamOutputs(targets []Resource, offsets []uint32) {
	if len(targets) > MaxStreamOutputs {
		targets = targets[:MaxStreamOutputs]
	}
	next := make([]Resource, len(targets))
	for i, r := range targets {
		next[i] = addRef(r)
	}
	Release(s.sos...)
	s.sos = next
	s.soOffsets = make([]uint32, len(targets))
	copy(s.soOffsets, offsets)
}

// Shader implements Bindings.
func (s *State) Shader(stage ShaderStage) Shader {
	if stage >= NumStages {
		return nil
	}
	return s.shaders[stage]
}

// SetShader implements Bindings.
func (s *State) SetShader(stage ShaderStage, sh Shader) {
	if stage >= NumStages {
		return
	}
	s.shaders[stage] = sh
}

// Viewport implements Bindings.
func (s *State) Viewport() Viewport { return s.viewport }

// SetViewport sets the rasterizer viewport.
func (s *State) SetViewport(v Viewport) { s.viewport = v }

// Scissor implements Bindings.
func (s *State) Scissor() Rect { return s.scissor }

// SetScissor sets the scissor rectangle.
func (s *State) SetScissor(r Rect) { s.scissor = r }

// BackBuffer implements Bindings.
func (s *State) BackBuffer(real bool) Resource {
	if real || s.backBuffer == nil {
		return addRef(s.realBackBuffer)
	}
	return addRef(s.backBuffer)
}

// SetBackBuffers installs the presented back buffer and the real swap
// chain buffer. bb may be nil when rendering is not redirected.
func (s *State) SetBackBuffers(bb, real Resource) {
	swapRef(&s.backBuffer, bb)
	swapRef(&s.realBackBuffer, real)
}

// ResetBindings releases every binding held by s.
func (s *State) ResetBindings() {
	for st := range s.cbs {
		for i := range s.cbs[st] {
			swapRef(&s.cbs[st][i], nil)
		}
		for i := range s.srvs[st] {
			swapRef(&s.srvs[st][i], nil)
		}
		for i := range s.uavs[st] {
			swapRef(&s.uavs[st][i], nil)
		}
		s.shaders[st] = nil
	}
	s.SetRenderTargets(nil, nil)
	for i := range s.vbs {
		s.SetVertexBuffer(i, nil, 0, 0)
	}
	s.SetIndexBuffer(nil, 0, 0)
	s.SetStreamOutputs(nil, nil)
	s.SetBackBuffers(nil, nil)
}
