// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"testing"
)

func TestState_SetTakesReferenceAndGetReturnsOwned(t *testing.T) {
	var s State
	r := &fakeResource{refs: 1}

	s.SetConstantBuffer(StagePixel, 2, r)
	if r.refs != 2 {
		t.Fatalf("refs after Set = %d, want 2", r.refs)
	}

	got := s.ConstantBuffer(StagePixel, 2)
	if got != r {
		t.Fatalf("ConstantBuffer() = %v, want r", got)
	}
	if r.refs != 3 {
		t.Errorf("refs after Get = %d, want 3", r.refs)
	}
	got.Release()

	s.SetConstantBuffer(StagePixel, 2, nil)
	if r.refs != 1 {
		t.Errorf("refs after unbind = %d, want 1", r.refs)
	}
}

func TestState_OutOfRangeSlots(t *testing.T) {
	var s State
	r := &fakeResource{refs: 1}
	s.SetConstantBuffer(StagePixel, MaxConstantBuffers, r)
	s.SetVertexBuffer(-1, r, 0, 0)
	if r.refs != 1 {
		t.Errorf("refs = %d, out of range Set must not retain", r.refs)
	}
	if got := s.ShaderResource(StageVertex, MaxShaderResources); got != nil {
		t.Errorf("ShaderResource(out of range) = %v, want nil", got)
	}
}

func TestState_RenderTargetsWholeArray(t *testing.T) {
	var s State
	a := &fakeView{refs: 1}
	b := &fakeView{refs: 1}
	ds := &fakeView{refs: 1}

	s.SetRenderTargets([]View{a, nil, b}, ds)
	rtvs, dsv := s.RenderTargets()
	if len(rtvs) != 3 || rtvs[0] != a || rtvs[1] != nil || rtvs[2] != b || dsv != ds {
		t.Fatalf("RenderTargets() = %v, %v", rtvs, dsv)
	}
	if a.refs != 3 || ds.refs != 3 {
		t.Errorf("refs a=%d ds=%d, want 3 and 3", a.refs, ds.refs)
	}
	Release(rtvs...)
	dsv.Release()

	s.SetRenderTargets(nil, nil)
	if a.refs != 1 || b.refs != 1 || ds.refs != 1 {
		t.Errorf("refs after unbind a=%d b=%d ds=%d, want 1", a.refs, b.refs, ds.refs)
	}
}

func TestState_StreamOutputs(t *testing.T) {
	var s State
	r := &fakeResource{refs: 1}
	s.SetStreamOutputs([]Resource{r}, []uint32{16})
	targets, offsets := s.StreamOutputs()
	if len(targets) != 1 || targets[0] != r || offsets[0] != 16 {
		t.Fatalf("StreamOutputs() = %v, %v", targets, offsets)
	}
	Release(targets...)
	s.SetStreamOutputs(nil, nil)
	if r.refs != 1 {
		t.Errorf("refs = %d, want 1", r.refs)
	}
}

func TestState_BackBufferFallsBackToReal(t *testing.T) {
	var s State
	real := &fakeResource{refs: 1}
	s.SetBackBuffers(nil, real)
	bb := s.BackBuffer(false)
	if bb != real {
		t.Errorf("BackBuffer(false) = %v, want the real back buffer", bb)
	}
	bb.Release()

	fake := &fakeResource{refs: 1}
	s.SetBackBuffers(fake, real)
	if bb := s.BackBuffer(false); bb != fake {
		t.Errorf("BackBuffer(false) = %v, want redirected buffer", bb)
	} else {
		bb.Release()
	}
	if bb := s.BackBuffer(true); bb != real {
		t.Errorf("BackBuffer(true) = %v, want real", bb)
	} else {
		bb.Release()
	}
}

func TestState_ResetBindingsReleasesEverything(t *testing.T) {
	var s State
	r := &fakeResource{refs: 1}
	v := &fakeView{refs: 1}
	s.SetConstantBuffer(StageVertex, 0, r)
	s.SetShaderResource(StagePixel, 5, v)
	s.SetUnorderedAccess(StageCompute, 1, v)
	s.SetVertexBuffer(3, r, 16, 0)
	s.SetIndexBuffer(r, 0, 0)
	s.SetRenderTargets([]View{v}, nil)
	s.SetBackBuffers(r, r)

	s.ResetBindings()
	if r.refs != 1 || v.refs != 1 {
		t.Errorf("after ResetBindings refs r=%d v=%d, want 1 and 1", r.refs, v.refs)
	}
}
