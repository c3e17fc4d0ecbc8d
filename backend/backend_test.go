// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

// fakeResource is a minimal reference counted resource.
type fakeResource struct {
	refs int
	desc ResourceDesc
}

func (r *fakeResource) AddRef()            { r.refs++ }
func (r *fakeResource) Release() int       { r.refs--; return r.refs }
func (r *fakeResource) Desc() ResourceDesc { return r.desc }
func (r *fakeResource) Device() Device     { return nil }
func (r *fakeResource) Hash() uint64       { return 0 }

type fakeView struct {
	refs int
	res  *fakeResource
}

func (v *fakeView) AddRef()            { v.refs++ }
func (v *fakeView) Release() int       { v.refs--; return v.refs }
func (v *fakeView) Desc() ViewDesc     { return ViewDesc{} }
func (v *fakeView) Resource() Resource { return v.res }

type fakeDevice uint64

func (d fakeDevice) ID() uint64 { return uint64(d) }

func TestShaderStage_String(t *testing.T) {
	tests := []struct {
		stage ShaderStage
		want  string
	}{
		{StageVertex, "vs"},
		{StageHull, "hs"},
		{StageDomain, "ds"},
		{StageGeometry, "gs"},
		{StagePixel, "ps"},
		{StageCompute, "cs"},
		{ShaderStage(42), "??"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("ShaderStage(%d).String() = %q, want %q", tt.stage, got, tt.want)
		}
		if tt.want == "??" {
			continue
		}
		if got, ok := ParseStage(tt.want); !ok || got != tt.stage {
			t.Errorf("ParseStage(%q) = %v, %v, want %v, true", tt.want, got, ok, tt.stage)
		}
	}
	if _, ok := ParseStage("xs"); ok {
		t.Error("ParseStage(xs) = ok, want false")
	}
}

func TestResourceDesc_ByteSize(t *testing.T) {
	tests := []struct {
		name string
		desc ResourceDesc
		want uint64
	}{
		{"buffer", BufferDesc(256, gputypes.BufferUsageUniform), 256},
		{"rgba8", Texture2DDesc(4, 2, gputypes.TextureFormatRGBA8Unorm, 0), 32},
		{"r32f", Texture2DDesc(3, 3, gputypes.TextureFormatR32Float, 0), 36},
		{"rgba32f", Texture2DDesc(1, 1, gputypes.TextureFormatRGBA32Float, 0), 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.desc.ByteSize(); got != tt.want {
				t.Errorf("ByteSize() = %d, want %d", got, tt.want)
			}
		})
	}

	ms := Texture2DDesc(2, 2, gputypes.TextureFormatRGBA8Unorm, 0)
	ms.Texture.SampleCount = 4
	if got := ms.ByteSize(); got != 64 {
		t.Errorf("multisampled ByteSize() = %d, want 64", got)
	}
}

func TestResourceDesc_CloneDoesNotAlias(t *testing.T) {
	d := Texture2DDesc(1, 1, gputypes.TextureFormatRGBA8Unorm, 0)
	d.Texture.ViewFormats = []gputypes.TextureFormat{gputypes.TextureFormatRGBA8UnormSrgb}
	c := d.Clone()
	c.Texture.ViewFormats[0] = gputypes.TextureFormatR8Unorm
	if d.Texture.ViewFormats[0] != gputypes.TextureFormatRGBA8UnormSrgb {
		t.Error("Clone() shares ViewFormats with the original")
	}
}

func TestCompatibleViewFormats(t *testing.T) {
	got := CompatibleViewFormats(gputypes.TextureFormatBGRA8Unorm)
	if len(got) != 1 || got[0] != gputypes.TextureFormatBGRA8UnormSrgb {
		t.Errorf("CompatibleViewFormats(BGRA8Unorm) = %v", got)
	}
	if got := CompatibleViewFormats(gputypes.TextureFormatR32Float); got != nil {
		t.Errorf("CompatibleViewFormats(R32Float) = %v, want nil", got)
	}
}

func TestHashResource(t *testing.T) {
	a := Texture2DDesc(4, 4, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageTextureBinding)
	b := a
	b.Texture.Label = "other label"
	if HashResource(a, nil) != HashResource(b, nil) {
		t.Error("HashResource() depends on the label")
	}
	if HashResource(a, []byte{1}) == HashResource(a, []byte{2}) {
		t.Error("HashResource() ignores the data")
	}
	c := Texture2DDesc(8, 4, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageTextureBinding)
	if HashResource(a, nil) == HashResource(c, nil) {
		t.Error("HashResource() ignores the size")
	}
}

func TestSameDevice(t *testing.T) {
	if !SameDevice(fakeDevice(1), fakeDevice(1)) {
		t.Error("SameDevice(1, 1) = false")
	}
	if SameDevice(fakeDevice(1), fakeDevice(2)) {
		t.Error("SameDevice(1, 2) = true")
	}
	if SameDevice(fakeDevice(1), nil) {
		t.Error("SameDevice(1, nil) = true")
	}
}

func TestRelease_SkipsNil(t *testing.T) {
	r := &fakeResource{refs: 1}
	Release[Resource](r, nil)
	if r.refs != 0 {
		t.Errorf("refs = %d, want 0", r.refs)
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	errs := []error{ErrBackendNotAvailable, ErrNotReady, ErrUnsupported, ErrInvalidResource}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("errors.Is(%v, %v) = true", a, b)
			}
		}
	}
}

type recordingDraws struct {
	calls []string
}

func (r *recordingDraws) Draw(uint32, uint32)                              { r.calls = append(r.calls, "Draw") }
func (r *recordingDraws) DrawIndexed(uint32, uint32, int32)                { r.calls = append(r.calls, "DrawIndexed") }
func (r *recordingDraws) DrawInstanced(uint32, uint32, uint32, uint32)     { r.calls = append(r.calls, "DrawInstanced") }
func (r *recordingDraws) DrawAuto()                                        { r.calls = append(r.calls, "DrawAuto") }
func (r *recordingDraws) Dispatch(uint32, uint32, uint32)                  { r.calls = append(r.calls, "Dispatch") }
func (r *recordingDraws) DispatchIndirect(Resource, uint32)                { r.calls = append(r.calls, "DispatchIndirect") }
func (r *recordingDraws) DrawInstancedIndirect(Resource, uint32)           { r.calls = append(r.calls, "DrawInstancedIndirect") }
func (r *recordingDraws) DrawIndexedInstancedIndirect(Resource, uint32)    { r.calls = append(r.calls, "DrawIndexedInstancedIndirect") }
func (r *recordingDraws) DrawIndexedInstanced(uint32, uint32, uint32, int32, uint32) {
	r.calls = append(r.calls, "DrawIndexedInstanced")
}

func TestDrawCall_Replay(t *testing.T) {
	args := &fakeResource{}
	for ct := CallDraw; ct <= CallDispatchIndirect; ct++ {
		d := &recordingDraws{}
		call := DrawCall{Type: ct, IndirectArgs: args}
		call.Replay(d)
		if len(d.calls) != 1 || d.calls[0] != ct.String() {
			t.Errorf("Replay(%v) issued %v", ct, d.calls)
		}
	}

	d := &recordingDraws{}
	(&DrawCall{Type: CallDrawInstancedIndirect}).Replay(d)
	if len(d.calls) != 0 {
		t.Errorf("Replay without indirect args issued %v", d.calls)
	}
}
