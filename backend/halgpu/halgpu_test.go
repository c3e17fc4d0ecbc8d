// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/command"
)

func openNoop(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(gputypes.BackendEmpty)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(b.Close)
	return b
}

func mustCreate(t *testing.T, b *Backend, desc backend.ResourceDesc, data []byte) backend.Resource {
	t.Helper()
	r, err := b.CreateResource(desc, data)
	if err != nil {
		t.Fatalf("CreateResource(%v) error = %v", desc.Kind, err)
	}
	return r
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.NameHAL) {
		t.Fatalf("%q not registered, have %v", backend.NameHAL, backend.Available())
	}
	b, err := backend.Open(backend.NameHAL)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", backend.NameHAL, err)
	}
	hb, ok := b.(*Backend)
	if !ok {
		t.Fatalf("Open(%q) = %T, want *Backend", backend.NameHAL, b)
	}
	defer hb.Close()
	if hb.Name() != backend.NameHAL {
		t.Errorf("Name() = %q, want %q", hb.Name(), backend.NameHAL)
	}
	if hb.Info().Name == "" {
		t.Error("Info().Name is empty")
	}
}

func TestOpen_UnknownVariant(t *testing.T) {
	_, err := Open(gputypes.Backend(250))
	if !errors.Is(err, ErrNoHALBackend) {
		t.Errorf("Open() error = %v, want ErrNoHALBackend", err)
	}
}

func TestCreateResource(t *testing.T) {
	b := openNoop(t)
	tests := []struct {
		name    string
		desc    backend.ResourceDesc
		wantErr bool
	}{
		{"buffer", backend.BufferDesc(64, gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst), false},
		{"texture", backend.Texture2DDesc(4, 4, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageTextureBinding), false},
		{"empty buffer", backend.BufferDesc(0, gputypes.BufferUsageVertex), true},
		{"unknown", backend.ResourceDesc{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := b.CreateResource(tt.desc, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateResource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if !backend.SameDevice(r.Device(), b.Device()) {
					t.Error("resource device differs from backend device")
				}
				r.Release()
			}
		})
	}
	if b.Live() != 0 {
		t.Errorf("Live() = %d, want 0", b.Live())
	}
}

func TestMap(t *testing.T) {
	b := openNoop(t)
	desc := backend.BufferDesc(8, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	desc.Misc = backend.MiscStaging
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	staging := mustCreate(t, b, desc, data)
	defer staging.Release()

	got, err := b.Map(staging)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	b.Unmap(staging)
	if !bytes.Equal(got, data) {
		t.Errorf("Map() = %v, want %v", got, data)
	}

	plain := mustCreate(t, b, backend.BufferDesc(8, gputypes.BufferUsageVertex), nil)
	defer plain.Release()
	if _, err := b.Map(plain); !errors.Is(err, backend.ErrUnsupported) {
		t.Errorf("Map(non-staging) error = %v, want ErrUnsupported", err)
	}
}

func TestCreateView(t *testing.T) {
	b := openNoop(t)
	tex := mustCreate(t, b, backend.Texture2DDesc(2, 2, gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageRenderAttachment), nil)
	tests := []struct {
		kind    backend.ViewKind
		wantErr bool
	}{
		{backend.ViewShaderResource, false},
		{backend.ViewRenderTarget, false},
		{backend.ViewUnorderedAccess, true},
		{backend.ViewDepthStencil, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			v, err := b.CreateView(tex, backend.ViewDesc{Kind: tt.kind})
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateView() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, backend.ErrUnsupported) {
					t.Errorf("CreateView() error = %v, want ErrUnsupported", err)
				}
				return
			}
			v.Release()
		})
	}
	tex.Release()
	if b.Live() != 0 {
		t.Errorf("Live() = %d, want 0", b.Live())
	}
}

func TestTransfersSubmit(t *testing.T) {
	b := openNoop(t)
	src := mustCreate(t, b, backend.BufferDesc(16, gputypes.BufferUsageCopySrc), make([]byte, 16))
	dst := mustCreate(t, b, backend.BufferDesc(16, gputypes.BufferUsageCopyDst), nil)
	tex := mustCreate(t, b, backend.Texture2DDesc(2, 2, gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureUsageCopySrc|gputypes.TextureUsageRenderAttachment), nil)
	stagingDesc := backend.Texture2DDesc(1, 1, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageCopyDst)
	stagingDesc.Misc = backend.MiscStaging
	staging := mustCreate(t, b, stagingDesc, nil)
	defer backend.Release(src, dst, tex, staging)

	if err := b.CopyResource(dst, src); err != nil {
		t.Errorf("CopyResource() error = %v", err)
	}
	if err := b.CopyRegion(dst, 4, 0, 0, src, &backend.Box{Left: 0, Right: 8}); err != nil {
		t.Errorf("CopyRegion(buffer) error = %v", err)
	}
	if err := b.CopyRegion(staging, 0, 0, 0, tex, &backend.Box{Left: 1, Top: 1, Right: 2, Bottom: 2, Back: 1}); err != nil {
		t.Errorf("CopyRegion(texture to staging) error = %v", err)
	}
	v, err := b.CreateView(tex, backend.ViewDesc{Kind: backend.ViewRenderTarget})
	if err != nil {
		t.Fatal(err)
	}
	b.ClearRenderTarget(v, gputypes.Color{R: 1, A: 1})
	v.Release()

	if got := b.Submissions(); got != 4 {
		t.Errorf("Submissions() = %d, want 4", got)
	}
	if _, err := b.Map(staging); err != nil {
		t.Errorf("Map(staging texture) error = %v", err)
	}
	b.Unmap(staging)
}

func TestResolveSubresource_NeedsMultisample(t *testing.T) {
	b := openNoop(t)
	desc := backend.Texture2DDesc(2, 2, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageRenderAttachment)
	a := mustCreate(t, b, desc, nil)
	c := mustCreate(t, b, desc, nil)
	defer backend.Release(a, c)
	err := b.ResolveSubresource(c, 0, a, 0, gputypes.TextureFormatRGBA8Unorm)
	if !errors.Is(err, backend.ErrUnsupported) {
		t.Errorf("ResolveSubresource() error = %v, want ErrUnsupported", err)
	}

	ms := desc
	ms.Texture.SampleCount = 4
	src := mustCreate(t, b, ms, nil)
	defer src.Release()
	if err := b.ResolveSubresource(c, 0, src, 0, gputypes.TextureFormatRGBA8Unorm); err != nil {
		t.Errorf("ResolveSubresource() error = %v", err)
	}
}

func TestReset(t *testing.T) {
	b := openNoop(t)
	r := mustCreate(t, b, backend.BufferDesc(4, gputypes.BufferUsageUniform), nil)
	defer r.Release()
	before := b.Device()
	if err := b.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if backend.SameDevice(before, b.Device()) {
		t.Error("Device() unchanged after Reset")
	}
	if backend.SameDevice(r.Device(), b.Device()) {
		t.Error("old resource reports the new device")
	}
}

func TestFormatSupport(t *testing.T) {
	b := openNoop(t)
	s := b.FormatSupport(gputypes.TextureFormatRGBA8Unorm)
	want := backend.FormatSupportSampled | backend.FormatSupportRenderTarget | backend.FormatSupportResolve
	if !s.Has(want) {
		t.Errorf("FormatSupport() = %#x, want at least %#x", s, want)
	}
}

func TestCommandListOnHAL(t *testing.T) {
	b := openNoop(t)
	rtDesc := backend.Texture2DDesc(4, 4, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageRenderAttachment)
	rt := mustCreate(t, b, rtDesc, nil)
	rtv, err := b.CreateView(rt, backend.ViewDesc{Kind: backend.ViewRenderTarget})
	if err != nil {
		t.Fatal(err)
	}
	b.SetRenderTargets([]backend.View{rtv}, nil)
	backend.Release(rtv)
	rt.Release()
	baseline := b.Live()

	r := command.New(b)
	r.DefineCustom("Params")
	bld := r.NewBuilder("CommandListFrame", "")
	for _, line := range []string{
		"x = 3",
		"ResourceParams = copy IniParams",
		"clear = o0 0 0 1 1",
		"draw = 6, 0",
		"dispatch = 1, 1, 1",
		"drawauto = auto",
	} {
		if err := bld.Add(line); err != nil {
			t.Fatalf("Add(%q) error = %v", line, err)
		}
	}
	if err := bld.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	r.RunSection(bld.Section(), nil, false)

	if got := b.Draws(); got != 2 {
		t.Errorf("Draws() = %d, want 2", got)
	}
	r.Close()
	if got := b.Live(); got != baseline {
		t.Errorf("Live() after Close = %d, want %d", got, baseline)
	}
}
