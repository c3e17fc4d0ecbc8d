// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/backend/memory"
	"github.com/gogpu/migoto/command"
	"github.com/gogpu/migoto/resource"
)

const document = `
namespace: mod
globals:
  - {name: $mode, value: 1, persist: true}
  - {name: $scale, value: 0.5}
resources:
  - name: Params
    type: StructuredBuffer
    stride: 16
    byte_width: 32
    data: [1, 2]
  - {name: Shadow, type: Texture2D, format: R32Float, width: 64, height: 32}
lists:
  - name: CommandListFrame
    commands:
      - if $mode == 1
      -   $scale = $scale * 4
      -   preset = Boost
      - endif
  - name: CommandListBroken
    commands:
      - x = (1 +
      - y = 2
texture_overrides:
  - name: Sky
    hash: 0x8e3f1a20
    filter_index: 7
    commands: [z = 3]
shader_overrides:
  - {name: Water, hash: deadbeef, commands: [handling = skip]}
presets:
  - name: Boost
    set: [$mode = 2, w = 0.25]
present:
  - post w1 = w1 + 1
`

func newRuntime(t *testing.T, doc string) (*command.Runtime, error) {
	t.Helper()
	f, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	rt, err := Build(memory.New(), f)
	t.Cleanup(rt.Close)
	return rt, err
}

func TestBuild(t *testing.T) {
	rt, err := newRuntime(t, document)

	var de *command.DirectiveError
	if !errors.As(err, &de) || de.Section != "CommandListBroken" {
		t.Fatalf("Build() error = %v, want a directive error in CommandListBroken", err)
	}

	mode := rt.Global(`$\mod\mode`)
	if mode == nil || mode.Value != 1 || !mode.Persist {
		t.Fatalf("Global($mode) = %+v", mode)
	}
	if *rt.Param(0, 1) != 0 {
		t.Errorf("y = %v before any list ran", *rt.Param(0, 1))
	}

	params := rt.Custom("Params")
	if params == nil {
		t.Fatal("Custom(Params) = nil")
	}
	want := resource.Override{
		Kind:      backend.KindBuffer,
		Misc:      backend.MiscStructured,
		Stride:    16,
		ByteWidth: 32,
		Data:      []byte{0, 0, 0x80, 0x3f, 0, 0, 0, 0x40},
	}
	if diff := cmp.Diff(want, params.Override); diff != "" {
		t.Errorf("Params override mismatch (-want +got):\n%s", diff)
	}
	if got := rt.Custom("Shadow").Override.Format; got != gputypes.TextureFormatR32Float {
		t.Errorf("Shadow format = %v, want R32Float", got)
	}

	sky := rt.TextureOverride(0x8e3f1a20)
	if sky == nil || sky.FilterIndex != 7 || sky.Section.Pre.Len() != 1 {
		t.Errorf("TextureOverride(Sky) = %+v", sky)
	}
	if water := rt.ShaderOverride(0xdeadbeef); water == nil || water.FilterIndex != 1 {
		t.Errorf("ShaderOverride(Water) = %+v", water)
	}
}

func TestBuild_Run(t *testing.T) {
	rt, _ := newRuntime(t, document)
	frame := rt.Section("CommandListFrame")

	rt.BeginFrame()
	rt.RunSection(frame, nil, false)
	rt.EndFrame()

	if got := rt.Global(`$\mod\scale`).Value; got != 2 {
		t.Errorf("$scale = %v, want 2", got)
	}
	if got := rt.Global(`$\mod\mode`).Value; got != 2 {
		t.Errorf("$mode = %v with Boost active, want 2", got)
	}
	if got := *rt.Param(0, 3); got != 0.25 {
		t.Errorf("w = %v with Boost active, want 0.25", got)
	}

	rt.BeginFrame()
	if got := *rt.Param(1, 3); got != 2 {
		t.Errorf("w1 = %v after two frames, want 2", got)
	}
}

func TestBuild_CustomShader(t *testing.T) {
	rt, err := newRuntime(t, `
shaders:
  - name: Red
    max_executions_per_frame: 1
    stages:
      ps: |
        @fragment
        fn main() -> @location(0) vec4<f32> {
            return vec4<f32>(1.0, 0.0, 0.0, 1.0);
        }
    commands:
      - draw = 3, 0
  - name: Bad
    stages: {xs: ""}
`)
	if !errors.Is(err, ErrBadStage) {
		t.Errorf("Build() error = %v, want ErrBadStage", err)
	}
	red := rt.CustomShader("Red")
	if red.Shader(backend.StagePixel) == nil {
		t.Error("Red has no pixel shader")
	}
	if red.MaxExecutionsPerFrame != 1 || red.Section.Pre.Len() != 1 {
		t.Errorf("Red = %+v, pre len %d", red, red.Section.Pre.Len())
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"bad hash", "texture_overrides: [{name: A, hash: xyz}]", ErrBadHash},
		{"bad type", "resources: [{name: A, type: Texture4D}]", ErrUnknownType},
		{"bad format", "resources: [{name: A, format: RGBA9}]", ErrUnknownFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newRuntime(t, tt.doc)
			if !errors.Is(err, tt.want) {
				t.Errorf("Build() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParse_UnknownKey(t *testing.T) {
	if _, err := Parse([]byte("namespace: a\nbogus: 1\n")); err == nil {
		t.Error("Parse() accepted an unknown key")
	}
	f, err := Parse(nil)
	if err != nil || f == nil {
		t.Errorf("Parse(empty) = %v, %v", f, err)
	}
}

func TestLoad_RelativeFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.yaml")
	if err := os.WriteFile(path, []byte("resources: [{name: Tex, filename: tex/a.png}]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	rt := command.New(memory.New())
	defer rt.Close()
	if err := f.Apply(rt); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got, want := rt.Custom("Tex").Filename, filepath.Join(dir, "tex", "a.png"); got != want {
		t.Errorf("Filename = %q, want %q", got, want)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing) succeeded")
	}
}

func TestParseHash(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0x8e3f1a20", 0x8e3f1a20, false},
		{"DEADBEEF", 0xdeadbeef, false},
		{"ffffffffffffffff", math.MaxUint64, false},
		{"0x", 0, true},
		{"", 0, true},
		{"12g4", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseHash(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseHash(%q) = %#x, %v, want %#x (err %v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		kind backend.ResourceKind
		misc backend.MiscFlags
	}{
		{"Buffer", backend.KindBuffer, 0},
		{"ByteAddressBuffer", backend.KindBuffer, backend.MiscRaw},
		{"texture3d", backend.KindTexture3D, 0},
		{"TextureCube", backend.KindTexture2D, backend.MiscTextureCube},
	}
	for _, tt := range tests {
		kind, misc, err := ParseType(tt.in)
		if err != nil || kind != tt.kind || misc != tt.misc {
			t.Errorf("ParseType(%q) = %v, %#x, %v, want %v, %#x", tt.in, kind, misc, err, tt.kind, tt.misc)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]gputypes.TextureFormat{
		"RGBA8Unorm":     gputypes.TextureFormatRGBA8Unorm,
		"bgra8unorm":     gputypes.TextureFormatBGRA8Unorm,
		" R32Float ":     gputypes.TextureFormatR32Float,
		"Depth32Float":   gputypes.TextureFormatDepth32Float,
		"RGBA8UnormSrgb": gputypes.TextureFormatRGBA8UnormSrgb,
	} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
}
