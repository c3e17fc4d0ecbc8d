// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/command"
	"github.com/gogpu/migoto/resource"
)

// Build creates a runtime driving b and loads f into it. The runtime is
// returned even when some entries were rejected; err then joins every
// problem found.
func Build(b backend.Backend, f *File, opts ...command.Option) (*command.Runtime, error) {
	rt := command.New(b, opts...)
	err := f.Apply(rt)
	return rt, err
}

// Apply loads f into rt. A rejected entry or directive is skipped and
// loading continues; the returned error joins everything that was skipped.
// The command lists are optimised once everything is loaded.
func (f *File) Apply(rt *command.Runtime) error {
	var errs []error
	ns := f.Namespace

	for _, g := range f.Globals {
		if _, err := rt.DeclareGlobal(ns, g.Name, g.Value, g.Persist); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range f.Resources {
		if err := f.resource(rt, r); err != nil {
			errs = append(errs, fmt.Errorf("resource %s: %w", r.Name, err))
		}
	}
	for _, s := range f.Shaders {
		errs = append(errs, f.shader(rt, s)...)
	}
	for _, l := range f.Lists {
		errs = append(errs, build(rt.NewBuilder(l.Name, ns), l.Commands)...)
	}
	for _, o := range f.TextureOverrides {
		errs = append(errs, f.override(rt, o, rt.DefineTextureOverride)...)
	}
	for _, o := range f.ShaderOverrides {
		errs = append(errs, f.override(rt, o, rt.DefineShaderOverride)...)
	}
	for _, p := range f.Presets {
		preset := rt.Preset(p.Name)
		for _, a := range p.Set {
			lhs, rhs, ok := strings.Cut(a, "=")
			if !ok {
				errs = append(errs, fmt.Errorf("preset %s: %q is not an assignment", p.Name, a))
				continue
			}
			if err := rt.AddPresetAssignment(preset, ns, lhs, rhs); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(f.Present) > 0 {
		errs = append(errs, build(rt.NewBuilder("Present", ns), f.Present)...)
	}

	for _, s := range rt.Sections() {
		if !s.Defined() {
			migoto.Logger().Warn("config: section referenced but never defined", "section", s.Name)
		}
	}
	removed := rt.OptimiseAll()
	migoto.Logger().Info("config: loaded",
		"namespace", ns, "sections", len(rt.Sections()), "globals", len(rt.Globals()),
		"optimised", removed, "rejected", len(errs))
	return errors.Join(errs...)
}

func build(b *command.Builder, lines []string) []error {
	var errs []error
	for _, line := range lines {
		if err := b.Add(line); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.Finish(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (f *File) resource(rt *command.Runtime, r Resource) error {
	if r.Name == "" {
		return errors.New("config: resource without a name")
	}
	c := rt.DefineCustom(r.Name)
	c.MaxCopiesPerFrame = r.MaxCopiesPerFrame
	if r.Filename != "" {
		c.Filename = r.Filename
		if f.Dir != "" && !filepath.IsAbs(r.Filename) {
			c.Filename = filepath.Join(f.Dir, r.Filename)
		}
	}

	o := resource.Override{
		Width:       r.Width,
		Height:      r.Height,
		Depth:       r.Depth,
		MipLevels:   r.MipLevels,
		SampleCount: r.Samples,
		ByteWidth:   r.ByteWidth,
		Stride:      r.Stride,
	}
	if r.Type != "" {
		kind, misc, err := ParseType(r.Type)
		if err != nil {
			return err
		}
		o.Kind, o.Misc = kind, misc
	}
	if r.Format != "" {
		format, err := ParseFormat(r.Format)
		if err != nil {
			return err
		}
		o.Format = format
	}
	if len(r.Data) > 0 {
		o.Data = make([]byte, 4*len(r.Data))
		for i, v := range r.Data {
			binary.LittleEndian.PutUint32(o.Data[4*i:], math.Float32bits(v))
		}
	}
	c.Override = o
	return nil
}

func (f *File) shader(rt *command.Runtime, s Shader) []error {
	cs := rt.CustomShader(s.Name)
	cs.MaxExecutionsPerFrame = s.MaxExecutionsPerFrame
	var errs []error
	for prefix, src := range s.Stages {
		stage, ok := backend.ParseStage(strings.ToLower(prefix))
		if !ok {
			errs = append(errs, fmt.Errorf("shader %s: %w: %q", s.Name, ErrBadStage, prefix))
			continue
		}
		if err := cs.SetSource(rt.Backend(), stage, src); err != nil {
			errs = append(errs, err)
		}
	}
	return append(errs, build(rt.NewBuilder(cs.Section.Name, f.Namespace), s.Commands)...)
}

func (f *File) override(rt *command.Runtime, o Override, define func(string, uint64) *command.Override) []error {
	hash, err := ParseHash(o.Hash)
	if err != nil {
		return []error{fmt.Errorf("override %s: %w", o.Name, err)}
	}
	ov := define(o.Name, hash)
	if o.FilterIndex != nil {
		ov.FilterIndex = *o.FilterIndex
	}
	return build(rt.NewBuilder(ov.Section.Name, f.Namespace), o.Commands)
}

// ParseHash parses a hexadecimal hash with or without a 0x prefix.
func ParseHash(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	h, err := strconv.ParseUint(digits, 16, 64)
	if err != nil || digits == "" {
		return 0, fmt.Errorf("%w: %q", ErrBadHash, s)
	}
	return h, nil
}

var types = map[string]struct {
	kind backend.ResourceKind
	misc backend.MiscFlags
}{
	"buffer":            {backend.KindBuffer, 0},
	"structuredbuffer":  {backend.KindBuffer, backend.MiscStructured},
	"byteaddressbuffer": {backend.KindBuffer, backend.MiscRaw},
	"texture1d":         {backend.KindTexture1D, 0},
	"texture2d":         {backend.KindTexture2D, 0},
	"texture3d":         {backend.KindTexture3D, 0},
	"texturecube":       {backend.KindTexture2D, backend.MiscTextureCube},
}

// ParseType maps a resource type name such as "StructuredBuffer" or
// "Texture2D" to a kind and the flags it implies.
func ParseType(s string) (backend.ResourceKind, backend.MiscFlags, error) {
	t, ok := types[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return backend.KindUnknown, 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t.kind, t.misc, nil
}

// formats indexes every texture format by its lower case name.
var formats = func() map[string]gputypes.TextureFormat {
	m := make(map[string]gputypes.TextureFormat)
	for f := gputypes.TextureFormat(1); f < 256; f++ {
		if name := f.String(); name != "Unknown" {
			m[strings.ToLower(name)] = f
		}
	}
	return m
}()

// ParseFormat maps a format name such as "RGBA8Unorm" to its texture
// format. Case is ignored.
func ParseFormat(s string) (gputypes.TextureFormat, error) {
	if f, ok := formats[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return gputypes.TextureFormatUndefined, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}
