// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package memory provides an in-memory backend.
//
// Resources are byte slices, copies and resolves move bytes, draws are
// recorded instead of rasterized and readback can be made to lag behind by
// a configurable number of frames. The backend keeps count of live objects
// so tests can check that every acquired reference was released.
//
// It registers itself as "memory":
//
//	import _ "github.com/gogpu/migoto/backend/memory"
package memory

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
)

func init() {
	backend.Register(backend.NameMemory, func() backend.Backend { return New() })
}

// Device is one device generation of the memory backend.
type Device struct {
	id uint64
}

// ID implements backend.Device.
func (d *Device) ID() uint64 { return d.id }

// Option configures a Backend.
type Option func(*Backend)

// WithMapLatency makes staging resources readable only after the given
// number of AdvanceFrame calls following the copy that filled them.
func WithMapLatency(frames int) Option {
	return func(b *Backend) {
		if frames > 0 {
			b.mapLatency = uint64(frames)
		}
	}
}

// WithFormatSupport overrides the support flags reported for format.
func WithFormatSupport(format gputypes.TextureFormat, support backend.FormatSupport) Option {
	return func(b *Backend) { b.formats[format] = support }
}

// WithCapabilities overrides the reported capabilities.
func WithCapabilities(caps backend.Capabilities) Option {
	return func(b *Backend) { b.caps = caps }
}

// WithCreateHook installs a function consulted before every resource
// creation. A non-nil error fails the creation.
func WithCreateHook(fn func(desc backend.ResourceDesc) error) Option {
	return func(b *Backend) { b.createHook = fn }
}

// WithStereo enables the stereo driver simulation.
func WithStereo(s Stereo) Option {
	return func(b *Backend) {
		st := s
		b.stereo = &st
	}
}

// WithBackBuffer creates a swap chain back buffer of the given size.
func WithBackBuffer(width, height uint32, format gputypes.TextureFormat) Option {
	return func(b *Backend) {
		b.bbDesc = backend.Texture2DDesc(width, height, format,
			gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc|gputypes.TextureUsageCopyDst)
	}
}

// Clear records one clear operation.
type Clear struct {
	Kind   backend.ViewKind
	View   backend.View
	Color  gputypes.Color
	Depth  float32
	Values [4]uint32
}

// Backend is the in-memory backend. It is not safe for concurrent use.
type Backend struct {
	backend.State

	device     *Device
	caps       backend.Capabilities
	formats    map[gputypes.TextureFormat]backend.FormatSupport
	mapLatency uint64
	createHook func(backend.ResourceDesc) error
	stereo     *Stereo
	bbDesc     backend.ResourceDesc

	frame   uint64
	live    int
	created int
	copies  int
	calls   []backend.DrawCall
	clears  []Clear
}

var _ backend.Backend = (*Backend)(nil)
var _ backend.Stereo = (*Backend)(nil)

// New creates an in-memory backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		device:  &Device{id: 1},
		caps:    backend.Capabilities{ViewFormatReinterpretation: true},
		formats: make(map[gputypes.TextureFormat]backend.FormatSupport),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.bbDesc.Kind != backend.KindUnknown {
		b.createBackBuffer()
	}
	return b
}

func (b *Backend) createBackBuffer() {
	bb, err := b.CreateResource(b.bbDesc, nil)
	if err != nil {
		migoto.Logger().Warn("memory: back buffer creation failed", "err", err)
		return
	}
	b.SetBackBuffers(nil, bb)
	bb.Release()
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return backend.NameMemory }

// Device implements backend.Backend.
func (b *Backend) Device() backend.Device { return b.device }

// Capabilities implements backend.Backend.
func (b *Backend) Capabilities() backend.Capabilities { return b.caps }

// ResetDevice simulates a device loss: a new device generation starts and
// resources created before no longer match Device. Bindings are released.
func (b *Backend) ResetDevice() {
	b.ResetBindings()
	b.device = &Device{id: b.device.id + 1}
	if b.bbDesc.Kind != backend.KindUnknown {
		b.createBackBuffer()
	}
	migoto.Logger().Info("memory: device reset", "device", b.device.id)
}

// AdvanceFrame moves the simulated GPU one frame forward.
func (b *Backend) AdvanceFrame() { b.frame++ }

// Frame returns the number of AdvanceFrame calls so far.
func (b *Backend) Frame() uint64 { return b.frame }

// Live returns the number of resources and views that still hold references.
func (b *Backend) Live() int { return b.live }

// Created returns the number of resources created so far.
func (b *Backend) Created() int { return b.created }

// Copies returns the number of copy and region copy requests so far.
func (b *Backend) Copies() int { return b.copies }

// Calls returns the draws and dispatches issued so far.
func (b *Backend) Calls() []backend.DrawCall { return b.calls }

// Clears returns the clear operations issued so far.
func (b *Backend) Clears() []Clear { return b.clears }

// ResetLog forgets recorded draws and clears.
func (b *Backend) ResetLog() {
	b.calls = nil
	b.clears = nil
}

// FormatSupport implements backend.Transfer.
func (b *Backend) FormatSupport(format gputypes.TextureFormat) backend.FormatSupport {
	if s, ok := b.formats[format]; ok {
		return s
	}
	s := backend.FormatSupportSampled | backend.FormatSupportRenderTarget |
		backend.FormatSupportStorage | backend.FormatSupportMultisample
	if !format.IsDepthStencil() && !isIntegerFormat(format) {
		s |= backend.FormatSupportResolve
	}
	return s
}

func isIntegerFormat(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint,
		gputypes.TextureFormatR32Uint, gputypes.TextureFormatR32Sint,
		gputypes.TextureFormatRG8Uint, gputypes.TextureFormatRG8Sint,
		gputypes.TextureFormatRG16Uint, gputypes.TextureFormatRG16Sint,
		gputypes.TextureFormatRG32Uint, gputypes.TextureFormatRG32Sint,
		gputypes.TextureFormatRGBA8Uint, gputypes.TextureFormatRGBA8Sint,
		gputypes.TextureFormatRGBA16Uint, gputypes.TextureFormatRGBA16Sint,
		gputypes.TextureFormatRGBA32Uint, gputypes.TextureFormatRGBA32Sint:
		return true
	}
	return false
}

// own converts a backend resource into one of ours.
func (b *Backend) own(r backend.Resource) (*Resource, error) {
	res, ok := r.(*Resource)
	if !ok || res == nil || res.b != b || res.refs <= 0 {
		return nil, fmt.Errorf("memory: %T: %w", r, backend.ErrInvalidResource)
	}
	return res, nil
}
