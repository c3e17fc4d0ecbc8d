// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
)

// Device is one opened HAL device. Reset opens a new one; resources keep
// the device that created them.
type Device struct {
	id    uint64
	hal   hal.Device
	queue hal.Queue
}

// ID implements backend.Device.
func (d *Device) ID() uint64 { return d.id }

// Backend drives a HAL device. It is not safe for concurrent use.
type Backend struct {
	backend.State

	instance hal.Instance
	adapter  hal.Adapter
	info     gputypes.AdapterInfo
	dev      *Device
	devices  []*Device
	shaders  []*Shader

	live        int
	submissions int
	draws       int
}

var _ backend.Backend = (*Backend)(nil)

// Open creates an instance of the HAL backend variant and opens a device
// on its first adapter.
func Open(variant gputypes.Backend) (*Backend, error) {
	api, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNoHALBackend, variant)
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("halgpu: creating instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	b := &Backend{
		instance: instance,
		adapter:  adapters[0].Adapter,
		info:     adapters[0].Info,
	}
	if err := b.open(); err != nil {
		instance.Destroy()
		return nil, err
	}
	migoto.Logger().Info("halgpu: device opened",
		"adapter", b.info.Name, "driver", b.info.Driver, "backend", b.info.Backend)
	return b, nil
}

func (b *Backend) open() error {
	od, err := b.adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("halgpu: opening device: %w", err)
	}
	b.dev = &Device{id: uint64(len(b.devices)) + 1, hal: od.Device, queue: od.Queue}
	b.devices = append(b.devices, b.dev)
	return nil
}

// Reset replaces the device, as after a device loss. Bindings are
// dropped; resources created before keep the old device and are
// recreated by their owners.
func (b *Backend) Reset() error {
	b.ResetBindings()
	if err := b.dev.hal.WaitIdle(); err != nil {
		migoto.Logger().Debug("halgpu: waiting for idle device failed", "err", err)
	}
	return b.open()
}

// Close releases the bindings and destroys every device.
func (b *Backend) Close() {
	b.ResetBindings()
	for _, s := range b.shaders {
		s.dev.hal.DestroyShaderModule(s.module)
	}
	b.shaders = nil
	for _, d := range b.devices {
		d.hal.Destroy()
	}
	b.devices = nil
	b.adapter.Destroy()
	b.instance.Destroy()
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return backend.NameHAL }

// Device implements backend.Backend.
func (b *Backend) Device() backend.Device { return b.dev }

// Capabilities implements backend.Backend. WebGPU only reinterprets
// between sRGB and linear variants, so the copy engine is told to
// create resources in the exact format instead.
func (b *Backend) Capabilities() backend.Capabilities { return backend.Capabilities{} }

// Info returns the adapter description.
func (b *Backend) Info() gputypes.AdapterInfo { return b.info }

// Live returns the number of resources and views not yet released.
func (b *Backend) Live() int { return b.live }

// Submissions returns the number of command buffers submitted.
func (b *Backend) Submissions() int { return b.submissions }

// Draws returns the number of draws and dispatches encoded.
func (b *Backend) Draws() int { return b.draws }

// FormatSupport implements backend.Transfer.
func (b *Backend) FormatSupport(format gputypes.TextureFormat) backend.FormatSupport {
	flags := b.adapter.TextureFormatCapabilities(format).Flags
	var s backend.FormatSupport
	for _, m := range []struct {
		hal hal.TextureFormatCapabilityFlags
		our backend.FormatSupport
	}{
		{hal.TextureFormatCapabilitySampled, backend.FormatSupportSampled},
		{hal.TextureFormatCapabilityRenderAttachment, backend.FormatSupportRenderTarget},
		{hal.TextureFormatCapabilityStorage, backend.FormatSupportStorage},
		{hal.TextureFormatCapabilityMultisample, backend.FormatSupportMultisample},
		{hal.TextureFormatCapabilityMultisampleResolve, backend.FormatSupportResolve},
	} {
		if flags&m.hal != 0 {
			s |= m.our
		}
	}
	return s
}

// encode records commands with fn and submits them. It returns the
// submission index.
func (b *Backend) encode(label string, fn func(enc hal.CommandEncoder)) (uint64, error) {
	d := b.dev
	enc, err := d.hal.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return 0, fmt.Errorf("halgpu: %s: creating encoder: %w", label, err)
	}
	defer enc.Destroy()
	if err := enc.BeginEncoding(label); err != nil {
		return 0, fmt.Errorf("halgpu: %s: %w", label, err)
	}
	fn(enc)
	cb, err := enc.EndEncoding()
	if err != nil {
		return 0, fmt.Errorf("halgpu: %s: %w", label, err)
	}
	defer d.hal.FreeCommandBuffer(cb)
	idx, err := d.queue.Submit([]hal.CommandBuffer{cb})
	if err != nil {
		return 0, fmt.Errorf("halgpu: %s: submit: %w", label, err)
	}
	b.submissions++
	return idx, nil
}
