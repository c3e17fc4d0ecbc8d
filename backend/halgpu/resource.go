// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/migoto/backend"
)

// Resource is a HAL buffer or texture. Staging textures are backed by a
// buffer laid out row by row.
type Resource struct {
	b    *Backend
	refs int
	desc backend.ResourceDesc
	dev  *Device
	hash uint64

	buf hal.Buffer
	tex hal.Texture

	// written is the submission index of the last GPU write.
	written uint64
	mapped  bool
}

// AddRef implements backend.Resource.
func (r *Resource) AddRef() { r.refs++ }

// Release implements backend.Resource.
func (r *Resource) Release() int {
	if r.refs <= 0 {
		return 0
	}
	r.refs--
	if r.refs == 0 {
		r.b.live--
		r.destroy()
	}
	return r.refs
}

func (r *Resource) destroy() {
	if r.buf != nil {
		if r.mapped {
			_ = r.dev.hal.UnmapBuffer(r.buf)
		}
		r.dev.hal.DestroyBuffer(r.buf)
		r.buf = nil
	}
	if r.tex != nil {
		r.dev.hal.DestroyTexture(r.tex)
		r.tex = nil
	}
}

// Desc implements backend.Resource.
func (r *Resource) Desc() backend.ResourceDesc { return r.desc }

// Device implements backend.Resource.
func (r *Resource) Device() backend.Device { return r.dev }

// Hash implements backend.Resource.
func (r *Resource) Hash() uint64 { return r.hash }

// Refs returns the current reference count.
func (r *Resource) Refs() int { return r.refs }

// size is the byte size of the backing buffer.
func (r *Resource) size() uint64 { return r.desc.ByteSize() }

// rowPitch is the byte size of one row of a texture-shaped resource.
func (r *Resource) rowPitch() uint32 {
	return r.desc.Texture.Size.Width * backend.FormatSize(r.desc.Texture.Format)
}

func (r *Resource) staging() bool {
	return r.desc.Misc&backend.MiscStaging != 0 ||
		r.desc.Kind == backend.KindBuffer && r.desc.Buffer.Usage.Contains(gputypes.BufferUsageMapRead)
}

// View is a view of a HAL resource. Texture views hold a HAL texture
// view; buffer views are a byte range.
type View struct {
	b    *Backend
	refs int
	res  *Resource
	desc backend.ViewDesc
	tv   hal.TextureView
}

// AddRef implements backend.View.
func (v *View) AddRef() { v.refs++ }

// Release implements backend.View.
func (v *View) Release() int {
	if v.refs <= 0 {
		return 0
	}
	v.refs--
	if v.refs == 0 {
		v.b.live--
		if v.tv != nil {
			v.res.dev.hal.DestroyTextureView(v.tv)
			v.tv = nil
		}
		v.res.Release()
	}
	return v.refs
}

// Desc implements backend.View.
func (v *View) Desc() backend.ViewDesc { return v.desc }

// Resource implements backend.View.
func (v *View) Resource() backend.Resource { return v.res }

// byteRange returns the bytes of a buffer view.
func (v *View) byteRange() (offset, size uint64) {
	elem := uint64(4)
	switch {
	case v.desc.Raw:
	case v.desc.Format != gputypes.TextureFormatUndefined:
		elem = uint64(backend.FormatSize(v.desc.Format))
	case v.res.desc.Stride > 0:
		elem = uint64(v.res.desc.Stride)
	}
	total := v.res.size()
	offset = min(uint64(v.desc.FirstElement)*elem, total)
	size = total - offset
	if v.desc.NumElements > 0 {
		size = min(size, uint64(v.desc.NumElements)*elem)
	}
	return offset, size
}

// Shader is a HAL shader module.
type Shader struct {
	stage  backend.ShaderStage
	hash   uint64
	dev    *Device
	module hal.ShaderModule
}

// Stage implements backend.Shader.
func (s *Shader) Stage() backend.ShaderStage { return s.stage }

// Hash implements backend.Shader.
func (s *Shader) Hash() uint64 { return s.hash }

func alignUp4(n uint64) uint64 { return (n + 3) &^ 3 }

func extent(desc backend.ResourceDesc) hal.Extent3D {
	s := desc.Texture.Size
	return hal.Extent3D{
		Width:              max(s.Width, 1),
		Height:             max(s.Height, 1),
		DepthOrArrayLayers: max(s.DepthOrArrayLayers, 1),
	}
}

// CreateResource implements backend.Factory.
func (b *Backend) CreateResource(desc backend.ResourceDesc, data []byte) (backend.Resource, error) {
	switch {
	case desc.Kind == backend.KindBuffer && desc.Buffer.Size == 0,
		desc.Kind.IsTexture() && desc.Texture.Size.Width == 0,
		desc.Kind == backend.KindUnknown:
		return nil, fmt.Errorf("%w: %v", ErrInvalidDesc, desc.Kind)
	}
	d := b.dev
	r := &Resource{b: b, refs: 1, desc: desc.Clone(), dev: d, hash: backend.HashResource(desc, data)}

	var err error
	switch {
	case desc.Kind == backend.KindBuffer:
		usage := desc.Buffer.Usage
		if desc.Misc&backend.MiscStaging != 0 {
			usage = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
		}
		r.buf, err = d.hal.CreateBuffer(&hal.BufferDescriptor{
			Label: desc.Buffer.Label,
			Size:  alignUp4(desc.Buffer.Size),
			Usage: usage,
		})
	case desc.Misc&backend.MiscStaging != 0:
		r.buf, err = d.hal.CreateBuffer(&hal.BufferDescriptor{
			Label: desc.Texture.Label,
			Size:  alignUp4(desc.ByteSize()),
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
	default:
		t := desc.Texture
		r.tex, err = d.hal.CreateTexture(&hal.TextureDescriptor{
			Label:         t.Label,
			Size:          extent(desc),
			MipLevelCount: max(t.MipLevelCount, 1),
			SampleCount:   max(t.SampleCount, 1),
			Dimension:     t.Dimension,
			Format:        t.Format,
			Usage:         t.Usage,
			ViewFormats:   t.ViewFormats,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("halgpu: creating %v: %w", desc.Kind, err)
	}
	if len(data) > 0 {
		if err := b.upload(r, data); err != nil {
			r.destroy()
			return nil, err
		}
	}
	b.live++
	return r, nil
}

// upload writes initial content through the queue.
func (b *Backend) upload(r *Resource, data []byte) error {
	q := r.dev.queue
	if r.buf != nil {
		n := min(uint64(len(data)), r.size())
		if err := q.WriteBuffer(r.buf, 0, data[:n]); err != nil {
			return fmt.Errorf("halgpu: uploading %v: %w", r.desc.Kind, err)
		}
		return nil
	}
	ext := extent(r.desc)
	err := q.WriteTexture(
		&hal.ImageCopyTexture{Texture: r.tex, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: r.rowPitch(), RowsPerImage: ext.Height},
		&ext,
	)
	if err != nil {
		return fmt.Errorf("halgpu: uploading %v: %w", r.desc.Kind, err)
	}
	return nil
}

// CreateView implements backend.Factory.
func (b *Backend) CreateView(res backend.Resource, desc backend.ViewDesc) (backend.View, error) {
	r, err := b.own(res)
	if err != nil {
		return nil, err
	}
	if err := backend.CheckViewUsage(r.desc, desc); err != nil {
		return nil, fmt.Errorf("halgpu: %w", err)
	}
	v := &View{b: b, refs: 1, res: r, desc: desc}
	if r.tex != nil {
		td := desc.Texture
		format := desc.Format
		if format == gputypes.TextureFormatUndefined {
			format = r.desc.Texture.Format
		}
		aspect := td.Aspect
		if aspect == gputypes.TextureAspectUndefined {
			aspect = gputypes.TextureAspectAll
		}
		v.tv, err = r.dev.hal.CreateTextureView(r.tex, &hal.TextureViewDescriptor{
			Label:           td.Label,
			Format:          format,
			Dimension:       td.Dimension,
			Aspect:          aspect,
			BaseMipLevel:    td.BaseMipLevel,
			MipLevelCount:   td.MipLevelCount,
			BaseArrayLayer:  td.BaseArrayLayer,
			ArrayLayerCount: td.ArrayLayerCount,
		})
		if err != nil {
			return nil, fmt.Errorf("halgpu: creating %v view: %w", desc.Kind, err)
		}
	}
	r.AddRef()
	b.live++
	return v, nil
}

// CreateShader implements backend.Factory.
func (b *Backend) CreateShader(stage backend.ShaderStage, spirv []uint32) (backend.Shader, error) {
	if len(spirv) == 0 {
		return nil, fmt.Errorf("halgpu: empty %v shader", stage)
	}
	module, err := b.dev.hal.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  stage.String(),
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("halgpu: creating %v shader: %w", stage, err)
	}
	s := &Shader{stage: stage, hash: backend.HashShader(stage, spirv), dev: b.dev, module: module}
	b.shaders = append(b.shaders, s)
	return s, nil
}

// own converts a backend resource into one of ours.
func (b *Backend) own(r backend.Resource) (*Resource, error) {
	res, ok := r.(*Resource)
	if !ok || res == nil || res.b != b || res.refs <= 0 {
		return nil, fmt.Errorf("halgpu: %T: %w", r, backend.ErrInvalidResource)
	}
	return res, nil
}

// view converts a backend view into one of ours, or returns nil.
func (b *Backend) view(v backend.View) *View {
	hv, ok := v.(*View)
	if !ok || hv == nil || hv.b != b || hv.refs <= 0 {
		return nil
	}
	return hv
}
