// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package memory

import (
	"errors"
	"fmt"

	"github.com/gogpu/migoto/backend"
)

// Resource is a buffer or texture stored as bytes.
type Resource struct {
	b    *Backend
	refs int
	desc backend.ResourceDesc
	dev  *Device
	data []byte
	hash uint64

	// readyFrame is the first frame Map succeeds after a GPU write.
	readyFrame uint64
	mapped     bool
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
		r.data = nil
	}
	return r.refs
}

// Desc implements backend.Resource.
func (r *Resource) Desc() backend.ResourceDesc { return r.desc }

// Device implements backend.Resource.
func (r *Resource) Device() backend.Device { return r.dev }

// Hash implements backend.Resource.
func (r *Resource) Hash() uint64 { return r.hash }

// Refs returns the current reference count.
func (r *Resource) Refs() int { return r.refs }

// Data returns the backing bytes. The slice aliases the resource.
func (r *Resource) Data() []byte { return r.data }

// View is a view of a memory resource. It keeps the resource alive.
type View struct {
	b    *Backend
	refs int
	res  *Resource
	desc backend.ViewDesc
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
		v.res.Release()
	}
	return v.refs
}

// Desc implements backend.View.
func (v *View) Desc() backend.ViewDesc { return v.desc }

// Resource implements backend.View.
func (v *View) Resource() backend.Resource { return v.res }

// Refs returns the current reference count.
func (v *View) Refs() int { return v.refs }

// Shader is a shader identified only by its hash.
type Shader struct {
	stage backend.ShaderStage
	hash  uint64
}

// NewShader returns a shader with a fixed hash, as if the application had
// created it.
func NewShader(stage backend.ShaderStage, hash uint64) *Shader {
	return &Shader{stage: stage, hash: hash}
}

// Stage implements backend.Shader.
func (s *Shader) Stage() backend.ShaderStage { return s.stage }

// Hash implements backend.Shader.
func (s *Shader) Hash() uint64 { return s.hash }

var errInvalidDesc = errors.New("memory: invalid resource description")

// CreateResource implements backend.Factory.
func (b *Backend) CreateResource(desc backend.ResourceDesc, data []byte) (backend.Resource, error) {
	if b.createHook != nil {
		if err := b.createHook(desc); err != nil {
			return nil, err
		}
	}
	switch {
	case desc.Kind == backend.KindBuffer && desc.Buffer.Size == 0,
		desc.Kind.IsTexture() && desc.Texture.Size.Width == 0,
		desc.Kind == backend.KindUnknown:
		return nil, fmt.Errorf("%w: %v", errInvalidDesc, desc.Kind)
	}
	r := &Resource{
		b:    b,
		refs: 1,
		desc: desc.Clone(),
		dev:  b.device,
		data: make([]byte, desc.ByteSize()),
		hash: backend.HashResource(desc, data),
	}
	copy(r.data, data)
	b.live++
	b.created++
	return r, nil
}

// CreateView implements backend.Factory.
func (b *Backend) CreateView(res backend.Resource, desc backend.ViewDesc) (backend.View, error) {
	r, err := b.own(res)
	if err != nil {
		return nil, err
	}
	if err := backend.CheckViewUsage(r.desc, desc); err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}
	r.AddRef()
	b.live++
	return &View{b: b, refs: 1, res: r, desc: desc}, nil
}

// CreateShader implements backend.Factory.
func (b *Backend) CreateShader(stage backend.ShaderStage, spirv []uint32) (backend.Shader, error) {
	if len(spirv) == 0 {
		return nil, fmt.Errorf("memory: empty %v shader", stage)
	}
	return &Shader{stage: stage, hash: backend.HashShader(stage, spirv)}, nil
}
