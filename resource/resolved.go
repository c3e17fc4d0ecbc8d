// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/migoto/backend"
)

// Env is the live state a target is resolved against.
type Env struct {
	Backend backend.Backend

	// This is the contextual resource for the "this" target. The
	// references are borrowed from the operation that installed it.
	This Resolved
	// ThisTarget, when set, is the binding point "this" stands for, so
	// that binding to "this" rebinds it.
	ThisTarget *Target

	// IniParams and StereoParams back the synthetic targets of the same
	// names. Borrowed.
	IniParams    Resolved
	StereoParams Resolved

	// Frame is the number of the current frame, used for per-frame limits.
	Frame uint64
}

// Resolved is a binding point resolved against live state. The references
// it holds are owned and released by Release.
type Resolved struct {
	Resource backend.Resource
	View     backend.View

	Stride uint32
	Offset uint32
	Format gputypes.TextureFormat
	// Size is the byte size of a buffer binding, 0 for the whole buffer.
	Size uint32
}

// Empty reports whether nothing is bound.
func (r *Resolved) Empty() bool { return r.Resource == nil && r.View == nil }

// Release drops the references held by r and clears it.
func (r *Resolved) Release() {
	if r.View != nil {
		r.View.Release()
	}
	if r.Resource != nil {
		r.Resource.Release()
	}
	*r = Resolved{}
}

// Clone returns a copy of r holding its own references.
func (r Resolved) Clone() Resolved {
	if r.Resource != nil {
		r.Resource.AddRef()
	}
	if r.View != nil {
		r.View.AddRef()
	}
	return r
}

// fromView builds an owned Resolved from an owned view.
func fromView(v backend.View) Resolved {
	if v == nil {
		return Resolved{}
	}
	res := v.Resource()
	if res != nil {
		res.AddRef()
	}
	d := v.Desc()
	r := Resolved{Resource: res, View: v, Format: d.Format}
	if res != nil && res.Desc().Kind == backend.KindBuffer {
		r.Stride = res.Desc().Stride
		r.Offset = d.FirstElement * max(r.Stride, 1)
		if d.NumElements > 0 {
			r.Size = d.NumElements * max(r.Stride, 1)
		}
	}
	return r
}

func indexTextureFormat(f gputypes.IndexFormat) gputypes.TextureFormat {
	switch f {
	case gputypes.IndexFormatUint16:
		return gputypes.TextureFormatR16Uint
	case gputypes.IndexFormatUint32:
		return gputypes.TextureFormatR32Uint
	}
	return gputypes.TextureFormatUndefined
}

func textureIndexFormat(f gputypes.TextureFormat) gputypes.IndexFormat {
	if f == gputypes.TextureFormatR16Uint {
		return gputypes.IndexFormatUint16
	}
	return gputypes.IndexFormatUint32
}
