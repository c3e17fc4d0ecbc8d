// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
)

// CopyFlags modify a copy operation.
type CopyFlags uint16

const (
	// CopyByValue copies the content into a destination owned by the
	// operation.
	CopyByValue CopyFlags = 1 << iota
	// CopyByReference binds the source resource itself.
	CopyByReference
	// CopyDescOnly creates a destination shaped like the source without
	// copying its content.
	CopyDescOnly
	// CopyStereo2Mono copies both eyes side by side into a double width
	// destination.
	CopyStereo2Mono
	// CopyResolveMSAA resolves a multisampled source.
	CopyResolveMSAA
	// CopyRaw requests a byte addressed buffer view.
	CopyRaw
	// CopyStructured requests a structured buffer view.
	CopyStructured
	// CopyNoViewCache creates a fresh view on every run.
	CopyNoViewCache
	// CopyUnlessNull leaves the destination alone when the source is empty.
	CopyUnlessNull
)

var copyFlagNames = []struct {
	name string
	flag CopyFlags
}{
	{"copy", CopyByValue},
	{"ref", CopyByReference},
	{"reference", CopyByReference},
	{"copy_desc", CopyDescOnly},
	{"stereo2mono", CopyStereo2Mono},
	{"resolve_msaa", CopyResolveMSAA},
	{"raw", CopyRaw},
	{"structured", CopyStructured},
	{"no_view_cache", CopyNoViewCache},
	{"unless_null", CopyUnlessNull},
}

// ParseCopyFlags parses copy option words such as "ref" or "unless_null".
func ParseCopyFlags(words []string) (CopyFlags, error) {
	var f CopyFlags
	for _, w := range words {
		found := false
		for _, n := range copyFlagNames {
			if strings.EqualFold(w, n.name) {
				f |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("resource: unknown copy option %q", w)
		}
	}
	if f&CopyByValue != 0 && f&CopyByReference != 0 {
		return 0, errors.New("resource: copy and ref are mutually exclusive")
	}
	return f, nil
}

// String returns the option words of f.
func (f CopyFlags) String() string {
	var words []string
	for _, n := range copyFlagNames {
		if f&n.flag != 0 && n.name != "reference" {
			words = append(words, n.name)
		}
	}
	return strings.Join(words, " ")
}

// DefaultMethod returns CopyByValue or CopyByReference for a copy from src
// to dst when no method was given. The first matching rule wins:
//
//  1. same kind of binding point: reference
//  2. either end is a render target or depth target: reference
//  3. destination is a custom resource: value
//  4. source is a custom resource or null: reference
//  5. otherwise: value
func DefaultMethod(dst, src Target) CopyFlags {
	isRT := func(k TargetKind) bool { return k == TargetRenderTarget || k == TargetDepthStencil }
	switch {
	case dst.Kind == src.Kind:
		return CopyByReference
	case isRT(dst.Kind) || isRT(src.Kind):
		return CopyByReference
	case dst.Kind == TargetCustom:
		return CopyByValue
	case src.Kind == TargetCustom || src.Kind == TargetNull:
		return CopyByReference
	}
	return CopyByValue
}

// Copy moves what is bound at Src to Dst.
type Copy struct {
	Dst   Target
	Src   Target
	Flags CopyFlags

	pool       *Pool
	cachedView backend.View
}

// NewCopy validates a copy from src to dst. Without an explicit method the
// default table decides; options that need a private destination imply a
// copy by value.
func NewCopy(dst, src Target, flags CopyFlags) (*Copy, error) {
	if !dst.Bindable() {
		return nil, fmt.Errorf("%w: %s", ErrNotBindable, dst)
	}
	if flags&(CopyByValue|CopyByReference) == 0 {
		if flags&(CopyDescOnly|CopyStereo2Mono|CopyResolveMSAA) != 0 {
			flags |= CopyByValue
		} else {
			flags |= DefaultMethod(dst, src)
		}
	}
	if flags&CopyByReference != 0 && flags&(CopyDescOnly|CopyStereo2Mono|CopyResolveMSAA) != 0 {
		return nil, fmt.Errorf("resource: %s cannot be combined with ref", flags&^CopyByReference)
	}
	return &Copy{Dst: dst, Src: src, Flags: flags, pool: NewPool(DefaultPoolSize)}, nil
}

// Pool returns the pool destinations of this operation come from.
func (op *Copy) Pool() *Pool {
	if op.Dst.Kind == TargetCustom && op.Dst.Custom != nil {
		return op.Dst.Custom.Pool()
	}
	return op.pool
}

// Close releases the resources cached by the operation.
func (op *Copy) Close() {
	backend.Release(op.cachedView)
	op.cachedView = nil
	op.pool.Clear()
}

func (op *Copy) String() string {
	s := op.Dst.String() + " = " + op.Src.String()
	if op.Flags != 0 {
		s = op.Dst.String() + " = " + op.Flags.String() + " " + op.Src.String()
	}
	return s
}

// Run performs the copy once. Failures are logged and leave the pipeline
// as consistent as possible; nothing is returned to the caller.
func (op *Copy) Run(env *Env) {
	log := migoto.Logger()
	if op.Dst.Kind == TargetCustom && op.Dst.Custom != nil && !op.Dst.Custom.allowCopy(env.Frame) {
		log.Debug("resource: per-frame copy limit reached", "op", op.String())
		return
	}

	src := op.Src.Resolve(env)
	defer src.Release()

	if src.Resource == nil {
		if op.Flags&CopyUnlessNull != 0 {
			return
		}
		if err := op.Dst.Bind(env, Resolved{}); err != nil {
			log.Debug("resource: clearing destination failed", "op", op.String(), "err", err)
		}
		return
	}

	var dst Resolved
	if op.Flags&CopyByReference != 0 {
		dst = src.Clone()
	} else {
		res := op.recreate(env, &src)
		if res == nil {
			return
		}
		dst.Resource = res
		if op.Flags&CopyDescOnly == 0 {
			op.transfer(env, res, &src)
		}
	}
	defer dst.Release()

	op.backfill(&dst, &src)
	op.ensureView(env, &dst)

	if err := op.Dst.Bind(env, dst); err != nil {
		log.Warn("resource: binding copy destination failed", "op", op.String(), "err", err)
	}
}

// backfill completes missing metadata from the destination override, then
// the source view, then the source resource.
func (op *Copy) backfill(dst, src *Resolved) {
	if op.Dst.Kind == TargetCustom && op.Dst.Custom != nil {
		ov := &op.Dst.Custom.Override
		if dst.Stride == 0 {
			dst.Stride = ov.Stride
		}
		if dst.Format == gputypes.TextureFormatUndefined {
			dst.Format = ov.Format
		}
	}
	if dst.Stride == 0 {
		dst.Stride = src.Stride
	}
	if dst.Format == gputypes.TextureFormatUndefined {
		dst.Format = src.Format
	}
	if dst.Offset == 0 {
		dst.Offset = src.Offset
	}
	if dst.Size == 0 {
		dst.Size = src.Size
	}

	sd := src.Resource.Desc()
	if dst.Stride == 0 {
		dst.Stride = sd.Stride
	}
	if dst.Format == gputypes.TextureFormatUndefined {
		dst.Format = sd.Format()
	}
	if dst.Resource != nil && dst.Resource.Desc().Kind == backend.KindBuffer && dst.Size != 0 {
		dst.Size = min(dst.Size, uint32(dst.Resource.Desc().Buffer.Size)) // #nosec G115 -- bounded by Size
	}
}

// ensureView gives dst a view of the kind the destination binds, reusing
// the source view or the cached one when they fit.
func (op *Copy) ensureView(env *Env, dst *Resolved) {
	kind, ok := op.Dst.ViewKind()
	if !ok {
		if op.Dst.Kind != TargetCustom && dst.View != nil {
			dst.View.Release()
			dst.View = nil
		}
		return
	}
	if dst.View != nil && dst.View.Desc().Kind == kind && op.Flags&(CopyRaw|CopyStructured) == 0 {
		return
	}
	if dst.View != nil {
		dst.View.Release()
		dst.View = nil
	}

	if op.Flags&CopyNoViewCache == 0 && op.cachedView != nil &&
		op.cachedView.Resource() == dst.Resource && op.cachedView.Desc().Kind == kind {
		op.cachedView.AddRef()
		dst.View = op.cachedView
		return
	}

	v, err := env.Backend.CreateView(dst.Resource, op.viewDesc(kind, dst))
	if err != nil {
		migoto.Logger().Warn("resource: creating destination view failed",
			"op", op.String(), "view", kind, "err", err)
		return
	}
	dst.View = v
	if op.Flags&CopyNoViewCache == 0 {
		backend.Release(op.cachedView)
		v.AddRef()
		op.cachedView = v
	}
}

func (op *Copy) viewDesc(kind backend.ViewKind, dst *Resolved) backend.ViewDesc {
	vd := backend.ViewDesc{Kind: kind, Format: dst.Format}
	rd := dst.Resource.Desc()
	if rd.Kind != backend.KindBuffer {
		vd.Texture.Format = dst.Format
		return vd
	}
	elem := uint32(0)
	switch {
	case op.Flags&CopyRaw != 0:
		vd.Raw = true
		vd.Format = gputypes.TextureFormatUndefined
		elem = 4
	case op.Flags&CopyStructured != 0 || dst.Stride != 0 && vd.Format == gputypes.TextureFormatUndefined:
		vd.Format = gputypes.TextureFormatUndefined
		elem = dst.Stride
	default:
		elem = backend.FormatSize(vd.Format)
	}
	if elem == 0 {
		elem = 4
	}
	vd.FirstElement = dst.Offset / elem
	size := uint32(rd.Buffer.Size) // #nosec G115 -- buffers are far below 4 GiB
	if dst.Size != 0 {
		size = dst.Size
	}
	vd.NumElements = (size - min(size, dst.Offset)) / elem
	return vd
}
