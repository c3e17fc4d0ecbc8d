// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
)

const (
	bufferCopyUsage  = gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	textureCopyUsage = gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
)

// DestinationDesc returns the shape of a private destination for copying
// src into dst with flags, and false when the source cannot be bound
// there at all.
func DestinationDesc(dst Target, src backend.ResourceDesc, flags CopyFlags, caps backend.Capabilities) (backend.ResourceDesc, bool) {
	desc := src.Clone()
	desc.Misc &^= backend.MiscStaging
	desc.Buffer.MappedAtCreation = false

	if desc.Kind == backend.KindBuffer {
		usage := bufferCopyUsage
		switch dst.Kind {
		case TargetConstantBuffer:
			usage |= gputypes.BufferUsageUniform
			desc.Buffer.Size = min(desc.Buffer.Size, backend.MaxConstantBufferSize)
		case TargetVertexBuffer:
			usage |= gputypes.BufferUsageVertex
		case TargetIndexBuffer:
			usage |= gputypes.BufferUsageIndex
		case TargetStreamOutput:
			usage |= gputypes.BufferUsageVertex | gputypes.BufferUsageStorage
			desc.Misc |= backend.MiscStreamOutput
		case TargetShaderResource, TargetUnorderedAccess:
			usage |= gputypes.BufferUsageStorage
		case TargetCustom:
			usage |= src.Buffer.Usage &^ (gputypes.BufferUsageMapRead | gputypes.BufferUsageMapWrite)
		default:
			return desc, false
		}
		desc.Buffer.Usage = usage
		if flags&CopyStructured != 0 && desc.Stride != 0 {
			desc.Misc |= backend.MiscStructured
		}
		if flags&CopyRaw != 0 {
			desc.Misc |= backend.MiscRaw
		}
	} else {
		usage := textureCopyUsage
		switch dst.Kind {
		case TargetShaderResource:
			usage |= gputypes.TextureUsageTextureBinding
		case TargetUnorderedAccess:
			usage |= gputypes.TextureUsageStorageBinding
		case TargetRenderTarget, TargetDepthStencil:
			usage |= gputypes.TextureUsageRenderAttachment
		case TargetCustom:
			usage |= src.Texture.Usage | gputypes.TextureUsageTextureBinding
		default:
			return desc, false
		}
		desc.Texture.Usage = usage

		if flags&CopyStereo2Mono != 0 {
			desc.Texture.Size.Width *= 2
		}
		if flags&CopyResolveMSAA != 0 {
			desc.Texture.SampleCount = 1
		}
		if caps.ViewFormatReinterpretation {
			for _, f := range backend.CompatibleViewFormats(desc.Texture.Format) {
				if !slices.Contains(desc.Texture.ViewFormats, f) {
					desc.Texture.ViewFormats = append(desc.Texture.ViewFormats, f)
				}
			}
		}
	}

	if dst.Kind == TargetCustom && dst.Custom != nil {
		dst.Custom.Override.Apply(&desc)
	}
	desc.SetLabel(dst.String())
	return desc, true
}

// recreate returns a destination resource compatible with src, owned by
// the caller, or nil when none can be had this frame.
func (op *Copy) recreate(env *Env, src *Resolved) backend.Resource {
	desc, ok := DestinationDesc(op.Dst, src.Resource.Desc(), op.Flags, env.Backend.Capabilities())
	if !ok {
		migoto.Logger().Warn("resource: source cannot be copied to destination",
			"op", op.String(), "source", src.Resource.Desc().Kind)
		return nil
	}
	res, err := op.Pool().Acquire(env.Backend, desc)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			migoto.Logger().Warn("resource: destination creation failed", "op", op.String(), "err", err)
		}
		return nil
	}
	return res
}

// transfer fills dst from src using the first strategy that applies:
// stereo blit, multisample resolve, region copy, full copy.
func (op *Copy) transfer(env *Env, dst backend.Resource, src *Resolved) {
	b := env.Backend
	log := migoto.Logger()
	sd, dd := src.Resource.Desc(), dst.Desc()

	var err error
	switch {
	case op.Flags&CopyStereo2Mono != 0:
		if err = b.CopyRegion(dst, 0, 0, 0, src.Resource, nil); err != nil {
			break
		}
		if st, ok := b.(backend.Stereo); ok && st.StereoActive() {
			err = st.ReverseStereoBlit(dst, src.Resource)
			if err == nil || !errors.Is(err, backend.ErrUnsupported) {
				break
			}
			log.Debug("resource: reverse stereo blit unavailable, duplicating source", "op", op.String())
		}
		err = b.CopyRegion(dst, sd.Width(), 0, 0, src.Resource, nil)

	case sd.Kind.IsTexture() && sd.Texture.SampleCount > 1 && dd.Texture.SampleCount <= 1:
		format := dd.Texture.Format
		if !b.FormatSupport(format).Has(backend.FormatSupportResolve) {
			log.Info("resource: skipping multisample resolve, format lacks resolve support",
				"op", op.String(), "format", format)
			return
		}
		err = b.ResolveSubresource(dst, 0, src.Resource, 0, format)

	case sd.ByteSize() != dd.ByteSize() || sd.Kind != dd.Kind:
		box := regionBox(sd, dd)
		err = b.CopyRegion(dst, 0, 0, 0, src.Resource, &box)

	default:
		err = b.CopyResource(dst, src.Resource)
	}
	if err != nil {
		log.Warn("resource: copy failed", "op", op.String(), "err", err)
	}
}

// regionBox returns the part of src that fits into dst.
func regionBox(src, dst backend.ResourceDesc) backend.Box {
	if src.Kind == backend.KindBuffer || dst.Kind == backend.KindBuffer {
		n := min(src.ByteSize(), dst.ByteSize())
		return backend.Box{Right: uint32(n), Bottom: 1, Back: 1} // #nosec G115 -- buffers are far below 4 GiB
	}
	s, d := src.Texture.Size, dst.Texture.Size
	return backend.Box{
		Right:  min(s.Width, d.Width),
		Bottom: min(max(s.Height, 1), max(d.Height, 1)),
		Back:   min(max(s.DepthOrArrayLayers, 1), max(d.DepthOrArrayLayers, 1)),
	}
}
