// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"github.com/gogpu/gputypes"
)

// Binding slot limits per stage.
const (
	MaxConstantBuffers = 14
	MaxShaderResources = 128
	MaxUnorderedAccess = 8
	MaxRenderTargets   = 8
	MaxVertexBuffers   = 32
	MaxStreamOutputs   = 4

	// MaxConstantBufferSize is the largest constant buffer a destination
	// may be recreated with.
	MaxConstantBufferSize = 65536
)

// ShaderStage identifies a programmable pipeline stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageHull
	StageDomain
	StageGeometry
	StagePixel
	StageCompute

	NumStages = 6
)

var stagePrefixes = [...]string{
	StageVertex:   "vs",
	StageHull:     "hs",
	StageDomain:   "ds",
	StageGeometry: "gs",
	StagePixel:    "ps",
	StageCompute:  "cs",
}

// String returns the two letter stage prefix ("vs", "ps", ...).
func (s ShaderStage) String() string {
	if int(s) < len(stagePrefixes) {
		return stagePrefixes[s]
	}
	return "??"
}

// ParseStage maps a two letter stage prefix to its ShaderStage.
func ParseStage(prefix string) (ShaderStage, bool) {
	for i, p := range stagePrefixes {
		if p == prefix {
			return ShaderStage(i), true
		}
	}
	return 0, false
}

// Stages lists all stages in pipeline order.
func Stages() []ShaderStage {
	return []ShaderStage{StageVertex, StageHull, StageDomain, StageGeometry, StagePixel, StageCompute}
}

// ResourceKind is the dimensionality of a resource.
type ResourceKind uint8

const (
	KindUnknown ResourceKind = iota
	KindBuffer
	KindTexture1D
	KindTexture2D
	KindTexture3D
)

var kindNames = [...]string{
	KindUnknown:   "Unknown",
	KindBuffer:    "Buffer",
	KindTexture1D: "Texture1D",
	KindTexture2D: "Texture2D",
	KindTexture3D: "Texture3D",
}

// String returns the kind name.
func (k ResourceKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// IsTexture reports whether k is one of the texture kinds.
func (k ResourceKind) IsTexture() bool {
	return k >= KindTexture1D && k <= KindTexture3D
}

// MiscFlags carry resource properties that have no gputypes equivalent.
type MiscFlags uint32

const (
	// MiscStructured marks a buffer of fixed-size elements (Stride).
	MiscStructured MiscFlags = 1 << iota
	// MiscRaw marks a byte-addressable buffer.
	MiscRaw
	// MiscDrawIndirect marks a buffer that may hold indirect arguments.
	MiscDrawIndirect
	// MiscStreamOutput marks a buffer that may be a stream output target.
	MiscStreamOutput
	// MiscTextureCube marks a 2D array texture meant to be viewed as a cube.
	MiscTextureCube
	// MiscStaging marks a host readable resource used for readback.
	MiscStaging
)

// ResourceDesc describes the shape of a resource. Only one of Buffer or
// Texture is meaningful, selected by Kind.
type ResourceDesc struct {
	Kind    ResourceKind
	Buffer  gputypes.BufferDescriptor
	Texture gputypes.TextureDescriptor
	// Stride is the element size of a structured buffer.
	Stride uint32
	Misc   MiscFlags
}

// BufferDesc returns a buffer description of size bytes.
func BufferDesc(size uint64, usage gputypes.BufferUsage) ResourceDesc {
	return ResourceDesc{
		Kind:   KindBuffer,
		Buffer: gputypes.BufferDescriptor{Size: size, Usage: usage},
	}
}

// Texture2DDesc returns a single-mip 2D texture description.
func Texture2DDesc(width, height uint32, format gputypes.TextureFormat, usage gputypes.TextureUsage) ResourceDesc {
	return ResourceDesc{
		Kind: KindTexture2D,
		Texture: gputypes.TextureDescriptor{
			Size:          gputypes.NewExtent2D(width, height),
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        format,
			Usage:         usage,
		},
	}
}

// ByteSize returns the number of bytes needed to hold the top mip level of
// every layer and sample.
func (d ResourceDesc) ByteSize() uint64 {
	if d.Kind == KindBuffer {
		return d.Buffer.Size
	}
	t := d.Texture
	samples := uint64(max(t.SampleCount, 1))
	return uint64(t.Size.Width) * uint64(max(t.Size.Height, 1)) *
		uint64(max(t.Size.DepthOrArrayLayers, 1)) * samples * uint64(FormatSize(t.Format))
}

// Width returns the width in texels (bytes for buffers).
func (d ResourceDesc) Width() uint32 {
	if d.Kind == KindBuffer {
		return uint32(d.Buffer.Size) // #nosec G115 -- buffers are far below 4 GiB
	}
	return d.Texture.Size.Width
}

// Format returns the texture format, or Undefined for buffers.
func (d ResourceDesc) Format() gputypes.TextureFormat {
	if d.Kind == KindBuffer {
		return gputypes.TextureFormatUndefined
	}
	return d.Texture.Format
}

// Clone returns a copy that shares no slices with d.
func (d ResourceDesc) Clone() ResourceDesc {
	if d.Texture.ViewFormats != nil {
		d.Texture.ViewFormats = append([]gputypes.TextureFormat(nil), d.Texture.ViewFormats...)
	}
	return d
}

// SetLabel sets the debug label of the descriptor selected by Kind.
func (d *ResourceDesc) SetLabel(label string) {
	if d.Kind == KindBuffer {
		d.Buffer.Label = label
	} else {
		d.Texture.Label = label
	}
}

// ViewKind is the way a view exposes a resource to the pipeline.
type ViewKind uint8

const (
	ViewShaderResource ViewKind = iota
	ViewUnorderedAccess
	ViewRenderTarget
	ViewDepthStencil
)

var viewKindNames = [...]string{
	ViewShaderResource:  "ShaderResource",
	ViewUnorderedAccess: "UnorderedAccess",
	ViewRenderTarget:    "RenderTarget",
	ViewDepthStencil:    "DepthStencil",
}

// String returns the view kind name.
func (k ViewKind) String() string {
	if int(k) < len(viewKindNames) {
		return viewKindNames[k]
	}
	return "Unknown"
}

// ViewDesc describes a view.
type ViewDesc struct {
	Kind ViewKind
	// Format is the element format. Undefined means the resource format
	// for textures, or a structured/raw view for buffers.
	Format gputypes.TextureFormat
	// FirstElement and NumElements select a buffer range in elements.
	FirstElement uint32
	NumElements  uint32
	// Raw requests a byte-addressed buffer view.
	Raw bool
	// Texture selects the texture subresources.
	Texture gputypes.TextureViewDescriptor
}

// Box is a region of a resource in texels (bytes for buffers).
// Right, Bottom and Back are exclusive.
type Box struct {
	Left, Top, Front    uint32
	Right, Bottom, Back uint32
}

// Viewport is a rasterizer viewport.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Rect is a scissor rectangle. Right and Bottom are exclusive.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// FormatSupport describes what a backend can do with a format.
type FormatSupport uint32

const (
	FormatSupportSampled FormatSupport = 1 << iota
	FormatSupportRenderTarget
	FormatSupportStorage
	FormatSupportMultisample
	FormatSupportResolve
)

// Has reports whether every bit of flag is set.
func (f FormatSupport) Has(flag FormatSupport) bool {
	return f&flag == flag
}

// Capabilities describes optional backend behavior the copy engine adapts to.
type Capabilities struct {
	// ViewFormatReinterpretation reports that a resource created with a
	// list of ViewFormats can be viewed through any of them.
	ViewFormatReinterpretation bool
}

// Eye selects the stereo view that subsequent rendering targets.
type Eye uint8

const (
	EyeMono Eye = iota
	EyeLeft
	EyeRight
)

// FormatSize returns the size in bytes of one texel of format.
// Block compressed and unknown formats return 4.
func FormatSize(format gputypes.TextureFormat) uint32 {
	switch format {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint,
		gputypes.TextureFormatStencil8:
		return 1
	case gputypes.TextureFormatR16Unorm, gputypes.TextureFormatR16Snorm,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint,
		gputypes.TextureFormatR16Float, gputypes.TextureFormatRG8Unorm,
		gputypes.TextureFormatRG8Snorm, gputypes.TextureFormatRG8Uint,
		gputypes.TextureFormatRG8Sint, gputypes.TextureFormatDepth16Unorm:
		return 2
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRG32Uint,
		gputypes.TextureFormatRG32Sint, gputypes.TextureFormatRGBA16Unorm,
		gputypes.TextureFormatRGBA16Snorm, gputypes.TextureFormatRGBA16Uint,
		gputypes.TextureFormatRGBA16Sint, gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA32Uint,
		gputypes.TextureFormatRGBA32Sint:
		return 16
	default:
		return 4
	}
}

// srgbPairs maps formats to their sRGB/linear sibling.
var srgbPairs = map[gputypes.TextureFormat]gputypes.TextureFormat{
	gputypes.TextureFormatRGBA8Unorm:     gputypes.TextureFormatRGBA8UnormSrgb,
	gputypes.TextureFormatRGBA8UnormSrgb: gputypes.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatBGRA8Unorm:     gputypes.TextureFormatBGRA8UnormSrgb,
	gputypes.TextureFormatBGRA8UnormSrgb: gputypes.TextureFormatBGRA8Unorm,
}

// CompatibleViewFormats returns the formats a view of format may be
// reinterpreted as, excluding format itself.
func CompatibleViewFormats(format gputypes.TextureFormat) []gputypes.TextureFormat {
	if sib, ok := srgbPairs[format]; ok {
		return []gputypes.TextureFormat{sib}
	}
	return nil
}
