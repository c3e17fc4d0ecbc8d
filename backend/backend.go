// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotReady is returned by Map while the GPU has not finished writing
	// the resource. It is not a failure: retry on a later frame.
	ErrNotReady = errors.New("backend: not ready")

	// ErrUnsupported is returned for operations a backend cannot perform.
	ErrUnsupported = errors.New("backend: unsupported")

	// ErrInvalidResource is returned when a resource belongs to another
	// backend or device, or has already been destroyed.
	ErrInvalidResource = errors.New("backend: invalid resource")
)

// Device identifies one device generation. Resources remember the device
// that created them; after a device reset they no longer match Backend.Device.
type Device interface {
	ID() uint64
}

// Resource is a reference counted buffer or texture.
//
// Every reference returned by a getter in this package is owned by the
// caller and must be released exactly once. Setters take their own reference.
type Resource interface {
	AddRef()
	// Release drops one reference and returns the remaining count.
	Release() int
	Desc() ResourceDesc
	Device() Device
	// Hash is the content hash used to match texture overrides.
	Hash() uint64
}

// View is a reference counted view of a resource.
type View interface {
	AddRef()
	Release() int
	Desc() ViewDesc
	// Resource returns the viewed resource. The reference is borrowed.
	Resource() Resource
}

// Shader is a compiled shader bound to one stage.
type Shader interface {
	Stage() ShaderStage
	Hash() uint64
}

// Bindings exposes the pipeline binding points.
//
// Render targets and stream output targets are only available as whole
// arrays, the same way the underlying APIs expose them.
type Bindings interface {
	ConstantBuffer(stage ShaderStage, slot int) Resource
	SetConstantBuffer(stage ShaderStage, slot int, res Resource)
	ShaderResource(stage ShaderStage, slot int) View
	SetShaderResource(stage ShaderStage, slot int, v View)
	UnorderedAccess(stage ShaderStage, slot int) View
	SetUnorderedAccess(stage ShaderStage, slot int, v View)

	RenderTargets() (rtvs []View, dsv View)
	SetRenderTargets(rtvs []View, dsv View)

	VertexBuffer(slot int) (res Resource, stride, offset uint32)
	SetVertexBuffer(slot int, res Resource, stride, offset uint32)
	IndexBuffer() (res Resource, format gputypes.IndexFormat, offset uint32)
	SetIndexBuffer(res Resource, format gputypes.IndexFormat, offset uint32)

	StreamOutputs() (targets []Resource, offsets []uint32)
	SetStreamOutputs(targets []Resource, offsets []uint32)

	Shader(stage ShaderStage) Shader
	SetShader(stage ShaderStage, s Shader)

	Viewport() Viewport
	Scissor() Rect

	// BackBuffer returns the presented back buffer. With real set it
	// returns the swap chain buffer even when rendering is redirected.
	BackBuffer(real bool) Resource
}

// Factory creates device objects.
type Factory interface {
	// CreateResource creates a resource and optionally uploads data.
	CreateResource(desc ResourceDesc, data []byte) (Resource, error)
	CreateView(res Resource, desc ViewDesc) (View, error)
	CreateShader(stage ShaderStage, spirv []uint32) (Shader, error)
}

// Transfer moves data between resources and to the host.
type Transfer interface {
	CopyResource(dst, src Resource) error
	// CopyRegion copies box of src to dst at (dstX, dstY, dstZ). A nil
	// box copies the whole source.
	CopyRegion(dst Resource, dstX, dstY, dstZ uint32, src Resource, box *Box) error
	ResolveSubresource(dst Resource, dstSub uint32, src Resource, srcSub uint32, format gputypes.TextureFormat) error
	FormatSupport(format gputypes.TextureFormat) FormatSupport

	// Map returns the contents of a staging resource. It returns
	// ErrNotReady while the GPU is still writing it.
	Map(res Resource) ([]byte, error)
	Unmap(res Resource)

	ClearRenderTarget(v View, color gputypes.Color)
	ClearDepthStencil(v View, depth float32, stencil uint8)
	ClearUnorderedAccessFloat(v View, values [4]float32)
	ClearUnorderedAccessUint(v View, values [4]uint32)
}

// Draws issues draw and dispatch calls against the current bindings.
type Draws interface {
	Draw(vertexCount, startVertex uint32)
	DrawIndexed(indexCount, startIndex uint32, baseVertex int32)
	DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32)
	DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32)
	DrawAuto()
	DrawInstancedIndirect(args Resource, offset uint32)
	DrawIndexedInstancedIndirect(args Resource, offset uint32)
	Dispatch(x, y, z uint32)
	DispatchIndirect(args Resource, offset uint32)
}

// Backend is the graphics backend the scripting core drives.
type Backend interface {
	Bindings
	Factory
	Transfer
	Draws

	// Name returns the registry name of the backend.
	Name() string
	// Device returns the current device generation.
	Device() Device
	Capabilities() Capabilities
}

// Stereo is implemented by backends driving a stereo display.
type Stereo interface {
	StereoActive() bool
	Separation() float32
	SetSeparation(v float32)
	Convergence() float32
	SetConvergence(v float32)
	EyeSeparation() float32
	SetActiveEye(e Eye) error
	// ReverseStereoBlit copies the right eye view of src into the right
	// half of dst, which is twice as wide. It returns ErrUnsupported when
	// the driver cannot expose the second view.
	ReverseStereoBlit(dst, src Resource) error
}

// Release releases every non-nil resource in rs.
func Release[T interface{ Release() int }](rs ...T) {
	for _, r := range rs {
		if any(r) != nil {
			r.Release()
		}
	}
}

// SameDevice reports whether a and b identify the same device generation.
func SameDevice(a, b Device) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID() == b.ID()
}
