// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gogpu/gputypes"
	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
)

// Override replaces parts of a resource shape. Zero fields keep the value
// they override.
type Override struct {
	Kind        backend.ResourceKind
	Width       uint32
	Height      uint32
	Depth       uint32 // depth of 3D textures, array layers otherwise
	MipLevels   uint32
	SampleCount uint32
	Format      gputypes.TextureFormat
	ByteWidth   uint64
	Stride      uint32
	Misc        backend.MiscFlags
	// Data is the initial content of a resource created from the override.
	Data []byte
}

// Empty reports whether o changes nothing.
func (o *Override) Empty() bool {
	return o.Kind == backend.KindUnknown && o.Width == 0 && o.Height == 0 && o.Depth == 0 &&
		o.MipLevels == 0 && o.SampleCount == 0 && o.Format == gputypes.TextureFormatUndefined &&
		o.ByteWidth == 0 && o.Stride == 0 && o.Misc == 0
}

// Apply writes the non-zero fields of o into desc.
func (o *Override) Apply(desc *backend.ResourceDesc) {
	if o.Kind != backend.KindUnknown {
		desc.Kind = o.Kind
	}
	if desc.Kind == backend.KindBuffer {
		if o.ByteWidth != 0 {
			desc.Buffer.Size = o.ByteWidth
		}
		if o.Stride != 0 {
			desc.Stride = o.Stride
			desc.Misc |= backend.MiscStructured
		}
		desc.Misc |= o.Misc
		return
	}
	t := &desc.Texture
	if o.Width != 0 {
		t.Size.Width = o.Width
	}
	if o.Height != 0 {
		t.Size.Height = o.Height
	}
	if o.Depth != 0 {
		t.Size.DepthOrArrayLayers = o.Depth
	}
	if o.MipLevels != 0 {
		t.MipLevelCount = o.MipLevels
	}
	if o.SampleCount != 0 {
		t.SampleCount = o.SampleCount
	}
	if o.Format != gputypes.TextureFormatUndefined {
		t.Format = o.Format
	}
	switch desc.Kind {
	case backend.KindTexture1D:
		t.Dimension = gputypes.TextureDimension1D
	case backend.KindTexture3D:
		t.Dimension = gputypes.TextureDimension3D
	default:
		t.Dimension = gputypes.TextureDimension2D
	}
	desc.Misc |= o.Misc
}

// desc builds a complete description from o alone.
func (o *Override) desc() backend.ResourceDesc {
	var d backend.ResourceDesc
	if o.Kind == backend.KindBuffer {
		size := o.ByteWidth
		if size == 0 {
			size = uint64(len(o.Data))
		}
		d = backend.BufferDesc(size, customBufferUsage)
	} else {
		d = backend.Texture2DDesc(1, 1, gputypes.TextureFormatRGBA8Unorm, customTextureUsage)
		d.Texture.Size.DepthOrArrayLayers = 1
	}
	o.Apply(&d)
	return d
}

const (
	customBufferUsage = gputypes.BufferUsageStorage | gputypes.BufferUsageVertex |
		gputypes.BufferUsageIndex | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	customTextureUsage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc |
		gputypes.TextureUsageCopyDst
)

// Custom is a named resource owned by the scripting runtime rather than
// the application. It is created lazily, once per device generation, from
// a file, from its Override, or left empty until a copy assigns it.
type Custom struct {
	Name     string
	Filename string
	Override Override
	// MaxCopiesPerFrame limits copies into the resource; 0 is unlimited.
	MaxCopiesPerFrame int

	res    backend.Resource
	view   backend.View
	stride uint32
	offset uint32
	size   uint32
	format gputypes.TextureFormat

	device        backend.Device
	substantiated bool

	copyFrame uint64
	copies    int

	pool *Pool
}

// NewCustom returns an empty custom resource.
func NewCustom(name string) *Custom {
	return &Custom{Name: name, pool: NewPool(4)}
}

// Substantiated reports whether the resource was created for the current
// device generation.
func (c *Custom) Substantiated() bool { return c.substantiated }

// Resource returns the backing resource without adding a reference.
func (c *Custom) Resource() backend.Resource { return c.res }

// Pool returns the pool destination resources for copies into c come from.
func (c *Custom) Pool() *Pool { return c.pool }

// Substantiate creates the backing resource if that has not happened on
// the current device yet.
func (c *Custom) Substantiate(env *Env) {
	dev := env.Backend.Device()
	if c.substantiated {
		if backend.SameDevice(c.device, dev) {
			return
		}
		migoto.Logger().Info("resource: device changed, recreating custom resource", "name", c.Name)
		c.Reset()
	}
	c.substantiated = true
	c.device = dev

	switch {
	case c.Filename != "":
		if err := c.load(env.Backend); err != nil {
			migoto.Logger().Warn("resource: loading custom resource failed",
				"name", c.Name, "file", c.Filename, "err", err)
		}
	case c.Override.Kind != backend.KindUnknown:
		d := c.Override.desc()
		d.SetLabel(c.Name)
		res, err := env.Backend.CreateResource(d, c.Override.Data)
		if err != nil {
			migoto.Logger().Warn("resource: creating custom resource failed", "name", c.Name, "err", err)
			return
		}
		c.res = res
		c.stride = d.Stride
		c.format = d.Format()
	}
}

// Reset releases the backing resource and view so the next use
// substantiates again.
func (c *Custom) Reset() {
	backend.Release(c.view)
	backend.Release(c.res)
	c.res, c.view = nil, nil
	c.stride, c.offset, c.size = 0, 0, 0
	c.format = gputypes.TextureFormatUndefined
	c.substantiated = false
	c.device = nil
	c.pool.Clear()
}

// Resolved returns the current content with owned references. Override
// metadata takes precedence over what the last assignment recorded.
func (c *Custom) Resolved() Resolved {
	r := Resolved{
		Resource: c.res,
		View:     c.view,
		Stride:   c.stride,
		Offset:   c.offset,
		Size:     c.size,
		Format:   c.format,
	}
	if c.Override.Stride != 0 {
		r.Stride = c.Override.Stride
	}
	if c.Override.Format != gputypes.TextureFormatUndefined {
		r.Format = c.Override.Format
	}
	return r.Clone()
}

// Assign makes c refer to r. r is borrowed.
func (c *Custom) Assign(env *Env, r Resolved) {
	r = r.Clone()
	backend.Release(c.view)
	backend.Release(c.res)
	c.res, c.view = r.Resource, r.View
	c.stride, c.offset, c.size, c.format = r.Stride, r.Offset, r.Size, r.Format
	c.substantiated = true
	c.device = env.Backend.Device()
	if r.Resource != nil {
		c.device = r.Resource.Device()
	}
}

// allowCopy counts a copy into c and reports whether it is within the
// per-frame limit.
func (c *Custom) allowCopy(frame uint64) bool {
	if c.MaxCopiesPerFrame <= 0 {
		return true
	}
	if c.copyFrame != frame {
		c.copyFrame = frame
		c.copies = 0
	}
	if c.copies >= c.MaxCopiesPerFrame {
		return false
	}
	c.copies++
	return true
}

// ResetCopyLimit lets the per-frame copy limit start over within the
// current frame.
func (c *Custom) ResetCopyLimit() { c.copies = 0 }

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// load creates the resource from c.Filename. Images become RGBA8 textures;
// any other file is uploaded as a raw buffer shaped by the override.
func (c *Custom) load(b backend.Backend) error {
	data, err := os.ReadFile(c.Filename)
	if err != nil {
		return err
	}

	var desc backend.ResourceDesc
	if imageExts[strings.ToLower(filepath.Ext(c.Filename))] {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("decoding %s: %w", filepath.Base(c.Filename), err)
		}
		bounds := img.Bounds()
		rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
		format := gputypes.TextureFormatRGBA8Unorm
		if c.Override.Format == gputypes.TextureFormatRGBA8UnormSrgb {
			format = c.Override.Format
		}
		desc = backend.Texture2DDesc(uint32(bounds.Dx()), uint32(bounds.Dy()), format, customTextureUsage) // #nosec G115 -- image sizes fit
		data = rgba.Pix
	} else {
		desc = backend.BufferDesc(uint64(len(data)), customBufferUsage)
		if c.Override.Kind == backend.KindBuffer || c.Override.Kind == backend.KindUnknown {
			c.Override.Apply(&desc)
		}
		if uint64(len(data)) > desc.Buffer.Size {
			data = data[:desc.Buffer.Size]
		}
	}
	desc.SetLabel(c.Name)

	res, err := b.CreateResource(desc, data)
	if err != nil {
		return err
	}
	migoto.Logger().Info("resource: loaded custom resource", "name", c.Name,
		"kind", desc.Kind, "size", humanize.IBytes(desc.ByteSize()))
	c.res = res
	c.stride = desc.Stride
	c.format = desc.Format()
	return nil
}
