// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/internal/cache"
)

// ErrUnavailable is returned by Pool.Acquire for a shape whose creation
// already failed on the current device.
var ErrUnavailable = errors.New("resource: shape unavailable")

// DefaultPoolSize is the soft limit on entries kept by a Pool.
const DefaultPoolSize = 16

type poolEntry struct {
	res         backend.Resource
	device      backend.Device
	unavailable bool
}

// Pool caches recreated resources by the structural hash of their shape.
// It holds at most one entry per shape; an entry created on another device
// is replaced on first use.
type Pool struct {
	entries *cache.Cache[uint64, *poolEntry]
	created int
}

// NewPool returns an empty pool keeping about size entries.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{
		entries: cache.NewWithEvict(size, func(_ uint64, e *poolEntry) {
			if e.res != nil {
				e.res.Release()
			}
		}),
	}
}

// ShapeHash returns the pool key of desc. Labels do not take part.
func ShapeHash(desc backend.ResourceDesc) uint64 {
	return backend.HashResource(desc, nil)
}

// Acquire returns a resource of shape desc created on b's current device,
// reusing a pooled one when possible. The returned reference is owned by
// the caller.
func (p *Pool) Acquire(b backend.Backend, desc backend.ResourceDesc) (backend.Resource, error) {
	key := ShapeHash(desc)
	dev := b.Device()
	if e, ok := p.entries.Get(key); ok {
		switch {
		case e.unavailable && backend.SameDevice(e.device, dev):
			return nil, ErrUnavailable
		case !e.unavailable && backend.SameDevice(e.device, dev):
			e.res.AddRef()
			return e.res, nil
		}
	}

	res, err := b.CreateResource(desc, nil)
	if err != nil {
		migoto.Logger().Warn("resource: pool creation failed",
			"kind", desc.Kind, "size", humanize.IBytes(desc.ByteSize()), "err", err)
		p.entries.Set(key, &poolEntry{device: dev, unavailable: true})
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	p.created++
	migoto.Logger().Debug("resource: pool created resource",
		"kind", desc.Kind, "size", humanize.IBytes(desc.ByteSize()), "entries", p.entries.Len()+1)
	p.entries.Set(key, &poolEntry{res: res, device: res.Device()})
	res.AddRef()
	return res, nil
}

// Created returns the number of resources the pool has created.
func (p *Pool) Created() int { return p.created }

// Len returns the number of cached shapes, including unavailable ones.
func (p *Pool) Len() int { return p.entries.Len() }

// Stats returns cache statistics.
func (p *Pool) Stats() cache.Stats { return p.entries.Stats() }

// Clear releases every pooled resource.
func (p *Pool) Clear() { p.entries.Clear() }
