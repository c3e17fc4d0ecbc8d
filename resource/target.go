// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/migoto/backend"
)

// ErrNotBindable is returned when binding to a target that only works as a
// source.
var ErrNotBindable = errors.New("resource: target cannot be bound")

// TargetKind identifies the kind of binding point a Target refers to.
type TargetKind uint8

const (
	TargetEmpty TargetKind = iota
	TargetConstantBuffer
	TargetShaderResource
	TargetUnorderedAccess
	TargetRenderTarget
	TargetDepthStencil
	TargetVertexBuffer
	TargetIndexBuffer
	TargetStreamOutput
	TargetCustom
	TargetThis
	TargetNull
	TargetBackBuffer
	TargetRealBackBuffer
	TargetIniParams
	TargetStereoParams
)

var targetKindNames = [...]string{
	TargetEmpty:           "Empty",
	TargetConstantBuffer:  "ConstantBuffer",
	TargetShaderResource:  "ShaderResource",
	TargetUnorderedAccess: "UnorderedAccess",
	TargetRenderTarget:    "RenderTarget",
	TargetDepthStencil:    "DepthStencil",
	TargetVertexBuffer:    "VertexBuffer",
	TargetIndexBuffer:     "IndexBuffer",
	TargetStreamOutput:    "StreamOutput",
	TargetCustom:          "Custom",
	TargetThis:            "This",
	TargetNull:            "Null",
	TargetBackBuffer:      "BackBuffer",
	TargetRealBackBuffer:  "RealBackBuffer",
	TargetIniParams:       "IniParams",
	TargetStereoParams:    "StereoParams",
}

// String returns the kind name.
func (k TargetKind) String() string {
	if int(k) < len(targetKindNames) {
		return targetKindNames[k]
	}
	return "Unknown"
}

// Target is a symbolic binding point. It holds no state beyond its kind
// and slot and is resolved against live state on every access.
type Target struct {
	Kind   TargetKind
	Stage  backend.ShaderStage
	Slot   int
	Custom *Custom
}

// CustomLookup finds a custom resource by name, without the "Resource"
// prefix.
type CustomLookup func(name string) *Custom

// ParseTarget parses the textual form of a binding point:
//
//	vs-cb0 ps-t3 cs-u1    per stage constant buffer, resource view, unordered view
//	o0 oD                 render target, depth stencil
//	vb0 ib so0            vertex buffer, index buffer, stream output
//	ResourceName          custom resource
//	this null bb r_bb IniParams StereoParams
//
// Names are case insensitive.
func ParseTarget(text string, lookup CustomLookup) (Target, error) {
	s := strings.TrimSpace(text)
	lower := strings.ToLower(s)

	switch lower {
	case "this":
		return Target{Kind: TargetThis}, nil
	case "null":
		return Target{Kind: TargetNull}, nil
	case "bb":
		return Target{Kind: TargetBackBuffer}, nil
	case "r_bb":
		return Target{Kind: TargetRealBackBuffer}, nil
	case "iniparams":
		return Target{Kind: TargetIniParams}, nil
	case "stereoparams":
		return Target{Kind: TargetStereoParams}, nil
	case "od":
		return Target{Kind: TargetDepthStencil}, nil
	case "ib":
		return Target{Kind: TargetIndexBuffer}, nil
	}

	if strings.HasPrefix(lower, "resource") && len(s) > len("resource") {
		name := s[len("resource"):]
		var c *Custom
		if lookup != nil {
			c = lookup(name)
		}
		if c == nil {
			return Target{}, fmt.Errorf("resource: unknown custom resource %q", s)
		}
		return Target{Kind: TargetCustom, Custom: c}, nil
	}

	if stage, rest, ok := strings.Cut(lower, "-"); ok {
		st, ok := backend.ParseStage(stage)
		if !ok {
			return Target{}, fmt.Errorf("resource: unknown shader stage in %q", s)
		}
		for _, p := range []struct {
			prefix string
			kind   TargetKind
			max    int
		}{
			{"cb", TargetConstantBuffer, backend.MaxConstantBuffers},
			{"t", TargetShaderResource, backend.MaxShaderResources},
			{"u", TargetUnorderedAccess, backend.MaxUnorderedAccess},
		} {
			if num, ok := strings.CutPrefix(rest, p.prefix); ok {
				slot, err := parseSlot(num, p.max)
				if err != nil {
					return Target{}, fmt.Errorf("resource: %q: %w", s, err)
				}
				return Target{Kind: p.kind, Stage: st, Slot: slot}, nil
			}
		}
		return Target{}, fmt.Errorf("resource: unknown slot type in %q", s)
	}

	for _, p := range []struct {
		prefix string
		kind   TargetKind
		max    int
	}{
		{"vb", TargetVertexBuffer, backend.MaxVertexBuffers},
		{"so", TargetStreamOutput, backend.MaxStreamOutputs},
		{"o", TargetRenderTarget, backend.MaxRenderTargets},
	} {
		if num, ok := strings.CutPrefix(lower, p.prefix); ok {
			slot, err := parseSlot(num, p.max)
			if err != nil {
				return Target{}, fmt.Errorf("resource: %q: %w", s, err)
			}
			return Target{Kind: p.kind, Slot: slot}, nil
		}
	}
	return Target{}, fmt.Errorf("resource: unknown target %q", s)
}

func parseSlot(s string, limit int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid slot %q", s)
	}
	if n >= limit {
		return 0, fmt.Errorf("slot %d out of range (max %d)", n, limit-1)
	}
	return n, nil
}

// String returns the textual form accepted by ParseTarget.
func (t Target) String() string {
	switch t.Kind {
	case TargetConstantBuffer:
		return fmt.Sprintf("%s-cb%d", t.Stage, t.Slot)
	case TargetShaderResource:
		return fmt.Sprintf("%s-t%d", t.Stage, t.Slot)
	case TargetUnorderedAccess:
		return fmt.Sprintf("%s-u%d", t.Stage, t.Slot)
	case TargetRenderTarget:
		return "o" + strconv.Itoa(t.Slot)
	case TargetDepthStencil:
		return "oD"
	case TargetVertexBuffer:
		return "vb" + strconv.Itoa(t.Slot)
	case TargetIndexBuffer:
		return "ib"
	case TargetStreamOutput:
		return "so" + strconv.Itoa(t.Slot)
	case TargetCustom:
		if t.Custom != nil {
			return "Resource" + t.Custom.Name
		}
		return "Resource?"
	case TargetThis:
		return "this"
	case TargetNull:
		return "null"
	case TargetBackBuffer:
		return "bb"
	case TargetRealBackBuffer:
		return "r_bb"
	case TargetIniParams:
		return "IniParams"
	case TargetStereoParams:
		return "StereoParams"
	}
	return ""
}

// Bindable reports whether t can be used as a copy destination.
func (t Target) Bindable() bool {
	switch t.Kind {
	case TargetEmpty, TargetNull, TargetBackBuffer, TargetRealBackBuffer,
		TargetIniParams, TargetStereoParams:
		return false
	}
	return true
}

// ViewKind returns the view kind a resource bound at t is accessed
// through, and false for binding points that take a resource directly.
func (t Target) ViewKind() (backend.ViewKind, bool) {
	switch t.Kind {
	case TargetShaderResource:
		return backend.ViewShaderResource, true
	case TargetUnorderedAccess:
		return backend.ViewUnorderedAccess, true
	case TargetRenderTarget:
		return backend.ViewRenderTarget, true
	case TargetDepthStencil:
		return backend.ViewDepthStencil, true
	}
	return 0, false
}

// Resolve fetches what is currently bound at t. The result holds its own
// references; the caller must Release it.
func (t Target) Resolve(env *Env) Resolved {
	b := env.Backend
	switch t.Kind {
	case TargetConstantBuffer:
		res := b.ConstantBuffer(t.Stage, t.Slot)
		if res == nil {
			return Resolved{}
		}
		return Resolved{Resource: res}
	case TargetShaderResource:
		return fromView(b.ShaderResource(t.Stage, t.Slot))
	case TargetUnorderedAccess:
		return fromView(b.UnorderedAccess(t.Stage, t.Slot))
	case TargetRenderTarget:
		rtvs, dsv := b.RenderTargets()
		var v backend.View
		if t.Slot < len(rtvs) {
			v = rtvs[t.Slot]
			rtvs[t.Slot] = nil
		}
		backend.Release(rtvs...)
		backend.Release(dsv)
		return fromView(v)
	case TargetDepthStencil:
		rtvs, dsv := b.RenderTargets()
		backend.Release(rtvs...)
		return fromView(dsv)
	case TargetVertexBuffer:
		res, stride, offset := b.VertexBuffer(t.Slot)
		if res == nil {
			return Resolved{}
		}
		return Resolved{Resource: res, Stride: stride, Offset: offset}
	case TargetIndexBuffer:
		res, format, offset := b.IndexBuffer()
		if res == nil {
			return Resolved{}
		}
		return Resolved{Resource: res, Format: indexTextureFormat(format), Offset: offset}
	case TargetStreamOutput:
		targets, offsets := b.StreamOutputs()
		var r Resolved
		if t.Slot < len(targets) && targets[t.Slot] != nil {
			r = Resolved{Resource: targets[t.Slot], Offset: offsets[t.Slot]}
			targets[t.Slot] = nil
		}
		backend.Release(targets...)
		return r
	case TargetCustom:
		if t.Custom == nil {
			return Resolved{}
		}
		t.Custom.Substantiate(env)
		return t.Custom.Resolved()
	case TargetThis:
		return env.This.Clone()
	case TargetBackBuffer, TargetRealBackBuffer:
		res := b.BackBuffer(t.Kind == TargetRealBackBuffer)
		if res == nil {
			return Resolved{}
		}
		return Resolved{Resource: res, Format: res.Desc().Format()}
	case TargetIniParams:
		return env.IniParams.Clone()
	case TargetStereoParams:
		return env.StereoParams.Clone()
	}
	return Resolved{}
}

// Bind replaces whatever is bound at t with r. r is borrowed; binding
// points take their own references. An empty r unbinds.
func (t Target) Bind(env *Env, r Resolved) error {
	b := env.Backend
	switch t.Kind {
	case TargetConstantBuffer:
		b.SetConstantBuffer(t.Stage, t.Slot, r.Resource)
	case TargetShaderResource:
		b.SetShaderResource(t.Stage, t.Slot, r.View)
	case TargetUnorderedAccess:
		b.SetUnorderedAccess(t.Stage, t.Slot, r.View)
	case TargetRenderTarget:
		rtvs, dsv := b.RenderTargets()
		for len(rtvs) <= t.Slot {
			rtvs = append(rtvs, nil)
		}
		old := rtvs[t.Slot]
		rtvs[t.Slot] = r.View
		b.SetRenderTargets(rtvs, dsv)
		rtvs[t.Slot] = old
		backend.Release(rtvs...)
		backend.Release(dsv)
	case TargetDepthStencil:
		rtvs, dsv := b.RenderTargets()
		b.SetRenderTargets(rtvs, r.View)
		backend.Release(rtvs...)
		backend.Release(dsv)
	case TargetVertexBuffer:
		b.SetVertexBuffer(t.Slot, r.Resource, r.Stride, r.Offset)
	case TargetIndexBuffer:
		b.SetIndexBuffer(r.Resource, textureIndexFormat(r.Format), r.Offset)
	case TargetStreamOutput:
		targets, offsets := b.StreamOutputs()
		for len(targets) <= t.Slot {
			targets = append(targets, nil)
			offsets = append(offsets, 0)
		}
		old := targets[t.Slot]
		targets[t.Slot] = r.Resource
		offsets[t.Slot] = r.Offset
		b.SetStreamOutputs(targets, offsets)
		targets[t.Slot] = old
		backend.Release(targets...)
	case TargetCustom:
		if t.Custom == nil {
			return ErrNotBindable
		}
		t.Custom.Assign(env, r)
	case TargetThis:
		if env.ThisTarget == nil || env.ThisTarget.Kind == TargetThis {
			return fmt.Errorf("%w: no contextual binding for this", ErrNotBindable)
		}
		return env.ThisTarget.Bind(env, r)
	default:
		return fmt.Errorf("%w: %s", ErrNotBindable, t)
	}
	return nil
}
