// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
)

// run executes one command.
func (c *Context) run(cmd Command) {
	switch cmd := cmd.(type) {
	case *CheckTextureOverrideCommand:
		c.checkTextureOverride(cmd)
	case *ResetPerFrameLimitsCommand:
		if cmd.Custom != nil {
			cmd.Custom.ResetCopyLimit()
		}
		if cmd.Shader != nil {
			cmd.Shader.resetExecutions()
		}
	case *ClearViewCommand:
		c.clearView(cmd)
	case *ShaderSubstitutionCommand:
		var sh backend.Shader
		if cmd.Shader != nil {
			cmd.Shader.ensure(c.rt.backend)
			sh = cmd.Shader.Shader(cmd.Stage)
		}
		c.rt.backend.SetShader(cmd.Stage, sh)
	case *RunListCommand:
		c.runList(cmd.Section.List(c.post))
	case *RunCustomShaderCommand:
		cmd.Shader.run(c)
	case *PresetCommand:
		if cmd.Exclude {
			cmd.Preset.excluded = true
		} else {
			cmd.Preset.triggered = true
		}
	case *SkipCommand:
		if c.call != nil {
			c.call.Skip = true
		}
	case *AbortCommand:
		c.aborted = true
	case *StereoOverrideCommand:
		c.stereoOverride(cmd)
	case *DrawCommand:
		c.draw(cmd)
	case *AssignParamCommand:
		*cmd.Cell = cmd.Value.Eval(c)
		c.rt.paramsDirty = true
	case *AssignVariableCommand:
		val := cmd.Value.Eval(c)
		if cmd.Var.Persist && math.Float32bits(cmd.Var.Value) != math.Float32bits(val) {
			c.rt.dirty = true
		}
		cmd.Var.Value = val
	case *IfCommand:
		c.runBody(cmd.Body(cmd.Cond.Eval(c) != 0, c.post))
	case *ResourceCopyCommand:
		c.syncParams()
		cmd.Op.Run(&c.env)
	case *StereoEyeCommand:
		if st, ok := c.rt.backend.(backend.Stereo); ok {
			if err := st.SetActiveEye(cmd.Eye); err != nil {
				migoto.Logger().Debug("command: selecting stereo eye failed", "err", err)
			}
		}
	case *AnalysisOptionsCommand:
		c.rt.analysisFlags = cmd.Flags
	}
}

// checkTextureOverride runs the override matching the resource bound at
// the target with "this" standing for that binding.
func (c *Context) checkTextureOverride(cmd *CheckTextureOverrideCommand) {
	res := cmd.Target.Resolve(&c.env)
	defer res.Release()
	if res.Resource == nil {
		return
	}
	o := c.rt.textureOverrides[res.Resource.Hash()]
	if o == nil {
		return
	}
	this, thisTarget := c.env.This, c.env.ThisTarget
	c.env.This, c.env.ThisTarget = res, &cmd.Target
	c.runList(o.Section.List(c.post))
	c.env.This, c.env.ThisTarget = this, thisTarget
}

// clearView clears the view bound at the target. Resources without a
// view, such as custom resources, get a temporary one.
func (c *Context) clearView(cmd *ClearViewCommand) {
	b := c.rt.backend
	res := cmd.Target.Resolve(&c.env)
	defer res.Release()

	v := res.View
	if v == nil {
		if res.Resource == nil {
			return
		}
		kind, ok := clearKind(res.Resource.Desc())
		if !ok {
			migoto.Logger().Debug("command: nothing to clear through", "target", cmd.Target.String())
			return
		}
		tmp, err := b.CreateView(res.Resource, backend.ViewDesc{Kind: kind, Format: res.Format})
		if err != nil {
			migoto.Logger().Warn("command: creating clear view failed", "target", cmd.Target.String(), "err", err)
			return
		}
		defer tmp.Release()
		v = tmp
	}

	switch v.Desc().Kind {
	case backend.ViewRenderTarget:
		b.ClearRenderTarget(v, gputypes.Color{
			R: float64(cmd.Values[0]), G: float64(cmd.Values[1]),
			B: float64(cmd.Values[2]), A: float64(cmd.Values[3]),
		})
	case backend.ViewDepthStencil:
		b.ClearDepthStencil(v, cmd.Depth, cmd.Stencil)
	case backend.ViewUnorderedAccess:
		if cmd.Int {
			b.ClearUnorderedAccessUint(v, cmd.Uint)
		} else {
			b.ClearUnorderedAccessFloat(v, cmd.Values)
		}
	default:
		migoto.Logger().Debug("command: view kind cannot be cleared", "target", cmd.Target.String(), "kind", v.Desc().Kind)
	}
}

func clearKind(d backend.ResourceDesc) (backend.ViewKind, bool) {
	if d.Kind == backend.KindBuffer {
		return backend.ViewUnorderedAccess, d.Buffer.Usage.Contains(gputypes.BufferUsageStorage)
	}
	u := d.Texture.Usage
	switch {
	case d.Texture.Format.IsDepthStencil() && u.Contains(gputypes.TextureUsageRenderAttachment):
		return backend.ViewDepthStencil, true
	case u.Contains(gputypes.TextureUsageRenderAttachment):
		return backend.ViewRenderTarget, true
	case u.Contains(gputypes.TextureUsageStorageBinding):
		return backend.ViewUnorderedAccess, true
	}
	return 0, false
}

// stereoOverride sets the parameter in the pre phase and puts the old
// value back in the post phase. Run in the post phase alone it just sets.
func (c *Context) stereoOverride(cmd *StereoOverrideCommand) {
	st, ok := c.rt.backend.(backend.Stereo)
	if !ok {
		return
	}
	get, set := st.Separation, st.SetSeparation
	if cmd.Param == StereoConvergence {
		get, set = st.Convergence, st.SetConvergence
	}
	switch n := len(cmd.saved); {
	case c.post && n > 0:
		set(cmd.saved[n-1])
		cmd.saved = cmd.saved[:n-1]
	case c.post:
		set(cmd.Value.Eval(c))
	default:
		if n >= c.rt.opts.maxRecursion {
			cmd.saved = append(cmd.saved[:0], cmd.saved[1:]...)
		}
		cmd.saved = append(cmd.saved, get())
		set(cmd.Value.Eval(c))
	}
}

func toUint(v float32) uint32 {
	if !(v > 0) {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func toInt(v float32) int32 {
	switch {
	case v != v:
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

// draw issues a draw or dispatch.
func (c *Context) draw(cmd *DrawCommand) {
	b := c.rt.backend
	switch cmd.Mode {
	case DrawFromCaller:
		if c.call == nil {
			migoto.Logger().Debug("command: draw = from_caller outside a draw call")
			return
		}
		c.call.Replay(b)
		return
	case DrawInferred:
		c.drawInferred()
		return
	case DrawIndirect:
		buf := cmd.Buffer.Resolve(&c.env)
		defer buf.Release()
		if buf.Resource == nil {
			migoto.Logger().Debug("command: indirect argument buffer not bound", "target", cmd.Buffer.String())
			return
		}
		offset := toUint(cmd.Args[0].Eval(c))
		call := backend.DrawCall{Type: cmd.Call, IndirectArgs: buf.Resource, IndirectOffset: offset}
		call.Replay(b)
		return
	}

	a := make([]float32, len(cmd.Args))
	for i, e := range cmd.Args {
		a[i] = e.Eval(c)
	}
	call := backend.DrawCall{Type: cmd.Call}
	switch cmd.Call {
	case backend.CallDraw:
		call.VertexCount, call.FirstVertex = toUint(a[0]), toUint(a[1])
	case backend.CallDrawIndexed:
		call.IndexCount, call.FirstIndex, call.BaseVertex = toUint(a[0]), toUint(a[1]), toInt(a[2])
	case backend.CallDrawInstanced:
		call.VertexCount, call.InstanceCount = toUint(a[0]), toUint(a[1])
		call.FirstVertex, call.FirstInstance = toUint(a[2]), toUint(a[3])
	case backend.CallDrawIndexedInstanced:
		call.IndexCount, call.InstanceCount, call.FirstIndex = toUint(a[0]), toUint(a[1]), toUint(a[2])
		call.BaseVertex, call.FirstInstance = toInt(a[3]), toUint(a[4])
	case backend.CallDispatch:
		call.ThreadGroups = [3]uint32{toUint(a[0]), toUint(a[1]), toUint(a[2])}
	}
	call.Replay(b)
}

// drawInferred draws the whole bound index buffer, or failing that the
// whole of vertex buffer 0.
func (c *Context) drawInferred() {
	b := c.rt.backend
	ib, format, offset := b.IndexBuffer()
	if ib != nil {
		defer ib.Release()
		size := uint64(4)
		if format == gputypes.IndexFormatUint16 {
			size = 2
		}
		total := ib.Desc().Buffer.Size
		if total > uint64(offset) {
			b.DrawIndexed(uint32((total-uint64(offset))/size), 0, 0) // #nosec G115 -- buffer sizes fit
		}
		return
	}
	vb, stride, offset := b.VertexBuffer(0)
	if vb == nil {
		migoto.Logger().Debug("command: draw = auto with no buffers bound")
		return
	}
	defer vb.Release()
	total := vb.Desc().Buffer.Size
	if stride == 0 || total <= uint64(offset) {
		return
	}
	b.Draw(uint32((total-uint64(offset))/uint64(stride)), 0) // #nosec G115 -- buffer sizes fit
}
