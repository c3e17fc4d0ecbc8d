// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/expr"
	"github.com/gogpu/migoto/resource"
)

// ErrNeedsScope is returned for operands that only make sense inside a
// command list, such as draw call fields, used in a standalone condition.
var ErrNeedsScope = errors.New("command: operand needs a command list")

var paramPattern = regexp.MustCompile(`^([xyzw])([0-9]*)$`)

type node = expr.Node[*Context]

// operandResolver binds operand names for expressions parsed in a
// namespace. scope is nil for standalone conditions.
type operandResolver struct {
	rt        *Runtime
	namespace string
	scope     *Scope
}

func parseExpression(text string, r *operandResolver) (*Expression, error) {
	return expr.Parse[*Context](text, r)
}

func fn(name string, f func(c *Context) float32) node {
	return expr.Func[*Context]{Name: name, Fn: f}
}

func b2f(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

var negZero = float32(math.Copysign(0, -1))

// ResolveOperand implements expr.Resolver.
func (r *operandResolver) ResolveOperand(tok string) (node, error) {
	switch tok {
	case "inf":
		return expr.Literal[*Context]{Value: float32(math.Inf(1))}, nil
	case "nan":
		return expr.Literal[*Context]{Value: float32(math.NaN())}, nil
	}

	if strings.HasPrefix(tok, "$") {
		return r.variable(tok)
	}
	if paramPattern.MatchString(tok) {
		cell, ok := r.rt.paramCell(tok)
		if !ok {
			return nil, fmt.Errorf("%w: invalid parameter %q", expr.ErrUnknownOperand, tok)
		}
		return expr.Var[*Context]{Name: tok, Cell: cell}, nil
	}
	if n := r.global(tok); n != nil {
		return n, nil
	}

	if scoped := r.scoped(tok); scoped != nil {
		if r.scope == nil {
			return nil, fmt.Errorf("%w: %s", ErrNeedsScope, tok)
		}
		return scoped, nil
	}
	return nil, fmt.Errorf("%w: %q", expr.ErrUnknownOperand, tok)
}

func (r *operandResolver) variable(tok string) (node, error) {
	if !strings.HasPrefix(tok, `$\`) {
		if v := r.scope.Lookup(tok); v != nil {
			return expr.Var[*Context]{Name: tok, Cell: &v.Value}, nil
		}
	}
	v := r.rt.lookupGlobal(r.namespace, tok)
	if v == nil {
		return nil, fmt.Errorf("%w: undeclared variable %q", expr.ErrUnknownOperand, tok)
	}
	return expr.Var[*Context]{Name: tok, Cell: &v.Value}, nil
}

// paramCell returns the cell of a parameter slot such as x or y2.
func (r *Runtime) paramCell(tok string) (*float32, bool) {
	m := paramPattern.FindStringSubmatch(tok)
	if m == nil {
		return nil, false
	}
	idx := 0
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 {
			return nil, false
		}
		idx = n
	}
	return r.Param(idx, strings.Index("xyzw", m[1])), true
}

// global returns accessors that do not depend on the call.
func (r *operandResolver) global(tok string) node {
	rt := r.rt
	switch tok {
	case "time":
		return fn(tok, func(c *Context) float32 { return float32(c.rt.opts.clock().Seconds()) })
	case "hunting":
		return fn(tok, func(c *Context) float32 { return b2f(c.rt.hunting) })
	case "frame_analysis":
		return fn(tok, func(c *Context) float32 { return b2f(c.rt.analysing) })
	case "cursor_x":
		return fn(tok, func(c *Context) float32 { return c.rt.cursor[0] })
	case "cursor_y":
		return fn(tok, func(c *Context) float32 { return c.rt.cursor[1] })
	case "window_width", "window_height":
		height := tok == "window_height"
		return fn(tok, func(c *Context) float32 {
			if c.rt.opts.window == nil {
				return 0
			}
			w, h := c.rt.opts.window.Size()
			if height {
				return float32(h)
			}
			return float32(w)
		})
	case "res_width", "res_height":
		height := tok == "res_height"
		return fn(tok, func(c *Context) float32 {
			bb := c.rt.backend.BackBuffer(false)
			if bb == nil {
				return 0
			}
			defer bb.Release()
			t := bb.Desc().Texture
			if height {
				return float32(t.Size.Height)
			}
			return float32(t.Size.Width)
		})
	case "rt_width", "rt_height":
		height := tok == "rt_height"
		return fn(tok, func(c *Context) float32 {
			rtvs, dsv := c.rt.backend.RenderTargets()
			defer backend.Release(dsv)
			defer backend.Release(rtvs...)
			if len(rtvs) == 0 || rtvs[0] == nil || rtvs[0].Resource() == nil {
				return 0
			}
			t := rtvs[0].Resource().Desc().Texture
			if height {
				return float32(t.Size.Height)
			}
			return float32(t.Size.Width)
		})
	case "viewport_x", "viewport_y", "viewport_width", "viewport_height":
		return fn(tok, func(c *Context) float32 {
			vp := c.rt.backend.Viewport()
			switch tok {
			case "viewport_x":
				return vp.X
			case "viewport_y":
				return vp.Y
			case "viewport_width":
				return vp.Width
			}
			return vp.Height
		})
	case "scissor_left", "scissor_top", "scissor_right", "scissor_bottom":
		return fn(tok, func(c *Context) float32 {
			s := c.rt.backend.Scissor()
			switch tok {
			case "scissor_left":
				return float32(s.Left)
			case "scissor_top":
				return float32(s.Top)
			case "scissor_right":
				return float32(s.Right)
			}
			return float32(s.Bottom)
		})
	case "stereo_available":
		_, ok := rt.backend.(backend.Stereo)
		return expr.Literal[*Context]{Value: b2f(ok)}
	case "stereo_active", "separation", "convergence", "eye_separation":
		return fn(tok, func(c *Context) float32 {
			st, ok := c.rt.backend.(backend.Stereo)
			if !ok {
				return 0
			}
			switch tok {
			case "stereo_active":
				return b2f(st.StereoActive())
			case "separation":
				return st.Separation()
			case "convergence":
				return st.Convergence()
			}
			return st.EyeSeparation()
		})
	}
	return nil
}

// scoped returns accessors that need a command list: draw call fields,
// filter indices and readbacks.
func (r *operandResolver) scoped(tok string) node {
	if n := drawField(tok); n != nil {
		return n
	}
	if st, ok := backend.ParseStage(tok); ok {
		return fn(tok, func(c *Context) float32 {
			sh := c.rt.backend.Shader(st)
			if sh == nil {
				return negZero
			}
			if o := c.rt.shaderOverrides[sh.Hash()]; o != nil {
				return o.FilterIndex
			}
			return 0
		})
	}
	if n := r.readback(tok); n != nil {
		return n
	}
	if t, err := resource.ParseTarget(tok, nil); err == nil {
		return fn(tok, func(c *Context) float32 {
			res := t.Resolve(&c.env)
			defer res.Release()
			if res.Resource == nil {
				return negZero
			}
			if o := c.rt.textureOverrides[res.Resource.Hash()]; o != nil {
				return o.FilterIndex
			}
			return 0
		})
	}
	return nil
}

func drawField(tok string) node {
	var get func(d *backend.DrawCall) float32
	switch tok {
	case "vertex_count":
		get = func(d *backend.DrawCall) float32 { return float32(d.VertexCount) }
	case "index_count":
		get = func(d *backend.DrawCall) float32 { return float32(d.IndexCount) }
	case "instance_count":
		get = func(d *backend.DrawCall) float32 { return float32(d.InstanceCount) }
	case "first_vertex":
		get = func(d *backend.DrawCall) float32 { return float32(d.FirstVertex) }
	case "first_index":
		get = func(d *backend.DrawCall) float32 { return float32(d.FirstIndex) }
	case "first_instance":
		get = func(d *backend.DrawCall) float32 { return float32(d.FirstInstance) }
	case "thread_group_count_x":
		get = func(d *backend.DrawCall) float32 { return float32(d.ThreadGroups[0]) }
	case "thread_group_count_y":
		get = func(d *backend.DrawCall) float32 { return float32(d.ThreadGroups[1]) }
	case "thread_group_count_z":
		get = func(d *backend.DrawCall) float32 { return float32(d.ThreadGroups[2]) }
	case "indirect_offset":
		get = func(d *backend.DrawCall) float32 { return float32(d.IndirectOffset) }
	case "draw_type":
		get = func(d *backend.DrawCall) float32 { return float32(d.Type) }
	default:
		return nil
	}
	return fn(tok, func(c *Context) float32 {
		if c.call == nil {
			return 0
		}
		return get(c.call)
	})
}

// readback binds ResourceName and ResourceName.x|y|z|w.
func (r *operandResolver) readback(tok string) node {
	if len(tok) <= len("resource") || !strings.EqualFold(tok[:len("resource")], "resource") {
		return nil
	}
	name, comp := tok[len("resource"):], 0
	if base, sel, ok := strings.Cut(name, "."); ok {
		i := strings.Index("xyzw", sel)
		if len(sel) != 1 || i < 0 {
			return nil
		}
		name, comp = base, i
	}
	custom := r.rt.Custom(name)
	if custom == nil {
		return nil
	}
	return fn(tok, func(c *Context) float32 {
		return c.rt.readbackFor(custom).value(c, comp)
	})
}
