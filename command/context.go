// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/resource"
)

// Context is the state of one top-level execution: the call it runs
// around, the phase, the recursion depth and the abort flag. It is created
// fresh for every entry point and shared by every list the execution
// invokes.
type Context struct {
	rt   *Runtime
	env  resource.Env
	call *backend.DrawCall
	post bool

	depth   int
	aborted bool
}

func (r *Runtime) newContext(call *backend.DrawCall, post bool) *Context {
	r.refreshParams()
	r.refreshStereoParams()
	c := &Context{
		rt:   r,
		call: call,
		post: post,
		env: resource.Env{
			Backend:      r.backend,
			IniParams:    r.iniParams,
			StereoParams: r.stereoParams,
			Frame:        r.frame,
		},
	}
	if call != nil && call.IndirectArgs != nil {
		c.env.This = resource.Resolved{Resource: call.IndirectArgs, Offset: call.IndirectOffset}
	}
	return c
}

// Call returns the intercepted call, or nil outside a draw call.
func (c *Context) Call() *backend.DrawCall { return c.call }

// Post reports whether the execution is in the post phase.
func (c *Context) Post() bool { return c.post }

// Aborted reports whether handling = abort ran.
func (c *Context) Aborted() bool { return c.aborted }

// runList runs l one level deeper. Past the recursion limit the list is
// not run; the caller carries on.
func (c *Context) runList(l *CommandList) {
	if l.Len() == 0 || c.aborted {
		return
	}
	if c.depth >= c.rt.opts.maxRecursion {
		migoto.Logger().Warn("command: recursion limit reached",
			"list", l.Name, "phase", l.phase(), "limit", c.rt.opts.maxRecursion)
		return
	}
	c.depth++
	c.runBody(l)
	c.depth--
}

// runBody runs the commands of l at the current depth.
func (c *Context) runBody(l *CommandList) {
	if l == nil {
		return
	}
	for _, ref := range l.refs {
		c.run(c.rt.cmds[ref])
		if c.aborted {
			return
		}
	}
}

// syncParams re-uploads parameters assigned earlier in this execution so
// that IniParams copies see them.
func (c *Context) syncParams() {
	if !c.rt.paramsDirty {
		return
	}
	c.rt.refreshParams()
	c.env.IniParams = c.rt.iniParams
}
