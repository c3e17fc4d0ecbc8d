// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"github.com/gogpu/migoto"
)

// OptimiseAll folds constant expressions and removes commands that cannot
// have an effect, repeating until neither changes anything. It returns the
// number of list entries removed. Call it once after loading.
func (r *Runtime) OptimiseAll() int {
	removed := 0
	for pass := 1; ; pass++ {
		changed := false
		for _, cmd := range r.cmds {
			if optimise(cmd) {
				changed = true
			}
		}
		n := 0
		for _, l := range r.lists() {
			n += r.prune(l)
		}
		removed += n
		if !changed && n == 0 {
			migoto.Logger().Info("command: optimised command lists", "removed", removed, "passes", pass)
			return removed
		}
	}
}

// lists returns every list: the section lists and the bodies of every If.
func (r *Runtime) lists() []*CommandList {
	var out []*CommandList
	for _, s := range r.sections {
		out = append(out, s.Pre, s.Post)
	}
	for _, cmd := range r.cmds {
		if c, ok := cmd.(*IfCommand); ok {
			out = append(out, c.TruePre, c.TruePost, c.FalsePre, c.FalsePost)
		}
	}
	return out
}

func (r *Runtime) prune(l *CommandList) int {
	kept := l.refs[:0]
	for _, ref := range l.refs {
		if !r.noop(r.cmds[ref], l.Post) {
			kept = append(kept, ref)
		}
	}
	n := len(l.refs) - len(kept)
	l.refs = kept
	return n
}

// optimise folds the expressions of cmd and reports whether any changed.
func optimise(cmd Command) bool {
	var exprs []*Expression
	switch c := cmd.(type) {
	case *AssignParamCommand:
		exprs = append(exprs, c.Value)
	case *AssignVariableCommand:
		exprs = append(exprs, c.Value)
	case *IfCommand:
		exprs = append(exprs, c.Cond)
	case *StereoOverrideCommand:
		exprs = append(exprs, c.Value)
	case *DrawCommand:
		exprs = append(exprs, c.Args...)
	}
	changed := false
	for _, e := range exprs {
		if e != nil && e.Optimise() {
			changed = true
		}
	}
	return changed
}

// noop reports whether cmd has no effect when run in the given phase.
func (r *Runtime) noop(cmd Command, post bool) bool {
	switch c := cmd.(type) {
	case *CheckTextureOverrideCommand:
		for _, o := range r.textureOverrides {
			if o.Section.List(post).Len() > 0 {
				return false
			}
		}
		return true
	case *IfCommand:
		if v, ok := c.Cond.Static(); ok {
			return c.Body(v != 0, post).Len() == 0
		}
		return c.Body(true, post).Len() == 0 && c.Body(false, post).Len() == 0
	case *RunListCommand:
		return c.Section.List(post).Len() == 0
	}
	return false
}
