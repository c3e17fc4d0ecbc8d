// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/migoto/expr"
)

// Preset is a named set of assignments that stays active for as long as
// something triggers it every frame.
type Preset struct {
	Name string

	assignments []presetAssignment
	triggered   bool
	excluded    bool
	active      bool
}

type presetAssignment struct {
	name  string
	cell  *float32
	v     *Variable
	value *expr.Expression[*Context]
	saved float32
}

// AddPresetAssignment adds "lhs = rhs" to p. lhs is a global variable or
// a parameter slot; rhs is a standalone expression.
func (r *Runtime) AddPresetAssignment(p *Preset, namespace, lhs, rhs string) error {
	lhs = strings.TrimSpace(lhs)
	a := presetAssignment{name: lhs}
	switch {
	case strings.HasPrefix(lhs, "$"):
		v := r.lookupGlobal(namespace, lhs)
		if v == nil {
			return fmt.Errorf("command: preset %s: undeclared variable %s", p.Name, lhs)
		}
		a.cell, a.v = &v.Value, v
	default:
		cell, ok := r.paramCell(lhs)
		if !ok {
			return fmt.Errorf("command: preset %s: cannot assign %q", p.Name, lhs)
		}
		a.cell = cell
	}
	e, err := r.ParseCondition(namespace, rhs)
	if err != nil {
		return fmt.Errorf("command: preset %s: %w", p.Name, err)
	}
	a.value = e
	p.assignments = append(p.assignments, a)
	return nil
}

// Active reports whether the preset's assignments are in effect.
func (p *Preset) Active() bool { return p.active }

// update activates a preset triggered this frame and deactivates one that
// was not.
func (p *Preset) update(r *Runtime) {
	want := p.triggered && !p.excluded
	switch {
	case want && !p.active:
		for i := range p.assignments {
			a := &p.assignments[i]
			a.saved = *a.cell
			r.store(a.v, a.cell, r.Eval(a.value))
		}
		p.active = true
	case !want && p.active:
		for i := len(p.assignments) - 1; i >= 0; i-- {
			a := &p.assignments[i]
			r.store(a.v, a.cell, a.saved)
		}
		p.active = false
	}
}

// store writes val to a variable or parameter cell and tracks changes of
// persistent variables.
func (r *Runtime) store(v *Variable, cell *float32, val float32) {
	if v == nil {
		*cell = val
		r.paramsDirty = true
		return
	}
	if v.Persist && math.Float32bits(v.Value) != math.Float32bits(val) {
		r.dirty = true
	}
	v.Value = val
}
