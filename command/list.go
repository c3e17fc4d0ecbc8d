// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"strings"

	"golang.org/x/text/cases"
)

// Variable is a named float cell. Globals live in the Runtime for its whole
// lifetime; locals are owned by the list that declared them.
type Variable struct {
	Name    string
	Value   float32
	Persist bool
	Local   bool
}

// foldName returns the case-folded form names are compared in.
func foldName(s string) string {
	return cases.Fold().String(s)
}

// globalKey returns the table key of a global variable. Names of the form
// $\ns\name are already namespaced; others are placed in namespace.
func globalKey(namespace, name string) string {
	bare := strings.TrimPrefix(name, "$")
	if strings.HasPrefix(bare, `\`) || namespace == "" {
		return foldName("$" + bare)
	}
	return foldName(`$\` + namespace + `\` + bare)
}

// Scope is the lexical scope stack of a section being built. Level 0 is
// the section itself; every open conditional adds a level.
type Scope struct {
	levels []map[string]*Variable
}

func newScope() *Scope {
	return &Scope{levels: []map[string]*Variable{{}}}
}

func (s *Scope) push() { s.levels = append(s.levels, map[string]*Variable{}) }

func (s *Scope) pop() {
	if len(s.levels) > 1 {
		s.levels = s.levels[:len(s.levels)-1]
	}
}

// clearTop forgets the locals of the innermost level without leaving it.
func (s *Scope) clearTop() {
	s.levels[len(s.levels)-1] = map[string]*Variable{}
}

func (s *Scope) declare(v *Variable) {
	s.levels[len(s.levels)-1][foldName(v.Name)] = v
}

// Lookup finds a visible local, innermost first.
func (s *Scope) Lookup(name string) *Variable {
	if s == nil {
		return nil
	}
	key := foldName(name)
	for i := len(s.levels) - 1; i >= 0; i-- {
		if v, ok := s.levels[i][key]; ok {
			return v
		}
	}
	return nil
}

// Depth returns the number of open levels, 1 outside any conditional.
func (s *Scope) Depth() int { return len(s.levels) }

// CommandList is an ordered list of command refs for one phase. It is
// mutated while building and optimising and is read-only while running;
// a list may run recursively from itself.
type CommandList struct {
	Name string
	Post bool

	refs   []CommandRef
	locals []*Variable
}

func newList(name string, post bool) *CommandList {
	return &CommandList{Name: name, Post: post}
}

// Len returns the number of commands.
func (l *CommandList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.refs)
}

// Refs returns the command refs in execution order. The slice must not be
// modified.
func (l *CommandList) Refs() []CommandRef { return l.refs }

// Locals returns the local variables declared in the list.
func (l *CommandList) Locals() []*Variable { return l.locals }

func (l *CommandList) phase() string {
	if l.Post {
		return "post"
	}
	return "pre"
}

// Section is a named pair of pre and post lists, as attached to a draw
// call, an override, a custom shader or invoked with run.
type Section struct {
	Name      string
	Namespace string
	Pre       *CommandList
	Post      *CommandList

	defined bool
}

func newSection(name string) *Section {
	return &Section{Name: name, Pre: newList(name, false), Post: newList(name, true)}
}

// List returns the list of the given phase.
func (s *Section) List(post bool) *CommandList {
	if post {
		return s.Post
	}
	return s.Pre
}

// Defined reports whether a builder has finished the section. Sections
// referenced before they are built exist but are empty.
func (s *Section) Defined() bool { return s.defined }
