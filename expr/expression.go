// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package expr

// Expression is a parsed expression.
type Expression[E any] struct {
	root Node[E]
	text string
}

// Parse parses text, binding operands through r.
func Parse[E any](text string, r Resolver[E]) (*Expression[E], error) {
	l := &lexer[E]{text: text, r: r}
	if err := l.run(); err != nil {
		return nil, err
	}
	p := &parser[E]{text: text}
	if len(l.items) == 0 {
		return nil, p.errorf(0, "empty expression")
	}
	items, err := p.group(l.items)
	if err != nil {
		return nil, err
	}
	root, err := p.reduce(items)
	if err != nil {
		return nil, err
	}
	return &Expression[E]{root: root, text: text}, nil
}

// MustParse is like Parse but panics on error. It is meant for tests and
// package-level tables.
func MustParse[E any](text string, r Resolver[E]) *Expression[E] {
	e, err := Parse(text, r)
	if err != nil {
		panic(err)
	}
	return e
}

// Eval evaluates the expression.
func (e *Expression[E]) Eval(env E) float32 { return e.root.Eval(env) }

// Static returns the value of the expression when it does not depend on
// the environment.
func (e *Expression[E]) Static() (float32, bool) { return e.root.Static() }

// Optimise folds constant subtrees into literals and reports whether the
// tree changed.
func (e *Expression[E]) Optimise() bool {
	var changed bool
	e.root, changed = Fold(e.root)
	return changed
}

// Root returns the root node.
func (e *Expression[E]) Root() Node[E] { return e.root }

// Text returns the source text.
func (e *Expression[E]) Text() string { return e.text }

// String renders the tree with explicit grouping.
func (e *Expression[E]) String() string { return e.root.String() }
