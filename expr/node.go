// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package expr

import (
	"math"
	"strconv"
)

// Node is a node of an expression tree evaluated against an environment
// of type E.
type Node[E any] interface {
	Eval(env E) float32
	// Static returns the value of the node when it can be computed without
	// an environment.
	Static() (float32, bool)
	String() string
}

// Literal is a constant operand.
type Literal[E any] struct {
	Value float32
}

// Eval implements Node.
func (l Literal[E]) Eval(E) float32 { return l.Value }

// Static implements Node.
func (l Literal[E]) Static() (float32, bool) { return l.Value, true }

func (l Literal[E]) String() string {
	if l.Value == 0 && math.Signbit(float64(l.Value)) {
		return "-0"
	}
	return strconv.FormatFloat(float64(l.Value), 'g', -1, 32)
}

// Var is an operand reading a float cell owned by someone else.
type Var[E any] struct {
	Name string
	Cell *float32
}

// Eval implements Node.
func (v Var[E]) Eval(E) float32 { return *v.Cell }

// Static implements Node.
func (v Var[E]) Static() (float32, bool) { return 0, false }

func (v Var[E]) String() string { return v.Name }

// Func is an operand computed from the environment on every evaluation.
type Func[E any] struct {
	Name string
	Fn   func(env E) float32
}

// Eval implements Node.
func (f Func[E]) Eval(env E) float32 { return f.Fn(env) }

// Static implements Node.
func (f Func[E]) Static() (float32, bool) { return 0, false }

func (f Func[E]) String() string { return f.Name }

// Op is an operator.
type Op uint8

const (
	OpNot Op = iota
	OpNeg
	OpPlus
	OpPow
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpAdd
	OpSub
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpEqual
	OpNotEqual
	OpIdentical
	OpNotIdentical
	OpAnd
	OpOr
)

var opSymbols = [...]string{
	OpNot:          "!",
	OpNeg:          "-",
	OpPlus:         "+",
	OpPow:          "**",
	OpMul:          "*",
	OpDiv:          "/",
	OpFloorDiv:     "//",
	OpMod:          "%",
	OpAdd:          "+",
	OpSub:          "-",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpEqual:        "==",
	OpNotEqual:     "!=",
	OpIdentical:    "===",
	OpNotIdentical: "!==",
	OpAnd:          "&&",
	OpOr:           "||",
}

// String returns the operator symbol.
func (o Op) String() string {
	if int(o) < len(opSymbols) {
		return opSymbols[o]
	}
	return "?"
}

func b2f(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// Unary applies a prefix operator.
type Unary[E any] struct {
	Op Op
	X  Node[E]
}

func (u *Unary[E]) apply(x float32) float32 {
	switch u.Op {
	case OpNot:
		return b2f(x == 0)
	case OpNeg:
		return -x
	default:
		return x
	}
}

// Eval implements Node.
func (u *Unary[E]) Eval(env E) float32 { return u.apply(u.X.Eval(env)) }

// Static implements Node.
func (u *Unary[E]) Static() (float32, bool) {
	x, ok := u.X.Static()
	if !ok {
		return 0, false
	}
	return u.apply(x), true
}

func (u *Unary[E]) String() string { return u.Op.String() + u.X.String() }

// Binary applies an infix operator.
type Binary[E any] struct {
	Op   Op
	L, R Node[E]
}

func arith(op Op, l, r float32) float32 {
	switch op {
	case OpPow:
		return float32(math.Pow(float64(l), float64(r)))
	case OpMul:
		return l * r
	case OpDiv:
		return l / r
	case OpFloorDiv:
		return float32(math.Floor(float64(l / r)))
	case OpMod:
		return float32(math.Mod(float64(l), float64(r)))
	case OpAdd:
		return l + r
	case OpSub:
		return l - r
	case OpLess:
		return b2f(l < r)
	case OpLessEqual:
		return b2f(l <= r)
	case OpGreater:
		return b2f(l > r)
	case OpGreaterEqual:
		return b2f(l >= r)
	case OpEqual:
		return b2f(l == r)
	case OpNotEqual:
		return b2f(l != r)
	case OpIdentical:
		return b2f(math.Float32bits(l) == math.Float32bits(r))
	case OpNotIdentical:
		return b2f(math.Float32bits(l) != math.Float32bits(r))
	case OpAnd:
		return b2f(l != 0 && r != 0)
	case OpOr:
		return b2f(l != 0 || r != 0)
	}
	return 0
}

// Eval implements Node. Logical operators do not evaluate their right
// operand when the left one decides the result.
func (b *Binary[E]) Eval(env E) float32 {
	l := b.L.Eval(env)
	switch b.Op {
	case OpAnd:
		if l == 0 {
			return 0
		}
		return b2f(b.R.Eval(env) != 0)
	case OpOr:
		if l != 0 {
			return 1
		}
		return b2f(b.R.Eval(env) != 0)
	}
	return arith(b.Op, l, b.R.Eval(env))
}

// Static implements Node. A logical operator is static when its left
// operand alone decides the result.
func (b *Binary[E]) Static() (float32, bool) {
	l, lok := b.L.Static()
	if lok {
		switch {
		case b.Op == OpAnd && l == 0:
			return 0, true
		case b.Op == OpOr && l != 0:
			return 1, true
		}
	}
	r, rok := b.R.Static()
	if !lok || !rok {
		return 0, false
	}
	return arith(b.Op, l, r), true
}

func (b *Binary[E]) String() string {
	return "(" + b.L.String() + " " + b.Op.String() + " " + b.R.String() + ")"
}

// Fold replaces every static subtree of n with a Literal. It reports
// whether anything was replaced.
func Fold[E any](n Node[E]) (Node[E], bool) {
	if _, isLit := n.(Literal[E]); isLit {
		return n, false
	}
	if v, ok := n.Static(); ok {
		return Literal[E]{Value: v}, true
	}
	changed := false
	switch t := n.(type) {
	case *Unary[E]:
		t.X, changed = Fold(t.X)
	case *Binary[E]:
		var lc, rc bool
		t.L, lc = Fold(t.L)
		t.R, rc = Fold(t.R)
		changed = lc || rc
	}
	return n, changed
}
