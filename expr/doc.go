// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package expr implements the float expression language used by command
// lists and conditions.
//
// Expressions are parsed once into a tree of Node values and evaluated on
// every draw call against an environment of type E. The package knows
// nothing about operands beyond literals: names and binding slots are
// handed to a Resolver, which returns variable cells or live accessors.
//
// # Grammar
//
// Operators in decreasing precedence:
//
//	! - +            unary, right to left
//	**               right associative
//	* / // %
//	+ -
//	< <= > >=
//	== != === !==
//	&&
//	||
//
// All values are float32. Comparisons and logical operators yield 1 or 0.
// // is floor division, % follows math.Mod and === compares raw bits, so
// 0 === -0 is false. Hex literals such as 0x3f800000 are reinterpreted as
// float bits.
//
// # Example
//
//	e, err := expr.Parse[*Env]("$mode == 2 && ps-t0 != -0.0", resolver)
//	if err != nil {
//		return err
//	}
//	e.Optimise()
//	if e.Eval(env) != 0 {
//		// ...
//	}
package expr
