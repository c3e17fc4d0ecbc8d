// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package expr

import (
	"errors"
	"fmt"
)

// ErrUnknownOperand is returned by a Resolver that does not recognise a
// token. For binding-slot shaped tokens it lets lexing fall through to the
// identifier rule.
var ErrUnknownOperand = errors.New("expr: unknown operand")

// SyntaxError describes a malformed expression.
type SyntaxError struct {
	Msg  string
	Pos  int // byte offset into the expression text
	Text string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("expr: %s at position %d", e.Msg, e.Pos)
}

// Unwrap returns the resolver error that caused e, if any.
func (e *SyntaxError) Unwrap() error { return e.Err }
