// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package expr

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Resolver binds operand tokens to nodes.
type Resolver[E any] interface {
	ResolveOperand(tok string) (Node[E], error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc[E any] func(tok string) (Node[E], error)

// ResolveOperand implements Resolver.
func (f ResolverFunc[E]) ResolveOperand(tok string) (Node[E], error) { return f(tok) }

// item is one element of the flat list the parser reduces. Exactly one of
// op or node is set.
type item[E any] struct {
	pos   int
	op    string
	node  Node[E]
	group []item[E]
}

func (it item[E]) isOperand() bool { return it.node != nil || it.group != nil }

var (
	operators = [...][]string{
		{"===", "!=="},
		{"**", "//", "<=", ">=", "==", "!=", "&&", "||"},
		{"<", ">", "+", "-", "*", "/", "%", "!", "(", ")"},
	}

	slotPattern  = regexp.MustCompile(`^[a-z]s-[a-z]+[0-9]+`)
	identPattern = regexp.MustCompile(`^[A-Za-z_$\\][A-Za-z0-9_\\.]*`)
	hexPattern   = regexp.MustCompile(`^0[xX][0-9a-fA-F]+`)
	floatPattern = regexp.MustCompile(`^([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?`)
)

type lexer[E any] struct {
	text  string
	pos   int
	r     Resolver[E]
	items []item[E]
}

func (l *lexer[E]) errorf(pos int, err error, format string, args ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Pos: pos, Text: l.text, Err: err}
}

func (l *lexer[E]) run() error {
	for {
		l.skipSpace()
		if l.pos >= len(l.text) {
			return nil
		}
		if l.lexOperator() {
			continue
		}
		start := l.pos
		n, err := l.lexOperand()
		if err != nil {
			return err
		}
		if len(l.items) > 0 && l.items[len(l.items)-1].isOperand() {
			return l.errorf(start, nil, "unexpected operand %q", l.text[start:l.pos])
		}
		l.items = append(l.items, item[E]{pos: start, node: n})
	}
}

func (l *lexer[E]) skipSpace() {
	for l.pos < len(l.text) {
		r, size := utf8.DecodeRuneInString(l.text[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

func (l *lexer[E]) lexOperator() bool {
	rest := l.text[l.pos:]
	for _, tier := range operators {
		for _, op := range tier {
			if len(rest) >= len(op) && rest[:len(op)] == op {
				l.items = append(l.items, item[E]{pos: l.pos, op: op})
				l.pos += len(op)
				return true
			}
		}
	}
	return false
}

func (l *lexer[E]) lexOperand() (Node[E], error) {
	rest := l.text[l.pos:]
	start := l.pos

	if m := slotPattern.FindString(rest); m != "" {
		n, err := l.r.ResolveOperand(m)
		switch {
		case err == nil:
			l.pos += len(m)
			return n, nil
		case !errors.Is(err, ErrUnknownOperand):
			return nil, l.errorf(start, err, "%v", err)
		}
	}

	if m := identPattern.FindString(rest); m != "" {
		n, err := l.r.ResolveOperand(m)
		if err != nil {
			if errors.Is(err, ErrUnknownOperand) {
				return nil, l.errorf(start, err, "unknown operand %q", m)
			}
			return nil, l.errorf(start, err, "%v", err)
		}
		l.pos += len(m)
		return n, nil
	}

	if m := hexPattern.FindString(rest); m != "" {
		bits, err := strconv.ParseUint(m[2:], 16, 32)
		if err != nil {
			return nil, l.errorf(start, err, "hex literal %q out of range", m)
		}
		l.pos += len(m)
		return Literal[E]{Value: math.Float32frombits(uint32(bits))}, nil
	}

	if m := floatPattern.FindString(rest); m != "" {
		f, err := strconv.ParseFloat(m, 32)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, l.errorf(start, err, "malformed number %q", m)
		}
		l.pos += len(m)
		return Literal[E]{Value: float32(f)}, nil
	}

	r, _ := utf8.DecodeRuneInString(rest)
	return nil, l.errorf(start, nil, "unexpected character %q", r)
}
