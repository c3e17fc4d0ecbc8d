// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package expr

var binaryOps = map[string]Op{
	"**":  OpPow,
	"*":   OpMul,
	"/":   OpDiv,
	"//":  OpFloorDiv,
	"%":   OpMod,
	"+":   OpAdd,
	"-":   OpSub,
	"<":   OpLess,
	"<=":  OpLessEqual,
	">":   OpGreater,
	">=":  OpGreaterEqual,
	"==":  OpEqual,
	"!=":  OpNotEqual,
	"===": OpIdentical,
	"!==": OpNotIdentical,
	"&&":  OpAnd,
	"||":  OpOr,
}

var unaryOps = map[string]Op{
	"!": OpNot,
	"-": OpNeg,
	"+": OpPlus,
}

// leftTiers are the left-associative binary tiers from tightest to loosest.
var leftTiers = [...][]string{
	{"*", "/", "//", "%"},
	{"+", "-"},
	{"<", "<=", ">", ">="},
	{"==", "!=", "===", "!=="},
	{"&&"},
	{"||"},
}

type parser[E any] struct {
	text string
}

func (p *parser[E]) errorf(pos int, format string, args ...any) *SyntaxError {
	l := lexer[E]{text: p.text}
	return l.errorf(pos, nil, format, args...)
}

// group collapses bracketed spans into nested items.
func (p *parser[E]) group(items []item[E]) ([]item[E], error) {
	for {
		closeAt := -1
		for i, it := range items {
			if it.op == ")" {
				closeAt = i
				break
			}
		}
		if closeAt < 0 {
			break
		}
		openAt := -1
		for i := closeAt - 1; i >= 0; i-- {
			if items[i].op == "(" {
				openAt = i
				break
			}
		}
		if openAt < 0 {
			return nil, p.errorf(items[closeAt].pos, "unmatched ')'")
		}
		if closeAt == openAt+1 {
			return nil, p.errorf(items[openAt].pos, "empty brackets")
		}
		inner := append([]item[E](nil), items[openAt+1:closeAt]...)
		g := item[E]{pos: items[openAt].pos, group: inner}
		items = append(items[:openAt], append([]item[E]{g}, items[closeAt+1:]...)...)
	}
	for _, it := range items {
		if it.op == "(" {
			return nil, p.errorf(it.pos, "unmatched '('")
		}
	}
	return items, nil
}

func isOp[E any](it item[E], set ...string) bool {
	if it.op == "" {
		return false
	}
	for _, s := range set {
		if it.op == s {
			return true
		}
	}
	return false
}

// reduce folds items into a single node.
func (p *parser[E]) reduce(items []item[E]) (Node[E], error) {
	if len(items) == 0 {
		return nil, p.errorf(0, "empty expression")
	}
	for i := range items {
		if items[i].group != nil {
			n, err := p.reduce(items[i].group)
			if err != nil {
				return nil, err
			}
			items[i] = item[E]{pos: items[i].pos, node: n}
		}
	}

	for i := len(items) - 2; i >= 0; i-- {
		op, ok := unaryOps[items[i].op]
		if !ok || !items[i+1].isOperand() {
			continue
		}
		if i > 0 && items[i-1].isOperand() {
			continue
		}
		n := &Unary[E]{Op: op, X: items[i+1].node}
		items = splice(items, i, 2, item[E]{pos: items[i].pos, node: n})
	}

	for i := len(items) - 2; i >= 1; i-- {
		if items[i].op != "**" || !items[i-1].isOperand() || !items[i+1].isOperand() {
			continue
		}
		n := &Binary[E]{Op: OpPow, L: items[i-1].node, R: items[i+1].node}
		items = splice(items, i-1, 3, item[E]{pos: items[i-1].pos, node: n})
		i--
	}

	for _, tier := range leftTiers {
		for i := 1; i < len(items)-1; {
			if !isOp(items[i], tier...) || !items[i-1].isOperand() || !items[i+1].isOperand() {
				i++
				continue
			}
			n := &Binary[E]{Op: binaryOps[items[i].op], L: items[i-1].node, R: items[i+1].node}
			items = splice(items, i-1, 3, item[E]{pos: items[i-1].pos, node: n})
		}
	}

	if len(items) != 1 || !items[0].isOperand() {
		for _, it := range items {
			if it.op != "" {
				return nil, p.errorf(it.pos, "misplaced operator %q", it.op)
			}
		}
		return nil, p.errorf(items[len(items)-1].pos, "missing operator")
	}
	return items[0].node, nil
}

// splice replaces n items at i with repl.
func splice[E any](items []item[E], i, n int, repl item[E]) []item[E] {
	items[i] = repl
	return append(items[:i+1], items[i+n:]...)
}
