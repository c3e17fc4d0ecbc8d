// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package expr

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
)

type env struct {
	calls int
}

// testResolver knows $a and $b as variable cells, "count" as a live
// accessor counting its evaluations and "ps-t0" as a slot.
type testResolver struct {
	a, b float32
}

func (r *testResolver) ResolveOperand(tok string) (Node[*env], error) {
	switch tok {
	case "$a":
		return Var[*env]{Name: tok, Cell: &r.a}, nil
	case "$b":
		return Var[*env]{Name: tok, Cell: &r.b}, nil
	case "inf":
		return Literal[*env]{Value: float32(math.Inf(1))}, nil
	case "count":
		return Func[*env]{Name: tok, Fn: func(e *env) float32 {
			e.calls++
			return 1
		}}, nil
	case "ps-t0":
		return Literal[*env]{Value: 7}, nil
	case "$broken":
		return nil, errors.New("variable not declared")
	}
	return nil, ErrUnknownOperand
}

func eval(t *testing.T, text string) float32 {
	t.Helper()
	e, err := Parse[*env](text, &testResolver{})
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", text, err)
	}
	return e.Eval(&env{})
}

func TestParse_Precedence(t *testing.T) {
	tests := []struct {
		text string
		want float32
	}{
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"2 ** 3 ** 2", 512},
		{"10 - 4 - 3", 3},
		{"16 / 4 / 2", 2},
		{"-2 ** 2", 4},
		{"2 * -3", -6},
		{"- - 5", 5},
		{"+5", 5},
		{"!0", 1},
		{"!3", 0},
		{"1 + 2 < 4", 1},
		{"1 < 2 == 1", 1},
		{"1 || 0 && 0", 1},
		{"(1 || 0) && 0", 0},
		{"((((1))))", 1},
		{"1+2*(3-1)", 5},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := eval(t, tt.text); got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParse_Operators(t *testing.T) {
	tests := []struct {
		text string
		want float32
	}{
		{"7 // 2", 3},
		{"-7 // 2", -4},
		{"7 % 3", 1},
		{"-7 % 3", -1},
		{"7.5 % 2", 1.5},
		{"2 ** 0.5 ** 2", float32(math.Pow(2, 0.25))},
		{"3 >= 3", 1},
		{"3 > 3", 0},
		{"3 <= 2", 0},
		{"3 != 3", 0},
		{"0 == -0", 1},
		{"0 === -0", 0},
		{"0 !== -0", 1},
		{"1 === 1", 1},
		{"5 && 2", 1},
		{"0 || 0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := eval(t, tt.text); got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParse_Literals(t *testing.T) {
	for _, text := range []string{"0.1", "3.4028235e38", "1e-45", ".5", "123456.789", "1.", "2.5E+3"} {
		f, _ := strconv.ParseFloat(text, 32)
		want := float32(f)
		if got := eval(t, text); math.Float32bits(got) != math.Float32bits(want) {
			t.Errorf("Eval(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestParse_HexBits(t *testing.T) {
	tests := []struct {
		text string
		bits uint32
	}{
		{"0x3f800000", 0x3f800000},
		{"0x0", 0},
		{"0x80000000", 0x80000000},
		{"0xFFFFFFFF", 0xffffffff},
	}
	for _, tt := range tests {
		got := eval(t, tt.text)
		if math.Float32bits(got) != tt.bits {
			t.Errorf("Eval(%q) bits = %#x, want %#x", tt.text, math.Float32bits(got), tt.bits)
		}
	}
	if got := eval(t, "0x3f800000 + 1"); got != 2 {
		t.Errorf("Eval(0x3f800000 + 1) = %v, want 2", got)
	}
}

func TestParse_Operands(t *testing.T) {
	r := &testResolver{a: 3, b: 4}
	e, err := Parse[*env]("$a * $a + $b * $b == 25 && ps-t0 == 7", r)
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Eval(&env{}); got != 1 {
		t.Errorf("Eval() = %v, want 1", got)
	}
	r.a = 0
	if got := e.Eval(&env{}); got != 0 {
		t.Errorf("Eval() after write = %v, want 0", got)
	}
	if got := eval(t, "inf > 1e38"); got != 1 {
		t.Errorf("Eval(inf > 1e38) = %v, want 1", got)
	}
}

func TestParse_UnknownSlot(t *testing.T) {
	// Slot shaped but unknown to the resolver: lexing falls through to the
	// identifier rule, which the resolver also rejects.
	_, err := Parse[*env]("vs-cb3", &testResolver{})
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("Parse(vs-cb3) error = %v, want *SyntaxError", err)
	}
	if se.Pos != 0 {
		t.Errorf("Pos = %d, want 0", se.Pos)
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		text string
		pos  int
	}{
		{"", 0},
		{"   ", 0},
		{"(1 + 2", 0},
		{"1 + 2)", 5},
		{"()", 0},
		{"1 +", 2},
		{"* 2", 0},
		{"1 2", 2},
		{"$a $b", 3},
		{"1 @ 2", 2},
		{"$nope", 0},
		{"1 + $broken", 4},
		{"0x1ffffffff", 0},
		{"1 ! 2", 2},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := Parse[*env](tt.text, &testResolver{})
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("Parse(%q) error = %v, want *SyntaxError", tt.text, err)
			}
			if se.Pos != tt.pos {
				t.Errorf("Parse(%q) Pos = %d, want %d (%v)", tt.text, se.Pos, tt.pos, err)
			}
			if !strings.Contains(err.Error(), "position") {
				t.Errorf("Error() = %q", err.Error())
			}
		})
	}
}

func TestParse_ResolverErrorWrapped(t *testing.T) {
	_, err := Parse[*env]("$nope", &testResolver{})
	if !errors.Is(err, ErrUnknownOperand) {
		t.Errorf("Parse($nope) error = %v, want wrapping ErrUnknownOperand", err)
	}
}

func TestEval_ShortCircuit(t *testing.T) {
	tests := []struct {
		text  string
		want  float32
		calls int
	}{
		{"0 && count", 0, 0},
		{"1 && count", 1, 1},
		{"1 || count", 1, 0},
		{"0 || count", 1, 1},
		{"count + count", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			e, err := Parse[*env](tt.text, &testResolver{})
			if err != nil {
				t.Fatal(err)
			}
			en := &env{}
			if got := e.Eval(en); got != tt.want {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
			if en.calls != tt.calls {
				t.Errorf("accessor calls = %d, want %d", en.calls, tt.calls)
			}
		})
	}
}

func TestOptimise(t *testing.T) {
	tests := []struct {
		text     string
		changed  bool
		static   bool
		rendered string
	}{
		{"1 + 2 * 3", true, true, "7"},
		{"$a + 2 * 3", true, false, "($a + 6)"},
		{"0 && count", true, true, "0"},
		{"1 || $a", true, true, "1"},
		{"count && 0", false, false, "(count && 0)"},
		{"$a", false, false, "$a"},
		{"4", false, true, "4"},
		{"-0.0", true, true, "-0"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			e, err := Parse[*env](tt.text, &testResolver{})
			if err != nil {
				t.Fatal(err)
			}
			if got := e.Optimise(); got != tt.changed {
				t.Errorf("Optimise() = %v, want %v", got, tt.changed)
			}
			if _, ok := e.Static(); ok != tt.static {
				t.Errorf("Static() ok = %v, want %v", ok, tt.static)
			}
			if got := e.String(); got != tt.rendered {
				t.Errorf("String() = %q, want %q", got, tt.rendered)
			}
			if e.Optimise() {
				t.Error("second Optimise() reported a change")
			}
		})
	}
}

func TestOptimise_KeepsSemantics(t *testing.T) {
	r := &testResolver{a: 5}
	e := MustParse[*env]("($a + 1 * 2) // (4 - 2)", r)
	before := e.Eval(&env{})
	e.Optimise()
	if after := e.Eval(&env{}); after != before {
		t.Errorf("Eval() after Optimise = %v, want %v", after, before)
	}
	if e.Text() != "($a + 1 * 2) // (4 - 2)" {
		t.Errorf("Text() = %q", e.Text())
	}
}

func TestMustParse_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse(\"(\") did not panic")
		}
	}()
	MustParse[*env]("(", &testResolver{})
}

func TestResolverFunc(t *testing.T) {
	r := ResolverFunc[int](func(tok string) (Node[int], error) {
		return Func[int]{Name: tok, Fn: func(e int) float32 { return float32(e) }}, nil
	})
	e := MustParse[int]("value * 2", r)
	if got := e.Eval(21); got != 42 {
		t.Errorf("Eval(21) = %v, want 42", got)
	}
}

func BenchmarkEval(b *testing.B) {
	r := &testResolver{a: 2, b: 3}
	e := MustParse[*env]("($a * $b + 1) > 6 && $a != 0 || $b // 2 == 1", r)
	en := &env{}
	b.ResetTimer()
	for b.Loop() {
		e.Eval(en)
	}
}
