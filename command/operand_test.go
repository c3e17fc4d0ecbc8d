// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/backend/memory"
	"github.com/gogpu/migoto/expr"
)

type fakePointer struct {
	fn func(gpucontext.PointerEvent)
}

func (p *fakePointer) OnPointer(fn func(gpucontext.PointerEvent)) { p.fn = fn }

func TestParseCondition_Errors(t *testing.T) {
	rt, _ := newTestRuntime(t)
	tests := []struct {
		text string
		want error
	}{
		{"vertex_count > 3", ErrNeedsScope},
		{"ps == 1", ErrNeedsScope},
		{"ps-t0 + 1", ErrNeedsScope},
		{"bogus", expr.ErrUnknownOperand},
		{"$undeclared", expr.ErrUnknownOperand},
		{"x0 + 1", expr.ErrUnknownOperand},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := rt.ParseCondition("", tt.text)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseCondition(%q) error = %v, want %v", tt.text, err, tt.want)
			}
		})
	}
}

func TestGlobalOperands(t *testing.T) {
	clock := 1500 * time.Millisecond
	ptr := &fakePointer{}
	b := memory.New(memory.WithBackBuffer(1920, 1080, gputypes.TextureFormatBGRA8Unorm))
	rt := New(b,
		WithClock(func() time.Duration { return clock }),
		WithWindow(gpucontext.NullWindowProvider{W: 800, H: 600}),
		WithCursor(ptr),
	)
	defer rt.Close()
	b.SetViewport(backend.Viewport{X: 10, Width: 640, Height: 480})
	b.SetScissor(backend.Rect{Right: 320, Bottom: 200})
	ptr.fn(gpucontext.PointerEvent{X: 12.5, Y: 30})
	*rt.Param(0, 0) = 4
	*rt.Param(3, 3) = -1
	if _, err := rt.DeclareGlobal("mod", "$scale", 2, false); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		text string
		want float32
	}{
		{"time", 1.5},
		{"window_width * window_height", 800 * 600},
		{"res_width", 1920},
		{"res_height", 1080},
		{"cursor_x + cursor_y", 42.5},
		{"viewport_x + viewport_width", 650},
		{"viewport_height", 480},
		{"scissor_right - scissor_left", 320},
		{"scissor_bottom", 200},
		{"x * w3", -4},
		{"$scale * 2", 4},
		{`$\mod\scale`, 2},
		{"hunting || frame_analysis", 0},
		{"stereo_available", 1},
		{"stereo_active", 0},
		{"rt_width", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			e, err := rt.ParseCondition("mod", tt.text)
			if err != nil {
				t.Fatalf("ParseCondition(%q) error = %v", tt.text, err)
			}
			if got := rt.Eval(e); got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}

	rt.SetHunting(true)
	e, err := rt.ParseCondition("", "hunting")
	if err != nil {
		t.Fatal(err)
	}
	if got := rt.Eval(e); got != 1 {
		t.Errorf("hunting = %v, want 1", got)
	}
}

func TestDrawFieldOperands(t *testing.T) {
	rt, _ := newTestRuntime(t)
	vars := declare(t, rt, "$a", "$b", "$c")
	s := build(t, rt, "CommandListFields",
		"$a = index_count + first_index",
		"$b = thread_group_count_x * thread_group_count_z",
		"$c = draw_type",
	)
	rt.RunSection(s, &backend.DrawCall{Type: backend.CallDrawIndexed, IndexCount: 36, FirstIndex: 6}, false)
	if vars["$a"].Value != 42 || vars["$c"].Value != float32(backend.CallDrawIndexed) {
		t.Errorf("a, c = %v, %v", vars["$a"].Value, vars["$c"].Value)
	}
	rt.RunSection(s, &backend.DrawCall{Type: backend.CallDispatch, ThreadGroups: [3]uint32{4, 1, 8}}, false)
	if vars["$b"].Value != 32 {
		t.Errorf("b = %v, want 32", vars["$b"].Value)
	}
	rt.RunSection(s, nil, false)
	if vars["$a"].Value != 0 {
		t.Errorf("a outside a call = %v, want 0", vars["$a"].Value)
	}
}

func TestOptimise_StaticCondition(t *testing.T) {
	rt, _ := newTestRuntime(t)
	e, err := rt.ParseCondition("", "2 * (3 + 1)")
	if err != nil {
		t.Fatal(err)
	}
	e.Optimise()
	if v, ok := e.Static(); !ok || v != 8 {
		t.Errorf("Static() = %v, %v, want 8, true", v, ok)
	}
	e, err = rt.ParseCondition("", "time * 0 + 1")
	if err != nil {
		t.Fatal(err)
	}
	e.Optimise()
	if _, ok := e.Static(); ok {
		t.Error("expression reading time folded to a constant")
	}
}
