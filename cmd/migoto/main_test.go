// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/migoto"
)

const counter = `
globals:
  - {name: $count, persist: true}
  - {name: $temp}
lists:
  - name: CommandListFrame
    commands:
      - $count = $count + 1
      - if $count > 2
      -   $temp = 1
      - endif
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { migoto.SetLogger(nil) })
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--log-format", "text"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCheck(t *testing.T) {
	path := writeFile(t, "mod.yaml", counter)
	out, err := execute(t, "check", path)
	if err != nil {
		t.Fatalf("check error = %v\n%s", err, out)
	}
	for _, want := range []string{"CommandListFrame", "$count", "ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}
}

func TestCheck_ReportsInArgumentOrder(t *testing.T) {
	a := writeFile(t, "a.yaml", counter)
	b := writeFile(t, "b.yaml", "lists: [{name: CommandListB, commands: [z = 1]}]\n")
	out, err := execute(t, "check", "-j", "2", b, a)
	if err != nil {
		t.Fatalf("check error = %v\n%s", err, out)
	}
	ib, ia := strings.Index(out, b), strings.Index(out, a)
	if ib < 0 || ia < 0 || ib > ia {
		t.Errorf("reports out of order:\n%s", out)
	}
}

func TestCheck_Problems(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
resources: [{name: Buf, type: Buffer, byte_width: 2048}]
lists:
  - name: CommandListBad
    commands: [x = (1 +, endif]
`)
	out, err := execute(t, "check", path)
	if err == nil {
		t.Fatalf("check succeeded on a broken file:\n%s", out)
	}
	for _, want := range []string{"2 problems", "2.0 KiB", "CommandListBad"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_State(t *testing.T) {
	path := writeFile(t, "mod.yaml", counter)
	state := filepath.Join(filepath.Dir(path), "state.yaml")

	out, err := execute(t, "run", "--frames", "3", "--state", state, path)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.Contains(out, "$count  3") || !strings.Contains(out, "$temp   1") {
		t.Errorf("run output:\n%s", out)
	}
	saved, err := os.ReadFile(state)
	if err != nil {
		t.Fatalf("state not saved: %v", err)
	}
	if !bytes.HasPrefix(saved, []byte("# persistent variables saved ")) {
		t.Errorf("state file = %q", saved)
	}

	out, err = execute(t, "run", "--frames", "2", "--state", state, path)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if !strings.Contains(out, "$count  5") {
		t.Errorf("second run did not resume from saved state:\n%s", out)
	}
}

func TestRun_Errors(t *testing.T) {
	good := writeFile(t, "mod.yaml", counter)
	bad := writeFile(t, "bad.yaml", "lists: [{name: CommandListFrame, commands: [x = (]}]\n")
	tests := []struct {
		name string
		args []string
	}{
		{"undefined list", []string{"run", "--list", "CommandListMissing", good}},
		{"unknown backend", []string{"run", "--backend", "vulkan", good}},
		{"rejected directive", []string{"run", bad}},
		{"missing file", []string{"run", filepath.Join(t.TempDir(), "none.yaml")}},
		{"bad log format", []string{"--log-format", "xml", "run", good}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Errorf("%v succeeded", tt.args)
			}
		})
	}
	if _, err := execute(t, "run", "--lenient", bad); err != nil {
		t.Errorf("run --lenient error = %v", err)
	}
}

func TestRun_HAL(t *testing.T) {
	path := writeFile(t, "mod.yaml", `
resources: [{name: Buf, type: Buffer, byte_width: 16, data: [1, 2, 3, 4]}, {name: Copy}]
lists:
  - name: CommandListFrame
    commands:
      - ResourceCopy = copy ResourceBuf
      - draw = 3, 0
`)
	if _, err := execute(t, "run", "--backend", "hal-noop", "--frames", "2", path); err != nil {
		t.Errorf("run on hal-noop error = %v", err)
	}
}

func TestTable(t *testing.T) {
	tb := newTable("NAME", "VALUE")
	tb.add("$a", 1)
	tb.add("$名前", 2.5)
	var buf bytes.Buffer
	tb.write(&buf, "  ")
	want := "  NAME   VALUE\n" +
		"  $a     1\n" +
		"  $名前  2.5\n"
	if got := buf.String(); got != want {
		t.Errorf("write() =\n%q\nwant\n%q", got, want)
	}

	var empty bytes.Buffer
	newTable("X").write(&empty, "")
	if empty.Len() != 0 {
		t.Errorf("empty table wrote %q", empty.String())
	}
}
