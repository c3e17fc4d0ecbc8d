// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"fmt"
	"io"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/command"
	"github.com/gogpu/migoto/config"
	"github.com/gogpu/migoto/internal/parallel"
	"github.com/gogpu/migoto/resource"
)

func newCheckCmd() *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Load configurations and report what they define",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool := parallel.NewPool(min(jobs, len(args)))
			defer pool.Close()

			reports := make([]bytes.Buffer, len(args))
			ok := make([]bool, len(args))
			work := make([]func(), len(args))
			for i, path := range args {
				work[i] = func() { ok[i] = check(&reports[i], path) }
			}
			pool.Run(work)

			failed := 0
			for i := range reports {
				if _, err := reports[i].WriteTo(cmd.OutOrStdout()); err != nil {
					return err
				}
				if !ok[i] {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files have problems", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.GOMAXPROCS(0), "files loaded in parallel")
	return cmd
}

// check loads path on the in-memory device and prints its report. It
// reports whether the file loaded without problems.
func check(w io.Writer, path string) bool {
	fmt.Fprintln(w, path)
	f, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(w, "  %v\n", err)
		return false
	}
	b, err := backend.Open(backend.NameMemory)
	if err != nil {
		fmt.Fprintf(w, "  %v\n", err)
		return false
	}
	rt, loadErr := config.Build(b, f)
	defer rt.Close()

	report(w, f, rt)

	problems := unjoin(loadErr)
	if len(problems) == 0 {
		fmt.Fprintln(w, "  ok")
		return true
	}
	fmt.Fprintf(w, "  %d problems:\n", len(problems))
	for _, p := range problems {
		fmt.Fprintf(w, "    %v\n", p)
	}
	return false
}

func report(w io.Writer, f *config.File, rt *command.Runtime) {
	sections := newTable("SECTION", "NAMESPACE", "PRE", "POST")
	for _, s := range rt.Sections() {
		ns := s.Namespace
		if ns == "" {
			ns = "-"
		}
		if !s.Defined() {
			ns = "(undefined)"
		}
		sections.add(s.Name, ns, s.Pre.Len(), s.Post.Len())
	}
	sections.write(w, "  ")

	globals := newTable("GLOBAL", "VALUE", "PERSIST")
	for _, v := range rt.Globals() {
		globals.add(v.Name, v.Value, v.Persist)
	}
	globals.write(w, "  ")

	resources := newTable("RESOURCE", "KIND", "SIZE", "SOURCE")
	for _, r := range f.Resources {
		c := rt.Custom(r.Name)
		if c == nil {
			continue
		}
		src := "copy"
		switch {
		case c.Filename != "":
			src = c.Filename
		case !c.Override.Empty():
			src = "override"
		}
		resources.add(c.Name, c.Override.Kind, size(c.Override), src)
	}
	resources.write(w, "  ")
}

// size is the byte size a custom override describes, or "-" when the
// override leaves it to the copy source.
func size(o resource.Override) string {
	var n uint64
	switch {
	case o.Kind == backend.KindBuffer:
		n = max(o.ByteWidth, uint64(len(o.Data)))
	case o.Kind.IsTexture() && o.Width > 0 && o.Format != 0:
		n = uint64(o.Width) * uint64(max(o.Height, 1)) * uint64(max(o.Depth, 1)) * uint64(backend.FormatSize(o.Format))
	}
	if n == 0 {
		return "-"
	}
	return humanize.IBytes(n)
}

// unjoin flattens an errors.Join tree into its leaves.
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, unjoin(e)...)
		}
		return out
	}
	return []error{err}
}
