// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/command"
	"github.com/gogpu/migoto/config"
)

type runFlags struct {
	backend   string
	frames    int
	lists     []string
	state     string
	hunting   bool
	recursion int
	lenient   bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run command lists of a configuration for a number of frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), args[0], flags)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&flags.backend, "backend", "b", backend.NameMemory,
		fmt.Sprintf("device to run on (registered: %v)", backend.Available()))
	fl.IntVarP(&flags.frames, "frames", "n", 1, "number of frames to run")
	fl.StringArrayVarP(&flags.lists, "list", "l", []string{"CommandListFrame"},
		"section run in both phases every frame (repeatable)")
	fl.StringVar(&flags.state, "state", "", "persistent variable file, loaded before and saved after the run")
	fl.BoolVar(&flags.hunting, "hunting", false, "value of the hunting operand")
	fl.IntVar(&flags.recursion, "max-recursion", 0, "command list recursion limit (0 keeps the default)")
	fl.BoolVar(&flags.lenient, "lenient", false, "run even if some directives were rejected")
	return cmd
}

// frameAdvancer is implemented by devices that simulate frame latency.
type frameAdvancer interface{ AdvanceFrame() }

func run(w io.Writer, path string, flags runFlags) error {
	f, err := config.Load(path)
	if err != nil {
		return err
	}
	b, err := backend.Open(flags.backend)
	if err != nil {
		return err
	}
	if c, ok := b.(interface{ Close() }); ok {
		defer c.Close()
	}

	var opts []command.Option
	if flags.recursion > 0 {
		opts = append(opts, command.WithMaxRecursion(flags.recursion))
	}
	rt, err := config.Build(b, f, opts...)
	defer rt.Close()
	if err != nil {
		if !flags.lenient {
			return err
		}
		migoto.Logger().Warn("running with rejected directives", "err", err)
	}
	rt.SetHunting(flags.hunting)

	var sections []*command.Section
	for _, name := range flags.lists {
		s := rt.Section(name)
		if !s.Defined() {
			return fmt.Errorf("%s: section %s is not defined", path, name)
		}
		sections = append(sections, s)
	}

	if flags.state != "" {
		if err := loadState(rt, flags.state); err != nil {
			return err
		}
	}

	for range flags.frames {
		rt.BeginFrame()
		for _, s := range sections {
			rt.RunSection(s, nil, false)
			rt.RunSection(s, nil, true)
		}
		rt.EndFrame()
		if fa, ok := b.(frameAdvancer); ok {
			fa.AdvanceFrame()
		}
	}
	migoto.Logger().Info("run finished", "backend", b.Name(), "frames", flags.frames, "frame", rt.Frame())

	t := newTable("GLOBAL", "VALUE")
	for _, v := range rt.Globals() {
		t.add(v.Name, v.Value)
	}
	t.write(w, "")

	if flags.state != "" && rt.Dirty() {
		return saveState(rt, flags.state)
	}
	return nil
}

func loadState(rt *command.Runtime, path string) error {
	fh, err := os.Open(path) // #nosec G304 -- path is chosen by the user
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer fh.Close()
	return rt.LoadPersistent(fh)
}

func saveState(rt *command.Runtime, path string) error {
	fh, err := os.Create(path) // #nosec G304 -- path is chosen by the user
	if err != nil {
		return err
	}
	if err := rt.SavePersistent(fh); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
