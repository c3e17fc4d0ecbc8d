// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command migoto loads scripting configurations and runs their command
// lists against an offline device.
//
//	migoto check mod.yaml
//	migoto run --frames 3 --list CommandListFrame mod.yaml
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/gogpu/migoto"
	_ "github.com/gogpu/migoto/backend/halgpu" // register hal-noop
	_ "github.com/gogpu/migoto/backend/memory" // register memory
)

const appName = "migoto"

type rootFlags struct {
	verbose   bool
	logFormat string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:   appName,
		Short: "Load and run draw call scripting configurations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd.ErrOrStderr(), flags)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log debug diagnostics")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "auto",
		"log output: text, json, or auto (text on a terminal)")
	root.AddCommand(newCheckCmd(), newRunCmd())
	return root
}

// setupLogging installs the migoto logger. Warnings are always shown.
func setupLogging(w io.Writer, flags rootFlags) error {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch flags.logFormat {
	case "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "auto":
		if isTerminal(w) {
			h = slog.NewTextHandler(w, opts)
		} else {
			h = slog.NewJSONHandler(w, opts)
		}
	default:
		return fmt.Errorf("unknown log format %q", flags.logFormat)
	}
	migoto.SetLogger(slog.New(h))
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}
