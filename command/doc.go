// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package command implements the command-list virtual machine.
//
// A Runtime owns everything a configuration defines. Sections are built
// one directive at a time with a Builder:
//
//	rt := command.New(b)
//	rt.DeclareGlobal("", "$mode", 0, true)
//
//	bld := rt.NewBuilder("ShaderOverrideHUD", "")
//	bld.Add("if $mode == 1")
//	bld.Add("  handling = skip")
//	bld.Add("else")
//	bld.Add("  ps-t0 = ResourceMask")
//	bld.Add("endif")
//	if err := bld.Finish(); err != nil {
//		// unterminated conditionals were dropped
//	}
//	rt.OptimiseAll()
//
// Every directive becomes a Command stored once in the runtime's arena and
// referenced from the pre list, the post list or both. Without a pre or
// post prefix, run, checktextureoverride, separation, convergence,
// handling = abort and conditionals go to both lists; everything else runs
// before the call only.
//
// At run time every entry point creates a fresh Context shared by all the
// lists it invokes. Recursion is bounded by WithMaxRecursion; the list past
// the limit is skipped with a warning and its caller carries on.
// handling = abort stops the whole execution.
//
// Expressions are parsed with package expr against an operand resolver
// that knows variables, parameter slots x, y, z, w and xN..wN, and live
// accessors such as vertex_count, rt_width, ps-t0 (the filter index of the
// texture bound there) or ResourceName.x (a staged readback that lags a
// frame or more behind).
//
// Nothing here is safe for concurrent use.
package command
