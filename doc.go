// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package migoto is the run-time scripting core of a draw-call interception
// tool. Configuration authored outside the host application describes
// conditional logic and resource manipulation that executes synchronously
// around every draw and dispatch call.
//
// # Architecture
//
// The module is organized into:
//   - expr: the expression language (tokenizer, precedence builder, evaluator)
//   - command: the command-list VM, operand resolution, presets and runtime entry points
//   - resource: binding-point targets, custom resources, the resource pool and the copy engine
//   - backend: the graphics backend abstraction, with the memory and halgpu implementations
//   - config: a YAML front end that builds a command.Runtime
//   - cmd/migoto: a command line tool that checks configurations and runs them
//     for a number of frames on a chosen backend
//
// The hooking layer drives the core through command.Runtime:
//
//	rt := command.New(b, command.WithMaxRecursion(64))
//	// ... populate rt through config.Load or the builder API ...
//	rt.OptimiseAll()
//
//	// per draw call
//	call := &backend.DrawCall{Type: backend.CallDrawIndexed, IndexCount: 36}
//	rt.RunSection(section, call, false)
//	if !call.Skip {
//		call.Replay(b)
//	}
//	rt.RunSection(section, call, true)
//
// # Threading
//
// Everything except SetLogger/Logger is single-threaded: a Runtime and the
// objects it owns must only be used from the render thread that issues
// the draw calls.
package migoto

// Version is the current version of the module.
const Version = "0.1.0"
