// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/expr"
	"github.com/gogpu/migoto/resource"
)

// Expression is an expression evaluated against a command list Context.
type Expression = expr.Expression[*Context]

// Kind identifies the variant of a Command.
type Kind uint8

const (
	KindCheckTextureOverride Kind = iota // Run the texture override of a bound resource
	KindResetPerFrameLimits              // Reset per-frame copy or execution counters
	KindClearView                        // Clear a render target, depth or unordered view
	KindShaderSubstitution               // Bind a custom shader stage
	KindRunList                          // Run another command list
	KindRunCustomShader                  // Run a custom shader section
	KindPreset                           // Trigger or exclude a preset
	KindSkip                             // Skip the original call
	KindAbort                            // Abort the whole execution
	KindStereoOverride                   // Override a stereo parameter around the call
	KindDraw                             // Issue a draw or dispatch
	KindAssignParam                      // Assign a global parameter slot
	KindAssignVariable                   // Assign a variable
	KindIf                               // Conditional block
	KindResourceCopy                     // Copy or bind a resource
	KindStereoEye                        // Select the stereo eye
	KindAnalysisOptions                  // Set frame analysis options for the call
)

var kindNames = [...]string{
	KindCheckTextureOverride: "CheckTextureOverride",
	KindResetPerFrameLimits:  "ResetPerFrameLimits",
	KindClearView:            "ClearView",
	KindShaderSubstitution:   "ShaderSubstitution",
	KindRunList:              "RunList",
	KindRunCustomShader:      "RunCustomShader",
	KindPreset:               "Preset",
	KindSkip:                 "Skip",
	KindAbort:                "Abort",
	KindStereoOverride:       "StereoOverride",
	KindDraw:                 "Draw",
	KindAssignParam:          "AssignParam",
	KindAssignVariable:       "AssignVariable",
	KindIf:                   "If",
	KindResourceCopy:         "ResourceCopy",
	KindStereoEye:            "StereoEye",
	KindAnalysisOptions:      "AnalysisOptions",
}

// String returns the variant name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Command is implemented by every command variant. The set of variants is
// closed; the VM dispatches on the concrete type.
type Command interface {
	Type() Kind
}

// CommandRef addresses a command in the Runtime arena. The same ref may be
// held by a pre and a post list.
type CommandRef uint32

// InvalidRef is the sentinel for a reference to no command.
const InvalidRef = CommandRef(^uint32(0))

// IsValid reports whether r is not InvalidRef.
func (r CommandRef) IsValid() bool { return r != InvalidRef }

// CheckTextureOverrideCommand runs the texture override matching the
// resource bound at Target, with "this" bound to that resource.
type CheckTextureOverrideCommand struct {
	Target resource.Target
}

// Type implements Command.
func (*CheckTextureOverrideCommand) Type() Kind { return KindCheckTextureOverride }

// ResetPerFrameLimitsCommand resets the per-frame counter of a custom
// resource or custom shader. Exactly one of Custom or Shader is set.
type ResetPerFrameLimitsCommand struct {
	Custom *resource.Custom
	Shader *CustomShader
}

// Type implements Command.
func (*ResetPerFrameLimitsCommand) Type() Kind { return KindResetPerFrameLimits }

// ClearViewCommand clears the view resolved from Target. Render targets
// take Color, depth targets Depth and Stencil, unordered views Color or,
// with Int set, Uint.
type ClearViewCommand struct {
	Target  resource.Target
	Values  [4]float32
	Uint    [4]uint32
	Int     bool
	Depth   float32
	Stencil uint8
}

// Type implements Command.
func (*ClearViewCommand) Type() Kind { return KindClearView }

// ShaderSubstitutionCommand binds the Stage shader of a custom shader, or
// unbinds the stage when Shader is nil.
type ShaderSubstitutionCommand struct {
	Stage  backend.ShaderStage
	Shader *CustomShader
}

// Type implements Command.
func (*ShaderSubstitutionCommand) Type() Kind { return KindShaderSubstitution }

// RunListCommand runs the list of Section matching the current phase.
type RunListCommand struct {
	Section *Section
}

// Type implements Command.
func (*RunListCommand) Type() Kind { return KindRunList }

// RunCustomShaderCommand runs a custom shader section.
type RunCustomShaderCommand struct {
	Shader *CustomShader
}

// Type implements Command.
func (*RunCustomShaderCommand) Type() Kind { return KindRunCustomShader }

// PresetCommand triggers a preset for the current frame, or excludes it.
type PresetCommand struct {
	Preset  *Preset
	Exclude bool
}

// Type implements Command.
func (*PresetCommand) Type() Kind { return KindPreset }

// SkipCommand asks the caller to drop the original call.
type SkipCommand struct{}

// Type implements Command.
func (*SkipCommand) Type() Kind { return KindSkip }

// AbortCommand stops the current execution, including every list that
// invoked the running one.
type AbortCommand struct{}

// Type implements Command.
func (*AbortCommand) Type() Kind { return KindAbort }

// StereoParam selects the stereo parameter a StereoOverrideCommand changes.
type StereoParam uint8

const (
	StereoSeparation StereoParam = iota
	StereoConvergence
)

func (p StereoParam) String() string {
	if p == StereoConvergence {
		return "convergence"
	}
	return "separation"
}

// StereoOverrideCommand sets a stereo parameter in the pre phase and
// restores the previous value in the post phase. Saved values are kept
// last in first out, so a list that runs again in pre before its post
// restores in the right order.
type StereoOverrideCommand struct {
	Param StereoParam
	Value *Expression

	saved []float32
}

// Type implements Command.
func (*StereoOverrideCommand) Type() Kind { return KindStereoOverride }

// DrawMode selects where a DrawCommand takes its arguments from.
type DrawMode uint8

const (
	// DrawDirect evaluates Args.
	DrawDirect DrawMode = iota
	// DrawInferred derives the count from the bound index or vertex buffer.
	DrawInferred
	// DrawFromCaller replays the intercepted call.
	DrawFromCaller
	// DrawIndirect reads the arguments from the buffer bound at Buffer.
	DrawIndirect
)

// DrawCommand issues a draw or dispatch.
type DrawCommand struct {
	Call backend.CallType
	Mode DrawMode
	Args []*Expression
	// Buffer and Args[0] locate the arguments of an indirect call.
	Buffer resource.Target
}

// Type implements Command.
func (*DrawCommand) Type() Kind { return KindDraw }

// AssignParamCommand assigns a global parameter slot such as x or y2.
type AssignParamCommand struct {
	Name  string
	Cell  *float32
	Value *Expression
}

// Type implements Command.
func (*AssignParamCommand) Type() Kind { return KindAssignParam }

// AssignVariableCommand assigns a local or global variable.
type AssignVariableCommand struct {
	Var   *Variable
	Value *Expression
}

// Type implements Command.
func (*AssignVariableCommand) Type() Kind { return KindAssignVariable }

// IfCommand runs one of two bodies depending on Cond. Each body has a pre
// and a post list; the one matching the current phase runs.
type IfCommand struct {
	Cond      *Expression
	TruePre   *CommandList
	TruePost  *CommandList
	FalsePre  *CommandList
	FalsePost *CommandList
	// Chained marks an If opened by elif inside the false body of
	// another If; its terminator closes the parent as well.
	Chained bool
}

// Type implements Command.
func (*IfCommand) Type() Kind { return KindIf }

// Body returns the list that runs for the given outcome and phase.
func (c *IfCommand) Body(taken, post bool) *CommandList {
	switch {
	case taken && !post:
		return c.TruePre
	case taken:
		return c.TruePost
	case !post:
		return c.FalsePre
	}
	return c.FalsePost
}

// ResourceCopyCommand runs a resource copy.
type ResourceCopyCommand struct {
	Op *resource.Copy
}

// Type implements Command.
func (*ResourceCopyCommand) Type() Kind { return KindResourceCopy }

// StereoEyeCommand selects the eye subsequent rendering targets.
type StereoEyeCommand struct {
	Eye backend.Eye
}

// Type implements Command.
func (*StereoEyeCommand) Type() Kind { return KindStereoEye }

// AnalysisOptionsCommand sets the frame analysis options for the rest of
// the intercepted call.
type AnalysisOptionsCommand struct {
	Flags AnalysisFlags
}

// Type implements Command.
func (*AnalysisOptionsCommand) Type() Kind { return KindAnalysisOptions }
