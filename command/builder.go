// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/resource"
)

var (
	// ErrUnknownDirective is returned for a directive no command matches.
	ErrUnknownDirective = errors.New("command: unknown directive")
	// ErrUnbalanced is returned for an else, elif or endif whose phases do
	// not match the innermost open if.
	ErrUnbalanced = errors.New("command: unbalanced conditional")
	// ErrUnterminated is reported for conditionals still open when the
	// section is finished.
	ErrUnterminated = errors.New("command: unterminated conditional")
	// ErrRedeclared is returned when a local is declared twice in the same
	// visible scope.
	ErrRedeclared = errors.New("command: local variable already declared")
)

// DirectiveError reports a directive the Builder rejected. The rest of the
// section is unaffected.
type DirectiveError struct {
	Section string
	Line    int
	Text    string
	Err     error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("command: [%s] line %d: %q: %v", e.Section, e.Line, e.Text, e.Err)
}

// Unwrap returns the underlying error.
func (e *DirectiveError) Unwrap() error { return e.Err }

// phaseSet is a set of phases a directive registers in.
type phaseSet uint8

const (
	phasePre phaseSet = 1 << iota
	phasePost
	phaseBoth = phasePre | phasePost
)

func (s phaseSet) has(post bool) bool {
	if post {
		return s&phasePost != 0
	}
	return s&phasePre != 0
}

func (s phaseSet) String() string {
	switch s {
	case phasePre:
		return "pre"
	case phasePost:
		return "post"
	}
	return "pre and post"
}

var phases = [2]bool{false, true}

// openIf is a conditional whose terminator has not been seen yet.
type openIf struct {
	cmd     *IfCommand
	phases  phaseSet
	line    int
	start   [2]int // index of the first body command in each phase list
	elseAt  [2]int
	hasElse bool
	chained bool
}

// Builder builds the command lists of one section, one directive at a
// time.
type Builder struct {
	rt      *Runtime
	section *Section
	scope   *Scope
	res     *operandResolver
	open    [2][]*openIf
	line    int
}

// NewBuilder returns a builder appending to the section called name.
// Variables are resolved in namespace.
func (r *Runtime) NewBuilder(name, namespace string) *Builder {
	s := r.Section(name)
	s.Namespace = namespace
	scope := newScope()
	return &Builder{
		rt:      r,
		section: s,
		scope:   scope,
		res:     &operandResolver{rt: r, namespace: namespace, scope: scope},
	}
}

// Section returns the section being built.
func (b *Builder) Section() *Section { return b.section }

// Add parses one directive and appends the resulting command. Blank lines
// and comments starting with ';' or '#' are ignored. A rejected directive
// is logged and returned as a *DirectiveError.
func (b *Builder) Add(line string) error {
	b.line++
	text := strings.TrimSpace(line)
	if text == "" || text[0] == ';' || text[0] == '#' {
		return nil
	}
	if err := b.directive(text); err != nil {
		de := &DirectiveError{Section: b.section.Name, Line: b.line, Text: text, Err: err}
		migoto.Logger().Warn("command: directive rejected", "section", b.section.Name, "line", b.line, "err", err)
		return de
	}
	return nil
}

// Finish closes the section. Conditionals still open are dropped together
// with everything after them, and reported with ErrUnterminated.
func (b *Builder) Finish() error {
	var errs []error
	seen := make(map[*openIf]bool)
	for i, post := range phases {
		stack := b.open[i]
		if len(stack) == 0 {
			continue
		}
		l := b.section.List(post)
		l.refs = l.refs[:stack[0].start[i]-1]
		for _, o := range stack {
			if seen[o] {
				continue
			}
			seen[o] = true
			migoto.Logger().Warn("command: dropping unterminated conditional",
				"section", b.section.Name, "line", o.line)
			errs = append(errs, &DirectiveError{Section: b.section.Name, Line: o.line, Text: "if", Err: ErrUnterminated})
		}
	}
	b.open = [2][]*openIf{}
	b.section.defined = true
	return errors.Join(errs...)
}

func (b *Builder) emit(cmd Command, set phaseSet) CommandRef {
	ref := b.rt.add(cmd)
	for _, post := range phases {
		if set.has(post) {
			l := b.section.List(post)
			l.refs = append(l.refs, ref)
		}
	}
	return ref
}

func (b *Builder) parse(text string) (*Expression, error) {
	return parseExpression(strings.TrimSpace(text), b.res)
}

func (b *Builder) lookup(name string) *resource.Custom { return b.rt.Custom(name) }

func cutWord(s string) (word, rest string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func (b *Builder) directive(text string) error {
	var set phaseSet
	word, rest := cutWord(text)
	switch strings.ToLower(word) {
	case "pre":
		set, text = phasePre, rest
	case "post":
		set, text = phasePost, rest
	}
	word, rest = cutWord(text)

	switch strings.ToLower(word) {
	case "if":
		return b.openIf(rest, or(set, phaseBoth), false)
	case "elif":
		return b.elif(rest, or(set, phaseBoth))
	case "else":
		if w, r := cutWord(rest); strings.EqualFold(w, "if") {
			return b.elif(r, or(set, phaseBoth))
		}
		if rest != "" {
			return fmt.Errorf("%w: text after else", ErrUnknownDirective)
		}
		return b.elseBranch(or(set, phaseBoth))
	case "endif":
		return b.endif(or(set, phaseBoth))
	case "local":
		return b.local(rest, or(set, phasePre))
	}

	lhs, rhs, ok := strings.Cut(text, "=")
	if !ok {
		return fmt.Errorf("%w: missing '='", ErrUnknownDirective)
	}
	lhs, rhs = strings.TrimSpace(lhs), strings.TrimSpace(rhs)
	return b.assignment(lhs, rhs, set)
}

func or(set, def phaseSet) phaseSet {
	if set == 0 {
		return def
	}
	return set
}

func (b *Builder) openIf(text string, set phaseSet, chained bool) error {
	cond, err := b.parse(text)
	if err != nil {
		return err
	}
	name := b.section.Name
	cmd := &IfCommand{
		Cond:      cond,
		TruePre:   newList(name+" if", false),
		TruePost:  newList(name+" if", true),
		FalsePre:  newList(name+" else", false),
		FalsePost: newList(name+" else", true),
		Chained:   chained,
	}
	b.emit(cmd, set)
	o := &openIf{cmd: cmd, phases: set, line: b.line, elseAt: [2]int{-1, -1}, chained: chained}
	for i, post := range phases {
		if set.has(post) {
			o.start[i] = b.section.List(post).Len()
			b.open[i] = append(b.open[i], o)
		}
	}
	b.scope.push()
	return nil
}

// innermost returns the conditional a terminator in set closes. It must be
// innermost in every phase of set and have been opened in exactly set.
func (b *Builder) innermost(set phaseSet) (*openIf, error) {
	var o *openIf
	for i, post := range phases {
		if !set.has(post) {
			continue
		}
		stack := b.open[i]
		if len(stack) == 0 {
			return nil, fmt.Errorf("%w: no open if in %s", ErrUnbalanced, phaseSet(1<<i))
		}
		top := stack[len(stack)-1]
		if o != nil && o != top {
			return nil, fmt.Errorf("%w: pre and post are inside different blocks", ErrUnbalanced)
		}
		o = top
	}
	if o.phases != set {
		return nil, fmt.Errorf("%w: if in %s closed in %s", ErrUnbalanced, o.phases, set)
	}
	return o, nil
}

func (b *Builder) elseBranch(set phaseSet) error {
	o, err := b.innermost(set)
	if err != nil {
		return err
	}
	if o.hasElse {
		return fmt.Errorf("%w: second else", ErrUnbalanced)
	}
	for i, post := range phases {
		if set.has(post) {
			o.elseAt[i] = b.section.List(post).Len()
		}
	}
	o.hasElse = true
	b.scope.clearTop()
	return nil
}

func (b *Builder) elif(text string, set phaseSet) error {
	o, err := b.innermost(set)
	if err != nil {
		return err
	}
	if o.hasElse {
		return fmt.Errorf("%w: elif after else", ErrUnbalanced)
	}
	// Parse first so a bad condition leaves the block untouched.
	if _, err := b.parse(text); err != nil {
		return err
	}
	if err := b.elseBranch(set); err != nil {
		return err
	}
	return b.openIf(text, set, true)
}

func (b *Builder) endif(set phaseSet) error {
	if _, err := b.innermost(set); err != nil {
		return err
	}
	for {
		o, err := b.innermost(set)
		if err != nil {
			return err
		}
		b.close(o)
		b.scope.pop()
		if !o.chained {
			return nil
		}
	}
}

// close moves the commands after the If node into its bodies.
func (b *Builder) close(o *openIf) {
	for i, post := range phases {
		if !o.phases.has(post) {
			continue
		}
		l := b.section.List(post)
		end := l.Len()
		split := end
		if o.elseAt[i] >= 0 {
			split = o.elseAt[i]
		}
		t, f := o.cmd.Body(true, post), o.cmd.Body(false, post)
		t.refs = append(t.refs, l.refs[o.start[i]:split]...)
		f.refs = append(f.refs, l.refs[split:end]...)
		l.refs = l.refs[:o.start[i]]
		b.open[i] = b.open[i][:len(b.open[i])-1]
	}
}

func (b *Builder) local(text string, set phaseSet) error {
	name, init, hasInit := strings.Cut(text, "=")
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, "$") || len(name) < 2 || strings.ContainsAny(name, ` \`) {
		return fmt.Errorf("%w: invalid local name %q", ErrUnknownDirective, name)
	}
	if b.scope.Lookup(name) != nil {
		return fmt.Errorf("%w: %s", ErrRedeclared, name)
	}
	var value *Expression
	if hasInit {
		// The initialiser cannot see the variable it declares.
		e, err := b.parse(init)
		if err != nil {
			return err
		}
		value = e
	}
	if g := b.rt.lookupGlobal(b.section.Namespace, name); g != nil {
		migoto.Logger().Info("command: local shadows global", "section", b.section.Name, "name", name)
	}
	v := &Variable{Name: name, Local: true}
	b.section.Pre.locals = append(b.section.Pre.locals, v)
	b.scope.declare(v)
	if value != nil {
		b.emit(&AssignVariableCommand{Var: v, Value: value}, set)
	}
	return nil
}

var drawKeywords = map[string]struct {
	call backend.CallType
	args int
}{
	"draw":                         {backend.CallDraw, 2},
	"drawauto":                     {backend.CallDrawAuto, 0},
	"drawindexed":                  {backend.CallDrawIndexed, 3},
	"drawinstanced":                {backend.CallDrawInstanced, 4},
	"drawindexedinstanced":         {backend.CallDrawIndexedInstanced, 5},
	"drawinstancedindirect":        {backend.CallDrawInstancedIndirect, 0},
	"drawindexedinstancedindirect": {backend.CallDrawIndexedInstancedIndirect, 0},
	"dispatch":                     {backend.CallDispatch, 3},
	"dispatchindirect":             {backend.CallDispatchIndirect, 0},
}

func (b *Builder) assignment(lhs, rhs string, set phaseSet) error {
	key := strings.ToLower(lhs)
	switch {
	case strings.HasPrefix(lhs, "$"):
		return b.assignVariable(lhs, rhs, or(set, phasePre))
	case paramPattern.MatchString(lhs):
		cell, ok := b.rt.paramCell(lhs)
		if !ok {
			return fmt.Errorf("%w: invalid parameter %q", ErrUnknownDirective, lhs)
		}
		e, err := b.parse(rhs)
		if err != nil {
			return err
		}
		b.emit(&AssignParamCommand{Name: lhs, Cell: cell, Value: e}, or(set, phasePre))
		return nil
	}

	switch key {
	case "run":
		return b.run(rhs, or(set, phaseBoth))
	case "checktextureoverride":
		t, err := resource.ParseTarget(rhs, b.lookup)
		if err != nil {
			return err
		}
		b.emit(&CheckTextureOverrideCommand{Target: t}, or(set, phaseBoth))
		return nil
	case "reset_per_frame_limits":
		return b.resetLimits(rhs, or(set, phasePre))
	case "clear":
		return b.clear(rhs, or(set, phasePre))
	case "handling":
		switch strings.ToLower(rhs) {
		case "skip":
			b.emit(&SkipCommand{}, or(set, phasePre))
		case "abort":
			b.emit(&AbortCommand{}, or(set, phaseBoth))
		default:
			return fmt.Errorf("%w: handling = %s", ErrUnknownDirective, rhs)
		}
		return nil
	case "preset", "exclude_preset":
		name := rhs
		if len(name) > len("preset") && strings.EqualFold(name[:len("preset")], "preset") {
			name = name[len("preset"):]
		}
		b.emit(&PresetCommand{Preset: b.rt.Preset(name), Exclude: key == "exclude_preset"}, or(set, phasePre))
		return nil
	case "separation", "convergence":
		e, err := b.parse(rhs)
		if err != nil {
			return err
		}
		param := StereoSeparation
		if key == "convergence" {
			param = StereoConvergence
		}
		b.emit(&StereoOverrideCommand{Param: param, Value: e}, or(set, phaseBoth))
		return nil
	case "stereo_eye":
		var eye backend.Eye
		switch strings.ToLower(rhs) {
		case "mono":
			eye = backend.EyeMono
		case "left":
			eye = backend.EyeLeft
		case "right":
			eye = backend.EyeRight
		default:
			return fmt.Errorf("%w: stereo_eye = %s", ErrUnknownDirective, rhs)
		}
		b.emit(&StereoEyeCommand{Eye: eye}, or(set, phasePre))
		return nil
	case "analyse_options", "analyze_options":
		flags, err := ParseAnalysisFlags(rhs)
		if err != nil {
			return err
		}
		b.emit(&AnalysisOptionsCommand{Flags: flags}, or(set, phasePre))
		return nil
	}

	if kw, ok := drawKeywords[key]; ok {
		return b.draw(kw.call, kw.args, rhs, or(set, phasePre))
	}
	if st, ok := backend.ParseStage(key); ok {
		var cs *CustomShader
		if !strings.EqualFold(rhs, "null") {
			name, ok := cutPrefixFold(rhs, "CustomShader")
			if !ok {
				return fmt.Errorf("%w: %s = %s", ErrUnknownDirective, lhs, rhs)
			}
			cs = b.rt.CustomShader(name)
		}
		b.emit(&ShaderSubstitutionCommand{Stage: st, Shader: cs}, or(set, phasePre))
		return nil
	}

	dst, err := resource.ParseTarget(lhs, b.lookup)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownDirective, err)
	}
	return b.copy(dst, rhs, or(set, phasePre))
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) <= len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func (b *Builder) assignVariable(name, rhs string, set phaseSet) error {
	var v *Variable
	if !strings.HasPrefix(name, `$\`) {
		v = b.scope.Lookup(name)
	}
	if v == nil {
		v = b.rt.lookupGlobal(b.section.Namespace, name)
	}
	if v == nil {
		return fmt.Errorf("%w: undeclared variable %s", ErrUnknownDirective, name)
	}
	e, err := b.parse(rhs)
	if err != nil {
		return err
	}
	b.emit(&AssignVariableCommand{Var: v, Value: e}, set)
	return nil
}

func (b *Builder) run(rhs string, set phaseSet) error {
	if name, ok := cutPrefixFold(rhs, "CustomShader"); ok {
		b.emit(&RunCustomShaderCommand{Shader: b.rt.CustomShader(name)}, set)
		return nil
	}
	if _, ok := cutPrefixFold(rhs, "CommandList"); ok {
		b.emit(&RunListCommand{Section: b.rt.Section(rhs)}, set)
		return nil
	}
	return fmt.Errorf("%w: run = %s", ErrUnknownDirective, rhs)
}

func (b *Builder) resetLimits(rhs string, set phaseSet) error {
	if name, ok := cutPrefixFold(rhs, "CustomShader"); ok {
		b.emit(&ResetPerFrameLimitsCommand{Shader: b.rt.CustomShader(name)}, set)
		return nil
	}
	if name, ok := cutPrefixFold(rhs, "Resource"); ok {
		c := b.rt.Custom(name)
		if c == nil {
			return fmt.Errorf("%w: unknown custom resource %s", ErrUnknownDirective, rhs)
		}
		b.emit(&ResetPerFrameLimitsCommand{Custom: c}, set)
		return nil
	}
	return fmt.Errorf("%w: reset_per_frame_limits = %s", ErrUnknownDirective, rhs)
}

// clear parses "clear = target [int] [v0 [v1 [v2 [v3]]]]" in any order. A
// single value applies to every component; a depth target takes depth and
// stencil.
func (b *Builder) clear(rhs string, set phaseSet) error {
	cmd := &ClearViewCommand{}
	var haveTarget bool
	var vals []float32
	var bits []uint32
	for _, w := range strings.Fields(rhs) {
		lw := strings.ToLower(w)
		switch lw {
		case "int":
			cmd.Int = true
			continue
		case "depth", "stencil":
			continue
		}
		if !haveTarget {
			if t, err := resource.ParseTarget(w, b.lookup); err == nil {
				cmd.Target, haveTarget = t, true
				continue
			}
		}
		if h, ok := strings.CutPrefix(lw, "0x"); ok {
			u, err := strconv.ParseUint(h, 16, 32)
			if err != nil {
				return fmt.Errorf("%w: clear value %q", ErrUnknownDirective, w)
			}
			vals = append(vals, math.Float32frombits(uint32(u)))
			bits = append(bits, uint32(u))
			continue
		}
		f, err := strconv.ParseFloat(w, 32)
		if err != nil {
			return fmt.Errorf("%w: clear value %q", ErrUnknownDirective, w)
		}
		vals = append(vals, float32(f))
		bits = append(bits, toUint(float32(f)))
	}
	if !haveTarget {
		return fmt.Errorf("%w: clear without a target", ErrUnknownDirective)
	}
	if len(vals) > 4 {
		return fmt.Errorf("%w: too many clear values", ErrUnknownDirective)
	}
	if len(vals) == 1 {
		for i := range 4 {
			cmd.Values[i], cmd.Uint[i] = vals[0], bits[0]
		}
	} else {
		copy(cmd.Values[:], vals)
		copy(cmd.Uint[:], bits)
	}
	if cmd.Target.Kind == resource.TargetDepthStencil {
		if len(vals) > 0 {
			cmd.Depth = vals[0]
		}
		if len(vals) > 1 {
			cmd.Stencil = uint8(min(bits[1], 255))
		}
	}
	b.emit(cmd, set)
	return nil
}

func (b *Builder) draw(call backend.CallType, nargs int, rhs string, set phaseSet) error {
	cmd := &DrawCommand{Call: call}
	lower := strings.ToLower(rhs)
	switch {
	case call == backend.CallDraw && lower == "from_caller":
		cmd.Mode = DrawFromCaller
	case (call == backend.CallDraw || call == backend.CallDrawIndexed) && lower == "auto":
		cmd.Mode = DrawInferred
	case call.IsIndirect():
		target, offset, _ := strings.Cut(rhs, ",")
		t, err := resource.ParseTarget(strings.TrimSpace(target), b.lookup)
		if err != nil {
			return err
		}
		if strings.TrimSpace(offset) == "" {
			offset = "0"
		}
		e, err := b.parse(offset)
		if err != nil {
			return err
		}
		cmd.Mode, cmd.Buffer, cmd.Args = DrawIndirect, t, []*Expression{e}
	case nargs == 0:
	default:
		parts := strings.Split(rhs, ",")
		if len(parts) != nargs {
			return fmt.Errorf("%w: %s takes %d arguments, got %d", ErrUnknownDirective, call, nargs, len(parts))
		}
		for _, p := range parts {
			e, err := b.parse(p)
			if err != nil {
				return err
			}
			cmd.Args = append(cmd.Args, e)
		}
	}
	b.emit(cmd, set)
	return nil
}

func (b *Builder) copy(dst resource.Target, rhs string, set phaseSet) error {
	words := strings.Fields(rhs)
	if len(words) == 0 {
		return fmt.Errorf("%w: missing copy source", ErrUnknownDirective)
	}
	src, err := resource.ParseTarget(words[len(words)-1], b.lookup)
	if err != nil {
		return err
	}
	flags, err := resource.ParseCopyFlags(words[:len(words)-1])
	if err != nil {
		return err
	}
	op, err := resource.NewCopy(dst, src, flags)
	if err != nil {
		return err
	}
	b.rt.copies = append(b.rt.copies, op)
	b.emit(&ResourceCopyCommand{Op: op}, set)
	return nil
}
