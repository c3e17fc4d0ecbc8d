// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/resource"
)

// Override is a texture or shader override: a section run when a resource
// or shader with Hash is involved in a draw call.
type Override struct {
	Name string
	Hash uint64
	// FilterIndex is what texture and shader filter operands return for a
	// matching resource or shader.
	FilterIndex float32
	Section     *Section
}

// Runtime owns everything a configuration defines: the command arena,
// global variables and parameters, custom resources, sections, custom
// shaders, presets and overrides.
//
// Tables are filled during a single-threaded load phase and afterwards
// used only from the render thread. Runtime is not safe for concurrent use.
type Runtime struct {
	backend backend.Backend
	opts    options

	cmds []Command

	globals          map[string]*Variable
	customs          map[string]*resource.Custom
	sections         map[string]*Section
	shaders          map[string]*CustomShader
	presets          map[string]*Preset
	textureOverrides map[uint64]*Override
	shaderOverrides  map[uint64]*Override
	copies           []*resource.Copy
	readbacks        map[*resource.Custom]*readback

	params      map[int]*[4]float32
	maxParam    int
	paramsDirty bool
	iniParams   resource.Resolved

	stereoParams resource.Resolved
	stereoKey    [4]float32

	frame         uint64
	dirty         bool
	hunting       bool
	analysing     bool
	analysisFlags AnalysisFlags
	cursor        [2]float32
}

// New creates an empty runtime driving b.
func New(b backend.Backend, opts ...Option) *Runtime {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &Runtime{
		backend:          b,
		opts:             o,
		globals:          make(map[string]*Variable),
		customs:          make(map[string]*resource.Custom),
		sections:         make(map[string]*Section),
		shaders:          make(map[string]*CustomShader),
		presets:          make(map[string]*Preset),
		textureOverrides: make(map[uint64]*Override),
		shaderOverrides:  make(map[uint64]*Override),
		readbacks:        make(map[*resource.Custom]*readback),
		params:           make(map[int]*[4]float32),
		maxParam:         -1,
	}
	if o.cursor != nil {
		o.cursor.OnPointer(func(ev gpucontext.PointerEvent) {
			r.cursor = [2]float32{float32(ev.X), float32(ev.Y)}
		})
	}
	return r
}

// Backend returns the backend the runtime drives.
func (r *Runtime) Backend() backend.Backend { return r.backend }

// add stores c in the arena.
func (r *Runtime) add(c Command) CommandRef {
	r.cmds = append(r.cmds, c)
	return CommandRef(uint32(len(r.cmds) - 1)) // #nosec G115 -- arena size is bounded by the configuration
}

// Command returns the command ref points to, or nil.
func (r *Runtime) Command(ref CommandRef) Command {
	if !ref.IsValid() || int(ref) >= len(r.cmds) {
		return nil
	}
	return r.cmds[ref]
}

// DeclareGlobal creates a global variable. name must start with "$"; it is
// placed in namespace unless it is already of the form $\ns\name.
func (r *Runtime) DeclareGlobal(namespace, name string, value float32, persist bool) (*Variable, error) {
	if !strings.HasPrefix(name, "$") || len(name) < 2 {
		return nil, fmt.Errorf("command: invalid variable name %q", name)
	}
	key := globalKey(namespace, name)
	if _, ok := r.globals[key]; ok {
		return nil, fmt.Errorf("command: global %s already declared", name)
	}
	v := &Variable{Name: key, Value: value, Persist: persist}
	r.globals[key] = v
	return v, nil
}

// Global returns a global by its namespaced name, or nil.
func (r *Runtime) Global(name string) *Variable {
	return r.globals[globalKey("", name)]
}

// lookupGlobal resolves $name as seen from namespace: the namespaced
// global first, then the plain one.
func (r *Runtime) lookupGlobal(namespace, name string) *Variable {
	if namespace != "" && !strings.HasPrefix(name, `$\`) {
		if v, ok := r.globals[globalKey(namespace, name)]; ok {
			return v
		}
	}
	return r.globals[globalKey("", name)]
}

// Globals returns every global sorted by name.
func (r *Runtime) Globals() []*Variable {
	vars := make([]*Variable, 0, len(r.globals))
	for _, v := range r.globals {
		vars = append(vars, v)
	}
	slices.SortFunc(vars, func(a, b *Variable) int { return strings.Compare(a.Name, b.Name) })
	return vars
}

// Param returns the cell of parameter component comp (0..3 for x..w) of
// slot index, reserving it on first use.
func (r *Runtime) Param(index, comp int) *float32 {
	p, ok := r.params[index]
	if !ok {
		p = new([4]float32)
		r.params[index] = p
		r.maxParam = max(r.maxParam, index)
		r.paramsDirty = true
	}
	return &p[comp&3]
}

// DefineCustom returns the custom resource called name, creating it empty
// if needed.
func (r *Runtime) DefineCustom(name string) *resource.Custom {
	key := foldName(name)
	if c, ok := r.customs[key]; ok {
		return c
	}
	c := resource.NewCustom(name)
	r.customs[key] = c
	return c
}

// Custom returns the custom resource called name, or nil.
func (r *Runtime) Custom(name string) *resource.Custom {
	return r.customs[foldName(name)]
}

// Section returns the section called name, creating an empty one for
// forward references.
func (r *Runtime) Section(name string) *Section {
	key := foldName(name)
	if s, ok := r.sections[key]; ok {
		return s
	}
	s := newSection(name)
	r.sections[key] = s
	return s
}

// Sections returns every section sorted by name.
func (r *Runtime) Sections() []*Section {
	out := make([]*Section, 0, len(r.sections))
	for _, s := range r.sections {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Section) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// CustomShader returns the custom shader called name, creating an empty
// one for forward references.
func (r *Runtime) CustomShader(name string) *CustomShader {
	key := foldName(name)
	if cs, ok := r.shaders[key]; ok {
		return cs
	}
	cs := &CustomShader{Name: name, Section: r.Section("CustomShader" + name)}
	r.shaders[key] = cs
	return cs
}

// Preset returns the preset called name, creating it if needed.
func (r *Runtime) Preset(name string) *Preset {
	key := foldName(name)
	if p, ok := r.presets[key]; ok {
		return p
	}
	p := &Preset{Name: name}
	r.presets[key] = p
	return p
}

// DefineTextureOverride registers a texture override for resources whose
// content hash is hash.
func (r *Runtime) DefineTextureOverride(name string, hash uint64) *Override {
	o := &Override{Name: name, Hash: hash, FilterIndex: 1, Section: r.Section("TextureOverride" + name)}
	r.textureOverrides[hash] = o
	return o
}

// DefineShaderOverride registers a shader override for shaders with hash.
func (r *Runtime) DefineShaderOverride(name string, hash uint64) *Override {
	o := &Override{Name: name, Hash: hash, FilterIndex: 1, Section: r.Section("ShaderOverride" + name)}
	r.shaderOverrides[hash] = o
	return o
}

// TextureOverride returns the texture override for hash, or nil.
func (r *Runtime) TextureOverride(hash uint64) *Override { return r.textureOverrides[hash] }

// ShaderOverride returns the shader override for hash, or nil.
func (r *Runtime) ShaderOverride(hash uint64) *Override { return r.shaderOverrides[hash] }

// SetHunting sets the value of the hunting operand.
func (r *Runtime) SetHunting(on bool) { r.hunting = on }

// SetFrameAnalysis sets the value of the frame_analysis operand.
func (r *Runtime) SetFrameAnalysis(on bool) { r.analysing = on }

// AnalysisOptions returns the options set by the lists of the current call.
func (r *Runtime) AnalysisOptions() AnalysisFlags { return r.analysisFlags }

// Frame returns the number of frames begun so far.
func (r *Runtime) Frame() uint64 { return r.frame }

// Dirty reports whether a persistent variable changed since the last save.
func (r *Runtime) Dirty() bool { return r.dirty }

// BeginFrame starts a new frame: per-frame limits restart, preset
// triggers are forgotten and the post list of the Present section runs.
func (r *Runtime) BeginFrame() {
	r.frame++
	for _, p := range r.presets {
		p.triggered, p.excluded = false, false
	}
	if s, ok := r.sections[foldName("Present")]; ok {
		r.RunCommandList(s.Post, nil, true)
	}
}

// EndFrame runs the pre list of the Present section and then activates
// presets triggered during the frame and deactivates the others.
func (r *Runtime) EndFrame() {
	if s, ok := r.sections[foldName("Present")]; ok {
		r.RunCommandList(s.Pre, nil, false)
	}
	names := make([]string, 0, len(r.presets))
	for k := range r.presets {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		r.presets[k].update(r)
	}
}

// RunCommandList runs list once for call in the given phase. call may be
// nil outside a draw call. A skip requested by the list is reported in
// call.Skip.
func (r *Runtime) RunCommandList(list *CommandList, call *backend.DrawCall, post bool) {
	if list.Len() == 0 {
		return
	}
	c := r.newContext(call, post)
	c.runList(list)
}

// RunSection runs the list of s matching the phase.
func (r *Runtime) RunSection(s *Section, call *backend.DrawCall, post bool) {
	r.RunCommandList(s.List(post), call, post)
}

// RunResourceCommandList runs list with "this" bound to res. The
// reference is borrowed.
func (r *Runtime) RunResourceCommandList(list *CommandList, res backend.Resource, post bool) {
	if list.Len() == 0 {
		return
	}
	c := r.newContext(nil, post)
	c.env.This = resource.Resolved{Resource: res}
	if res != nil {
		c.env.This.Format = res.Desc().Format()
	}
	c.runList(list)
}

// RunViewCommandList runs list with "this" bound to v and its resource.
// The reference is borrowed.
func (r *Runtime) RunViewCommandList(list *CommandList, v backend.View, post bool) {
	if list.Len() == 0 {
		return
	}
	c := r.newContext(nil, post)
	if v != nil {
		c.env.This = resource.Resolved{Resource: v.Resource(), View: v, Format: v.Desc().Format}
	}
	c.runList(list)
}

// Intercept runs the shader overrides matching the bound shaders around
// call, and replays call in between unless a list asked to skip it.
func (r *Runtime) Intercept(call *backend.DrawCall) {
	stages := []backend.ShaderStage{backend.StageVertex, backend.StageHull,
		backend.StageDomain, backend.StageGeometry, backend.StagePixel}
	if call.Type.IsDispatch() {
		stages = []backend.ShaderStage{backend.StageCompute}
	}
	var matched []*Override
	for _, st := range stages {
		sh := r.backend.Shader(st)
		if sh == nil {
			continue
		}
		if o := r.shaderOverrides[sh.Hash()]; o != nil {
			matched = append(matched, o)
		}
	}
	for _, o := range matched {
		r.RunSection(o.Section, call, false)
	}
	if !call.Skip {
		call.Replay(r.backend)
	}
	for _, o := range matched {
		r.RunSection(o.Section, call, true)
	}
	r.analysisFlags = 0
}

// ParseCondition parses a standalone expression, one evaluated outside
// any command list. Operands that need a draw call are rejected.
func (r *Runtime) ParseCondition(namespace, text string) (*Expression, error) {
	return parseExpression(text, &operandResolver{rt: r, namespace: namespace})
}

// Eval evaluates a standalone expression.
func (r *Runtime) Eval(e *Expression) float32 {
	return e.Eval(r.newContext(nil, false))
}

// Close releases every resource held by the runtime.
func (r *Runtime) Close() {
	for _, op := range r.copies {
		op.Close()
	}
	for _, c := range r.customs {
		c.Reset()
	}
	for _, rb := range r.readbacks {
		rb.release()
	}
	r.iniParams.Release()
	r.stereoParams.Release()
}

// refreshParams uploads the parameter slots for the IniParams target when
// they changed.
func (r *Runtime) refreshParams() {
	if r.maxParam < 0 {
		return
	}
	cur := r.iniParams.Resource
	if !r.paramsDirty && cur != nil && backend.SameDevice(cur.Device(), r.backend.Device()) {
		return
	}
	n := r.maxParam + 1
	data := make([]byte, 16*n)
	for i, p := range r.params {
		for c, v := range p {
			binary.LittleEndian.PutUint32(data[16*i+4*c:], math.Float32bits(v))
		}
	}
	desc := backend.BufferDesc(uint64(len(data)),
		gputypes.BufferUsageStorage|gputypes.BufferUsageUniform|gputypes.BufferUsageCopySrc)
	desc.Stride = 16
	desc.Misc = backend.MiscStructured
	desc.SetLabel("IniParams")
	res, err := r.backend.CreateResource(desc, data)
	if err != nil {
		migoto.Logger().Warn("command: uploading IniParams failed", "err", err)
		return
	}
	r.iniParams.Release()
	r.iniParams = resource.Resolved{Resource: res, Stride: 16, Format: gputypes.TextureFormatRGBA32Float}
	r.paramsDirty = false
}

// refreshStereoParams uploads the stereo driver state for the
// StereoParams target when it changed.
func (r *Runtime) refreshStereoParams() {
	st, ok := r.backend.(backend.Stereo)
	if !ok {
		return
	}
	var active float32
	if st.StereoActive() {
		active = 1
	}
	key := [4]float32{st.Separation(), st.Convergence(), st.EyeSeparation(), active}
	cur := r.stereoParams.Resource
	if key == r.stereoKey && cur != nil && backend.SameDevice(cur.Device(), r.backend.Device()) {
		return
	}
	data := make([]byte, 16)
	for i, v := range key {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	desc := backend.BufferDesc(16, gputypes.BufferUsageStorage|gputypes.BufferUsageUniform|gputypes.BufferUsageCopySrc)
	desc.SetLabel("StereoParams")
	res, err := r.backend.CreateResource(desc, data)
	if err != nil {
		migoto.Logger().Warn("command: uploading StereoParams failed", "err", err)
		return
	}
	r.stereoParams.Release()
	r.stereoParams = resource.Resolved{Resource: res, Format: gputypes.TextureFormatRGBA32Float}
	r.stereoKey = key
}
