// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"fmt"

	"github.com/gogpu/migoto"
	"github.com/gogpu/migoto/backend"
	"github.com/gogpu/migoto/internal/shader"
)

// CustomShader is a section that binds its own shaders around its command
// lists. Stages without a source keep whatever the application bound.
type CustomShader struct {
	Name    string
	Section *Section
	// MaxExecutionsPerFrame limits runs per frame; 0 is unlimited.
	MaxExecutionsPerFrame int

	spirv   [backend.NumStages][]uint32
	shaders [backend.NumStages]backend.Shader
	device  backend.Device

	execFrame uint64
	execs     int
}

// SetSource compiles WGSL source for stage and creates the shader on b.
func (cs *CustomShader) SetSource(b backend.Backend, stage backend.ShaderStage, wgsl string) error {
	words, err := shader.CompileWGSL(wgsl)
	if err != nil {
		return fmt.Errorf("command: custom shader %s %s: %w", cs.Name, stage, err)
	}
	sh, err := b.CreateShader(stage, words)
	if err != nil {
		return fmt.Errorf("command: custom shader %s %s: %w", cs.Name, stage, err)
	}
	cs.spirv[stage] = words
	cs.shaders[stage] = sh
	cs.device = b.Device()
	return nil
}

// Shader returns the shader created for stage, or nil.
func (cs *CustomShader) Shader(stage backend.ShaderStage) backend.Shader {
	return cs.shaders[stage]
}

// ensure recreates the shaders after a device change.
func (cs *CustomShader) ensure(b backend.Backend) {
	if cs.device == nil || backend.SameDevice(cs.device, b.Device()) {
		return
	}
	for st, words := range cs.spirv {
		if words == nil {
			continue
		}
		stage := backend.ShaderStage(st) // #nosec G115 -- bounded by NumStages
		sh, err := b.CreateShader(stage, words)
		if err != nil {
			migoto.Logger().Warn("command: recreating custom shader failed", "name", cs.Name, "stage", stage, "err", err)
		}
		cs.shaders[st] = sh
	}
	cs.device = b.Device()
}

func (cs *CustomShader) allow(frame uint64) bool {
	if cs.MaxExecutionsPerFrame <= 0 {
		return true
	}
	if cs.execFrame != frame {
		cs.execFrame = frame
		cs.execs = 0
	}
	if cs.execs >= cs.MaxExecutionsPerFrame {
		return false
	}
	cs.execs++
	return true
}

func (cs *CustomShader) resetExecutions() { cs.execs = 0 }

// run binds the shaders, runs both lists of the section and restores the
// shaders and render targets the application had bound.
func (cs *CustomShader) run(c *Context) {
	if !cs.allow(c.rt.frame) {
		migoto.Logger().Debug("command: custom shader execution limit reached", "name", cs.Name)
		return
	}
	b := c.rt.backend
	cs.ensure(b)

	var saved [backend.NumStages]backend.Shader
	for _, st := range backend.Stages() {
		if cs.spirv[st] == nil {
			continue
		}
		saved[st] = b.Shader(st)
		b.SetShader(st, cs.shaders[st])
	}
	rtvs, dsv := b.RenderTargets()

	post := c.post
	c.post = false
	c.runList(cs.Section.Pre)
	c.post = true
	c.runList(cs.Section.Post)
	c.post = post

	b.SetRenderTargets(rtvs, dsv)
	backend.Release(rtvs...)
	backend.Release(dsv)
	for _, st := range backend.Stages() {
		if cs.spirv[st] != nil {
			b.SetShader(st, saved[st])
		}
	}
}
