// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads a YAML document describing variables, custom
// resources, custom shaders, command lists, overrides and presets into a
// command.Runtime.
//
// Command lists are written one directive per line, exactly as accepted by
// command.Builder.Add:
//
//	namespace: mymod
//	globals:
//	  - {name: $mode, value: 1, persist: true}
//	resources:
//	  - {name: Params, type: Buffer, byte_width: 16}
//	lists:
//	  - name: CommandListFrame
//	    commands:
//	      - if $mode == 1
//	      -   ResourceParams = copy ps-t0
//	      - endif
//	texture_overrides:
//	  - {name: Sky, hash: 0x8e3f1a20, commands: [checktextureoverride = ps-t1]}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownType is returned for a resource type that names no kind.
	ErrUnknownType = errors.New("config: unknown resource type")
	// ErrUnknownFormat is returned for an unrecognised texture format.
	ErrUnknownFormat = errors.New("config: unknown format")
	// ErrBadHash is returned for an override hash that is not hexadecimal.
	ErrBadHash = errors.New("config: malformed hash")
	// ErrBadStage is returned for a shader stage other than vs, hs, ds,
	// gs, ps or cs.
	ErrBadStage = errors.New("config: unknown shader stage")
)

// File is a decoded configuration document.
type File struct {
	Namespace        string     `yaml:"namespace"`
	Globals          []Global   `yaml:"globals"`
	Resources        []Resource `yaml:"resources"`
	Shaders          []Shader   `yaml:"shaders"`
	Lists            []List     `yaml:"lists"`
	TextureOverrides []Override `yaml:"texture_overrides"`
	ShaderOverrides  []Override `yaml:"shader_overrides"`
	Presets          []Preset   `yaml:"presets"`
	// Present is the command list of the Present section.
	Present []string `yaml:"present"`

	// Dir resolves relative resource filenames. Load sets it to the
	// directory of the document.
	Dir string `yaml:"-"`
}

// Global declares a global variable.
type Global struct {
	Name    string  `yaml:"name"`
	Value   float32 `yaml:"value"`
	Persist bool    `yaml:"persist"`
}

// Resource declares a custom resource. Fields left zero keep whatever a
// copy into the resource would otherwise produce.
type Resource struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Format   string `yaml:"format"`
	Filename string `yaml:"filename"`

	Width     uint32 `yaml:"width"`
	Height    uint32 `yaml:"height"`
	Depth     uint32 `yaml:"depth"`
	MipLevels uint32 `yaml:"mips"`
	Samples   uint32 `yaml:"msaa"`
	ByteWidth uint64 `yaml:"byte_width"`
	Stride    uint32 `yaml:"stride"`

	MaxCopiesPerFrame int `yaml:"max_copies_per_frame"`

	// Data is the initial content, stored as little endian 32-bit floats.
	Data []float32 `yaml:"data"`
}

// Shader declares a custom shader: WGSL source per two letter stage and
// the command list run around it.
type Shader struct {
	Name                  string            `yaml:"name"`
	Stages                map[string]string `yaml:"stages"`
	MaxExecutionsPerFrame int               `yaml:"max_executions_per_frame"`
	Commands              []string          `yaml:"commands"`
}

// List is a named section.
type List struct {
	Name     string   `yaml:"name"`
	Commands []string `yaml:"commands"`
}

// Override is a texture or shader override keyed by a hexadecimal hash.
type Override struct {
	Name        string   `yaml:"name"`
	Hash        string   `yaml:"hash"`
	FilterIndex *float32 `yaml:"filter_index"`
	Commands    []string `yaml:"commands"`
}

// Preset is a set of "target = expression" assignments.
type Preset struct {
	Name string   `yaml:"name"`
	Set  []string `yaml:"set"`
}

// Decode reads a document from r. Unknown keys are errors.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	return &f, nil
}

// Parse decodes a document held in memory.
func Parse(data []byte) (*File, error) {
	return Decode(bytes.NewReader(data))
}

// Load decodes the document stored at path.
func Load(path string) (*File, error) {
	fh, err := os.Open(path) // #nosec G304 -- path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer fh.Close()
	f, err := Decode(fh)
	if err != nil {
		return nil, err
	}
	f.Dir = filepath.Dir(path)
	return f, nil
}
