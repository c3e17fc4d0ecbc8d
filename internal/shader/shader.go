// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader compiles WGSL sources for custom shaders.
package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/migoto/internal/cache"
)

var errTruncated = errors.New("shader: SPIR-V output is not a whole number of words")

type compiled struct {
	words []uint32
	err   error
}

// modules caches compilations by source. Runtimes loaded in parallel share
// it, and a source that failed once is not compiled again.
var modules = cache.NewSharded[string, compiled](16)

// CompileWGSL compiles WGSL source to SPIR-V words. The result is shared
// between callers and must not be modified.
func CompileWGSL(source string) ([]uint32, error) {
	c := modules.GetOrCreate(source, func() compiled {
		words, err := compile(source)
		return compiled{words, err}
	})
	return c.words, c.err
}

// CacheStats returns the statistics of the compilation cache.
func CacheStats() cache.Stats { return modules.Stats() }

func compile(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("shader: compile: %w", err)
	}
	return Words(spirvBytes)
}

// Words converts a little-endian SPIR-V byte stream to words.
func Words(spirvBytes []byte) ([]uint32, error) {
	if len(spirvBytes)%4 != 0 {
		return nil, errTruncated
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
