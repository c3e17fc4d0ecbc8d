// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"fmt"
	"strings"
)

// AnalysisFlags are the frame analysis options a list can set for the
// call it runs around. The host's frame analysis layer reads them with
// Runtime.AnalysisOptions.
type AnalysisFlags uint16

const (
	AnalysisLog AnalysisFlags = 1 << iota
	AnalysisHold
	AnalysisDumpRenderTargets
	AnalysisDumpDepth
	AnalysisDumpTextures
	AnalysisDumpConstantBuffers
	AnalysisDumpVertexBuffers
	AnalysisDumpIndexBuffer
)

var analysisNames = []struct {
	name string
	flag AnalysisFlags
}{
	{"log", AnalysisLog},
	{"hold", AnalysisHold},
	{"dump_rt", AnalysisDumpRenderTargets},
	{"dump_depth", AnalysisDumpDepth},
	{"dump_tex", AnalysisDumpTextures},
	{"dump_cb", AnalysisDumpConstantBuffers},
	{"dump_vb", AnalysisDumpVertexBuffers},
	{"dump_ib", AnalysisDumpIndexBuffer},
}

// ParseAnalysisFlags parses a space separated option list such as
// "dump_rt dump_depth".
func ParseAnalysisFlags(text string) (AnalysisFlags, error) {
	var f AnalysisFlags
outer:
	for _, w := range strings.Fields(text) {
		for _, n := range analysisNames {
			if strings.EqualFold(w, n.name) {
				f |= n.flag
				continue outer
			}
		}
		return 0, fmt.Errorf("command: unknown analysis option %q", w)
	}
	return f, nil
}

func (f AnalysisFlags) String() string {
	var words []string
	for _, n := range analysisNames {
		if f&n.flag != 0 {
			words = append(words, n.name)
		}
	}
	return strings.Join(words, " ")
}
