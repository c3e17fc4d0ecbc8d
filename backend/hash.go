// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"hash/crc32"

	"github.com/mitchellh/hashstructure/v2"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// HashResource computes the content hash texture overrides match against:
// a structural hash of the shape mixed with a CRC-32C of the initial data.
// Labels do not contribute.
func HashResource(desc ResourceDesc, data []byte) uint64 {
	desc.Buffer.Label = ""
	desc.Texture.Label = ""
	h, err := hashstructure.Hash(desc, hashstructure.FormatV2, nil)
	if err != nil {
		h = 0
	}
	if len(data) > 0 {
		h ^= uint64(crc32.Checksum(data, castagnoli)) << 32
	}
	return h
}

// HashShader hashes SPIR-V words for shader override matching.
func HashShader(stage ShaderStage, spirv []uint32) uint64 {
	h, err := hashstructure.Hash(struct {
		Stage ShaderStage
		Code  []uint32
	}{stage, spirv}, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	return h
}
