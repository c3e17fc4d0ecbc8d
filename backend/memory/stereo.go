// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package memory

import (
	"github.com/gogpu/migoto/backend"
)

// Stereo is the simulated stereo driver state.
type Stereo struct {
	Active        bool
	Separation    float32
	Convergence   float32
	EyeSeparation float32
	// Blit enables ReverseStereoBlit. Without it the copy engine has to
	// fall back to duplicating the source.
	Blit bool

	eye backend.Eye
}

// StereoActive implements backend.Stereo.
func (b *Backend) StereoActive() bool { return b.stereo != nil && b.stereo.Active }

// Separation implements backend.Stereo.
func (b *Backend) Separation() float32 {
	if b.stereo == nil {
		return 0
	}
	return b.stereo.Separation
}

// SetSeparation implements backend.Stereo.
func (b *Backend) SetSeparation(v float32) {
	if b.stereo != nil {
		b.stereo.Separation = v
	}
}

// Convergence implements backend.Stereo.
func (b *Backend) Convergence() float32 {
	if b.stereo == nil {
		return 0
	}
	return b.stereo.Convergence
}

// SetConvergence implements backend.Stereo.
func (b *Backend) SetConvergence(v float32) {
	if b.stereo != nil {
		b.stereo.Convergence = v
	}
}

// EyeSeparation implements backend.Stereo.
func (b *Backend) EyeSeparation() float32 {
	if b.stereo == nil {
		return 0
	}
	return b.stereo.EyeSeparation
}

// SetActiveEye implements backend.Stereo.
func (b *Backend) SetActiveEye(e backend.Eye) error {
	if b.stereo == nil {
		return backend.ErrUnsupported
	}
	b.stereo.eye = e
	return nil
}

// ActiveEye returns the eye selected by SetActiveEye.
func (b *Backend) ActiveEye() backend.Eye {
	if b.stereo == nil {
		return backend.EyeMono
	}
	return b.stereo.eye
}

// ReverseStereoBlit implements backend.Stereo. The simulated right view is
// the source itself.
func (b *Backend) ReverseStereoBlit(dst, src backend.Resource) error {
	if b.stereo == nil || !b.stereo.Blit {
		return backend.ErrUnsupported
	}
	return b.CopyRegion(dst, src.Desc().Width(), 0, 0, src, nil)
}
