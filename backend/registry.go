// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"
	"sort"

	"github.com/gogpu/gpucontext"
)

// Registered backend names.
const (
	NameHAL    = "hal-noop"
	NameMemory = "memory"
)

// Factory functions registered here create a fresh backend per call.
// Priority order for Default: HAL devices first, the in-memory device last.
var registry = gpucontext.NewRegistry[Backend](
	gpucontext.WithPriority(NameHAL, NameMemory),
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory func() Backend) {
	registry.Register(name, factory)
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registry.Unregister(name)
}

// Available returns the sorted names of registered backends.
func Available() []string {
	names := registry.Available()
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return registry.Has(name)
}

// Get returns a new backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) Backend {
	return registry.Get(name)
}

// Default returns a new instance of the highest priority registered backend.
// Returns nil if no backends are registered.
func Default() Backend {
	return registry.Best()
}

// Open returns a new backend by name, or the default backend when name is
// empty.
func Open(name string) (Backend, error) {
	var b Backend
	if name == "" {
		b = Default()
	} else {
		b = Get(name)
	}
	if b == nil {
		if name == "" {
			return nil, ErrBackendNotAvailable
		}
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrBackendNotAvailable, name, Available())
	}
	return b, nil
}
