// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"slices"
	"testing"
)

// stubBackend satisfies Backend through an embedded nil interface; only
// Name is called by the registry tests.
type stubBackend struct {
	Backend
	name string
}

func (s stubBackend) Name() string { return s.name }

func TestRegistry(t *testing.T) {
	const name = "registry-test"
	Register(name, func() Backend { return stubBackend{name: name} })
	t.Cleanup(func() { Unregister(name) })

	if !IsRegistered(name) {
		t.Fatalf("IsRegistered(%q) = false", name)
	}
	if !slices.Contains(Available(), name) {
		t.Errorf("Available() = %v, missing %q", Available(), name)
	}
	b, err := Open(name)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", name, err)
	}
	if b.Name() != name {
		t.Errorf("Open(%q).Name() = %q", name, b.Name())
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("does-not-exist")
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(unknown) error = %v, want ErrBackendNotAvailable", err)
	}
	if Get("does-not-exist") != nil {
		t.Error("Get(unknown) != nil")
	}
}
