// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/itchyny/timefmt-go"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/migoto"
)

type persistFile struct {
	Variables map[string]float32 `yaml:"variables"`
}

// SavePersistent writes the persistent globals to w as YAML and clears
// the dirty flag.
func (r *Runtime) SavePersistent(w io.Writer) error {
	f := persistFile{Variables: make(map[string]float32)}
	for _, v := range r.Globals() {
		if v.Persist {
			f.Variables[v.Name] = v.Value
		}
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(timefmt.Format(time.Now(), "# persistent variables saved %Y-%m-%d %H:%M:%S\n")); err != nil {
		return err
	}
	enc := yaml.NewEncoder(bw)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("command: encoding persistent variables: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	r.dirty = false
	return nil
}

// LoadPersistent restores persistent globals saved by SavePersistent.
// Names that are not declared persistent are skipped.
func (r *Runtime) LoadPersistent(rd io.Reader) error {
	var f persistFile
	if err := yaml.NewDecoder(rd).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("command: decoding persistent variables: %w", err)
	}
	for name, val := range f.Variables {
		v := r.globals[globalKey("", name)]
		if v == nil || !v.Persist {
			migoto.Logger().Warn("command: ignoring saved value of unknown persistent variable", "name", name)
			continue
		}
		v.Value = val
	}
	return nil
}
