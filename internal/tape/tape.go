// Package tape replays recorded key sequences against a fresh calculator and
// checks the display after each batch. Tapes are YAML files:
//
//	name: chain
//	steps:
//	  - keys: "3 + 4 ×"
//	    expect:
//	      display: "7"
//	      active: "×"
package tape

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"go-chi-calculator/internal/engine"
)

// Tape is one recorded scenario.
type Tape struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

// Step is a batch of keys followed by optional expectations. Only the fields
// set in Expect are checked.
type Step struct {
	Keys   string  `yaml:"keys"`
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the state after a step.
type Expect struct {
	Display   *string `yaml:"display,omitempty"`
	Operation *string `yaml:"operation,omitempty"`
	Active    *string `yaml:"active,omitempty"`
	Waiting   *bool   `yaml:"waiting,omitempty"`
	Fallback  *string `yaml:"fallback,omitempty"`
}

// Load reads and validates the tape at path.
func Load(path string) (*Tape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tape: %w", err)
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a tape, rejecting unknown fields.
func Parse(data []byte) (*Tape, error) {
	var t Tape
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("parse tape: %w", err)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that the tape is named, has steps and that every key
// sequence parses.
func (t *Tape) Validate() error {
	if t.Name == "" {
		return errors.New("tape name is required")
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("tape %s: no steps", t.Name)
	}
	for i, step := range t.Steps {
		if _, err := engine.ParseKeys(step.Keys); err != nil {
			return fmt.Errorf("tape %s step %d: %w", t.Name, i+1, err)
		}
	}
	return nil
}

// LoadDir loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadDir(dir string) ([]*Tape, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read tape dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	tapes := make([]*Tape, 0, len(names))
	for _, name := range names {
		t, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		tapes = append(tapes, t)
	}
	return tapes, nil
}

// LoadPaths loads files and directories in order.
func LoadPaths(paths []string) ([]*Tape, error) {
	var tapes []*Tape
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("read tape: %w", err)
		}

		if info.IsDir() {
			dirTapes, err := LoadDir(p)
			if err != nil {
				return nil, err
			}
			tapes = append(tapes, dirTapes...)
			continue
		}

		t, err := Load(p)
		if err != nil {
			return nil, err
		}
		tapes = append(tapes, t)
	}
	return tapes, nil
}
