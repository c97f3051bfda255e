package borealis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Filters selects a population of registry packages for an experiment (§3).
type Filters struct {
	Namespaces          []string `json:"namespaces,omitempty" yaml:"namespaces,omitempty"`
	Users               []string `json:"users,omitempty" yaml:"users,omitempty"`
	Blacklist           []string `json:"blacklist,omitempty" yaml:"blacklist,omitempty"`
	IncludeEveryVersion bool     `json:"include-every-version,omitempty" yaml:"include-every-version,omitempty"`
}

// EnumerateAll reports whether both Namespaces and Users are empty, meaning
// "enumerate all packages" (§4.1 step 1).
func (f Filters) EnumerateAll() bool {
	return len(f.Namespaces) == 0 && len(f.Users) == 0
}

// Blacklisted reports whether "{namespace}/{name}" is in the blacklist.
func (f Filters) Blacklisted(namespace, name string) bool {
	key := namespace + "/" + name
	return slices.Contains(f.Blacklist, key)
}

// Experiment is the full declarative description of a batch compatibility
// run (§3). It is read-only after LoadExperiment returns; share it by value
// or by pointer, never mutate it across goroutine boundaries (§9).
type Experiment struct {
	Schema  string            `json:"$schema,omitempty" yaml:"$schema,omitempty"`
	Package string            `json:"package" yaml:"package"`
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []TemplatedString `json:"args,omitempty" yaml:"args,omitempty"`
	Env     OrderedStringMap  `json:"env,omitempty" yaml:"env,omitempty"`
	Wasmer  WasmerConfig      `json:"wasmer,omitempty" yaml:"wasmer,omitempty"`
	Filters Filters           `json:"filters" yaml:"filters"`
}

// LoadExperiment reads an Experiment document from path. JSON (.json) and
// YAML (.yaml/.yml) are supported, selected by extension; both reject
// unknown top-level keys (§6).
func LoadExperiment(path string) (*Experiment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment %s: %w", path, err)
	}
	var exp Experiment
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&exp); err != nil {
			return nil, fmt.Errorf("parsing experiment %s: %w", path, err)
		}
	default: // default to JSON, matching the minimal example in §6
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&exp); err != nil {
			return nil, fmt.Errorf("parsing experiment %s: %w", path, err)
		}
	}
	if exp.Package == "" {
		return nil, fmt.Errorf("experiment %s: missing required field %q", path, "package")
	}
	return &exp, nil
}
