package borealis

import (
	"fmt"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// WasmerVersion selects which `wasmer` binary a test case runs against.
// Version resolution beyond Local is out of scope (§4.3): Latest and
// Release both resolve to the `wasmer` found on PATH.
type WasmerVersion struct {
	// Kind is one of "local", "release" or "latest" (the default).
	Kind WasmerVersionKind
	// Path is the absolute path to a local binary, set iff Kind == Local.
	Path string
	// Semver is the requested release version, set iff Kind == Release.
	Semver string
}

type WasmerVersionKind string

const (
	WasmerLocal   WasmerVersionKind = "local"
	WasmerRelease WasmerVersionKind = "release"
	WasmerLatest  WasmerVersionKind = "latest"
)

// Latest is the zero-value-equivalent WasmerVersion: use whatever `wasmer`
// is found on PATH.
func Latest() WasmerVersion { return WasmerVersion{Kind: WasmerLatest} }

// Local pins to an absolute path to a `wasmer` binary.
func Local(path string) WasmerVersion { return WasmerVersion{Kind: WasmerLocal, Path: path} }

// Release pins to a semver-tagged release. v is validated with
// golang.org/x/mod/semver (accepting both "v1.2.3" and "1.2.3" forms).
func Release(v string) (WasmerVersion, error) {
	canon := v
	if len(canon) == 0 || canon[0] != 'v' {
		canon = "v" + canon
	}
	if !semver.IsValid(canon) {
		return WasmerVersion{}, fmt.Errorf("invalid wasmer release version %q", v)
	}
	return WasmerVersion{Kind: WasmerRelease, Semver: v}, nil
}

// UnmarshalJSON accepts either the bare string "latest", an object
// {"local": "<path>"} or {"release": "<semver>"}, matching the Rust source's
// enum-as-externally-tagged-JSON convention.
func (v *WasmerVersion) UnmarshalJSON(b []byte) error {
	return unmarshalVersion(b, v)
}

func (v WasmerVersion) MarshalJSON() ([]byte, error) {
	return marshalVersion(v)
}

func (v *WasmerVersion) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if s != "latest" {
			return fmt.Errorf("unknown wasmer version %q", s)
		}
		*v = Latest()
		return nil
	}
	var w versionWire
	if err := node.Decode(&w); err != nil {
		return fmt.Errorf("wasmer version: %w", err)
	}
	switch {
	case w.Local != "":
		*v = Local(w.Local)
	case w.Release != "":
		rv, err := Release(w.Release)
		if err != nil {
			return err
		}
		*v = rv
	default:
		*v = Latest()
	}
	return nil
}

// WasmerConfig is the `wasmer.*` section of an Experiment document (§3).
type WasmerConfig struct {
	Version WasmerVersion     `json:"version"`
	Args    []TemplatedString `json:"args,omitempty"`
	Env     OrderedStringMap  `json:"env,omitempty"`
}
