package borealis

import (
	"encoding/json"
	"fmt"
)

type versionWire struct {
	Local   string `json:"local,omitempty"`
	Release string `json:"release,omitempty"`
}

func unmarshalVersion(b []byte, v *WasmerVersion) error {
	var asString string
	if err := json.Unmarshal(b, &asString); err == nil {
		if asString != "latest" {
			return fmt.Errorf("unknown wasmer version %q", asString)
		}
		*v = Latest()
		return nil
	}
	var w versionWire
	if err := json.Unmarshal(b, &w); err != nil {
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

func marshalVersion(v WasmerVersion) ([]byte, error) {
	switch v.Kind {
	case WasmerLocal:
		return json.Marshal(versionWire{Local: v.Path})
	case WasmerRelease:
		return json.Marshal(versionWire{Release: v.Semver})
	default:
		return json.Marshal("latest")
	}
}
