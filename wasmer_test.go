package borealis

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestWasmerVersionJSONRoundtrip(t *testing.T) {
	for _, tt := range []struct {
		name string
		v    WasmerVersion
	}{
		{"latest", Latest()},
		{"local", Local("/usr/bin/wasmer")},
	} {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var got WasmerVersion
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatalf("Unmarshal(%s): %v", b, err)
			}
			if got != tt.v {
				t.Fatalf("roundtrip mismatch: got %#v, want %#v", got, tt.v)
			}
		})
	}

	t.Run("release", func(t *testing.T) {
		v, err := Release("1.2.3")
		if err != nil {
			t.Fatalf("Release: %v", err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var got WasmerVersion
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", b, err)
		}
		if got != v {
			t.Fatalf("roundtrip mismatch: got %#v, want %#v", got, v)
		}
	})
}

func TestWasmerVersionJSONLatestIsBareString(t *testing.T) {
	b, err := json.Marshal(Latest())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"latest"` {
		t.Fatalf("Marshal(Latest()) = %s, want \"latest\"", b)
	}
}

func TestWasmerVersionYAML(t *testing.T) {
	var v WasmerVersion
	if err := yaml.Unmarshal([]byte("latest\n"), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v != Latest() {
		t.Fatalf("got %#v, want Latest()", v)
	}

	var local WasmerVersion
	if err := yaml.Unmarshal([]byte("local: /usr/bin/wasmer\n"), &local); err != nil {
		t.Fatalf("Unmarshal local: %v", err)
	}
	if local != Local("/usr/bin/wasmer") {
		t.Fatalf("got %#v, want Local", local)
	}
}

func TestReleaseRejectsInvalidSemver(t *testing.T) {
	if _, err := Release("not-a-version"); err == nil {
		t.Fatal("expected error for invalid semver, got nil")
	}
}
