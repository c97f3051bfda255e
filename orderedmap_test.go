package borealis

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestOrderedStringMapPreservesInsertionOrder(t *testing.T) {
	var m OrderedStringMap
	for _, kv := range [][2]string{{"z", "1"}, {"a", "2"}, {"m", "3"}} {
		if err := m.Set(kv[0], TemplatedString(kv[1])); err != nil {
			t.Fatalf("Set(%s): %v", kv[0], err)
		}
	}
	want := []string{"z", "a", "m"}
	if diff := cmp.Diff(want, m.Keys()); diff != "" {
		t.Fatalf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderedStringMapRejectsDuplicateKeys(t *testing.T) {
	var m OrderedStringMap
	if err := m.Set("a", "1"); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	if err := m.Set("a", "2"); err == nil {
		t.Fatal("expected error setting duplicate key, got nil")
	}
}

func TestOrderedStringMapJSONRoundtrip(t *testing.T) {
	var m OrderedStringMap
	m.Set("FIRST", "one")
	m.Set("SECOND", "two")

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// Order must survive: FIRST before SECOND in the raw bytes.
	if string(b) != `{"FIRST":"one","SECOND":"two"}` {
		t.Fatalf("unexpected JSON: %s", b)
	}

	var roundtripped OrderedStringMap
	if err := json.Unmarshal(b, &roundtripped); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(m.Keys(), roundtripped.Keys()); diff != "" {
		t.Fatalf("Keys() mismatch after roundtrip (-want +got):\n%s", diff)
	}
	v, ok := roundtripped.Get("SECOND")
	if !ok || v != "two" {
		t.Fatalf("Get(SECOND) = %q, %v", v, ok)
	}
}

func TestOrderedStringMapJSONRejectsDuplicateKeys(t *testing.T) {
	var m OrderedStringMap
	err := json.Unmarshal([]byte(`{"a":"1","a":"2"}`), &m)
	if err == nil {
		t.Fatal("expected error decoding object with duplicate keys, got nil")
	}
}

func TestOrderedStringMapYAMLRoundtrip(t *testing.T) {
	var m OrderedStringMap
	m.Set("GREETING", "hello ${NAME}")
	m.Set("OTHER", "value")

	b, err := yaml.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var roundtripped OrderedStringMap
	if err := yaml.Unmarshal(b, &roundtripped); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(m.Keys(), roundtripped.Keys()); diff != "" {
		t.Fatalf("Keys() mismatch after roundtrip (-want +got):\n%s", diff)
	}
}
