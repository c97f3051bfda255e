package borealis

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// OrderedStringMap is a string->string map that preserves insertion order
// and rejects duplicate keys, matching Experiment.Env / WasmerConfig.Env's
// "ordered map<string, TemplatedString>, keys unique" requirement (§3). No
// ordered-map library appears anywhere in the retrieved example corpus, so
// this is implemented directly against encoding/json and yaml.v3's token
// streams rather than reaching for an out-of-pack dependency.
type OrderedStringMap struct {
	keys   []string
	values map[string]TemplatedString
}

// Set appends key=value, or errors if key is already present.
func (m *OrderedStringMap) Set(key string, value TemplatedString) error {
	if m.values == nil {
		m.values = make(map[string]TemplatedString)
	}
	if _, ok := m.values[key]; ok {
		return fmt.Errorf("duplicate key %q", key)
	}
	m.keys = append(m.keys, key)
	m.values[key] = value
	return nil
}

// Keys returns the keys in insertion order.
func (m OrderedStringMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Get returns the value for key and whether it was present.
func (m OrderedStringMap) Get(key string) (TemplatedString, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of entries.
func (m OrderedStringMap) Len() int { return len(m.keys) }

// Range calls fn for each entry in insertion order.
func (m OrderedStringMap) Range(fn func(key string, value TemplatedString)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

func (m OrderedStringMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(string(m.values[k]))
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *OrderedStringMap) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	*m = OrderedStringMap{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if err := m.Set(key, TemplatedString(value)); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return err
	}
	return nil
}

func (m OrderedStringMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		valNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(m.values[k])}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

func (m *OrderedStringMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping, got kind %v", node.Kind)
	}
	*m = OrderedStringMap{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key, value string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		if err := node.Content[i+1].Decode(&value); err != nil {
			return err
		}
		if err := m.Set(key, TemplatedString(value)); err != nil {
			return err
		}
	}
	return nil
}
