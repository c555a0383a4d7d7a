package params

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile loads a parameter set from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read params file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Set{}, fmt.Errorf("unsupported params file extension: %s", ext)
	}
}

// FromYAML parses a YAML mapping into a Set, keeping document order.
func FromYAML(data []byte) (Set, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Set{}, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return Set{}, nil
	}
	var s Set
	if err := s.UnmarshalYAML(doc.Content[0]); err != nil {
		return Set{}, fmt.Errorf("parse yaml: %w", err)
	}
	return s, nil
}

// FromJSON parses a JSON object into a Set. Keys are sorted.
func FromJSON(data []byte) (Set, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Set{}, fmt.Errorf("parse json: %w", err)
	}
	return FromMap(m), nil
}

// MarshalYAML encodes the set as a mapping in entry order. Values are plain
// scalars; the encoder quotes them only when needed.
func (s Set) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range s.entries {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Value},
		)
	}
	return node, nil
}

// UnmarshalYAML decodes a mapping of scalars, keeping the raw scalar text.
func (s *Set) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*s = Set{}
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: parameters must be a mapping", value.Line)
	}
	out := Set{entries: make([]Param, 0, len(value.Content)/2)}
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: parameter %q must be a scalar", v.Line, k.Value)
		}
		out = out.Put(k.Value, v.Value)
	}
	*s = out
	return nil
}
