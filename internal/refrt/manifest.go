package refrt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest describes one assembly served by the reference runtime.
//
//	name = "Sample"
//
//	[[types]]
//	name = "Sample.Foo"
//	base = "object"
//
//	  [[types.fields]]
//	  name = "Bar"
//	  type = "int"
type Manifest struct {
	Name  string         `toml:"name"`
	Types []TypeManifest `toml:"types"`
}

type TypeManifest struct {
	Name       string              `toml:"name"`
	Base       string              `toml:"base"`
	Size       int32               `toml:"size"`
	Kind       string              `toml:"kind"`
	Attributes []AttributeManifest `toml:"attributes"`
	Fields     []FieldManifest     `toml:"fields"`
	Properties []PropertyManifest  `toml:"properties"`
	Methods    []MethodManifest    `toml:"methods"`
}

type AttributeManifest struct {
	Type   string         `toml:"type"`
	Values map[string]any `toml:"values"`
}

type FieldManifest struct {
	Name       string              `toml:"name"`
	Type       string              `toml:"type"`
	Access     string              `toml:"access"`
	Attributes []AttributeManifest `toml:"attributes"`
}

type PropertyManifest struct {
	Name       string              `toml:"name"`
	Type       string              `toml:"type"`
	Attributes []AttributeManifest `toml:"attributes"`
}

type MethodManifest struct {
	Name       string              `toml:"name"`
	Returns    string              `toml:"returns"`
	Params     []string            `toml:"params"`
	Access     string              `toml:"access"`
	Static     bool                `toml:"static"`
	Attributes []AttributeManifest `toml:"attributes"`
}

// ErrInvalidManifest wraps every manifest validation failure.
var ErrInvalidManifest = errors.New("invalid assembly manifest")

// LoadManifest reads and validates a TOML manifest file.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("name") {
		return nil, fmt.Errorf("%s: missing assembly name: %w", path, ErrInvalidManifest)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// ParseManifest decodes a manifest held in memory.
func ParseManifest(data string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("empty assembly name: %w", ErrInvalidManifest)
	}
	seen := make(map[string]bool, len(m.Types))
	for _, t := range m.Types {
		if t.Name == "" {
			return fmt.Errorf("type without a name: %w", ErrInvalidManifest)
		}
		if seen[t.Name] {
			return fmt.Errorf("type %s declared twice: %w", t.Name, ErrInvalidManifest)
		}
		seen[t.Name] = true
	}
	return nil
}
