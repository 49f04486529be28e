// Package schema declares tables in YAML, the shape used by test
// fixtures and the command line tool:
//
//	tables:
//	  - name: users
//	    hashKey: {name: id, kind: N}
//	    rangeKey: {name: rev, kind: S}
//	    attributes: [desc, active]
//
// Apply ensures every declared table on a storage engine.
package schema

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	dynamo "github.com/sffej/jcabi-dynamo"
)

// Schema is the root document: every table the file declares.
type Schema struct {
	Tables []Table `yaml:"tables"`
}

// Table declares one table: its key schema and optional pre-declared
// attribute names.
type Table struct {
	Name       string   `yaml:"name"`
	HashKey    KeyDef   `yaml:"hashKey"`
	RangeKey   *KeyDef  `yaml:"rangeKey,omitempty"`
	Attributes []string `yaml:"attributes,omitempty"`
}

// KeyDef declares a key attribute.
type KeyDef struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // "S", "N" or "B"
}

// Load reads and parses a schema file.
func Load(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse parses a schema document and validates every declaration.
func Parse(raw []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	for _, t := range s.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("schema declares a table without a name")
		}
		if _, err := t.KeySchema(); err != nil {
			return nil, fmt.Errorf("table %q: %w", t.Name, err)
		}
	}
	return &s, nil
}

// KeySchema converts the declaration into the emulation's key schema.
func (t Table) KeySchema() (dynamo.KeySchema, error) {
	keys := dynamo.KeySchema{
		Hash: dynamo.KeyDef{Name: t.HashKey.Name, Kind: dynamo.Kind(t.HashKey.Kind)},
	}
	if t.RangeKey != nil {
		keys.Range = &dynamo.KeyDef{Name: t.RangeKey.Name, Kind: dynamo.Kind(t.RangeKey.Kind)}
	}
	if err := keys.Validate(); err != nil {
		return dynamo.KeySchema{}, err
	}
	return keys, nil
}

// Apply ensures every declared table on the engine.
func (s *Schema) Apply(ctx context.Context, data dynamo.Data) error {
	for _, t := range s.Tables {
		keys, err := t.KeySchema()
		if err != nil {
			return fmt.Errorf("table %q: %w", t.Name, err)
		}
		if err := data.EnsureTable(ctx, t.Name, keys, t.Attributes...); err != nil {
			return err
		}
	}
	return nil
}
