package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// KeyDef is one component of a table's primary key.
type KeyDef struct {
	Name string
	Kind Kind
}

// KeySchema is the declared primary key of a table: a hash key and an
// optional range key. Every row must carry values for both declared
// components; the (hash, range) pair is unique within a table.
type KeySchema struct {
	Hash  KeyDef
	Range *KeyDef
}

// HashAndRange builds a schema with both key components.
func HashAndRange(hash, rng KeyDef) KeySchema {
	return KeySchema{Hash: hash, Range: &rng}
}

// Equal reports whether two schemas declare the same key components.
func (k KeySchema) Equal(other KeySchema) bool {
	if k.Hash != other.Hash {
		return false
	}
	if (k.Range == nil) != (other.Range == nil) {
		return false
	}
	return k.Range == nil || *k.Range == *other.Range
}

// Names returns the key attribute names, hash first.
func (k KeySchema) Names() []string {
	names := []string{k.Hash.Name}
	if k.Range != nil {
		names = append(names, k.Range.Name)
	}
	return names
}

// Validate checks the schema itself: a named hash key of a key-capable
// kind, and a distinct range key when one is declared.
func (k KeySchema) Validate() error {
	if k.Hash.Name == "" {
		return fmt.Errorf("hash key name is required")
	}
	if err := keyCapable(k.Hash.Kind); err != nil {
		return fmt.Errorf("hash key %q: %w", k.Hash.Name, err)
	}
	if k.Range == nil {
		return nil
	}
	if k.Range.Name == "" {
		return fmt.Errorf("range key name is required when a range key is declared")
	}
	if k.Range.Name == k.Hash.Name {
		return fmt.Errorf("range key %q duplicates the hash key", k.Range.Name)
	}
	if err := keyCapable(k.Range.Kind); err != nil {
		return fmt.Errorf("range key %q: %w", k.Range.Name, err)
	}
	return nil
}

func keyCapable(kind Kind) error {
	switch kind {
	case KindS, KindN, KindB:
		return nil
	default:
		return fmt.Errorf("kind %q cannot be a key component", kind)
	}
}

// ExtractKey pulls the key attributes out of a row and checks them against
// the declared kinds. A missing component or a kind mismatch is an error;
// extra attributes in the row are ignored.
func (k KeySchema) ExtractKey(attrs Attributes) (Attributes, error) {
	key := make(Attributes, 2)
	if err := extractComponent(k.Hash, attrs, key); err != nil {
		return nil, err
	}
	if k.Range != nil {
		if err := extractComponent(*k.Range, attrs, key); err != nil {
			return nil, err
		}
	}
	return key, nil
}

func extractComponent(def KeyDef, attrs, into Attributes) error {
	av, ok := attrs[def.Name]
	if !ok {
		return fmt.Errorf("key attribute %q is missing", def.Name)
	}
	if err := matchesDefinition(def.Kind, av); err != nil {
		return fmt.Errorf("key attribute %q: %w", def.Name, err)
	}
	into[def.Name] = av
	return nil
}

func matchesDefinition(want Kind, av types.AttributeValue) error {
	got, err := KindOf(av)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("got kind %q, want %q", got, want)
	}
	return nil
}
