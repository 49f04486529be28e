package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Attributes is one row of a table: attribute name to value. Insertion
// order is irrelevant; rows in the same table may carry different non-key
// attribute sets.
type Attributes map[string]types.AttributeValue

// NewAttributes returns an empty row.
func NewAttributes() Attributes {
	return make(Attributes)
}

// With returns a copy of the row with one more attribute. Native Go values
// are marshaled through the SDK attributevalue codec, so strings become S
// values, integers and floats become N values, and so on. It panics on a
// value the codec cannot represent, mirroring how key marshaling behaves
// elsewhere in this module; use Set for an error-returning variant.
func (a Attributes) With(name string, value any) Attributes {
	out, err := a.Set(name, value)
	if err != nil {
		panic(err)
	}
	return out
}

// Set is With with an explicit error.
func (a Attributes) Set(name string, value any) (Attributes, error) {
	av, err := marshalValue(value)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", name, err)
	}
	out := make(Attributes, len(a)+1)
	maps.Copy(out, a)
	out[name] = av
	return out, nil
}

func marshalValue(value any) (types.AttributeValue, error) {
	if av, ok := value.(types.AttributeValue); ok {
		return av, nil
	}
	av, err := attributevalue.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", value, err)
	}
	if _, err := KindOf(av); err != nil {
		return nil, err
	}
	return av, nil
}

// Names returns the attribute names in sorted order.
func (a Attributes) Names() []string {
	names := maps.Keys(a)
	slices.Sort(names)
	return names
}

// Only returns the subset of the row holding the given names. Missing
// names are simply absent from the result.
func (a Attributes) Only(names ...string) Attributes {
	out := make(Attributes, len(names))
	for _, name := range names {
		if av, ok := a[name]; ok {
			out[name] = av
		}
	}
	return out
}

// Equal reports whether two rows carry the same attribute sets with equal
// values under the per-kind equality rules.
func (a Attributes) Equal(b Attributes) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for name, av := range a {
		bv, ok := b[name]
		if !ok {
			return false, nil
		}
		eq, err := Equal(av, bv)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// AttributeUpdates is a set of single-attribute replacements applied by
// Table.Update to the row matching a key. Unlike Put it leaves attributes
// it does not name untouched.
type AttributeUpdates map[string]types.AttributeValue

// NewAttributeUpdates returns an empty update set.
func NewAttributeUpdates() AttributeUpdates {
	return make(AttributeUpdates)
}

// With returns a copy of the update set with one more replacement.
func (u AttributeUpdates) With(name string, value any) AttributeUpdates {
	av, err := marshalValue(value)
	if err != nil {
		panic(fmt.Errorf("update %q: %w", name, err))
	}
	out := make(AttributeUpdates, len(u)+1)
	maps.Copy(out, u)
	out[name] = av
	return out
}
