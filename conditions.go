package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/maps"
)

// Operator names a comparison applied to one attribute during iteration.
type Operator string

const (
	OpEqual          Operator = "EQ"
	OpNotEqual       Operator = "NE"
	OpLessThan       Operator = "LT"
	OpLessOrEqual    Operator = "LE"
	OpGreaterThan    Operator = "GT"
	OpGreaterOrEqual Operator = "GE"
	OpBeginsWith     Operator = "BEGINS_WITH"
	OpContains       Operator = "CONTAINS"
)

// Condition is a predicate on a single attribute: an operator and the
// value to compare against. The ordering operators require a scalar kind
// (S, N or B); BeginsWith and Contains require S.
type Condition struct {
	Op    Operator
	Value types.AttributeValue
}

// EqualTo builds an equality condition from a native Go value.
func EqualTo(value any) Condition {
	return newCondition(OpEqual, value)
}

// LessThan builds a strict-less-than condition from a native Go value.
func LessThan(value any) Condition {
	return newCondition(OpLessThan, value)
}

// GreaterThan builds a strict-greater-than condition from a native Go value.
func GreaterThan(value any) Condition {
	return newCondition(OpGreaterThan, value)
}

// BeginsWith builds a string prefix condition.
func BeginsWith(prefix string) Condition {
	return newCondition(OpBeginsWith, prefix)
}

// Contains builds a substring condition on a string attribute.
func Contains(substr string) Condition {
	return newCondition(OpContains, substr)
}

func newCondition(op Operator, value any) Condition {
	av, err := marshalValue(value)
	if err != nil {
		panic(fmt.Errorf("condition %s: %w", op, err))
	}
	return Condition{Op: op, Value: av}
}

// Validate checks that the operator is applicable to the value's kind.
func (c Condition) Validate() error {
	kind, err := KindOf(c.Value)
	if err != nil {
		return err
	}
	switch c.Op {
	case OpEqual, OpNotEqual:
		return nil
	case OpLessThan, OpLessOrEqual, OpGreaterThan, OpGreaterOrEqual:
		if kind != KindS && kind != KindN && kind != KindB {
			return fmt.Errorf("operator %s needs a scalar value, got %s", c.Op, kind)
		}
		return nil
	case OpBeginsWith, OpContains:
		if kind != KindS {
			return fmt.Errorf("operator %s needs an S value, got %s", c.Op, kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown operator %q", c.Op)
	}
}

// Conditions is a set of per-attribute predicates combined with logical
// AND. The empty set selects every row of the table.
type Conditions map[string]Condition

// NewConditions returns an empty, select-all condition set.
func NewConditions() Conditions {
	return make(Conditions)
}

// With returns a copy of the set with one more predicate.
func (c Conditions) With(name string, cond Condition) Conditions {
	out := make(Conditions, len(c)+1)
	maps.Copy(out, c)
	out[name] = cond
	return out
}

// WithKeys returns a copy of the set extended with equality predicates for
// every attribute of the given key, the shape used to select exactly the
// row a key identifies.
func (c Conditions) WithKeys(keys Attributes) Conditions {
	out := make(Conditions, len(c)+len(keys))
	maps.Copy(out, c)
	for name, av := range keys {
		out[name] = Condition{Op: OpEqual, Value: av}
	}
	return out
}
