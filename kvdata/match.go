package kvdata

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	dynamo "github.com/sffej/jcabi-dynamo"
	dynerrors "github.com/sffej/jcabi-dynamo/errors"
)

// checkConditions validates a condition set against the table record:
// unknown attributes fail with ErrAttributeNotIndexed, values of a kind
// other than the attribute's recorded kind with
// ErrAttributeTypeMismatch. It reports whether any row can match at all;
// a condition on a declared-but-never-written attribute makes the whole
// set unsatisfiable. The caller must hold the registry lock, since
// rec.Cols keeps growing as attributes materialize.
func checkConditions(rec *tableRecord, conds dynamo.Conditions) (satisfiable bool, err error) {
	satisfiable = true
	for name, cond := range conds {
		if err := cond.Validate(); err != nil {
			return false, fmt.Errorf("condition on %q: %w", name, err)
		}
		known, ok := rec.Cols[name]
		if !ok {
			return false, dynerrors.NewNotIndexedError(rec.Name, name)
		}
		if known == "" {
			satisfiable = false
			continue
		}
		valueKind, err := dynamo.KindOf(cond.Value)
		if err != nil {
			return false, err
		}
		if valueKind != known {
			return false, dynerrors.NewTypeMismatchError(rec.Name, name, string(known), string(valueKind))
		}
	}
	return satisfiable, nil
}

// matches evaluates the AND-combined conditions against one decoded row.
// An absent attribute satisfies no operator.
func matches(conds dynamo.Conditions, row dynamo.Attributes) (bool, error) {
	for name, cond := range conds {
		av, ok := row[name]
		if !ok {
			return false, nil
		}
		hit, err := matchOne(cond, av)
		if err != nil {
			return false, fmt.Errorf("condition on %q: %w", name, err)
		}
		if !hit {
			return false, nil
		}
	}
	return true, nil
}

func matchOne(cond dynamo.Condition, av types.AttributeValue) (bool, error) {
	switch cond.Op {
	case dynamo.OpEqual:
		return dynamo.Equal(av, cond.Value)
	case dynamo.OpNotEqual:
		eq, err := dynamo.Equal(av, cond.Value)
		return !eq, err
	case dynamo.OpLessThan, dynamo.OpLessOrEqual, dynamo.OpGreaterThan, dynamo.OpGreaterOrEqual:
		c, err := dynamo.Compare(av, cond.Value)
		if err != nil {
			return false, err
		}
		switch cond.Op {
		case dynamo.OpLessThan:
			return c < 0, nil
		case dynamo.OpLessOrEqual:
			return c <= 0, nil
		case dynamo.OpGreaterThan:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case dynamo.OpBeginsWith:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return false, nil
		}
		return strings.HasPrefix(s.Value, cond.Value.(*types.AttributeValueMemberS).Value), nil
	case dynamo.OpContains:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return false, nil
		}
		return strings.Contains(s.Value, cond.Value.(*types.AttributeValueMemberS).Value), nil
	default:
		return false, fmt.Errorf("unknown operator %q", cond.Op)
	}
}
