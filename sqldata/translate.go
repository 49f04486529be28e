package sqldata

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	dynamo "github.com/sffej/jcabi-dynamo"
	dynerrors "github.com/sffej/jcabi-dynamo/errors"
)

// translate turns an AND-combined condition set into a WHERE clause over
// sanitized column identifiers with positional arguments. The empty set
// translates to no clause, selecting every row.
//
// Each condition resolves its attribute through the schema registry: an
// attribute the table has never heard of fails with
// ErrAttributeNotIndexed; an attribute declared but never written cannot
// match any row, so its predicate is constant-false; a condition value of
// a kind other than the column's declared kind fails with
// ErrAttributeTypeMismatch.
func translate(ts *tableSchema, conds dynamo.Conditions) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}
	names := maps.Keys(conds)
	slices.Sort(names)

	var preds []string
	var args []any
	for _, name := range names {
		cond := conds[name]
		if err := cond.Validate(); err != nil {
			return "", nil, fmt.Errorf("condition on %q: %w", name, err)
		}
		col, ok := ts.cols[name]
		if !ok {
			return "", nil, dynerrors.NewNotIndexedError(ts.name, name)
		}
		if !col.materialized() {
			// Declared but never written: no row carries the attribute.
			preds = append(preds, "0 = 1")
			continue
		}
		valueKind, err := dynamo.KindOf(cond.Value)
		if err != nil {
			return "", nil, err
		}
		if valueKind != col.kind {
			return "", nil, dynerrors.NewTypeMismatchError(ts.name, name, string(col.kind), string(valueKind))
		}
		pred, predArgs, err := predicate(col, cond)
		if err != nil {
			return "", nil, fmt.Errorf("condition on %q: %w", name, err)
		}
		preds = append(preds, pred)
		args = append(args, predArgs...)
	}
	return " WHERE " + strings.Join(preds, " AND "), args, nil
}

// predicate emits one SQL comparison. Column affinity carries the
// kind-specific semantics: NUMERIC columns compare numerically, TEXT and
// BLOB columns byte-wise, matching the lexicographic ordering of S and B
// values. A SQL NULL cell (absent attribute) never satisfies any
// predicate, including NE, which is made explicit below.
func predicate(col *column, cond dynamo.Condition) (string, []any, error) {
	cell, err := encodeCell(cond.Value)
	if err != nil {
		return "", nil, err
	}
	switch cond.Op {
	case dynamo.OpEqual:
		return col.phys + " = ?", []any{cell}, nil
	case dynamo.OpNotEqual:
		return fmt.Sprintf("(%s IS NOT NULL AND %s != ?)", col.phys, col.phys), []any{cell}, nil
	case dynamo.OpLessThan:
		return col.phys + " < ?", []any{cell}, nil
	case dynamo.OpLessOrEqual:
		return col.phys + " <= ?", []any{cell}, nil
	case dynamo.OpGreaterThan:
		return col.phys + " > ?", []any{cell}, nil
	case dynamo.OpGreaterOrEqual:
		return col.phys + " >= ?", []any{cell}, nil
	case dynamo.OpBeginsWith:
		prefix := cond.Value.(*types.AttributeValueMemberS).Value
		return fmt.Sprintf("substr(%s, 1, ?) = ?", col.phys),
			[]any{utf8.RuneCountInString(prefix), prefix}, nil
	case dynamo.OpContains:
		return fmt.Sprintf("instr(%s, ?) > 0", col.phys), []any{cell}, nil
	default:
		return "", nil, fmt.Errorf("unknown operator %q", cond.Op)
	}
}

// keyWhere builds the full-key match used by every mutation, with the
// key attribute values checked against the declared kinds.
func keyWhere(ts *tableSchema, keys dynamo.Attributes) (string, []any, error) {
	var preds []string
	var args []any
	for _, def := range keyDefs(ts.keys) {
		av, ok := keys[def.Name]
		if !ok {
			return "", nil, dynerrors.NewMissingKeyError(ts.name, def.Name)
		}
		got, err := dynamo.KindOf(av)
		if err != nil {
			return "", nil, err
		}
		if got != def.Kind {
			return "", nil, dynerrors.NewTypeMismatchError(ts.name, def.Name, string(def.Kind), string(got))
		}
		cell, err := encodeCell(av)
		if err != nil {
			return "", nil, err
		}
		preds = append(preds, ts.cols[def.Name].phys+" = ?")
		args = append(args, cell)
	}
	return " WHERE " + strings.Join(preds, " AND "), args, nil
}

func keyDefs(keys dynamo.KeySchema) []dynamo.KeyDef {
	defs := []dynamo.KeyDef{keys.Hash}
	if keys.Range != nil {
		defs = append(defs, *keys.Range)
	}
	return defs
}

// selection lists the materialized columns of a table in a stable order,
// keys first, and the matching ORDER BY over the key columns.
func selection(ts *tableSchema) (cols []*column, orderBy string) {
	names := maps.Keys(ts.cols)
	slices.Sort(names)
	for _, def := range keyDefs(ts.keys) {
		cols = append(cols, ts.cols[def.Name])
	}
	for _, name := range names {
		col := ts.cols[name]
		if !col.key && col.materialized() {
			cols = append(cols, col)
		}
	}
	var keyPhys []string
	for _, def := range keyDefs(ts.keys) {
		keyPhys = append(keyPhys, ts.cols[def.Name].phys)
	}
	return cols, " ORDER BY " + strings.Join(keyPhys, ", ")
}
