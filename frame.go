package dynamo

import (
	"context"
	"errors"

	dynerrors "github.com/sffej/jcabi-dynamo/errors"
)

// Frame is an immutable query over a table: a condition set narrowed by
// Where and executed by Iter. Narrowing returns a new frame, so a frame
// can be shared and refined from several goroutines.
type Frame struct {
	table *Table
	conds Conditions
}

// Where narrows the frame by one condition on the named attribute.
func (f *Frame) Where(name string, cond Condition) *Frame {
	return &Frame{table: f.table, conds: f.conds.With(name, cond)}
}

// WhereKeys narrows the frame to the single row the key identifies.
func (f *Frame) WhereKeys(keys Attributes) *Frame {
	return &Frame{table: f.table, conds: f.conds.WithKeys(keys)}
}

// Conditions returns the accumulated condition set.
func (f *Frame) Conditions() Conditions {
	return f.conds
}

// Iter executes the frame lazily. The caller owns the iterator's Close.
func (f *Frame) Iter(ctx context.Context) (Iterator, error) {
	return f.table.data.Iterate(ctx, f.table.name, f.conds)
}

// All executes the frame and drains it into a slice. Meant for small
// result sets and tests; large scans should advance the iterator.
func (f *Frame) All(ctx context.Context) ([]Attributes, error) {
	it, err := f.Iter(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var rows []Attributes
	for {
		row, err := it.Next()
		if errors.Is(err, dynerrors.ErrNoSuchElement) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// Count executes the frame and counts the matching rows.
func (f *Frame) Count(ctx context.Context) (int, error) {
	rows, err := f.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
