package sqldata

import (
	"context"
	"fmt"
	"strings"

	dynamo "github.com/sffej/jcabi-dynamo"
	dynerrors "github.com/sffej/jcabi-dynamo/errors"
)

// Iterate lazily executes the condition set against the table. The
// conditions are translated and validated here; nothing touches the
// database until the first advance.
func (d *Data) Iterate(ctx context.Context, table string, conds dynamo.Conditions) (dynamo.Iterator, error) {
	it := &iterator{d: d, ctx: ctx, table: table, cap: d.opts.iterationCap()}
	if err := d.withSchema(table, func(ts *tableSchema) error {
		where, args, err := translate(ts, conds)
		if err != nil {
			return err
		}
		cols, orderBy := selection(ts)

		var keyPhys []string
		for _, def := range keyDefs(ts.keys) {
			it.keyCols = append(it.keyCols, ts.cols[def.Name])
			keyPhys = append(keyPhys, ts.cols[def.Name].phys)
		}
		it.keyQuery = "SELECT " + strings.Join(keyPhys, ", ") + " FROM " + ts.phys + where + orderBy
		it.keyArgs = args

		it.rowCols = cols
		var phys []string
		for _, col := range cols {
			phys = append(phys, col.phys)
		}
		it.rowQuery = "SELECT " + strings.Join(phys, ", ") + " FROM " + ts.phys
		it.phys = ts.phys
		return nil
	}); err != nil {
		return nil, err
	}
	return it, nil
}

// iterator walks a query result row by row. On the first advance it
// snapshots the keys of every matching row; each further advance fetches
// one full row by its key. Tracking position by key rather than by a
// storage cursor is what lets Remove, or any concurrent writer, delete
// rows without disturbing the rows still to come, and it keeps no engine
// cursor open between advances, so abandoning the iterator holds no
// resources.
type iterator struct {
	d     *Data
	ctx   context.Context
	table string
	phys  string

	keyQuery string
	keyArgs  []any
	keyCols  []*column
	rowQuery string
	rowCols  []*column

	started bool
	keys    []dynamo.Attributes
	pos     int

	current dynamo.Attributes
	removed bool
	count   int
	cap     int
	closed  bool
}

var _ dynamo.Iterator = (*iterator)(nil)

// Next produces the next matching row. The sequence is bounded by the
// rows matching at scan start; rows deleted since then are skipped.
func (it *iterator) Next() (dynamo.Attributes, error) {
	if it.closed {
		return nil, fmt.Errorf("iterator is closed: %w", dynerrors.ErrNoSuchElement)
	}
	if !it.started {
		if err := it.start(); err != nil {
			return nil, err
		}
	}
	if it.cap > 0 {
		it.count++
		if it.count > it.cap {
			return nil, fmt.Errorf("%d advances on %q: %w", it.count, it.table, dynerrors.ErrTooManyIterations)
		}
	}
	for it.pos < len(it.keys) {
		key := it.keys[it.pos]
		it.pos++
		row, ok, err := it.fetch(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		it.current = key
		it.removed = false
		return row, nil
	}
	return nil, dynerrors.ErrNoSuchElement
}

// start issues the key query and snapshots the matching keys in order.
func (it *iterator) start() error {
	rows, err := it.d.db.QueryContext(it.ctx, it.keyQuery, it.keyArgs...)
	if err != nil {
		return fmt.Errorf("scan %q: %w", it.table, err)
	}
	defer rows.Close()
	for rows.Next() {
		cells := make([]any, len(it.keyCols))
		dest := make([]any, len(it.keyCols))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		key := make(dynamo.Attributes, len(it.keyCols))
		for i, col := range it.keyCols {
			av, err := decodeCell(cells[i], col.kind)
			if err != nil {
				return fmt.Errorf("key column %q: %w", col.name, err)
			}
			key[col.name] = av
		}
		it.keys = append(it.keys, key)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	it.started = true
	return nil
}

// fetch reads one full row by key, reporting ok=false when the row has
// been deleted since the scan started.
func (it *iterator) fetch(key dynamo.Attributes) (dynamo.Attributes, bool, error) {
	var preds []string
	var args []any
	for _, col := range it.keyCols {
		cell, err := encodeCell(key[col.name])
		if err != nil {
			return nil, false, err
		}
		preds = append(preds, col.phys+" = ?")
		args = append(args, cell)
	}
	query := it.rowQuery + " WHERE " + strings.Join(preds, " AND ")

	rows, err := it.d.db.QueryContext(it.ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("fetch row of %q: %w", it.table, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, false, rows.Err()
	}
	cells := make([]any, len(it.rowCols))
	dest := make([]any, len(it.rowCols))
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, false, err
	}
	row := make(dynamo.Attributes, len(it.rowCols))
	for i, col := range it.rowCols {
		if cells[i] == nil {
			continue
		}
		av, err := decodeCell(cells[i], col.kind)
		if err != nil {
			return nil, false, fmt.Errorf("column %q: %w", col.name, err)
		}
		row[col.name] = av
	}
	return row, true, rows.Err()
}

// Remove deletes the row most recently produced by Next.
func (it *iterator) Remove(ctx context.Context) error {
	if it.current == nil || it.removed {
		return fmt.Errorf("remove without a produced row: %w", dynerrors.ErrIllegalIteratorState)
	}
	if err := it.d.Delete(ctx, it.table, it.current); err != nil {
		return err
	}
	it.removed = true
	return nil
}

// Close ends the iteration. The iterator holds no open cursor between
// advances, so this only marks it unusable.
func (it *iterator) Close() error {
	it.closed = true
	return nil
}
