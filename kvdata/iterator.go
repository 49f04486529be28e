package kvdata

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	dynamo "github.com/sffej/jcabi-dynamo"
	dynerrors "github.com/sffej/jcabi-dynamo/errors"
)

// Iterate validates the condition set and returns a lazy iterator over
// the table's key range. Nothing touches the database until the first
// advance.
func (d *Data) Iterate(ctx context.Context, table string, conds dynamo.Conditions) (dynamo.Iterator, error) {
	var rec *tableRecord
	var satisfiable bool
	if err := d.withRecord(table, func(r *tableRecord) error {
		rec = r
		var err error
		satisfiable, err = checkConditions(r, conds)
		return err
	}); err != nil {
		return nil, err
	}
	return &iterator{
		d:           d,
		ctx:         ctx,
		rec:         rec,
		conds:       conds,
		satisfiable: satisfiable,
		cap:         d.opts.iterationCap(),
	}, nil
}

// iterator walks the table's key range inside a read transaction,
// filtering rows through the condition set. The transaction's snapshot
// bounds the sequence at scan start; Remove deletes through a separate
// write transaction, which the snapshot read never observes, so the
// position of rows still to come is undisturbed.
type iterator struct {
	d           *Data
	ctx         context.Context
	rec         *tableRecord
	conds       dynamo.Conditions
	satisfiable bool

	txn *badger.Txn
	bit *badger.Iterator

	current dynamo.Attributes
	removed bool
	count   int
	cap     int
	closed  bool
}

var _ dynamo.Iterator = (*iterator)(nil)

// Next produces the next matching row.
func (it *iterator) Next() (dynamo.Attributes, error) {
	if it.closed {
		return nil, fmt.Errorf("iterator is closed: %w", dynerrors.ErrNoSuchElement)
	}
	if err := it.ctx.Err(); err != nil {
		return nil, err
	}
	if it.cap > 0 {
		it.count++
		if it.count > it.cap {
			return nil, fmt.Errorf("%d advances on %q: %w", it.count, it.rec.Name, dynerrors.ErrTooManyIterations)
		}
	}
	if !it.satisfiable {
		return nil, dynerrors.ErrNoSuchElement
	}
	if it.bit == nil {
		it.txn = it.d.db.NewTransaction(false)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = tablePrefix(it.rec.Name)
		it.bit = it.txn.NewIterator(opts)
		it.bit.Seek(opts.Prefix)
	}
	for ; it.bit.Valid(); it.bit.Next() {
		var row dynamo.Attributes
		if err := it.bit.Item().Value(func(val []byte) error {
			var err error
			row, err = deserializeItem(val)
			return err
		}); err != nil {
			return nil, err
		}
		hit, err := matches(it.conds, row)
		if err != nil {
			return nil, err
		}
		if !hit {
			continue
		}
		key, err := it.rec.Keys.ExtractKey(row)
		if err != nil {
			return nil, fmt.Errorf("row of %q: %w", it.rec.Name, err)
		}
		it.current = key
		it.removed = false
		it.bit.Next()
		return row, nil
	}
	return nil, dynerrors.ErrNoSuchElement
}

// Remove deletes the row most recently produced by Next.
func (it *iterator) Remove(ctx context.Context) error {
	if it.current == nil || it.removed {
		return fmt.Errorf("remove without a produced row: %w", dynerrors.ErrIllegalIteratorState)
	}
	if err := it.d.Delete(ctx, it.rec.Name, it.current); err != nil {
		return err
	}
	it.removed = true
	return nil
}

// Close releases the read transaction and its iterator. Safe to call
// more than once; abandoning an iteration mid-way must always end here
// so the snapshot is released promptly.
func (it *iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.bit != nil {
		it.bit.Close()
		it.txn.Discard()
		it.bit = nil
		it.txn = nil
	}
	return nil
}
