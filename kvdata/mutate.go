package kvdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	dynamo "github.com/sffej/jcabi-dynamo"
	dynerrors "github.com/sffej/jcabi-dynamo/errors"
)

// checkKey verifies that attrs carries every declared key component with
// the declared kind.
func checkKey(rec *tableRecord, attrs dynamo.Attributes) error {
	defs := []dynamo.KeyDef{rec.Keys.Hash}
	if rec.Keys.Range != nil {
		defs = append(defs, *rec.Keys.Range)
	}
	for _, def := range defs {
		av, ok := attrs[def.Name]
		if !ok {
			return dynerrors.NewMissingKeyError(rec.Name, def.Name)
		}
		got, err := dynamo.KindOf(av)
		if err != nil {
			return err
		}
		if got != def.Kind {
			return dynerrors.NewTypeMismatchError(rec.Name, def.Name, string(def.Kind), string(got))
		}
	}
	return nil
}

// Put upserts the row under its encoded key. Badger's set replaces the
// whole value, which is exactly the whole-item replace the contract
// asks for.
func (d *Data) Put(ctx context.Context, table string, attrs dynamo.Attributes) error {
	rec, err := d.recordFor(table)
	if err != nil {
		return err
	}
	if err := checkKey(rec, attrs); err != nil {
		return err
	}
	if err := d.observeKinds(table, attrs); err != nil {
		return err
	}
	key, err := itemKey(rec, attrs)
	if err != nil {
		return err
	}
	value, err := serializeItem(attrs)
	if err != nil {
		return err
	}
	if err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}); err != nil {
		return fmt.Errorf("put to %q: %w", table, err)
	}
	d.log.Debug().Str("table", table).Int("attributes", len(attrs)).Msg("put")
	return nil
}

// Delete removes at most one row by full key match. A missing row is not
// an error.
func (d *Data) Delete(ctx context.Context, table string, keys dynamo.Attributes) error {
	rec, err := d.recordFor(table)
	if err != nil {
		return err
	}
	if err := checkKey(rec, keys); err != nil {
		return err
	}
	key, err := itemKey(rec, keys)
	if err != nil {
		return err
	}
	if err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	}); err != nil {
		return fmt.Errorf("delete from %q: %w", table, err)
	}
	return nil
}

// Update replaces individual attributes of the row matching the key
// inside one read-modify-write transaction.
func (d *Data) Update(ctx context.Context, table string, keys dynamo.Attributes, updates dynamo.AttributeUpdates) error {
	if len(updates) == 0 {
		return fmt.Errorf("update of %q carries no attribute updates", table)
	}
	rec, err := d.recordFor(table)
	if err != nil {
		return err
	}
	if err := checkKey(rec, keys); err != nil {
		return err
	}
	for name := range updates {
		if name == rec.Keys.Hash.Name || (rec.Keys.Range != nil && name == rec.Keys.Range.Name) {
			return dynerrors.NewTableSchemaError(table, fmt.Sprintf("key attribute %q cannot be updated", name))
		}
	}
	if err := d.observeKinds(table, dynamo.Attributes(updates)); err != nil {
		return err
	}
	key, err := itemKey(rec, keys)
	if err != nil {
		return err
	}

	apply := func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			if !d.opts.UpsertOnUpdate {
				return fmt.Errorf("update of %q: %w", table, dynerrors.ErrItemNotFound)
			}
			row := make(dynamo.Attributes, len(keys)+len(updates))
			for name, av := range keys {
				row[name] = av
			}
			for name, av := range updates {
				row[name] = av
			}
			value, err := serializeItem(row)
			if err != nil {
				return err
			}
			return txn.Set(key, value)
		}
		if err != nil {
			return err
		}
		var row dynamo.Attributes
		if err := item.Value(func(val []byte) error {
			row, err = deserializeItem(val)
			return err
		}); err != nil {
			return err
		}
		for name, av := range updates {
			row[name] = av
		}
		value, err := serializeItem(row)
		if err != nil {
			return err
		}
		return txn.Set(key, value)
	}

	// A racing update of the same key aborts the read-modify-write
	// transaction; retrying re-reads the row, which serializes same-key
	// updates into some total order.
	for {
		err = d.db.Update(apply)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return err
	}
	d.log.Debug().Str("table", table).Int("updates", len(updates)).Msg("update")
	return nil
}
