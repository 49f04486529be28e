package sqldata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	dynamo "github.com/sffej/jcabi-dynamo"
	dynerrors "github.com/sffej/jcabi-dynamo/errors"
)

// withSchema runs fn with the table resolved under the read lock, so SQL
// built from the column set never races a concurrent schema extension.
func (d *Data) withSchema(table string, fn func(ts *tableSchema) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ts, ok := d.tables[table]
	if !ok {
		return fmt.Errorf("table %q: %w", table, dynerrors.ErrTableNotFound)
	}
	return fn(ts)
}

// checkKey verifies that attrs carries every declared key component with
// the declared kind.
func checkKey(ts *tableSchema, attrs dynamo.Attributes) error {
	for _, def := range keyDefs(ts.keys) {
		av, ok := attrs[def.Name]
		if !ok {
			return dynerrors.NewMissingKeyError(ts.name, def.Name)
		}
		got, err := dynamo.KindOf(av)
		if err != nil {
			return err
		}
		if got != def.Kind {
			return dynerrors.NewTypeMismatchError(ts.name, def.Name, string(def.Kind), string(got))
		}
	}
	return nil
}

// ensureColumns extends the schema for every attribute in the set.
func (d *Data) ensureColumns(ctx context.Context, table string, attrs dynamo.Attributes) error {
	for _, name := range attrs.Names() {
		kind, err := dynamo.KindOf(attrs[name])
		if err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		if err := d.ensureColumn(ctx, table, name, kind); err != nil {
			return err
		}
	}
	return nil
}

// Put upserts the row identified by the key attributes inside attrs. The
// stored attribute set is replaced wholesale: the old row, if any, is
// deleted in the same transaction the new one is inserted in, which is
// what clears attributes the new put omits.
func (d *Data) Put(ctx context.Context, table string, attrs dynamo.Attributes) error {
	if err := d.withSchema(table, func(ts *tableSchema) error {
		return checkKey(ts, attrs)
	}); err != nil {
		return err
	}
	if err := d.ensureColumns(ctx, table, attrs); err != nil {
		return err
	}

	var delStmt, insStmt string
	var delArgs, insArgs []any
	if err := d.withSchema(table, func(ts *tableSchema) error {
		where, args, err := keyWhere(ts, attrs)
		if err != nil {
			return err
		}
		delStmt = "DELETE FROM " + ts.phys + where
		delArgs = args

		names := attrs.Names()
		phys := make([]string, 0, len(names))
		marks := make([]string, 0, len(names))
		insArgs = make([]any, 0, len(names))
		for _, name := range names {
			cell, err := encodeCell(attrs[name])
			if err != nil {
				return fmt.Errorf("attribute %q: %w", name, err)
			}
			phys = append(phys, ts.cols[name].phys)
			marks = append(marks, "?")
			insArgs = append(insArgs, cell)
		}
		insStmt = fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			ts.phys, strings.Join(phys, ", "), strings.Join(marks, ", "),
		)
		return nil
	}); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, delStmt, delArgs...); err != nil {
		return fmt.Errorf("replace row in %q: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, insStmt, insArgs...); err != nil {
		return fmt.Errorf("insert row into %q: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put to %q: %w", table, err)
	}
	d.log.Debug().Str("table", table).Int("attributes", len(attrs)).Msg("put")
	return nil
}

// Delete removes at most one row by full key match. A missing row is not
// an error.
func (d *Data) Delete(ctx context.Context, table string, keys dynamo.Attributes) error {
	var stmt string
	var args []any
	if err := d.withSchema(table, func(ts *tableSchema) error {
		where, whereArgs, err := keyWhere(ts, keys)
		if err != nil {
			return err
		}
		stmt = "DELETE FROM " + ts.phys + where
		args = whereArgs
		return nil
	}); err != nil {
		return err
	}
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete from %q: %w", table, err)
	}
	return nil
}

// Update replaces individual attributes of the row matching the key,
// leaving the rest of the row untouched. Without a matching row it fails
// with ErrItemNotFound, or inserts the key plus updates when the engine
// was opened with UpsertOnUpdate.
func (d *Data) Update(ctx context.Context, table string, keys dynamo.Attributes, updates dynamo.AttributeUpdates) error {
	if len(updates) == 0 {
		return fmt.Errorf("update of %q carries no attribute updates", table)
	}
	if err := d.withSchema(table, func(ts *tableSchema) error {
		return checkKey(ts, keys)
	}); err != nil {
		return err
	}
	if err := d.ensureColumns(ctx, table, dynamo.Attributes(updates)); err != nil {
		return err
	}

	var existsStmt, updStmt, insStmt string
	var whereArgs, updArgs, insArgs []any
	if err := d.withSchema(table, func(ts *tableSchema) error {
		where, args, err := keyWhere(ts, keys)
		if err != nil {
			return err
		}
		whereArgs = args
		existsStmt = "SELECT 1 FROM " + ts.phys + where

		names := dynamo.Attributes(updates).Names()
		sets := make([]string, 0, len(names))
		updArgs = make([]any, 0, len(names)+len(args))
		for _, name := range names {
			if ts.cols[name].key {
				return dynerrors.NewTableSchemaError(table, fmt.Sprintf("key attribute %q cannot be updated", name))
			}
			cell, err := encodeCell(updates[name])
			if err != nil {
				return fmt.Errorf("update %q: %w", name, err)
			}
			sets = append(sets, ts.cols[name].phys+" = ?")
			updArgs = append(updArgs, cell)
		}
		updStmt = "UPDATE " + ts.phys + " SET " + strings.Join(sets, ", ") + where
		updArgs = append(updArgs, args...)

		if d.opts.UpsertOnUpdate {
			row := make(dynamo.Attributes, len(keys)+len(updates))
			for name, av := range keys {
				row[name] = av
			}
			for name, av := range updates {
				row[name] = av
			}
			rowNames := row.Names()
			phys := make([]string, 0, len(rowNames))
			marks := make([]string, 0, len(rowNames))
			insArgs = make([]any, 0, len(rowNames))
			for _, name := range rowNames {
				cell, err := encodeCell(row[name])
				if err != nil {
					return fmt.Errorf("attribute %q: %w", name, err)
				}
				phys = append(phys, ts.cols[name].phys)
				marks = append(marks, "?")
				insArgs = append(insArgs, cell)
			}
			insStmt = fmt.Sprintf(
				"INSERT INTO %s (%s) VALUES (%s)",
				ts.phys, strings.Join(phys, ", "), strings.Join(marks, ", "),
			)
		}
		return nil
	}); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, existsStmt, whereArgs...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !d.opts.UpsertOnUpdate {
			return fmt.Errorf("update of %q: %w", table, dynerrors.ErrItemNotFound)
		}
		// The insert shares the existence check's transaction, so a
		// racing upsert of the same key either sees this row and takes
		// the UPDATE branch, or waits on the write lock.
		if _, err := tx.ExecContext(ctx, insStmt, insArgs...); err != nil {
			return fmt.Errorf("insert row into %q: %w", table, err)
		}
	case err != nil:
		return fmt.Errorf("locate row in %q: %w", table, err)
	default:
		if _, err := tx.ExecContext(ctx, updStmt, updArgs...); err != nil {
			return fmt.Errorf("update row in %q: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update to %q: %w", table, err)
	}
	d.log.Debug().Str("table", table).Int("updates", len(updates)).Msg("update")
	return nil
}
