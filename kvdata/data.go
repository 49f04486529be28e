// Package kvdata backs the emulation with BadgerDB. Rows live under
// order-preserving keys derived from the table name and the encoded key
// attributes; table schemas are persisted under a meta prefix so a
// directory-backed store keeps its catalog across reopening. Conditions
// are evaluated against decoded rows rather than translated to the
// engine, since the engine speaks keys, not columns.
package kvdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	dynamo "github.com/sffej/jcabi-dynamo"
	dynerrors "github.com/sffej/jcabi-dynamo/errors"
)

// Options configures the BadgerDB engine.
type Options struct {
	// Path of the database directory. If empty, the store lives in
	// memory and is discarded on Close.
	Path string

	// UpsertOnUpdate makes Update insert a missing row instead of
	// failing with ErrItemNotFound.
	UpsertOnUpdate bool

	// MaxIterations caps iterator advances. Zero means
	// dynamo.DefaultMaxIterations; negative disables the guard.
	MaxIterations int

	// Logger for engine-level debug logging, also forwarded to Badger.
	// If nil, logging is disabled.
	Logger *zerolog.Logger
}

func (o Options) iterationCap() int {
	if o.MaxIterations == 0 {
		return dynamo.DefaultMaxIterations
	}
	return o.MaxIterations
}

// Data is the BadgerDB-backed storage engine.
type Data struct {
	db   *badger.DB
	opts Options
	log  zerolog.Logger

	mu     sync.RWMutex
	tables map[string]*tableRecord
}

var _ dynamo.Data = (*Data)(nil)

// tableRecord is the persisted registry entry for one table: its key
// schema and the kinds attributes have been seen with. An empty kind
// marks an attribute declared but never written.
type tableRecord struct {
	Name string
	Keys dynamo.KeySchema
	Cols map[string]dynamo.Kind
}

// New opens the engine. A directory path makes the data survive
// reopening; an empty path keeps it purely in memory.
func New(opts Options) (*Data, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
		badgerOpts = badgerOpts.WithLogger(badgerLogger{log: log})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	d := &Data{
		db:     db,
		opts:   opts,
		log:    log,
		tables: make(map[string]*tableRecord),
	}
	if err := d.loadCatalog(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Data) loadCatalog() error {
	return d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.Valid(); it.Next() {
			var rec tableRecord
			if err := it.Item().Value(func(val []byte) error {
				return decodeRecord(val, &rec)
			}); err != nil {
				return fmt.Errorf("load table record: %w", err)
			}
			d.tables[rec.Name] = &rec
		}
		return nil
	})
}

// Close releases the database.
func (d *Data) Close() error {
	return d.db.Close()
}

// EnsureTable registers the table on first call. Re-ensuring with the
// same key schema is a no-op apart from recording newly declared
// attribute names; a different schema fails with ErrInvalidTableSchema.
func (d *Data) EnsureTable(ctx context.Context, table string, keys dynamo.KeySchema, attrs ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if rec, ok := d.tables[table]; ok {
		if !rec.Keys.Equal(keys) {
			return dynerrors.NewTableSchemaError(table, "key schema differs from the existing definition")
		}
		changed := false
		for _, name := range attrs {
			if _, ok := rec.Cols[name]; !ok {
				rec.Cols[name] = ""
				changed = true
			}
		}
		if changed {
			return d.saveRecord(rec)
		}
		return nil
	}

	if err := keys.Validate(); err != nil {
		return dynerrors.NewTableSchemaError(table, err.Error())
	}
	if err := checkName(table); err != nil {
		return dynerrors.NewTableSchemaError(table, err.Error())
	}
	rec := &tableRecord{
		Name: table,
		Keys: keys,
		Cols: make(map[string]dynamo.Kind, len(attrs)+2),
	}
	rec.Cols[keys.Hash.Name] = keys.Hash.Kind
	if keys.Range != nil {
		rec.Cols[keys.Range.Name] = keys.Range.Kind
	}
	for _, name := range attrs {
		if _, ok := rec.Cols[name]; !ok {
			rec.Cols[name] = ""
		}
	}
	if err := d.saveRecord(rec); err != nil {
		return err
	}
	d.tables[table] = rec
	d.log.Debug().Str("table", table).Msg("table ensured")
	return nil
}

func (d *Data) saveRecord(rec *tableRecord) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode table record %q: %w", rec.Name, err)
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(rec.Name), raw)
	})
}

// recordFor resolves a table under the read lock. The returned record's
// Keys are immutable after creation; Cols keeps changing and must only be
// read through withRecord.
func (d *Data) recordFor(table string) (*tableRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", table, dynerrors.ErrTableNotFound)
	}
	return rec, nil
}

// withRecord runs fn with the table resolved under the read lock, so
// reads of the column registry never race observeKinds or EnsureTable
// extending it.
func (d *Data) withRecord(table string, fn func(rec *tableRecord) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.tables[table]
	if !ok {
		return fmt.Errorf("table %q: %w", table, dynerrors.ErrTableNotFound)
	}
	return fn(rec)
}

// observeKinds records the kind of every attribute in the set, failing
// when an attribute is reused with a different kind than first observed.
func (d *Data) observeKinds(table string, attrs dynamo.Attributes) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.tables[table]
	if !ok {
		return fmt.Errorf("table %q: %w", table, dynerrors.ErrTableNotFound)
	}
	changed := false
	for name, av := range attrs {
		kind, err := dynamo.KindOf(av)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		known, ok := rec.Cols[name]
		switch {
		case !ok, known == "":
			rec.Cols[name] = kind
			changed = true
		case known != kind:
			return dynerrors.NewTypeMismatchError(table, name, string(known), string(kind))
		}
	}
	if changed {
		return d.saveRecord(rec)
	}
	return nil
}

// DropTable removes the table record and every row under its prefix.
func (d *Data) DropTable(ctx context.Context, table string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tables[table]; !ok {
		return fmt.Errorf("table %q: %w", table, dynerrors.ErrTableNotFound)
	}
	if err := d.db.DropPrefix(tablePrefix(table)); err != nil {
		return fmt.Errorf("drop rows of %q: %w", table, err)
	}
	if err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(metaKey(table))
	}); err != nil {
		return fmt.Errorf("drop table record %q: %w", table, err)
	}
	delete(d.tables, table)
	return nil
}

// badgerLogger forwards Badger's logging onto zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}
