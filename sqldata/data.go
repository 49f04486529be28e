// Package sqldata backs the emulation with SQLite, translating the
// key-value vocabulary of the service onto a relational schema: one
// physical table per emulated table, one typed column per attribute,
// columns added lazily as attributes are first written. Table and
// attribute names pass through the ident sanitizer, so names that are
// illegal SQL identifiers (dots, hyphens, 255-character names) work
// unchanged.
package sqldata

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	dynamo "github.com/sffej/jcabi-dynamo"
	dynerrors "github.com/sffej/jcabi-dynamo/errors"
	"github.com/sffej/jcabi-dynamo/ident"
)

// Options configures the SQLite engine.
type Options struct {
	// Path of the database file. If empty, the database lives in memory
	// and is discarded on Close.
	Path string

	// UpsertOnUpdate makes Update insert a missing row instead of
	// failing with ErrItemNotFound.
	UpsertOnUpdate bool

	// MaxIterations caps iterator advances. Zero means
	// dynamo.DefaultMaxIterations; negative disables the guard.
	MaxIterations int

	// Logger for engine-level debug logging. If nil, logging is
	// disabled.
	Logger *zerolog.Logger
}

func (o Options) iterationCap() int {
	if o.MaxIterations == 0 {
		return dynamo.DefaultMaxIterations
	}
	return o.MaxIterations
}

// Data is the SQLite-backed storage engine.
type Data struct {
	db   *sql.DB
	opts Options
	log  zerolog.Logger

	mu     sync.RWMutex
	tables map[string]*tableSchema
}

var _ dynamo.Data = (*Data)(nil)

// tableSchema is the registry entry for one emulated table. The registry
// owns the authoritative column set; mutations and queries only read it
// or extend it through ensureColumn.
type tableSchema struct {
	name string
	phys string
	keys dynamo.KeySchema
	cols map[string]*column
}

// column tracks one attribute. Pre-declared attributes carry an empty
// kind and no physical column until the attribute is first written.
type column struct {
	name string
	phys string
	kind dynamo.Kind
	key  bool
}

func (c *column) materialized() bool {
	return c.kind != ""
}

// New opens the engine. A file path makes the data survive reopening; an
// empty path keeps it purely in memory. The connection pool is pinned to
// a single connection so that same-key mutations serialize on the SQLite
// write lock.
func New(opts Options) (*Data, error) {
	dsn := ":memory:"
	if opts.Path != "" {
		dsn = "file:" + opts.Path + "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	d := &Data{
		db:     db,
		opts:   opts,
		log:    log,
		tables: make(map[string]*tableSchema),
	}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// init creates the catalog tables and reloads registered schemas, which
// is what makes a file-backed database usable across process restarts.
func (d *Data) init() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS mk_tables (
			name TEXT PRIMARY KEY,
			phys TEXT NOT NULL UNIQUE,
			hash_name TEXT NOT NULL,
			hash_kind TEXT NOT NULL,
			range_name TEXT,
			range_kind TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS mk_columns (
			table_name TEXT NOT NULL,
			name TEXT NOT NULL,
			phys TEXT NOT NULL,
			kind TEXT NOT NULL,
			is_key INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (table_name, name)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("create catalog: %w", err)
		}
	}
	return d.loadCatalog()
}

func (d *Data) loadCatalog() error {
	rows, err := d.db.Query(
		`SELECT name, phys, hash_name, hash_kind, range_name, range_kind FROM mk_tables`,
	)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ts tableSchema
		var rangeName, rangeKind sql.NullString
		var hashKind string
		if err := rows.Scan(&ts.name, &ts.phys, &ts.keys.Hash.Name, &hashKind, &rangeName, &rangeKind); err != nil {
			return err
		}
		ts.keys.Hash.Kind = dynamo.Kind(hashKind)
		if rangeName.Valid && rangeName.String != "" {
			ts.keys.Range = &dynamo.KeyDef{Name: rangeName.String, Kind: dynamo.Kind(rangeKind.String)}
		}
		ts.cols = make(map[string]*column)
		d.tables[ts.name] = &ts
	}
	if err := rows.Err(); err != nil {
		return err
	}

	cols, err := d.db.Query(`SELECT table_name, name, phys, kind, is_key FROM mk_columns`)
	if err != nil {
		return fmt.Errorf("load catalog columns: %w", err)
	}
	defer cols.Close()
	for cols.Next() {
		var tableName string
		var col column
		var isKey int
		var kind string
		if err := cols.Scan(&tableName, &col.name, &col.phys, &kind, &isKey); err != nil {
			return err
		}
		col.kind = dynamo.Kind(kind)
		col.key = isKey != 0
		if ts, ok := d.tables[tableName]; ok {
			ts.cols[col.name] = &col
		}
	}
	return cols.Err()
}

// Close releases the database.
func (d *Data) Close() error {
	return d.db.Close()
}

// EnsureTable registers the table and creates its physical backing on
// first call. Re-ensuring with the same key schema is a no-op apart from
// recording newly declared attribute names; a different schema fails
// with ErrInvalidTableSchema.
func (d *Data) EnsureTable(ctx context.Context, table string, keys dynamo.KeySchema, attrs ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ts, ok := d.tables[table]; ok {
		if !ts.keys.Equal(keys) {
			return dynerrors.NewTableSchemaError(table, "key schema differs from the existing definition")
		}
		return d.declareColumns(ctx, ts, attrs)
	}

	if err := keys.Validate(); err != nil {
		return dynerrors.NewTableSchemaError(table, err.Error())
	}
	phys, err := ident.Sanitize(table)
	if err != nil {
		return dynerrors.NewTableSchemaError(table, err.Error())
	}

	ts := &tableSchema{
		name: table,
		phys: phys,
		keys: keys,
		cols: make(map[string]*column),
	}
	hashCol := &column{
		name: keys.Hash.Name,
		phys: ident.MustSanitize(keys.Hash.Name),
		kind: keys.Hash.Kind,
		key:  true,
	}
	ts.cols[hashCol.name] = hashCol

	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s %s NOT NULL",
		phys, hashCol.phys, sqlType(hashCol.kind),
	)
	pk := hashCol.phys
	if keys.Range != nil {
		rangeCol := &column{
			name: keys.Range.Name,
			phys: ident.MustSanitize(keys.Range.Name),
			kind: keys.Range.Kind,
			key:  true,
		}
		ts.cols[rangeCol.name] = rangeCol
		ddl += fmt.Sprintf(", %s %s NOT NULL", rangeCol.phys, sqlType(rangeCol.kind))
		pk += ", " + rangeCol.phys
	}
	ddl += fmt.Sprintf(", PRIMARY KEY (%s))", pk)

	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}

	var rangeName, rangeKind any
	if keys.Range != nil {
		rangeName, rangeKind = keys.Range.Name, string(keys.Range.Kind)
	}
	if _, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO mk_tables
			(name, phys, hash_name, hash_kind, range_name, range_kind)
			VALUES (?, ?, ?, ?, ?, ?)`,
		table, phys, keys.Hash.Name, string(keys.Hash.Kind), rangeName, rangeKind,
	); err != nil {
		return fmt.Errorf("register table %q: %w", table, err)
	}
	for _, col := range ts.cols {
		if err := d.saveColumn(ctx, ts, col); err != nil {
			return err
		}
	}
	d.tables[table] = ts

	if err := d.declareColumns(ctx, ts, attrs); err != nil {
		return err
	}
	d.log.Debug().Str("table", table).Str("phys", phys).Msg("table ensured")
	return nil
}

// declareColumns records pre-declared attribute names. Their physical
// columns are deferred until the first write reveals the value kind.
func (d *Data) declareColumns(ctx context.Context, ts *tableSchema, attrs []string) error {
	for _, name := range attrs {
		if _, ok := ts.cols[name]; ok {
			continue
		}
		phys, err := ident.Sanitize(name)
		if err != nil {
			return dynerrors.NewTableSchemaError(ts.name, err.Error())
		}
		col := &column{name: name, phys: phys}
		if err := d.saveColumn(ctx, ts, col); err != nil {
			return err
		}
		ts.cols[name] = col
	}
	return nil
}

func (d *Data) saveColumn(ctx context.Context, ts *tableSchema, col *column) error {
	isKey := 0
	if col.key {
		isKey = 1
	}
	if _, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO mk_columns (table_name, name, phys, kind, is_key)
			VALUES (?, ?, ?, ?, ?)`,
		ts.name, col.name, col.phys, string(col.kind), isKey,
	); err != nil {
		return fmt.Errorf("register column %q of %q: %w", col.name, ts.name, err)
	}
	return nil
}

// ensureColumn extends the schema when an attribute is first written, and
// enforces kind stability afterwards.
func (d *Data) ensureColumn(ctx context.Context, table, attr string, kind dynamo.Kind) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ts, ok := d.tables[table]
	if !ok {
		return fmt.Errorf("table %q: %w", table, dynerrors.ErrTableNotFound)
	}
	col, ok := ts.cols[attr]
	if ok && col.materialized() {
		if col.kind != kind {
			return dynerrors.NewTypeMismatchError(table, attr, string(col.kind), string(kind))
		}
		return nil
	}
	if !ok {
		phys, err := ident.Sanitize(attr)
		if err != nil {
			return dynerrors.NewTableSchemaError(table, err.Error())
		}
		col = &column{name: attr, phys: phys}
		ts.cols[attr] = col
	}

	// Racing writers of the same new attribute serialize on d.mu, so the
	// ALTER below runs exactly once per column.
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", ts.phys, col.phys, sqlType(kind))
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("add column %q to %q: %w", attr, table, err)
	}
	col.kind = kind
	if err := d.saveColumn(ctx, ts, col); err != nil {
		return err
	}
	d.log.Debug().Str("table", table).Str("attribute", attr).Str("kind", string(kind)).Msg("column added")
	return nil
}

// DropTable removes the table, its rows and its catalog entries.
func (d *Data) DropTable(ctx context.Context, table string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ts, ok := d.tables[table]
	if !ok {
		return fmt.Errorf("table %q: %w", table, dynerrors.ErrTableNotFound)
	}
	if _, err := d.db.ExecContext(ctx, "DROP TABLE "+ts.phys); err != nil {
		return fmt.Errorf("drop table %q: %w", table, err)
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM mk_tables WHERE name = ?`, table); err != nil {
		return err
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM mk_columns WHERE table_name = ?`, table); err != nil {
		return err
	}
	delete(d.tables, table)
	return nil
}

// sqlType maps a value kind onto a column type whose affinity gives the
// right comparison semantics: numeric for N, byte-wise for S and B. NULL
// attributes store a presence flag, which keeps an explicit null value
// distinct from an absent attribute (SQL NULL).
func sqlType(kind dynamo.Kind) string {
	switch kind {
	case dynamo.KindN:
		return "NUMERIC"
	case dynamo.KindBOOL, dynamo.KindNULL:
		return "INTEGER"
	case dynamo.KindB:
		return "BLOB"
	default:
		return "TEXT"
	}
}
