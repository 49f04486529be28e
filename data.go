package dynamo

import "context"

// DefaultMaxIterations is the iterator advance cap applied by backends
// when their options leave the cap at zero. It exists to turn runaway
// iteration loops in calling code into ErrTooManyIterations instead of a
// hang.
const DefaultMaxIterations = 100000

// Data is a storage engine for the emulation. Implementations are passive
// libraries: no internal threading, every operation synchronous and safe
// for concurrent callers. Schema creation is idempotent and safe to race
// from multiple goroutines creating the same table or column.
//
// The sqldata and kvdata packages provide the implementations.
type Data interface {
	// EnsureTable creates the table on first call and is a no-op when the
	// table already exists with an identical key schema. Redefining an
	// existing table with a different schema fails with
	// ErrInvalidTableSchema. The attrs list pre-declares non-key
	// attribute names; any further attribute is added lazily when first
	// written.
	EnsureTable(ctx context.Context, table string, keys KeySchema, attrs ...string) error

	// Put upserts the row identified by the key attributes inside attrs,
	// replacing the stored attribute set wholesale. Attributes omitted
	// from attrs are cleared from an existing row.
	Put(ctx context.Context, table string, attrs Attributes) error

	// Update replaces individual attributes of the row matching the key.
	// Attributes outside updates keep their values. A missing row fails
	// with ErrItemNotFound unless the backend is configured to upsert.
	Update(ctx context.Context, table string, keys Attributes, updates AttributeUpdates) error

	// Delete removes at most one row by full key match. Deleting an
	// absent key is not an error.
	Delete(ctx context.Context, table string, keys Attributes) error

	// Iterate lazily executes the AND-combined conditions against the
	// table. Rows are fetched as the caller advances; abandoning the
	// iterator early issues no further fetches. The caller owns Close.
	Iterate(ctx context.Context, table string, conds Conditions) (Iterator, error)

	// DropTable removes the table and its rows. Exists for teardown;
	// dropping an unknown table fails with ErrTableNotFound.
	DropTable(ctx context.Context, table string) error

	// Close releases the underlying engine.
	Close() error
}

// Iterator is a finite, single-pass, removable sequence of rows.
type Iterator interface {
	// Next produces the next row, decoded to attribute values. Past the
	// last row it fails with ErrNoSuchElement; past the advance cap it
	// fails with ErrTooManyIterations.
	Next() (Attributes, error)

	// Remove deletes the row most recently produced by Next, keyed by
	// that row's full key, without disturbing the position of rows still
	// to come. Before any Next, or called twice for one row, it fails
	// with ErrIllegalIteratorState.
	Remove(ctx context.Context) error

	// Close releases the underlying cursor. Safe to call more than once.
	Close() error
}
