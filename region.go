package dynamo

import "context"

// Region is the entry point of the emulation, the in-process stand-in for
// a deployment region of the remote service. It is a thin facade over a
// Data engine; multiple independent regions (each with its own engine)
// can coexist in one process, which keeps parallel tests isolated.
type Region struct {
	data Data
}

// NewRegion wraps a storage engine. The region does not take ownership of
// the engine; closing it is the caller's job.
func NewRegion(data Data) *Region {
	return &Region{data: data}
}

// Table returns a handle on the named table. The handle is cheap and
// stateless; the table itself need not exist until EnsureCreated runs.
func (r *Region) Table(name string) *Table {
	return &Table{data: r.data, name: name}
}

// Data exposes the underlying engine, mainly for teardown.
func (r *Region) Data() Data {
	return r.data
}

// Table is a handle on one named table of a region.
type Table struct {
	data Data
	name string
}

// Name returns the caller-supplied table name.
func (t *Table) Name() string {
	return t.name
}

// EnsureCreated creates the table with the given key schema if it does
// not exist yet. Idempotent for an identical schema; a different schema
// for an existing table fails with ErrInvalidTableSchema.
func (t *Table) EnsureCreated(ctx context.Context, keys KeySchema, attrs ...string) error {
	return t.data.EnsureTable(ctx, t.name, keys, attrs...)
}

// Put upserts one row, replacing the stored attribute set wholesale.
func (t *Table) Put(ctx context.Context, attrs Attributes) error {
	return t.data.Put(ctx, t.name, attrs)
}

// Update replaces individual attributes of the row matching the key.
func (t *Table) Update(ctx context.Context, keys Attributes, updates AttributeUpdates) error {
	return t.data.Update(ctx, t.name, keys, updates)
}

// Delete removes the row matching the key, if any.
func (t *Table) Delete(ctx context.Context, keys Attributes) error {
	return t.data.Delete(ctx, t.name, keys)
}

// Drop removes the table and its rows.
func (t *Table) Drop(ctx context.Context) error {
	return t.data.DropTable(ctx, t.name)
}

// Frame starts an unfiltered query over the table.
func (t *Table) Frame() *Frame {
	return &Frame{table: t, conds: NewConditions()}
}
