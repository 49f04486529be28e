// Package dynamo is an in-process emulation of a hash/range-key table
// store. Callers create tables with a declared key schema, write attribute
// sets, and iterate rows filtered by per-attribute conditions, without
// contacting a remote service. Rows are plain maps of AWS SDK v2
// AttributeValue unions, so code written against this package reads the
// same as code written against the real service client.
//
// The package itself only defines the vocabulary (Attributes, Conditions,
// KeySchema) and the Region/Table/Frame facade. Storage lives behind the
// Data interface; sqldata backs it with SQLite and kvdata with
// BadgerDB. Both run purely in memory unless a file path is configured.
//
//	data, _ := sqldata.New(sqldata.Options{})
//	region := dynamo.NewRegion(data)
//	tbl := region.Table("users")
//	_ = tbl.EnsureCreated(ctx, dynamo.KeySchema{
//		Hash: dynamo.KeyDef{Name: "id", Kind: dynamo.KindN},
//	})
//	_ = tbl.Put(ctx, dynamo.NewAttributes().With("id", 43).With("name", "Kevin"))
//	it, _ := tbl.Frame().Where("id", dynamo.EqualTo(43)).Iter(ctx)
package dynamo
