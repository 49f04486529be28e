package schema_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dynamo "github.com/sffej/jcabi-dynamo"
	dynerrors "github.com/sffej/jcabi-dynamo/errors"
	"github.com/sffej/jcabi-dynamo/schema"
	"github.com/sffej/jcabi-dynamo/sqldata"
)

const sample = `
tables:
  - name: users
    hashKey: {name: id, kind: N}
    rangeKey: {name: rev, kind: S}
    attributes: [email, active]
  - name: sessions
    hashKey: {name: token, kind: S}
`

func TestParse(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		s, err := schema.Parse([]byte(sample))
		require.NoError(t, err)
		require.Len(t, s.Tables, 2)

		keys, err := s.Tables[0].KeySchema()
		require.NoError(t, err)
		assert.Equal(t, dynamo.KeyDef{Name: "id", Kind: dynamo.KindN}, keys.Hash)
		require.NotNil(t, keys.Range)
		assert.Equal(t, dynamo.KeyDef{Name: "rev", Kind: dynamo.KindS}, *keys.Range)
		assert.Equal(t, []string{"email", "active"}, s.Tables[0].Attributes)

		keys, err = s.Tables[1].KeySchema()
		require.NoError(t, err)
		assert.Nil(t, keys.Range)
	})

	t.Run("nameless table", func(t *testing.T) {
		_, err := schema.Parse([]byte("tables:\n  - hashKey: {name: id, kind: S}\n"))
		require.Error(t, err)
	})

	t.Run("bad key kind", func(t *testing.T) {
		_, err := schema.Parse([]byte("tables:\n  - name: t\n    hashKey: {name: id, kind: BOOL}\n"))
		require.Error(t, err)
	})

	t.Run("broken yaml", func(t *testing.T) {
		_, err := schema.Parse([]byte("tables: ["))
		require.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	s, err := schema.Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Tables, 2)

	_, err = schema.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	s, err := schema.Parse([]byte(sample))
	require.NoError(t, err)

	d, err := sqldata.New(sqldata.Options{})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, s.Apply(ctx, d))
	// Applying twice must be as idempotent as EnsureTable itself.
	require.NoError(t, s.Apply(ctx, d))

	require.NoError(t, d.Put(ctx, "sessions",
		dynamo.NewAttributes().With("token", "abc").With("ttl", 60)))

	// Conflicting redefinition surfaces the engine's schema error.
	conflict, err := schema.Parse([]byte("tables:\n  - name: sessions\n    hashKey: {name: token, kind: B}\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, conflict.Apply(ctx, d), dynerrors.ErrInvalidTableSchema)
}
