package dynamo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySchemaValidate(t *testing.T) {
	t.Run("hash only", func(t *testing.T) {
		keys := KeySchema{Hash: KeyDef{Name: "id", Kind: KindS}}
		require.NoError(t, keys.Validate())
	})

	t.Run("hash and range", func(t *testing.T) {
		keys := HashAndRange(
			KeyDef{Name: "id", Kind: KindN},
			KeyDef{Name: "rev", Kind: KindS},
		)
		require.NoError(t, keys.Validate())
	})

	t.Run("unnamed hash key", func(t *testing.T) {
		keys := KeySchema{Hash: KeyDef{Kind: KindS}}
		require.Error(t, keys.Validate())
	})

	t.Run("bool cannot be a key", func(t *testing.T) {
		keys := KeySchema{Hash: KeyDef{Name: "flag", Kind: KindBOOL}}
		require.Error(t, keys.Validate())
	})

	t.Run("range duplicating hash", func(t *testing.T) {
		keys := HashAndRange(
			KeyDef{Name: "id", Kind: KindS},
			KeyDef{Name: "id", Kind: KindS},
		)
		require.Error(t, keys.Validate())
	})
}

func TestKeySchemaEqual(t *testing.T) {
	hashOnly := KeySchema{Hash: KeyDef{Name: "id", Kind: KindS}}
	withRange := HashAndRange(KeyDef{Name: "id", Kind: KindS}, KeyDef{Name: "rev", Kind: KindN})

	assert.True(t, hashOnly.Equal(KeySchema{Hash: KeyDef{Name: "id", Kind: KindS}}))
	assert.False(t, hashOnly.Equal(withRange))
	assert.False(t, hashOnly.Equal(KeySchema{Hash: KeyDef{Name: "id", Kind: KindN}}))
	assert.True(t, withRange.Equal(HashAndRange(KeyDef{Name: "id", Kind: KindS}, KeyDef{Name: "rev", Kind: KindN})))
}

func TestKeySchemaNames(t *testing.T) {
	keys := HashAndRange(KeyDef{Name: "id", Kind: KindS}, KeyDef{Name: "rev", Kind: KindN})
	assert.Equal(t, []string{"id", "rev"}, keys.Names())
}

func TestKeySchemaExtractKey(t *testing.T) {
	keys := HashAndRange(KeyDef{Name: "id", Kind: KindS}, KeyDef{Name: "rev", Kind: KindN})

	t.Run("extracts both components and drops the rest", func(t *testing.T) {
		row := NewAttributes().With("id", "a").With("rev", 1).With("data", "x")
		key, err := keys.ExtractKey(row)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "rev"}, key.Names())
	})

	t.Run("missing component", func(t *testing.T) {
		_, err := keys.ExtractKey(NewAttributes().With("id", "a"))
		require.Error(t, err)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		_, err := keys.ExtractKey(NewAttributes().With("id", "a").With("rev", "one"))
		require.Error(t, err)
	})
}
