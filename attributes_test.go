package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesWith(t *testing.T) {
	t.Run("native values marshal to the right kinds", func(t *testing.T) {
		attrs := NewAttributes().
			With("name", "alice").
			With("age", 30).
			With("score", 1.5).
			With("active", true).
			With("blob", []byte{0xde, 0xad})

		assert.Equal(t, &types.AttributeValueMemberS{Value: "alice"}, attrs["name"])
		assert.Equal(t, &types.AttributeValueMemberN{Value: "30"}, attrs["age"])
		assert.Equal(t, &types.AttributeValueMemberN{Value: "1.5"}, attrs["score"])
		assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, attrs["active"])
		assert.Equal(t, &types.AttributeValueMemberB{Value: []byte{0xde, 0xad}}, attrs["blob"])
	})

	t.Run("attribute values pass through unchanged", func(t *testing.T) {
		ss := &types.AttributeValueMemberSS{Value: []string{"a", "b"}}
		attrs := NewAttributes().With("tags", ss)
		assert.Same(t, ss, attrs["tags"])
	})

	t.Run("with does not mutate the receiver", func(t *testing.T) {
		base := NewAttributes().With("a", 1)
		extended := base.With("b", 2)
		assert.Len(t, base, 1)
		assert.Len(t, extended, 2)
	})

	t.Run("set rejects unsupported shapes", func(t *testing.T) {
		_, err := NewAttributes().Set("m", map[string]string{"k": "v"})
		require.Error(t, err)
	})
}

func TestAttributesNames(t *testing.T) {
	attrs := NewAttributes().With("b", 1).With("a", 2).With("c", 3)
	assert.Equal(t, []string{"a", "b", "c"}, attrs.Names())
}

func TestAttributesOnly(t *testing.T) {
	attrs := NewAttributes().With("a", 1).With("b", 2).With("c", 3)
	sub := attrs.Only("a", "c", "missing")
	assert.Equal(t, []string{"a", "c"}, sub.Names())
}

func TestAttributesEqual(t *testing.T) {
	t.Run("numeric payloads compare numerically", func(t *testing.T) {
		a := NewAttributes().With("n", &types.AttributeValueMemberN{Value: "1"})
		b := NewAttributes().With("n", &types.AttributeValueMemberN{Value: "1.0"})
		eq, err := a.Equal(b)
		require.NoError(t, err)
		assert.True(t, eq)
	})

	t.Run("extra attribute breaks equality", func(t *testing.T) {
		a := NewAttributes().With("n", 1)
		b := a.With("m", 2)
		eq, err := a.Equal(b)
		require.NoError(t, err)
		assert.False(t, eq)
	})
}

func TestAttributeUpdatesWith(t *testing.T) {
	u := NewAttributeUpdates().With("a", "x").With("b", 2)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "x"}, u["a"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "2"}, u["b"])
}
