package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		av   types.AttributeValue
		want Kind
	}{
		{&types.AttributeValueMemberS{Value: "hello"}, KindS},
		{&types.AttributeValueMemberN{Value: "42"}, KindN},
		{&types.AttributeValueMemberBOOL{Value: true}, KindBOOL},
		{&types.AttributeValueMemberB{Value: []byte{0x01}}, KindB},
		{&types.AttributeValueMemberSS{Value: []string{"a"}}, KindSS},
		{&types.AttributeValueMemberNS{Value: []string{"1"}}, KindNS},
		{&types.AttributeValueMemberNULL{Value: true}, KindNULL},
	}
	for _, c := range cases {
		kind, err := KindOf(c.av)
		require.NoError(t, err)
		assert.Equal(t, c.want, kind)
	}

	t.Run("list is not part of the surface", func(t *testing.T) {
		_, err := KindOf(&types.AttributeValueMemberL{})
		require.Error(t, err)
	})

	t.Run("map is not part of the surface", func(t *testing.T) {
		_, err := KindOf(&types.AttributeValueMemberM{})
		require.Error(t, err)
	})
}

func TestNumber(t *testing.T) {
	t.Run("integer", func(t *testing.T) {
		f, err := Number("42")
		require.NoError(t, err)
		assert.Equal(t, 42.0, f)
	})

	t.Run("negative decimal", func(t *testing.T) {
		f, err := Number("-3.5")
		require.NoError(t, err)
		assert.Equal(t, -3.5, f)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Number("not a number")
		require.Error(t, err)
	})
}

func TestEqual(t *testing.T) {
	t.Run("numbers compare numerically", func(t *testing.T) {
		eq, err := Equal(
			&types.AttributeValueMemberN{Value: "1"},
			&types.AttributeValueMemberN{Value: "1.0"},
		)
		require.NoError(t, err)
		assert.True(t, eq)
	})

	t.Run("different kinds are never equal", func(t *testing.T) {
		eq, err := Equal(
			&types.AttributeValueMemberS{Value: "1"},
			&types.AttributeValueMemberN{Value: "1"},
		)
		require.NoError(t, err)
		assert.False(t, eq)
	})

	t.Run("string sets ignore member order", func(t *testing.T) {
		eq, err := Equal(
			&types.AttributeValueMemberSS{Value: []string{"b", "a"}},
			&types.AttributeValueMemberSS{Value: []string{"a", "b"}},
		)
		require.NoError(t, err)
		assert.True(t, eq)
	})

	t.Run("number sets compare numerically", func(t *testing.T) {
		eq, err := Equal(
			&types.AttributeValueMemberNS{Value: []string{"2", "1.0"}},
			&types.AttributeValueMemberNS{Value: []string{"1", "2"}},
		)
		require.NoError(t, err)
		assert.True(t, eq)
	})

	t.Run("set length mismatch", func(t *testing.T) {
		eq, err := Equal(
			&types.AttributeValueMemberSS{Value: []string{"a"}},
			&types.AttributeValueMemberSS{Value: []string{"a", "b"}},
		)
		require.NoError(t, err)
		assert.False(t, eq)
	})

	t.Run("null equals null", func(t *testing.T) {
		eq, err := Equal(
			&types.AttributeValueMemberNULL{Value: true},
			&types.AttributeValueMemberNULL{Value: true},
		)
		require.NoError(t, err)
		assert.True(t, eq)
	})

	t.Run("binary equality is byte-wise", func(t *testing.T) {
		eq, err := Equal(
			&types.AttributeValueMemberB{Value: []byte{0x01, 0x02}},
			&types.AttributeValueMemberB{Value: []byte{0x01, 0x02}},
		)
		require.NoError(t, err)
		assert.True(t, eq)
	})
}

func TestCompare(t *testing.T) {
	t.Run("strings order lexicographically", func(t *testing.T) {
		c, err := Compare(
			&types.AttributeValueMemberS{Value: "abc"},
			&types.AttributeValueMemberS{Value: "abd"},
		)
		require.NoError(t, err)
		assert.Equal(t, -1, c)
	})

	t.Run("numbers order numerically", func(t *testing.T) {
		// Lexicographically "9" > "10"; numerically it is the reverse.
		c, err := Compare(
			&types.AttributeValueMemberN{Value: "9"},
			&types.AttributeValueMemberN{Value: "10"},
		)
		require.NoError(t, err)
		assert.Equal(t, -1, c)
	})

	t.Run("cross-kind comparison is an error", func(t *testing.T) {
		_, err := Compare(
			&types.AttributeValueMemberS{Value: "1"},
			&types.AttributeValueMemberN{Value: "1"},
		)
		require.Error(t, err)
	})

	t.Run("bool has no ordering", func(t *testing.T) {
		_, err := Compare(
			&types.AttributeValueMemberBOOL{Value: true},
			&types.AttributeValueMemberBOOL{Value: false},
		)
		require.Error(t, err)
	})
}
