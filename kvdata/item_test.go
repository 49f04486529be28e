package kvdata

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dynamo "github.com/sffej/jcabi-dynamo"
)

func TestItemSerialization(t *testing.T) {
	t.Run("empty sets survive the codec", func(t *testing.T) {
		item := dynamo.NewAttributes().
			With("tags", &types.AttributeValueMemberSS{Value: []string{}}).
			With("scores", &types.AttributeValueMemberNS{Value: []string{}})

		raw, err := serializeItem(item)
		require.NoError(t, err)
		back, err := deserializeItem(raw)
		require.NoError(t, err)

		require.Contains(t, back, "tags")
		assert.Empty(t, back["tags"].(*types.AttributeValueMemberSS).Value)
		assert.NotNil(t, back["tags"].(*types.AttributeValueMemberSS).Value)
		require.Contains(t, back, "scores")
		assert.Empty(t, back["scores"].(*types.AttributeValueMemberNS).Value)
	})

	t.Run("control characters and multi-byte text", func(t *testing.T) {
		item := dynamo.NewAttributes().With("s", "œ∂ß\x00\x1f\n")
		raw, err := serializeItem(item)
		require.NoError(t, err)
		back, err := deserializeItem(raw)
		require.NoError(t, err)

		eq, err := item.Equal(back)
		require.NoError(t, err)
		assert.True(t, eq)
	})
}
