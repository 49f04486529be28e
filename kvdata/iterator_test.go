package kvdata

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dynamo "github.com/sffej/jcabi-dynamo"
	dynerrors "github.com/sffej/jcabi-dynamo/errors"
)

func collectIDs(t *testing.T, d *Data, conds dynamo.Conditions) []string {
	t.Helper()
	it, err := d.Iterate(context.Background(), "users", conds)
	require.NoError(t, err)
	defer it.Close()
	var ids []string
	for {
		row, err := it.Next()
		if dynerrors.IsNoSuchElement(err) {
			return ids
		}
		require.NoError(t, err)
		ids = append(ids, row["id"].(*types.AttributeValueMemberS).Value)
	}
}

func TestIterateConditions(t *testing.T) {
	ctx := context.Background()

	t.Run("rows come back in key order", func(t *testing.T) {
		d := newTestData(t, Options{})
		seedUsers(t, d, user("b", 1), user("a", 2), user("a", 1))

		it, err := d.Iterate(ctx, "users", dynamo.NewConditions())
		require.NoError(t, err)
		defer it.Close()

		var got []string
		for {
			row, err := it.Next()
			if dynerrors.IsNoSuchElement(err) {
				break
			}
			require.NoError(t, err)
			got = append(got,
				row["id"].(*types.AttributeValueMemberS).Value+"/"+
					row["rev"].(*types.AttributeValueMemberN).Value)
		}
		assert.Equal(t, []string{"a/1", "a/2", "b/1"}, got)
	})

	t.Run("range conditions compare numerically", func(t *testing.T) {
		d := newTestData(t, Options{})
		seedUsers(t, d,
			user("a", 1).With("age", 9),
			user("b", 1).With("age", 10),
			user("c", 1).With("age", 30),
		)

		ids := collectIDs(t, d, dynamo.NewConditions().With("age", dynamo.GreaterThan(9)))
		assert.Equal(t, []string{"b", "c"}, ids)
	})

	t.Run("begins-with and contains", func(t *testing.T) {
		d := newTestData(t, Options{})
		seedUsers(t, d,
			user("a", 1).With("city", "lisbon"),
			user("b", 1).With("city", "liverpool"),
			user("c", 1).With("city", "oslo"),
		)

		ids := collectIDs(t, d, dynamo.NewConditions().With("city", dynamo.BeginsWith("li")))
		assert.Equal(t, []string{"a", "b"}, ids)

		ids = collectIDs(t, d, dynamo.NewConditions().With("city", dynamo.Contains("sbo")))
		assert.Equal(t, []string{"a"}, ids)
	})

	t.Run("rows missing the attribute never match", func(t *testing.T) {
		d := newTestData(t, Options{})
		seedUsers(t, d,
			user("a", 1).With("city", "lisbon"),
			user("b", 1),
		)

		ids := collectIDs(t, d, dynamo.NewConditions().With("city",
			dynamo.Condition{Op: dynamo.OpNotEqual, Value: &types.AttributeValueMemberS{Value: "porto"}}))
		assert.Equal(t, []string{"a"}, ids)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		d := newTestData(t, Options{})
		seedUsers(t, d, user("a", 1))

		_, err := d.Iterate(ctx, "users",
			dynamo.NewConditions().With("ghost", dynamo.EqualTo("x")))
		assert.ErrorIs(t, err, dynerrors.ErrAttributeNotIndexed)
	})

	t.Run("declared but unwritten attribute matches nothing", func(t *testing.T) {
		d := newTestData(t, Options{})
		require.NoError(t, d.EnsureTable(ctx, "users", userKeys, "email"))
		require.NoError(t, d.Put(ctx, "users", user("a", 1)))

		ids := collectIDs(t, d, dynamo.NewConditions().With("email", dynamo.EqualTo("x")))
		assert.Empty(t, ids)
	})

	t.Run("condition kind mismatch", func(t *testing.T) {
		d := newTestData(t, Options{})
		seedUsers(t, d, user("a", 1).With("age", 30))

		_, err := d.Iterate(ctx, "users",
			dynamo.NewConditions().With("age", dynamo.EqualTo("thirty")))
		assert.ErrorIs(t, err, dynerrors.ErrAttributeTypeMismatch)
	})
}

func TestIteratorLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("next past the end", func(t *testing.T) {
		d := newTestData(t, Options{})
		seedUsers(t, d, user("a", 1))

		it, err := d.Iterate(ctx, "users", dynamo.NewConditions())
		require.NoError(t, err)
		defer it.Close()

		_, err = it.Next()
		require.NoError(t, err)
		_, err = it.Next()
		assert.ErrorIs(t, err, dynerrors.ErrNoSuchElement)
	})

	t.Run("next after close", func(t *testing.T) {
		d := newTestData(t, Options{})
		seedUsers(t, d, user("a", 1))

		it, err := d.Iterate(ctx, "users", dynamo.NewConditions())
		require.NoError(t, err)
		require.NoError(t, it.Close())
		_, err = it.Next()
		assert.ErrorIs(t, err, dynerrors.ErrNoSuchElement)
	})

	t.Run("advance cap trips before the rows run out", func(t *testing.T) {
		d := newTestData(t, Options{MaxIterations: 2})
		seedUsers(t, d, user("a", 1), user("b", 1), user("c", 1))

		it, err := d.Iterate(ctx, "users", dynamo.NewConditions())
		require.NoError(t, err)
		defer it.Close()

		_, err = it.Next()
		require.NoError(t, err)
		_, err = it.Next()
		require.NoError(t, err)
		_, err = it.Next()
		assert.ErrorIs(t, err, dynerrors.ErrTooManyIterations)
	})
}

func TestIteratorRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("remove before any next", func(t *testing.T) {
		d := newTestData(t, Options{})
		seedUsers(t, d, user("a", 1))

		it, err := d.Iterate(ctx, "users", dynamo.NewConditions())
		require.NoError(t, err)
		defer it.Close()

		assert.ErrorIs(t, it.Remove(ctx), dynerrors.ErrIllegalIteratorState)
	})

	t.Run("double remove of one row", func(t *testing.T) {
		d := newTestData(t, Options{})
		seedUsers(t, d, user("a", 1))

		it, err := d.Iterate(ctx, "users", dynamo.NewConditions())
		require.NoError(t, err)
		defer it.Close()

		_, err = it.Next()
		require.NoError(t, err)
		require.NoError(t, it.Remove(ctx))
		assert.ErrorIs(t, it.Remove(ctx), dynerrors.ErrIllegalIteratorState)
	})

	t.Run("remove does not disturb the rows still to come", func(t *testing.T) {
		d := newTestData(t, Options{})
		seedUsers(t, d, user("a", 1), user("b", 1), user("c", 1))

		it, err := d.Iterate(ctx, "users", dynamo.NewConditions())
		require.NoError(t, err)
		defer it.Close()

		var seen []string
		for {
			row, err := it.Next()
			if dynerrors.IsNoSuchElement(err) {
				break
			}
			require.NoError(t, err)
			seen = append(seen, row["id"].(*types.AttributeValueMemberS).Value)
			require.NoError(t, it.Remove(ctx))
		}
		assert.Equal(t, []string{"a", "b", "c"}, seen)
		assert.Equal(t, 0, countRows(t, d, "users", dynamo.NewConditions()))
	})
}
