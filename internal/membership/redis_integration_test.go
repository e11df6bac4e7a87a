package membership_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowra/apps/indexer/internal/membership"
	"knowra/apps/indexer/internal/testutils"
)

func TestRedisStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.SetupRedis()
	defer suite.Teardown()

	store := membership.NewRedisStore(suite.Redis)
	ctx := context.Background()

	t.Run("Diff Against Empty Set", func(t *testing.T) {
		toAdd, toDelete, err := store.Diff(ctx, "doc-empty", []string{"a", "b"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, toAdd)
		assert.Empty(t, toDelete)
	})

	t.Run("Commit Then Diff", func(t *testing.T) {
		require.NoError(t, store.Commit(ctx, "doc-1", []string{"a", "b", "c"}, nil))

		// Unchanged candidates produce an empty diff.
		toAdd, toDelete, err := store.Diff(ctx, "doc-1", []string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Empty(t, toAdd)
		assert.Empty(t, toDelete)

		// One chunk replaced by another.
		toAdd, toDelete, err = store.Diff(ctx, "doc-1", []string{"a", "b", "d"})
		require.NoError(t, err)
		assert.Equal(t, []string{"d"}, toAdd)
		assert.Equal(t, []string{"c"}, toDelete)
	})

	t.Run("Commit Applies Adds And Removes Atomically", func(t *testing.T) {
		require.NoError(t, store.Commit(ctx, "doc-2", []string{"x", "y"}, nil))
		require.NoError(t, store.Commit(ctx, "doc-2", []string{"z"}, []string{"x"}))

		members, err := store.ReadAll(ctx, "doc-2")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"y", "z"}, members)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Commit(ctx, "doc-3", []string{"a"}, nil))
		require.NoError(t, store.Clear(ctx, "doc-3"))

		members, err := store.ReadAll(ctx, "doc-3")
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("ReadAll Unknown Document", func(t *testing.T) {
		members, err := store.ReadAll(ctx, "doc-unknown")
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("Documents Are Isolated", func(t *testing.T) {
		require.NoError(t, store.Commit(ctx, "doc-a", []string{"1"}, nil))
		require.NoError(t, store.Commit(ctx, "doc-b", []string{"2"}, nil))

		members, err := store.ReadAll(ctx, "doc-a")
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, members)
	})
}
