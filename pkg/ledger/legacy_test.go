package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/recall/pkg/errs"
)

func TestNodesAreLegacy(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	userID := uuid.New()

	legacy := testNode("old-entity", "Entity", "name")
	tracked := testNode("new-entity", "Entity", "name")

	require.NoError(t, store.RecordLegacyNode(ctx, legacy.Slug, "Entity", "add_nodes_and_edges", userID))

	flags, err := store.NodesAreLegacy(ctx, []Node{legacy, tracked})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, flags)
}

func TestEdgesAreLegacyMatchesCreatorSuffix(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	userID := uuid.New()

	require.NoError(t, store.RecordLegacyEdge(ctx,
		Slug("a"), Slug("b"), "tasks.storage.add_contains", userID))

	flags, err := store.EdgesAreLegacy(ctx, []Edge{
		{RelationshipName: "contains"},
		{RelationshipName: "mentions"},
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, flags)
}

func TestSoftDeleteLegacyRows(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	userID := uuid.New()

	node := testNode("old-entity", "Entity", "name")
	require.NoError(t, store.RecordLegacyNode(ctx, node.Slug, "Entity", "add_nodes_and_edges", userID))

	require.NoError(t, store.SoftDeleteLegacyRows(ctx, []uuid.UUID{node.Slug}))

	// A soft-deleted row no longer vetoes deletion
	flags, err := store.NodesAreLegacy(ctx, []Node{node})
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, flags)
}

func TestSoftDeleteLegacyRowsEmptyInput(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.SoftDeleteLegacyRows(context.Background(), nil))
}

func TestMissingTablesSurfaceAsMetadataAbsent(t *testing.T) {
	ctx := context.Background()

	// No Setup call: fresh database without tables
	store, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.NodesAreLegacy(ctx, []Node{testNode("alpha", "Entity")})
	assert.ErrorIs(t, err, errs.ErrMetadataAbsent)

	_, err = store.AllDatasetDatabases(ctx)
	assert.ErrorIs(t, err, errs.ErrMetadataAbsent)
}
