package deletion

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/recall/pkg/errs"
	"github.com/theapemachine/recall/pkg/ledger"
)

// mockGraphStore implements the GraphStore interface for testing
type mockGraphStore struct {
	present     map[string]bool
	deleteCalls [][]string
}

func newMockGraphStore() *mockGraphStore {
	return &mockGraphStore{present: make(map[string]bool)}
}

func (m *mockGraphStore) DeleteNodes(ctx context.Context, slugs []string) error {
	m.deleteCalls = append(m.deleteCalls, slugs)
	for _, slug := range slugs {
		delete(m.present, slug)
	}
	return nil
}

func (m *mockGraphStore) GetNodes(ctx context.Context, slugs []string) ([]string, error) {
	var found []string
	for _, slug := range slugs {
		if m.present[slug] {
			found = append(found, slug)
		}
	}
	return found, nil
}

func (m *mockGraphStore) Prune(ctx context.Context) error {
	m.present = make(map[string]bool)
	return nil
}

// mockVectorStore implements the VectorStore interface for testing
type mockVectorStore struct {
	collections map[string]bool
	deleteCalls map[string][][]string
}

func newMockVectorStore(collections ...string) *mockVectorStore {
	store := &mockVectorStore{
		collections: make(map[string]bool),
		deleteCalls: make(map[string][][]string),
	}
	for _, collection := range collections {
		store.collections[collection] = true
	}
	return store
}

func (m *mockVectorStore) HasCollection(ctx context.Context, name string) (bool, error) {
	return m.collections[name], nil
}

func (m *mockVectorStore) DeleteDataPoints(ctx context.Context, collection string, ids []string) error {
	if !m.collections[collection] {
		return fmt.Errorf("%w: %s", errs.ErrCollectionNotFound, collection)
	}
	m.deleteCalls[collection] = append(m.deleteCalls[collection], ids)
	return nil
}

func (m *mockVectorStore) Prune(ctx context.Context) error {
	m.collections = make(map[string]bool)
	return nil
}

func testStore(t *testing.T) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Setup(context.Background()))
	return store
}

func entity(name string) ledger.Node {
	return ledger.Node{
		Slug:          ledger.Slug(name),
		Label:         name,
		Type:          "Entity",
		IndexedFields: []string{"name"},
	}
}

func relationship(source, name, destination string) ledger.Edge {
	return ledger.Edge{
		SourceNodeID:      ledger.Slug(source),
		DestinationNodeID: ledger.Slug(destination),
		RelationshipName:  name,
	}
}

func TestDeleteDataEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	graph := newMockGraphStore()
	vector := newMockVectorStore("Entity_name", EdgeCollection, TripletCollection)

	userID, datasetID, dataID := uuid.New(), uuid.New(), uuid.New()

	nodes := []ledger.Node{entity("alpha"), entity("beta"), entity("gamma")}
	edges := []ledger.Edge{
		relationship("alpha", "knows", "beta"),
		relationship("beta", "contains", "gamma"),
	}
	require.NoError(t, store.UpsertNodes(ctx, nodes, userID, datasetID, dataID))
	require.NoError(t, store.UpsertEdges(ctx, edges, userID, datasetID, dataID))

	orchestrator := New(store, graph, vector, false)
	require.NoError(t, orchestrator.DeleteData(ctx, datasetID, dataID, userID))

	// Exactly one graph delete with one slug per unique node
	require.Len(t, graph.deleteCalls, 1)
	assert.Len(t, graph.deleteCalls[0], 3)

	// One vector delete per collection bucket
	require.Len(t, vector.deleteCalls["Entity_name"], 1)
	assert.Len(t, vector.deleteCalls["Entity_name"][0], 3)
	require.Len(t, vector.deleteCalls[EdgeCollection], 1)
	assert.Len(t, vector.deleteCalls[EdgeCollection][0], 2)
	require.Len(t, vector.deleteCalls[TripletCollection], 1)
	assert.Len(t, vector.deleteCalls[TripletCollection][0], 2)

	// No ownership rows survive for the scope
	exists, err := store.HasRelatedToData(ctx, datasetID, dataID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	graph := newMockGraphStore()
	vector := newMockVectorStore("Entity_name", EdgeCollection)

	userID, datasetID, dataID := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, store.UpsertNodes(ctx, []ledger.Node{entity("alpha")}, userID, datasetID, dataID))

	orchestrator := New(store, graph, vector, false)
	require.NoError(t, orchestrator.DeleteData(ctx, datasetID, dataID, userID))
	require.Len(t, graph.deleteCalls, 1)

	// Second call finds nothing and touches no engine
	require.NoError(t, orchestrator.DeleteData(ctx, datasetID, dataID, userID))
	assert.Len(t, graph.deleteCalls, 1)
	assert.Len(t, vector.deleteCalls["Entity_name"], 1)
}

func TestDeleteDataMissingTripletCollectionTolerated(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	graph := newMockGraphStore()
	vector := newMockVectorStore("Entity_name", EdgeCollection) // no triplets yet

	userID, datasetID, dataID := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, store.UpsertNodes(ctx, []ledger.Node{entity("alpha")}, userID, datasetID, dataID))
	require.NoError(t, store.UpsertEdges(ctx,
		[]ledger.Edge{relationship("alpha", "knows", "alpha")}, userID, datasetID, dataID))

	orchestrator := New(store, graph, vector, false)
	require.NoError(t, orchestrator.DeleteData(ctx, datasetID, dataID, userID))
	assert.Empty(t, vector.deleteCalls[TripletCollection])
}

func TestDeleteDataMissingEntityCollectionPropagates(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	graph := newMockGraphStore()
	vector := newMockVectorStore(EdgeCollection) // Entity_name missing

	userID, datasetID, dataID := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, store.UpsertNodes(ctx, []ledger.Node{entity("alpha")}, userID, datasetID, dataID))

	orchestrator := New(store, graph, vector, false)
	err := orchestrator.DeleteData(ctx, datasetID, dataID, userID)
	assert.ErrorIs(t, err, errs.ErrCollectionNotFound)
}

func TestDeleteDataSkipsLegacyContent(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	graph := newMockGraphStore()
	vector := newMockVectorStore("Entity_name", EdgeCollection)

	userID, datasetID, dataID := uuid.New(), uuid.New(), uuid.New()

	legacy := entity("old-entity")
	tracked := entity("new-entity")
	require.NoError(t, store.UpsertNodes(ctx, []ledger.Node{legacy, tracked}, userID, datasetID, dataID))
	require.NoError(t, store.RecordLegacyNode(ctx, legacy.Slug, "Entity", "add_nodes_and_edges", userID))

	orchestrator := New(store, graph, vector, false)
	require.NoError(t, orchestrator.DeleteData(ctx, datasetID, dataID, userID))

	// The legacy slug never reaches the engines
	require.Len(t, graph.deleteCalls, 1)
	assert.Equal(t, []string{tracked.Slug.String()}, graph.deleteCalls[0])
	require.Len(t, vector.deleteCalls["Entity_name"], 1)
	assert.Equal(t, []string{tracked.Slug.String()}, vector.deleteCalls["Entity_name"][0])

	// Ownership rows are gone for the whole scope, legacy included
	exists, err := store.HasRelatedToData(ctx, datasetID, dataID)
	require.NoError(t, err)
	assert.False(t, exists)

	// The untouched legacy row still vetoes future deletes
	flags, err := store.NodesAreLegacy(ctx, []ledger.Node{legacy})
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, flags)
}

func TestStaleLegacyFlagClearedWhenNodeLeftGraph(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	graph := newMockGraphStore() // node not present in the graph
	vector := newMockVectorStore("Entity_name", EdgeCollection)

	userID, datasetID, dataID := uuid.New(), uuid.New(), uuid.New()

	node := entity("stale-entity")
	require.NoError(t, store.UpsertNodes(ctx, []ledger.Node{node}, userID, datasetID, dataID))
	require.NoError(t, store.RecordLegacyNode(ctx, node.Slug, "Entity", "add_nodes_and_edges", userID))

	// Isolation active: the stale legacy row is only trusted if the node
	// still physically exists
	orchestrator := New(store, graph, vector, true)
	require.NoError(t, orchestrator.DeleteData(ctx, datasetID, dataID, userID))

	require.Len(t, graph.deleteCalls, 1)
	assert.Equal(t, []string{node.Slug.String()}, graph.deleteCalls[0])
}

func TestDeleteDatasetAlwaysClearsOwnershipRows(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	graph := newMockGraphStore()
	vector := newMockVectorStore("Entity_name", EdgeCollection)

	userID := uuid.New()
	datasetA, datasetB := uuid.New(), uuid.New()

	// Dataset A consists entirely of content shared with dataset B
	shared := entity("shared")
	require.NoError(t, store.UpsertNodes(ctx, []ledger.Node{shared}, userID, datasetA, uuid.New()))
	require.NoError(t, store.UpsertNodes(ctx, []ledger.Node{shared}, userID, datasetB, uuid.New()))

	orchestrator := New(store, graph, vector, false)
	require.NoError(t, orchestrator.DeleteDataset(ctx, datasetA, userID))

	// Nothing was uniquely owned, so the engines saw no deletes
	assert.Empty(t, graph.deleteCalls)

	// Dataset A's ownership rows are gone regardless
	nodes, err := store.NodesRelatedToDataset(ctx, datasetA)
	require.NoError(t, err)
	assert.Empty(t, nodes)

	// Dataset B still owns the shared content
	nodes, err = store.NodesRelatedToDataset(ctx, datasetB)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestDeleteDatasetRemovesUniqueContent(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	graph := newMockGraphStore()
	vector := newMockVectorStore("Entity_name", EdgeCollection, TripletCollection)

	userID, datasetID := uuid.New(), uuid.New()

	require.NoError(t, store.UpsertNodes(ctx,
		[]ledger.Node{entity("alpha"), entity("beta")}, userID, datasetID, uuid.New()))
	require.NoError(t, store.UpsertEdges(ctx,
		[]ledger.Edge{relationship("alpha", "knows", "beta")}, userID, datasetID, uuid.New()))

	orchestrator := New(store, graph, vector, true)
	require.NoError(t, orchestrator.DeleteDataset(ctx, datasetID, userID))

	require.Len(t, graph.deleteCalls, 1)
	assert.Len(t, graph.deleteCalls[0], 2)
	require.Len(t, vector.deleteCalls[EdgeCollection], 1)
	assert.Len(t, vector.deleteCalls[TripletCollection], 1)
}
