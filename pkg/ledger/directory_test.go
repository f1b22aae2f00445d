package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDatasetDatabase(datasetID uuid.UUID) *DatasetDatabase {
	return &DatasetDatabase{
		DatasetID:                    datasetID,
		OwnerID:                      uuid.New(),
		GraphDatabaseName:            datasetID.String() + ".kuzu",
		GraphDatabaseProvider:        "kuzu",
		GraphDatabaseURL:             "/data/databases/" + datasetID.String() + ".kuzu",
		GraphDatabaseConnectionInfo:  map[string]string{},
		GraphHandler:                 "kuzu",
		VectorDatabaseName:           datasetID.String() + ".lance",
		VectorDatabaseProvider:       "lancedb",
		VectorDatabaseURL:            "/data/databases/" + datasetID.String() + ".lance",
		VectorDatabaseConnectionInfo: map[string]string{},
		VectorHandler:                "lancedb",
	}
}

func TestDatasetDatabaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	datasetID := uuid.New()

	_, err := store.GetDatasetDatabase(ctx, datasetID)
	assert.ErrorIs(t, err, ErrDatasetDatabaseNotFound)

	saved := testDatasetDatabase(datasetID)
	saved.GraphDatabaseConnectionInfo["graph_database_username"] = "neo4j"
	require.NoError(t, store.SaveDatasetDatabase(ctx, saved))

	got, err := store.GetDatasetDatabase(ctx, datasetID)
	require.NoError(t, err)
	assert.Equal(t, saved.GraphDatabaseURL, got.GraphDatabaseURL)
	assert.Equal(t, "neo4j", got.GraphDatabaseConnectionInfo["graph_database_username"])
	assert.Equal(t, "lancedb", got.VectorHandler)
}

func TestSaveDatasetDatabaseKeepsFirstRow(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	datasetID := uuid.New()

	first := testDatasetDatabase(datasetID)
	require.NoError(t, store.SaveDatasetDatabase(ctx, first))

	// A racing writer loses: the surviving row is the first one
	second := testDatasetDatabase(datasetID)
	second.GraphDatabaseURL = "/elsewhere"
	require.NoError(t, store.SaveDatasetDatabase(ctx, second))

	got, err := store.GetDatasetDatabase(ctx, datasetID)
	require.NoError(t, err)
	assert.Equal(t, first.GraphDatabaseURL, got.GraphDatabaseURL)
}

func TestAllAndDeleteDatasetDatabases(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	datasetA, datasetB := uuid.New(), uuid.New()
	require.NoError(t, store.SaveDatasetDatabase(ctx, testDatasetDatabase(datasetA)))
	require.NoError(t, store.SaveDatasetDatabase(ctx, testDatasetDatabase(datasetB)))

	all, err := store.AllDatasetDatabases(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.DeleteDatasetDatabase(ctx, datasetA))

	all, err = store.AllDatasetDatabases(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, datasetB, all[0].DatasetID)
}
