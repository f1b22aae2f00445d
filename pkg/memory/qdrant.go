package memory

import (
	"context"
	"fmt"
	"os"

	sdk "github.com/qdrant/go-client/qdrant"

	"github.com/theapemachine/recall/pkg/errs"
)

// QdrantStore implements the VectorStore interface for Qdrant
type QdrantStore struct {
	client *sdk.Client
}

// NewQdrantStore creates a new vector store using Qdrant
func NewQdrantStore(host, apiKey string) (*QdrantStore, error) {
	if host == "" {
		host = os.Getenv("QDRANT_HOST")
	}
	if host == "" {
		host = "localhost"
	}
	if apiKey == "" {
		apiKey = os.Getenv("QDRANT_API_KEY")
	}

	client, err := sdk.NewClient(&sdk.Config{
		Host:                   host,
		APIKey:                 apiKey,
		UseTLS:                 false,
		SkipCompatibilityCheck: true,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

// HasCollection reports whether the named collection exists
func (store *QdrantStore) HasCollection(ctx context.Context, name string) (bool, error) {
	collections, err := store.client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}

	for _, collection := range collections {
		if collection == name {
			return true, nil
		}
	}

	return false, nil
}

// DeleteDataPoints removes the points with the given ids from a collection.
// Ids that are not present match nothing, so retried deletes are no-ops.
func (store *QdrantStore) DeleteDataPoints(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	exists, err := store.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", errs.ErrCollectionNotFound, collection)
	}

	pointIDs := make([]*sdk.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = sdk.NewIDUUID(id)
	}

	waitDelete := true
	_, err = store.client.Delete(ctx, &sdk.DeletePoints{
		CollectionName: collection,
		Points:         sdk.NewPointsSelector(pointIDs...),
		Wait:           &waitDelete,
	})
	if err != nil {
		return fmt.Errorf("failed to delete points from %s: %w", collection, err)
	}

	return nil
}

// Prune destroys every collection in the store
func (store *QdrantStore) Prune(ctx context.Context) error {
	collections, err := store.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, collection := range collections {
		if err := store.client.DeleteCollection(ctx, collection); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", collection, err)
		}
	}

	return nil
}

// Close releases the underlying gRPC connection
func (store *QdrantStore) Close() error {
	return store.client.Close()
}
