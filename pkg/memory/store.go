// Package memory provides the engine contracts and implementations for the
// graph and vector stores holding materialized knowledge-graph content.
package memory

import (
	"context"
)

// GraphStore defines the graph engine operations the deletion and prune
// paths depend on. Records are keyed by slug, the content-addressed node
// identity, so deleting an already-absent slug is a no-op.
type GraphStore interface {
	// DeleteNodes detaches and deletes the nodes with the given slugs
	DeleteNodes(ctx context.Context, slugs []string) error

	// GetNodes returns the subset of slugs that physically exist
	GetNodes(ctx context.Context, slugs []string) ([]string, error)

	// Prune destroys every node and relationship in the store
	Prune(ctx context.Context) error
}

// VectorStore defines the vector engine operations the deletion and prune
// paths depend on. Data points live in collections named
// {NodeType}_{indexedField}, with fixed collections for edges and triplets.
type VectorStore interface {
	// HasCollection reports whether the named collection exists
	HasCollection(ctx context.Context, name string) (bool, error)

	// DeleteDataPoints removes the points with the given ids from a collection
	DeleteDataPoints(ctx context.Context, collection string, ids []string) error

	// Prune destroys every collection in the store
	Prune(ctx context.Context) error
}
