package memory

import (
	"context"
	"fmt"
	"os"
	"time"

	sdk "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore implements the GraphStore interface for Neo4j
type Neo4jStore struct {
	client sdk.DriverWithContext
	dbName string
}

// NewNeo4jStore creates a new Neo4j graph store
func NewNeo4jStore(url, username, password, dbName string) (*Neo4jStore, error) {
	// If parameters are empty, try environment variables
	if url == "" {
		url = os.Getenv("NEO4J_URL")
	}

	if username == "" {
		username = os.Getenv("NEO4J_USERNAME")
		// Fallback to NEO4J_USER if NEO4J_USERNAME not set
		if username == "" {
			username = os.Getenv("NEO4J_USER")
		}
	}

	if password == "" {
		password = os.Getenv("NEO4J_PASSWORD")
	}

	if dbName == "" {
		dbName = "neo4j" // Default database name
	}

	driver, err := sdk.NewDriverWithContext(
		url,
		sdk.BasicAuth(
			username,
			password,
			"",
		),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	return &Neo4jStore{
		client: driver,
		dbName: dbName,
	}, nil
}

// DeleteNodes detaches and deletes every node whose id property matches one
// of the slugs. Absent slugs simply match nothing, which keeps retries safe.
func (store *Neo4jStore) DeleteNodes(ctx context.Context, slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}

	session := store.client.NewSession(ctx, sdk.SessionConfig{
		DatabaseName: store.dbName,
		AccessMode:   sdk.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		"MATCH (n) WHERE n.id IN $slugs DETACH DELETE n",
		map[string]any{"slugs": slugs})
	if err != nil {
		return fmt.Errorf("failed to delete nodes: %w", err)
	}

	return nil
}

// GetNodes returns the subset of slugs that exist in the graph
func (store *Neo4jStore) GetNodes(ctx context.Context, slugs []string) ([]string, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	session := store.client.NewSession(ctx, sdk.SessionConfig{
		DatabaseName: store.dbName,
		AccessMode:   sdk.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		"MATCH (n) WHERE n.id IN $slugs RETURN n.id AS id",
		map[string]any{"slugs": slugs})
	if err != nil {
		return nil, fmt.Errorf("failed to look up nodes: %w", err)
	}

	var found []string
	for result.Next(ctx) {
		if id, ok := result.Record().Get("id"); ok {
			if slug, ok := id.(string); ok {
				found = append(found, slug)
			}
		}
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read node lookup result: %w", err)
	}

	return found, nil
}

// Prune destroys the entire graph
func (store *Neo4jStore) Prune(ctx context.Context) error {
	session := store.client.NewSession(ctx, sdk.SessionConfig{
		DatabaseName: store.dbName,
		AccessMode:   sdk.AccessModeWrite,
	})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
		return fmt.Errorf("failed to prune graph: %w", err)
	}

	return nil
}

// Close releases the driver
func (store *Neo4jStore) Close(ctx context.Context) error {
	return store.client.Close(ctx)
}
