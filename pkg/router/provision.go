package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/theapemachine/recall/pkg/config"
	"github.com/theapemachine/recall/pkg/ledger"
)

// Provision returns the backend mapping for a dataset, creating it through
// the configured handlers on first use. Exactly one DatasetDatabase row
// survives per dataset; a concurrent provisioner that loses the insert race
// adopts the winner's row.
func Provision(ctx context.Context, cfg *config.Config, store *ledger.Store, registry *Registry, datasetID uuid.UUID, owner ledger.User) (*ledger.DatasetDatabase, error) {
	existing, err := store.GetDatasetDatabase(ctx, datasetID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ledger.ErrDatasetDatabaseNotFound) {
		return nil, err
	}

	graphKey, err := GraphHandlerKey(cfg)
	if err != nil {
		return nil, err
	}
	vectorKey, err := VectorHandlerKey(cfg)
	if err != nil {
		return nil, err
	}

	graphHandler, err := registry.Get(graphKey)
	if err != nil {
		return nil, err
	}
	vectorHandler, err := registry.Get(vectorKey)
	if err != nil {
		return nil, err
	}

	log.Info("provisioning dataset backends", "dataset", datasetID, "graph", graphKey, "vector", vectorKey)

	graphDesc, err := graphHandler.Create(ctx, datasetID, owner)
	if err != nil {
		return nil, fmt.Errorf("provisioning graph backend: %w", err)
	}

	vectorDesc, err := vectorHandler.Create(ctx, datasetID, owner)
	if err != nil {
		return nil, fmt.Errorf("provisioning vector backend: %w", err)
	}

	db := &ledger.DatasetDatabase{
		DatasetID: datasetID,
		OwnerID:   owner.ID,

		GraphDatabaseName:           graphDesc.Name,
		GraphDatabaseProvider:       graphDesc.Provider,
		GraphDatabaseURL:            graphDesc.URL,
		GraphDatabaseKey:            graphDesc.Key,
		GraphDatabaseConnectionInfo: graphDesc.ConnectionInfo,
		GraphHandler:                graphDesc.Handler,

		VectorDatabaseName:           vectorDesc.Name,
		VectorDatabaseProvider:       vectorDesc.Provider,
		VectorDatabaseURL:            vectorDesc.URL,
		VectorDatabaseKey:            vectorDesc.Key,
		VectorDatabaseConnectionInfo: vectorDesc.ConnectionInfo,
		VectorHandler:                vectorDesc.Handler,
	}

	if db.GraphDatabaseConnectionInfo == nil {
		db.GraphDatabaseConnectionInfo = map[string]string{}
	}
	if db.VectorDatabaseConnectionInfo == nil {
		db.VectorDatabaseConnectionInfo = map[string]string{}
	}

	if err := store.SaveDatasetDatabase(ctx, db); err != nil {
		return nil, err
	}

	// Re-read so that a lost insert race returns the surviving row
	return store.GetDatasetDatabase(ctx, datasetID)
}

// Resolve expands a persisted mapping through both of its recorded
// handlers. The result carries live credentials and must not outlive the
// current connection attempt.
func Resolve(ctx context.Context, registry *Registry, db ledger.DatasetDatabase) (ledger.DatasetDatabase, error) {
	if db.GraphHandler != "" {
		handler, err := registry.Get(db.GraphHandler)
		if err != nil {
			return ledger.DatasetDatabase{}, err
		}
		if db, err = handler.Resolve(ctx, db); err != nil {
			return ledger.DatasetDatabase{}, err
		}
	}

	if db.VectorHandler != "" && db.VectorHandler != db.GraphHandler {
		handler, err := registry.Get(db.VectorHandler)
		if err != nil {
			return ledger.DatasetDatabase{}, err
		}
		if db, err = handler.Resolve(ctx, db); err != nil {
			return ledger.DatasetDatabase{}, err
		}
	}

	return db, nil
}
