package router

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/theapemachine/recall/pkg/config"
	"github.com/theapemachine/recall/pkg/errs"
	"github.com/theapemachine/recall/pkg/ledger"
)

// LanceDBHandler provisions one embedded LanceDB directory per dataset
// under the data root.
type LanceDBHandler struct {
	cfg *config.Config
}

// NewLanceDBHandler creates the embedded-directory vector handler.
func NewLanceDBHandler(cfg *config.Config) *LanceDBHandler {
	return &LanceDBHandler{cfg: cfg}
}

func (h *LanceDBHandler) databasePath(datasetID uuid.UUID) string {
	return filepath.Join(h.cfg.DataRoot, "databases", datasetID.String()+".lance")
}

// Create reserves a database directory for the dataset.
func (h *LanceDBHandler) Create(ctx context.Context, datasetID uuid.UUID, owner ledger.User) (*Descriptor, error) {
	if h.cfg.VectorProvider != "lancedb" {
		return nil, &errs.ProviderMismatchError{Handler: "lancedb", Configured: h.cfg.VectorProvider}
	}

	path := h.databasePath(datasetID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return &Descriptor{
		Name:     datasetID.String() + ".lance",
		Provider: "lancedb",
		URL:      path,
		Handler:  "lancedb",
	}, nil
}

// Resolve is a no-op: an embedded directory path carries no secrets.
func (h *LanceDBHandler) Resolve(ctx context.Context, db ledger.DatasetDatabase) (ledger.DatasetDatabase, error) {
	return db, nil
}

// Delete removes the database directory tree.
func (h *LanceDBHandler) Delete(ctx context.Context, db ledger.DatasetDatabase) error {
	if err := os.RemoveAll(db.VectorDatabaseURL); err != nil {
		return fmt.Errorf("removing lancedb database %s: %w", db.VectorDatabaseURL, err)
	}

	log.Debug("removed lancedb database", "dataset", db.DatasetID)
	return nil
}
