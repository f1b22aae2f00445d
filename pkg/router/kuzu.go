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

// KuzuHandler provisions one embedded Kuzu database file per dataset under
// the data root. No network step is involved.
type KuzuHandler struct {
	cfg *config.Config
}

// NewKuzuHandler creates the embedded-file graph handler.
func NewKuzuHandler(cfg *config.Config) *KuzuHandler {
	return &KuzuHandler{cfg: cfg}
}

func (h *KuzuHandler) databasePath(datasetID uuid.UUID) string {
	return filepath.Join(h.cfg.DataRoot, "databases", datasetID.String()+".kuzu")
}

// Create reserves a database file path for the dataset.
func (h *KuzuHandler) Create(ctx context.Context, datasetID uuid.UUID, owner ledger.User) (*Descriptor, error) {
	if h.cfg.GraphProvider != "kuzu" {
		return nil, &errs.ProviderMismatchError{Handler: "kuzu", Configured: h.cfg.GraphProvider}
	}

	path := h.databasePath(datasetID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return &Descriptor{
		Name:     datasetID.String() + ".kuzu",
		Provider: "kuzu",
		URL:      path,
		Handler:  "kuzu",
	}, nil
}

// Resolve is a no-op: an embedded file path carries no secrets.
func (h *KuzuHandler) Resolve(ctx context.Context, db ledger.DatasetDatabase) (ledger.DatasetDatabase, error) {
	return db, nil
}

// Delete removes the database file and its write-ahead sidecar.
func (h *KuzuHandler) Delete(ctx context.Context, db ledger.DatasetDatabase) error {
	for _, path := range []string{db.GraphDatabaseURL, db.GraphDatabaseURL + ".wal"} {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing kuzu database %s: %w", path, err)
		}
	}

	log.Debug("removed kuzu database", "dataset", db.DatasetID)
	return nil
}
