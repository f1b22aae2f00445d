// Package prune implements the destructive reset used by operators and
// tests. It wipes stores wholesale and performs no permission checks, so it
// must never be reachable from a network-facing surface.
package prune

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/recall/pkg/config"
	"github.com/theapemachine/recall/pkg/errs"
	"github.com/theapemachine/recall/pkg/ledger"
	"github.com/theapemachine/recall/pkg/memory"
	"github.com/theapemachine/recall/pkg/router"
)

// Deps holds the collaborators the prune path touches.
type Deps struct {
	Cfg      *config.Config
	Store    *ledger.Store
	Graph    memory.GraphStore
	Vector   memory.VectorStore
	Registry *router.Registry
}

// Options selects which stores get destroyed.
type Options struct {
	Graph    bool
	Vector   bool
	Metadata bool
	Cache    bool
}

// System destroys the selected stores. With isolation enabled, every
// provisioned dataset database is torn down through its recorded handler;
// otherwise the single shared stores are wiped directly. A fresh install
// with no metadata tables is nothing to prune, not an error.
func System(ctx context.Context, deps Deps, opts Options) error {
	if opts.Graph || opts.Vector {
		if deps.Cfg.MultiTenant {
			if err := pruneDatasetDatabases(ctx, deps, opts); err != nil {
				return err
			}
		} else {
			if opts.Graph && deps.Graph != nil {
				if err := deps.Graph.Prune(ctx); err != nil {
					return fmt.Errorf("pruning graph store: %w", err)
				}
			}
			if opts.Vector && deps.Vector != nil {
				if err := deps.Vector.Prune(ctx); err != nil {
					return fmt.Errorf("pruning vector store: %w", err)
				}
			}
		}
	}

	if opts.Metadata {
		if err := deps.Store.DropAll(ctx); err != nil {
			return fmt.Errorf("dropping metadata tables: %w", err)
		}
	}

	if opts.Cache {
		cacheDir := filepath.Join(deps.Cfg.DataRoot, "cache")
		if err := os.RemoveAll(cacheDir); err != nil {
			return fmt.Errorf("clearing cache directory: %w", err)
		}
	}

	return nil
}

func pruneDatasetDatabases(ctx context.Context, deps Deps, opts Options) error {
	rows, err := deps.Store.AllDatasetDatabases(ctx)
	if err != nil {
		if errors.Is(err, errs.ErrMetadataAbsent) {
			log.Info("no dataset database table present, nothing to prune")
			return nil
		}
		return err
	}

	for _, row := range rows {
		if opts.Graph && row.GraphHandler != "" {
			handler, err := deps.Registry.Get(row.GraphHandler)
			if err != nil {
				return err
			}
			if err := handler.Delete(ctx, row); err != nil {
				return fmt.Errorf("deleting graph backend for dataset %s: %w", row.DatasetID, err)
			}
		}

		if opts.Vector && row.VectorHandler != "" && row.VectorHandler != row.GraphHandler {
			handler, err := deps.Registry.Get(row.VectorHandler)
			if err != nil {
				return err
			}
			if err := handler.Delete(ctx, row); err != nil {
				return fmt.Errorf("deleting vector backend for dataset %s: %w", row.DatasetID, err)
			}
		}

		if opts.Graph && opts.Vector {
			if err := deps.Store.DeleteDatasetDatabase(ctx, row.DatasetID); err != nil {
				return err
			}
		}

		log.Info("pruned dataset backends", "dataset", row.DatasetID)
	}

	return nil
}
