package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/theapemachine/recall/pkg/config"
	"github.com/theapemachine/recall/pkg/memory"
	"github.com/theapemachine/recall/pkg/prune"
	"github.com/theapemachine/recall/pkg/router"
)

var pruneOpts prune.Options

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Destroy stored content (operators and tests only)",
	Long: `Prune wipes the selected stores. With backend isolation enabled every
provisioned dataset database is destroyed through its handler; otherwise the
shared graph and vector stores are wiped directly. There is no undo.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		deps := prune.Deps{
			Cfg:      cfg,
			Store:    store,
			Registry: router.NewRegistry(cfg),
		}

		// Each side decides independently: an embedded provider lives under
		// the data root and is wiped on disk, a served provider gets a live
		// client so prune.System can wipe it through the engine. Mixing an
		// embedded graph with a served vector store (or the reverse) must
		// still reach both.
		if !cfg.MultiTenant {
			if pruneOpts.Graph {
				if graphEmbedded(cfg) {
					if err := wipeEmbedded(cfg.DataRoot, "*.kuzu", "*.kuzu.wal"); err != nil {
						return err
					}
				} else if deps.Graph, err = memory.NewNeo4jStore(
					cfg.Neo4j.URL, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database,
				); err != nil {
					return err
				}
			}

			if pruneOpts.Vector {
				if vectorEmbedded(cfg) {
					if err := wipeEmbedded(cfg.DataRoot, "*.lance"); err != nil {
						return err
					}
				} else if deps.Vector, err = memory.NewQdrantStore(cfg.Qdrant.Host, cfg.Qdrant.APIKey); err != nil {
					return err
				}
			}
		}

		return prune.System(cmd.Context(), deps, pruneOpts)
	},
}

func graphEmbedded(cfg *config.Config) bool {
	return cfg.GraphProvider == "kuzu"
}

func vectorEmbedded(cfg *config.Config) bool {
	return cfg.VectorProvider == "lancedb"
}

// wipeEmbedded removes the embedded database files matching the patterns
// under the shared databases directory, leaving the other side's files
// alone.
func wipeEmbedded(dataRoot string, patterns ...string) error {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dataRoot, "databases", pattern))
		if err != nil {
			return fmt.Errorf("matching embedded databases: %w", err)
		}
		for _, match := range matches {
			if err := os.RemoveAll(match); err != nil {
				return fmt.Errorf("removing embedded database %s: %w", match, err)
			}
		}
	}
	return nil
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneOpts.Graph, "graph", false, "destroy graph store content")
	pruneCmd.Flags().BoolVar(&pruneOpts.Vector, "vector", false, "destroy vector store content")
	pruneCmd.Flags().BoolVar(&pruneOpts.Metadata, "metadata", false, "drop all metadata tables")
	pruneCmd.Flags().BoolVar(&pruneOpts.Cache, "cache", false, "clear the derived on-disk cache")
	rootCmd.AddCommand(pruneCmd)
}
