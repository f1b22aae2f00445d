// Command recall is the operator tooling for the storage engine. It is a
// local tool by design: the destructive prune path performs no permission
// checks and must never sit behind a network API.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/theapemachine/recall/pkg/config"
	"github.com/theapemachine/recall/pkg/ledger"
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Operator tooling for the recall storage engine",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore loads configuration, validates it and opens the metadata store.
func openStore() (*config.Config, *ledger.Store, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	path := cfg.Metadata.Path
	if path == "" {
		path = filepath.Join(cfg.DataRoot, "metadata.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data root: %w", err)
	}

	store, err := ledger.Open(path)
	if err != nil {
		return nil, nil, err
	}

	return cfg, store, nil
}
