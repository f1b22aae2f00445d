package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theapemachine/recall/pkg/errs"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report metadata store contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Printf("graph provider:  %s\n", cfg.GraphProvider)
		fmt.Printf("vector provider: %s\n", cfg.VectorProvider)
		fmt.Printf("isolation:       %v\n", cfg.MultiTenant)
		fmt.Printf("metadata store:  %s\n", store.Path)

		for _, table := range []string{"graph_nodes", "graph_edges", "legacy_ledger", "dataset_databases"} {
			var count int
			err := store.Conn().QueryRowContext(cmd.Context(),
				"SELECT COUNT(*) FROM "+table).Scan(&count)
			if err != nil {
				fmt.Printf("%-18s absent\n", table)
				continue
			}
			fmt.Printf("%-18s %d rows\n", table, count)
		}

		dbs, err := store.AllDatasetDatabases(cmd.Context())
		if err != nil && !errors.Is(err, errs.ErrMetadataAbsent) {
			return err
		}
		for _, db := range dbs {
			fmt.Printf("dataset %s: graph=%s (%s) vector=%s (%s)\n",
				db.DatasetID, db.GraphDatabaseProvider, db.GraphHandler,
				db.VectorDatabaseProvider, db.VectorHandler)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
