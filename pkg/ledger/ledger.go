// Package ledger implements the relational metadata store backing the
// storage engine: the ownership ledger for graph nodes and edges, the
// read-mostly legacy compatibility ledger, and the DatasetDatabase
// directory that maps datasets to their provisioned backends.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/theapemachine/recall/pkg/errs"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection holding all metadata tables.
type Store struct {
	conn *sql.DB
	Path string
}

// Open opens the metadata database with WAL mode and foreign keys enabled.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening metadata database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &Store{conn: conn, Path: path}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries.
func (s *Store) Conn() *sql.DB {
	return s.conn
}

const schema = `
CREATE TABLE IF NOT EXISTS graph_nodes (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL,
	user_id TEXT NOT NULL,
	data_id TEXT NOT NULL,
	dataset_id TEXT NOT NULL,
	label TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	indexed_fields TEXT NOT NULL DEFAULT '[]',
	attributes TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_graph_nodes_dataset_slug ON graph_nodes (dataset_id, slug);
CREATE INDEX IF NOT EXISTS idx_graph_nodes_dataset_data ON graph_nodes (dataset_id, data_id);

CREATE TABLE IF NOT EXISTS graph_edges (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	data_id TEXT NOT NULL,
	dataset_id TEXT NOT NULL,
	source_node_id TEXT NOT NULL,
	destination_node_id TEXT NOT NULL,
	relationship_name TEXT NOT NULL,
	label TEXT NOT NULL DEFAULT '',
	props TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_graph_edges_dataset_data ON graph_edges (dataset_id, data_id);

CREATE TABLE IF NOT EXISTS legacy_ledger (
	id TEXT PRIMARY KEY,
	node_label TEXT,
	source_node_id TEXT NOT NULL,
	destination_node_id TEXT NOT NULL,
	creator_function TEXT NOT NULL,
	deleted_at TIMESTAMP,
	user_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_legacy_ledger_source ON legacy_ledger (source_node_id);

CREATE TABLE IF NOT EXISTS dataset_databases (
	dataset_id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	vector_database_name TEXT NOT NULL DEFAULT '',
	vector_database_provider TEXT NOT NULL DEFAULT '',
	vector_database_url TEXT NOT NULL DEFAULT '',
	vector_database_key TEXT NOT NULL DEFAULT '',
	vector_database_connection_info TEXT NOT NULL DEFAULT '{}',
	graph_database_name TEXT NOT NULL DEFAULT '',
	graph_database_provider TEXT NOT NULL DEFAULT '',
	graph_database_url TEXT NOT NULL DEFAULT '',
	graph_database_key TEXT NOT NULL DEFAULT '',
	graph_database_connection_info TEXT NOT NULL DEFAULT '{}',
	graph_dataset_database_handler TEXT NOT NULL DEFAULT '',
	vector_dataset_database_handler TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Setup creates all metadata tables. Safe to call repeatedly.
func (s *Store) Setup(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating metadata schema: %w", err)
	}
	return nil
}

// DropAll removes every metadata table. Used only by the prune path.
func (s *Store) DropAll(ctx context.Context) error {
	for _, table := range []string{"graph_nodes", "graph_edges", "legacy_ledger", "dataset_databases"} {
		if _, err := s.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, guaranteeing rollback on any error
// path and commit otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// mapAbsent converts SQLite's missing-table error into the taxonomy error
// the prune path knows how to tolerate.
func mapAbsent(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %v", errs.ErrMetadataAbsent, err)
	}
	return err
}
