package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const directoryColumns = `dataset_id, owner_id,
	vector_database_name, vector_database_provider, vector_database_url, vector_database_key, vector_database_connection_info,
	graph_database_name, graph_database_provider, graph_database_url, graph_database_key, graph_database_connection_info,
	graph_dataset_database_handler, vector_dataset_database_handler, created_at`

// ErrDatasetDatabaseNotFound is returned when no backend mapping exists for
// a dataset yet.
var ErrDatasetDatabaseNotFound = errors.New("dataset database not found")

// GetDatasetDatabase returns the backend mapping for one dataset.
func (s *Store) GetDatasetDatabase(ctx context.Context, datasetID uuid.UUID) (*DatasetDatabase, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT `+directoryColumns+` FROM dataset_databases WHERE dataset_id = ?`, datasetID)

	db, err := scanDatasetDatabase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDatasetDatabaseNotFound
	}
	if err != nil {
		return nil, mapAbsent(err)
	}
	return db, nil
}

// SaveDatasetDatabase persists a mapping produced by the handlers. Exactly
// one row may exist per dataset: a concurrent writer that lost the race is
// ignored and the surviving row wins.
func (s *Store) SaveDatasetDatabase(ctx context.Context, db *DatasetDatabase) error {
	vectorInfo, err := json.Marshal(db.VectorDatabaseConnectionInfo)
	if err != nil {
		return fmt.Errorf("encoding vector connection info: %w", err)
	}
	graphInfo, err := json.Marshal(db.GraphDatabaseConnectionInfo)
	if err != nil {
		return fmt.Errorf("encoding graph connection info: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO dataset_databases (
			dataset_id, owner_id,
			vector_database_name, vector_database_provider, vector_database_url, vector_database_key, vector_database_connection_info,
			graph_database_name, graph_database_provider, graph_database_url, graph_database_key, graph_database_connection_info,
			graph_dataset_database_handler, vector_dataset_database_handler
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dataset_id) DO NOTHING`,
		db.DatasetID, db.OwnerID,
		db.VectorDatabaseName, db.VectorDatabaseProvider, db.VectorDatabaseURL, db.VectorDatabaseKey, string(vectorInfo),
		db.GraphDatabaseName, db.GraphDatabaseProvider, db.GraphDatabaseURL, db.GraphDatabaseKey, string(graphInfo),
		db.GraphHandler, db.VectorHandler)
	if err != nil {
		return fmt.Errorf("saving dataset database: %w", err)
	}

	return nil
}

// AllDatasetDatabases returns every mapping. A missing table surfaces as
// ErrMetadataAbsent, which the prune path treats as nothing to prune.
func (s *Store) AllDatasetDatabases(ctx context.Context) ([]DatasetDatabase, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+directoryColumns+` FROM dataset_databases`)
	if err != nil {
		return nil, mapAbsent(err)
	}
	defer rows.Close()

	var dbs []DatasetDatabase
	for rows.Next() {
		db, err := scanDatasetDatabase(rows)
		if err != nil {
			return nil, err
		}
		dbs = append(dbs, *db)
	}

	return dbs, rows.Err()
}

// DeleteDatasetDatabase removes the mapping on dataset teardown.
func (s *Store) DeleteDatasetDatabase(ctx context.Context, datasetID uuid.UUID) error {
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM dataset_databases WHERE dataset_id = ?`, datasetID); err != nil {
		return mapAbsent(fmt.Errorf("deleting dataset database: %w", err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDatasetDatabase(row rowScanner) (*DatasetDatabase, error) {
	var (
		db         DatasetDatabase
		vectorInfo string
		graphInfo  string
	)
	if err := row.Scan(
		&db.DatasetID, &db.OwnerID,
		&db.VectorDatabaseName, &db.VectorDatabaseProvider, &db.VectorDatabaseURL, &db.VectorDatabaseKey, &vectorInfo,
		&db.GraphDatabaseName, &db.GraphDatabaseProvider, &db.GraphDatabaseURL, &db.GraphDatabaseKey, &graphInfo,
		&db.GraphHandler, &db.VectorHandler, &db.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(vectorInfo), &db.VectorDatabaseConnectionInfo); err != nil {
		return nil, fmt.Errorf("decoding vector connection info: %w", err)
	}
	if err := json.Unmarshal([]byte(graphInfo), &db.GraphDatabaseConnectionInfo); err != nil {
		return nil, fmt.Errorf("decoding graph connection info: %w", err)
	}
	return &db, nil
}
