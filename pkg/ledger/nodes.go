package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const nodeColumns = `id, slug, user_id, data_id, dataset_id, label, type, indexed_fields, attributes, created_at`

// UpsertNodes records ownership of the given nodes for one (user, dataset,
// data) scope. Rows whose deterministic id already exists are silently
// skipped: the scope already owns them.
func (s *Store) UpsertNodes(ctx context.Context, nodes []Node, userID, datasetID, dataID uuid.UUID) error {
	if len(nodes) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO graph_nodes (id, slug, user_id, data_id, dataset_id, label, type, indexed_fields, attributes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("preparing node upsert: %w", err)
		}
		defer stmt.Close()

		for _, node := range nodes {
			id := node.ID
			if id == uuid.Nil {
				id = NodeID(userID, datasetID, dataID, node.Slug)
			}

			fields, err := json.Marshal(node.IndexedFields)
			if err != nil {
				return fmt.Errorf("encoding indexed fields: %w", err)
			}

			attrs, err := json.Marshal(node.Attributes)
			if err != nil {
				return fmt.Errorf("encoding attributes: %w", err)
			}

			if _, err := stmt.ExecContext(ctx,
				id, node.Slug, userID, dataID, datasetID,
				node.Label, node.Type, string(fields), string(attrs),
			); err != nil {
				return fmt.Errorf("upserting node %s: %w", node.Slug, err)
			}
		}

		return nil
	})
}

// NodesRelatedToData returns the nodes uniquely owned by one data item
// within its dataset: a node is excluded when another data item in the same
// dataset also owns its slug, because the physical record is shared.
func (s *Store) NodesRelatedToData(ctx context.Context, datasetID, dataID uuid.UUID) ([]Node, error) {
	return s.queryNodes(ctx, `
		SELECT `+nodeColumns+` FROM graph_nodes n
		WHERE n.dataset_id = ? AND n.data_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM graph_nodes o
			WHERE o.slug = n.slug
			AND o.dataset_id = n.dataset_id
			AND o.data_id != n.data_id
		)`, datasetID, dataID)
}

// NodesRelatedToDataGlobal is the single-shared-store variant: the slug
// must not be owned by any other scope anywhere, regardless of dataset.
func (s *Store) NodesRelatedToDataGlobal(ctx context.Context, datasetID, dataID uuid.UUID) ([]Node, error) {
	return s.queryNodes(ctx, `
		SELECT `+nodeColumns+` FROM graph_nodes n
		WHERE n.dataset_id = ? AND n.data_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM graph_nodes o
			WHERE o.slug = n.slug
			AND (o.data_id != n.data_id OR o.dataset_id != n.dataset_id)
		)`, datasetID, dataID)
}

// NodesRelatedToDataset returns every node of the dataset. With a dedicated
// physical store per dataset, all of its rows are in scope; sharing with
// other datasets is a purely logical overlap.
func (s *Store) NodesRelatedToDataset(ctx context.Context, datasetID uuid.UUID) ([]Node, error) {
	return s.queryNodes(ctx, `
		SELECT `+nodeColumns+` FROM graph_nodes n
		WHERE n.dataset_id = ?`, datasetID)
}

// NodesRelatedToDatasetGlobal excludes nodes whose slug is also owned by a
// different dataset, since the shared store holds one record per slug.
func (s *Store) NodesRelatedToDatasetGlobal(ctx context.Context, datasetID uuid.UUID) ([]Node, error) {
	return s.queryNodes(ctx, `
		SELECT `+nodeColumns+` FROM graph_nodes n
		WHERE n.dataset_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM graph_nodes o
			WHERE o.slug = n.slug
			AND o.dataset_id != n.dataset_id
		)`, datasetID)
}

// HasRelatedToData is a cheap existence probe used to skip the expensive
// deletion path for scopes that own nothing.
func (s *Store) HasRelatedToData(ctx context.Context, datasetID, dataID uuid.UUID) (bool, error) {
	var exists bool
	err := s.conn.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM graph_nodes
			WHERE dataset_id = ? AND data_id = ?
		)`, datasetID, dataID).Scan(&exists)
	if err != nil {
		return false, mapAbsent(err)
	}
	return exists, nil
}

// DeleteDataRows unconditionally removes every node and edge row owned by
// the (dataset, data) scope, shared or not. Single transaction.
func (s *Store) DeleteDataRows(ctx context.Context, datasetID, dataID uuid.UUID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM graph_nodes WHERE dataset_id = ? AND data_id = ?`,
			datasetID, dataID); err != nil {
			return fmt.Errorf("deleting node rows: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM graph_edges WHERE dataset_id = ? AND data_id = ?`,
			datasetID, dataID); err != nil {
			return fmt.Errorf("deleting edge rows: %w", err)
		}
		return nil
	})
}

// DeleteDatasetRows unconditionally removes every node and edge row owned
// by the dataset.
func (s *Store) DeleteDatasetRows(ctx context.Context, datasetID uuid.UUID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM graph_nodes WHERE dataset_id = ?`, datasetID); err != nil {
			return fmt.Errorf("deleting node rows: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM graph_edges WHERE dataset_id = ?`, datasetID); err != nil {
			return fmt.Errorf("deleting edge rows: %w", err)
		}
		return nil
	})
}

func (s *Store) queryNodes(ctx context.Context, query string, args ...any) ([]Node, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapAbsent(err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var (
			node   Node
			fields string
			attrs  string
		)
		if err := rows.Scan(
			&node.ID, &node.Slug, &node.UserID, &node.DataID, &node.DatasetID,
			&node.Label, &node.Type, &fields, &attrs, &node.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}
		if err := json.Unmarshal([]byte(fields), &node.IndexedFields); err != nil {
			return nil, fmt.Errorf("decoding indexed fields: %w", err)
		}
		if err := json.Unmarshal([]byte(attrs), &node.Attributes); err != nil {
			return nil, fmt.Errorf("decoding attributes: %w", err)
		}
		nodes = append(nodes, node)
	}

	return nodes, rows.Err()
}
