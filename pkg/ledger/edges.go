package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const edgeColumns = `id, user_id, data_id, dataset_id, source_node_id, destination_node_id, relationship_name, label, props, created_at`

// UpsertEdges records ownership of the given edges for one (user, dataset,
// data) scope with the same insert-or-ignore semantics as UpsertNodes.
func (s *Store) UpsertEdges(ctx context.Context, edges []Edge, userID, datasetID, dataID uuid.UUID) error {
	if len(edges) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO graph_edges (id, user_id, data_id, dataset_id, source_node_id, destination_node_id, relationship_name, label, props)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("preparing edge upsert: %w", err)
		}
		defer stmt.Close()

		for _, edge := range edges {
			id := edge.ID
			if id == uuid.Nil {
				id = EdgeID(userID, datasetID, dataID,
					edge.SourceNodeID, edge.DestinationNodeID, edge.RelationshipName)
			}

			props, err := json.Marshal(edge.Props)
			if err != nil {
				return fmt.Errorf("encoding edge props: %w", err)
			}

			if _, err := stmt.ExecContext(ctx,
				id, userID, dataID, datasetID,
				edge.SourceNodeID, edge.DestinationNodeID,
				edge.RelationshipName, edge.Label, string(props),
			); err != nil {
				return fmt.Errorf("upserting edge %s: %w", edge.RelationshipName, err)
			}
		}

		return nil
	})
}

// EdgesRelatedToData returns the edges uniquely owned by one data item
// within its dataset. An edge is shared when another data item in the same
// dataset owns the same (source, relationship, destination) triple.
func (s *Store) EdgesRelatedToData(ctx context.Context, datasetID, dataID uuid.UUID) ([]Edge, error) {
	return s.queryEdges(ctx, `
		SELECT `+edgeColumns+` FROM graph_edges e
		WHERE e.dataset_id = ? AND e.data_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM graph_edges o
			WHERE o.source_node_id = e.source_node_id
			AND o.destination_node_id = e.destination_node_id
			AND o.relationship_name = e.relationship_name
			AND o.dataset_id = e.dataset_id
			AND o.data_id != e.data_id
		)`, datasetID, dataID)
}

// EdgesRelatedToDataGlobal is the single-shared-store variant of
// EdgesRelatedToData.
func (s *Store) EdgesRelatedToDataGlobal(ctx context.Context, datasetID, dataID uuid.UUID) ([]Edge, error) {
	return s.queryEdges(ctx, `
		SELECT `+edgeColumns+` FROM graph_edges e
		WHERE e.dataset_id = ? AND e.data_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM graph_edges o
			WHERE o.source_node_id = e.source_node_id
			AND o.destination_node_id = e.destination_node_id
			AND o.relationship_name = e.relationship_name
			AND (o.data_id != e.data_id OR o.dataset_id != e.dataset_id)
		)`, datasetID, dataID)
}

// EdgesRelatedToDataset returns every edge of the dataset.
func (s *Store) EdgesRelatedToDataset(ctx context.Context, datasetID uuid.UUID) ([]Edge, error) {
	return s.queryEdges(ctx, `
		SELECT `+edgeColumns+` FROM graph_edges e
		WHERE e.dataset_id = ?`, datasetID)
}

// EdgesRelatedToDatasetGlobal excludes edges whose triple is also owned by
// a different dataset.
func (s *Store) EdgesRelatedToDatasetGlobal(ctx context.Context, datasetID uuid.UUID) ([]Edge, error) {
	return s.queryEdges(ctx, `
		SELECT `+edgeColumns+` FROM graph_edges e
		WHERE e.dataset_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM graph_edges o
			WHERE o.source_node_id = e.source_node_id
			AND o.destination_node_id = e.destination_node_id
			AND o.relationship_name = e.relationship_name
			AND o.dataset_id != e.dataset_id
		)`, datasetID)
}

func (s *Store) queryEdges(ctx context.Context, query string, args ...any) ([]Edge, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapAbsent(err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var (
			edge  Edge
			props string
		)
		if err := rows.Scan(
			&edge.ID, &edge.UserID, &edge.DataID, &edge.DatasetID,
			&edge.SourceNodeID, &edge.DestinationNodeID,
			&edge.RelationshipName, &edge.Label, &props, &edge.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning edge row: %w", err)
		}
		if err := json.Unmarshal([]byte(props), &edge.Props); err != nil {
			return nil, fmt.Errorf("decoding edge props: %w", err)
		}
		edges = append(edges, edge)
	}

	return edges, rows.Err()
}
