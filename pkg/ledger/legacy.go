package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// The legacy ledger predates ownership tracking. It is append-only history:
// this engine only ever reads it to veto unsafe deletes and soft-marks rows
// whose physical records it has removed. A node is encoded as a self-loop
// row with a non-null node_label.

// NodesAreLegacy reports, per input node, whether an undeleted legacy row
// exists for its slug. Legacy nodes are excluded from physical deletion
// because their sharing cannot be decided from the ownership ledger alone.
func (s *Store) NodesAreLegacy(ctx context.Context, nodes []Node) ([]bool, error) {
	flags := make([]bool, len(nodes))

	stmt, err := s.conn.PrepareContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM legacy_ledger
			WHERE node_label IS NOT NULL
			AND source_node_id = ?
			AND destination_node_id = ?
			AND deleted_at IS NULL
		)`)
	if err != nil {
		return nil, mapAbsent(err)
	}
	defer stmt.Close()

	for i, node := range nodes {
		if err := stmt.QueryRowContext(ctx, node.Slug, node.Slug).Scan(&flags[i]); err != nil {
			return nil, mapAbsent(fmt.Errorf("checking legacy node %s: %w", node.Slug, err))
		}
	}

	return flags, nil
}

// EdgesAreLegacy reports, per input edge, whether an undeleted legacy row
// was created by a function whose name ends with the edge's relationship.
func (s *Store) EdgesAreLegacy(ctx context.Context, edges []Edge) ([]bool, error) {
	flags := make([]bool, len(edges))

	stmt, err := s.conn.PrepareContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM legacy_ledger
			WHERE node_label IS NULL
			AND creator_function LIKE '%' || ?
			AND deleted_at IS NULL
		)`)
	if err != nil {
		return nil, mapAbsent(err)
	}
	defer stmt.Close()

	for i, edge := range edges {
		if err := stmt.QueryRowContext(ctx, edge.RelationshipName).Scan(&flags[i]); err != nil {
			return nil, mapAbsent(fmt.Errorf("checking legacy edge %s: %w", edge.RelationshipName, err))
		}
	}

	return flags, nil
}

// SoftDeleteLegacyRows marks every undeleted legacy row touching one of the
// slugs as deleted, so future legacy checks no longer veto them.
func (s *Store) SoftDeleteLegacyRows(ctx context.Context, slugs []uuid.UUID) error {
	if len(slugs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(slugs)), ",")
	args := make([]any, 0, len(slugs)*2)
	for _, slug := range slugs {
		args = append(args, slug)
	}
	for _, slug := range slugs {
		args = append(args, slug)
	}

	_, err := s.conn.ExecContext(ctx, fmt.Sprintf(`
		UPDATE legacy_ledger SET deleted_at = CURRENT_TIMESTAMP
		WHERE deleted_at IS NULL
		AND (source_node_id IN (%s) OR destination_node_id IN (%s))`,
		placeholders, placeholders), args...)
	if err != nil {
		return mapAbsent(fmt.Errorf("soft-deleting legacy rows: %w", err))
	}

	return nil
}

// RecordLegacyNode appends a self-loop node row. Only backfill tooling and
// tests write to the legacy ledger; the engine itself never does.
func (s *Store) RecordLegacyNode(ctx context.Context, slug uuid.UUID, label, creatorFunction string, userID uuid.UUID) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO legacy_ledger (id, node_label, source_node_id, destination_node_id, creator_function, user_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New(), label, slug, slug, creatorFunction, userID)
	if err != nil {
		return mapAbsent(fmt.Errorf("recording legacy node: %w", err))
	}
	return nil
}

// RecordLegacyEdge appends an edge row between two node slugs.
func (s *Store) RecordLegacyEdge(ctx context.Context, source, destination uuid.UUID, creatorFunction string, userID uuid.UUID) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO legacy_ledger (id, node_label, source_node_id, destination_node_id, creator_function, user_id)
		VALUES (?, NULL, ?, ?, ?, ?)`,
		uuid.New(), source, destination, creatorFunction, userID)
	if err != nil {
		return mapAbsent(fmt.Errorf("recording legacy edge: %w", err))
	}
	return nil
}
