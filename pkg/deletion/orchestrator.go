// Package deletion removes knowledge-graph content consistently across the
// ownership ledger, the graph engine and the vector engine. There is no
// cross-store transaction: every step is idempotent, so a crashed deletion
// converges by being re-invoked.
package deletion

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/theapemachine/recall/pkg/ledger"
	"github.com/theapemachine/recall/pkg/memory"
)

// Orchestrator coordinates cross-store deletes for one deployment. The
// scoped-versus-global ownership query choice is fixed at construction,
// because mixing modes mid-lifecycle corrupts the sharing invariant.
type Orchestrator struct {
	store       *ledger.Store
	graph       memory.GraphStore
	vector      memory.VectorStore
	multiTenant bool
}

// New builds an orchestrator. multiTenant must mirror the startup-validated
// isolation configuration.
func New(store *ledger.Store, graph memory.GraphStore, vector memory.VectorStore, multiTenant bool) *Orchestrator {
	return &Orchestrator{
		store:       store,
		graph:       graph,
		vector:      vector,
		multiTenant: multiTenant,
	}
}

// DeleteData removes everything uniquely owned by one (dataset, data)
// scope. Content shared with another scope survives in the engines; legacy
// content is conservatively skipped. Calling it again after a partial
// failure is safe.
func (o *Orchestrator) DeleteData(ctx context.Context, datasetID, dataID, userID uuid.UUID) error {
	exists, err := o.store.HasRelatedToData(ctx, datasetID, dataID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	var nodes []ledger.Node
	if o.multiTenant {
		nodes, err = o.store.NodesRelatedToData(ctx, datasetID, dataID)
	} else {
		nodes, err = o.store.NodesRelatedToDataGlobal(ctx, datasetID, dataID)
	}
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}

	var edges []ledger.Edge
	if o.multiTenant {
		edges, err = o.store.EdgesRelatedToData(ctx, datasetID, dataID)
	} else {
		edges, err = o.store.EdgesRelatedToDataGlobal(ctx, datasetID, dataID)
	}
	if err != nil {
		return err
	}

	deletableNodes, deletableEdges, err := o.withoutLegacy(ctx, nodes, edges)
	if err != nil {
		return err
	}

	if err := o.deleteFromEngines(ctx, deletableNodes, deletableEdges); err != nil {
		return err
	}

	// Ownership rows disappear for the whole scope, legacy or not
	if err := o.store.DeleteDataRows(ctx, datasetID, dataID); err != nil {
		return err
	}

	if err := o.softDeleteLegacy(ctx, deletableNodes); err != nil {
		return err
	}

	log.Info("deleted data item content",
		"dataset", datasetID, "data", dataID,
		"nodes", len(deletableNodes), "edges", len(deletableEdges),
		"legacy_skipped", len(nodes)-len(deletableNodes))

	return nil
}

// DeleteDataset removes everything uniquely owned by the dataset. Unlike
// DeleteData it always clears the dataset's ownership rows, because a
// dataset may consist entirely of content shared with other datasets while
// its ownership records must still disappear.
func (o *Orchestrator) DeleteDataset(ctx context.Context, datasetID, userID uuid.UUID) error {
	var (
		nodes []ledger.Node
		edges []ledger.Edge
		err   error
	)

	if o.multiTenant {
		nodes, err = o.store.NodesRelatedToDataset(ctx, datasetID)
	} else {
		nodes, err = o.store.NodesRelatedToDatasetGlobal(ctx, datasetID)
	}
	if err != nil {
		return err
	}

	if o.multiTenant {
		edges, err = o.store.EdgesRelatedToDataset(ctx, datasetID)
	} else {
		edges, err = o.store.EdgesRelatedToDatasetGlobal(ctx, datasetID)
	}
	if err != nil {
		return err
	}

	deletableNodes, deletableEdges, err := o.withoutLegacy(ctx, nodes, edges)
	if err != nil {
		return err
	}

	if err := o.deleteFromEngines(ctx, deletableNodes, deletableEdges); err != nil {
		return err
	}

	if err := o.store.DeleteDatasetRows(ctx, datasetID); err != nil {
		return err
	}

	if err := o.softDeleteLegacy(ctx, deletableNodes); err != nil {
		return err
	}

	log.Info("deleted dataset content",
		"dataset", datasetID,
		"nodes", len(deletableNodes), "edges", len(deletableEdges),
		"legacy_skipped", len(nodes)-len(deletableNodes))

	return nil
}

// withoutLegacy drops every node and edge the legacy ledger still vouches
// for. The skip is conservative: a stale legacy flag keeps content alive,
// it never deletes content.
func (o *Orchestrator) withoutLegacy(ctx context.Context, nodes []ledger.Node, edges []ledger.Edge) ([]ledger.Node, []ledger.Edge, error) {
	nodeFlags, err := o.store.NodesAreLegacy(ctx, nodes)
	if err != nil {
		return nil, nil, err
	}

	// Ledger rows can be stale: with isolation active, only trust a legacy
	// flag when the node still physically exists in the graph.
	if o.multiTenant {
		if nodeFlags, err = o.confirmNodesInGraph(ctx, nodes, nodeFlags); err != nil {
			return nil, nil, err
		}
	}

	edgeFlags, err := o.store.EdgesAreLegacy(ctx, edges)
	if err != nil {
		return nil, nil, err
	}

	deletableNodes := make([]ledger.Node, 0, len(nodes))
	for i, node := range nodes {
		if !nodeFlags[i] {
			deletableNodes = append(deletableNodes, node)
		}
	}

	deletableEdges := make([]ledger.Edge, 0, len(edges))
	for i, edge := range edges {
		if !edgeFlags[i] {
			deletableEdges = append(deletableEdges, edge)
		}
	}

	return deletableNodes, deletableEdges, nil
}

// confirmNodesInGraph clears legacy flags for nodes the graph engine no
// longer holds.
func (o *Orchestrator) confirmNodesInGraph(ctx context.Context, nodes []ledger.Node, flags []bool) ([]bool, error) {
	var flagged []string
	for i, node := range nodes {
		if flags[i] {
			flagged = append(flagged, node.Slug.String())
		}
	}
	if len(flagged) == 0 {
		return flags, nil
	}

	present, err := o.graph.GetNodes(ctx, flagged)
	if err != nil {
		return nil, fmt.Errorf("confirming legacy nodes in graph: %w", err)
	}

	inGraph := make(map[string]struct{}, len(present))
	for _, slug := range present {
		inGraph[slug] = struct{}{}
	}

	confirmed := make([]bool, len(flags))
	for i, node := range nodes {
		if flags[i] {
			_, confirmed[i] = inGraph[node.Slug.String()]
		}
	}

	return confirmed, nil
}

// deleteFromEngines removes the physical records for the deletable sets
// from the graph and vector engines.
func (o *Orchestrator) deleteFromEngines(ctx context.Context, nodes []ledger.Node, edges []ledger.Edge) error {
	if slugs := dedupeSlugs(nodes); len(slugs) > 0 {
		if err := o.graph.DeleteNodes(ctx, slugs); err != nil {
			return fmt.Errorf("deleting nodes from graph: %w", err)
		}
	}

	for collection, ids := range vectorBuckets(nodes) {
		if err := o.vector.DeleteDataPoints(ctx, collection, ids); err != nil {
			return fmt.Errorf("deleting points from %s: %w", collection, err)
		}
	}

	if len(edges) == 0 {
		return nil
	}

	if err := o.vector.DeleteDataPoints(ctx, EdgeCollection, edgeTypeIDs(edges)); err != nil {
		return fmt.Errorf("deleting edge types: %w", err)
	}

	// The triplet collection only exists once triplet indexing has run
	hasTriplets, err := o.vector.HasCollection(ctx, TripletCollection)
	if err != nil {
		return err
	}
	if hasTriplets {
		if err := o.vector.DeleteDataPoints(ctx, TripletCollection, tripletIDs(edges)); err != nil {
			return fmt.Errorf("deleting triplets: %w", err)
		}
	}

	return nil
}

// softDeleteLegacy marks legacy rows for physically removed slugs, so later
// legacy checks no longer veto them.
func (o *Orchestrator) softDeleteLegacy(ctx context.Context, nodes []ledger.Node) error {
	slugs := make([]uuid.UUID, 0, len(nodes))
	seen := make(map[uuid.UUID]struct{}, len(nodes))
	for _, node := range nodes {
		if _, ok := seen[node.Slug]; ok {
			continue
		}
		seen[node.Slug] = struct{}{}
		slugs = append(slugs, node.Slug)
	}

	return o.store.SoftDeleteLegacyRows(ctx, slugs)
}
