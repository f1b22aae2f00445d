package deletion

import (
	"github.com/theapemachine/recall/pkg/ledger"
)

// Vector collection naming follows the ingestion pipeline's convention:
// one collection per {NodeType}_{indexedField} pair, a fixed collection for
// edge relationship names, and a fixed collection for triplet embeddings.
const (
	EdgeCollection    = "EdgeType_relationship_name"
	TripletCollection = "Triplet_text"
)

// dedupeSlugs collapses nodes sharing a slug into one physical identity.
func dedupeSlugs(nodes []ledger.Node) []string {
	seen := make(map[string]struct{}, len(nodes))
	slugs := make([]string, 0, len(nodes))

	for _, node := range nodes {
		slug := node.Slug.String()
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}

	return slugs
}

// vectorBuckets groups node slugs into the vector collections that hold
// their embeddings, one bucket per {type}_{indexedField} pair.
func vectorBuckets(nodes []ledger.Node) map[string][]string {
	buckets := make(map[string][]string)

	for _, node := range nodes {
		for _, field := range node.IndexedFields {
			collection := node.Type + "_" + field
			buckets[collection] = append(buckets[collection], node.Slug.String())
		}
	}

	return buckets
}

// edgeTypeIDs returns the deduplicated relationship-name identities indexed
// in the edge collection. The edge collection holds one point per
// relationship name, not per edge, so deleting a uniquely-owned edge also
// removes the name's embedding while other scopes may still hold edges with
// that name. Re-ingesting any such edge restores the point.
func edgeTypeIDs(edges []ledger.Edge) []string {
	seen := make(map[string]struct{}, len(edges))
	ids := make([]string, 0, len(edges))

	for _, edge := range edges {
		id := ledger.Slug(edge.RelationshipName).String()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}

// tripletIDs returns the derived triplet embedding ids for the edges.
func tripletIDs(edges []ledger.Edge) []string {
	seen := make(map[string]struct{}, len(edges))
	ids := make([]string, 0, len(edges))

	for _, edge := range edges {
		id := ledger.TripletID(edge.SourceNodeID, edge.RelationshipName, edge.DestinationNodeID).String()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}
