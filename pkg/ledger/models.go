package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Node is one ownership-ledger row: a semantic graph node as materialized
// for one (user, dataset, data) scope. The slug is the content-addressed
// identity shared across scopes; the id is unique per scope so re-ingesting
// identical content in the same scope is a no-op upsert.
type Node struct {
	ID            uuid.UUID
	Slug          uuid.UUID
	UserID        uuid.UUID
	DataID        uuid.UUID
	DatasetID     uuid.UUID
	Label         string
	Type          string
	IndexedFields []string
	Attributes    map[string]any
	CreatedAt     time.Time
}

// Edge is one ownership-ledger row for a relationship between two nodes.
// Source and destination refer to node slugs, so the same physical edge is
// addressable from every scope that owns it.
type Edge struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	DataID            uuid.UUID
	DatasetID         uuid.UUID
	SourceNodeID      uuid.UUID
	DestinationNodeID uuid.UUID
	RelationshipName  string
	Label             string
	Props             map[string]any
	CreatedAt         time.Time
}

// LegacyEntry is one row of the append-only ledger that predates ownership
// tracking. A non-null NodeLabel marks the row as a node, encoded as a
// self-loop. Immutable except for DeletedAt.
type LegacyEntry struct {
	ID                uuid.UUID
	NodeLabel         *string
	SourceNodeID      uuid.UUID
	DestinationNodeID uuid.UUID
	CreatorFunction   string
	DeletedAt         *time.Time
	UserID            uuid.UUID
	CreatedAt         time.Time
}

// DatasetDatabase maps a dataset to the backend connection descriptors its
// handlers produced. ConnectionInfo values may hold encrypted secrets or
// secret references; live credentials are never persisted here.
type DatasetDatabase struct {
	DatasetID uuid.UUID
	OwnerID   uuid.UUID

	VectorDatabaseName           string
	VectorDatabaseProvider       string
	VectorDatabaseURL            string
	VectorDatabaseKey            string
	VectorDatabaseConnectionInfo map[string]string

	GraphDatabaseName           string
	GraphDatabaseProvider       string
	GraphDatabaseURL            string
	GraphDatabaseKey            string
	GraphDatabaseConnectionInfo map[string]string

	GraphHandler  string
	VectorHandler string

	CreatedAt time.Time
}

// User identifies the owner making a routing or deletion request.
type User struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

// Slug derives the content-addressed identity for a named entity. Matches
// the uuid5-over-OID-namespace scheme the ingestion pipeline uses, so slugs
// are stable across datasets and re-ingestions.
func Slug(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}

// NodeID derives the deterministic per-scope id for a node.
func NodeID(userID, datasetID, dataID, slug uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID,
		[]byte(userID.String()+datasetID.String()+dataID.String()+slug.String()))
}

// EdgeID derives the deterministic per-scope id for an edge.
func EdgeID(userID, datasetID, dataID, source, destination uuid.UUID, relationship string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID,
		[]byte(userID.String()+datasetID.String()+dataID.String()+
			source.String()+relationship+destination.String()))
}

// TripletID derives the id of the search embedding materialized for an
// edge: hash over source, relationship and destination.
func TripletID(source uuid.UUID, relationship string, destination uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID,
		[]byte(source.String()+relationship+destination.String()))
}
