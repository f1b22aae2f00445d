package router

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/theapemachine/recall/pkg/config"
	"github.com/theapemachine/recall/pkg/errs"
	"github.com/theapemachine/recall/pkg/ledger"
)

const (
	pgDuplicateDatabase  = "42P04"
	pgInvalidCatalogName = "3D000"
)

// PGVectorHandler provisions one dedicated Postgres database per dataset
// through an admin connection. The pgvector extension and collection tables
// are created lazily by the vector adapter on first write.
type PGVectorHandler struct {
	cfg *config.Config
}

// NewPGVectorHandler creates the managed relational-vector handler.
func NewPGVectorHandler(cfg *config.Config) *PGVectorHandler {
	return &PGVectorHandler{cfg: cfg}
}

func datasetDatabaseName(datasetID uuid.UUID) string {
	return "ds_" + strings.ReplaceAll(datasetID.String(), "-", "")
}

// Create provisions a dedicated database and returns a descriptor pointing
// at it. Re-running for the same dataset is a no-op.
func (h *PGVectorHandler) Create(ctx context.Context, datasetID uuid.UUID, owner ledger.User) (*Descriptor, error) {
	if h.cfg.VectorProvider != "pgvector" {
		return nil, &errs.ProviderMismatchError{Handler: "pgvector", Configured: h.cfg.VectorProvider}
	}

	if h.cfg.Postgres.AdminURL == "" {
		return nil, fmt.Errorf("POSTGRES_ADMIN_URL must be set to provision pgvector dataset databases")
	}

	conn, err := pgx.Connect(ctx, h.cfg.Postgres.AdminURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to admin database: %w", err)
	}
	defer conn.Close(ctx)

	dbName := datasetDatabaseName(datasetID)

	_, err = conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize())
	if err != nil {
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) || pgErr.Code != pgDuplicateDatabase {
			return nil, fmt.Errorf("creating dataset database %s: %w", dbName, err)
		}
		log.Debug("dataset database already exists", "database", dbName)
	}

	datasetURL, err := databaseURL(h.cfg.Postgres.AdminURL, dbName)
	if err != nil {
		return nil, err
	}

	return &Descriptor{
		Name:     dbName,
		Provider: "pgvector",
		URL:      datasetURL,
		Handler:  "pgvector",
	}, nil
}

// Resolve is a no-op: the stored URL references credentials held by the
// deployment's connection configuration, not by this row.
func (h *PGVectorHandler) Resolve(ctx context.Context, db ledger.DatasetDatabase) (ledger.DatasetDatabase, error) {
	return db, nil
}

// Delete drops the dedicated database, disconnecting any stragglers. A
// database that is already gone is not an error.
func (h *PGVectorHandler) Delete(ctx context.Context, db ledger.DatasetDatabase) error {
	conn, err := pgx.Connect(ctx, h.cfg.Postgres.AdminURL)
	if err != nil {
		return fmt.Errorf("connecting to admin database: %w", err)
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx,
		"DROP DATABASE "+pgx.Identifier{db.VectorDatabaseName}.Sanitize()+" WITH (FORCE)")
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgInvalidCatalogName {
			return nil
		}
		return fmt.Errorf("dropping dataset database %s: %w", db.VectorDatabaseName, err)
	}

	log.Debug("dropped pgvector database", "dataset", db.DatasetID)
	return nil
}

// databaseURL rewrites the admin connection URL to point at the dataset's
// database.
func databaseURL(adminURL, dbName string) (string, error) {
	parsed, err := url.Parse(adminURL)
	if err != nil {
		return "", fmt.Errorf("parsing admin URL: %w", err)
	}
	parsed.Path = "/" + dbName
	return parsed.String(), nil
}
