package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/recall/pkg/config"
)

func TestEmbeddedDecisionIsPerSide(t *testing.T) {
	for _, tc := range []struct {
		graph, vector                 string
		graphEmbedded, vectorEmbedded bool
	}{
		{"kuzu", "lancedb", true, true},
		{"neo4j", "lancedb", false, true},
		{"kuzu", "pgvector", true, false},
		{"neo4j", "pgvector", false, false},
	} {
		cfg := &config.Config{GraphProvider: tc.graph, VectorProvider: tc.vector}

		// A served provider on either side must get an engine wipe, never
		// be shadowed by the other side being embedded
		assert.Equal(t, tc.graphEmbedded, graphEmbedded(cfg), "%s/%s graph", tc.graph, tc.vector)
		assert.Equal(t, tc.vectorEmbedded, vectorEmbedded(cfg), "%s/%s vector", tc.graph, tc.vector)
	}
}

func TestWipeEmbeddedRemovesOnlyMatchingFiles(t *testing.T) {
	dataRoot := t.TempDir()
	databases := filepath.Join(dataRoot, "databases")
	require.NoError(t, os.MkdirAll(databases, 0o755))

	kuzu := filepath.Join(databases, "shared.kuzu")
	wal := filepath.Join(databases, "shared.kuzu.wal")
	lance := filepath.Join(databases, "shared.lance")
	require.NoError(t, os.WriteFile(kuzu, []byte("k"), 0o644))
	require.NoError(t, os.WriteFile(wal, []byte("w"), 0o644))
	require.NoError(t, os.MkdirAll(lance, 0o755))

	require.NoError(t, wipeEmbedded(dataRoot, "*.kuzu", "*.kuzu.wal"))

	assert.NoFileExists(t, kuzu)
	assert.NoFileExists(t, wal)
	assert.DirExists(t, lance)

	require.NoError(t, wipeEmbedded(dataRoot, "*.lance"))
	assert.NoDirExists(t, lance)
}

func TestWipeEmbeddedMissingDirectoryIsNoop(t *testing.T) {
	assert.NoError(t, wipeEmbedded(t.TempDir(), "*.kuzu"))
}
