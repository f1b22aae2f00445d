package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsIsolationCapableProviders(t *testing.T) {
	for _, tc := range []struct{ graph, vector string }{
		{"kuzu", "lancedb"},
		{"kuzu", "pgvector"},
		{"neo4j", "lancedb"},
		{"neo4j", "pgvector"},
	} {
		cfg := &Config{GraphProvider: tc.graph, VectorProvider: tc.vector, MultiTenant: true}
		assert.NoError(t, cfg.Validate(), "%s/%s", tc.graph, tc.vector)
	}
}

func TestValidateRejectsIsolationIncapableProvider(t *testing.T) {
	cfg := &Config{GraphProvider: "memgraph", VectorProvider: "lancedb", MultiTenant: true}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memgraph")

	// The same provider pair is fine without isolation
	cfg.MultiTenant = false
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresProviders(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate())
}
