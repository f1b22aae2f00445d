// Package config provides centralized configuration management for the
// recall storage engine.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// InsecureEncryptionKey is the development fallback for the managed
// cloud-graph credential cipher. Deployments must override it.
const InsecureEncryptionKey = "recall_dev_key"

// Providers that support one physical database per dataset. Isolation can
// only be enabled when both configured providers appear here.
var (
	graphIsolationCapable  = map[string]bool{"kuzu": true, "neo4j": true}
	vectorIsolationCapable = map[string]bool{"lancedb": true, "pgvector": true}
)

// Config holds the complete configuration for the storage engine
type Config struct {
	// Active backend providers
	GraphProvider  string
	VectorProvider string

	// MultiTenant enables per-dataset database isolation. Fixed at startup;
	// toggling it mid-lifecycle corrupts the sharing invariant.
	MultiTenant bool

	// DataRoot is the directory holding embedded databases and caches
	DataRoot string

	// Relational metadata store (ownership ledger, legacy ledger, directory)
	Metadata struct {
		Path string
	}

	// Shared graph database (Neo4j)
	Neo4j struct {
		URL      string
		Username string
		Password string
		Database string
	}

	// Shared vector store (Qdrant)
	Qdrant struct {
		Host   string
		APIKey string
	}

	// Admin connection used by the managed relational-vector provider
	Postgres struct {
		AdminURL string
	}

	// Neo4j Aura provisioning API
	Aura struct {
		ClientID      string
		ClientSecret  string
		TenantID      string
		EncryptionKey string
		APIBaseURL    string
	}
}

var (
	once   sync.Once
	config *Config
)

// Load initializes and loads the configuration from environment variables
func Load() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("graph.provider", "kuzu")
		v.SetDefault("vector.provider", "lancedb")
		v.SetDefault("data.root", ".recall")
		v.SetDefault("aura.api_base_url", "https://api.neo4j.io")

		v.AutomaticEnv()

		config = &Config{}

		config.GraphProvider = os.Getenv("GRAPH_DATABASE_PROVIDER")
		if config.GraphProvider == "" {
			config.GraphProvider = v.GetString("graph.provider")
		}

		config.VectorProvider = os.Getenv("VECTOR_DATABASE_PROVIDER")
		if config.VectorProvider == "" {
			config.VectorProvider = v.GetString("vector.provider")
		}

		config.MultiTenant = os.Getenv("ENABLE_BACKEND_ISOLATION") == "true"

		config.DataRoot = os.Getenv("RECALL_DATA_ROOT")
		if config.DataRoot == "" {
			config.DataRoot = v.GetString("data.root")
		}

		config.Metadata.Path = os.Getenv("METADATA_DB_PATH")

		config.Neo4j.URL = os.Getenv("NEO4J_URL")
		config.Neo4j.Username = os.Getenv("NEO4J_USER")
		config.Neo4j.Password = os.Getenv("NEO4J_PASSWORD")
		config.Neo4j.Database = os.Getenv("NEO4J_DATABASE")

		config.Qdrant.Host = os.Getenv("QDRANT_HOST")
		config.Qdrant.APIKey = os.Getenv("QDRANT_API_KEY")

		config.Postgres.AdminURL = os.Getenv("POSTGRES_ADMIN_URL")

		config.Aura.ClientID = os.Getenv("NEO4J_CLIENT_ID")
		config.Aura.ClientSecret = os.Getenv("NEO4J_CLIENT_SECRET")
		config.Aura.TenantID = os.Getenv("NEO4J_TENANT_ID")
		config.Aura.APIBaseURL = v.GetString("aura.api_base_url")

		config.Aura.EncryptionKey = os.Getenv("NEO4J_ENCRYPTION_KEY")
		if config.Aura.EncryptionKey == "" {
			log.Warn("NEO4J_ENCRYPTION_KEY not set, falling back to an insecure development key")
			config.Aura.EncryptionKey = InsecureEncryptionKey
		}
	})

	return config
}

// Validate checks that the loaded configuration is internally consistent.
// It must be called once at startup, before any dataset is touched.
func (c *Config) Validate() error {
	var problems []string

	if c.GraphProvider == "" || c.VectorProvider == "" {
		problems = append(problems, "graph and vector providers must be configured")
	}

	if c.MultiTenant {
		if !graphIsolationCapable[c.GraphProvider] {
			problems = append(problems, fmt.Sprintf(
				"backend isolation requested but graph provider %q cannot serve one database per dataset", c.GraphProvider))
		}
		if !vectorIsolationCapable[c.VectorProvider] {
			problems = append(problems, fmt.Sprintf(
				"backend isolation requested but vector provider %q cannot serve one database per dataset", c.VectorProvider))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %v", problems)
	}

	return nil
}
