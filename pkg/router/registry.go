// Package router maps datasets to provisioned graph and vector backends.
// Each supported provider implements the dataset database lifecycle behind
// a common Handler contract, dispatched through an explicit Registry rather
// than ambient global state.
package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/theapemachine/recall/pkg/config"
	"github.com/theapemachine/recall/pkg/errs"
	"github.com/theapemachine/recall/pkg/ledger"
	"github.com/theapemachine/recall/pkg/secret"
)

// Descriptor is the connection information a handler produces for one side
// (graph or vector) of a dataset's backend. ConnectionInfo may hold
// encrypted secrets or secret references, never live credentials.
type Descriptor struct {
	Name           string
	Provider       string
	URL            string
	Key            string
	Handler        string
	ConnectionInfo map[string]string
}

// Handler is the provider-specific dataset database lifecycle.
type Handler interface {
	// Create provisions a backend for the dataset and returns its
	// connection descriptor. It must validate the configured provider
	// against its own identity before performing any I/O.
	Create(ctx context.Context, datasetID uuid.UUID, owner ledger.User) (*Descriptor, error)

	// Resolve expands the persisted mapping into a usable one, decrypting
	// credentials where needed. The result is never persisted back.
	Resolve(ctx context.Context, db ledger.DatasetDatabase) (ledger.DatasetDatabase, error)

	// Delete destroys the provisioned backend.
	Delete(ctx context.Context, db ledger.DatasetDatabase) error
}

// Registration pairs a handler with the provider it serves.
type Registration struct {
	Handler      Handler
	ProviderName string
}

// Registry dispatches dataset database lifecycle calls by handler key. It
// is seeded with the built-in providers and extensible at runtime.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Registration
	cfg      *config.Config
}

// NewRegistry builds a registry seeded with the four built-in providers.
func NewRegistry(cfg *config.Config) *Registry {
	box := secret.NewBox(cfg.Aura.EncryptionKey)

	registry := &Registry{
		handlers: make(map[string]Registration),
		cfg:      cfg,
	}

	registry.Register("kuzu", NewKuzuHandler(cfg), "kuzu")
	registry.Register("lancedb", NewLanceDBHandler(cfg), "lancedb")
	registry.Register("pgvector", NewPGVectorHandler(cfg), "pgvector")
	registry.Register("neo4j_aura", NewAuraHandler(cfg, box), "neo4j")

	return registry
}

// Register adds or replaces a handler under the given key.
func (r *Registry) Register(key string, handler Handler, providerName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = Registration{Handler: handler, ProviderName: providerName}
}

// Get returns the handler registered under the key.
func (r *Registry) Get(key string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, ok := r.handlers[key]
	if !ok {
		return nil, fmt.Errorf("%w: no handler registered for %q", errs.ErrUnsupportedProvider, key)
	}
	return registration.Handler, nil
}

// ProviderName returns the provider a handler key serves.
func (r *Registry) ProviderName(key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, ok := r.handlers[key]
	if !ok {
		return "", fmt.Errorf("%w: no handler registered for %q", errs.ErrUnsupportedProvider, key)
	}
	return registration.ProviderName, nil
}

// Default handler keys per configured provider.
var (
	defaultGraphHandlers  = map[string]string{"kuzu": "kuzu", "neo4j": "neo4j_aura"}
	defaultVectorHandlers = map[string]string{"lancedb": "lancedb", "pgvector": "pgvector"}
)

// GraphHandlerKey returns the handler key serving the configured graph
// provider.
func GraphHandlerKey(cfg *config.Config) (string, error) {
	key, ok := defaultGraphHandlers[cfg.GraphProvider]
	if !ok {
		return "", fmt.Errorf("%w: no dataset database handler for graph provider %q",
			errs.ErrUnsupportedProvider, cfg.GraphProvider)
	}
	return key, nil
}

// VectorHandlerKey returns the handler key serving the configured vector
// provider.
func VectorHandlerKey(cfg *config.Config) (string, error) {
	key, ok := defaultVectorHandlers[cfg.VectorProvider]
	if !ok {
		return "", fmt.Errorf("%w: no dataset database handler for vector provider %q",
			errs.ErrUnsupportedProvider, cfg.VectorProvider)
	}
	return key, nil
}
