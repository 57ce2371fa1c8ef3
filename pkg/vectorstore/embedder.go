package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultVectorLength is the dimension of the default embedder used when a stored embedder
// cannot be reconstructed.
const DefaultVectorLength = 1536

// ErrEmbedderNotFound is returned when no factory is registered under an embedder name.
var ErrEmbedderNotFound = errors.New("embedder not found")

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	VectorLength() int
	// Name identifies the implementation; it is persisted with the store.
	Name() string
}

// EmbedderFactory builds an embedder on load.
type EmbedderFactory func() (Embedder, error)

// EmbedderRegistry maps persisted embedder names back to factories.
type EmbedderRegistry struct {
	mu        sync.RWMutex
	factories map[string]EmbedderFactory
	fallback  EmbedderFactory
}

// NewEmbedderRegistry creates an empty registry.
func NewEmbedderRegistry() *EmbedderRegistry {
	return &EmbedderRegistry{
		factories: make(map[string]EmbedderFactory),
	}
}

// Register adds a factory under name.
func (r *EmbedderRegistry) Register(name string, factory EmbedderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// SetDefault sets the factory for the default 1536-dimension embedder.
func (r *EmbedderRegistry) SetDefault(factory EmbedderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = factory
}

// Names lists registered embedder names.
func (r *EmbedderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve builds the embedder registered under name.
func (r *EmbedderRegistry) Resolve(name string) (Embedder, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrEmbedderNotFound, name)
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEmbedderNotFound, name)
	}

	embedder, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder %s: %w", name, err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: factory for %s returned nil", ErrEmbedderNotFound, name)
	}
	return embedder, nil
}

// Default builds the default 1536-dimension embedder.
func (r *EmbedderRegistry) Default() (Embedder, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no default embedder", ErrEmbedderNotFound)
	}

	r.mu.RLock()
	factory := r.fallback
	r.mu.RUnlock()

	if factory == nil {
		return nil, fmt.Errorf("%w: no default embedder", ErrEmbedderNotFound)
	}
	return factory()
}
