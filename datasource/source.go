// Package datasource binds a field to one of several possible data sources
// chosen by configuration. Sources are selected through a typed kind instead
// of a runtime string-to-function lookup, so an unknown binding fails at the
// registry boundary rather than deep inside a fetch.
package datasource

import (
	"context"
	"fmt"
	"sync"

	"collab-hub/domain"
)

// Kind tags one registered source, usually an entity type.
type Kind string

type Params map[string]string

// Source is the capability a relationship field binds against. Implemented
// per entity type by the host application's REST layer; the realtime
// components only select and call, never implement.
type Source interface {
	List(ctx context.Context, params Params) ([]domain.Entity, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Entity, error)
	Count(ctx context.Context, params Params) (int, error)
}

// Registry holds the configured sources. Registration happens once at
// startup; lookups are concurrent.
type Registry struct {
	mu      sync.RWMutex
	sources map[Kind]Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[Kind]Source)}
}

// Register binds a kind to its source. Rebinding a kind is a configuration
// error and is rejected.
func (r *Registry) Register(kind Kind, src Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[kind]; ok {
		return fmt.Errorf("data source %q already registered", kind)
	}
	r.sources[kind] = src
	return nil
}

// For resolves the source bound to a kind.
func (r *Registry) For(kind Kind) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[kind]
	if !ok {
		return nil, fmt.Errorf("no data source registered for %q", kind)
	}
	return src, nil
}

// Kinds lists the registered kinds, for configuration diagnostics.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.sources))
	for kind := range r.sources {
		out = append(out, kind)
	}
	return out
}
