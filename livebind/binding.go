// Package livebind keeps a cached query result synchronized with inbound
// update and delete events for an entity. The cache is a process-wide
// external collaborator: a deletion always invalidates it, even when no UI
// for the entity is mounted.
package livebind

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"collab-hub/contract"
	"collab-hub/domain"

	"log/slog"
)

// UpdatePayload is the wire payload on <prefix>_updated topics.
// IsOptimistic marks tentative state broadcast ahead of server confirmation.
type UpdatePayload struct {
	Entity       domain.Entity `json:"entity"`
	IsOptimistic bool          `json:"isOptimistic,omitempty"`
}

// ConflictResolver merges a remote version into the locally cached one.
// When absent, remote wins (last writer wins).
type ConflictResolver func(local, remote domain.Entity) domain.Entity

// FetchFunc refetches the entity from the external data source during Sync.
type FetchFunc func(ctx context.Context) (domain.Entity, error)

type Binding struct {
	log   *slog.Logger
	hub   contract.Hub
	cache contract.QueryCache

	key        string
	entityType string
	entityID   string
	resolver   ConflictResolver
	fetch      FetchFunc

	mu     sync.Mutex
	subs   []contract.Subscription
	joined string
}

type Option func(*Binding)

// ForEntity scopes the binding to one entity and joins its room.
func ForEntity(entityType, entityID string) Option {
	return func(b *Binding) {
		b.entityType = entityType
		b.entityID = entityID
	}
}

// WithResolver merges remote updates into cached local state instead of
// overwriting it.
func WithResolver(r ConflictResolver) Option {
	return func(b *Binding) { b.resolver = r }
}

// WithFetch lets Sync refill the cache right after invalidating it.
func WithFetch(f FetchFunc) Option {
	return func(b *Binding) { b.fetch = f }
}

func New(log *slog.Logger, hub contract.Hub, cache contract.QueryCache, key string, opts ...Option) *Binding {
	b := &Binding{log: log, hub: hub, cache: cache, key: key}
	for _, opt := range opts {
		opt(b)
	}

	prefix := b.key
	if b.entityType != "" {
		prefix = b.entityType
	}
	if b.entityType != "" && b.entityID != "" {
		b.joined = domain.EntityRoom(b.entityType, b.entityID)
		hub.JoinRoom(b.joined)
	}
	b.subs = append(b.subs,
		hub.Subscribe(domain.UpdatedTopic(prefix), b.onUpdated),
		hub.Subscribe(domain.DeletedTopic(prefix), b.onDeleted),
	)
	return b
}

// Close unsubscribes synchronously and leaves the entity room. The cached
// entry stays: the cache outlives any one binding.
func (b *Binding) Close() {
	for _, sub := range b.subs {
		b.hub.Unsubscribe(sub)
	}
	b.subs = nil
	if b.joined != "" {
		b.hub.LeaveRoom(b.joined)
	}
}

// Get reads the cached entity, if any.
func (b *Binding) Get() (domain.Entity, bool) {
	raw, ok := b.cache.GetCached(b.key)
	if !ok {
		return nil, false
	}
	var e domain.Entity
	if err := json.Unmarshal(raw, &e); err != nil {
		b.log.Warn("Cached entry is not an entity, dropping it", "key", b.key, "error", err)
		_ = b.cache.Invalidate(b.key)
		return nil, false
	}
	return e, true
}

// OptimisticUpdate applies fn to the cached state, writes the result
// immediately and broadcasts it tagged optimistic so other clients see the
// tentative value. It does not wait for server confirmation; if the
// underlying operation later fails the caller rolls back with Rollback.
func (b *Binding) OptimisticUpdate(fn func(domain.Entity) domain.Entity) (domain.Entity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, _ := b.Get()
	next := fn(current)
	if err := b.put(next); err != nil {
		return nil, err
	}
	if err := b.emitUpdate(next, true); err != nil {
		// The local cache already holds the new value; only the broadcast
		// was lost. Surface it so the caller can decide.
		return next, err
	}
	return next, nil
}

// Rollback overwrites the cache with a prior snapshot.
func (b *Binding) Rollback(snapshot domain.Entity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.put(snapshot)
}

// Sync forces invalidation regardless of freshness and, when a fetcher was
// supplied, refills the cache from the data source.
func (b *Binding) Sync(ctx context.Context) error {
	if err := b.cache.Invalidate(b.key); err != nil {
		return fmt.Errorf("invalidate %s: %w", b.key, err)
	}
	if b.fetch == nil {
		return nil
	}
	e, err := b.fetch(ctx)
	if err != nil {
		return fmt.Errorf("refetch %s: %w", b.key, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.put(e)
}

func (b *Binding) onUpdated(msg domain.Message) {
	var payload UpdatePayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		b.log.Debug("Dropping malformed update payload", "key", b.key, "error", err)
		return
	}
	if payload.Entity == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	next := payload.Entity
	if local, ok := b.Get(); ok && b.resolver != nil {
		next = b.resolver(local, payload.Entity)
	}
	if err := b.put(next); err != nil {
		b.log.Warn("Failed to cache remote update", "key", b.key, "error", err)
	}
}

func (b *Binding) onDeleted(msg domain.Message) {
	if err := b.cache.Invalidate(b.key); err != nil {
		b.log.Warn("Failed to invalidate deleted entity", "key", b.key, "error", err)
	}
}

func (b *Binding) put(e domain.Entity) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", b.key, err)
	}
	return b.cache.SetCached(b.key, raw)
}

func (b *Binding) emitUpdate(e domain.Entity, optimistic bool) error {
	prefix := b.key
	if b.entityType != "" {
		prefix = b.entityType
	}
	return b.hub.EmitRoom(b.joined, domain.UpdatedTopic(prefix), UpdatePayload{
		Entity:       e,
		IsOptimistic: optimistic,
	})
}
