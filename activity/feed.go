// Package activity maintains a bounded, most-recent-first log of domain
// events per scope. The buffer is owned by its feed instance; presentation
// filters never mutate it.
package activity

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"collab-hub/contract"
	"collab-hub/domain"
	"collab-hub/search"

	"log/slog"
)

// MaxChangePreview caps how many field diffs an event shows before
// collapsing the rest into a "+N more" summary.
const MaxChangePreview = 3

const DefaultMaxItems = 50

type ScopeKind string

const (
	ScopeGlobal ScopeKind = "global"
	ScopeEntity ScopeKind = "entity"
	ScopeUser   ScopeKind = "user"
)

// Scope is the ingest-time filter of a feed. Entity scopes match on both
// entity type and id; user scopes on the acting user; global keeps all.
type Scope struct {
	Kind       ScopeKind
	EntityType string
	ID         string
}

func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

func EntityScope(entityType, entityID string) Scope {
	return Scope{Kind: ScopeEntity, EntityType: entityType, ID: entityID}
}

func UserScope(userID string) Scope {
	return Scope{Kind: ScopeUser, ID: userID}
}

func (s Scope) retains(e domain.ActivityEvent) bool {
	switch s.Kind {
	case ScopeEntity:
		return e.EntityType == s.EntityType && e.EntityID == s.ID
	case ScopeUser:
		return e.UserID == s.ID
	default:
		return true
	}
}

// Filter is the presentation-time filter, re-evaluated on every read.
// Search is a case-insensitive substring match over action, user name and
// entity type; Types restricts the event categories. Both compose with AND.
type Filter struct {
	Search string
	Types  []domain.ActivityType
}

func (f Filter) matches(e domain.ActivityEvent) bool {
	if len(f.Types) > 0 && !lo.Contains(f.Types, e.Type) {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(e.Action), needle) ||
		strings.Contains(strings.ToLower(e.UserName), needle) ||
		strings.Contains(strings.ToLower(e.EntityType), needle)
}

// Feed ingests activity topics into a bounded buffer, oldest evicted first.
type Feed struct {
	log      *slog.Logger
	hub      contract.Hub
	scope    Scope
	maxItems int
	validate *validator.Validate
	archive  *search.Index

	mu     sync.Mutex
	events []domain.ActivityEvent

	subs []contract.Subscription
}

type Option func(*Feed)

// WithArchive additionally indexes every retained event for full-text
// search beyond the bounded buffer.
func WithArchive(idx *search.Index) Option {
	return func(f *Feed) { f.archive = idx }
}

func NewFeed(log *slog.Logger, hub contract.Hub, scope Scope, maxItems int, opts ...Option) *Feed {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	f := &Feed{
		log:      log,
		hub:      hub,
		scope:    scope,
		maxItems: maxItems,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	for _, topic := range []domain.Topic{domain.TopicActivity, domain.TopicUserActivity, domain.TopicEntityActivity} {
		f.subs = append(f.subs, hub.Subscribe(topic, f.onActivity))
	}
	return f
}

// Close removes the feed's subscriptions synchronously.
func (f *Feed) Close() {
	for _, sub := range f.subs {
		f.hub.Unsubscribe(sub)
	}
	f.subs = nil
}

// Events returns the buffer contents, most recent first.
func (f *Feed) Events() []domain.ActivityEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ActivityEvent, len(f.events))
	copy(out, f.events)
	return out
}

// Filtered applies the presentation filter without touching the buffer.
func (f *Feed) Filtered(filter Filter) []domain.ActivityEvent {
	return lo.Filter(f.Events(), func(e domain.ActivityEvent, _ int) bool {
		return filter.matches(e)
	})
}

// ChangePreview returns the leading field diffs of an event plus the count
// of diffs collapsed behind the "+N more" summary.
func ChangePreview(e domain.ActivityEvent) ([]domain.FieldChange, int) {
	if len(e.Changes) <= MaxChangePreview {
		return e.Changes, 0
	}
	return e.Changes[:MaxChangePreview], len(e.Changes) - MaxChangePreview
}

func (f *Feed) onActivity(msg domain.Message) {
	var e domain.ActivityEvent
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		f.log.Debug("Dropping malformed activity payload", "error", err)
		return
	}
	if err := f.validate.Struct(e); err != nil {
		f.log.Debug("Dropping invalid activity event", "error", err)
		return
	}
	if !f.scope.retains(e) {
		return
	}

	f.mu.Lock()
	f.events = append([]domain.ActivityEvent{e}, f.events...)
	if len(f.events) > f.maxItems {
		f.events = f.events[:f.maxItems]
	}
	f.mu.Unlock()

	if f.archive != nil {
		if err := f.archive.Add(e); err != nil {
			f.log.Warn("Failed to index activity event", "error", err)
		}
	}
}
