package hub

import (
	"sync"

	"github.com/google/uuid"

	"collab-hub/contract"
	"collab-hub/domain"
)

type entry struct {
	id      uuid.UUID
	handler contract.MessageHandler
}

// Registry maps topics to subscriber handlers. It is the one structure
// mutated by many independent components, so Add and Remove are safe for
// concurrent use and Remove is idempotent. Handlers registered on the same
// topic are returned in registration order; consumers must not assume any
// invocation order across different components.
type Registry struct {
	mu   sync.RWMutex
	subs map[domain.Topic][]entry
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[domain.Topic][]entry)}
}

// Add registers a handler for a topic and returns the subscription used to
// remove it later. Handlers are not comparable, hence the generated id.
func (r *Registry) Add(topic domain.Topic, h contract.MessageHandler) contract.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.subs[topic] = append(r.subs[topic], entry{id: id, handler: h})
	return contract.Subscription{ID: id, Topic: topic}
}

// Remove deletes a subscription. Removing one that is already gone is a no-op.
func (r *Registry) Remove(sub contract.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, ok := r.subs[sub.Topic]
	if !ok {
		return
	}
	for i, e := range entries {
		if e.id == sub.ID {
			r.subs[sub.Topic] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(r.subs[sub.Topic]) == 0 {
		delete(r.subs, sub.Topic)
	}
}

// HandlersFor returns a snapshot of the handlers for a topic in
// registration order.
func (r *Registry) HandlersFor(topic domain.Topic) []contract.MessageHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.subs[topic]
	if len(entries) == 0 {
		return nil
	}
	out := make([]contract.MessageHandler, len(entries))
	for i, e := range entries {
		out[i] = e.handler
	}
	return out
}

// TopicCount reports how many topics currently have subscribers.
func (r *Registry) TopicCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
