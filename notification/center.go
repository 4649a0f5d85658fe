// Package notification keeps the bounded queue of user-facing alerts with
// read state. The center owns its buffer; nothing else writes it.
package notification

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"collab-hub/contract"
	"collab-hub/domain"
	"collab-hub/moderation"

	"log/slog"
)

const (
	DefaultMaxNotifications = 50
	DefaultAutoHide         = 5 * time.Second
)

type Center struct {
	log       *slog.Logger
	hub       contract.Hub
	validate  *validator.Validate
	max       int
	autoHide  time.Duration
	sanitizer *moderation.Sanitizer

	mu     sync.Mutex
	items  []*domain.Notification
	timers map[uuid.UUID]*time.Timer

	subs []contract.Subscription
}

type Option func(*Center)

// WithSanitizer masks blocked terms in titles and messages at ingest.
func WithSanitizer(s *moderation.Sanitizer) Option {
	return func(c *Center) { c.sanitizer = s }
}

func NewCenter(log *slog.Logger, hub contract.Hub, max int, autoHide time.Duration, opts ...Option) *Center {
	if max <= 0 {
		max = DefaultMaxNotifications
	}
	if autoHide <= 0 {
		autoHide = DefaultAutoHide
	}
	c := &Center{
		log:      log,
		hub:      hub,
		validate: validator.New(),
		max:      max,
		autoHide: autoHide,
		timers:   make(map[uuid.UUID]*time.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, topic := range []domain.Topic{domain.TopicNotification, domain.TopicSystemNotification, domain.TopicMention} {
		c.subs = append(c.subs, hub.Subscribe(topic, c.onNotification))
	}
	return c
}

// Close removes the subscriptions and stops pending auto-read timers.
func (c *Center) Close() {
	for _, sub := range c.subs {
		c.hub.Unsubscribe(sub)
	}
	c.subs = nil

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, timer := range c.timers {
		timer.Stop()
		delete(c.timers, id)
	}
}

// Notifications returns the buffer contents, most recent first.
func (c *Center) Notifications() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Map(c.items, func(n *domain.Notification, _ int) domain.Notification {
		return *n
	})
}

// UnreadCount counts the notifications still marked unread.
func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.CountBy(c.items, func(n *domain.Notification) bool {
		return !n.Read
	})
}

// MarkAsRead flips one notification to read and cancels its auto-read timer.
func (c *Center) MarkAsRead(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markLocked(id)
}

func (c *Center) MarkAllAsRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.items {
		c.markLocked(n.ID)
	}
}

// Remove hard-deletes one notification from the buffer.
func (c *Center) Remove(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked(id)
	c.items = lo.Reject(c.items, func(n *domain.Notification, _ int) bool {
		return n.ID == id
	})
}

func (c *Center) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.timers {
		c.stopTimerLocked(id)
	}
	c.items = nil
}

func (c *Center) onNotification(msg domain.Message) {
	var n domain.Notification
	if err := json.Unmarshal(msg.Data, &n); err != nil {
		c.log.Debug("Dropping malformed notification payload", "error", err)
		return
	}
	if err := c.validate.Struct(n); err != nil {
		c.log.Debug("Dropping invalid notification", "error", err)
		return
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = msg.Timestamp
	}
	if c.sanitizer != nil {
		n.Title = c.sanitizer.Mask(n.Title)
		n.Message = c.sanitizer.Mask(n.Message)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append([]*domain.Notification{&n}, c.items...)
	for len(c.items) > c.max {
		evicted := c.items[len(c.items)-1]
		c.stopTimerLocked(evicted.ID)
		c.items = c.items[:len(c.items)-1]
	}

	// Only informational notifications fade on their own; warnings and
	// errors wait for the user.
	if n.Type.AutoReads() && !n.Read {
		id := n.ID
		c.timers[id] = time.AfterFunc(c.autoHide, func() {
			c.MarkAsRead(id)
		})
	}
}

func (c *Center) markLocked(id uuid.UUID) {
	c.stopTimerLocked(id)
	for _, n := range c.items {
		if n.ID == id {
			n.Read = true
			return
		}
	}
}

func (c *Center) stopTimerLocked(id uuid.UUID) {
	if timer, ok := c.timers[id]; ok {
		timer.Stop()
		delete(c.timers, id)
	}
}
