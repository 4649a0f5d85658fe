// Package presence derives the list of online users, their status and
// editing flags from hub messages. Transitions are driven solely by inbound
// presence messages: no local timer infers absence, so a user whose client
// vanished without an explicit leave stays listed. Known limitation.
package presence

import (
	"encoding/json"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"collab-hub/contract"
	"collab-hub/domain"

	"log/slog"
)

// Tracker owns the presence state; consumers only ever see copies.
type Tracker struct {
	log      *slog.Logger
	hub      contract.Hub
	validate *validator.Validate

	mu      sync.Mutex
	current domain.PresenceUser
	order   []string
	users   map[string]*domain.PresenceUser

	subs []contract.Subscription
}

func NewTracker(log *slog.Logger, hub contract.Hub, current domain.PresenceUser) *Tracker {
	t := &Tracker{
		log:      log,
		hub:      hub,
		validate: validator.New(),
		current:  current,
		users:    make(map[string]*domain.PresenceUser),
	}
	t.subs = append(t.subs,
		hub.Subscribe(domain.TopicPresence, t.onPresence),
		hub.Subscribe(domain.TopicFormFieldEdit, t.onFieldEdit),
	)
	// The current user is present from the start, ahead of any echo of our
	// own heartbeat.
	t.apply(domain.PresenceUpdate{User: current})
	return t
}

// Close tears the subscriptions down synchronously and announces the
// departure best effort.
func (t *Tracker) Close() {
	for _, sub := range t.subs {
		t.hub.Unsubscribe(sub)
	}
	t.subs = nil
	if err := t.hub.Emit(domain.TopicPresence, domain.PresenceUpdate{User: t.Current(), Left: true}); err != nil {
		t.log.Debug("Departure announcement lost", "error", err)
	}
}

// Announce emits the current user's presence. Called once after connecting
// and periodically by the heartbeat worker so late joiners converge.
func (t *Tracker) Announce() error {
	return t.hub.Emit(domain.TopicPresence, domain.PresenceUpdate{User: t.Current()})
}

// SetStatus updates the current user's status locally and broadcasts it.
func (t *Tracker) SetStatus(status domain.PresenceStatus) error {
	t.mu.Lock()
	t.current.Status = status
	if u, ok := t.users[t.current.ID]; ok {
		u.Status = status
	}
	t.mu.Unlock()
	return t.Announce()
}

// SetPage updates the page the current user is looking at and broadcasts it.
func (t *Tracker) SetPage(page string) error {
	t.mu.Lock()
	t.current.CurrentPage = page
	if u, ok := t.users[t.current.ID]; ok {
		u.CurrentPage = page
	}
	t.mu.Unlock()
	return t.Announce()
}

// Current returns a copy of the current user's record.
func (t *Tracker) Current() domain.PresenceUser {
	t.mu.Lock()
	defer t.mu.Unlock()
	if u, ok := t.users[t.current.ID]; ok {
		return *u
	}
	return t.current
}

// Snapshot returns the full presence state in arrival order.
func (t *Tracker) Snapshot() domain.PresenceState {
	t.mu.Lock()
	defer t.mu.Unlock()
	users := make([]domain.PresenceUser, 0, len(t.order))
	for _, id := range t.order {
		users = append(users, *t.users[id])
	}
	current := t.current
	if u, ok := t.users[t.current.ID]; ok {
		current = *u
	}
	return domain.PresenceState{
		Users:       users,
		CurrentUser: current,
		TotalCount:  len(users),
	}
}

// Visible applies the display contract: the first maxVisible users by
// arrival order plus the count of the hidden remainder. The current user is
// excluded unless showCurrent is set. The total badge stays Snapshot's
// TotalCount, independent of this filtering.
func (t *Tracker) Visible(maxVisible int, showCurrent bool) ([]domain.PresenceUser, int) {
	state := t.Snapshot()
	candidates := state.Users
	if !showCurrent {
		candidates = lo.Filter(state.Users, func(u domain.PresenceUser, _ int) bool {
			return u.ID != state.CurrentUser.ID
		})
	}
	if maxVisible < 0 {
		maxVisible = 0
	}
	if len(candidates) <= maxVisible {
		return candidates, 0
	}
	return candidates[:maxVisible], len(candidates) - maxVisible
}

func (t *Tracker) onPresence(msg domain.Message) {
	var update domain.PresenceUpdate
	if err := json.Unmarshal(msg.Data, &update); err != nil {
		t.log.Debug("Dropping malformed presence payload", "error", err)
		return
	}
	if err := t.validate.Struct(update); err != nil {
		t.log.Debug("Dropping invalid presence payload", "error", err)
		return
	}
	t.apply(update)
}

func (t *Tracker) apply(update domain.PresenceUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := update.User.ID
	if update.Left {
		if _, ok := t.users[id]; !ok {
			return
		}
		delete(t.users, id)
		t.order = lo.Without(t.order, id)
		return
	}

	if existing, ok := t.users[id]; ok {
		// Editing flags are a side channel owned by form coordination;
		// presence messages never touch them.
		existing.Name = update.User.Name
		existing.Avatar = update.User.Avatar
		existing.Status = update.User.Status
		existing.CurrentPage = update.User.CurrentPage
		return
	}

	u := update.User
	t.users[id] = &u
	t.order = append(t.order, id)
}

func (t *Tracker) onFieldEdit(msg domain.Message) {
	var payload domain.FieldEditPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.log.Debug("Dropping malformed field edit payload", "error", err)
		return
	}
	if err := t.validate.Struct(payload); err != nil {
		t.log.Debug("Dropping invalid field edit payload", "error", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.users[payload.UserID]
	if !ok {
		return
	}
	switch payload.Action {
	case domain.EditStart:
		u.IsEditing = true
		u.EditingField = payload.FieldName
	case domain.EditStop:
		if u.EditingField == payload.FieldName {
			u.IsEditing = false
			u.EditingField = ""
		}
	}
}
