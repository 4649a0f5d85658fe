// Package collab coordinates concurrent editing of one form: field-level
// edit claims broadcast between clients, fire-and-forget value broadcasts,
// and the conflict resolution flow for divergent saves.
package collab

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"collab-hub/contract"
	"collab-hub/domain"

	"log/slog"
)

// FormSession is the per-form room membership plus the local view of who is
// editing what. Claims are not expired by any timer: an editor that
// disconnects without a stop_edit leaves a stale claim behind.
type FormSession struct {
	log      *slog.Logger
	hub      contract.Hub
	validate *validator.Validate

	formID   string
	room     string
	userID   string
	userName string

	mu      sync.Mutex
	editors []domain.FieldEditor

	subs []contract.Subscription
}

func NewFormSession(log *slog.Logger, hub contract.Hub, formID, userID, userName string) *FormSession {
	s := &FormSession{
		log:      log,
		hub:      hub,
		validate: validator.New(),
		formID:   formID,
		room:     domain.FormRoom(formID),
		userID:   userID,
		userName: userName,
	}
	hub.JoinRoom(s.room)
	s.subs = append(s.subs,
		hub.Subscribe(domain.TopicFormFieldEdit, s.onFieldEdit),
		hub.Subscribe(domain.TopicFormChange, s.onFormChange),
	)
	return s
}

// Close releases the session: own claims are withdrawn, handlers removed
// synchronously, and the room left.
func (s *FormSession) Close() {
	s.mu.Lock()
	own := lo.Filter(s.editors, func(e domain.FieldEditor, _ int) bool {
		return e.UserID == s.userID
	})
	s.mu.Unlock()

	for _, claim := range own {
		if err := s.StopEdit(claim.FieldName); err != nil {
			s.log.Debug("Claim withdrawal lost", "field", claim.FieldName, "error", err)
		}
	}
	for _, sub := range s.subs {
		s.hub.Unsubscribe(sub)
	}
	s.subs = nil
	s.hub.LeaveRoom(s.room)
}

// StartEdit claims a field for the current user and broadcasts the claim.
// The local state is updated even if the broadcast fails.
func (s *FormSession) StartEdit(fieldName string) error {
	s.apply(domain.FieldEditPayload{
		UserID:    s.userID,
		UserName:  s.userName,
		FieldName: fieldName,
		Action:    domain.EditStart,
	})
	return s.hub.EmitRoom(s.room, domain.TopicFormFieldEdit, domain.FieldEditPayload{
		UserID:    s.userID,
		UserName:  s.userName,
		FieldName: fieldName,
		Action:    domain.EditStart,
	})
}

// StopEdit withdraws the current user's claim on a field.
func (s *FormSession) StopEdit(fieldName string) error {
	s.apply(domain.FieldEditPayload{
		UserID:    s.userID,
		FieldName: fieldName,
		Action:    domain.EditStop,
	})
	return s.hub.EmitRoom(s.room, domain.TopicFormFieldEdit, domain.FieldEditPayload{
		UserID:    s.userID,
		UserName:  s.userName,
		FieldName: fieldName,
		Action:    domain.EditStop,
	})
}

// BroadcastChange shares a field value with the room, fire and forget.
// Receivers log it; values are only ever merged through conflict resolution.
func (s *FormSession) BroadcastChange(fieldName string, value any) error {
	return s.hub.EmitRoom(s.room, domain.TopicFormChange, domain.FormChangePayload{
		UserID:    s.userID,
		FieldName: fieldName,
		Value:     value,
	})
}

// Editors returns every active claim.
func (s *FormSession) Editors() []domain.FieldEditor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.FieldEditor, len(s.editors))
	copy(out, s.editors)
	return out
}

// EditorsFor returns the claims on one field held by other users, for the
// "being edited by" indicator next to the input.
func (s *FormSession) EditorsFor(fieldName string) []domain.FieldEditor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(s.editors, func(e domain.FieldEditor, _ int) bool {
		return e.FieldName == fieldName && e.UserID != s.userID
	})
}

func (s *FormSession) onFieldEdit(msg domain.Message) {
	if msg.Room != "" && msg.Room != s.room {
		return
	}
	var payload domain.FieldEditPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		s.log.Debug("Dropping malformed field edit payload", "error", err)
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		s.log.Debug("Dropping invalid field edit payload", "error", err)
		return
	}
	if payload.UserID == s.userID {
		// Our own echo; already applied locally.
		return
	}
	s.apply(payload)
}

// apply keeps at most one claim per (user, field): any prior claim for the
// pair is dropped before a start inserts the new one.
func (s *FormSession) apply(payload domain.FieldEditPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editors = lo.Reject(s.editors, func(e domain.FieldEditor, _ int) bool {
		return e.UserID == payload.UserID && e.FieldName == payload.FieldName
	})
	if payload.Action == domain.EditStart {
		s.editors = append(s.editors, domain.FieldEditor{
			UserID:    payload.UserID,
			UserName:  payload.UserName,
			FieldName: payload.FieldName,
			At:        time.Now().UTC(),
		})
	}
}

func (s *FormSession) onFormChange(msg domain.Message) {
	if msg.Room != "" && msg.Room != s.room {
		return
	}
	var payload domain.FormChangePayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		s.log.Debug("Dropping malformed form change payload", "error", err)
		return
	}
	if payload.UserID == s.userID {
		return
	}
	// Deliberately not applied to local form state: fighting the form
	// library over ownership caused more harm than the stale value.
	s.log.Debug("Remote form change observed",
		"form", s.formID, "field", payload.FieldName, "user", payload.UserID)
}
