// Package domain contains core concepts of the collaboration layer.
// This file defines presence entities and their lifecycle invariants.
// No runtime, network, or UI logic should be added here.
package domain

type PresenceStatus string

const (
	StatusOnline PresenceStatus = "online"
	StatusAway   PresenceStatus = "away"
	StatusBusy   PresenceStatus = "busy"
)

// PresenceUser is one connected user as seen by the presence tracker.
// Created on the user's first presence message, mutated on every update,
// removed on an explicit leave. IsEditing and EditingField are a side
// channel fed by form field-edit events, not by presence messages.
type PresenceUser struct {
	ID           string         `json:"id" validate:"required"`
	Name         string         `json:"name"`
	Avatar       string         `json:"avatar,omitempty"`
	Status       PresenceStatus `json:"status" validate:"required,oneof=online away busy"`
	IsEditing    bool           `json:"isEditing,omitempty"`
	EditingField string         `json:"editingField,omitempty"`
	CurrentPage  string         `json:"currentPage,omitempty"`
}

// PresenceUpdate is the wire payload on the presence topic.
// Left marks an explicit departure; everything else is an upsert.
type PresenceUpdate struct {
	User PresenceUser `json:"user" validate:"required"`
	Left bool         `json:"left,omitempty"`
}

// PresenceState is the tracker-owned snapshot handed to consumers.
// Read-only to them; the tracker is the sole writer.
type PresenceState struct {
	Users       []PresenceUser
	CurrentUser PresenceUser
	TotalCount  int
}
