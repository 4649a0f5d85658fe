package domain

import (
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityCreate  ActivityType = "create"
	ActivityUpdate  ActivityType = "update"
	ActivityDelete  ActivityType = "delete"
	ActivityView    ActivityType = "view"
	ActivityComment ActivityType = "comment"
)

// FieldChange records one field-level diff carried by an activity event.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue,omitempty"`
	NewValue any    `json:"newValue,omitempty"`
}

// ActivityEvent is an immutable domain event describing something a user
// did to an entity. Held in a bounded most-recent-first buffer by each feed.
type ActivityEvent struct {
	ID         uuid.UUID      `json:"id" validate:"required"`
	Type       ActivityType   `json:"type" validate:"required,oneof=create update delete view comment"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	UserID     string         `json:"userId"`
	UserName   string         `json:"userName"`
	Action     string         `json:"action"`
	Changes    []FieldChange  `json:"changes,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
