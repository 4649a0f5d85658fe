package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// AutoReads reports whether a notification of this type is marked read
// automatically after the configured display duration. Warnings and errors
// always require an explicit dismissal.
func (t NotificationType) AutoReads() bool {
	return t == NotifyInfo || t == NotifySuccess
}

// NotificationAction is an optional action button attached to a notification.
type NotificationAction struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// Notification is a user-facing alert. Read is the only field mutated after
// creation; eviction from the bounded buffer is oldest-first.
type Notification struct {
	ID         uuid.UUID            `json:"id" validate:"required"`
	Type       NotificationType     `json:"type" validate:"required,oneof=info success warning error"`
	Title      string               `json:"title"`
	Message    string               `json:"message"`
	Timestamp  time.Time            `json:"timestamp"`
	Read       bool                 `json:"read"`
	Actions    []NotificationAction `json:"actions,omitempty"`
	EntityType string               `json:"entityType,omitempty"`
	EntityID   string               `json:"entityId,omitempty"`
}
