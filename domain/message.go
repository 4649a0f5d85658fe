// Package domain contains core concepts of the collaboration layer.
// This file defines the envelope crossing the realtime transport.
// Envelopes are immutable once emitted.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic is a named channel of events within the pub/sub hub.
type Topic string

const (
	TopicPresence           Topic = "presence"
	TopicActivity           Topic = "activity"
	TopicUserActivity       Topic = "user_activity"
	TopicEntityActivity     Topic = "entity_activity"
	TopicNotification       Topic = "notification"
	TopicSystemNotification Topic = "system_notification"
	TopicMention            Topic = "mention"
	TopicFormFieldEdit      Topic = "form_field_edit"
	TopicFormChange         Topic = "form_change"
	TopicRoomJoin           Topic = "room_join"
	TopicRoomLeave          Topic = "room_leave"
)

// UpdatedTopic builds the entity update topic for a prefix,
// e.g. "customer" -> "customer_updated".
func UpdatedTopic(prefix string) Topic {
	return Topic(prefix + "_updated")
}

// DeletedTopic builds the entity deletion topic for a prefix.
func DeletedTopic(prefix string) Topic {
	return Topic(prefix + "_deleted")
}

// Message is the envelope for every event crossing the transport.
// ID is unique per message within a session; Timestamp is monotonically
// non-decreasing per sender. Room is empty for unscoped emissions.
type Message struct {
	ID        uuid.UUID       `json:"id" validate:"required"`
	Topic     Topic           `json:"topic" validate:"required"`
	Room      string          `json:"room,omitempty"`
	Timestamp time.Time       `json:"timestamp" validate:"required"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// FormRoom names the room scoping a single form instance.
func FormRoom(formID string) string {
	return "form:" + formID
}

// EntityRoom names the room scoping a single entity.
func EntityRoom(entityType, entityID string) string {
	return entityType + ":" + entityID
}
