// Package hub is the process-wide pub/sub layer of the collaboration
// subsystem: topic subscriptions, room membership and message emission,
// all built on the transport manager. Delivery is at-most-once; a client
// that is disconnected at send time simply misses the message.
package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"collab-hub/contract"
	"collab-hub/domain"
	"collab-hub/errors"

	"log/slog"
)

// RoomPayload is the control payload announcing room membership changes to
// the backend so it can scope its fan-out.
type RoomPayload struct {
	Room string `json:"room" validate:"required"`
}

type Hub struct {
	log       *slog.Logger
	transport contract.Transport
	registry  *Registry
	validate  *validator.Validate

	mu     sync.Mutex
	rooms  map[string]struct{}
	lastTS time.Time

	inbound   chan domain.Message
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func New(log *slog.Logger, transport contract.Transport, bufferSize int) *Hub {
	h := &Hub{
		log:       log,
		transport: transport,
		registry:  NewRegistry(),
		validate:  validator.New(),
		rooms:     make(map[string]struct{}),
		inbound:   make(chan domain.Message, bufferSize),
	}
	transport.OnMessage(h.enqueue)
	return h
}

// Subscribe registers a handler for a topic. Local bookkeeping only; it
// cannot fail. Handlers on the same topic run in registration order.
func (h *Hub) Subscribe(topic domain.Topic, handler contract.MessageHandler) contract.Subscription {
	return h.registry.Add(topic, handler)
}

// Unsubscribe removes a previously registered handler. Idempotent.
func (h *Hub) Unsubscribe(sub contract.Subscription) {
	h.registry.Remove(sub)
}

// Emit constructs an envelope for the payload and forwards it to the
// transport. When the channel is unavailable the payload is dropped and the
// failure is returned; retrying is a caller concern.
func (h *Hub) Emit(topic domain.Topic, payload any) error {
	return h.EmitRoom("", topic, payload)
}

// EmitRoom emits an envelope scoped to a room.
func (h *Hub) EmitRoom(room string, topic domain.Topic, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}
	msg := domain.Message{
		ID:        uuid.New(),
		Topic:     topic,
		Room:      room,
		Timestamp: h.stamp(),
		Data:      data,
	}
	if err := h.transport.Send(msg); err != nil {
		return fmt.Errorf("emit %s: %w", topic, err)
	}
	return nil
}

// JoinRoom records membership of a logical room and announces it to the
// backend. Joining a room twice is idempotent. The announcement is best
// effort: membership is local bookkeeping either way.
func (h *Hub) JoinRoom(roomID string) {
	h.mu.Lock()
	if _, ok := h.rooms[roomID]; ok {
		h.mu.Unlock()
		return
	}
	h.rooms[roomID] = struct{}{}
	h.mu.Unlock()

	if err := h.Emit(domain.TopicRoomJoin, RoomPayload{Room: roomID}); err != nil {
		h.log.Debug("Room join announcement lost", "room", roomID, "error", err)
	}
}

// LeaveRoom is a no-op for a room that was never joined.
func (h *Hub) LeaveRoom(roomID string) {
	h.mu.Lock()
	if _, ok := h.rooms[roomID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.rooms, roomID)
	h.mu.Unlock()

	if err := h.Emit(domain.TopicRoomLeave, RoomPayload{Room: roomID}); err != nil {
		h.log.Debug("Room leave announcement lost", "room", roomID, "error", err)
	}
}

// InRoom reports current membership. Mostly useful to tests and telemetry.
func (h *Hub) InRoom(roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rooms[roomID]
	return ok
}

// Deliver validates one inbound envelope and invokes every matching handler
// in registration order. Malformed envelopes are dropped with a debug log;
// they must never crash a subscriber.
func (h *Hub) Deliver(msg domain.Message) {
	if err := h.validate.Struct(msg); err != nil {
		h.dropped.Add(1)
		h.log.Debug("Dropping inbound message", "topic", msg.Topic,
			"error", errors.ErrMalformedMessage, "detail", err)
		return
	}
	for _, handler := range h.registry.HandlersFor(msg.Topic) {
		handler(msg)
	}
	h.delivered.Add(1)
}

// Stats exposes counters for the telemetry worker.
func (h *Hub) Stats() map[string]any {
	h.mu.Lock()
	roomCount := len(h.rooms)
	h.mu.Unlock()
	return map[string]any{
		"topics":    h.registry.TopicCount(),
		"rooms":     roomCount,
		"delivered": h.delivered.Load(),
		"dropped":   h.dropped.Load(),
		"status":    h.transport.Status(),
	}
}

// stamp returns a timestamp that never decreases across emissions,
// even if the wall clock steps backwards.
func (h *Hub) stamp() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now().UTC()
	if now.Before(h.lastTS) {
		now = h.lastTS
	}
	h.lastTS = now
	return now
}

func (h *Hub) enqueue(msg domain.Message) {
	select {
	case h.inbound <- msg:
	default:
		h.dropped.Add(1)
		h.log.Debug("Inbound buffer full, dropping message", "topic", msg.Topic)
	}
}
