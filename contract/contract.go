//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"collab-hub/domain"
	"context"
	"encoding/json"
	"reflect"

	"github.com/google/uuid"
)

type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusReconnecting ConnectionStatus = "reconnecting"
)

// MessageHandler receives every inbound envelope whose topic matches a
// subscription. Handlers on the same topic run in registration order;
// no order is guaranteed across different subscribers.
type MessageHandler func(msg domain.Message)

type StatusHandler func(status ConnectionStatus)

// Transport owns the single bidirectional channel to the realtime backend.
// Send fails fast with errors.ErrChannelUnavailable while disconnected;
// buffering is a caller concern.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Send(msg domain.Message) error
	OnMessage(h MessageHandler)
	Status() ConnectionStatus
	OnStatusChange(h StatusHandler)
}

// Subscription identifies one registered handler so it can be removed
// without comparing function values.
type Subscription struct {
	ID    uuid.UUID
	Topic domain.Topic
}

// Hub is the process-wide pub/sub hub built on the Transport.
// Subscribe and Unsubscribe are local bookkeeping and cannot fail.
// Emit constructs the envelope and forwards it; delivery is at-most-once.
type Hub interface {
	Subscribe(topic domain.Topic, h MessageHandler) Subscription
	Unsubscribe(sub Subscription)
	Emit(topic domain.Topic, payload any) error
	EmitRoom(room string, topic domain.Topic, payload any) error
	JoinRoom(roomID string)
	LeaveRoom(roomID string)
}

// QueryCache is the external data-fetching/caching collaborator consumed by
// the live data binding. Implementations own the process-wide store; the
// binding must not assume their internals.
type QueryCache interface {
	GetCached(key string) (json.RawMessage, bool)
	SetCached(key string, value json.RawMessage) error
	Invalidate(key string) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself. Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
