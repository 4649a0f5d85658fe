package hub

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"collab-hub/contract"
	"collab-hub/domain"
	"collab-hub/errors"

	"log/slog"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []domain.Message
	fail bool
}

func (t *fakeTransport) Connect(ctx context.Context) error { return nil }
func (t *fakeTransport) Disconnect() error                 { return nil }

func (t *fakeTransport) Send(msg domain.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail {
		return errors.ErrChannelUnavailable
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *fakeTransport) OnMessage(h contract.MessageHandler)     {}
func (t *fakeTransport) Status() contract.ConnectionStatus       { return contract.StatusConnected }
func (t *fakeTransport) OnStatusChange(h contract.StatusHandler) {}

func (t *fakeTransport) sentMessages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.sent))
	copy(out, t.sent)
	return out
}

func TestHub_Emit_Assigns_Id_And_Monotonic_Timestamp(t *testing.T) {
	req := require.New(t)
	tr := &fakeTransport{}
	h := New(slog.Default(), tr, 16)

	// When three payloads are emitted
	for i := 0; i < 3; i++ {
		req.NoError(h.Emit(domain.TopicActivity, map[string]any{"n": i}))
	}

	// Then each envelope has a unique id and timestamps never decrease
	sent := tr.sentMessages()
	req.Len(sent, 3)
	seen := map[uuid.UUID]struct{}{}
	for i, msg := range sent {
		req.NotEqual(uuid.Nil, msg.ID)
		seen[msg.ID] = struct{}{}
		if i > 0 {
			req.False(msg.Timestamp.Before(sent[i-1].Timestamp))
		}
	}
	req.Len(seen, 3)
}

func TestHub_Emit_Fails_Fast_While_Disconnected(t *testing.T) {
	req := require.New(t)
	tr := &fakeTransport{fail: true}
	h := New(slog.Default(), tr, 16)

	// When emitting while the channel is down
	err := h.Emit(domain.TopicActivity, map[string]any{"a": 1})

	// Then the failure is surfaced to the caller, not retried
	req.Error(err)
	req.True(stderrors.Is(err, errors.ErrChannelUnavailable))
	req.Empty(tr.sentMessages())
}

func TestHub_Deliver_Invokes_Handlers_In_Registration_Order(t *testing.T) {
	req := require.New(t)
	h := New(slog.Default(), &fakeTransport{}, 16)
	var calls []int

	h.Subscribe(domain.TopicActivity, func(msg domain.Message) { calls = append(calls, 1) })
	h.Subscribe(domain.TopicActivity, func(msg domain.Message) { calls = append(calls, 2) })

	h.Deliver(domain.Message{
		ID:        uuid.New(),
		Topic:     domain.TopicActivity,
		Timestamp: time.Now().UTC(),
		Data:      json.RawMessage(`{}`),
	})

	req.Equal([]int{1, 2}, calls)
}

func TestHub_Deliver_Drops_Malformed_Envelope(t *testing.T) {
	req := require.New(t)
	h := New(slog.Default(), &fakeTransport{}, 16)
	invoked := false

	h.Subscribe(domain.TopicActivity, func(msg domain.Message) { invoked = true })

	// When an envelope without id or timestamp arrives
	h.Deliver(domain.Message{Topic: domain.TopicActivity})

	// Then it is dropped without crashing any subscriber
	req.False(invoked)
}

func TestHub_Unsubscribe_Stops_Delivery(t *testing.T) {
	req := require.New(t)
	h := New(slog.Default(), &fakeTransport{}, 16)
	invoked := 0

	sub := h.Subscribe(domain.TopicActivity, func(msg domain.Message) { invoked++ })
	msg := domain.Message{ID: uuid.New(), Topic: domain.TopicActivity, Timestamp: time.Now().UTC()}

	h.Deliver(msg)
	h.Unsubscribe(sub)
	h.Unsubscribe(sub) // removing twice is a no-op
	h.Deliver(msg)

	req.Equal(1, invoked)
}

func TestHub_JoinRoom_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	tr := &fakeTransport{}
	h := New(slog.Default(), tr, 16)

	// When joining the same room twice
	h.JoinRoom("form:42")
	h.JoinRoom("form:42")

	// Then membership is recorded once and announced once
	req.True(h.InRoom("form:42"))
	req.Len(tr.sentMessages(), 1)
	req.Equal(domain.TopicRoomJoin, tr.sentMessages()[0].Topic)
}

func TestHub_LeaveRoom_Not_Joined_Is_A_Noop(t *testing.T) {
	req := require.New(t)
	tr := &fakeTransport{}
	h := New(slog.Default(), tr, 16)

	h.LeaveRoom("form:nope")

	req.Empty(tr.sentMessages())
}

func TestDispatcher_Drains_Inbound_Messages(t *testing.T) {
	req := require.New(t)
	tr := &fakeTransport{}
	h := New(slog.Default(), tr, 16)
	received := make(chan domain.Message, 1)

	h.Subscribe(domain.TopicActivity, func(msg domain.Message) { received <- msg })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = NewDispatcher(slog.Default(), h).Run(ctx)
	}()

	// When a message is enqueued the way the transport does it
	msg := domain.Message{ID: uuid.New(), Topic: domain.TopicActivity, Timestamp: time.Now().UTC()}
	h.enqueue(msg)

	// Then the dispatcher hands it to the subscriber
	select {
	case got := <-received:
		req.Equal(msg.ID, got.ID)
	case <-time.After(time.Second):
		req.Fail("Dispatcher should have delivered the message")
	}
}
