package transport

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"collab-hub/contract"
	"collab-hub/domain"
	"collab-hub/errors"

	"log/slog"
)

// echoServer upgrades every request and echoes frames back verbatim.
func echoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, raw); err != nil {
				return
			}
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testSettings() *Settings {
	return &Settings{
		HandshakeTimeout: time.Second,
		ReconnectDelay:   50 * time.Millisecond,
		WriteTimeout:     time.Second,
		PingInterval:     time.Minute,
	}
}

func TestManager_Send_Before_Connect_Fails_Fast(t *testing.T) {
	req := require.New(t)
	m := NewManager(slog.Default(), "ws://127.0.0.1:0", testSettings())

	// When sending while disconnected
	err := m.Send(domain.Message{ID: uuid.New(), Topic: domain.TopicActivity, Timestamp: time.Now().UTC()})

	// Then the caller gets the failure immediately, nothing is queued
	req.True(stderrors.Is(err, errors.ErrChannelUnavailable))
	req.Equal(contract.StatusDisconnected, m.Status())
}

func TestManager_Connect_Send_Receive_Roundtrip(t *testing.T) {
	req := require.New(t)
	srv, url := echoServer(t)
	defer srv.Close()

	m := NewManager(slog.Default(), url, testSettings())
	received := make(chan domain.Message, 1)
	m.OnMessage(func(msg domain.Message) { received <- msg })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req.NoError(m.Connect(ctx))
	defer func() { _ = m.Disconnect() }()
	req.Equal(contract.StatusConnected, m.Status())

	// When sending an envelope through the echo server
	sent := domain.Message{ID: uuid.New(), Topic: domain.TopicActivity, Timestamp: time.Now().UTC()}
	req.NoError(m.Send(sent))

	// Then the echoed envelope comes back through OnMessage
	select {
	case got := <-received:
		req.Equal(sent.ID, got.ID)
		req.Equal(sent.Topic, got.Topic)
	case <-time.After(2 * time.Second):
		req.Fail("Echoed message never arrived")
	}
}

func TestManager_Connect_Twice_Is_A_Noop(t *testing.T) {
	req := require.New(t)
	srv, url := echoServer(t)
	defer srv.Close()

	m := NewManager(slog.Default(), url, testSettings())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req.NoError(m.Connect(ctx))
	defer func() { _ = m.Disconnect() }()

	// When connecting again on the already established channel
	req.NoError(m.Connect(ctx))
	req.Equal(contract.StatusConnected, m.Status())
}

func TestManager_Status_Transitions_Are_Observable(t *testing.T) {
	req := require.New(t)
	srv, url := echoServer(t)
	defer srv.Close()

	m := NewManager(slog.Default(), url, testSettings())
	var transitions []contract.ConnectionStatus
	m.OnStatusChange(func(status contract.ConnectionStatus) {
		transitions = append(transitions, status)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req.NoError(m.Connect(ctx))
	req.NoError(m.Disconnect())

	req.Equal([]contract.ConnectionStatus{
		contract.StatusConnecting,
		contract.StatusConnected,
		contract.StatusDisconnected,
	}, transitions)
}

func TestManager_Disconnect_Stops_The_Channel_For_Good(t *testing.T) {
	req := require.New(t)
	srv, url := echoServer(t)
	defer srv.Close()

	m := NewManager(slog.Default(), url, testSettings())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req.NoError(m.Connect(ctx))

	req.NoError(m.Disconnect())

	// Then sends fail fast and no reconnect happens
	err := m.Send(domain.Message{ID: uuid.New(), Topic: domain.TopicActivity, Timestamp: time.Now().UTC()})
	req.True(stderrors.Is(err, errors.ErrChannelUnavailable))
	req.Equal(contract.StatusDisconnected, m.Status())
}
