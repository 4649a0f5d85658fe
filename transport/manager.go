// Package transport owns the single websocket channel to the realtime
// backend. It reconnects on unexpected drops and exposes send/receive
// primitives to the hub. It never buffers outbound messages: while the
// channel is down, Send fails fast and callers decide what to do.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"collab-hub/contract"
	"collab-hub/domain"
	"collab-hub/errors"

	"log/slog"
)

type Settings struct {
	HandshakeTimeout time.Duration
	ReconnectDelay   time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
}

func DefaultSettings() *Settings {
	return &Settings{
		HandshakeTimeout: 2 * time.Second,
		ReconnectDelay:   5 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     15 * time.Second,
	}
}

// Manager maintains exactly one underlying connection, reused by every
// subscriber for the process lifetime.
type Manager struct {
	log      *slog.Logger
	url      string
	header   http.Header
	settings *Settings
	dialer   *websocket.Dialer

	mu             sync.Mutex
	conn           *websocket.Conn
	cancel         context.CancelFunc
	status         contract.ConnectionStatus
	handlers       []contract.MessageHandler
	statusHandlers []contract.StatusHandler
}

func NewManager(log *slog.Logger, url string, settings *Settings) *Manager {
	if settings == nil {
		settings = DefaultSettings()
	}
	return &Manager{
		log:      log,
		url:      url,
		settings: settings,
		dialer: &websocket.Dialer{
			HandshakeTimeout: settings.HandshakeTimeout,
		},
		status: contract.StatusDisconnected,
	}
}

// OnMessage registers a receiver for every inbound envelope. Must be called
// before Connect; the hub is the only expected receiver.
func (m *Manager) OnMessage(h contract.MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

func (m *Manager) OnStatusChange(h contract.StatusHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusHandlers = append(m.statusHandlers, h)
}

func (m *Manager) Status() contract.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connect dials the backend and starts the read and ping loops.
// Calling Connect while already connected is a no-op.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.conn != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	m.setStatus(contract.StatusConnecting)
	conn, err := m.dial(ctx)
	if err != nil {
		m.setStatus(contract.StatusDisconnected)
		return fmt.Errorf("dial %s: %w", m.url, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.conn = conn
	m.cancel = cancel
	m.mu.Unlock()
	m.setStatus(contract.StatusConnected)

	go m.readLoop(runCtx)
	go m.pingLoop(runCtx)
	return nil
}

// Disconnect tears the channel down for good. No reconnect follows.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	cancel := m.cancel
	conn := m.conn
	m.conn = nil
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	m.setStatus(contract.StatusDisconnected)
	return nil
}

// Send writes one envelope to the channel. Fails fast with
// errors.ErrChannelUnavailable while the channel is down.
func (m *Manager) Send(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || m.status != contract.StatusConnected {
		return errors.ErrChannelUnavailable
	}
	if err := m.conn.SetWriteDeadline(time.Now().Add(m.settings.WriteTimeout)); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrChannelUnavailable, err)
	}
	if err := m.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrChannelUnavailable, err)
	}
	return nil
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := m.dialer.DialContext(ctx, m.url, m.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func (m *Manager) readLoop(ctx context.Context) {
	for {
		m.mu.Lock()
		conn := m.conn
		m.mu.Unlock()
		if conn == nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.log.Warn("Realtime connection dropped", "error", err)
			if !m.reconnect(ctx) {
				return
			}
			continue
		}

		var msg domain.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			m.log.Debug("Dropping undecodable frame", "error", err)
			continue
		}
		for _, h := range m.snapshotHandlers() {
			h(msg)
		}
	}
}

// reconnect retries the dial with a fixed delay until it succeeds or the
// context is cancelled. Messages sent by the backend during the gap are
// lost; there is no replay.
func (m *Manager) reconnect(ctx context.Context) bool {
	m.setStatus(contract.StatusReconnecting)
	m.mu.Lock()
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			m.setStatus(contract.StatusDisconnected)
			return false
		case <-time.After(m.settings.ReconnectDelay):
		}

		conn, err := m.dial(ctx)
		if err != nil {
			m.log.Warn("Reconnect attempt failed", "error", err)
			continue
		}
		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()
		m.setStatus(contract.StatusConnected)
		m.log.Info("Realtime connection re-established")
		return true
	}
}

func (m *Manager) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(m.settings.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			conn := m.conn
			m.mu.Unlock()
			if conn == nil {
				continue
			}
			deadline := time.Now().Add(m.settings.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				// The read loop notices the broken connection and reconnects.
				m.log.Debug("Ping failed", "error", err)
			}
		}
	}
}

func (m *Manager) snapshotHandlers() []contract.MessageHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]contract.MessageHandler, len(m.handlers))
	copy(out, m.handlers)
	return out
}

func (m *Manager) setStatus(status contract.ConnectionStatus) {
	m.mu.Lock()
	if m.status == status {
		m.mu.Unlock()
		return
	}
	m.status = status
	handlers := make([]contract.StatusHandler, len(m.statusHandlers))
	copy(handlers, m.statusHandlers)
	m.mu.Unlock()

	for _, h := range handlers {
		h(status)
	}
}
