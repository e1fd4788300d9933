package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/logging"
)

const writeWait = 5 * time.Second

// WSMessage is the envelope of every live-feed message.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSManager pushes each discovered device to the connected websocket clients.
type WSManager struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewWSManager(logger *zap.Logger) *WSManager {
	m := &WSManager{
		logger:  logging.OrNop(logger).Named("ws"),
		clients: make(map[*websocket.Conn]struct{}),
	}
	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     m.checkOrigin,
	}
	return m
}

// checkOrigin accepts requests without an Origin header and same-host origins.
func (m *WSManager) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && u.Host == r.Host {
		return true
	}
	m.logger.Warn("Rejected websocket origin", zap.String("origin", origin))
	return false
}

func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Debug("Upgrade failed", zap.Error(err))
		return
	}

	m.mu.Lock()
	m.clients[conn] = struct{}{}
	m.mu.Unlock()
	m.logger.Debug("Client connected", zap.String("remote", r.RemoteAddr))

	// Reads only detect the disconnect.
	go func() {
		defer m.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (m *WSManager) drop(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[conn]; ok {
		delete(m.clients, conn)
		conn.Close()
	}
}

// Clients returns the number of connected clients.
func (m *WSManager) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Emit implements ports.DeviceSink by broadcasting a "device" message.
func (m *WSManager) Emit(_ context.Context, device domain.Device) error {
	return m.broadcast(WSMessage{Type: "device", Payload: device})
}

// BroadcastSession sends the session summary, typically once the scan ends.
func (m *WSManager) BroadcastSession(info domain.SessionInfo) error {
	return m.broadcast(WSMessage{Type: "session", Payload: info})
}

func (m *WSManager) broadcast(msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
	return nil
}

// Close disconnects every client.
func (m *WSManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "scan finished"),
			time.Now().Add(writeWait))
		conn.Close()
		delete(m.clients, conn)
	}
}
