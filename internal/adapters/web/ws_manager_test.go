package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

func dialWS(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(url, header)
}

func TestWSManager_BroadcastsDevices(t *testing.T) {
	s := setupServer(t)
	srv := httptest.NewServer(SetupRoutes(s))
	defer srv.Close()

	conn, _, err := dialWS(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.WS.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.WS.Emit(context.Background(), device("00:14:6c:11:22:33", "DIRECT-ab1", domain.SecurityWPA2PSK, 0)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string        `json:"type"`
		Payload domain.Device `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "device", msg.Type)
	assert.Equal(t, "DIRECT-ab1", msg.Payload.SSID)
}

func TestWSManager_SessionMessage(t *testing.T) {
	s := setupServer(t)
	srv := httptest.NewServer(SetupRoutes(s))
	defer srv.Close()

	conn, _, err := dialWS(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.WS.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.WS.BroadcastSession(domain.SessionInfo{ID: "s1"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"session"`)
}

func TestWSManager_RejectsForeignOrigin(t *testing.T) {
	s := setupServer(t)
	srv := httptest.NewServer(SetupRoutes(s))
	defer srv.Close()

	_, resp, err := dialWS(t, srv, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, s.WS.Clients())
}

func TestWSManager_DropsClosedClients(t *testing.T) {
	s := setupServer(t)
	srv := httptest.NewServer(SetupRoutes(s))
	defer srv.Close()

	conn, _, err := dialWS(t, srv, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.WS.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return s.WS.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestWSManager_CloseDisconnects(t *testing.T) {
	s := setupServer(t)
	srv := httptest.NewServer(SetupRoutes(s))
	defer srv.Close()

	conn, _, err := dialWS(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.WS.Clients() == 1 }, time.Second, 5*time.Millisecond)

	s.WS.Close()
	assert.Zero(t, s.WS.Clients())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
