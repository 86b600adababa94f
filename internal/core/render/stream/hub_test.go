package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/observability/log"
	"github.com/zeusync/sophysics/internal/core/render"
)

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubBroadcastsFrames(t *testing.T) {
	hub := NewHub(log.NewNop())
	srv := httptest.NewServer(hub.Handler("/frames"))
	defer srv.Close()
	defer func() { _ = hub.Close() }()

	a := dial(t, srv, "/frames")
	b := dial(t, srv, "/frames")
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 10*time.Millisecond)

	frame := &render.Frame{Number: 42, Width: 10, Height: 10, Background: render.Black}
	frame.DrawCircle(1, geom.V(5, 5), 2, render.White)
	require.NoError(t, hub.Publish(frame))

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, kind)

		var got render.Frame
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, uint64(42), got.Number)
		require.Len(t, got.Circles, 1)
		assert.Equal(t, render.White, got.Circles[0].Color)
	}
}

func TestHubForgetsDisconnectedViewers(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer func() { _ = hub.Close() }()

	conn := dial(t, srv, "/")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(&render.Frame{}))
}

func TestHubClose(t *testing.T) {
	hub := NewHub(log.NewNop(), WithBuffer(4), WithWriteTimeout(time.Second))
	srv := httptest.NewServer(hub.Handler("/ws"))
	defer srv.Close()

	conn := dial(t, srv, "/ws")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())
	assert.Zero(t, hub.Clients())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	require.ErrorIs(t, hub.Publish(&render.Frame{}), ErrHubClosed)
}

func TestHubHealth(t *testing.T) {
	hub := NewHub(log.NewNop())
	srv := httptest.NewServer(hub.Handler("/ws"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 0, body["clients"])
}
