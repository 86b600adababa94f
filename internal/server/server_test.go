package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/sophysics/internal/config"
	"github.com/zeusync/sophysics/internal/core/observability/log"
	"github.com/zeusync/sophysics/internal/core/render"
)

func testStreamConfig() config.StreamConfig {
	cfg := config.Default().Stream
	cfg.Enabled = true
	cfg.Address = "127.0.0.1:0"
	return cfg
}

func TestServerStreamsFrames(t *testing.T) {
	srv := New(testStreamConfig(), log.NewNop())
	require.NoError(t, srv.Start(context.Background()))

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/frames", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer func() { _ = conn.Close() }()
	require.Eventually(t, func() bool { return srv.Hub().Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Hub().Publish(&render.Frame{Number: 7, Width: 4, Height: 4}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var got render.Frame
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, uint64(7), got.Number)

	health, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	body, err := io.ReadAll(health.Body)
	_ = health.Body.Close()
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"healthy","clients":1}`, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.Eventually(t, func() bool { return srv.Hub().Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServerStopBeforeStart(t *testing.T) {
	srv := New(testStreamConfig(), log.NewNop())
	require.ErrorIs(t, srv.Stop(context.Background()), ErrNotStarted)
	assert.Empty(t, srv.Addr())
}

func TestServerStartFailsOnBusyAddress(t *testing.T) {
	first := New(testStreamConfig(), log.NewNop())
	require.NoError(t, first.Start(context.Background()))
	defer func() { _ = first.Stop(context.Background()) }()

	cfg := testStreamConfig()
	cfg.Address = first.Addr()
	require.Error(t, New(cfg, log.NewNop()).Start(context.Background()))
}
