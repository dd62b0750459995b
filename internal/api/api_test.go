package api

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

	"github.com/wonny/hawkeye/internal/api/handlers"
	"github.com/wonny/hawkeye/internal/calibration"
	"github.com/wonny/hawkeye/internal/engine"
	"github.com/wonny/hawkeye/internal/stability"
	"github.com/wonny/hawkeye/pkg/config"
	"github.com/wonny/hawkeye/pkg/logger"
)

type stubEngine struct{}

func (stubEngine) Board(context.Context) (*engine.Board, error) {
	return &engine.Board{Day: "2024-01-15", Available: true}, nil
}

func (stubEngine) TakeEndOfDaySnapshot(context.Context) (*engine.SnapshotResult, error) {
	return &engine.SnapshotResult{Day: "2024-01-15"}, nil
}

func (stubEngine) RunNightlyAudit(context.Context) (*calibration.Report, error) {
	return &calibration.Report{Day: "2024-01-15"}, nil
}

func (stubEngine) Stability(context.Context) ([]stability.Result, error) {
	return nil, nil
}

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	h := handlers.NewEngineHandler(stubEngine{}, nil, logger.Nop())
	server := httptest.NewServer(NewRouter(h, hub, logger.Nop()))
	t.Cleanup(server.Close)
	return server
}

func TestRouter_Routes(t *testing.T) {
	server := newTestServer(t, NewHub(logger.Nop()))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/estimates", http.StatusOK},
		{http.MethodGet, "/api/stability", http.StatusOK},
		{http.MethodPost, "/api/snapshot", http.StatusOK},
		{http.MethodPost, "/api/audit", http.StatusOK},
		{http.MethodGet, "/api/audit", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, server.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHub_StreamsBoards(t *testing.T) {
	hub := NewHub(logger.Nop())
	server := newTestServer(t, hub)

	// a board published before the client connects is replayed on connect
	require.NoError(t, hub.Render(context.Background(), &engine.Board{Day: "2024-01-15", Available: true}))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/board"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var board engine.Board
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&board))
	assert.Equal(t, "2024-01-15", board.Day)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Render(context.Background(), &engine.Board{Day: "2024-01-16"}))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var next map[string]interface{}
	require.NoError(t, json.Unmarshal(msg, &next))
	assert.Equal(t, "2024-01-16", next["day"])
	assert.Equal(t, false, next["available"])
}

func TestHub_ClientLeaves(t *testing.T) {
	hub := NewHub(logger.Nop())
	server := newTestServer(t, hub)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/board"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	// rendering with nobody connected is fine
	assert.NoError(t, hub.Render(context.Background(), &engine.Board{}))
}

func startServer(t *testing.T, hub *Hub) *Server {
	t.Helper()
	cfg := &config.Config{Port: "0", Env: "test"}
	cfg.Store.Backend = "memory"

	h := handlers.NewEngineHandler(stubEngine{}, nil, logger.Nop())
	server := New(cfg, logger.Nop(), NewRouter(h, hub, logger.Nop()), hub)
	require.NoError(t, server.Listen())

	done := make(chan error, 1)
	go func() { done <- server.Start() }()
	t.Cleanup(func() {
		_ = server.Shutdown(context.Background())
		assert.NoError(t, <-done)
	})
	return server
}

func TestServer_ServesOnBoundPort(t *testing.T) {
	server := startServer(t, NewHub(logger.Nop()))
	require.NotEmpty(t, server.Addr())

	resp, err := http.Get("http://" + server.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ShutdownClosesBoardStreams(t *testing.T) {
	hub := NewHub(logger.Nop())
	server := startServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+server.Addr()+"/ws/board", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	// 클라이언트는 close frame 을 받는다
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure), "got %v", err)
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_ClosedRefusesClients(t *testing.T) {
	hub := NewHub(logger.Nop())
	server := newTestServer(t, hub)
	hub.Close()
	hub.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/board"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// rendering after close is a no-op
	assert.NoError(t, hub.Render(context.Background(), &engine.Board{}))
}
