package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/planetwalk/internal/config"
	"github.com/zeusync/planetwalk/internal/core/events"
	"github.com/zeusync/planetwalk/internal/core/events/bus"
	"github.com/zeusync/planetwalk/internal/core/input"
	"github.com/zeusync/planetwalk/internal/core/models"
	"github.com/zeusync/planetwalk/internal/sim"
	"github.com/zeusync/planetwalk/pkg/wire"
)

type fakeSim struct {
	mu     sync.Mutex
	pushed []input.Event
	latest *sim.Snapshot
}

func (f *fakeSim) Push(evs ...input.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, evs...)
}

func (f *fakeSim) Latest() *sim.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *fakeSim) Pushed() []input.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]input.Event(nil), f.pushed...)
}

func snapshot(frame int64, x float64) *sim.Snapshot {
	return &sim.Snapshot{
		Frame: frame,
		Agent: 1,
		Entities: []sim.EntityView{{
			ID:       1,
			Kind:     models.KindAgent,
			Position: [3]float64{x, 0, 0},
			Rotation: [4]float64{0, 0, 0, 1},
			Scale:    [3]float64{1, 1, 1},
		}},
		DirectionLine: "hidden",
	}
}

type harness struct {
	sim    *fakeSim
	bus    bus.EventBus
	server *Server
	http   *httptest.Server
}

func newHarness(t *testing.T, token string) *harness {
	t.Helper()
	return newHarnessWithConfig(t, config.ServerConfig{Token: token})
}

func newHarnessWithConfig(t *testing.T, cfg config.ServerConfig) *harness {
	t.Helper()
	h := &harness{sim: &fakeSim{latest: snapshot(1, 0)}, bus: bus.New()}
	srv, err := NewServer(cfg, h.sim, h.bus, nil)
	require.NoError(t, err)
	h.server = srv
	h.http = httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Close()
		h.http.Close()
	})
	return h
}

func (h *harness) dial(t *testing.T, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return websocket.DefaultDialer.Dial(u, nil)
}

func read(t *testing.T, conn *websocket.Conn) wire.ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wire.ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// connect dials and consumes the welcome and initial snapshot.
func (h *harness) connect(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := h.dial(t, token)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	welcome := read(t, conn)
	require.Equal(t, wire.TypeWelcome, welcome.Type)
	require.NotEmpty(t, welcome.ClientID)
	first := read(t, conn)
	require.Equal(t, wire.TypeSnapshot, first.Type)

	require.Eventually(t, func() bool { return h.server.GetStats().ClientCount >= 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestWebSocketRequiresToken(t *testing.T) {
	h := newHarness(t, "supersecrettoken")

	_, resp, err := h.dial(t, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = h.dial(t, "invalid")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	h.connect(t, "supersecrettoken")
}

func TestWebSocketInputReachesSimulation(t *testing.T) {
	h := newHarness(t, "")
	conn := h.connect(t, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"key","key":"W","down":true}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"wheel","y":1.5}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"toggle"}`)))

	require.Eventually(t, func() bool { return len(h.sim.Pushed()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []input.Event{
		input.KeyDown("W"),
		input.Wheel(1.5),
		input.Trigger(input.ActionToggleDirectionLines),
	}, h.sim.Pushed())
}

func TestWebSocketInvalidMessageGetsError(t *testing.T) {
	h := newHarness(t, "")
	conn := h.connect(t, "")

	require.NoError(t, conn.WriteJSON(wire.ClientMessage{Type: "jump"}))
	msg := read(t, conn)
	assert.Equal(t, wire.TypeError, msg.Type)
	assert.Contains(t, msg.Error, "jump")
	assert.Empty(t, h.sim.Pushed())
}

func TestWebSocketInputIsRateLimited(t *testing.T) {
	h := newHarnessWithConfig(t, config.ServerConfig{InputRateLimit: 1})
	conn := h.connect(t, "")

	require.NoError(t, conn.WriteJSON(wire.Key("W", true)))
	require.NoError(t, conn.WriteJSON(wire.Key("W", false)))

	msg := read(t, conn)
	assert.Equal(t, wire.TypeError, msg.Type)
	assert.Contains(t, msg.Error, ErrRateLimited.Error())
	assert.Equal(t, []input.Event{input.KeyDown("W")}, h.sim.Pushed())
}

func TestIdenticalSnapshotsAreSuppressed(t *testing.T) {
	h := newHarness(t, "")
	conn := h.connect(t, "")

	publish := func(s *sim.Snapshot) {
		require.NoError(t, h.bus.Publish(bus.NewEvent(events.SnapshotPublished, "test", s)))
	}
	publish(snapshot(2, 1))
	publish(snapshot(3, 1)) // same content, later frame
	publish(snapshot(4, 2))

	msg := read(t, conn)
	require.Equal(t, wire.TypeSnapshot, msg.Type)
	assert.Equal(t, int64(2), msg.Snapshot.Frame)

	msg = read(t, conn)
	require.Equal(t, wire.TypeSnapshot, msg.Type)
	assert.Equal(t, int64(4), msg.Snapshot.Frame)

	stats := h.server.GetStats()
	assert.Equal(t, uint64(2), stats.Broadcasts)
	assert.Equal(t, uint64(1), stats.Suppressed)
}

func TestLifecycleEventsAreForwarded(t *testing.T) {
	h := newHarness(t, "")
	conn := h.connect(t, "")

	view := sim.EntityView{ID: 9, Kind: models.KindIndicator, Parent: 1}
	require.NoError(t, h.bus.Publish(bus.NewEvent(events.EntitySpawned, "test", view)))
	require.NoError(t, h.bus.Publish(bus.NewEvent(events.EntityDespawned, "test", sim.DespawnView{ID: 9, Kind: models.KindIndicator, Parent: 1})))

	msg := read(t, conn)
	require.Equal(t, wire.TypeSpawn, msg.Type)
	require.NotNil(t, msg.Entity)
	assert.Equal(t, models.EntityID(9), msg.Entity.ID)

	msg = read(t, conn)
	require.Equal(t, wire.TypeDespawn, msg.Type)
	require.NotNil(t, msg.Despawn)
	assert.Equal(t, models.EntityID(9), msg.Despawn.ID)
}

func TestDisconnectUnregisters(t *testing.T) {
	h := newHarness(t, "")
	conn := h.connect(t, "")
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.server.GetStats().ClientCount == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHTTPEndpoints(t *testing.T) {
	h := newHarness(t, "")

	resp, err := http.Get(h.http.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap sim.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, int64(1), snap.Frame)

	health, err := http.Get(h.http.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	post, err := http.Post(h.http.URL+"/snapshot", "application/json", nil)
	require.NoError(t, err)
	defer post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestSnapshotUnavailableBeforeFirstTick(t *testing.T) {
	h := newHarness(t, "")
	h.sim.mu.Lock()
	h.sim.latest = nil
	h.sim.mu.Unlock()

	resp, err := http.Get(h.http.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestTokenAuth(t *testing.T) {
	assert.NoError(t, NewTokenAuth("").Authorize("anything"))
	assert.NoError(t, NewTokenAuth("a").Authorize("a"))
	assert.ErrorIs(t, NewTokenAuth("a").Authorize("b"), ErrUnauthorized)
}
