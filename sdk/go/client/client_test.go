package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/planetwalk/internal/config"
	"github.com/zeusync/planetwalk/internal/core/events"
	"github.com/zeusync/planetwalk/internal/core/events/bus"
	"github.com/zeusync/planetwalk/internal/core/input"
	"github.com/zeusync/planetwalk/internal/server"
	"github.com/zeusync/planetwalk/internal/sim"
	"github.com/zeusync/planetwalk/pkg/wire"
)

type recorder struct {
	mu     sync.Mutex
	pushed []input.Event
}

func (r *recorder) Push(evs ...input.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushed = append(r.pushed, evs...)
}

func (r *recorder) Latest() *sim.Snapshot { return &sim.Snapshot{Frame: 7, DirectionLine: "hidden"} }

func (r *recorder) received() []input.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]input.Event(nil), r.pushed...)
}

func startHost(t *testing.T, token string) (string, *recorder, bus.EventBus) {
	t.Helper()
	rec := &recorder{}
	b := bus.New()
	srv, err := server.NewServer(config.ServerConfig{Enabled: true, QUICAddr: "127.0.0.1:0", Token: token}, rec, b, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))
	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-served
		_ = srv.Close()
	})
	return srv.QUICAddr().String(), rec, b
}

func dial(t *testing.T, addr, token string) (*Client, error) {
	t.Helper()
	cfg := DefaultClientConfig()
	cfg.ServerAddr = addr
	cfg.Token = token
	cfg.InsecureSkipVerify = true
	cfg.ConnectTimeout = 5 * time.Second
	return Dial(context.Background(), cfg)
}

func TestClientRoundTrip(t *testing.T) {
	addr, rec, b := startHost(t, "secret")

	c, err := dial(t, addr, "secret")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.NotEmpty(t, c.ID())
	assert.True(t, c.IsConnected())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := c.Next(ctx, wire.TypeSnapshot)
	require.NoError(t, err)
	assert.Equal(t, int64(7), first.Snapshot.Frame)

	require.NoError(t, c.Key("W", true))
	require.NoError(t, c.Wheel(-2))
	require.NoError(t, c.Toggle())
	require.Eventually(t, func() bool { return len(rec.received()) == 3 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []input.Event{
		input.KeyDown("W"),
		input.Wheel(-2),
		input.Trigger(input.ActionToggleDirectionLines),
	}, rec.received())

	require.NoError(t, b.Publish(bus.NewEvent(events.SnapshotPublished, "test", &sim.Snapshot{Frame: 8, DirectionLine: "visible"})))
	next, err := c.Next(ctx, wire.TypeSnapshot)
	require.NoError(t, err)
	assert.Equal(t, "visible", next.Snapshot.DirectionLine)
}

func TestClientRejectedWithWrongToken(t *testing.T) {
	addr, rec, _ := startHost(t, "secret")

	_, err := dial(t, addr, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, rec.received())
}

func TestClientDisconnect(t *testing.T) {
	addr, _, _ := startHost(t, "")

	var disconnected bool
	c := NewClient(Config{ServerAddr: addr, InsecureSkipVerify: true})
	c.OnEvent(EventTypeDisconnected, func(Event) error {
		disconnected = true
		return nil
	})
	require.NoError(t, c.Connect(context.Background()))
	assert.ErrorIs(t, c.Connect(context.Background()), ErrAlreadyConnected)

	require.NoError(t, c.Disconnect())
	assert.True(t, disconnected)
	assert.ErrorIs(t, c.Key("W", true), ErrNotConnected)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Toggle(), ErrClientClosed)
}

func TestConfigValidation(t *testing.T) {
	c := NewClient(Config{})
	assert.ErrorIs(t, c.Connect(context.Background()), ErrInvalidConfig)
}
