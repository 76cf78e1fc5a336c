package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/planetwalk/internal/config"
	"github.com/zeusync/planetwalk/internal/core/events"
	"github.com/zeusync/planetwalk/internal/core/events/bus"
	"github.com/zeusync/planetwalk/internal/core/input"
	"github.com/zeusync/planetwalk/internal/core/observability/log"
	"github.com/zeusync/planetwalk/internal/sim"
	"github.com/zeusync/planetwalk/pkg/concurrent"
	"github.com/zeusync/planetwalk/pkg/wire"
)

const (
	// sendBuffer is the number of outgoing messages queued per client before
	// new ones are dropped.
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	helloTimeout = 10 * time.Second
)

// Simulation is the part of the simulation the transport needs. Both methods
// must be safe to call from transport goroutines.
type Simulation interface {
	Push(evs ...input.Event)
	Latest() *sim.Snapshot
}

// Server streams snapshots and entity lifecycle events to renderers over
// WebSocket and QUIC, and feeds their input back into the simulation.
type Server struct {
	sim     Simulation
	events  bus.EventBus
	auth    *TokenAuth
	limiter *RateLimiter

	// Client management
	clients     sync.Map // map[string]*ClientSession
	clientCount int64    // atomic

	// Snapshot change detection
	lastHash   atomic.Uint64
	haveHash   atomic.Bool
	broadcasts atomic.Uint64
	suppressed atomic.Uint64

	// Server state
	running int32 // atomic bool
	closed  int32 // atomic bool

	subs []bus.Subscription

	httpServer   *http.Server
	httpListener net.Listener
	quicListener *quic.Listener
	tlsConfig    *tls.Config

	config config.ServerConfig
	logger log.Log
}

// ClientSession represents a connected renderer.
type ClientSession struct {
	ID          string
	Transport   string
	RemoteAddr  string
	ConnectedAt time.Time
	LastSeen    int64 // atomic unix timestamp

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closeConn func() error
}

func newClientSession(transport, remoteAddr string, closeConn func() error) *ClientSession {
	now := time.Now()
	return &ClientSession{
		ID:          uuid.NewString(),
		Transport:   transport,
		RemoteAddr:  remoteAddr,
		ConnectedAt: now,
		LastSeen:    now.Unix(),
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		closeConn:   closeConn,
	}
}

// enqueue hands payload to the client's writer without blocking.
func (c *ClientSession) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *ClientSession) touch() {
	atomic.StoreInt64(&c.LastSeen, time.Now().Unix())
}

// Close stops the writer and closes the underlying connection. Safe to call twice.
func (c *ClientSession) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.closeConn != nil {
			err = c.closeConn()
		}
	})
	return err
}

// NewServer creates a server and subscribes it to simulation events.
func NewServer(cfg config.ServerConfig, simulation Simulation, eventBus bus.EventBus, logger log.Log) (*Server, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.With(log.String("component", "server"))
	s := &Server{
		sim:     simulation,
		events:  eventBus,
		auth:    NewTokenAuth(cfg.Token),
		limiter: NewRateLimiter(cfg.InputRateLimit, time.Second, logger),
		config:  cfg,
		logger:  logger,
	}
	if eventBus != nil {
		for typ, handler := range map[string]bus.EventHandler{
			events.SnapshotPublished: s.onSnapshot,
			events.EntitySpawned:     s.onSpawn,
			events.EntityDespawned:   s.onDespawn,
		} {
			sub, err := eventBus.Subscribe(typ, handler)
			if err != nil {
				s.unsubscribe()
				return nil, errors.Wrapf(err, "subscribe %s", typ)
			}
			s.subs = append(s.subs, sub)
		}
	}
	return s, nil
}

// Start binds the configured listeners. Serve must be called afterwards.
func (s *Server) Start(_ context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	if s.config.HTTPAddr != "" {
		ln, err := net.Listen("tcp", s.config.HTTPAddr)
		if err != nil {
			s.abortStart()
			return errors.Wrapf(ErrListenerFailed, "http %s: %v", s.config.HTTPAddr, err)
		}
		s.httpListener = ln
		s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: helloTimeout}
		s.logger.Info("HTTP listening", log.String("addr", ln.Addr().String()))
	}

	if s.config.QUICAddr != "" {
		if s.tlsConfig == nil {
			tlsConfig, err := GenerateSelfSignedTLS()
			if err != nil {
				s.abortStart()
				return errors.Wrap(err, "generate TLS config")
			}
			s.tlsConfig = tlsConfig
		}
		ln, err := quic.ListenAddr(s.config.QUICAddr, s.tlsConfig, quicConfig())
		if err != nil {
			s.abortStart()
			return errors.Wrapf(ErrListenerFailed, "quic %s: %v", s.config.QUICAddr, err)
		}
		s.quicListener = ln
		s.logger.Info("QUIC listening", log.String("addr", ln.Addr().String()))
	}
	return nil
}

func (s *Server) abortStart() {
	if s.httpListener != nil {
		_ = s.httpListener.Close()
		s.httpListener = nil
	}
	atomic.StoreInt32(&s.running, 0)
}

// Serve blocks serving the listeners bound by Start until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if atomic.LoadInt32(&s.running) == 0 {
		return ErrServerNotRunning
	}
	var tasks []concurrent.Task
	if s.httpServer != nil {
		tasks = append(tasks, func(context.Context) error {
			err := s.httpServer.Serve(s.httpListener)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return errors.Wrap(err, "http serve")
		})
	}
	if s.quicListener != nil {
		tasks = append(tasks, s.acceptQUIC)
	}
	tasks = append(tasks, func(ctx context.Context) error {
		<-ctx.Done()
		if err := s.Stop(context.Background()); err != nil && !errors.Is(err, ErrServerNotRunning) {
			return err
		}
		return nil
	})
	return concurrent.Run(ctx, tasks...)
}

// Run is Start followed by Serve.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Stop closes listeners and disconnects every client.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}
	s.logger.Info("Stopping server")

	var err error
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = s.httpServer.Shutdown(shutdownCtx)
		cancel()
	}
	if s.quicListener != nil {
		_ = s.quicListener.Close()
	}
	s.closeSessions()

	s.logger.Info("Server stopped")
	return err
}

// Close stops the server if needed and drops its event subscriptions.
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	if atomic.LoadInt32(&s.running) == 1 {
		_ = s.Stop(context.Background())
	}
	s.closeSessions()
	s.unsubscribe()
	return nil
}

func (s *Server) unsubscribe() {
	for _, sub := range s.subs {
		_ = s.events.Unsubscribe(sub)
	}
	s.subs = nil
}

func (s *Server) closeSessions() {
	var sessions []*ClientSession
	s.clients.Range(func(_, value any) bool {
		sessions = append(sessions, value.(*ClientSession))
		return true
	})
	_ = concurrent.Concurrent(sessions, func(c *ClientSession) error {
		return c.Close()
	})
}

// HTTPAddr is the bound HTTP address, or nil when HTTP is disabled.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpListener == nil {
		return nil
	}
	return s.httpListener.Addr()
}

// QUICAddr is the bound QUIC address, or nil when QUIC is disabled.
func (s *Server) QUICAddr() net.Addr {
	if s.quicListener == nil {
		return nil
	}
	return s.quicListener.Addr()
}

// register greets the client with its ID and the latest snapshot, then adds it
// to the broadcast set.
func (s *Server) register(c *ClientSession) {
	if payload, err := (&wire.ServerMessage{Type: wire.TypeWelcome, ClientID: c.ID}).Serialize(); err == nil {
		c.enqueue(payload)
	}
	if snap := s.sim.Latest(); snap != nil {
		if payload, err := (&wire.ServerMessage{Type: wire.TypeSnapshot, Snapshot: snap}).Serialize(); err == nil {
			c.enqueue(payload)
		}
	}
	s.clients.Store(c.ID, c)
	total := atomic.AddInt64(&s.clientCount, 1)
	s.logger.Info("Client connected",
		log.String("client_id", c.ID),
		log.String("transport", c.Transport),
		log.String("remote_addr", c.RemoteAddr),
		log.Int64("total_clients", total))
}

func (s *Server) unregister(c *ClientSession) {
	if _, loaded := s.clients.LoadAndDelete(c.ID); !loaded {
		return
	}
	_ = c.Close()
	s.limiter.Forget(c.ID)
	total := atomic.AddInt64(&s.clientCount, -1)
	s.logger.Info("Client disconnected",
		log.String("client_id", c.ID),
		log.Int64("total_clients", total))
}

// handleMessage feeds one renderer message into the simulation. Invalid
// messages are answered with an error message and otherwise ignored.
func (s *Server) handleMessage(c *ClientSession, msg wire.ClientMessage) {
	c.touch()
	if !s.limiter.Allow(c.ID, time.Now()) {
		s.sendError(c, ErrRateLimited)
		return
	}
	ev, err := msg.Event()
	if err != nil {
		s.logger.Debug("Rejected client message",
			log.String("client_id", c.ID),
			log.String("type", msg.Type),
			log.Error(err))
		s.sendError(c, errors.Wrap(ErrInvalidMessage, err.Error()))
		return
	}
	s.sim.Push(ev)
}

func (s *Server) sendError(c *ClientSession, err error) {
	payload, merr := (&wire.ServerMessage{Type: wire.TypeError, Error: err.Error()}).Serialize()
	if merr == nil {
		c.enqueue(payload)
	}
}

func (s *Server) broadcast(msg *wire.ServerMessage) {
	payload, err := msg.Serialize()
	if err != nil {
		s.logger.Error("Failed to encode broadcast", log.String("type", msg.Type), log.Error(err))
		return
	}
	s.clients.Range(func(_, value any) bool {
		c := value.(*ClientSession)
		if !c.enqueue(payload) {
			s.logger.Debug("Client send queue full, message dropped",
				log.String("client_id", c.ID),
				log.String("type", msg.Type))
		}
		return true
	})
}

func (s *Server) onSnapshot(e bus.Event) error {
	snap, ok := e.Data().(*sim.Snapshot)
	if !ok || snap == nil {
		return errors.Wrapf(ErrInvalidMessage, "snapshot event carries %T", e.Data())
	}
	h, err := contentHash(snap)
	if err != nil {
		return err
	}
	if s.haveHash.Load() && s.lastHash.Load() == h {
		s.suppressed.Add(1)
		return nil
	}
	s.lastHash.Store(h)
	s.haveHash.Store(true)
	s.broadcasts.Add(1)
	s.broadcast(&wire.ServerMessage{Type: wire.TypeSnapshot, Snapshot: snap})
	return nil
}

func (s *Server) onSpawn(e bus.Event) error {
	view, ok := e.Data().(sim.EntityView)
	if !ok {
		return errors.Wrapf(ErrInvalidMessage, "spawn event carries %T", e.Data())
	}
	s.broadcast(&wire.ServerMessage{Type: wire.TypeSpawn, Entity: &view})
	return nil
}

func (s *Server) onDespawn(e bus.Event) error {
	view, ok := e.Data().(sim.DespawnView)
	if !ok {
		return errors.Wrapf(ErrInvalidMessage, "despawn event carries %T", e.Data())
	}
	s.broadcast(&wire.ServerMessage{Type: wire.TypeDespawn, Despawn: &view})
	return nil
}

// contentHash digests what a renderer draws. Frame counter and elapsed time
// are left out so an idle world hashes the same every tick.
func contentHash(snap *sim.Snapshot) (uint64, error) {
	d := xxhash.New()
	err := json.NewEncoder(d).Encode(struct {
		ClearColor    any
		Entities      []sim.EntityView
		Camera        sim.CameraView
		DirectionLine string
	}{snap.ClearColor, snap.Entities, snap.Camera, snap.DirectionLine})
	if err != nil {
		return 0, errors.Wrap(err, "hash snapshot")
	}
	return d.Sum64(), nil
}

// GetStats returns server statistics
func (s *Server) GetStats() Stats {
	return Stats{
		ClientCount: atomic.LoadInt64(&s.clientCount),
		Broadcasts:  s.broadcasts.Load(),
		Suppressed:  s.suppressed.Load(),
		Running:     atomic.LoadInt32(&s.running) == 1,
	}
}

// Stats contains server statistics
type Stats struct {
	ClientCount int64  `json:"clients"`
	Broadcasts  uint64 `json:"broadcasts"`
	Suppressed  uint64 `json:"suppressed"`
	Running     bool   `json:"running"`
}
