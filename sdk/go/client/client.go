// Package client provides a QUIC client SDK for planetwalk renderers
package client

import (
	"context"
	"crypto/tls"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/planetwalk/internal/core/observability/log"
	"github.com/zeusync/planetwalk/pkg/encoding"
	"github.com/zeusync/planetwalk/pkg/wire"
)

// Client is a renderer connection to a planetwalk host. It sends input and
// receives snapshots and entity lifecycle messages.
type Client struct {
	// Connection management
	conn   *quic.Conn
	stream *quic.Stream
	id     string

	writeMu  sync.Mutex
	incoming chan wire.ServerMessage

	eventHandlers map[EventType][]EventHandler
	handlerMutex  sync.RWMutex

	// Lifecycle
	connected int32 // atomic bool
	closed    int32 // atomic bool
	done      chan struct{}
	readErr   atomic.Value // error

	config Config
	logger log.Log

	workerGroup sync.WaitGroup
}

// Config holds configuration for the client
type Config struct {
	// Connection settings
	ServerAddr     string
	Token          string
	ConnectTimeout time.Duration

	// TLSConfig overrides the default TLS settings. NextProtos is always
	// forced to the planetwalk ALPN.
	TLSConfig *tls.Config
	// InsecureSkipVerify accepts the host's self-signed certificate.
	InsecureSkipVerify bool

	// Message settings
	MaxMessageSize    int
	MessageBufferSize int

	// Logging
	LogLevel log.Level
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() Config {
	return Config{
		ServerAddr:        "localhost:8443",
		ConnectTimeout:    10 * time.Second,
		MaxMessageSize:    encoding.DefaultMaxFrameSize,
		MessageBufferSize: 256,
		LogLevel:          log.LevelInfo,
	}
}

func (c Config) validate() error {
	if c.ServerAddr == "" {
		return errors.Wrap(ErrInvalidConfig, "server address is empty")
	}
	if c.MessageBufferSize < 1 {
		return errors.Wrap(ErrInvalidConfig, "message buffer size must be positive")
	}
	return nil
}

// EventHandler defines a function type for handling client events
type EventHandler func(event Event) error

// EventType represents different types of client events
type EventType string

const (
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"
)

// Event represents a client event
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]any
	Error     error
}

// NewClient creates a new client. Zero values in config fall back to
// DefaultClientConfig.
func NewClient(config Config) *Client {
	defaults := DefaultClientConfig()
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.MessageBufferSize == 0 {
		config.MessageBufferSize = defaults.MessageBufferSize
	}

	return &Client{
		incoming:      make(chan wire.ServerMessage, config.MessageBufferSize),
		eventHandlers: make(map[EventType][]EventHandler),
		done:          make(chan struct{}),
		config:        config,
		logger:        log.New(config.LogLevel).With(log.String("component", "client")),
	}
}

// Dial creates a client and connects it.
func Dial(ctx context.Context, config Config) (*Client, error) {
	c := NewClient(config)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect opens the QUIC connection, sends the hello with the configured
// token and waits for the host's welcome. A client connects at most once.
func (c *Client) Connect(ctx context.Context) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClientClosed
	}
	if err := c.config.validate(); err != nil {
		return err
	}
	if c.conn != nil || !atomic.CompareAndSwapInt32(&c.connected, 0, 1) {
		return ErrAlreadyConnected
	}

	c.logger.Info("Connecting to server", log.String("addr", c.config.ServerAddr))

	connectCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	conn, err := quic.DialAddr(connectCtx, c.config.ServerAddr, c.tlsConfig(), &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	})
	if err != nil {
		atomic.StoreInt32(&c.connected, 0)
		c.logger.Error("Failed to connect to server", log.String("addr", c.config.ServerAddr), log.Error(err))
		return errors.Wrap(err, "dial")
	}

	stream, err := conn.OpenStreamSync(connectCtx)
	if err != nil {
		atomic.StoreInt32(&c.connected, 0)
		_ = conn.CloseWithError(0, "")
		return errors.Wrap(err, "open stream")
	}
	c.conn, c.stream = conn, stream

	hello := wire.Hello(c.config.Token)
	if err = c.Send(hello); err != nil {
		c.abort()
		return errors.Wrap(err, "send hello")
	}

	welcome, err := c.readWelcome(connectCtx)
	if err != nil {
		c.abort()
		return err
	}
	c.id = welcome.ClientID

	c.logger.Info("Connected to server",
		log.String("client_id", c.id),
		log.String("local_addr", conn.LocalAddr().String()),
		log.String("remote_addr", conn.RemoteAddr().String()))

	c.workerGroup.Add(1)
	go c.readLoop()

	c.emitEvent(Event{
		Type:      EventTypeConnected,
		Timestamp: time.Now(),
		Data: map[string]any{
			"client_id":   c.id,
			"server_addr": c.config.ServerAddr,
		},
	})
	return nil
}

func (c *Client) tlsConfig() *tls.Config {
	var cfg *tls.Config
	if c.config.TLSConfig != nil {
		cfg = c.config.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS13}
	}
	if c.config.InsecureSkipVerify {
		cfg.InsecureSkipVerify = true
	}
	cfg.NextProtos = []string{wire.ALPN}
	return cfg
}

// readWelcome reads the first frame, which is either a welcome or the error
// the host sends before rejecting the connection.
func (c *Client) readWelcome(ctx context.Context) (wire.ServerMessage, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.stream.SetReadDeadline(deadline)
		defer func() { _ = c.stream.SetReadDeadline(time.Time{}) }()
	}

	var msg wire.ServerMessage
	if err := encoding.Read(c.stream, c.config.MaxMessageSize, &msg); err != nil {
		var appErr *quic.ApplicationError
		if errors.As(err, &appErr) && appErr.ErrorCode == 1 {
			return msg, errors.Wrap(ErrUnauthorized, appErr.ErrorMessage)
		}
		return msg, errors.Wrap(err, "read welcome")
	}
	switch msg.Type {
	case wire.TypeWelcome:
		return msg, nil
	case wire.TypeError:
		return msg, errors.Wrap(ErrUnauthorized, msg.Error)
	default:
		return msg, errors.Wrapf(ErrInvalidMessage, "expected welcome, got %q", msg.Type)
	}
}

func (c *Client) abort() {
	atomic.StoreInt32(&c.connected, 0)
	if c.conn != nil {
		_ = c.conn.CloseWithError(0, "")
	}
	c.conn, c.stream = nil, nil
}

// ID is the identifier the host assigned in its welcome.
func (c *Client) ID() string { return c.id }

// IsConnected reports whether the connection is up.
func (c *Client) IsConnected() bool { return atomic.LoadInt32(&c.connected) == 1 }

// Disconnect closes the connection to the server
func (c *Client) Disconnect() error {
	if !atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		return ErrNotConnected
	}

	c.logger.Info("Disconnecting from server")

	if c.conn != nil {
		_ = c.conn.CloseWithError(0, "")
	}
	c.workerGroup.Wait()

	c.emitEvent(Event{
		Type:      EventTypeDisconnected,
		Timestamp: time.Now(),
	})
	return nil
}

// Close closes the client and releases all resources
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil // Already closed
	}

	if atomic.LoadInt32(&c.connected) == 1 {
		_ = c.Disconnect()
	}
	close(c.done)

	c.logger.Info("Client closed")
	return nil
}

// Send writes one message to the host.
func (c *Client) Send(msg wire.ClientMessage) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClientClosed
	}
	if atomic.LoadInt32(&c.connected) == 0 || c.stream == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return encoding.Write(c.stream, &msg)
}

// Key reports a key press or release by key name.
func (c *Client) Key(key string, down bool) error { return c.Send(wire.Key(key, down)) }

// Wheel reports a mouse wheel delta.
func (c *Client) Wheel(y float64) error { return c.Send(wire.Wheel(y)) }

// Toggle asks the host to flip the direction line.
func (c *Client) Toggle() error { return c.Send(wire.Toggle()) }

// Messages returns the channel of incoming host messages. It is closed when
// the connection ends.
func (c *Client) Messages() <-chan wire.ServerMessage { return c.incoming }

// Receive waits for the next host message.
func (c *Client) Receive(ctx context.Context) (wire.ServerMessage, error) {
	select {
	case msg, ok := <-c.incoming:
		if !ok {
			if err, _ := c.readErr.Load().(error); err != nil {
				return wire.ServerMessage{}, err
			}
			return wire.ServerMessage{}, ErrNotConnected
		}
		return msg, nil
	case <-ctx.Done():
		return wire.ServerMessage{}, errors.Wrap(ErrMessageTimeout, ctx.Err().Error())
	}
}

// Next waits for the next message of the given type, discarding others.
func (c *Client) Next(ctx context.Context, typ string) (wire.ServerMessage, error) {
	for {
		msg, err := c.Receive(ctx)
		if err != nil || msg.Type == typ {
			return msg, err
		}
	}
}

func (c *Client) readLoop() {
	defer c.workerGroup.Done()
	defer close(c.incoming)

	for {
		var msg wire.ServerMessage
		if err := encoding.Read(c.stream, c.config.MaxMessageSize, &msg); err != nil {
			if !errors.Is(err, io.EOF) && atomic.LoadInt32(&c.connected) == 1 {
				c.readErr.Store(err)
				c.logger.Warn("Read failed", log.Error(err))
				c.emitEvent(Event{Type: EventTypeError, Timestamp: time.Now(), Error: err})
			}
			return
		}
		if msg.Type == wire.TypeError {
			c.logger.Debug("Host rejected a message", log.String("error", msg.Error))
		}
		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		default:
			// Renderer is behind; snapshots are full state so dropping is safe.
			c.logger.Debug("Incoming buffer full, message dropped", log.String("type", msg.Type))
		}
	}
}

// OnEvent registers a handler for client events
func (c *Client) OnEvent(eventType EventType, handler EventHandler) {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	c.eventHandlers[eventType] = append(c.eventHandlers[eventType], handler)
}

func (c *Client) emitEvent(event Event) {
	c.handlerMutex.RLock()
	handlers := append([]EventHandler(nil), c.eventHandlers[event.Type]...)
	c.handlerMutex.RUnlock()

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			c.logger.Warn("Event handler failed",
				log.String("event_type", string(event.Type)),
				log.Error(err))
		}
	}
}
