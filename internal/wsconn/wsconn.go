// Package wsconn provides a reconnecting WebSocket client used by the venue
// streams (Binance, Kraken).
package wsconn

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sugawarayuuta/sonnet"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/fd1az/dexter/internal/wsconn"

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Errors returned by the client.
var (
	ErrNotConnected  = errors.New("wsconn: not connected")
	ErrClosed        = errors.New("wsconn: client closed")
	ErrMaxReconnects = errors.New("wsconn: max reconnect attempts reached")
	ErrInvalidURL    = errors.New("wsconn: invalid url")
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration
	PongTimeout    time.Duration
	ReadTimeout    time.Duration // 0 = no per-read deadline
	WriteTimeout   time.Duration
	MaxMessageSize int64
	AutoReconnect  bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1 << 20,
		AutoReconnect:  true,
	}
}

// MessageHandler receives every inbound frame.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler observes state transitions. err is set when the transition was
// caused by a failure.
type StateHandler func(state State, err error)

type clientMetrics struct {
	messages   metric.Int64Counter
	reconnects metric.Int64Counter
	errors     metric.Int64Counter
}

// Client is a WebSocket client with reconnection and keepalive.
type Client struct {
	config Config

	connMu sync.RWMutex
	conn   *websocket.Conn

	writeMu sync.Mutex

	stateMu sync.RWMutex
	state   State

	handlersMu    sync.RWMutex
	onMessage     MessageHandler
	onStateChange StateHandler

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	reconnectMu sync.Mutex
	reconnects  int

	metrics clientMetrics
	attrs   metric.MeasurementOption
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	u, err := url.Parse(config.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, config.URL)
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		config: config,
		state:  StateDisconnected,
		ctx:    ctx,
		cancel: cancel,
		attrs:  metric.WithAttributes(attribute.String("conn", config.Name)),
	}
	c.initMetrics()

	return c, nil
}

func (c *Client) initMetrics() {
	meter := otel.Meter(meterName)

	c.metrics.messages, _ = meter.Int64Counter("wsconn_messages_received_total",
		metric.WithDescription("Frames received"),
		metric.WithUnit("{message}"))

	c.metrics.reconnects, _ = meter.Int64Counter("wsconn_reconnects_total",
		metric.WithDescription("Reconnect attempts"),
		metric.WithUnit("{attempt}"))

	c.metrics.errors, _ = meter.Int64Counter("wsconn_errors_total",
		metric.WithDescription("Read, write and ping failures"),
		metric.WithUnit("{error}"))
}

// OnMessage sets the inbound frame handler.
func (c *Client) OnMessage(h MessageHandler) {
	c.handlersMu.Lock()
	c.onMessage = h
	c.handlersMu.Unlock()
}

// OnStateChange sets the state transition observer.
func (c *Client) OnStateChange(h StateHandler) {
	c.handlersMu.Lock()
	c.onStateChange = h
	c.handlersMu.Unlock()
}

// Connect dials once. On failure the client is left disconnected.
func (c *Client) Connect(ctx context.Context) error {
	if c.State() == StateClosed {
		return ErrClosed
	}

	c.setState(StateConnecting, nil)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected, err)
		return err
	}

	c.setState(StateConnected, nil)
	c.start(conn)
	return nil
}

// ConnectWithRetry dials until it succeeds, ctx ends, or MaxReconnects is hit.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff

	for attempt := 1; ; attempt++ {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}
		if c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects {
			return fmt.Errorf("%w: %v", ErrMaxReconnects, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return ErrClosed
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, c.config.MaxBackoff)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("wsconn %s: dial: %w", c.config.Name, err)
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	return conn, nil
}

func (c *Client) start(conn *websocket.Conn) {
	go c.readLoop(conn)
	if c.config.PingInterval > 0 {
		go c.pingLoop(conn)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		readCtx, cancel := c.ctx, context.CancelFunc(func() {})
		if c.config.ReadTimeout > 0 {
			readCtx, cancel = context.WithTimeout(c.ctx, c.config.ReadTimeout)
		}
		_, data, err := conn.Read(readCtx)
		cancel()

		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		c.metrics.messages.Add(c.ctx, 1, c.attrs)

		c.handlersMu.RLock()
		h := c.onMessage
		c.handlersMu.RUnlock()
		if h != nil {
			h(c.ctx, data)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if !c.isCurrent(conn) {
				return
			}
			timeout := c.config.PongTimeout
			if timeout <= 0 {
				timeout = c.config.PingInterval
			}
			ctx, cancel := context.WithTimeout(c.ctx, timeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				c.metrics.errors.Add(c.ctx, 1, c.attrs)
				// Closing unblocks the reader, which drives the reconnect.
				_ = conn.Close(websocket.StatusGoingAway, "pong timeout")
				return
			}
		}
	}
}

func (c *Client) isCurrent(conn *websocket.Conn) bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn == conn
}

func (c *Client) handleDisconnect(conn *websocket.Conn, err error) {
	if c.ctx.Err() != nil || !c.isCurrent(conn) {
		return
	}

	c.metrics.errors.Add(c.ctx, 1, c.attrs)
	_ = conn.CloseNow()

	c.connMu.Lock()
	c.conn = nil
	c.connMu.Unlock()

	c.setState(StateDisconnected, err)

	if c.config.AutoReconnect {
		go c.reconnect()
	}
}

func (c *Client) reconnect() {
	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()

	backoff := c.config.InitialBackoff
	for {
		if c.config.MaxReconnects > 0 && c.reconnects >= c.config.MaxReconnects {
			c.setState(StateDisconnected, ErrMaxReconnects)
			return
		}
		c.reconnects++
		c.metrics.reconnects.Add(c.ctx, 1, c.attrs)
		c.setState(StateReconnecting, nil)

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(backoff):
		}

		conn, err := c.dial(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.setState(StateDisconnected, err)
			backoff = nextBackoff(backoff, c.config.MaxBackoff)
			continue
		}

		c.reconnects = 0
		c.setState(StateConnected, nil)
		c.start(conn)
		return
	}
}

// Send writes a text frame.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		if c.State() == StateClosed {
			return ErrClosed
		}
		return ErrNotConnected
	}

	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		c.metrics.errors.Add(ctx, 1, c.attrs)
		return fmt.Errorf("wsconn %s: write: %w", c.config.Name, err)
	}
	return nil
}

// SendJSON encodes v as JSON and sends it.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := sonnet.Marshal(v)
	if err != nil {
		return fmt.Errorf("wsconn %s: marshal: %w", c.config.Name, err)
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the client currently holds a live connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close gracefully closes the connection and stops reconnecting. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.connMu.Lock()
		conn := c.conn
		c.conn = nil
		c.connMu.Unlock()

		c.setState(StateClosed, nil)

		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "client closing")
		}
		c.cancel()
	})
	return nil
}

func (c *Client) setState(state State, err error) {
	c.stateMu.Lock()
	if c.state == StateClosed && state != StateClosed {
		c.stateMu.Unlock()
		return
	}
	changed := c.state != state
	c.state = state
	c.stateMu.Unlock()

	if !changed && err == nil {
		return
	}

	c.handlersMu.RLock()
	h := c.onStateChange
	c.handlersMu.RUnlock()
	if h != nil {
		h(state, err)
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}
