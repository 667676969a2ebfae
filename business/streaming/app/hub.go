// Package app contains the WebSocket hub and its fan-out ports.
package app

import (
	"context"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sugawarayuuta/sonnet"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/dexter/business/streaming/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	meterName = "streaming.hub"

	defaultClientBuffer = 1000
	defaultWriteTimeout = 5 * time.Second
	sinkBuffer          = 1024
	maxRequestSize      = 64 << 10
)

// Sink receives every published frame, e.g. a Redis stream.
type Sink interface {
	Publish(ctx context.Context, channel string, msg domain.Message) error
}

// Config holds hub settings.
type Config struct {
	ClientBuffer   int
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type hubMetrics struct {
	published metric.Int64Counter
	dropped   metric.Int64Counter
	clients   metric.Int64UpDownCounter
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	channels map[domain.Channel]struct{}
	pairs    map[string]struct{}
}

func (c *client) subscribed(ch domain.Channel) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.channels[ch]
	return ok
}

func (c *client) wantsPair(pair string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.pairs) == 0 || pair == "" {
		return true
	}
	_, ok := c.pairs[normalizePair(pair)]
	return ok
}

// Hub accepts WebSocket clients and fans published messages out to them.
type Hub struct {
	config Config
	logger logger.LoggerInterface

	mu      sync.RWMutex
	clients map[string]*client
	wg      sync.WaitGroup

	sink  Sink
	sinkq chan sinkItem

	sent         atomic.Uint64
	dropped      atomic.Uint64
	sinkFailures atomic.Uint64

	now     func() time.Time
	metrics hubMetrics
}

type sinkItem struct {
	channel string
	msg     domain.Message
}

// NewHub creates a hub. sink may be nil.
func NewHub(config Config, sink Sink, log logger.LoggerInterface) *Hub {
	if config.ClientBuffer <= 0 {
		config.ClientBuffer = defaultClientBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaultWriteTimeout
	}
	h := &Hub{
		config:  config,
		logger:  log,
		clients: make(map[string]*client),
		sink:    sink,
		now:     time.Now,
	}
	if sink != nil {
		h.sinkq = make(chan sinkItem, sinkBuffer)
	}
	h.initMetrics()
	return h
}

func (h *Hub) initMetrics() {
	meter := otel.Meter(meterName)
	h.metrics.published, _ = meter.Int64Counter("streaming_messages_published_total",
		metric.WithDescription("Messages published to the hub"))
	h.metrics.dropped, _ = meter.Int64Counter("streaming_messages_dropped_total",
		metric.WithDescription("Messages dropped because a client buffer was full"))
	h.metrics.clients, _ = meter.Int64UpDownCounter("streaming_clients",
		metric.WithDescription("Connected stream clients"))
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.config.AllowedOrigins})
	if err != nil {
		h.logger.Warn(r.Context(), "websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(maxRequestSize)

	c := &client{
		id:       uuid.NewString(),
		conn:     conn,
		send:     make(chan []byte, h.config.ClientBuffer),
		channels: make(map[domain.Channel]struct{}),
		pairs:    make(map[string]struct{}),
	}
	h.register(c)
	defer h.unregister(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.writeLoop(ctx, c)
	h.readLoop(ctx, c)
}

func (h *Hub) register(c *client) {
	h.wg.Add(1)
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.metrics.clients.Add(context.Background(), 1)
	h.logger.Debug(context.Background(), "stream client connected", "client", c.id)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	_ = c.conn.CloseNow()
	h.metrics.clients.Add(context.Background(), -1)
	h.logger.Debug(context.Background(), "stream client disconnected", "client", c.id)
	h.wg.Done()
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var req domain.Request
		if err := sonnet.Unmarshal(data, &req); err != nil {
			h.reply(c, h.errorFrame(apperror.CodeInvalidSubscription, "invalid request: "+err.Error()))
			continue
		}
		channels, err := req.Validate()
		if err != nil {
			h.reply(c, h.errorFrame(apperror.CodeInvalidSubscription, err.Error()))
			continue
		}
		h.reply(c, h.apply(c, req, channels))
	}
}

func (h *Hub) apply(c *client, req domain.Request, channels []domain.Channel) domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	typ := domain.TypeSubscribed
	switch req.Action {
	case domain.ActionSubscribe:
		for _, ch := range channels {
			c.channels[ch] = struct{}{}
		}
		for _, p := range req.Pairs {
			c.pairs[normalizePair(p)] = struct{}{}
		}
	case domain.ActionUnsubscribe:
		typ = domain.TypeUnsubscribed
		for _, ch := range channels {
			delete(c.channels, ch)
		}
		for _, p := range req.Pairs {
			delete(c.pairs, normalizePair(p))
		}
	}

	active := make([]domain.Channel, 0, len(c.channels))
	for ch := range c.channels {
		active = append(active, ch)
	}
	slices.Sort(active)
	return domain.Message{Type: typ, Data: active, Timestamp: h.now()}
}

func (h *Hub) errorFrame(code apperror.Code, msg string) domain.Message {
	return domain.Message{
		Type:      domain.TypeError,
		Data:      domain.ErrorData{Code: string(code), Message: msg},
		Timestamp: h.now(),
	}
}

// reply queues a control frame for one client.
func (h *Hub) reply(c *client, msg domain.Message) {
	data, err := sonnet.Marshal(msg)
	if err != nil {
		return
	}
	h.enqueue(c, data)
}

func (h *Hub) enqueue(c *client, data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		h.dropped.Add(1)
		h.metrics.dropped.Add(context.Background(), 1)
		return false
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, h.config.WriteTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				_ = c.conn.CloseNow()
				return
			}
			h.sent.Add(1)
		}
	}
}

// Publish sends data to every client subscribed to channel. Clients that set
// a pair filter only receive payloads whose "pair" field matches.
func (h *Hub) Publish(ctx context.Context, channel, msgType string, data any) {
	ch := domain.Channel(channel)
	msg := domain.Message{Type: msgType, Channel: ch, Data: data, Timestamp: h.now()}
	frame, err := sonnet.Marshal(msg)
	if err != nil {
		h.logger.Warn(ctx, "stream message encode failed", "channel", channel, "error", err)
		return
	}
	h.metrics.published.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel)))

	pair := pairOf(data)
	h.mu.RLock()
	for _, c := range h.clients {
		if c.subscribed(ch) && c.wantsPair(pair) {
			h.enqueue(c, frame)
		}
	}
	h.mu.RUnlock()

	if h.sinkq != nil {
		select {
		case h.sinkq <- sinkItem{channel: channel, msg: msg}:
		default:
			h.sinkFailures.Add(1)
		}
	}
}

// Run forwards published frames to the sink until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	if h.sink == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-h.sinkq:
			if err := h.sink.Publish(ctx, item.channel, item.msg); err != nil {
				h.sinkFailures.Add(1)
				h.logger.Debug(ctx, "stream sink publish failed", "channel", item.channel, "error", err)
			}
		}
	}
}

// Stats returns a snapshot of hub activity.
func (h *Hub) Stats() domain.Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := make(map[domain.Channel]int, len(domain.Channels))
	for _, c := range h.clients {
		c.mu.RLock()
		for ch := range c.channels {
			subs[ch]++
		}
		c.mu.RUnlock()
	}
	return domain.Stats{
		ConnectedClients: len(h.clients),
		MessagesSent:     h.sent.Load(),
		MessagesDropped:  h.dropped.Load(),
		SinkFailures:     h.sinkFailures.Load(),
		Subscriptions:    subs,
	}
}

// Check reports the hub as healthy; it has no external dependency.
func (h *Hub) Check(ctx context.Context) error {
	return nil
}

// Close disconnects every client and waits for their handlers to return.
func (h *Hub) Close() {
	h.mu.RLock()
	for _, c := range h.clients {
		_ = c.conn.CloseNow()
	}
	h.mu.RUnlock()
	h.wg.Wait()
}

func normalizePair(p string) string {
	p = strings.ToUpper(strings.TrimSpace(p))
	return strings.NewReplacer("-", "/", "_", "/").Replace(p)
}

// pairOf extracts a "pair" from map payloads or a Pair/Symbol string field.
func pairOf(data any) string {
	if m, ok := data.(map[string]any); ok {
		s, _ := m["pair"].(string)
		return s
	}
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return ""
	}
	for _, name := range []string{"Symbol", "Pair"} {
		if f := v.FieldByName(name); f.IsValid() && f.Kind() == reflect.String {
			return f.String()
		}
	}
	return ""
}
