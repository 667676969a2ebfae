// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexter/business/blockchain/domain"
	"github.com/fd1az/dexter/internal/apm"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/circuitbreaker"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dexter/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/dexter/business/blockchain/infra/ethereum"
)

// SubscriberConfig holds configuration for the Ethereum subscriber.
type SubscriberConfig struct {
	WSURL   string
	HTTPURL string

	// PollInterval paces HTTP polling while the websocket is down.
	PollInterval time.Duration

	// WS reconnects back off from InitialBackoff to MaxBackoff. After
	// WSAttempts consecutive failures the subscriber polls over HTTP and
	// retries the websocket every WSRetryInterval.
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	WSAttempts      int
	WSRetryInterval time.Duration

	BufferSize int
}

// DefaultSubscriberConfig returns sensible defaults.
func DefaultSubscriberConfig(wsURL, httpURL string) SubscriberConfig {
	return SubscriberConfig{
		WSURL:           wsURL,
		HTTPURL:         httpURL,
		PollInterval:    12 * time.Second, // ~1 block
		InitialBackoff:  time.Second,
		MaxBackoff:      30 * time.Second,
		WSAttempts:      3,
		WSRetryInterval: time.Minute,
		BufferSize:      16,
	}
}

// headSource is the subset of ethclient.Client the subscriber needs.
type headSource interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	Close()
}

type dialFunc func(ctx context.Context, url string) (headSource, error)

func dialEthclient(ctx context.Context, url string) (headSource, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type subscriberMetrics struct {
	blocks     metric.Int64Counter
	errors     metric.Int64Counter
	state      metric.Int64Gauge
	latency    metric.Float64Histogram
	fallbacks  metric.Int64Counter
	duplicates metric.Int64Counter
}

var stateGauge = map[domain.ConnectionState]int64{
	domain.StateDisconnected: 0,
	domain.StateConnecting:   1,
	domain.StateConnected:    2,
	domain.StateReconnecting: 3,
}

// Subscriber streams new heads over a websocket and degrades to HTTP
// polling while the websocket is unavailable.
type Subscriber struct {
	config SubscriberConfig
	logger logger.LoggerInterface
	dial   dialFunc

	mu        sync.RWMutex
	ws        headSource
	http      headSource
	state     domain.ConnectionState
	lastNum   uint64
	lastHash  common.Hash
	lastDelay time.Duration
	lastSeen  time.Time

	lastBaseFee decimal.Decimal

	usingHTTP  atomic.Bool
	reconnects atomic.Int64

	startMu sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
	blocks  chan *domain.Block

	listenersMu sync.RWMutex
	listeners   []func(context.Context, *domain.Block)

	wsCB   *circuitbreaker.CircuitBreaker[*types.Header]
	httpCB *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics subscriberMetrics
}

// NewSubscriber creates a new Ethereum block subscriber.
func NewSubscriber(cfg SubscriberConfig, log logger.LoggerInterface) (*Subscriber, error) {
	return newSubscriber(cfg, dialEthclient, log)
}

func newSubscriber(cfg SubscriberConfig, dial dialFunc, log logger.LoggerInterface) (*Subscriber, error) {
	def := DefaultSubscriberConfig(cfg.WSURL, cfg.HTTPURL)
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = max(def.MaxBackoff, cfg.InitialBackoff)
	}
	if cfg.WSAttempts <= 0 {
		cfg.WSAttempts = def.WSAttempts
	}
	if cfg.WSRetryInterval <= 0 {
		cfg.WSRetryInterval = def.WSRetryInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	s := &Subscriber{
		config: cfg,
		logger: log,
		dial:   dial,
		state:  domain.StateDisconnected,
		done:   make(chan struct{}),
		blocks: make(chan *domain.Block, cfg.BufferSize),
		tracer: otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	s.wsCB = s.breaker("eth-ws")
	s.httpCB = s.breaker("eth-http")
	return s, nil
}

func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	s.metrics.blocks, err = meter.Int64Counter("eth_blocks_received_total",
		metric.WithDescription("Total Ethereum blocks received"), metric.WithUnit("{block}"))
	check(err)
	s.metrics.errors, err = meter.Int64Counter("eth_subscribe_errors_total",
		metric.WithDescription("Total Ethereum subscription errors"), metric.WithUnit("{error}"))
	check(err)
	s.metrics.state, err = meter.Int64Gauge("eth_connection_state",
		metric.WithDescription("Ethereum connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"))
	check(err)
	s.metrics.latency, err = meter.Float64Histogram("eth_block_latency_ms",
		metric.WithDescription("Latency from block timestamp to receipt"), metric.WithUnit("ms"))
	check(err)
	s.metrics.fallbacks, err = meter.Int64Counter("eth_http_fallback_total",
		metric.WithDescription("Times the subscriber fell back to HTTP polling"))
	check(err)
	s.metrics.duplicates, err = meter.Int64Counter("eth_duplicate_heads_total",
		metric.WithDescription("Heads skipped because they were already seen"))
	check(err)

	return errors.Join(errs...)
}

func (s *Subscriber) breaker(name string) *circuitbreaker.CircuitBreaker[*types.Header] {
	cfg := circuitbreaker.DefaultConfig(name)
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		s.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	return circuitbreaker.New[*types.Header](cfg)
}

// Connect dials the node and starts following heads. The websocket is tried
// first, then HTTP. Calling Connect again after a success is a no-op.
func (s *Subscriber) Connect(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.closed {
		return apperror.New(apperror.CodeEthereumSubscribeFailed,
			apperror.WithContext("subscriber is closed"))
	}
	if s.started {
		return nil
	}

	runCtx := ctx
	ctx, span := s.tracer.Start(ctx, "eth.connect",
		trace.WithAttributes(
			attribute.String("ws_url", s.config.WSURL),
			attribute.String("http_url", s.config.HTTPURL),
		))
	defer span.End()

	s.setState(domain.StateConnecting)

	wsErr := s.dialWS(ctx)
	if wsErr != nil {
		span.AddEvent("ws_failed_trying_http")
		s.logger.Warn(ctx, "ws connection failed, trying http fallback", "error", wsErr)
		if _, err := s.httpClient(ctx); err != nil {
			_ = apm.Fail(span, err, "both connections failed")
			s.setState(domain.StateDisconnected)
			return apperror.New(apperror.CodeEthereumConnectionFailed,
				apperror.WithCause(errors.Join(wsErr, err)),
				apperror.WithContext("failed to connect via WS and HTTP"))
		}
	}

	s.started = true
	s.wg.Add(1)
	go s.run(runCtx)

	span.SetStatus(codes.Ok, "connected")
	return nil
}

// Subscribe connects if needed and returns the block channel. The channel is
// closed by Close.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s.blocks, nil
}

// OnBlock registers a listener invoked for every new block, in addition to
// the channel returned by Subscribe. Listeners must not block.
func (s *Subscriber) OnBlock(fn func(context.Context, *domain.Block)) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

// run alternates between following the websocket and polling over HTTP until
// ctx ends or the subscriber is closed.
func (s *Subscriber) run(ctx context.Context) {
	defer s.wg.Done()

	backoff := s.config.InitialBackoff
	failures := 0
	for !s.stopped(ctx) {
		if s.config.WSURL != "" && failures < s.config.WSAttempts {
			received, err := s.followWS(ctx)
			if s.stopped(ctx) {
				return
			}
			if received {
				failures, backoff = 0, s.config.InitialBackoff
			}
			failures++
			s.reconnects.Add(1)
			s.metrics.errors.Add(ctx, 1)
			s.logger.Warn(ctx, "ws head subscription ended", "error", err, "attempt", failures)
			s.setState(domain.StateReconnecting)
			if !s.sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, s.config.MaxBackoff)
			continue
		}

		window := time.Duration(0)
		if s.config.WSURL != "" {
			window = s.config.WSRetryInterval
		}
		if err := s.pollHTTP(ctx, window); err != nil {
			s.logger.Error(ctx, "http fallback unavailable", "error", err)
			s.setState(domain.StateDisconnected)
			if !s.sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, s.config.MaxBackoff)
		}
		failures = 0
	}
}

// followWS streams heads until the subscription fails. received reports
// whether at least one head arrived.
func (s *Subscriber) followWS(ctx context.Context) (received bool, err error) {
	s.mu.RLock()
	client := s.ws
	s.mu.RUnlock()
	if client == nil {
		if err := s.dialWS(ctx); err != nil {
			return false, err
		}
		s.mu.RLock()
		client = s.ws
		s.mu.RUnlock()
	}
	defer s.dropWS(client)

	heads := make(chan *types.Header, s.config.BufferSize)
	sub, err := client.SubscribeNewHead(ctx, heads)
	if err != nil {
		return false, fmt.Errorf("subscribe new heads: %w", err)
	}
	defer sub.Unsubscribe()

	s.usingHTTP.Store(false)
	s.setState(domain.StateConnected)
	s.logger.Info(ctx, "subscribed to new heads via ws")

	for {
		select {
		case <-ctx.Done():
			return received, ctx.Err()
		case <-s.done:
			return received, nil
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return received, err
		case h := <-heads:
			if h != nil {
				received = true
				s.emit(ctx, h, "ws")
			}
		}
	}
}

// pollHTTP polls the latest head every PollInterval. A window > 0 returns
// after that long so the caller can retry the websocket.
func (s *Subscriber) pollHTTP(ctx context.Context, window time.Duration) error {
	client, err := s.httpClient(ctx)
	if err != nil {
		return err
	}

	s.usingHTTP.Store(true)
	s.metrics.fallbacks.Add(ctx, 1)
	s.setState(domain.StateConnected)
	s.logger.Info(ctx, "polling heads over http", "interval", s.config.PollInterval)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	var deadline <-chan time.Time
	if window > 0 {
		t := time.NewTimer(window)
		defer t.Stop()
		deadline = t.C
	}

	for {
		s.poll(ctx, client)
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-deadline:
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Subscriber) poll(ctx context.Context, client headSource) {
	ctx, span := s.tracer.Start(ctx, "eth.poll.block")
	defer span.End()

	h, err := s.httpCB.Execute(func() (*types.Header, error) {
		return client.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.errors.Add(ctx, 1)
		s.logger.Error(ctx, "http poll failed", "error", err)
		return
	}
	s.emit(ctx, h, "http")
}

// emit publishes a head unless it was already seen. A different hash at the
// current height is a reorg and is published again.
func (s *Subscriber) emit(ctx context.Context, h *types.Header, source string) {
	block := domain.BlockFromHeader(h, source, time.Now())

	s.mu.Lock()
	if block.Number < s.lastNum || (block.Number == s.lastNum && block.Hash == s.lastHash) {
		s.mu.Unlock()
		s.metrics.duplicates.Add(ctx, 1)
		return
	}
	delay := block.Delay()
	s.lastNum, s.lastHash = block.Number, block.Hash
	s.lastDelay, s.lastSeen = delay, block.ReceivedAt
	s.lastBaseFee = block.BaseFeeGwei()
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "eth.process.header",
		trace.WithAttributes(
			attribute.Int64("block_number", int64(block.Number)),
			attribute.String("source", source),
		))
	defer span.End()

	s.metrics.latency.Record(ctx, float64(delay.Milliseconds()))

	s.listenersMu.RLock()
	for _, fn := range s.listeners {
		fn(ctx, block)
	}
	s.listenersMu.RUnlock()

	select {
	case s.blocks <- block:
		s.metrics.blocks.Add(ctx, 1)
		s.logger.Debug(ctx, "block received",
			"number", block.Number, "source", source, "latency_ms", delay.Milliseconds())
	default:
		span.AddEvent("block_dropped_buffer_full")
		s.logger.Warn(ctx, "block dropped, buffer full", "number", block.Number)
	}
}

func (s *Subscriber) dialWS(ctx context.Context) error {
	if s.config.WSURL == "" {
		return errors.New("ws url not configured")
	}
	client, err := s.dial(ctx, s.config.WSURL)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}
	s.mu.Lock()
	s.ws = client
	s.mu.Unlock()
	return nil
}

func (s *Subscriber) dropWS(client headSource) {
	s.mu.Lock()
	if s.ws == client {
		s.ws = nil
	}
	s.mu.Unlock()
	client.Close()
}

// httpClient returns the HTTP client, dialing it on first use.
func (s *Subscriber) httpClient(ctx context.Context) (headSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http != nil {
		return s.http, nil
	}
	if s.config.HTTPURL == "" {
		return nil, errors.New("http url not configured")
	}
	client, err := s.dial(ctx, s.config.HTTPURL)
	if err != nil {
		return nil, fmt.Errorf("dial http: %w", err)
	}
	s.http = client
	return client, nil
}

// LatestBlock fetches the current head, preferring the websocket.
func (s *Subscriber) LatestBlock(ctx context.Context) (*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "eth.latest_block")
	defer span.End()

	s.mu.RLock()
	ws := s.ws
	s.mu.RUnlock()

	var (
		h   *types.Header
		err error
	)
	if ws != nil && !s.usingHTTP.Load() {
		h, err = s.wsCB.Execute(func() (*types.Header, error) {
			return ws.HeaderByNumber(ctx, nil)
		})
	}
	if h == nil {
		http, dialErr := s.httpClient(ctx)
		if dialErr != nil && err == nil {
			span.RecordError(dialErr)
			return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
				apperror.WithCause(dialErr),
				apperror.WithContext("no ethereum client connected"))
		}
		if http != nil {
			h, err = s.httpCB.Execute(func() (*types.Header, error) {
				return http.HeaderByNumber(ctx, nil)
			})
		}
	}
	if err != nil {
		_ = apm.Fail(span, err, "fetch failed")
		return nil, apperror.New(apperror.CodeBlockNotFound,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch latest block"))
	}

	span.SetStatus(codes.Ok, "fetched")
	return domain.BlockFromHeader(h, "rpc", time.Now()), nil
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns detailed connection status. Latency is the delay between
// the last block's timestamp and its receipt.
func (s *Subscriber) Status() domain.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ConnectionStatus{
		State:       s.state,
		Latency:     s.lastDelay,
		LastBlock:   s.lastNum,
		LastUpdate:  s.lastSeen,
		BaseFeeGwei: s.lastBaseFee,
		Reconnects:  int(s.reconnects.Load()),
		UsingHTTP:   s.usingHTTP.Load(),
	}
}

// Close stops following heads, closes both clients and then the block channel.
func (s *Subscriber) Close() error {
	s.startMu.Lock()
	if s.closed {
		s.startMu.Unlock()
		return nil
	}
	s.closed = true
	s.startMu.Unlock()

	s.logger.Info(context.Background(), "closing ethereum subscriber")
	close(s.done)
	s.wg.Wait()

	s.mu.Lock()
	for _, c := range []headSource{s.ws, s.http} {
		if c != nil {
			c.Close()
		}
	}
	s.ws, s.http = nil, nil
	s.mu.Unlock()

	close(s.blocks)
	s.setState(domain.StateDisconnected)
	return nil
}

func (s *Subscriber) stopped(ctx context.Context) bool {
	select {
	case <-s.done:
		return true
	default:
		return ctx.Err() != nil
	}
}

// sleep waits d and reports false if the subscriber stopped meanwhile.
func (s *Subscriber) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	case <-t.C:
		return true
	}
}

func (s *Subscriber) setState(state domain.ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.metrics.state.Record(context.Background(), stateGauge[state])
}
