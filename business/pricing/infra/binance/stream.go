package binance

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sugawarayuuta/sonnet"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/wsconn"
)

const (
	tracerName = "binance"
	meterName  = "binance"

	BaseWSURL   = "wss://stream.binance.com:9443"
	BaseWSURLUS = "wss://stream.binance.us:9443"

	// Binance drops connections that stay silent for 3 minutes.
	keepAliveInterval = 2 * time.Minute
)

// StreamConfig configures the combined market data stream.
type StreamConfig struct {
	BaseURL      string
	Symbols      []string // e.g. "ETHUSDC"
	DepthSpeedMs int      // 100 or 1000
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type streamMetrics struct {
	frames      metric.Int64Counter
	parseErrors metric.Int64Counter
}

// Stream subscribes to bookTicker and depth20 for every configured symbol
// over a single combined connection.
type Stream struct {
	config StreamConfig
	logger logger.LoggerInterface
	tracer trace.Tracer

	mu   sync.RWMutex
	conn *wsconn.Client

	onBookTicker func(*BookTicker)
	onDepth      func(*Depth)

	nextID  atomic.Int64
	stop    chan struct{}
	metrics streamMetrics
}

// NewStream creates a stream. Handlers must be set before Connect.
func NewStream(cfg StreamConfig, log logger.LoggerInterface) *Stream {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseWSURL
	}
	if cfg.DepthSpeedMs == 0 {
		cfg.DepthSpeedMs = 100
	}
	s := &Stream{
		config: cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
		stop:   make(chan struct{}),
	}
	meter := otel.Meter(meterName)
	s.metrics.frames, _ = meter.Int64Counter("binance_stream_frames_total",
		metric.WithDescription("Frames received on the combined stream"))
	s.metrics.parseErrors, _ = meter.Int64Counter("binance_parse_errors_total",
		metric.WithDescription("Frames that failed to decode"))
	return s
}

// OnBookTicker sets the best bid/ask handler.
func (s *Stream) OnBookTicker(h func(*BookTicker)) { s.onBookTicker = h }

// OnDepth sets the partial depth handler.
func (s *Stream) OnDepth(h func(*Depth)) { s.onDepth = h }

// URL returns the combined stream URL for the configured symbols.
func (s *Stream) URL() (string, error) {
	if len(s.config.Symbols) == 0 {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no binance symbols configured"))
	}
	u, err := url.Parse(s.config.BaseURL)
	if err != nil {
		return "", apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err))
	}
	streams := make([]string, 0, len(s.config.Symbols)*2)
	for _, sym := range s.config.Symbols {
		streams = append(streams, bookTickerStream(sym), depthStream(sym, s.config.DepthSpeedMs))
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

// Connect dials the combined stream, retrying with backoff.
func (s *Stream) Connect(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "binance.connect",
		trace.WithAttributes(attribute.StringSlice("symbols", s.config.Symbols)))
	defer span.End()

	wsURL, err := s.URL()
	if err != nil {
		return err
	}

	cfg := wsconn.DefaultConfig(wsURL, "binance")
	if s.config.ReadTimeout > 0 {
		cfg.ReadTimeout = s.config.ReadTimeout
	}
	if s.config.WriteTimeout > 0 {
		cfg.WriteTimeout = s.config.WriteTimeout
	}
	conn, err := wsconn.New(cfg)
	if err != nil {
		return apperror.New(apperror.CodeBinanceConnectionFailed, apperror.WithCause(err))
	}
	conn.OnMessage(s.dispatch)
	conn.OnStateChange(func(state wsconn.State, err error) {
		s.logger.Info(context.Background(), "binance stream state", "state", string(state), "error", err)
	})

	if err := conn.ConnectWithRetry(ctx); err != nil {
		span.RecordError(err)
		return apperror.New(apperror.CodeBinanceConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to Binance"))
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.keepAlive(context.WithoutCancel(ctx))

	s.logger.Info(ctx, "binance stream connected", "symbols", s.config.Symbols)
	return nil
}

// dispatch decodes one combined-stream frame and routes it by stream suffix.
func (s *Stream) dispatch(ctx context.Context, data []byte) {
	s.metrics.frames.Add(ctx, 1)

	var env envelope
	if err := sonnet.Unmarshal(data, &env); err != nil {
		s.parseFailed(ctx, "envelope", err)
		return
	}
	if env.ID != nil {
		return // control reply
	}

	switch {
	case strings.HasSuffix(env.Stream, "@bookTicker"):
		var t BookTicker
		if err := sonnet.Unmarshal(env.Data, &t); err != nil {
			s.parseFailed(ctx, env.Stream, err)
			return
		}
		if s.onBookTicker != nil {
			s.onBookTicker(&t)
		}
	case strings.Contains(env.Stream, "@depth"):
		var d Depth
		if err := sonnet.Unmarshal(env.Data, &d); err != nil {
			s.parseFailed(ctx, env.Stream, err)
			return
		}
		d.Symbol = streamSymbol(env.Stream)
		if s.onDepth != nil {
			s.onDepth(&d)
		}
	}
}

func (s *Stream) parseFailed(ctx context.Context, stream string, err error) {
	s.metrics.parseErrors.Add(ctx, 1)
	s.logger.Debug(ctx, "binance frame decode failed", "stream", stream, "error", err)
}

// Subscribe adds streams on the live connection.
func (s *Stream) Subscribe(ctx context.Context, streams ...string) error {
	return s.control(ctx, "SUBSCRIBE", streams)
}

// Unsubscribe removes streams from the live connection.
func (s *Stream) Unsubscribe(ctx context.Context, streams ...string) error {
	return s.control(ctx, "UNSUBSCRIBE", streams)
}

func (s *Stream) control(ctx context.Context, method string, streams []string) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return apperror.New(apperror.CodeBinanceConnectionFailed, apperror.WithContext("not connected"))
	}

	data, err := sonnet.Marshal(controlRequest{Method: method, Params: streams, ID: s.nextID.Add(1)})
	if err != nil {
		return err
	}
	if err := conn.Send(ctx, data); err != nil {
		return apperror.New(apperror.CodeBinanceConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(strings.ToLower(method)))
	}
	return nil
}

func (s *Stream) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.control(ctx, "LIST_SUBSCRIPTIONS", nil); err != nil {
				s.logger.Warn(ctx, "binance keep-alive failed", "error", err)
			}
		}
	}
}

// IsConnected reports whether the underlying connection is up.
func (s *Stream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil && s.conn.IsConnected()
}

// Close stops keep-alive and closes the connection.
func (s *Stream) Close() error {
	select {
	case <-s.stop:
		return nil
	default:
		close(s.stop)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
