package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexter/business/pricing/app"
	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/asset"
	"github.com/fd1az/dexter/internal/logger"
)

var _ app.CEXProvider = (*Provider)(nil)

// quoteSymbols are stripped from a Binance symbol to find its base asset.
var quoteSymbols = []string{"USDC", "USDT", "BUSD", "USD"}

// ProviderConfig holds configuration for the Binance provider.
type ProviderConfig struct {
	WebSocketURL   string
	HTTPURL        string
	Symbols        []string
	DepthSpeedMs   int
	SnapshotDepth  int
	StaleTimeout   time.Duration
	EnableFallback bool // fetch REST depth when the stream is stale
}

// Provider serves orderbooks kept current by the combined stream, falling
// back to REST snapshots when the stream is stale.
type Provider struct {
	config   ProviderConfig
	logger   logger.LoggerInterface
	stream   *Stream
	rest     *HTTPClient
	registry *asset.Registry
	books    map[string]*book // read-only after construction
	tracer   trace.Tracer
	now      func() time.Time
}

// NewProvider creates a Binance CEX provider. Connect starts the stream.
func NewProvider(cfg ProviderConfig, log logger.LoggerInterface) (*Provider, error) {
	if cfg.SnapshotDepth == 0 {
		cfg.SnapshotDepth = 20
	}
	if cfg.StaleTimeout == 0 {
		cfg.StaleTimeout = 5 * time.Second
	}

	p := &Provider{
		config:   cfg,
		logger:   log,
		registry: asset.DefaultRegistry(),
		books:    make(map[string]*book, len(cfg.Symbols)),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, sym := range cfg.Symbols {
		p.books[strings.ToUpper(sym)] = &book{}
	}

	if cfg.EnableFallback {
		rest, err := NewHTTPClient(HTTPClientConfig{BaseURL: cfg.HTTPURL}, log)
		if err != nil {
			return nil, err
		}
		p.rest = rest
	}

	p.stream = NewStream(StreamConfig{
		BaseURL:      cfg.WebSocketURL,
		Symbols:      cfg.Symbols,
		DepthSpeedMs: cfg.DepthSpeedMs,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}, log)
	p.stream.OnBookTicker(p.applyBookTicker)
	p.stream.OnDepth(p.applyDepth)

	return p, nil
}

// Connect starts the market data stream.
func (p *Provider) Connect(ctx context.Context) error {
	return p.stream.Connect(ctx)
}

// IsConnected reports whether the market data stream is up.
func (p *Provider) IsConnected() bool {
	return p.stream.IsConnected()
}

// Close stops the stream.
func (p *Provider) Close() error {
	return p.stream.Close()
}

// GetOrderbook returns the streamed book for pair, or a REST snapshot when
// the stream has nothing fresh.
func (p *Provider) GetOrderbook(ctx context.Context, pair domain.Pair) (*domain.Orderbook, error) {
	ctx, span := p.tracer.Start(ctx, "binance.get_orderbook",
		trace.WithAttributes(attribute.String("pair", pair.String())))
	defer span.End()

	symbol := pair.Base.Symbol() + pair.Quote.Symbol()
	b, ok := p.books[symbol]
	if !ok {
		return nil, apperror.New(apperror.CodeNotFound,
			apperror.WithContext(fmt.Sprintf("symbol %s not subscribed", symbol)))
	}

	if b.fresh(p.now(), p.config.StaleTimeout) {
		span.SetAttributes(attribute.String("source", "stream"))
		return b.snapshot(pair), nil
	}

	if p.rest == nil {
		return nil, apperror.New(apperror.CodeCacheExpired,
			apperror.WithContext(fmt.Sprintf("orderbook stale for %s", symbol)))
	}

	span.SetAttributes(attribute.String("source", "rest"))
	depth, err := p.rest.GetDepth(ctx, symbol, p.config.SnapshotDepth)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	depth.Symbol = symbol
	if err := p.installDepth(b, depth); err != nil {
		return nil, err
	}
	p.logger.Debug(ctx, "orderbook refreshed over REST", "symbol", symbol)
	return b.snapshot(pair), nil
}

// GetEffectivePrice walks the book for size and returns the average fill.
func (p *Provider) GetEffectivePrice(ctx context.Context, pair domain.Pair, size decimal.Decimal, side domain.Side) (*domain.Price, error) {
	ctx, span := p.tracer.Start(ctx, "binance.get_effective_price",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.String("size", size.String()),
			attribute.String("side", string(side)),
		))
	defer span.End()

	ob, err := p.GetOrderbook(ctx, pair)
	if err != nil {
		return nil, err
	}

	avg, filled := ob.Fill(side, size)
	if filled.IsZero() {
		return nil, apperror.New(apperror.CodeInvalidOrderbook, apperror.WithContext("no liquidity"))
	}
	if filled.LessThan(size) {
		p.logger.Warn(ctx, "partial fill in effective price calculation",
			"requested", size.String(), "filled", filled.String())
	}

	amount, err := asset.ParseDecimal(pair.Base, filled)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInvalidOrderbook, "fill amount", err)
	}
	price := domain.NewPrice(asset.NewPriceNow(pair.Base, pair.Quote, avg), amount, side, "binance")

	span.SetAttributes(attribute.String("effective_price", avg.String()))
	return &price, nil
}

func (p *Provider) applyBookTicker(t *BookTicker) {
	b, ok := p.books[t.Symbol]
	if !ok {
		return
	}
	base := p.baseAsset(t.Symbol)
	bid, err := parseLevels([][]string{{t.BidPrice, t.BidQty}}, base)
	if err != nil || len(bid) == 0 {
		return
	}
	ask, err := parseLevels([][]string{{t.AskPrice, t.AskQty}}, base)
	if err != nil || len(ask) == 0 {
		return
	}
	b.setTop(bid[0], ask[0], p.now())
}

func (p *Provider) applyDepth(d *Depth) {
	b, ok := p.books[d.Symbol]
	if !ok {
		return
	}
	if err := p.installDepth(b, d); err != nil {
		p.logger.Debug(context.Background(), "binance depth rejected", "symbol", d.Symbol, "error", err)
	}
}

func (p *Provider) installDepth(b *book, d *Depth) error {
	base := p.baseAsset(d.Symbol)
	bids, err := parseLevels(d.Bids, base)
	if err != nil {
		return apperror.New(apperror.CodeInvalidOrderbook, apperror.WithCause(err), apperror.WithContext("bids"))
	}
	asks, err := parseLevels(d.Asks, base)
	if err != nil {
		return apperror.New(apperror.CodeInvalidOrderbook, apperror.WithCause(err), apperror.WithContext("asks"))
	}
	b.replace(bids, asks, p.now())
	return nil
}

// baseAsset resolves the base of a symbol like ETHUSDC; unknown bases are ETH.
func (p *Provider) baseAsset(symbol string) *asset.Asset {
	for _, q := range quoteSymbols {
		base, ok := strings.CutSuffix(symbol, q)
		if !ok || base == "" {
			continue
		}
		if a, ok := p.registry.GetBySymbolAndChain(base, asset.ChainIDEthereum); ok {
			return a
		}
	}
	return asset.ETH
}
