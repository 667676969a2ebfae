package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/dexter/business/blockchain/domain"
	"github.com/fd1az/dexter/internal/apm"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/cache"
	"github.com/fd1az/dexter/internal/circuitbreaker"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	gasPriceKey = "gas_price"

	// fetchTimeout bounds a shared fetch, which outlives its callers' contexts.
	fetchTimeout = 10 * time.Second
)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	RPCURL         string
	CacheTTL       time.Duration // also the Watch poll interval
	MaxGasPrice    *big.Int      // caps cost estimates, never the baseline
	BaselineWindow time.Duration
	EstimateMargin decimal.Decimal // added to eth_estimateGas results
}

// DefaultGasOracleConfig returns a 500 gwei cap, one-block cache and a
// five minute baseline.
func DefaultGasOracleConfig(rpcURL string) GasOracleConfig {
	return GasOracleConfig{
		RPCURL:         rpcURL,
		CacheTTL:       12 * time.Second,
		MaxGasPrice:    new(big.Int).Mul(big.NewInt(500), big.NewInt(1e9)),
		BaselineWindow: 5 * time.Minute,
		EstimateMargin: decimal.RequireFromString("0.1"),
	}
}

// gasClient is the subset of ethclient.Client the oracle needs.
type gasClient interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	Close()
}

type gasOracleMetrics struct {
	fetches   metric.Int64Counter
	failures  metric.Int64Counter
	gwei      metric.Float64Gauge
	estimates metric.Int64Counter
	cacheHits metric.Int64Counter
}

// GasOracle serves cached gas prices from an Ethereum node and keeps a
// rolling baseline for MEV analysis.
type GasOracle struct {
	config GasOracleConfig
	logger logger.LoggerInterface

	mu     sync.RWMutex
	client gasClient

	baseline  *gasBaseline
	prices    *cache.Cache[string, *domain.GasPrice]
	inflight  singleflight.Group
	cb        *circuitbreaker.CircuitBreaker[*big.Int]
	listeners []func(*domain.GasPrice)
	floor     *big.Int // projected next base fee, from the last head

	tracer  trace.Tracer
	metrics gasOracleMetrics
}

// NewGasOracle creates an oracle; Connect dials the node.
func NewGasOracle(cfg GasOracleConfig, log logger.LoggerInterface) (*GasOracle, error) {
	return newGasOracle(cfg, nil, log)
}

func newGasOracle(cfg GasOracleConfig, client gasClient, log logger.LoggerInterface) (*GasOracle, error) {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 12 * time.Second
	}
	g := &GasOracle{
		config:   cfg,
		logger:   log,
		client:   client,
		baseline: newGasBaseline(cfg.BaselineWindow),
		prices:   cache.New[string, *domain.GasPrice](time.Minute),
		cb:       circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("gas-oracle")),
		tracer:   otel.Tracer(tracerName),
	}
	if err := g.initMetrics(); err != nil {
		g.prices.Close()
		return nil, err
	}
	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err, e error
	g.metrics.fetches, e = meter.Int64Counter("gas_price_fetches_total",
		metric.WithDescription("Gas price RPC fetches"), metric.WithUnit("{fetch}"))
	err = errors.Join(err, e)
	g.metrics.failures, e = meter.Int64Counter("gas_price_fetch_failures_total",
		metric.WithDescription("Failed gas price RPC fetches"), metric.WithUnit("{fetch}"))
	err = errors.Join(err, e)
	g.metrics.gwei, e = meter.Float64Gauge("gas_price_gwei",
		metric.WithDescription("Last observed gas price"), metric.WithUnit("gwei"))
	err = errors.Join(err, e)
	g.metrics.estimates, e = meter.Int64Counter("gas_estimate_total",
		metric.WithDescription("eth_estimateGas calls"), metric.WithUnit("{estimate}"))
	err = errors.Join(err, e)
	g.metrics.cacheHits, e = meter.Int64Counter("gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"), metric.WithUnit("{hit}"))
	return errors.Join(err, e)
}

// Connect dials the node's HTTP endpoint.
func (g *GasOracle) Connect(ctx context.Context) error {
	ctx, span := g.tracer.Start(ctx, "gas.connect", trace.WithAttributes(attribute.String("url", g.config.RPCURL)))
	defer span.End()

	client, err := ethclient.DialContext(ctx, g.config.RPCURL)
	if err != nil {
		span.SetStatus(codes.Error, "dial failed")
		return apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("gas oracle dial "+g.config.RPCURL))
	}

	g.mu.Lock()
	old := g.client
	g.client = client
	g.mu.Unlock()
	if old != nil {
		old.Close()
	}

	g.logger.Info(ctx, "gas oracle connected", "url", g.config.RPCURL)
	return nil
}

func (g *GasOracle) rpc() (gasClient, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.client == nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("gas oracle not connected"))
	}
	return g.client, nil
}

// GetGasPrice returns the cached price, fetching it when stale. Concurrent
// callers share one RPC; a caller whose ctx ends stops waiting without
// failing the others.
func (g *GasOracle) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	if price, ok := g.prices.Get(ctx, gasPriceKey); ok {
		g.metrics.cacheHits.Add(ctx, 1)
		return price, nil
	}

	ch := g.inflight.DoChan(gasPriceKey, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return g.fetch(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.GasPrice), nil
	}
}

func (g *GasOracle) fetch(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.fetch")
	defer span.End()

	client, err := g.rpc()
	if err != nil {
		return nil, apm.Fail(span, err, "")
	}

	g.metrics.fetches.Add(ctx, 1)
	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return client.SuggestGasPrice(ctx)
	})
	if err != nil {
		g.metrics.failures.Add(ctx, 1)
		_ = apm.Fail(span, err, "suggest gas price")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("suggest gas price"))
	}

	price := domain.NewGasPrice(wei)
	g.prices.Set(ctx, gasPriceKey, price, g.config.CacheTTL)
	g.baseline.add(price.Timestamp, price.GweiDecimal())
	g.metrics.gwei.Record(ctx, price.Gwei())
	span.SetAttributes(attribute.Float64("gwei", price.Gwei()))

	g.mu.RLock()
	listeners := g.listeners
	g.mu.RUnlock()
	for _, fn := range listeners {
		fn(price)
	}
	return price, nil
}

// OnGasPrice registers a listener called on every fresh fetch.
func (g *GasOracle) OnGasPrice(fn func(*domain.GasPrice)) {
	g.mu.Lock()
	g.listeners = append(g.listeners, fn)
	g.mu.Unlock()
}

// ObserveBlock records the base fee the block after b must pay.
func (g *GasOracle) ObserveBlock(ctx context.Context, b *domain.Block) {
	next := b.NextBaseFee()
	if next == nil {
		return
	}
	g.mu.Lock()
	g.floor = next
	g.mu.Unlock()
	g.logger.Debug(ctx, "base fee observed", "block", b.Number,
		"base_fee_gwei", b.BaseFeeGwei().StringFixed(2), "utilization", b.Utilization())
}

func (g *GasOracle) baseFeeFloor() *big.Int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.floor
}

// BaselineGwei returns the mean gas price over the baseline window and
// whether any samples exist.
func (g *GasOracle) BaselineGwei() (decimal.Decimal, bool) {
	return g.baseline.mean(time.Now())
}

// Watch refreshes the price once per cache period until ctx is done.
func (g *GasOracle) Watch(ctx context.Context) {
	ticker := time.NewTicker(g.config.CacheTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := g.GetGasPrice(ctx); err != nil {
				g.logger.Debug(ctx, "gas watch fetch failed", "error", err)
			}
		}
	}
}

// EstimateGasCost prices gasLimit at the current gas price, raised to the
// next block's base fee when that is known and capped at MaxGasPrice.
func (g *GasOracle) EstimateGasCost(ctx context.Context, gasLimit uint64) (*domain.GasEstimate, error) {
	price, err := g.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	if floor := g.baseFeeFloor(); floor != nil && price.Wei().Cmp(floor) < 0 {
		price = domain.NewGasPrice(floor)
	}
	if limit := g.config.MaxGasPrice; limit != nil && price.Wei().Cmp(limit) > 0 {
		g.logger.Warn(ctx, "gas price above cap", "gwei", price.Gwei())
		price = domain.NewGasPrice(limit)
	}
	return domain.NewGasEstimate(gasLimit, price), nil
}

// EstimateGas asks the node for the gas a call to `to` needs, plus the
// configured margin.
func (g *GasOracle) EstimateGas(ctx context.Context, data []byte, to string) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate", trace.WithAttributes(
		attribute.String("to", to),
		attribute.Int("data_len", len(data)),
	))
	defer span.End()

	client, err := g.rpc()
	if err != nil {
		return 0, err
	}
	g.metrics.estimates.Add(ctx, 1)

	addr := common.HexToAddress(to)
	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{To: &addr, Data: data})
	if err != nil {
		_ = apm.Fail(span, err, "estimate failed")
		return 0, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext("estimate gas for "+to))
	}

	padded := decimal.NewFromUint64(gas).Mul(decimal.NewFromInt(1).Add(g.config.EstimateMargin)).Ceil()
	span.SetAttributes(attribute.Int64("gas", padded.IntPart()))
	return uint64(padded.IntPart()), nil
}

// Close releases the node connection and the cache janitor.
func (g *GasOracle) Close() error {
	g.mu.Lock()
	if g.client != nil {
		g.client.Close()
		g.client = nil
	}
	g.mu.Unlock()
	g.prices.Close()
	return nil
}

type gasSample struct {
	at   time.Time
	gwei decimal.Decimal
}

// gasBaseline is a time-windowed mean of observed gas prices.
type gasBaseline struct {
	window time.Duration

	mu      sync.Mutex
	samples []gasSample
}

func newGasBaseline(window time.Duration) *gasBaseline {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &gasBaseline{window: window}
}

func (b *gasBaseline) add(at time.Time, gwei decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, gasSample{at: at, gwei: gwei})
	b.trim(at)
}

// trim drops samples older than the window; samples arrive in time order.
func (b *gasBaseline) trim(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.samples) && b.samples[i].at.Before(cutoff) {
		i++
	}
	b.samples = b.samples[i:]
}

func (b *gasBaseline) mean(now time.Time) (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trim(now)
	if len(b.samples) == 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, s := range b.samples {
		sum = sum.Add(s.gwei)
	}
	return sum.Div(decimal.NewFromInt(int64(len(b.samples)))), true
}
