// Package uniswap quotes Uniswap V3 pools through the QuoterV2 contract.
package uniswap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/dexter/business/pricing/app"
	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/asset"
	"github.com/fd1az/dexter/internal/circuitbreaker"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	tracerName = "uniswap"
	meterName  = "uniswap"

	quoteMethod = "quoteExactInputSingle"
)

var _ app.DEXProvider = (*Provider)(nil)

type providerMetrics struct {
	quotes     metric.Int64Counter
	latency    metric.Float64Histogram
	failures   metric.Int64Counter
	tierMisses metric.Int64Counter
}

// Provider implements DEXProvider for Uniswap V3.
type Provider struct {
	client   ethereum.ContractCaller
	quoter   common.Address
	quoterAB abi.ABI
	erc20AB  abi.ABI
	feeTiers []int

	registry *asset.Registry
	metaMu   sync.Mutex

	logger  logger.LoggerInterface
	cb      *circuitbreaker.CircuitBreaker[[]byte]
	tracer  trace.Tracer
	metrics providerMetrics
}

// NewProvider creates a provider. client is usually an *ethclient.Client.
func NewProvider(client ethereum.ContractCaller, cfg config.UniswapConfig, log logger.LoggerInterface) (*Provider, error) {
	quoterAB, err := abi.JSON(strings.NewReader(QuoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}
	erc20AB, err := abi.JSON(strings.NewReader(erc20MetaABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	p := &Provider{
		client:   client,
		quoter:   cfg.QuoterAddressHex(),
		quoterAB: quoterAB,
		erc20AB:  erc20AB,
		feeTiers: feeTiers(cfg.DefaultFeeTier),
		registry: asset.DefaultRegistry(),
		logger:   log,
		cb:       circuitbreaker.New[[]byte](breakerConfig()),
		tracer:   otel.Tracer(tracerName),
	}
	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return p, nil
}

// breakerConfig counts reverts as successes: a missing pool on one fee tier
// says nothing about the node.
func breakerConfig() circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig("uniswap-quoter")
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || isRevert(err)
	}
	return cfg
}

func isRevert(err error) bool {
	return strings.Contains(err.Error(), "execution reverted")
}

// feeTiers puts the configured default first and drops duplicates.
func feeTiers(preferred int) []int {
	tiers := []int{FeeTier005, FeeTier030, FeeTier100}
	if preferred <= 0 {
		return tiers
	}
	out := []int{preferred}
	for _, t := range tiers {
		if t != preferred {
			out = append(out, t)
		}
	}
	return out
}

func (p *Provider) initMetrics() error {
	meter := otel.Meter(meterName)
	var err, e error
	p.metrics.quotes, e = meter.Int64Counter("uniswap_quotes_total",
		metric.WithDescription("Quote requests across all fee tiers"))
	err = errors.Join(err, e)
	p.metrics.latency, e = meter.Float64Histogram("uniswap_quote_latency_ms",
		metric.WithDescription("Time to quote every fee tier"), metric.WithUnit("ms"))
	err = errors.Join(err, e)
	p.metrics.failures, e = meter.Int64Counter("uniswap_quote_errors_total",
		metric.WithDescription("Quotes where no fee tier had a pool"))
	err = errors.Join(err, e)
	p.metrics.tierMisses, e = meter.Int64Counter("uniswap_fee_tier_misses_total",
		metric.WithDescription("Fee tiers that reverted or failed"))
	return errors.Join(err, e)
}

// GetQuote quotes every fee tier concurrently and returns the one paying the
// most. Ties go to the earlier tier, which puts the configured default first.
func (p *Provider) GetQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*domain.Quote, error) {
	ctx, span := p.tracer.Start(ctx, "uniswap.get_quote", trace.WithAttributes(
		attribute.String("token_in", tokenIn.Hex()),
		attribute.String("token_out", tokenOut.Hex()),
		attribute.String("amount_in", amountIn.String()),
	))
	defer span.End()

	start := time.Now()
	p.metrics.quotes.Add(ctx, 1)

	results := make([]*tierQuote, len(p.feeTiers))
	g, gctx := errgroup.WithContext(ctx)
	for i, fee := range p.feeTiers {
		g.Go(func() error {
			q, err := p.quoteTier(gctx, tokenIn, tokenOut, amountIn, fee)
			if err != nil {
				p.metrics.tierMisses.Add(ctx, 1, metric.WithAttributes(attribute.Int("fee_tier", fee)))
				span.AddEvent("fee_tier_failed", trace.WithAttributes(
					attribute.Int("fee_tier", fee),
					attribute.String("error", err.Error()),
				))
				return nil
			}
			results[i] = q
			return nil
		})
	}
	_ = g.Wait()
	p.metrics.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000)

	var best *tierQuote
	for _, q := range results {
		if q != nil && (best == nil || q.amountOut.Cmp(best.amountOut) > 0) {
			best = q
		}
	}
	if best == nil {
		p.metrics.failures.Add(ctx, 1)
		span.SetStatus(codes.Error, "no pool")
		return nil, apperror.New(apperror.CodeUniswapQuoteFailed,
			apperror.WithContext(fmt.Sprintf("no pool for %s -> %s", tokenIn.Hex(), tokenOut.Hex())))
	}

	assetIn := p.resolveAsset(ctx, tokenIn)
	assetOut := p.resolveAsset(ctx, tokenOut)
	quote := domain.NewQuote(assetIn, assetOut,
		asset.NewAmount(assetIn, amountIn), asset.NewAmount(assetOut, best.amountOut),
		best.gas, best.fee)

	span.SetAttributes(
		attribute.String("amount_out", best.amountOut.String()),
		attribute.Int("fee_tier", best.fee),
		attribute.Int("ticks_crossed", int(best.ticks)),
	)
	p.logger.Debug(ctx, "uniswap quote",
		"in", quote.AmountIn.String(), "out", quote.AmountOut.String(), "fee_tier", best.fee)
	return &quote, nil
}

func (p *Provider) quoteTier(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, fee int) (*tierQuote, error) {
	data, err := p.quoterAB.Pack(quoteMethod, exactInputSingle{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(fee)),
		SqrtPriceLimitX96: new(big.Int),
	})
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", quoteMethod, err)
	}

	raw, err := p.cb.Execute(func() ([]byte, error) {
		return p.client.CallContract(ctx, ethereum.CallMsg{To: &p.quoter, Data: data}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quoter fee tier %d", fee)))
	}

	out, err := p.quoterAB.Unpack(quoteMethod, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", quoteMethod, err)
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("unpack %s: %d outputs", quoteMethod, len(out))
	}
	amountOut, _ := out[0].(*big.Int)
	ticks, _ := out[2].(uint32)
	gas, _ := out[3].(*big.Int)
	if amountOut == nil || amountOut.Sign() == 0 || gas == nil {
		return nil, fmt.Errorf("fee tier %d: empty quote", fee)
	}
	return &tierQuote{fee: fee, amountOut: amountOut, gas: gas.Uint64(), ticks: ticks}, nil
}

// resolveAsset looks the token up in the registry, reading decimals and
// symbol from the contract the first time an unknown token is seen. A token
// whose metadata cannot be read is assumed to have 18 decimals and is not
// cached.
func (p *Provider) resolveAsset(ctx context.Context, addr common.Address) *asset.Asset {
	if a, ok := p.registry.GetToken(asset.ChainIDEthereum, addr); ok {
		return a
	}

	p.metaMu.Lock()
	defer p.metaMu.Unlock()
	if a, ok := p.registry.GetToken(asset.ChainIDEthereum, addr); ok {
		return a
	}

	id := asset.NewTokenAssetID(asset.ChainIDEthereum, addr)
	fallback := addr.Hex()[:8]

	var decimals uint8
	if err := p.callERC20(ctx, addr, "decimals", &decimals); err != nil {
		p.logger.Debug(ctx, "token decimals unavailable", "token", addr.Hex(), "error", err)
		return asset.NewAsset(id, fallback, 18)
	}
	symbol := fallback
	if err := p.callERC20(ctx, addr, "symbol", &symbol); err != nil || symbol == "" {
		symbol = fallback
	}

	a := asset.NewAsset(id, symbol, decimals)
	if err := p.registry.Register(a); err != nil {
		// Symbol clash with a registered token; keep the contract address as the label.
		a = asset.NewAsset(id, fallback, decimals)
		_ = p.registry.Register(a)
	}
	return a
}

func (p *Provider) callERC20(ctx context.Context, token common.Address, method string, out any) error {
	data, err := p.erc20AB.Pack(method)
	if err != nil {
		return err
	}
	raw, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return err
	}
	return p.erc20AB.UnpackIntoInterface(out, method, raw)
}
