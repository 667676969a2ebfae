// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexter/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/dexter/business/blockchain/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	tracerName = "arbitrage.detector"
	meterName  = "arbitrage.detector"

	defaultGasLimit = 200_000

	ethUSDSymbol = "ETH/USDC"
)

// DetectorConfig holds configuration for the arbitrage detector.
type DetectorConfig struct {
	Pairs      []pricingDomain.Pair
	TradeSizes []decimal.Decimal
	GasLimit   uint64

	// StopLossPct prices the risk sizer's stop (0.02 = 2% below entry).
	StopLossPct decimal.Decimal
}

type detectorMetrics struct {
	blocks        metric.Int64Counter
	evaluations   metric.Int64Counter
	opportunities metric.Int64Counter
	riskCapped    metric.Int64Counter
}

// Detector orchestrates arbitrage detection.
type Detector struct {
	blocks     BlockSource
	pricing    SnapshotSource
	calculator *ProfitCalculator
	reporter   Reporter
	sizer      PositionSizer
	refs       ReferencePrices
	config     DetectorConfig
	logger     logger.LoggerInterface

	paused atomic.Bool
	found  atomic.Uint64

	tracer  trace.Tracer
	metrics detectorMetrics
}

// NewDetector creates a new arbitrage Detector. sizer may be nil.
func NewDetector(
	blocks BlockSource,
	pricing SnapshotSource,
	calculator *ProfitCalculator,
	reporter Reporter,
	sizer PositionSizer,
	config DetectorConfig,
	log logger.LoggerInterface,
) *Detector {
	if config.GasLimit == 0 {
		config.GasLimit = defaultGasLimit
	}
	d := &Detector{
		blocks:     blocks,
		pricing:    pricing,
		calculator: calculator,
		reporter:   reporter,
		sizer:      sizer,
		config:     config,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}
	d.initMetrics()
	return d
}

func (d *Detector) initMetrics() {
	meter := otel.Meter(meterName)
	d.metrics.blocks, _ = meter.Int64Counter("arbitrage_blocks_processed_total",
		metric.WithDescription("Blocks run through detection"))
	d.metrics.evaluations, _ = meter.Int64Counter("arbitrage_evaluations_total",
		metric.WithDescription("Pair/size candidates evaluated"))
	d.metrics.opportunities, _ = meter.Int64Counter("arbitrage_opportunities_total",
		metric.WithDescription("Profitable opportunities reported"))
	d.metrics.riskCapped, _ = meter.Int64Counter("arbitrage_risk_capped_total",
		metric.WithDescription("Candidates skipped for exceeding the risk-sized position"))
}

// Start begins the arbitrage detection loop.
func (d *Detector) Start(ctx context.Context) error {
	d.logger.Info(ctx, "starting arbitrage detector",
		"pairs", len(d.config.Pairs), "sizes", len(d.config.TradeSizes))

	// Subscribe to new blocks
	blocks, err := d.blocks.SubscribeBlocks(ctx)
	if err != nil {
		return err
	}

	// Start reporter
	if err := d.reporter.Start(ctx); err != nil {
		return err
	}

	// Main detection loop
	go d.run(ctx, blocks)

	return nil
}

// SetReferencePrices sets the source of the ETH/USD rate used to price gas.
func (d *Detector) SetReferencePrices(refs ReferencePrices) {
	d.refs = refs
}

// SetPaused suspends or resumes block processing.
func (d *Detector) SetPaused(paused bool) {
	d.paused.Store(paused)
}

// Found returns how many profitable opportunities were reported.
func (d *Detector) Found() uint64 {
	return d.found.Load()
}

func (d *Detector) run(ctx context.Context, blocks <-chan *blockchainDomain.Block) {
	for {
		select {
		case <-ctx.Done():
			d.logger.Info(ctx, "detector stopping", "reason", ctx.Err())
			return
		case block, ok := <-blocks:
			if !ok {
				d.logger.Warn(ctx, "block channel closed")
				return
			}
			if block != nil && !d.paused.Load() {
				d.ProcessBlock(ctx, block)
			}
		}
	}
}

// ProcessBlock evaluates every configured pair and trade size against block.
func (d *Detector) ProcessBlock(ctx context.Context, block *blockchainDomain.Block) []*domain.Opportunity {
	ctx, span := d.tracer.Start(ctx, "arbitrage.process_block",
		trace.WithAttributes(attribute.Int64("block", int64(block.Number))))
	defer span.End()

	d.logger.Debug(ctx, "processing block", "number", block.Number, "hash", block.Hash.Hex())
	d.metrics.blocks.Add(ctx, 1)

	gas, err := d.blocks.EstimateGasCost(ctx, d.config.GasLimit)
	if err != nil {
		span.RecordError(err)
		d.logger.Warn(ctx, "gas estimate failed", "block", block.Number, "error", err)
		return nil
	}

	var found []*domain.Opportunity
	for _, pair := range d.config.Pairs {
		for _, size := range d.config.TradeSizes {
			opp, err := d.evaluate(ctx, block, pair, size, gas)
			if err != nil {
				d.logger.Warn(ctx, "evaluation failed",
					"pair", pair.String(), "size", size.String(), "error", err)
				continue
			}
			if opp == nil {
				continue
			}

			d.reporter.ReportScan(opp)
			if opp.IsProfitable() {
				d.metrics.opportunities.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair.String())))
				d.found.Add(1)
				d.reporter.Report(opp)
				found = append(found, opp)
			}
		}
	}
	return found
}

func (d *Detector) evaluate(
	ctx context.Context,
	block *blockchainDomain.Block,
	pair pricingDomain.Pair,
	size decimal.Decimal,
	gas *blockchainDomain.GasEstimate,
) (*domain.Opportunity, error) {
	d.metrics.evaluations.Add(ctx, 1)

	snap, err := d.pricing.GetPriceSnapshot(ctx, pair, size)
	if err != nil {
		return nil, err
	}
	snap.BlockNumber = block.Number
	d.reporter.UpdatePrices(snap)

	spread := snap.Spread
	direction := domain.DirectionDEXToCEX
	cexPrice := snap.CEXBid.Rate.Rate()
	if spread.Direction == pricingDomain.SpreadCEXToDEX {
		direction = domain.DirectionCEXToDEX
		cexPrice = snap.CEXAsk.Rate.Rate()
	}
	dexPrice := snap.DEXQuote.Price.Rate()

	tradeValue := spread.CEXPrice.Mul(size)
	if d.sizer != nil && !d.config.StopLossPct.IsZero() {
		stop := spread.CEXPrice.Mul(decimal.NewFromInt(1).Sub(d.config.StopLossPct))
		limit := d.sizer.CalculatePositionSize(spread.CEXPrice, stop)
		if limit.IsPositive() && tradeValue.GreaterThan(limit) {
			d.metrics.riskCapped.Add(ctx, 1)
			d.logger.Debug(ctx, "trade exceeds risk-sized position",
				"pair", pair.String(), "size", size.String(),
				"value", tradeValue.StringFixed(2), "limit", limit.StringFixed(2))
			return nil, nil
		}
	}

	ethUSD, ok := d.ethUSD(pair, spread)
	if !ok {
		return nil, apperror.New(apperror.CodeEthPriceUnavailable,
			apperror.WithContext("cannot price gas for "+pair.String()))
	}
	gasCost := domain.NewGasCost(gas.GasLimit, gas.GasPrice.Wei(), ethUSD)
	profit := d.calculator.Calculate(spread, size, tradeValue, gasCost)

	return &domain.Opportunity{
		ID:              uuid.NewString(),
		BlockNumber:     block.Number,
		Timestamp:       time.Now(),
		Pair:            pair,
		Direction:       direction,
		TradeSize:       size,
		CEXPrice:        cexPrice,
		DEXPrice:        dexPrice,
		Spread:          spread,
		GasCost:         gasCost,
		Profit:          profit,
		DEXQuote:        snap.DEXQuote,
		ExecutionSteps:  domain.ExecutionPlan(direction, pair, size),
		RiskFactors:     domain.AssessRisks(spread.BasisPoints, profit, gasCost),
		RequiredCapital: tradeValue,
	}, nil
}

// ethUSD prefers the aggregated ETH/USDC mid and falls back to the pair's
// own CEX mid when the pair is ETH against a dollar stablecoin.
func (d *Detector) ethUSD(pair pricingDomain.Pair, spread pricingDomain.Spread) (decimal.Decimal, bool) {
	if d.refs != nil {
		if mid, ok := d.refs.MidPrice(ethUSDSymbol); ok && mid.IsPositive() {
			return mid, true
		}
	}
	switch pair.Base.Symbol() {
	case "ETH", "WETH":
	default:
		return decimal.Zero, false
	}
	switch pair.Quote.Symbol() {
	case "USDC", "USDT", "DAI":
		return spread.CEXPrice, spread.CEXPrice.IsPositive()
	}
	return decimal.Zero, false
}

// Stop gracefully shuts down the detector.
func (d *Detector) Stop() error {
	d.logger.Info(context.Background(), "stopping arbitrage detector", "found", d.Found())
	return d.reporter.Stop()
}
