package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	tracerName = "pricing.aggregator"
	meterName  = "pricing.aggregator"

	// Stream channels and message types the aggregator emits.
	ChannelPrices          = "prices"
	ChannelOpportunities   = "opportunities"
	MsgPriceUpdate         = "price_update"
	MsgOpportunityUpdate   = "opportunity_update"
	defaultOpportunityTTL  = 30 * time.Second
	defaultAggregatorEvery = 5 * time.Second
)

var (
	hundred         = decimal.NewFromInt(100)
	defaultNotional = decimal.NewFromInt(1000)
	liquidityNorm   = decimal.NewFromInt(1_000_000)
	volumeNorm      = decimal.NewFromInt(10_000_000)
)

// AggregatorConfig tunes detection.
type AggregatorConfig struct {
	Pairs        []domain.MarketPair
	Interval     time.Duration
	MinProfitPct decimal.Decimal
	TopN         int

	// Notional is the trade size used for ProfitUSD and RequiredCapital.
	Notional decimal.Decimal
	TTL      time.Duration
}

type aggregatorMetrics struct {
	refreshes     metric.Int64Counter
	sourceErrors  metric.Int64Counter
	opportunities metric.Int64Gauge
}

// Aggregator polls every venue and looks for buy-low/sell-high pairs across them.
type Aggregator struct {
	cfg     AggregatorConfig
	sources []VenuePriceSource
	logger  logger.LoggerInterface

	pubMu     sync.RWMutex
	publisher Publisher

	mu            sync.RWMutex
	prices        map[string][]domain.ExchangePrice
	opportunities []domain.CrossVenueOpportunity
	lastRefresh   time.Time

	now     func() time.Time
	tracer  trace.Tracer
	metrics aggregatorMetrics
}

// NewAggregator creates an aggregator over sources.
func NewAggregator(cfg AggregatorConfig, sources []VenuePriceSource, log logger.LoggerInterface) *Aggregator {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultAggregatorEvery
	}
	if cfg.Notional.IsZero() {
		cfg.Notional = defaultNotional
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultOpportunityTTL
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}

	a := &Aggregator{
		cfg:     cfg,
		sources: sources,
		logger:  log,
		prices:  make(map[string][]domain.ExchangePrice),
		now:     time.Now,
		tracer:  otel.Tracer(tracerName),
	}
	a.initMetrics()
	return a
}

func (a *Aggregator) initMetrics() {
	meter := otel.Meter(meterName)

	a.metrics.refreshes, _ = meter.Int64Counter("aggregator_refreshes_total",
		metric.WithDescription("Completed venue refresh rounds"))
	a.metrics.sourceErrors, _ = meter.Int64Counter("aggregator_source_errors_total",
		metric.WithDescription("Venue fetch failures"))
	a.metrics.opportunities, _ = meter.Int64Gauge("aggregator_opportunities",
		metric.WithDescription("Live cross-venue opportunities"))
}

// SetPublisher attaches the stream fan-out. Safe to call while running.
func (a *Aggregator) SetPublisher(p Publisher) {
	a.pubMu.Lock()
	a.publisher = p
	a.pubMu.Unlock()
}

// Sources returns the names of the configured venues.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

// Refresh polls all venues concurrently and recomputes opportunities. A
// failing venue is logged and skipped.
func (a *Aggregator) Refresh(ctx context.Context) error {
	ctx, span := a.tracer.Start(ctx, "aggregator.refresh",
		trace.WithAttributes(attribute.Int("sources", len(a.sources))))
	defer span.End()

	results := make([][]domain.ExchangePrice, len(a.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			prices, err := src.GetPrices(gctx, a.cfg.Pairs)
			if err != nil {
				a.metrics.sourceErrors.Add(gctx, 1, metric.WithAttributes(attribute.String("venue", src.Name())))
				a.logger.Warn(gctx, "venue refresh failed", "venue", src.Name(), "error", err)
				return nil
			}
			results[i] = prices
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	byPair := make(map[string][]domain.ExchangePrice)
	total := 0
	for _, prices := range results {
		for _, p := range prices {
			if !p.Tradeable {
				continue
			}
			byPair[p.Symbol] = append(byPair[p.Symbol], p)
			total++
		}
	}

	now := a.now()
	var opps []domain.CrossVenueOpportunity
	for _, prices := range byPair {
		opps = append(opps, DetectOpportunities(prices, a.cfg.MinProfitPct, a.cfg.Notional, now, a.cfg.TTL)...)
	}
	sortByNetProfit(opps)

	a.mu.Lock()
	a.prices = byPair
	a.opportunities = opps
	a.lastRefresh = now
	a.mu.Unlock()

	a.metrics.refreshes.Add(ctx, 1)
	a.metrics.opportunities.Record(ctx, int64(len(opps)))
	span.SetAttributes(attribute.Int("prices", total), attribute.Int("opportunities", len(opps)))

	if total == 0 {
		return apperror.New(apperror.CodeAggregatorNoPrices,
			apperror.WithContext(fmt.Sprintf("%d sources", len(a.sources))))
	}
	return nil
}

// Prices returns the latest venue prices for pair (any accepted spelling).
func (a *Aggregator) Prices(pair string) []domain.ExchangePrice {
	mp, err := domain.ParseMarketPair(pair)
	if err != nil {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.ExchangePrice, len(a.prices[mp.String()]))
	copy(out, a.prices[mp.String()])
	return out
}

// MidPrice averages the last price across venues quoting pair.
func (a *Aggregator) MidPrice(pair string) (decimal.Decimal, bool) {
	prices := a.Prices(pair)
	sum := decimal.Zero
	var n int64
	for _, p := range prices {
		if p.Price.IsPositive() {
			sum = sum.Add(p.Price)
			n++
		}
	}
	if n == 0 {
		return decimal.Zero, false
	}
	return sum.Div(decimal.NewFromInt(n)), true
}

// DetectOpportunities re-runs detection on the stored prices for pair.
func (a *Aggregator) DetectOpportunities(pair string) []domain.CrossVenueOpportunity {
	opps := DetectOpportunities(a.Prices(pair), a.cfg.MinProfitPct, a.cfg.Notional, a.now(), a.cfg.TTL)
	sortByNetProfit(opps)
	return opps
}

// TopOpportunities returns up to n unexpired opportunities, best net profit first.
func (a *Aggregator) TopOpportunities(n int) []domain.CrossVenueOpportunity {
	if n <= 0 {
		n = a.cfg.TopN
	}
	now := a.now()

	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.CrossVenueOpportunity, 0, n)
	for _, o := range a.opportunities {
		if o.Expired(now) {
			continue
		}
		out = append(out, o)
		if len(out) == n {
			break
		}
	}
	return out
}

// LastRefresh reports when prices were last replaced.
func (a *Aggregator) LastRefresh() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastRefresh
}

// Run refreshes every Interval and publishes results until ctx is done.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := a.Refresh(ctx); err != nil {
			a.logger.Debug(ctx, "aggregator refresh", "error", err)
		} else {
			a.publish(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *Aggregator) publish(ctx context.Context) {
	a.pubMu.RLock()
	pub := a.publisher
	a.pubMu.RUnlock()
	if pub == nil {
		return
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, prices := range a.prices {
		for _, p := range prices {
			pub.Publish(ctx, ChannelPrices, MsgPriceUpdate, p)
		}
	}
	for _, o := range a.opportunities {
		pub.Publish(ctx, ChannelOpportunities, MsgOpportunityUpdate, o)
	}
}

// DetectOpportunities finds every venue pair where buying at one ask and
// selling at another's bid clears minProfitPct after taker fees.
func DetectOpportunities(prices []domain.ExchangePrice, minProfitPct, notional decimal.Decimal, now time.Time, ttl time.Duration) []domain.CrossVenueOpportunity {
	sorted := make([]domain.ExchangePrice, len(prices))
	copy(sorted, prices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveAsk().LessThan(sorted[j].EffectiveAsk())
	})

	var out []domain.CrossVenueOpportunity
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			buy, sell := sorted[i], sorted[j]
			buyPrice, sellPrice := buy.EffectiveAsk(), sell.EffectiveBid()
			if !buyPrice.IsPositive() || !sellPrice.GreaterThan(buyPrice) {
				continue
			}

			gross := sellPrice.Sub(buyPrice).Div(buyPrice).Mul(hundred).Round(2)
			fees := buyPrice.Mul(buy.TakerFee).Add(sellPrice.Mul(sell.TakerFee))
			net := gross.Sub(fees.Div(buyPrice).Mul(hundred))
			if !net.GreaterThan(minProfitPct) {
				continue
			}

			out = append(out, domain.CrossVenueOpportunity{
				ID:              uuid.NewString(),
				Pair:            buy.Symbol,
				BuyExchange:     buy.Exchange,
				SellExchange:    sell.Exchange,
				BuyPrice:        buyPrice,
				SellPrice:       sellPrice,
				GrossProfitPct:  gross,
				NetProfitPct:    net,
				ProfitUSD:       sellPrice.Sub(buyPrice).Mul(notional),
				RequiredCapital: buyPrice.Mul(notional),
				Confidence:      Confidence(buy, sell),
				DetectedAt:      now,
				ExpiresAt:       now.Add(ttl),
				Path: []string{
					fmt.Sprintf("Buy on %s at %s", buy.Exchange, buyPrice),
					fmt.Sprintf("Transfer to %s", sell.Exchange),
					fmt.Sprintf("Sell on %s at %s", sell.Exchange, sellPrice),
				},
			})
		}
	}
	return out
}

// Confidence scores a venue pair 0-100 from the thinner side's liquidity and
// volume plus a venue-type prior.
func Confidence(buy, sell domain.ExchangePrice) decimal.Decimal {
	liq := decimal.Min(buy.Liquidity, sell.Liquidity).Div(liquidityNorm)
	liq = decimal.Min(liq, decimal.NewFromInt(1))

	vol := decimal.Min(buy.Volume24h, sell.Volume24h).Div(volumeNorm)
	vol = decimal.Min(vol, decimal.NewFromInt(1))

	var typeScore decimal.Decimal
	switch {
	case buy.Type == domain.ExchangeCEX && sell.Type == domain.ExchangeCEX:
		typeScore = decimal.RequireFromString("0.9")
	case buy.Type == domain.ExchangeDEX && sell.Type == domain.ExchangeDEX:
		typeScore = decimal.RequireFromString("0.8")
	default:
		typeScore = decimal.RequireFromString("0.7")
	}

	score := liq.Mul(decimal.RequireFromString("0.4")).
		Add(vol.Mul(decimal.RequireFromString("0.3"))).
		Add(typeScore.Mul(decimal.RequireFromString("0.3")))
	return score.Mul(hundred)
}

func sortByNetProfit(opps []domain.CrossVenueOpportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].NetProfitPct.GreaterThan(opps[j].NetProfitPct)
	})
}
