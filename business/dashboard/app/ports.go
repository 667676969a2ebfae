// Package app contains the REST dashboard: read ports onto the other
// contexts, the /api/v1 handlers and the HTTP server.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	crosschainDomain "github.com/fd1az/dexter/business/crosschain/domain"
	flashloanDomain "github.com/fd1az/dexter/business/flashloan/domain"
	liquidityDomain "github.com/fd1az/dexter/business/liquidity/domain"
	marketApp "github.com/fd1az/dexter/business/market/app"
	marketDomain "github.com/fd1az/dexter/business/market/domain"
	mevDomain "github.com/fd1az/dexter/business/mev/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	riskDomain "github.com/fd1az/dexter/business/risk/domain"
	streamingDomain "github.com/fd1az/dexter/business/streaming/domain"
)

// OpportunitySource is implemented by the pricing aggregator.
type OpportunitySource interface {
	TopOpportunities(n int) []pricingDomain.CrossVenueOpportunity
	Prices(pair string) []pricingDomain.ExchangePrice
}

// FlashLoanSimulator is implemented by the flash-loan simulator.
type FlashLoanSimulator interface {
	Simulate(ctx context.Context, req flashloanDomain.Request) (*flashloanDomain.SimulationResult, error)
	Stats() flashloanDomain.Stats
}

// DepthSource returns the orderbook summary for a pair such as "ETH-USDC".
type DepthSource interface {
	Depth(ctx context.Context, pair string) (pricingDomain.MarketDepth, error)
}

// ThreatMonitor is implemented by the MEV detector.
type ThreatMonitor interface {
	Analyze(ctx context.Context, tx mevDomain.PendingTx) (*mevDomain.Detection, bool)
	Recent(n int) []mevDomain.Detection
	Stats() mevDomain.Stats
}

// IndicatorSource is implemented by the market store.
type IndicatorSource interface {
	Indicators(symbol string, tf marketDomain.Timeframe) (marketDomain.Indicators, error)
	Features(symbol string, tf marketDomain.Timeframe) (marketDomain.Features, error)
}

// Backtester is implemented by the market store.
type Backtester interface {
	Backtest(cfg marketApp.BacktestConfig, strategy marketApp.Strategy) (*marketApp.BacktestResult, error)
}

// RouteFinder is implemented by the cross-chain service.
type RouteFinder interface {
	FindOpportunities(ctx context.Context, token string, amount, minProfitPct decimal.Decimal) []crosschainDomain.Route
	Prices(token string) []crosschainDomain.TokenPrice
}

// PoolManager is implemented by the liquidity manager.
type PoolManager interface {
	BestPools(n int) []liquidityDomain.Pool
	Analytics() liquidityDomain.Analytics
	AddLiquidity(ctx context.Context, poolID, owner string, amountUSD decimal.Decimal) (liquidityDomain.Position, error)
	RemoveLiquidity(ctx context.Context, positionID string, fraction decimal.Decimal) (decimal.Decimal, error)
}

// RiskReporter is implemented by the risk manager.
type RiskReporter interface {
	PortfolioRisk() riskDomain.PortfolioRisk
}

// StreamStats is implemented by the streaming hub.
type StreamStats interface {
	Stats() streamingDomain.Stats
}

// Deps wires the handler to whichever contexts are loaded. Any field may be nil.
type Deps struct {
	Opportunities OpportunitySource
	FlashLoans    FlashLoanSimulator
	Depth         DepthSource
	Threats       ThreatMonitor
	Indicators    IndicatorSource
	Backtests     Backtester
	Routes        RouteFinder
	Pools         PoolManager
	Risk          RiskReporter
	Stream        StreamStats
}

// Defaults fill query parameters the caller omits.
type Defaults struct {
	TopN               int
	CrossChainToken    string
	CrossChainAmount   decimal.Decimal
	CrossChainMinPct   decimal.Decimal
	IndicatorTimeframe marketDomain.Timeframe
}
