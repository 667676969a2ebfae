// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/dexter/business/blockchain/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
)

// Reporter defines the interface for reporting arbitrage opportunities.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report sends an arbitrage opportunity to be displayed/logged.
	Report(opp *domain.Opportunity)

	// ReportScan receives every evaluated candidate, profitable or not.
	ReportScan(opp *domain.Opportunity)

	// UpdatePrices updates the current price display.
	UpdatePrices(prices *pricingDomain.PriceSnapshot)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// BlockSource delivers blocks and prices gas. Implemented by the blockchain service.
type BlockSource interface {
	SubscribeBlocks(ctx context.Context) (<-chan *blockchainDomain.Block, error)
	EstimateGasCost(ctx context.Context, gasLimit uint64) (*blockchainDomain.GasEstimate, error)
}

// SnapshotSource returns CEX/DEX prices for a trade size. Implemented by the pricing service.
type SnapshotSource interface {
	GetPriceSnapshot(ctx context.Context, pair pricingDomain.Pair, size decimal.Decimal) (*pricingDomain.PriceSnapshot, error)
}

// PositionSizer caps trade value from entry and stop prices. Implemented by the risk manager.
type PositionSizer interface {
	CalculatePositionSize(entry, stop decimal.Decimal) decimal.Decimal
}

// ReferencePrices supplies cross-venue mid prices by "BASE/QUOTE" symbol.
// Implemented by the pricing aggregator.
type ReferencePrices interface {
	MidPrice(pair string) (decimal.Decimal, bool)
}
