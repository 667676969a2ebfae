// Package ui provides the Bubble Tea TUI for the DEXTER platform.
package ui

import (
	"time"

	"github.com/fd1az/dexter/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/pkg/ui/components"
)

// OpportunityMsg is sent when an arbitrage opportunity is detected.
type OpportunityMsg struct {
	Opportunity *domain.Opportunity
}

// PriceUpdateMsg is sent when prices are updated.
type PriceUpdateMsg struct {
	Snapshot *pricingDomain.PriceSnapshot
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// BlockMsg is sent when a new block is received.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// GasPriceMsg is sent when gas price is updated.
type GasPriceMsg struct {
	GweiPrice float64
	BaseFee   float64 // gwei, of the last head; 0 when unknown
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// ScanMsg is sent when a price scan/analysis is performed.
type ScanMsg struct {
	Pair        string
	TradeSize   string
	CEXPrice    float64
	DEXPrice    float64
	SpreadBps   float64
	BlockNumber uint64
}

// StartupMsg reports the progress of one module's startup.
type StartupMsg struct {
	Step    string
	Status  StepStatus
	Message string
}

// CostBreakdownMsg is sent with cost analysis for display.
// All values are pre-calculated by the domain - UI should not calculate anything.
type CostBreakdownMsg struct {
	TradeSize     string
	TradeValueUSD float64
	GrossProfit   float64
	GasCostUSD    float64
	ExchangeFees  float64
	TotalCosts    float64
	NetProfit     float64
	IsProfitable  bool
}

// PlatformStatsMsg carries counters gathered from every loaded module.
type PlatformStatsMsg struct {
	Stats components.Stats
}

// VenueStatusMsg reports quote freshness per aggregator venue.
type VenueStatusMsg struct {
	Venues []components.VenueStatus
}

// PoolsMsg replaces the best pools ranking.
type PoolsMsg struct {
	Rows []components.PoolRow
}

// MEVAlertMsg is sent for each new MEV detection.
type MEVAlertMsg struct {
	Threat components.ThreatRow
}
