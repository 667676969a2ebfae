// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/asset"
)

// FeeSchedule holds the taker fee rate of each leg, charged on notional.
type FeeSchedule struct {
	DEX decimal.Decimal
	CEX decimal.Decimal
}

// DefaultFees is a 0.3% Uniswap pool plus a 0.1% Binance taker fee.
var DefaultFees = FeeSchedule{
	DEX: decimal.RequireFromString("0.003"),
	CEX: decimal.RequireFromString("0.001"),
}

// Rate is the combined rate of both legs.
func (f FeeSchedule) Rate() decimal.Decimal {
	return f.DEX.Add(f.CEX)
}

// ProfitCalculator prices a CEX/DEX round trip and applies the profit
// thresholds.
type ProfitCalculator struct {
	minProfitBps decimal.Decimal
	minProfitUSD decimal.Decimal
	fees         FeeSchedule
}

// CalculatorOption configures a ProfitCalculator.
type CalculatorOption func(*ProfitCalculator)

// WithFees overrides DefaultFees.
func WithFees(fees FeeSchedule) CalculatorOption {
	return func(c *ProfitCalculator) { c.fees = fees }
}

// NewProfitCalculator creates a calculator. An opportunity is profitable
// only when its spread reaches minProfitBps and its net reaches minProfitUSD.
func NewProfitCalculator(minProfitBps, minProfitUSD decimal.Decimal, opts ...CalculatorOption) *ProfitCalculator {
	c := &ProfitCalculator{
		minProfitBps: minProfitBps,
		minProfitUSD: minProfitUSD,
		fees:         DefaultFees,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fees returns the schedule in use.
func (c *ProfitCalculator) Fees() FeeSchedule { return c.fees }

// Calculate nets gross spread capture against both fee legs and gas.
// Gross is |spread| x size regardless of direction. A nil gasCost is free.
func (c *ProfitCalculator) Calculate(
	spread pricingDomain.Spread,
	tradeSize decimal.Decimal,
	tradeValueUSD decimal.Decimal,
	gasCost *domain.GasCost,
) *domain.ProfitResult {
	gross := spread.Capture(tradeSize)
	fees := tradeValueUSD.Mul(c.fees.Rate())

	gasUSD := decimal.Zero
	if gasCost != nil {
		gasUSD = gasCost.TotalUSD.ToDecimal()
	}
	result := domain.NewProfitResultWithFees(gross, gasUSD, fees, asset.USD)
	if result.IsProfitable {
		result.IsProfitable = spread.Clears(c.minProfitBps) &&
			result.NetProfitRaw.GreaterThanOrEqual(c.minProfitUSD)
	}
	return result
}
