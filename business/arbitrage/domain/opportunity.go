// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"time"

	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/shopspring/decimal"
)

// ExecutionStep represents a step in the arbitrage execution plan.
type ExecutionStep struct {
	Number      int
	Description string
}

// RiskFactor represents a risk factor for an arbitrage opportunity.
type RiskFactor struct {
	Name        string
	Description string
	Severity    string // "low", "medium", "high"
}

// Opportunity represents a detected arbitrage opportunity.
type Opportunity struct {
	ID              string
	BlockNumber     uint64
	Timestamp       time.Time
	Pair            pricingDomain.Pair
	Direction       Direction
	TradeSize       decimal.Decimal
	CEXPrice        decimal.Decimal
	DEXPrice        decimal.Decimal
	Spread          pricingDomain.Spread
	GasCost         *GasCost
	Profit          *ProfitResult
	DEXQuote        *pricingDomain.Quote
	ExecutionSteps  []ExecutionStep
	RiskFactors     []RiskFactor
	RequiredCapital decimal.Decimal
}

// IsProfitable returns true if this opportunity has positive net profit.
func (o *Opportunity) IsProfitable() bool {
	return o.Profit != nil && o.Profit.IsProfitable
}

// ExecutionPlan lists the legs of an opportunity in order.
func ExecutionPlan(dir Direction, pair pricingDomain.Pair, size decimal.Decimal) []ExecutionStep {
	base, quote := pair.Base.Symbol(), pair.Quote.Symbol()
	amount := size.String() + " " + base

	if dir == DirectionCEXToDEX {
		return []ExecutionStep{
			{Number: 1, Description: "Buy " + amount + " on Binance with " + quote},
			{Number: 2, Description: "Withdraw " + base + " to wallet"},
			{Number: 3, Description: "Swap " + amount + " for " + quote + " on Uniswap"},
		}
	}
	return []ExecutionStep{
		{Number: 1, Description: "Swap " + quote + " for " + amount + " on Uniswap"},
		{Number: 2, Description: "Deposit " + base + " to Binance"},
		{Number: 3, Description: "Sell " + amount + " for " + quote + " on Binance"},
	}
}

// AssessRisks flags the conditions that commonly erase a quoted spread.
func AssessRisks(spreadBps decimal.Decimal, profit *ProfitResult, gas *GasCost) []RiskFactor {
	var risks []RiskFactor

	if spreadBps.Abs().LessThan(decimal.NewFromInt(30)) {
		risks = append(risks, RiskFactor{
			Name:        "thin_spread",
			Description: "spread under 30 bps can close before both legs fill",
			Severity:    "medium",
		})
	}

	if profit != nil && gas != nil && profit.GrossProfit.IsPositive() {
		share := gas.TotalUSD.ToDecimal().Div(profit.GrossProfit.ToDecimal())
		if share.GreaterThan(decimal.RequireFromString("0.5")) {
			risks = append(risks, RiskFactor{
				Name:        "gas_heavy",
				Description: "gas consumes more than half of gross profit",
				Severity:    "high",
			})
		}
	}

	risks = append(risks, RiskFactor{
		Name:        "transfer_latency",
		Description: "funds move between venues between legs",
		Severity:    "medium",
	})
	return risks
}
