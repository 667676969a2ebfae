// Package domain contains the risk context's value objects and the pure
// risk math: VaR, performance ratios, drawdown, sizing and exit levels.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Limits bounds what the portfolio may take on. Fractions are of portfolio value.
type Limits struct {
	MaxPositionSize     decimal.Decimal
	MaxPortfolioRisk    decimal.Decimal
	MaxDailyLoss        decimal.Decimal
	MaxLeverage         decimal.Decimal
	StopLossPct         decimal.Decimal
	TakeProfitPct       decimal.Decimal
	MaxCorrelatedTrades int
	RiskPerTrade        decimal.Decimal
}

// DefaultLimits returns the conservative profile used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSize:     decimal.RequireFromString("0.1"),
		MaxPortfolioRisk:    decimal.RequireFromString("0.2"),
		MaxDailyLoss:        decimal.RequireFromString("0.05"),
		MaxLeverage:         decimal.NewFromInt(3),
		StopLossPct:         decimal.RequireFromString("0.02"),
		TakeProfitPct:       decimal.RequireFromString("0.04"),
		MaxCorrelatedTrades: 3,
		RiskPerTrade:        decimal.RequireFromString("0.01"),
	}
}

// Validate rejects limits that would make every order pass or fail.
func (l Limits) Validate() error {
	one := decimal.NewFromInt(1)
	for name, v := range map[string]decimal.Decimal{
		"max_position_size":  l.MaxPositionSize,
		"max_portfolio_risk": l.MaxPortfolioRisk,
		"max_daily_loss":     l.MaxDailyLoss,
		"stop_loss_pct":      l.StopLossPct,
		"risk_per_trade":     l.RiskPerTrade,
	} {
		if !v.IsPositive() || v.GreaterThan(one) {
			return fmt.Errorf("%s must be in (0, 1]: %s", name, v)
		}
	}
	if l.MaxCorrelatedTrades <= 0 {
		return fmt.Errorf("max_correlated_trades must be positive: %d", l.MaxCorrelatedTrades)
	}
	return nil
}
