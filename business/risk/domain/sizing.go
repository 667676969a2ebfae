package domain

import "github.com/shopspring/decimal"

var (
	kellyFraction = decimal.RequireFromString("0.25")
	kellyCap      = decimal.RequireFromString("0.1")
	volCap        = decimal.RequireFromString("0.2")
)

// PositionSizer turns portfolio value and a sizing model into a notional.
type PositionSizer struct {
	PortfolioValue decimal.Decimal
}

// Kelly sizes with a quarter-Kelly fraction capped at 10% of the portfolio.
// b is avgWin/avgLoss; a non-positive avgLoss or avgWin sizes to zero.
func (s PositionSizer) Kelly(winRate, avgWin, avgLoss decimal.Decimal) decimal.Decimal {
	if !avgWin.IsPositive() || !avgLoss.IsPositive() {
		return decimal.Zero
	}
	b := avgWin.Div(avgLoss)
	q := decimal.NewFromInt(1).Sub(winRate)
	kelly := b.Mul(winRate).Sub(q).Div(b).Mul(kellyFraction)
	return s.PortfolioValue.Mul(clamp(kelly, decimal.Zero, kellyCap))
}

// FixedFractional commits a fixed fraction of the portfolio.
func (s PositionSizer) FixedFractional(fraction decimal.Decimal) decimal.Decimal {
	return s.PortfolioValue.Mul(fraction)
}

// VolatilityBased scales exposure by target/asset volatility, capped at 20%.
func (s PositionSizer) VolatilityBased(targetVol, assetVol decimal.Decimal) decimal.Decimal {
	if !assetVol.IsPositive() {
		return decimal.Zero
	}
	return s.PortfolioValue.Mul(decimal.Min(targetVol.Div(assetVol), volCap))
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Max(lo, decimal.Min(v, hi))
}
