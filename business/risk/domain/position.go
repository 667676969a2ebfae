package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Correlation groups. Symbols outside a group form their own.
const (
	GroupCryptoMajor = "CRYPTO_MAJOR"
	GroupCryptoAlt   = "CRYPTO_ALT"
)

var (
	dailyVolatility = decimal.RequireFromString("0.02")
	z95             = decimal.RequireFromString("1.645")
)

// CorrelationGroup buckets a symbol with the assets that move with it.
func CorrelationGroup(symbol string) string {
	s := strings.ToUpper(symbol)
	switch {
	case strings.Contains(s, "BTC"), strings.Contains(s, "ETH"):
		return GroupCryptoMajor
	case strings.Contains(s, "SOL"), strings.Contains(s, "AVAX"):
		return GroupCryptoAlt
	default:
		return s
	}
}

// Order is a proposed trade submitted for validation.
type Order struct {
	Symbol string
	Size   decimal.Decimal // base units
	Price  decimal.Decimal // quote per base
}

// Value returns the notional in quote currency.
func (o Order) Value() decimal.Decimal {
	return o.Size.Mul(o.Price)
}

// Position is an open exposure tracked by the risk manager.
type Position struct {
	Symbol           string          `json:"symbol"`
	Size             decimal.Decimal `json:"size"`
	EntryPrice       decimal.Decimal `json:"entry_price"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	RiskAmount       decimal.Decimal `json:"risk_amount"`
	VaR95            decimal.Decimal `json:"var_95"`
	StopLoss         decimal.Decimal `json:"stop_loss"`
	TakeProfit       decimal.Decimal `json:"take_profit"`
	CorrelationGroup string          `json:"correlation_group"`
	OpenedAt         time.Time       `json:"opened_at"`
}

// NewPosition opens a position at entry with the given stop percentage.
// Zero stop or take-profit levels mean none is set.
func NewPosition(symbol string, size, entry, stopLossPct, stop, target decimal.Decimal, now time.Time) *Position {
	return &Position{
		Symbol:           symbol,
		Size:             size,
		EntryPrice:       entry,
		CurrentPrice:     entry,
		UnrealizedPnL:    decimal.Zero,
		RiskAmount:       size.Mul(entry).Mul(stopLossPct),
		VaR95:            PositionVaR(size, entry),
		StopLoss:         stop,
		TakeProfit:       target,
		CorrelationGroup: CorrelationGroup(symbol),
		OpenedAt:         now,
	}
}

// Mark revalues the position at price.
func (p *Position) Mark(price decimal.Decimal) {
	p.CurrentPrice = price
	p.UnrealizedPnL = price.Sub(p.EntryPrice).Mul(p.Size)
	p.VaR95 = PositionVaR(p.Size, price)
}

// StopHit reports whether the mark is at or below the stop.
func (p *Position) StopHit() bool {
	return p.StopLoss.IsPositive() && p.CurrentPrice.LessThanOrEqual(p.StopLoss)
}

// TargetHit reports whether the mark is at or above the take-profit.
func (p *Position) TargetHit() bool {
	return p.TakeProfit.IsPositive() && p.CurrentPrice.GreaterThanOrEqual(p.TakeProfit)
}

// PositionVaR is the one-day 95% VaR at a flat 2% daily volatility.
func PositionVaR(size, price decimal.Decimal) decimal.Decimal {
	return size.Mul(price).Mul(dailyVolatility).Mul(z95)
}
