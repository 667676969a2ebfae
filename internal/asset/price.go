package asset

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// invertPrecision bounds the digits kept when inverting a rate.
const invertPrecision = 18

// Price is how many quote units one base unit is worth at a point in time.
type Price struct {
	rate  decimal.Decimal
	base  *Asset
	quote *Asset
	at    time.Time
}

// NewPrice panics on nil assets or a negative rate.
func NewPrice(base, quote *Asset, rate decimal.Decimal, at time.Time) Price {
	if base == nil || quote == nil {
		panic(ErrNilAsset)
	}
	if rate.IsNegative() {
		panic("asset: negative price")
	}
	return Price{rate: rate, base: base, quote: quote, at: at}
}

// NewPriceNow stamps the price with the current time.
func NewPriceNow(base, quote *Asset, rate decimal.Decimal) Price {
	return NewPrice(base, quote, rate, time.Now())
}

func (p Price) Rate() decimal.Decimal { return p.rate }
func (p Price) Base() *Asset          { return p.base }
func (p Price) Quote() *Asset         { return p.quote }
func (p Price) Timestamp() time.Time  { return p.at }
func (p Price) IsZero() bool          { return p.rate.IsZero() }

// Pair renders "ETH/USDC".
func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "???/???"
	}
	return p.base.Symbol() + "/" + p.quote.Symbol()
}

// Invert flips base and quote. A zero price stays zero.
func (p Price) Invert() Price {
	inv := decimal.Zero
	if !p.rate.IsZero() {
		inv = decimal.NewFromInt(1).DivRound(p.rate, invertPrecision)
	}
	return Price{rate: inv, base: p.quote, quote: p.base, at: p.at}
}

// Convert prices an amount of the base asset in the quote asset, truncated
// to the quote's precision.
func (p Price) Convert(amount Amount) (Amount, error) {
	if amount.Asset() == nil {
		return Amount{}, ErrNilAsset
	}
	if !amount.Asset().Equals(p.base) {
		return Amount{}, fmt.Errorf("%w: price is for %s, amount is %s", ErrAssetMismatch, p.base, amount.Asset())
	}
	value := amount.ToDecimal().Mul(p.rate).Truncate(int32(p.quote.Decimals()))
	return ParseDecimal(p.quote, value)
}

func (p Price) String() string {
	return p.rate.String() + " " + p.Pair()
}
