package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/internal/asset"
)

// Side of a taker order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Price is an executable rate for a given size on one side of a venue.
type Price struct {
	Rate      asset.Price
	Size      asset.Amount
	Side      Side
	Source    string
	Timestamp time.Time
}

// NewPrice stamps the price with the current time.
func NewPrice(rate asset.Price, size asset.Amount, side Side, source string) Price {
	return Price{Rate: rate, Size: size, Side: side, Source: source, Timestamp: time.Now()}
}

// Quote is a swap quote from an on-chain pool.
type Quote struct {
	TokenIn     *asset.Asset
	TokenOut    *asset.Asset
	AmountIn    asset.Amount
	AmountOut   asset.Amount
	Price       asset.Price // out per in, decimals applied
	GasEstimate uint64
	FeeTier     int // hundredths of a bip
	Timestamp   time.Time
}

// NewQuote derives the effective price from the two amounts.
func NewQuote(tokenIn, tokenOut *asset.Asset, amountIn, amountOut asset.Amount, gasEstimate uint64, feeTier int) Quote {
	rate := decimal.Zero
	if !amountIn.IsZero() {
		rate = amountOut.ToDecimal().Div(amountIn.ToDecimal())
	}
	return Quote{
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		Price:       asset.NewPriceNow(tokenIn, tokenOut, rate),
		GasEstimate: gasEstimate,
		FeeTier:     feeTier,
		Timestamp:   time.Now(),
	}
}

// FeeRate is the pool fee as a fraction (3000 -> 0.003).
func (q Quote) FeeRate() decimal.Decimal {
	return decimal.New(int64(q.FeeTier), -6)
}

// PriceSnapshot lines up both venues for one pair at one block.
type PriceSnapshot struct {
	Pair        Pair
	CEXBid      *Price
	CEXAsk      *Price
	DEXQuote    *Quote
	Spread      Spread // DEX rate against CEX mid
	GasPrice    asset.Amount
	BlockNumber uint64
	Timestamp   time.Time
}
