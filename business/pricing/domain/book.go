package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/internal/asset"
)

// OrderbookLevel is one resting price with the base amount behind it.
type OrderbookLevel struct {
	Price  decimal.Decimal
	Amount asset.Amount
}

// Orderbook is a point-in-time book. Bids descend and asks ascend.
type Orderbook struct {
	Pair      Pair
	Bids      []OrderbookLevel
	Asks      []OrderbookLevel
	Timestamp time.Time
}

// BestBid is the highest bid, or nil for an empty side.
func (o *Orderbook) BestBid() *OrderbookLevel {
	if len(o.Bids) == 0 {
		return nil
	}
	return &o.Bids[0]
}

// BestAsk is the lowest ask, or nil for an empty side.
func (o *Orderbook) BestAsk() *OrderbookLevel {
	if len(o.Asks) == 0 {
		return nil
	}
	return &o.Asks[0]
}

// MidPrice averages the touch, or is zero when either side is empty.
func (o *Orderbook) MidPrice() decimal.Decimal {
	bid, ask := o.BestBid(), o.BestAsk()
	if bid == nil || ask == nil {
		return decimal.Zero
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2))
}

// Fill sweeps the asks for a buy or the bids for a sell until size base
// units are covered. It returns the volume-weighted price and how much was
// filled; filled < size means the book ran dry.
func (o *Orderbook) Fill(side Side, size decimal.Decimal) (avg, filled decimal.Decimal) {
	book := o.Bids
	if side == SideBuy {
		book = o.Asks
	}
	notional := decimal.Zero
	for _, l := range book {
		left := size.Sub(filled)
		if !left.IsPositive() {
			break
		}
		take := decimal.Min(left, l.Amount.ToDecimal())
		notional = notional.Add(take.Mul(l.Price))
		filled = filled.Add(take)
	}
	if filled.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	return notional.Div(filled), filled
}

// DepthLevel is a book level with the running base total.
type DepthLevel struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
	Total  decimal.Decimal `json:"total"`
}

// MarketDepth is the JSON view of the top of a book.
type MarketDepth struct {
	Pair      string          `json:"pair"`
	Exchange  string          `json:"exchange"`
	Bids      []DepthLevel    `json:"bids"`
	Asks      []DepthLevel    `json:"asks"`
	Mid       decimal.Decimal `json:"mid"`
	SpreadBps decimal.Decimal `json:"spread_bps"`
	Timestamp time.Time       `json:"timestamp"`
}

func cumulative(levels []OrderbookLevel, n int) []DepthLevel {
	n = min(n, len(levels))
	out := make([]DepthLevel, n)
	running := decimal.Zero
	for i, l := range levels[:n] {
		amt := l.Amount.ToDecimal()
		running = running.Add(amt)
		out[i] = DepthLevel{Price: l.Price, Amount: amt, Total: running}
	}
	return out
}

// Depth keeps the first levels of each side for exchange.
func (o *Orderbook) Depth(exchange string, levels int) MarketDepth {
	md := MarketDepth{
		Exchange:  exchange,
		Bids:      cumulative(o.Bids, levels),
		Asks:      cumulative(o.Asks, levels),
		Mid:       o.MidPrice(),
		SpreadBps: decimal.Zero,
		Timestamp: o.Timestamp,
	}
	if o.Pair.Base != nil && o.Pair.Quote != nil {
		md.Pair = o.Pair.Market().String()
	}
	if bid, ask := o.BestBid(), o.BestAsk(); bid != nil && ask != nil && md.Mid.IsPositive() {
		md.SpreadBps = ask.Price.Sub(bid.Price).Div(md.Mid).Mul(bpsPerUnit)
	}
	return md
}
