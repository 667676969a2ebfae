package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeType classifies a price venue.
type ExchangeType string

const (
	ExchangeCEX        ExchangeType = "CEX"
	ExchangeDEX        ExchangeType = "DEX"
	ExchangeAggregator ExchangeType = "AGGREGATOR"
)

// ErrInvalidMarketPair is returned when a pair symbol is not BASE/QUOTE.
var ErrInvalidMarketPair = errors.New("pricing: invalid market pair")

// MarketPair is a symbol-level trading pair as venues see it (e.g. ETH/USDC).
type MarketPair struct {
	Base  string
	Quote string
}

// ParseMarketPair accepts "ETH/USDC", "ETH-USDC" or "eth_usdc".
func ParseMarketPair(s string) (MarketPair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, sep := range []string{"/", "-", "_"} {
		if base, quote, ok := strings.Cut(s, sep); ok && base != "" && quote != "" {
			return MarketPair{Base: base, Quote: quote}, nil
		}
	}
	return MarketPair{}, ErrInvalidMarketPair
}

// MustParseMarketPair panics on invalid input. Intended for constants and tests.
func MustParseMarketPair(s string) MarketPair {
	p, err := ParseMarketPair(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p MarketPair) String() string {
	return p.Base + "/" + p.Quote
}

// Concat returns the pair without separator (ETHUSDC), as CEX symbols are spelled.
func (p MarketPair) Concat() string {
	return p.Base + p.Quote
}

// ExchangePrice is one venue's view of a pair.
type ExchangePrice struct {
	Exchange  string          `json:"exchange"`
	Type      ExchangeType    `json:"type"`
	Pair      MarketPair      `json:"-"`
	Symbol    string          `json:"pair"`
	Price     decimal.Decimal `json:"price"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	Liquidity decimal.Decimal `json:"liquidity"`
	Tradeable bool            `json:"tradeable"`
	MinOrder  decimal.Decimal `json:"min_order"`
	MakerFee  decimal.Decimal `json:"maker_fee"`
	TakerFee  decimal.Decimal `json:"taker_fee"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewExchangePrice builds a price with bid and ask collapsed onto last when
// the venue only reports a single quote.
func NewExchangePrice(exchange string, typ ExchangeType, pair MarketPair, last decimal.Decimal) ExchangePrice {
	return ExchangePrice{
		Exchange:  exchange,
		Type:      typ,
		Pair:      pair,
		Symbol:    pair.String(),
		Price:     last,
		Bid:       last,
		Ask:       last,
		Tradeable: last.IsPositive(),
		Timestamp: time.Now(),
	}
}

// EffectiveAsk is the ask, falling back to the last price.
func (p ExchangePrice) EffectiveAsk() decimal.Decimal {
	if p.Ask.IsPositive() {
		return p.Ask
	}
	return p.Price
}

// EffectiveBid is the bid, falling back to the last price.
func (p ExchangePrice) EffectiveBid() decimal.Decimal {
	if p.Bid.IsPositive() {
		return p.Bid
	}
	return p.Price
}

// CrossVenueOpportunity is a buy-low/sell-high pair of venues for one market.
type CrossVenueOpportunity struct {
	ID              string          `json:"id"`
	Pair            string          `json:"pair"`
	BuyExchange     string          `json:"buy_exchange"`
	SellExchange    string          `json:"sell_exchange"`
	BuyPrice        decimal.Decimal `json:"buy_price"`
	SellPrice       decimal.Decimal `json:"sell_price"`
	GrossProfitPct  decimal.Decimal `json:"gross_profit_pct"`
	NetProfitPct    decimal.Decimal `json:"net_profit_pct"`
	ProfitUSD       decimal.Decimal `json:"profit_usd"`
	RequiredCapital decimal.Decimal `json:"required_capital"`
	Confidence      decimal.Decimal `json:"confidence"`
	DetectedAt      time.Time       `json:"detected_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
	Path            []string        `json:"path"`
}

// Expired reports whether the opportunity window has passed.
func (o CrossVenueOpportunity) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
