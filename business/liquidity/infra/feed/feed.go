// Package feed turns DEX venue quotes from the price aggregator into pools.
package feed

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/liquidity/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
)

// PriceLister returns the latest venue prices for a pair.
type PriceLister interface {
	Prices(pair string) []pricingDomain.ExchangePrice
}

// Feed reports one pool per DEX venue that quotes a tracked pair with
// known liquidity.
type Feed struct {
	prices PriceLister
	pairs  []string
}

// New creates a Feed over pairs such as "SOL/USDC".
func New(prices PriceLister, pairs []string) *Feed {
	return &Feed{prices: prices, pairs: pairs}
}

// Pools implements app.PoolSource.
func (f *Feed) Pools(ctx context.Context) ([]domain.Pool, error) {
	var out []domain.Pool
	for _, pair := range f.pairs {
		for _, p := range f.prices.Prices(pair) {
			if pool, ok := ToPool(p); ok {
				out = append(out, pool)
			}
		}
	}
	return out, nil
}

// ToPool maps a DEX quote to a pool with its TVL split evenly between the
// two tokens. CEX quotes and quotes without liquidity are skipped.
func ToPool(p pricingDomain.ExchangePrice) (domain.Pool, bool) {
	if p.Type != pricingDomain.ExchangeDEX || !p.Liquidity.IsPositive() || !p.Price.IsPositive() {
		return domain.Pool{}, false
	}
	half := p.Liquidity.Div(decimal.NewFromInt(2))
	return domain.Pool{
		ID:          p.Exchange + ":" + p.Symbol,
		Pair:        p.Symbol,
		Protocol:    p.Exchange,
		TokenA:      p.Pair.Base,
		TokenB:      p.Pair.Quote,
		ReserveA:    half.Div(p.Price),
		ReserveB:    half,
		Price:       p.Price,
		FeeTier:     p.TakerFee,
		TVL:         p.Liquidity,
		Volume24h:   p.Volume24h,
		APY:         domain.FeeAPY(p.TakerFee, p.Volume24h, p.Liquidity),
		TotalShares: p.Liquidity,
		UpdatedAt:   p.Timestamp,
	}, true
}
