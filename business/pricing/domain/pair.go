// Package domain holds the pricing context's value types: pairs, books,
// quotes and spreads.
package domain

import (
	"fmt"

	"github.com/fd1az/dexter/internal/asset"
)

// Pair is a base/quote pair bound to registered assets.
type Pair struct {
	Base  *asset.Asset
	Quote *asset.Asset
}

// NewPair panics on a nil leg.
func NewPair(base, quote *asset.Asset) Pair {
	if base == nil || quote == nil {
		panic("pricing: nil asset in pair")
	}
	return Pair{Base: base, Quote: quote}
}

// String renders "BASE-QUOTE".
func (p Pair) String() string {
	return p.Base.Symbol() + "-" + p.Quote.Symbol()
}

// Market drops the asset binding, leaving the venue-level symbol pair.
func (p Pair) Market() MarketPair {
	return MarketPair{Base: p.Base.Symbol(), Quote: p.Quote.Symbol()}
}

// ResolvePair binds a "ETH-USDC" or "ETH/USDC" symbol to assets on chainID.
func ResolvePair(reg *asset.Registry, chainID uint64, s string) (Pair, error) {
	mp, err := ParseMarketPair(s)
	if err != nil {
		return Pair{}, err
	}
	legs := [2]*asset.Asset{}
	for i, sym := range []string{mp.Base, mp.Quote} {
		a, ok := reg.GetBySymbolAndChain(sym, chainID)
		if !ok {
			return Pair{}, fmt.Errorf("%w: unknown asset %s on chain %d", ErrInvalidMarketPair, sym, chainID)
		}
		legs[i] = a
	}
	return NewPair(legs[0], legs[1]), nil
}
