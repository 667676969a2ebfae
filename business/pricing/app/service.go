// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/asset"
)

// PricingService coordinates price fetching from CEX and DEX providers.
type PricingService struct {
	cex CEXProvider
	dex DEXProvider
}

// NewPricingService creates a new PricingService with the given providers.
func NewPricingService(cex CEXProvider, dex DEXProvider) *PricingService {
	return &PricingService{
		cex: cex,
		dex: dex,
	}
}

// CEX exposes the orderbook provider for depth queries.
func (s *PricingService) CEX() CEXProvider {
	return s.cex
}

// GetPriceSnapshot retrieves current prices from both CEX and DEX for a trade
// of size base units and computes the CEX/DEX spread.
func (s *PricingService) GetPriceSnapshot(ctx context.Context, pair domain.Pair, size decimal.Decimal) (*domain.PriceSnapshot, error) {
	base, quote := dexToken(pair.Base), dexToken(pair.Quote)
	amountIn, err := asset.ParseDecimal(base, size.Round(int32(base.Decimals())))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidInput, "trade size "+size.String())
	}

	var (
		bid, ask *domain.Price
		quoteRes *domain.Quote
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.cex.GetEffectivePrice(gctx, pair, size, domain.SideSell)
		bid = p
		return err
	})
	g.Go(func() error {
		p, err := s.cex.GetEffectivePrice(gctx, pair, size, domain.SideBuy)
		ask = p
		return err
	})
	g.Go(func() error {
		q, err := s.dex.GetQuote(gctx, base.Address(), quote.Address(), amountIn.Raw())
		quoteRes = q
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cexMid := bid.Rate.Rate().Add(ask.Rate.Rate()).Div(decimal.NewFromInt(2))

	return &domain.PriceSnapshot{
		Pair:      pair,
		CEXBid:    bid,
		CEXAsk:    ask,
		DEXQuote:  quoteRes,
		Spread:    domain.CalculateSpread(cexMid, quoteRes.Price.Rate()),
		Timestamp: time.Now(),
	}, nil
}

// dexToken maps native ETH to WETH, the form pools trade it in.
func dexToken(a *asset.Asset) *asset.Asset {
	if a.IsNative() && a.ChainID() == asset.ChainIDEthereum {
		return asset.WETH
	}
	return a
}
