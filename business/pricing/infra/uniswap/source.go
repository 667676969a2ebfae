package uniswap

import (
	"context"
	"math/big"

	"github.com/fd1az/dexter/business/pricing/app"
	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/asset"
)

var _ app.VenuePriceSource = (*PriceSource)(nil)

// PriceSource quotes one unit of the base token through the QuoterV2 so the
// on-chain pool price sits alongside the REST venues.
type PriceSource struct {
	provider *Provider
}

// NewPriceSource wraps provider.
func NewPriceSource(provider *Provider) *PriceSource {
	return &PriceSource{provider: provider}
}

func (s *PriceSource) Name() string              { return "uniswap" }
func (s *PriceSource) Type() domain.ExchangeType { return domain.ExchangeDEX }

// GetPrices quotes pairs whose tokens are registered on mainnet.
func (s *PriceSource) GetPrices(ctx context.Context, pairs []domain.MarketPair) ([]domain.ExchangePrice, error) {
	out := make([]domain.ExchangePrice, 0, len(pairs))
	for _, pair := range pairs {
		p, err := s.GetPrice(ctx, pair)
		if err != nil {
			s.provider.logger.Debug(ctx, "uniswap pair skipped", "pair", pair.String(), "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPrice quotes a single pair.
func (s *PriceSource) GetPrice(ctx context.Context, pair domain.MarketPair) (domain.ExchangePrice, error) {
	base, ok := s.token(pair.Base)
	if !ok {
		return domain.ExchangePrice{}, apperror.NotFound(apperror.CodeVenuePairNotFound, "uniswap "+pair.String())
	}
	quote, ok := s.token(pair.Quote)
	if !ok {
		return domain.ExchangePrice{}, apperror.NotFound(apperror.CodeVenuePairNotFound, "uniswap "+pair.String())
	}

	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(base.Decimals())), nil)
	q, err := s.provider.GetQuote(ctx, base.Address(), quote.Address(), one)
	if err != nil {
		return domain.ExchangePrice{}, err
	}

	p := domain.NewExchangePrice("uniswap", domain.ExchangeDEX, pair, q.Price.Rate())
	p.MakerFee = q.FeeRate()
	p.TakerFee = p.MakerFee
	return p, nil
}

// token resolves a symbol to its ERC20. Native ETH trades as WETH.
func (s *PriceSource) token(symbol string) (*asset.Asset, bool) {
	if symbol == "ETH" {
		symbol = "WETH"
	}
	a, ok := s.provider.registry.GetBySymbolAndChain(symbol, asset.ChainIDEthereum)
	if !ok || !a.IsToken() {
		return nil, false
	}
	return a, true
}
