package binance

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/pricing/app"
	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/business/pricing/infra/venue"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/logger"
)

var spotFee = decimal.RequireFromString("0.001")

var _ app.VenuePriceSource = (*TickerSource)(nil)

// TickerSource exposes Binance 24h tickers to the aggregator.
type TickerSource struct {
	http   *HTTPClient
	guard  *venue.Guard
	logger logger.LoggerInterface
}

// NewTickerSource builds a REST ticker source on cfg.BaseURL.
func NewTickerSource(cfg config.VenueConfig, log logger.LoggerInterface) (*TickerSource, error) {
	client, err := NewHTTPClient(HTTPClientConfig{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, log)
	if err != nil {
		return nil, err
	}
	return &TickerSource{
		http:   client,
		guard:  venue.NewGuard("binance", cfg, log),
		logger: log,
	}, nil
}

func (s *TickerSource) Name() string              { return "binance" }
func (s *TickerSource) Type() domain.ExchangeType { return domain.ExchangeCEX }

// GetPrices fetches the ticker of each pair, skipping symbols Binance rejects.
func (s *TickerSource) GetPrices(ctx context.Context, pairs []domain.MarketPair) ([]domain.ExchangePrice, error) {
	out := make([]domain.ExchangePrice, 0, len(pairs))
	for _, pair := range pairs {
		p, err := s.guard.Fetch(ctx, pair.String(), func(ctx context.Context) (domain.ExchangePrice, error) {
			return s.fetch(ctx, pair)
		})
		if err != nil {
			s.logger.Debug(ctx, "binance pair skipped", "pair", pair.String(), "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *TickerSource) fetch(ctx context.Context, pair domain.MarketPair) (domain.ExchangePrice, error) {
	t, err := s.http.GetTicker24h(ctx, pair.Concat())
	if err != nil {
		return domain.ExchangePrice{}, err
	}

	last, err := decimal.NewFromString(t.LastPrice)
	if err != nil {
		return domain.ExchangePrice{}, err
	}
	p := domain.NewExchangePrice("binance", domain.ExchangeCEX, pair, last)
	if bid, err := decimal.NewFromString(t.BidPrice); err == nil && bid.IsPositive() {
		p.Bid = bid
	}
	if ask, err := decimal.NewFromString(t.AskPrice); err == nil && ask.IsPositive() {
		p.Ask = ask
	}
	if vol, err := decimal.NewFromString(t.QuoteVolume); err == nil {
		p.Volume24h = vol
	}
	p.MakerFee = spotFee
	p.TakerFee = spotFee
	return p, nil
}

// Close releases the cache janitor.
func (s *TickerSource) Close() error {
	s.guard.Close()
	return nil
}
