// Package dexscreener implements a DEX price source backed by the DEX Screener API.
package dexscreener

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexter/business/pricing/app"
	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/business/pricing/infra/venue"
	"github.com/fd1az/dexter/internal/apm"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/httpclient"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	tracerName = "dexscreener"
	venueName  = "dexscreener"

	searchEndpoint = "/dex/search"
	tokensEndpoint = "/dex/tokens/"
)

var poolFee = decimal.RequireFromString("0.003")

var _ app.VenuePriceSource = (*Client)(nil)

var wrapped = map[string]string{
	"WETH": "ETH",
	"WBTC": "BTC",
	"WSOL": "SOL",
}

// Client searches DEX Screener and keeps the deepest matching pool.
type Client struct {
	http   httpclient.Client
	guard  *venue.Guard
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewClient creates the source.
func NewClient(cfg config.VenueConfig, log logger.LoggerInterface) (*Client, error) {
	client, err := venue.NewHTTPClient(venueName, cfg, nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		http:   client,
		guard:  venue.NewGuard(venueName, cfg, log),
		logger: log,
		tracer: otel.Tracer(tracerName),
	}, nil
}

func (c *Client) Name() string              { return venueName }
func (c *Client) Type() domain.ExchangeType { return domain.ExchangeDEX }

// Pair is one pool as DEX Screener reports it.
type Pair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	QuoteToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"quoteToken"`
	PriceNative string `json:"priceNative"`
	PriceUSD    string `json:"priceUsd"`
	Liquidity   struct {
		USD decimal.Decimal `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 decimal.Decimal `json:"h24"`
	} `json:"volume"`
}

type pairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

// GetPrices searches each requested pair.
func (c *Client) GetPrices(ctx context.Context, pairs []domain.MarketPair) ([]domain.ExchangePrice, error) {
	out := make([]domain.ExchangePrice, 0, len(pairs))
	for _, pair := range pairs {
		p, err := c.GetPrice(ctx, pair)
		if err != nil {
			c.logger.Debug(ctx, "dexscreener pair skipped", "pair", pair.String(), "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPrice returns the deepest pool quoting pair.
func (c *Client) GetPrice(ctx context.Context, pair domain.MarketPair) (domain.ExchangePrice, error) {
	return c.guard.Fetch(ctx, pair.String(), func(ctx context.Context) (domain.ExchangePrice, error) {
		pools, err := c.Search(ctx, pair.Base+" "+pair.Quote)
		if err != nil {
			return domain.ExchangePrice{}, err
		}
		best, ok := BestPool(pools, pair)
		if !ok {
			return domain.ExchangePrice{}, apperror.NotFound(apperror.CodeVenuePairNotFound, "dexscreener "+pair.String())
		}
		return best.toPrice(pair)
	})
}

// Search runs a free-text pool search.
func (c *Client) Search(ctx context.Context, query string) ([]Pair, error) {
	ctx, span := c.tracer.Start(ctx, "dexscreener.search",
		trace.WithAttributes(attribute.String("query", query)))
	defer span.End()

	var result pairsResponse
	resp, err := c.http.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "search")),
	).
		SetQueryParam("q", query).
		SetResult(&result).
		Get(ctx, searchEndpoint)
	if err == nil {
		err = venue.StatusError(resp)
	}
	if err != nil {
		return nil, apm.Fail(span, apperror.External(apperror.CodeDexScreenerAPIError, query, err), "")
	}
	return result.Pairs, nil
}

// TokenPairs lists every pool that trades the token at address.
func (c *Client) TokenPairs(ctx context.Context, address string) ([]Pair, error) {
	ctx, span := c.tracer.Start(ctx, "dexscreener.token_pairs",
		trace.WithAttributes(attribute.String("token", address)))
	defer span.End()

	var result pairsResponse
	resp, err := c.http.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "tokens")),
	).
		SetResult(&result).
		Get(ctx, tokensEndpoint+address)
	if err == nil {
		err = venue.StatusError(resp)
	}
	if err != nil {
		return nil, apm.Fail(span, apperror.External(apperror.CodeDexScreenerAPIError, address, err), "")
	}
	return result.Pairs, nil
}

// BestPool picks the matching pool with the largest USD liquidity.
func BestPool(pools []Pair, pair domain.MarketPair) (Pair, bool) {
	var (
		best  Pair
		found bool
	)
	for _, p := range pools {
		if normalize(p.BaseToken.Symbol) != pair.Base || normalize(p.QuoteToken.Symbol) != pair.Quote {
			continue
		}
		if !found || p.Liquidity.USD.GreaterThan(best.Liquidity.USD) {
			best, found = p, true
		}
	}
	return best, found
}

func normalize(symbol string) string {
	s := strings.ToUpper(symbol)
	if n, ok := wrapped[s]; ok {
		return n
	}
	return s
}

func (p Pair) toPrice(pair domain.MarketPair) (domain.ExchangePrice, error) {
	price, err := decimal.NewFromString(p.PriceNative)
	if err != nil {
		return domain.ExchangePrice{}, apperror.New(apperror.CodeDexScreenerAPIError,
			apperror.WithContext("bad priceNative for "+p.PairAddress), apperror.WithCause(err))
	}
	out := domain.NewExchangePrice(venueName, domain.ExchangeDEX, pair, price)
	out.Liquidity = p.Liquidity.USD
	out.Volume24h = p.Volume.H24
	out.MakerFee = poolFee
	out.TakerFee = poolFee
	return out, nil
}

// Close releases the cache janitor.
func (c *Client) Close() error {
	c.guard.Close()
	return nil
}
