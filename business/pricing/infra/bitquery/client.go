// Package bitquery implements a DEX trade price source over the Bitquery
// GraphQL API.
package bitquery

import (
	"context"
	"fmt"
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
	tracerName = "bitquery"
	venueName  = "bitquery"
)

var tradeFee = decimal.RequireFromString("0.003")

var _ app.VenuePriceSource = (*Client)(nil)

// Mainnet token contracts addressed by symbol. Native ETH trades as WETH.
var tokenAddresses = map[string]string{
	"ETH":  "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
	"WETH": "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
	"USDC": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
	"USDT": "0xdac17f958d2ee523a2206206994597c13d831ec7",
	"DAI":  "0x6b175474e89094c44da98b954eedeac495271d0f",
	"WBTC": "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599",
	"BTC":  "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599",
}

const lastTradeQuery = `query ($network: EthereumNetwork!, $base: String!, $quote: String!) {
  ethereum(network: $network) {
    dexTrades(
      options: {desc: "block.height", limit: 1}
      baseCurrency: {is: $base}
      quoteCurrency: {is: $quote}
    ) {
      block { height }
      quotePrice
      tradeAmount(in: USD)
    }
  }
}`

// Client reads the most recent DEX trade for a pair.
type Client struct {
	http    httpclient.Client
	guard   *venue.Guard
	network string
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewClient creates the source. An API key is mandatory.
func NewClient(cfg config.BitqueryConfig, log logger.LoggerInterface) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperror.Validation(apperror.CodeBitqueryAPIError, "api key is required")
	}
	client, err := venue.NewHTTPClient(venueName, cfg.VenueConfig, map[string]string{
		"X-API-KEY": cfg.APIKey,
	})
	if err != nil {
		return nil, err
	}
	network := cfg.Network
	if network == "" {
		network = "ethereum"
	}
	return &Client{
		http:    client,
		guard:   venue.NewGuard(venueName, cfg.VenueConfig, log),
		network: network,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

func (c *Client) Name() string              { return venueName }
func (c *Client) Type() domain.ExchangeType { return domain.ExchangeDEX }

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		Ethereum struct {
			DexTrades []struct {
				Block struct {
					Height int64 `json:"height"`
				} `json:"block"`
				QuotePrice  decimal.Decimal `json:"quotePrice"`
				TradeAmount decimal.Decimal `json:"tradeAmount"`
			} `json:"dexTrades"`
		} `json:"ethereum"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GetPrices queries each pair whose tokens are known.
func (c *Client) GetPrices(ctx context.Context, pairs []domain.MarketPair) ([]domain.ExchangePrice, error) {
	out := make([]domain.ExchangePrice, 0, len(pairs))
	for _, pair := range pairs {
		p, err := c.GetPrice(ctx, pair)
		if err != nil {
			c.logger.Debug(ctx, "bitquery pair skipped", "pair", pair.String(), "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPrice returns the last trade price for pair.
func (c *Client) GetPrice(ctx context.Context, pair domain.MarketPair) (domain.ExchangePrice, error) {
	base, okBase := tokenAddresses[pair.Base]
	quote, okQuote := tokenAddresses[pair.Quote]
	if !okBase || !okQuote {
		return domain.ExchangePrice{}, apperror.NotFound(apperror.CodeVenuePairNotFound, "bitquery "+pair.String())
	}
	return c.guard.Fetch(ctx, pair.String(), func(ctx context.Context) (domain.ExchangePrice, error) {
		return c.fetchLastTrade(ctx, pair, base, quote)
	})
}

func (c *Client) fetchLastTrade(ctx context.Context, pair domain.MarketPair, base, quote string) (domain.ExchangePrice, error) {
	ctx, span := c.tracer.Start(ctx, "bitquery.dex_trades",
		trace.WithAttributes(attribute.String("pair", pair.String())))
	defer span.End()

	var result graphQLResponse
	resp, err := c.http.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "graphql")),
		httpclient.WithHeadersLogConfig(false, "X-API-KEY"),
	).
		SetBody(graphQLRequest{
			Query: lastTradeQuery,
			Variables: map[string]any{
				"network": c.network,
				"base":    base,
				"quote":   quote,
			},
		}).
		SetResult(&result).
		Post(ctx, "/")
	if err == nil {
		err = venue.StatusError(resp)
	}
	if err != nil {
		return domain.ExchangePrice{}, apm.Fail(span, apperror.External(apperror.CodeBitqueryAPIError, pair.String(), err), "")
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			msgs[i] = e.Message
		}
		return domain.ExchangePrice{}, apperror.New(apperror.CodeBitqueryAPIError,
			apperror.WithContext(fmt.Sprintf("%s: %s", pair, strings.Join(msgs, "; "))))
	}

	trades := result.Data.Ethereum.DexTrades
	if len(trades) == 0 || !trades[0].QuotePrice.IsPositive() {
		return domain.ExchangePrice{}, apperror.NotFound(apperror.CodeVenuePairNotFound, "bitquery "+pair.String())
	}

	p := domain.NewExchangePrice(venueName, domain.ExchangeDEX, pair, trades[0].QuotePrice)
	p.MakerFee = tradeFee
	p.TakerFee = tradeFee
	return p, nil
}

// Close releases the cache janitor.
func (c *Client) Close() error {
	c.guard.Close()
	return nil
}
