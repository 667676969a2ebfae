// Package geckoterminal implements a DEX pool price source backed by the
// GeckoTerminal public API.
package geckoterminal

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
	tracerName = "geckoterminal"
	venueName  = "geckoterminal"
)

var poolFee = decimal.RequireFromString("0.003")

var _ app.VenuePriceSource = (*Client)(nil)

// Client reads tracked pools on one network.
type Client struct {
	http    httpclient.Client
	guard   *venue.Guard
	network string
	pools   map[string]string // normalized pair -> pool address
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewClient creates the source. Pool keys are normalized to BASE/QUOTE.
func NewClient(cfg config.GeckoTerminalConfig, log logger.LoggerInterface) (*Client, error) {
	pools := make(map[string]string, len(cfg.Pools))
	for pair, addr := range cfg.Pools {
		p, err := domain.ParseMarketPair(pair)
		if err != nil {
			return nil, fmt.Errorf("geckoterminal pool %q: %w", pair, err)
		}
		pools[p.String()] = strings.ToLower(addr)
	}

	client, err := venue.NewHTTPClient(venueName, cfg.VenueConfig, map[string]string{
		"Accept": "application/json;version=20230302",
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		http:    client,
		guard:   venue.NewGuard(venueName, cfg.VenueConfig, log),
		network: cfg.Network,
		pools:   pools,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

func (c *Client) Name() string              { return venueName }
func (c *Client) Type() domain.ExchangeType { return domain.ExchangeDEX }

type poolResponse struct {
	Data struct {
		ID         string         `json:"id"`
		Attributes poolAttributes `json:"attributes"`
	} `json:"data"`
}

type poolAttributes struct {
	Name                     string `json:"name"`
	BaseTokenPriceUSD        string `json:"base_token_price_usd"`
	BaseTokenPriceQuoteToken string `json:"base_token_price_quote_token"`
	ReserveInUSD             string `json:"reserve_in_usd"`
	VolumeUSD                struct {
		H24 string `json:"h24"`
	} `json:"volume_usd"`
}

// GetPrices reads every requested pair that has a tracked pool.
func (c *Client) GetPrices(ctx context.Context, pairs []domain.MarketPair) ([]domain.ExchangePrice, error) {
	out := make([]domain.ExchangePrice, 0, len(pairs))
	for _, pair := range pairs {
		if _, ok := c.pools[pair.String()]; !ok {
			continue
		}
		p, err := c.GetPrice(ctx, pair)
		if err != nil {
			c.logger.Debug(ctx, "geckoterminal pair skipped", "pair", pair.String(), "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPrice reads the pool tracked for pair.
func (c *Client) GetPrice(ctx context.Context, pair domain.MarketPair) (domain.ExchangePrice, error) {
	addr, ok := c.pools[pair.String()]
	if !ok {
		return domain.ExchangePrice{}, apperror.NotFound(apperror.CodeVenuePairNotFound, "geckoterminal "+pair.String())
	}
	return c.guard.Fetch(ctx, pair.String(), func(ctx context.Context) (domain.ExchangePrice, error) {
		return c.fetchPool(ctx, pair, addr)
	})
}

func (c *Client) fetchPool(ctx context.Context, pair domain.MarketPair, addr string) (domain.ExchangePrice, error) {
	ctx, span := c.tracer.Start(ctx, "geckoterminal.get_pool",
		trace.WithAttributes(
			attribute.String("network", c.network),
			attribute.String("pool", addr),
		))
	defer span.End()

	var result poolResponse
	resp, err := c.http.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "pool")),
	).
		SetResult(&result).
		Get(ctx, fmt.Sprintf("/networks/%s/pools/%s", c.network, addr))
	if err == nil {
		err = venue.StatusError(resp)
	}
	if err != nil {
		return domain.ExchangePrice{}, apm.Fail(span, apperror.External(apperror.CodeGeckoTerminalAPIError, addr, err), "")
	}

	return result.Data.Attributes.toPrice(pair)
}

func (a poolAttributes) toPrice(pair domain.MarketPair) (domain.ExchangePrice, error) {
	raw := a.BaseTokenPriceQuoteToken
	if raw == "" {
		raw = a.BaseTokenPriceUSD
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.ExchangePrice{}, apperror.New(apperror.CodeGeckoTerminalAPIError,
			apperror.WithContext("missing pool price"), apperror.WithCause(err))
	}

	p := domain.NewExchangePrice(venueName, domain.ExchangeDEX, pair, price)
	p.Liquidity = parseOrZero(a.ReserveInUSD)
	p.Volume24h = parseOrZero(a.VolumeUSD.H24)
	p.MakerFee = poolFee
	p.TakerFee = poolFee
	return p, nil
}

func parseOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Close releases the cache janitor.
func (c *Client) Close() error {
	c.guard.Close()
	return nil
}
