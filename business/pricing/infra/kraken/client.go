// Package kraken implements a REST price source for the Kraken spot exchange.
package kraken

import (
	"context"
	"fmt"
	"sort"

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
	tracerName = "kraken"
	venueName  = "kraken"

	tickerEndpoint = "/Ticker"
)

var (
	makerFee = decimal.RequireFromString("0.0016")
	takerFee = decimal.RequireFromString("0.0026")
)

var _ app.VenuePriceSource = (*Client)(nil)

// Kraken still spells a few assets the legacy way.
var assetAliases = map[string]string{
	"BTC":  "XBT",
	"DOGE": "XDG",
}

// Client polls Kraken's public ticker.
type Client struct {
	http   httpclient.Client
	guard  *venue.Guard
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewClient creates a Kraken price source.
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
func (c *Client) Type() domain.ExchangeType { return domain.ExchangeCEX }

// tickerResponse is the /Ticker payload. Each result entry is keyed by
// Kraken's canonical pair name, which rarely matches the requested one.
type tickerResponse struct {
	Error  []string               `json:"error"`
	Result map[string]tickerEntry `json:"result"`
}

type tickerEntry struct {
	Ask    []string `json:"a"` // [price, whole lot volume, lot volume]
	Bid    []string `json:"b"`
	Last   []string `json:"c"` // [price, lot volume]
	Volume []string `json:"v"` // [today, last 24h]
}

// GetPrices fetches the ticker for every pair Kraken lists.
func (c *Client) GetPrices(ctx context.Context, pairs []domain.MarketPair) ([]domain.ExchangePrice, error) {
	out := make([]domain.ExchangePrice, 0, len(pairs))
	for _, pair := range pairs {
		p, err := c.GetPrice(ctx, pair)
		if err != nil {
			c.logger.Debug(ctx, "kraken pair skipped", "pair", pair.String(), "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPrice fetches one pair.
func (c *Client) GetPrice(ctx context.Context, pair domain.MarketPair) (domain.ExchangePrice, error) {
	return c.guard.Fetch(ctx, pair.String(), func(ctx context.Context) (domain.ExchangePrice, error) {
		return c.fetchTicker(ctx, pair)
	})
}

func (c *Client) fetchTicker(ctx context.Context, pair domain.MarketPair) (domain.ExchangePrice, error) {
	symbol := PairSymbol(pair)

	ctx, span := c.tracer.Start(ctx, "kraken.get_ticker",
		trace.WithAttributes(attribute.String("pair", symbol)))
	defer span.End()

	var result tickerResponse
	resp, err := c.http.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "ticker")),
	).
		SetQueryParam("pair", symbol).
		SetResult(&result).
		Get(ctx, tickerEndpoint)
	if err == nil {
		err = venue.StatusError(resp)
	}
	if err != nil {
		return domain.ExchangePrice{}, apm.Fail(span, apperror.External(apperror.CodeKrakenAPIError, symbol, err), "")
	}
	if len(result.Error) > 0 {
		return domain.ExchangePrice{}, apperror.New(apperror.CodeKrakenAPIError,
			apperror.WithContext(fmt.Sprintf("%s: %v", symbol, result.Error)))
	}

	entry, ok := firstEntry(result.Result)
	if !ok {
		return domain.ExchangePrice{}, apperror.NotFound(apperror.CodeVenuePairNotFound, "kraken "+symbol)
	}

	return entry.toPrice(pair)
}

func firstEntry(m map[string]tickerEntry) (tickerEntry, bool) {
	if len(m) == 0 {
		return tickerEntry{}, false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return m[keys[0]], true
}

func (e tickerEntry) toPrice(pair domain.MarketPair) (domain.ExchangePrice, error) {
	last, err := field(e.Last, 0)
	if err != nil {
		return domain.ExchangePrice{}, fmt.Errorf("last: %w", err)
	}
	price := domain.NewExchangePrice(venueName, domain.ExchangeCEX, pair, last)

	if ask, err := field(e.Ask, 0); err == nil {
		price.Ask = ask
	}
	if bid, err := field(e.Bid, 0); err == nil {
		price.Bid = bid
	}
	if vol, err := field(e.Volume, 1); err == nil {
		// Kraken reports base volume; quote it so venues are comparable.
		price.Volume24h = vol.Mul(last)
	}
	price.MakerFee = makerFee
	price.TakerFee = takerFee
	return price, nil
}

func field(values []string, i int) (decimal.Decimal, error) {
	if len(values) <= i {
		return decimal.Zero, fmt.Errorf("missing field %d", i)
	}
	return decimal.NewFromString(values[i])
}

// PairSymbol renders a pair in Kraken's REST spelling (ETH/USDC -> ETHUSDC, BTC/USD -> XBTUSD).
func PairSymbol(pair domain.MarketPair) string {
	base, quote := pair.Base, pair.Quote
	if alias, ok := assetAliases[base]; ok {
		base = alias
	}
	if alias, ok := assetAliases[quote]; ok {
		quote = alias
	}
	return base + quote
}

// Close releases the cache janitor.
func (c *Client) Close() error {
	c.guard.Close()
	return nil
}
