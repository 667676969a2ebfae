// Package jupiter implements a price source backed by the Jupiter swap
// aggregator quote API on Solana.
package jupiter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
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
	tracerName = "jupiter"
	venueName  = "jupiter"

	quoteEndpoint = "/quote"
)

var _ app.VenuePriceSource = (*Client)(nil)

// Token decimals by symbol for the mints we quote.
var tokenDecimals = map[string]int32{
	"SOL":  9,
	"USDC": 6,
	"USDT": 6,
	"ETH":  8, // Wormhole-wrapped
	"JUP":  6,
	"BONK": 5,
}

type token struct {
	mint     solana.PublicKey
	decimals int32
}

// Client quotes 1 unit of the base token through Jupiter.
type Client struct {
	http        httpclient.Client
	guard       *venue.Guard
	slippageBps int
	tokens      map[string]token
	logger      logger.LoggerInterface
	tracer      trace.Tracer
}

// NewClient validates the configured mints and creates the source.
func NewClient(cfg config.JupiterConfig, log logger.LoggerInterface) (*Client, error) {
	tokens := make(map[string]token, len(cfg.Mints))
	for symbol, mint := range cfg.Mints {
		pk, err := ParseMint(mint)
		if err != nil {
			return nil, err
		}
		dec, ok := tokenDecimals[symbol]
		if !ok {
			return nil, apperror.Validation(apperror.CodeInvalidMint, "unknown decimals for "+symbol)
		}
		tokens[symbol] = token{mint: pk, decimals: dec}
	}

	client, err := venue.NewHTTPClient(venueName, cfg.VenueConfig, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:        client,
		guard:       venue.NewGuard(venueName, cfg.VenueConfig, log),
		slippageBps: cfg.SlippageBps,
		tokens:      tokens,
		logger:      log,
		tracer:      otel.Tracer(tracerName),
	}, nil
}

// ParseMint validates a base58 Solana public key.
func ParseMint(s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, apperror.New(apperror.CodeInvalidMint,
			apperror.WithContext(s), apperror.WithCause(err))
	}
	return pk, nil
}

func (c *Client) Name() string              { return venueName }
func (c *Client) Type() domain.ExchangeType { return domain.ExchangeAggregator }

type quoteResponse struct {
	InputMint      string `json:"inputMint"`
	InAmount       string `json:"inAmount"`
	OutputMint     string `json:"outputMint"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	Error          string `json:"error,omitempty"`
}

// GetPrices quotes every pair whose mints are configured.
func (c *Client) GetPrices(ctx context.Context, pairs []domain.MarketPair) ([]domain.ExchangePrice, error) {
	out := make([]domain.ExchangePrice, 0, len(pairs))
	for _, pair := range pairs {
		if !c.Supports(pair) {
			continue
		}
		p, err := c.GetPrice(ctx, pair)
		if err != nil {
			c.logger.Debug(ctx, "jupiter pair skipped", "pair", pair.String(), "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Supports reports whether both legs of pair have a configured mint.
func (c *Client) Supports(pair domain.MarketPair) bool {
	_, okBase := c.tokens[pair.Base]
	_, okQuote := c.tokens[pair.Quote]
	return okBase && okQuote
}

// GetPrice quotes one pair.
func (c *Client) GetPrice(ctx context.Context, pair domain.MarketPair) (domain.ExchangePrice, error) {
	base, okBase := c.tokens[pair.Base]
	quote, okQuote := c.tokens[pair.Quote]
	if !okBase || !okQuote {
		return domain.ExchangePrice{}, apperror.NotFound(apperror.CodeVenuePairNotFound, "jupiter "+pair.String())
	}

	return c.guard.Fetch(ctx, pair.String(), func(ctx context.Context) (domain.ExchangePrice, error) {
		return c.fetchQuote(ctx, pair, base, quote)
	})
}

func (c *Client) fetchQuote(ctx context.Context, pair domain.MarketPair, base, quote token) (domain.ExchangePrice, error) {
	ctx, span := c.tracer.Start(ctx, "jupiter.quote",
		trace.WithAttributes(attribute.String("pair", pair.String())))
	defer span.End()

	amountIn := decimal.New(1, base.decimals)

	var result quoteResponse
	resp, err := c.http.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "quote")),
	).
		SetQueryParam("inputMint", base.mint.String()).
		SetQueryParam("outputMint", quote.mint.String()).
		SetQueryParam("amount", amountIn.String()).
		SetQueryParam("slippageBps", strconv.Itoa(c.slippageBps)).
		SetResult(&result).
		Get(ctx, quoteEndpoint)
	if err == nil {
		err = venue.StatusError(resp)
	}
	if err != nil {
		return domain.ExchangePrice{}, apm.Fail(span, apperror.External(apperror.CodeJupiterQuoteFailed, pair.String(), err), "")
	}
	if result.Error != "" {
		return domain.ExchangePrice{}, apperror.New(apperror.CodeJupiterQuoteFailed,
			apperror.WithContext(pair.String()+": "+result.Error))
	}

	price, err := QuotePrice(result.InAmount, result.OutAmount, base.decimals, quote.decimals)
	if err != nil {
		return domain.ExchangePrice{}, apperror.External(apperror.CodeJupiterQuoteFailed, pair.String(), err)
	}

	p := domain.NewExchangePrice(venueName, domain.ExchangeAggregator, pair, price)
	p.MakerFee = decimal.Zero
	p.TakerFee = decimal.Zero
	return p, nil
}

// QuotePrice converts raw in/out amounts into a quote-per-base price.
func QuotePrice(inAmount, outAmount string, inDecimals, outDecimals int32) (decimal.Decimal, error) {
	in, err := decimal.NewFromString(inAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("inAmount: %w", err)
	}
	out, err := decimal.NewFromString(outAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("outAmount: %w", err)
	}
	if !in.IsPositive() {
		return decimal.Zero, fmt.Errorf("inAmount must be positive: %s", inAmount)
	}
	in = in.Shift(-inDecimals)
	out = out.Shift(-outDecimals)
	return out.Div(in), nil
}

// Close releases the cache janitor.
func (c *Client) Close() error {
	c.guard.Close()
	return nil
}
