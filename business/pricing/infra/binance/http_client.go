package binance

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/sugawarayuuta/sonnet"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexter/internal/apm"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/httpclient"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	BaseAPIURL   = "https://api.binance.com"
	BaseAPIURLUS = "https://api.binance.us"

	depthEndpoint    = "/api/v3/depth"
	ticker24Endpoint = "/api/v3/ticker/24hr"

	httpTimeout = 10 * time.Second
)

// depthLimits are the only limits /api/v3/depth accepts, ascending.
var depthLimits = []int{5, 10, 20, 50, 100, 500, 1000, 5000}

// HTTPClientConfig holds configuration for the Binance REST client.
type HTTPClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPClient calls the public Binance REST API.
type HTTPClient struct {
	client httpclient.Client
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewHTTPClient creates a REST client on cfg.BaseURL (default api.binance.com).
func NewHTTPClient(cfg HTTPClientConfig, log logger.LoggerInterface) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	if err != nil {
		return nil, fmt.Errorf("binance http client: %w", err)
	}
	return &HTTPClient{client: client, logger: log, tracer: tracer}, nil
}

// depthLimit rounds limit up to the nearest accepted value.
func depthLimit(limit int) int {
	i, _ := slices.BinarySearch(depthLimits, limit)
	if i == len(depthLimits) {
		return depthLimits[len(depthLimits)-1]
	}
	return depthLimits[i]
}

// GetDepth fetches a depth snapshot for symbol.
func (c *HTTPClient) GetDepth(ctx context.Context, symbol string, limit int) (*Depth, error) {
	limit = depthLimit(limit)
	ctx, span := c.tracer.Start(ctx, "binance.http.get_depth",
		trace.WithAttributes(attribute.String("symbol", symbol), attribute.Int("limit", limit)))
	defer span.End()

	var out Depth
	if err := c.get(ctx, depthEndpoint, "depth", symbol, map[string]string{
		"symbol": symbol,
		"limit":  strconv.Itoa(limit),
	}, &out); err != nil {
		return nil, apm.Fail(span, err, "")
	}
	out.Symbol = symbol
	span.SetAttributes(attribute.Int("bids", len(out.Bids)), attribute.Int("asks", len(out.Asks)))
	return &out, nil
}

// GetTicker24h fetches the rolling 24h ticker for symbol.
func (c *HTTPClient) GetTicker24h(ctx context.Context, symbol string) (*Ticker24h, error) {
	ctx, span := c.tracer.Start(ctx, "binance.http.get_ticker",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	var out Ticker24h
	if err := c.get(ctx, ticker24Endpoint, "ticker24hr", symbol, map[string]string{"symbol": symbol}, &out); err != nil {
		return nil, apm.Fail(span, err, "")
	}
	return &out, nil
}

func (c *HTTPClient) get(ctx context.Context, path, endpoint, symbol string, query map[string]string, result any) error {
	req := c.client.NewRequestWithOptions(
		httpclient.WithLabels(
			httpclient.NewLabel("endpoint", endpoint),
			httpclient.NewLabel("symbol", symbol),
		),
		httpclient.WithResponseErrorHandler(apiErrorHandler),
	)
	resp, err := req.SetQueryParams(query).SetResult(result).Get(ctx, path)
	if err != nil {
		code := apperror.CodeBinanceConnectionFailed
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			code = apperror.CodeBinanceAPIError
		}
		return apperror.New(code, apperror.WithCause(err), apperror.WithContext(endpoint))
	}
	if resp.IsError() {
		return apperror.New(apperror.CodeBinanceAPIError,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	if err := resp.DecodeErr(); err != nil {
		return apperror.New(apperror.CodeBinanceAPIError, apperror.WithCause(err))
	}
	return nil
}

// apiErrorHandler turns a 4xx/5xx body into *APIError when it has one.
func apiErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	var apiErr APIError
	if err := sonnet.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return &apiErr
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
}
