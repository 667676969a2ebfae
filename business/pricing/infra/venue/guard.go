// Package venue holds the plumbing shared by the REST price venues: an
// instrumented HTTP client plus a guard that rate limits, circuit breaks and
// caches every quote fetch.
package venue

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"

	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/cache"
	"github.com/fd1az/dexter/internal/circuitbreaker"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/httpclient"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/ratelimit"
)

// FetchFunc performs the uncached venue call.
type FetchFunc func(ctx context.Context) (domain.ExchangePrice, error)

// Guard serializes access to one venue.
type Guard struct {
	name    string
	ttl     time.Duration
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[domain.ExchangePrice]
	cache   *cache.Cache[string, domain.ExchangePrice]
}

// NewGuard builds a guard from the venue's config block.
func NewGuard(name string, cfg config.VenueConfig, log logger.LoggerInterface) *Guard {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	cbCfg := circuitbreaker.DefaultConfig(name)
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "venue circuit breaker state changed",
			"venue", name, "from", from.String(), "to", to.String())
	}

	return &Guard{
		name:    name,
		ttl:     cfg.CacheTTL,
		limiter: ratelimit.New(rpm),
		breaker: circuitbreaker.New[domain.ExchangePrice](cbCfg),
		cache:   cache.New[string, domain.ExchangePrice](time.Minute),
	}
}

// Fetch returns the cached price for key or runs fn under the limiter and breaker.
func (g *Guard) Fetch(ctx context.Context, key string, fn FetchFunc) (domain.ExchangePrice, error) {
	if p, ok := g.cache.Get(ctx, key); ok {
		return p, nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return domain.ExchangePrice{}, fmt.Errorf("%s: rate limit wait: %w", g.name, err)
	}

	p, err := g.breaker.Execute(func() (domain.ExchangePrice, error) {
		return fn(ctx)
	})
	if err != nil {
		return domain.ExchangePrice{}, err
	}

	if g.ttl > 0 {
		g.cache.Set(ctx, key, p, g.ttl)
	}
	return p, nil
}

// Healthy reports whether the breaker lets calls through.
func (g *Guard) Healthy() bool {
	return !g.breaker.IsOpen()
}

// Close stops the cache janitor.
func (g *Guard) Close() {
	g.cache.Close()
}

// NewHTTPClient returns an instrumented client bound to the venue's base URL.
func NewHTTPClient(name string, cfg config.VenueConfig, headers map[string]string) (httpclient.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	h := map[string]string{"Accept": "application/json"}
	for k, v := range headers {
		h[k] = v
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName(name),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(otel.Tracer(name), httpclient.TraceResponse),
		httpclient.WithHeaders(h),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: create http client: %w", name, err)
	}
	return client, nil
}

// StatusError turns a non-2xx venue response into an error.
func StatusError(resp *httpclient.Response) error {
	if resp.IsError() {
		body := resp.String()
		if len(body) > 256 {
			body = body[:256]
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
	return resp.DecodeErr()
}
