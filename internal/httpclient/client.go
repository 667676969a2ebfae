package httpclient

import (
	"context"
	"maps"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxBodySize = 8 << 20
	instrumentation    = "instrumented_http_client"
)

// Client builds and executes instrumented requests.
type Client interface {
	NewRequest() Request
	NewRequestWithOptions(opts ...RequestOption) Request
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

type clientMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// InstrumentedClient wraps http.Client with OTEL transport tracing, a span
// per request and request metrics.
type InstrumentedClient struct {
	http    *http.Client
	opts    clientOptions
	tracer  trace.Tracer
	metrics clientMetrics
}

// NewInstrumentedClient creates a new instrumented HTTP client.
func NewInstrumentedClient(opts ...ClientOption) (*InstrumentedClient, error) {
	o := clientOptions{name: "default", timeout: defaultTimeout, maxBody: defaultMaxBodySize}
	for _, opt := range opts {
		opt(&o)
	}

	transport := o.transport
	if transport == nil {
		transport = pooledTransport()
	}
	transport = otelhttp.NewTransport(transport,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentation)
	}

	meter := otel.Meter(instrumentation,
		metric.WithInstrumentationAttributes(attribute.String("provider", o.name)))
	requests, err := meter.Int64Counter("http_client_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("http_client_request_duration_ms",
		metric.WithDescription("HTTP request duration including body read"), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedClient{
		http:    &http.Client{Transport: transport, Timeout: o.timeout},
		opts:    o,
		tracer:  tracer,
		metrics: clientMetrics{requests: requests, duration: duration},
	}, nil
}

func pooledTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{KeepAlive: 10 * time.Second}).DialContext,
		MaxConnsPerHost:       5,
		IdleConnTimeout:       2 * time.Minute,
		ExpectContinueTimeout: 100 * time.Millisecond,
	}
}

// NewRequest creates a request builder with no per-request options.
func (c *InstrumentedClient) NewRequest() Request {
	return c.NewRequestWithOptions()
}

// NewRequestWithOptions creates a request builder.
func (c *InstrumentedClient) NewRequestWithOptions(opts ...RequestOption) Request {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}
	headers := make(map[string]string, len(c.opts.headers))
	maps.Copy(headers, c.opts.headers)
	return &requestBuilder{client: c, opts: ro, headers: headers, query: make(map[string]string)}
}

// Do executes req on the instrumented transport without the builder.
func (c *InstrumentedClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.http.Do(req.WithContext(ctx))
}
