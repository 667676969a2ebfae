// Package metrics installs the global OpenTelemetry meter provider and
// exposes it for Prometheus scraping.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

// Options selects the readers. Prometheus and OTLP may both be on.
type Options struct {
	ServiceName string
	Version     string

	Prometheus bool

	OTLPEndpoint string // empty disables the push exporter
	OTLPHeaders  map[string]string
	Insecure     bool
	Interval     time.Duration // push period; zero keeps the SDK default
}

// Provider owns the meter provider and, when enabled, the scrape registry.
type Provider struct {
	mp       *sdkmetric.MeterProvider
	registry *promclient.Registry
}

// NewMetricProvider builds the readers named by opts and installs the
// provider globally.
func NewMetricProvider(ctx context.Context, opts Options) (*Provider, error) {
	p := &Provider{}
	var readers []sdkmetric.Option

	if opts.Prometheus {
		p.registry = promclient.NewRegistry()
		p.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		exp, err := prometheus.New(prometheus.WithRegisterer(p.registry))
		if err != nil {
			return nil, fmt.Errorf("metrics: prometheus exporter: %w", err)
		}
		readers = append(readers, sdkmetric.WithReader(exp))
	}

	if opts.OTLPEndpoint != "" {
		grpcOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpointURL(opts.OTLPEndpoint),
			otlpmetricgrpc.WithHeaders(opts.OTLPHeaders),
		}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("metrics: otlp exporter: %w", err)
		}
		var periodic []sdkmetric.PeriodicReaderOption
		if opts.Interval > 0 {
			periodic = append(periodic, sdkmetric.WithInterval(opts.Interval))
		}
		readers = append(readers, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, periodic...)))
	}

	if len(readers) == 0 {
		return nil, errors.New("metrics: no reader enabled")
	}

	p.mp = sdkmetric.NewMeterProvider(append(readers, sdkmetric.WithResource(resource.NewSchemaless(
		semconv.ServiceNameKey.String(opts.ServiceName),
		semconv.ServiceVersionKey.String(opts.Version),
	)))...)
	otel.SetMeterProvider(p.mp)
	return p, nil
}

// Handler serves the scrape endpoint, or 404 when Prometheus is off.
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Shutdown flushes pending exports.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.mp.Shutdown(ctx)
}

// Server exposes /metrics on its own port.
type Server struct {
	srv *http.Server
}

// NewServer mounts p's handler at /metrics on port.
func NewServer(p *Provider, port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", p.Handler())
	return &Server{srv: &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start binds the port and serves in the background. Bind errors are
// returned; later serve errors go to onErr.
func (s *Server) Start(onErr func(error)) (net.Addr, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", s.srv.Addr, err)
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && onErr != nil {
			onErr(err)
		}
	}()
	return ln.Addr(), nil
}

// Stop shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
