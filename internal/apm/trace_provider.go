// Package apm installs the global OpenTelemetry tracer provider.
package apm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

// Exporter selects where spans go.
type Exporter string

const (
	ExporterZipkin   Exporter = "zipkin"
	ExporterOTLPGRPC Exporter = "otlp-grpc"
	ExporterOTLPHTTP Exporter = "otlp-http"
	ExporterStdout   Exporter = "stdout"
	ExporterNone     Exporter = "none"
)

const shutdownTimeout = 5 * time.Second

// TraceProvider flushes and stops span export.
type TraceProvider interface {
	Stop() error
}

// Options configures NewTraceProvider.
type Options struct {
	ServiceName string
	Version     string
	Exporter    Exporter
	Endpoint    string
	Headers     map[string]string // OTLP only, e.g. x-honeycomb-team or api-key
	SampleRatio float64           // <= 0 or >= 1 samples everything
	Writer      io.Writer         // stdout exporter target; nil means os.Stdout
}

type sdkProvider struct {
	tp *sdktrace.TracerProvider
}

func (p *sdkProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

type noopProvider struct{}

func (noopProvider) Stop() error { return nil }

// NewTraceProvider builds the exporter named by opts and installs the
// provider and a W3C propagator globally. ExporterNone installs nothing.
func NewTraceProvider(ctx context.Context, opts Options) (TraceProvider, error) {
	if opts.Exporter == ExporterNone || opts.Exporter == "" {
		return noopProvider{}, nil
	}

	exp, err := newExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("apm: %s exporter: %w", opts.Exporter, err)
	}

	res, err := newResource(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("apm: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler(opts.SampleRatio)),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &sdkProvider{tp: tp}, nil
}

// newResource describes this process. Attributes carry no schema URL so
// they merge with the SDK and environment detectors whatever semconv
// version those use.
func newResource(ctx context.Context, opts Options) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opts.ServiceName),
			semconv.ServiceVersionKey.String(opts.Version),
			attribute.String("otel.exporter", string(opts.Exporter)),
		),
	)
}

func newExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	switch opts.Exporter {
	case ExporterZipkin:
		return zipkin.New(opts.Endpoint)
	case ExporterOTLPGRPC:
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(opts.Endpoint),
			otlptracegrpc.WithHeaders(opts.Headers))
	case ExporterOTLPHTTP:
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(opts.Endpoint),
			otlptracehttp.WithHeaders(opts.Headers))
	case ExporterStdout:
		if opts.Writer != nil {
			return stdouttrace.New(stdouttrace.WithWriter(opts.Writer))
		}
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return nil, fmt.Errorf("unknown exporter %q", opts.Exporter)
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// ParseHeaders reads the OTEL_EXPORTER_OTLP_HEADERS form: "k1=v1,k2=v2".
func ParseHeaders(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, kv := range strings.Split(s, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("apm: malformed header %q, want key=value", kv)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}
