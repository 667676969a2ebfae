package apm

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

func TestParseHeaders(t *testing.T) {
	h, err := ParseHeaders("x-honeycomb-team=abc, api-key = k=v ,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x-honeycomb-team": "abc", "api-key": "k=v"}, h)

	h, err = ParseHeaders("")
	require.NoError(t, err)
	assert.Empty(t, h)

	_, err = ParseHeaders("novalue")
	assert.Error(t, err)
	_, err = ParseHeaders("=v")
	assert.Error(t, err)
}

func TestNewTraceProvider_None(t *testing.T) {
	tp, err := NewTraceProvider(context.Background(), Options{Exporter: ExporterNone})
	require.NoError(t, err)
	assert.NoError(t, tp.Stop())
}

func TestNewTraceProvider_Unknown(t *testing.T) {
	_, err := NewTraceProvider(context.Background(), Options{Exporter: "carrier-pigeon"})
	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestNewTraceProvider_StdoutFlushesOnStop(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	tp, err := NewTraceProvider(context.Background(), Options{
		ServiceName: "dexter-test",
		Exporter:    ExporterStdout,
		Writer:      &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("apm_test").Start(context.Background(), "quote")
	span.End()
	require.NoError(t, tp.Stop())

	assert.Contains(t, buf.String(), `"Name":"quote"`)
	assert.Contains(t, buf.String(), "dexter-test")
	assert.NotContains(t, buf.String(), "unknown_service")
}

func TestNewResource_KeepsServiceIdentity(t *testing.T) {
	res, err := newResource(context.Background(), Options{ServiceName: "dexter", Version: "1.2.3", Exporter: ExporterZipkin})
	require.NoError(t, err)

	name, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "dexter", name.AsString())
	version, _ := res.Set().Value(semconv.ServiceVersionKey)
	assert.Equal(t, "1.2.3", version.AsString())
	sdk, _ := res.Set().Value("telemetry.sdk.name")
	assert.Equal(t, "opentelemetry", sdk.AsString())
}

func TestFail(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("apm_test")

	_, ok := tracer.Start(context.Background(), "ok")
	assert.NoError(t, Fail(ok, nil, "unused"))
	ok.End()

	_, bad := tracer.Start(context.Background(), "bad")
	boom := errors.New("boom")
	assert.Same(t, boom, Fail(bad, boom, ""))
	bad.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}
