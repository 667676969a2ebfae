package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewMetricProvider_NoReader(t *testing.T) {
	_, err := NewMetricProvider(context.Background(), Options{})
	assert.Error(t, err)
}

func TestProvider_PrometheusScrape(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	p, err := NewMetricProvider(context.Background(), Options{ServiceName: "dexter-test", Prometheus: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	counter, err := otel.Meter("metrics_test").Int64Counter("dexter_test_events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	srv := httptest.NewServer(p.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "dexter_test_events")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServer_StartStop(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	p, err := NewMetricProvider(context.Background(), Options{Prometheus: true})
	require.NoError(t, err)

	s := NewServer(p, 0)
	addr, err := s.Start(func(err error) { t.Errorf("serve: %v", err) })
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", addr.(*net.TCPAddr).Port))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
}

func TestProvider_HandlerWithoutPrometheus(t *testing.T) {
	p := &Provider{}
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
