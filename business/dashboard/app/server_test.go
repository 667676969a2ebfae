package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/internal/logger"
)

func TestServer_ThrottlesPerClient(t *testing.T) {
	h := NewHandler(Deps{}, Defaults{CrossChainAmount: decimal.NewFromInt(1)}, logger.NewNop())
	s := NewServer(ServerConfig{RequestsPerMinute: 10}, h, logger.NewNop()) // burst of one
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	status, _ := do(t, http.MethodGet, srv.URL+"/api/v1/stats", "")
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, http.MethodGet, srv.URL+"/api/v1/stats", "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
}

func TestServer_UnlimitedByDefault(t *testing.T) {
	h := NewHandler(Deps{}, Defaults{}, logger.NewNop())
	s := NewServer(ServerConfig{}, h, logger.NewNop())

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	for range 20 {
		status, _ := do(t, http.MethodGet, srv.URL+"/api/v1/stats", "")
		require.Equal(t, http.StatusOK, status)
	}
}
