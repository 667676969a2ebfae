package geckoterminal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/logger"
)

const pool = "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(config.GeckoTerminalConfig{
		VenueConfig: config.VenueConfig{
			Enabled:           true,
			BaseURL:           server.URL,
			Timeout:           time.Second,
			RequestsPerMinute: 6000,
		},
		Network: "eth",
		Pools:   map[string]string{"eth-usdc": pool},
	}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_GetPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/networks/eth/pools/"+pool, r.URL.Path)
		w.Write([]byte(`{"data":{"id":"eth_` + pool + `","attributes":{
			"name":"WETH / USDC 0.05%",
			"base_token_price_usd":"3002.11",
			"base_token_price_quote_token":"3001.75",
			"reserve_in_usd":"250000000.5",
			"volume_usd":{"h24":"91000000"}}}}`))
	})

	p, err := c.GetPrice(context.Background(), domain.MustParseMarketPair("ETH/USDC"))
	require.NoError(t, err)

	assert.Equal(t, domain.ExchangeDEX, p.Type)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("3001.75")))
	assert.True(t, p.Liquidity.Equal(decimal.RequireFromString("250000000.5")))
	assert.True(t, p.Volume24h.Equal(decimal.NewFromInt(91000000)))
	assert.True(t, p.TakerFee.Equal(decimal.RequireFromString("0.003")))
}

func TestClient_FallsBackToUSDPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"attributes":{"base_token_price_usd":"2999.5","reserve_in_usd":"1","volume_usd":{"h24":"1"}}}}`))
	})

	p, err := c.GetPrice(context.Background(), domain.MustParseMarketPair("ETH/USDC"))
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("2999.5")))
}

func TestClient_UntrackedPair(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.GetPrice(context.Background(), domain.MustParseMarketPair("SOL/USDC"))
	require.Error(t, err)
	assert.Equal(t, apperror.CodeVenuePairNotFound, apperror.GetCode(err))

	prices, err := c.GetPrices(context.Background(), []domain.MarketPair{domain.MustParseMarketPair("SOL/USDC")})
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestClient_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GetPrice(context.Background(), domain.MustParseMarketPair("ETH/USDC"))
	require.Error(t, err)
	assert.Equal(t, apperror.CodeGeckoTerminalAPIError, apperror.GetCode(err))
}
