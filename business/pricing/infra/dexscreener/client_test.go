package dexscreener

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

const searchBody = `{"schemaVersion":"1.0.0","pairs":[
 {"chainId":"ethereum","dexId":"uniswap","pairAddress":"0xshallow",
  "baseToken":{"symbol":"WETH"},"quoteToken":{"symbol":"USDC"},
  "priceNative":"2990.0","liquidity":{"usd":1000},"volume":{"h24":50}},
 {"chainId":"ethereum","dexId":"uniswap","pairAddress":"0xdeep",
  "baseToken":{"symbol":"WETH"},"quoteToken":{"symbol":"USDC"},
  "priceNative":"3001.5","liquidity":{"usd":98000000.25},"volume":{"h24":1200000}},
 {"chainId":"ethereum","dexId":"sushiswap","pairAddress":"0xother",
  "baseToken":{"symbol":"PEPE"},"quoteToken":{"symbol":"USDC"},
  "priceNative":"0.000001","liquidity":{"usd":999999999},"volume":{"h24":1}}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(config.VenueConfig{
		Enabled:           true,
		BaseURL:           server.URL,
		Timeout:           time.Second,
		RequestsPerMinute: 6000,
	}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_GetPricePicksDeepestPool(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dex/search", r.URL.Path)
		assert.Equal(t, "ETH USDC", r.URL.Query().Get("q"))
		w.Write([]byte(searchBody))
	})

	p, err := c.GetPrice(context.Background(), domain.MustParseMarketPair("ETH/USDC"))
	require.NoError(t, err)

	assert.True(t, p.Price.Equal(decimal.RequireFromString("3001.5")))
	assert.True(t, p.Liquidity.Equal(decimal.RequireFromString("98000000.25")))
	assert.True(t, p.Volume24h.Equal(decimal.NewFromInt(1200000)))
	assert.Equal(t, domain.ExchangeDEX, p.Type)
}

func TestClient_NoMatchingPool(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchBody))
	})

	_, err := c.GetPrice(context.Background(), domain.MustParseMarketPair("SOL/USDT"))
	require.Error(t, err)
	assert.Equal(t, apperror.CodeVenuePairNotFound, apperror.GetCode(err))
}

func TestClient_TokenPairs(t *testing.T) {
	const addr = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dex/tokens/"+addr, r.URL.Path)
		w.Write([]byte(searchBody))
	})

	pools, err := c.TokenPairs(context.Background(), addr)
	require.NoError(t, err)
	assert.Len(t, pools, 3)
}

func TestBestPool_Empty(t *testing.T) {
	_, ok := BestPool(nil, domain.MustParseMarketPair("ETH/USDC"))
	assert.False(t, ok)
}
