package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crosschainDomain "github.com/fd1az/dexter/business/crosschain/domain"
	flashloanDomain "github.com/fd1az/dexter/business/flashloan/domain"
	marketApp "github.com/fd1az/dexter/business/market/app"
	marketDomain "github.com/fd1az/dexter/business/market/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	streamingDomain "github.com/fd1az/dexter/business/streaming/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/asset"
	"github.com/fd1az/dexter/internal/logger"
)

type stubOpportunities struct {
	opps []pricingDomain.CrossVenueOpportunity
}

func (s stubOpportunities) TopOpportunities(n int) []pricingDomain.CrossVenueOpportunity {
	return s.opps[:min(n, len(s.opps))]
}

func (s stubOpportunities) Prices(pair string) []pricingDomain.ExchangePrice {
	return []pricingDomain.ExchangePrice{
		pricingDomain.NewExchangePrice("kraken", pricingDomain.ExchangeCEX, pricingDomain.MustParseMarketPair(pair), decimal.NewFromInt(150)),
	}
}

type stubFlashLoans struct{}

func (stubFlashLoans) Simulate(ctx context.Context, req flashloanDomain.Request) (*flashloanDomain.SimulationResult, error) {
	if req.Provider != "aave" {
		return nil, apperror.NotFound(apperror.CodeFlashLoanProviderNotFound, req.Provider)
	}
	return &flashloanDomain.SimulationResult{}, nil
}

func (stubFlashLoans) Stats() flashloanDomain.Stats { return flashloanDomain.Stats{Total: 3} }

type stubRoutes struct {
	token  string
	amount decimal.Decimal
	minPct decimal.Decimal
}

func (s *stubRoutes) FindOpportunities(ctx context.Context, token string, amount, minProfitPct decimal.Decimal) []crosschainDomain.Route {
	s.token, s.amount, s.minPct = token, amount, minProfitPct
	return []crosschainDomain.Route{{ID: "r1", Token: token, Amount: amount}}
}

func (s *stubRoutes) Prices(token string) []crosschainDomain.TokenPrice { return nil }

type stubStream struct{}

func (stubStream) Stats() streamingDomain.Stats {
	return streamingDomain.Stats{ConnectedClients: 2, MessagesSent: 40}
}

type stubBook struct{}

func (stubBook) GetOrderbook(ctx context.Context, pair pricingDomain.Pair) (*pricingDomain.Orderbook, error) {
	if pair.Base.Symbol() == "WBTC" {
		return nil, errors.New("binance unreachable")
	}
	amt, _ := asset.ParseDecimal(pair.Base, decimal.NewFromInt(2))
	return &pricingDomain.Orderbook{
		Pair: pair,
		Bids: []pricingDomain.OrderbookLevel{{Price: decimal.NewFromInt(3399), Amount: amt}},
		Asks: []pricingDomain.OrderbookLevel{{Price: decimal.NewFromInt(3401), Amount: amt}},
	}, nil
}

func newTestServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	h := NewHandler(deps, Defaults{CrossChainAmount: decimal.NewFromInt(10000), CrossChainMinPct: decimal.RequireFromString("0.5")}, logger.NewNop())
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHandler_Opportunities(t *testing.T) {
	srv := newTestServer(t, Deps{Opportunities: stubOpportunities{opps: []pricingDomain.CrossVenueOpportunity{
		{ID: "a", Pair: "SOL/USDC"}, {ID: "b", Pair: "ETH/USDC"},
	}}})

	status, body := do(t, http.MethodGet, srv.URL+"/api/v1/opportunities?n=1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["opportunities"], 1)

	status, body = do(t, http.MethodGet, srv.URL+"/api/v1/opportunities?n=abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_QUERY_PARAM", body["code"])
	assert.Contains(t, body["error"], "n=abc")

	status, body = do(t, http.MethodGet, srv.URL+"/api/v1/prices/sol-usdc", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "SOL/USDC", body["pair"])
}

func TestHandler_ModuleNotLoaded(t *testing.T) {
	srv := newTestServer(t, Deps{})

	for _, path := range []string{"/api/v1/opportunities", "/api/v1/mev-threats", "/api/v1/pools/best", "/api/v1/risk/metrics", "/api/v1/features/ETH-USDC"} {
		status, body := do(t, http.MethodGet, srv.URL+path, "")
		assert.Equal(t, http.StatusServiceUnavailable, status, path)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body["code"], path)
	}
}

func TestHandler_SimulateFlashLoan(t *testing.T) {
	srv := newTestServer(t, Deps{FlashLoans: stubFlashLoans{}})

	status, _ := do(t, http.MethodPost, srv.URL+"/api/v1/simulate-flashloan",
		`{"provider":"aave","strategy":"arbitrage","token":"USDC","amount":"100000"}`)
	assert.Equal(t, http.StatusOK, status)

	status, body := do(t, http.MethodPost, srv.URL+"/api/v1/simulate-flashloan", `{"provider":"nope"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "FLASHLOAN_PROVIDER_NOT_FOUND", body["code"])

	status, body = do(t, http.MethodPost, srv.URL+"/api/v1/simulate-flashloan", `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST_BODY", body["code"])
}

func TestHandler_Indicators(t *testing.T) {
	store := marketApp.NewStore(marketApp.Limits{})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 30 {
		store.AddTrade("SOL/USDC", marketDomain.Tick{
			Price:     decimal.NewFromInt(int64(100 + i)),
			Exchange:  "jupiter",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		})
	}
	srv := newTestServer(t, Deps{Indicators: store})

	status, body := do(t, http.MethodGet, srv.URL+"/api/v1/indicators/SOL-USDC", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1h", body["timeframe"])
	assert.EqualValues(t, 30, body["candles"])

	status, body = do(t, http.MethodGet, srv.URL+"/api/v1/indicators/BTC-USDC", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "SYMBOL_NOT_FOUND", body["code"])

	status, body = do(t, http.MethodGet, srv.URL+"/api/v1/indicators/SOL-USDC?timeframe=2w", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_TIMEFRAME", body["code"])
}

func TestHandler_FeaturesAndBacktest(t *testing.T) {
	store := marketApp.NewStore(marketApp.Limits{})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 60 {
		store.AddTrade("ETH/USDC", marketDomain.Tick{
			Price:     decimal.NewFromInt(int64(3000 + 10*i)),
			Amount:    decimal.NewFromInt(1),
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		})
	}
	srv := newTestServer(t, Deps{Indicators: store, Backtests: store})

	status, body := do(t, http.MethodGet, srv.URL+"/api/v1/features/ETH-USDC", "")
	require.Equal(t, http.StatusOK, status)
	features, ok := body["features"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 3545.0, features["sma_10"], 1e-9)

	status, body = do(t, http.MethodPost, srv.URL+"/api/v1/backtest",
		`{"symbol":"ETH-USDC","timeframe":"1h","initial_balance":"10000","trade_amount":"1"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ETH/USDC", body["symbol"])
	assert.EqualValues(t, 60, body["candles"])
	assert.EqualValues(t, 0, body["total_trades"])

	status, body = do(t, http.MethodPost, srv.URL+"/api/v1/backtest", `{"symbol":"ETH-USDC","initial_balance":"0","trade_amount":"1"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_BACKTEST_CONFIG", body["code"])
}

func TestHandler_CrossChainDefaults(t *testing.T) {
	routes := &stubRoutes{}
	srv := newTestServer(t, Deps{Routes: routes})

	status, body := do(t, http.MethodGet, srv.URL+"/api/v1/crosschain/opportunities", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "USDC", routes.token)
	assert.True(t, routes.amount.Equal(decimal.NewFromInt(10000)))
	assert.True(t, routes.minPct.Equal(decimal.RequireFromString("0.5")))
	assert.Len(t, body["opportunities"], 1)

	_, _ = do(t, http.MethodGet, srv.URL+"/api/v1/crosschain/opportunities?token=sol&amount=250", "")
	assert.Equal(t, "SOL", routes.token)
	assert.True(t, routes.amount.Equal(decimal.NewFromInt(250)))

	status, body = do(t, http.MethodGet, srv.URL+"/api/v1/crosschain/opportunities?amount=-1", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_QUERY_PARAM", body["code"])
}

func TestHandler_MarketDepth(t *testing.T) {
	depth := NewOrderbookDepth(stubBook{}, asset.DefaultRegistry(), asset.ChainIDEthereum, "binance")
	srv := newTestServer(t, Deps{Depth: depth})

	status, body := do(t, http.MethodGet, srv.URL+"/api/v1/market-depth/ETH-USDC", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ETH/USDC", body["pair"])
	assert.Equal(t, "3400", body["mid"])

	status, body = do(t, http.MethodGet, srv.URL+"/api/v1/market-depth/DOGE-USDC", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "VENUE_PAIR_NOT_FOUND", body["code"])

	status, _ = do(t, http.MethodGet, srv.URL+"/api/v1/market-depth/WBTC-USDC", "")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestHandler_Stats(t *testing.T) {
	srv := newTestServer(t, Deps{FlashLoans: stubFlashLoans{}, Stream: stubStream{}})

	status, body := do(t, http.MethodGet, srv.URL+"/api/v1/stats", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "uptime_seconds")
	assert.Contains(t, body, "flashloans")
	assert.NotContains(t, body, "mev")

	stream, ok := body["streaming"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, stream["connected_clients"])
}
