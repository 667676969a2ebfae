package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/asset"
	"github.com/fd1az/dexter/internal/logger"
)

var ethUSDC = domain.NewPair(asset.ETH, asset.USDC)

const depthBody = `{"lastUpdateId":12345,
	"bids":[["3400.50","10.5"],["3400.00","20.0"],["3399.50","0"]],
	"asks":[["3401.00","8.0"],["3401.50","12.0"]]}`

func depthServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != depthEndpoint {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "ETHUSDC" {
			t.Errorf("symbol = %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(depthBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, restURL string) (*Provider, *time.Time) {
	t.Helper()
	p, err := NewProvider(ProviderConfig{
		HTTPURL:        restURL,
		Symbols:        []string{"ETHUSDC"},
		StaleTimeout:   5 * time.Second,
		EnableFallback: restURL != "",
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	return p, &now
}

func TestProvider_GetOrderbookSources(t *testing.T) {
	var calls atomic.Int32
	p, now := newTestProvider(t, depthServer(t, &calls).URL)
	ctx := context.Background()

	// Nothing streamed yet: REST snapshot.
	ob, err := p.GetOrderbook(ctx, ethUSDC)
	if err != nil {
		t.Fatalf("GetOrderbook: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("REST calls = %d, want 1", calls.Load())
	}
	if len(ob.Bids) != 2 {
		t.Errorf("bids = %d, want 2 (zero qty level dropped)", len(ob.Bids))
	}
	if !ob.Asks[0].Price.Equal(decimal.RequireFromString("3401")) {
		t.Errorf("best ask = %s", ob.Asks[0].Price)
	}

	// A streamed snapshot is served without REST while fresh.
	p.applyDepth(&Depth{
		Symbol: "ETHUSDC",
		Bids:   [][]string{{"3500", "1"}},
		Asks:   [][]string{{"3501", "1"}},
	})
	ob, err = p.GetOrderbook(ctx, ethUSDC)
	if err != nil {
		t.Fatalf("GetOrderbook: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("REST used while stream was fresh")
	}
	if !ob.Bids[0].Price.Equal(decimal.NewFromInt(3500)) {
		t.Errorf("best bid = %s, want streamed 3500", ob.Bids[0].Price)
	}

	// Once stale, REST again.
	*now = now.Add(6 * time.Second)
	ob, err = p.GetOrderbook(ctx, ethUSDC)
	if err != nil {
		t.Fatalf("GetOrderbook: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("REST calls = %d, want 2", calls.Load())
	}
	if !ob.Bids[0].Price.Equal(decimal.RequireFromString("3400.5")) {
		t.Errorf("best bid = %s, want REST 3400.5", ob.Bids[0].Price)
	}
}

func TestProvider_StaleWithoutFallback(t *testing.T) {
	p, _ := newTestProvider(t, "")

	_, err := p.GetOrderbook(context.Background(), ethUSDC)
	if apperror.GetCode(err) != apperror.CodeCacheExpired {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeCacheExpired)
	}
}

func TestProvider_UnsubscribedSymbol(t *testing.T) {
	p, _ := newTestProvider(t, "")

	_, err := p.GetOrderbook(context.Background(), domain.NewPair(asset.WBTC, asset.USDC))
	if apperror.GetCode(err) != apperror.CodeNotFound {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeNotFound)
	}
}

func TestProvider_BookTickerKeepsDepth(t *testing.T) {
	p, _ := newTestProvider(t, "")
	p.applyDepth(&Depth{
		Symbol: "ETHUSDC",
		Bids:   [][]string{{"3399", "1"}, {"3398", "2"}},
		Asks:   [][]string{{"3401", "1"}, {"3403", "1"}},
	})
	p.applyBookTicker(&BookTicker{Symbol: "ETHUSDC", BidPrice: "3399.5", BidQty: "0.5", AskPrice: "3400.5", AskQty: "0.25"})

	ob, err := p.GetOrderbook(context.Background(), ethUSDC)
	if err != nil {
		t.Fatalf("GetOrderbook: %v", err)
	}
	if len(ob.Bids) != 2 || len(ob.Asks) != 2 {
		t.Fatalf("levels = %d/%d, want 2/2", len(ob.Bids), len(ob.Asks))
	}
	if !ob.Bids[0].Price.Equal(decimal.RequireFromString("3399.5")) || !ob.Asks[0].Price.Equal(decimal.RequireFromString("3400.5")) {
		t.Errorf("top = %s/%s", ob.Bids[0].Price, ob.Asks[0].Price)
	}
	if !ob.Bids[1].Price.Equal(decimal.NewFromInt(3398)) {
		t.Errorf("second bid = %s", ob.Bids[1].Price)
	}
}

func TestProvider_GetEffectivePrice(t *testing.T) {
	p, _ := newTestProvider(t, "")
	p.applyDepth(&Depth{
		Symbol: "ETHUSDC",
		Bids:   [][]string{{"3399", "1"}},
		Asks:   [][]string{{"3401", "1"}, {"3403", "1"}},
	})

	price, err := p.GetEffectivePrice(context.Background(), ethUSDC, decimal.NewFromInt(2), domain.SideBuy)
	if err != nil {
		t.Fatalf("GetEffectivePrice: %v", err)
	}
	if !price.Rate.Rate().Equal(decimal.NewFromInt(3402)) {
		t.Errorf("avg = %s, want 3402", price.Rate.Rate())
	}
	if price.Source != "binance" || price.Side != domain.SideBuy {
		t.Errorf("source=%s side=%s", price.Source, price.Side)
	}
}

func TestStream_Dispatch(t *testing.T) {
	s := NewStream(StreamConfig{Symbols: []string{"ETHUSDC"}}, logger.NewNop())
	var tickers, depths int
	var depthSymbol string
	s.OnBookTicker(func(bt *BookTicker) {
		tickers++
		if bt.BidPrice != "3400.10" {
			t.Errorf("bid = %s", bt.BidPrice)
		}
	})
	s.OnDepth(func(d *Depth) {
		depths++
		depthSymbol = d.Symbol
	})

	ctx := context.Background()
	s.dispatch(ctx, []byte(`{"stream":"ethusdc@bookTicker","data":{"u":1,"s":"ETHUSDC","b":"3400.10","B":"1","a":"3400.20","A":"2"}}`))
	s.dispatch(ctx, []byte(`{"stream":"ethusdc@depth20@100ms","data":{"lastUpdateId":7,"bids":[["1","1"]],"asks":[["2","1"]]}}`))
	s.dispatch(ctx, []byte(`{"result":null,"id":3}`))
	s.dispatch(ctx, []byte(`not json`))

	if tickers != 1 || depths != 1 {
		t.Errorf("tickers=%d depths=%d, want 1/1", tickers, depths)
	}
	if depthSymbol != "ETHUSDC" {
		t.Errorf("depth symbol = %q", depthSymbol)
	}
}

func TestStream_URL(t *testing.T) {
	s := NewStream(StreamConfig{Symbols: []string{"ETHUSDC", "BTCUSDT"}}, logger.NewNop())
	got, err := s.URL()
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	want := "wss://stream.binance.com:9443/stream?streams=ethusdc@bookTicker/ethusdc@depth20@100ms/btcusdt@bookTicker/btcusdt@depth20@100ms"
	if got != want {
		t.Errorf("URL =\n%s\nwant\n%s", got, want)
	}

	_, err = NewStream(StreamConfig{}, logger.NewNop()).URL()
	if apperror.GetCode(err) != apperror.CodeConfigurationError {
		t.Errorf("empty symbols code = %s", apperror.GetCode(err))
	}
}

func TestDepthLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 5}, {5, 5}, {15, 20}, {20, 20}, {101, 500}, {9999, 5000},
	}
	for _, tt := range tests {
		if got := depthLimit(tt.in); got != tt.want {
			t.Errorf("depthLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHTTPClient_GetDepthAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "20" {
			t.Errorf("limit = %s, want 20", got)
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	_, err = c.GetDepth(context.Background(), "INVALID", 15)
	if apperror.GetCode(err) != apperror.CodeBinanceAPIError {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeBinanceAPIError)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != -1121 {
		t.Errorf("expected APIError -1121, got %v", err)
	}
}
