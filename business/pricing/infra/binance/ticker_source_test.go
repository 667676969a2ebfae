package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/logger"
)

func TestTickerSource_GetPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/24hr" {
			t.Errorf("expected path /api/v3/ticker/24hr, got %s", r.URL.Path)
		}
		switch r.URL.Query().Get("symbol") {
		case "ETHUSDC":
			w.Write([]byte(`{"symbol":"ETHUSDC","lastPrice":"3400.10","bidPrice":"3400.00","askPrice":"3400.20","volume":"1000","quoteVolume":"3400100.5"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		}
	}))
	defer server.Close()

	src, err := NewTickerSource(config.VenueConfig{
		BaseURL:           server.URL,
		Timeout:           time.Second,
		RequestsPerMinute: 6000,
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewTickerSource: %v", err)
	}
	defer src.Close()

	prices, err := src.GetPrices(context.Background(), []domain.MarketPair{
		domain.MustParseMarketPair("ETH/USDC"),
		domain.MustParseMarketPair("FOO/BAR"),
	})
	if err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if len(prices) != 1 {
		t.Fatalf("expected 1 price, got %d", len(prices))
	}

	p := prices[0]
	if !p.Bid.Equal(decimal.RequireFromString("3400")) {
		t.Errorf("bid = %s", p.Bid)
	}
	if !p.Ask.Equal(decimal.RequireFromString("3400.2")) {
		t.Errorf("ask = %s", p.Ask)
	}
	if !p.Volume24h.Equal(decimal.RequireFromString("3400100.5")) {
		t.Errorf("volume = %s", p.Volume24h)
	}
	if !p.TakerFee.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("taker fee = %s", p.TakerFee)
	}
	if p.Type != domain.ExchangeCEX {
		t.Errorf("type = %s", p.Type)
	}
}
