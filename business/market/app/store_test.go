package app

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/business/market/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(h, m, s int) time.Time { return time.Date(2026, 10, 19, h, m, s, 0, time.UTC) }

func tick(price, amount string, ts time.Time) domain.Tick {
	return domain.Tick{Price: d(price), Amount: d(amount), Timestamp: ts}
}

func TestStore_AddTradeBuildsCandles(t *testing.T) {
	s := NewStore(Limits{})
	s.AddTrade("eth/usdc", tick("100", "1", at(12, 0, 10)))
	s.AddTrade("ETH/USDC", tick("105", "2", at(12, 0, 50)))
	s.AddTrade("ETH/USDC", tick("95", "1", at(12, 1, 5)))

	wantM1 := []domain.Candle{
		{Open: d("100"), High: d("105"), Low: d("100"), Close: d("105"), Volume: d("3"), Start: at(12, 0, 0)},
		{Open: d("95"), High: d("95"), Low: d("95"), Close: d("95"), Volume: d("1"), Start: at(12, 1, 0)},
	}
	if diff := cmp.Diff(wantM1, s.Candles("ETH/USDC", domain.M1, 0), decimalEqual); diff != "" {
		t.Errorf("M1 candles mismatch (-want +got):\n%s", diff)
	}

	wantM5 := []domain.Candle{
		{Open: d("100"), High: d("105"), Low: d("95"), Close: d("95"), Volume: d("4"), Start: at(12, 0, 0)},
	}
	if diff := cmp.Diff(wantM5, s.Candles("ETH/USDC", domain.M5, 0), decimalEqual); diff != "" {
		t.Errorf("M5 candles mismatch (-want +got):\n%s", diff)
	}

	last := s.Candles("ETH/USDC", domain.M1, 1)
	require.Len(t, last, 1)
	assert.True(t, last[0].Close.Equal(d("95")))

	assert.Empty(t, s.Candles("ETH/USDC", domain.M30, 0), "M30 is not tracked")
	assert.Nil(t, s.Candles("BTC/USDC", domain.M1, 0))
	assert.Equal(t, []string{"ETH/USDC"}, s.Symbols())
}

func TestStore_Limits(t *testing.T) {
	s := NewStore(Limits{MaxCandles: 2, MaxTicks: 2, MaxSnapshots: 2})
	for i, price := range []string{"1", "2", "3"} {
		s.AddTrade("SOL/USDC", tick(price, "1", at(12, i, 0)))
		s.AddSnapshot(domain.Snapshot{Symbol: "sol/usdc", Last: d(price)})
	}

	want := []domain.Candle{
		{Open: d("2"), High: d("2"), Low: d("2"), Close: d("2"), Volume: d("1"), Start: at(12, 1, 0)},
		{Open: d("3"), High: d("3"), Low: d("3"), Close: d("3"), Volume: d("1"), Start: at(12, 2, 0)},
	}
	if diff := cmp.Diff(want, s.Candles("SOL/USDC", domain.M1, 10), decimalEqual); diff != "" {
		t.Errorf("candles mismatch (-want +got):\n%s", diff)
	}

	ticks := s.Ticks("SOL/USDC", 0)
	require.Len(t, ticks, 2)
	assert.True(t, ticks[0].Price.Equal(d("2")))

	snap, ok := s.LatestSnapshot("SOL/USDC")
	require.True(t, ok)
	assert.True(t, snap.Last.Equal(d("3")))

	_, ok = s.LatestSnapshot("BTC/USDC")
	assert.False(t, ok)
}

func TestStore_Indicators(t *testing.T) {
	s := NewStore(Limits{})

	_, err := s.Indicators("ETH/USDC", domain.M1)
	assert.Equal(t, apperror.CodeSymbolNotFound, apperror.GetCode(err))

	for i := 0; i < 25; i++ {
		s.AddTrade("ETH/USDC", tick("100", "1", at(10, i, 0)))
	}
	ind, err := s.Indicators("eth/usdc", domain.M1)
	require.NoError(t, err)
	assert.Equal(t, "ETH/USDC", ind.Symbol)
	assert.Equal(t, 25, ind.Candles)
	assert.InDelta(t, 100, ind.SMA20, 1e-9)
	assert.Equal(t, 100.0, ind.RSI14)
	assert.InDelta(t, 100, ind.Bollinger.Upper, 1e-9)
}

type stubPrices struct {
	refreshed time.Time
	prices    []pricingDomain.ExchangePrice
}

func (s *stubPrices) Prices(pair string) []pricingDomain.ExchangePrice { return s.prices }
func (s *stubPrices) LastRefresh() time.Time                           { return s.refreshed }

func TestRecorder_Record(t *testing.T) {
	pair := pricingDomain.MustParseMarketPair("ETH/USDC")
	p := pricingDomain.NewExchangePrice("kraken", pricingDomain.ExchangeCEX, pair, d("3400"))
	p.Timestamp = at(12, 0, 0)
	src := &stubPrices{prices: []pricingDomain.ExchangePrice{p}}

	s := NewStore(Limits{})
	r := NewRecorder(s, src, []string{"ETH/USDC"}, logger.NewNop())

	assert.Zero(t, r.Record(), "nothing refreshed yet")

	src.refreshed = at(12, 0, 1)
	assert.Equal(t, 1, r.Record())
	assert.Zero(t, r.Record(), "same refresh twice")

	snap, ok := s.LatestSnapshot(pair.String())
	require.True(t, ok)
	assert.Equal(t, "kraken", snap.Exchange)
	assert.True(t, snap.Bid.Equal(d("3400")))
	assert.Len(t, s.Candles(pair.String(), domain.M1, 0), 1)
}

func TestBounded_TrimsWithoutShifting(t *testing.T) {
	items := make([]int, 5, 8)
	for i := range items {
		items[i] = i
	}
	kept := bounded(items, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, kept)
	assert.Same(t, &items[1], &kept[0], "trim must reslice, not copy")

	var series []int
	for i := range 10_000 {
		series = bounded(append(series, i), 100)
	}
	require.Len(t, series, 100)
	assert.Equal(t, 9_900, series[0])
	assert.Equal(t, 9_999, series[99])
	assert.LessOrEqual(t, cap(series), 400, "backing array stays proportional to the limit")
}

func TestStore_TickCapKeepsNewest(t *testing.T) {
	s := NewStore(Limits{MaxTicks: 3})
	for i := range 10 {
		s.AddTrade("ETH/USDC", tick("100", "1", at(12, 0, i)))
	}
	ticks := s.Ticks("ETH/USDC", 0)
	require.Len(t, ticks, 3)
	assert.Equal(t, at(12, 0, 7), ticks[0].Timestamp)
	assert.Equal(t, at(12, 0, 9), ticks[2].Timestamp)
}
