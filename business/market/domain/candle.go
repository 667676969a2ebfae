// Package domain contains OHLCV candles, trade ticks, market snapshots and
// technical indicators.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe is a candle width.
type Timeframe string

const (
	M1  Timeframe = "1m"
	M5  Timeframe = "5m"
	M15 Timeframe = "15m"
	M30 Timeframe = "30m"
	H1  Timeframe = "1h"
	H4  Timeframe = "4h"
	D1  Timeframe = "1d"
)

var seconds = map[Timeframe]int64{
	M1: 60, M5: 300, M15: 900, M30: 1800, H1: 3600, H4: 14400, D1: 86400,
}

// Tracked are the timeframes every trade updates.
var Tracked = []Timeframe{M1, M5, M15, H1, D1}

// Seconds is the candle width in seconds.
func (tf Timeframe) Seconds() int64 { return seconds[tf] }

// Start aligns ts to the beginning of its candle.
func (tf Timeframe) Start(ts time.Time) time.Time {
	s := tf.Seconds()
	return time.Unix(ts.Unix()/s*s, 0).UTC()
}

// ParseTimeframe accepts "1m", "1M", "M1", "1H" and the like.
func ParseTimeframe(s string) (Timeframe, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if len(norm) >= 2 && (norm[0] == 'm' || norm[0] == 'h' || norm[0] == 'd') {
		norm = norm[1:] + norm[:1]
	}
	tf := Timeframe(norm)
	if _, ok := seconds[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// Side is the aggressor side of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Tick is one observed trade or price print.
type Tick struct {
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Side      Side            `json:"side"`
	Exchange  string          `json:"exchange"`
	Timestamp time.Time       `json:"timestamp"`
}

// Candle is an OHLCV bar starting at Start.
type Candle struct {
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
	Start  time.Time       `json:"timestamp"`
}

// NewCandle opens a bar from its first tick.
func NewCandle(start time.Time, t Tick) Candle {
	return Candle{Open: t.Price, High: t.Price, Low: t.Price, Close: t.Price, Volume: t.Amount, Start: start}
}

// Apply folds a later tick into the bar.
func (c *Candle) Apply(t Tick) {
	c.High = decimal.Max(c.High, t.Price)
	c.Low = decimal.Min(c.Low, t.Price)
	c.Close = t.Price
	c.Volume = c.Volume.Add(t.Amount)
}

// Snapshot is a top-of-book view of a symbol.
type Snapshot struct {
	Symbol    string          `json:"symbol"`
	Exchange  string          `json:"exchange,omitempty"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Last      decimal.Decimal `json:"last_price"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	Timestamp time.Time       `json:"timestamp"`
}

// Closes extracts close prices as floats for the indicator math.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close.InexactFloat64()
	}
	return out
}

// Volumes extracts candle volumes as floats.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume.InexactFloat64()
	}
	return out
}
