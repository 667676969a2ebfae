package domain

import "math"

const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerWidth  = 2.0

	rsiOversold   = 30
	rsiOverbought = 70
)

// SMA is the mean of the last period values, or 0 without enough data.
func SMA(data []float64, period int) float64 {
	if period <= 0 || len(data) < period {
		return 0
	}
	var sum float64
	for _, v := range data[len(data)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA seeds with the first value and smooths with 2/(period+1).
func EMA(data []float64, period int) float64 {
	if len(data) == 0 {
		return 0
	}
	k := 2 / (float64(period) + 1)
	ema := data[0]
	for _, v := range data[1:] {
		ema = (v-ema)*k + ema
	}
	return ema
}

// RSI over the last period changes. 50 without enough data, 100 when the
// window has no losses.
func RSI(data []float64, period int) float64 {
	if period <= 0 || len(data) < period+1 {
		return 50
	}
	var gains, losses float64
	for i := len(data) - period; i < len(data); i++ {
		change := data[i] - data[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		return 100
	}
	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - 100/(1+rs)
}

// MACDResult is the MACD line, its signal and their difference.
type MACDResult struct {
	Line      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD approximates the signal line as 0.9 of the MACD line; no signal
// EMA is kept across calls.
func MACD(data []float64, fast, slow, _ int) MACDResult {
	line := EMA(data, fast) - EMA(data, slow)
	signal := line * 0.9
	return MACDResult{Line: line, Signal: signal, Histogram: line - signal}
}

// Bands are Bollinger bands around the SMA.
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Bollinger returns SMA ± width population standard deviations, or zero
// bands without enough data.
func Bollinger(data []float64, period int, width float64) Bands {
	if period <= 0 || len(data) < period {
		return Bands{}
	}
	mid := SMA(data, period)
	var variance float64
	for _, v := range data[len(data)-period:] {
		variance += (v - mid) * (v - mid)
	}
	std := math.Sqrt(variance / float64(period))
	return Bands{Upper: mid + width*std, Middle: mid, Lower: mid - width*std}
}

// Signal is a coarse trading hint.
type Signal string

const (
	SignalBuy     Signal = "buy"
	SignalSell    Signal = "sell"
	SignalNeutral Signal = "neutral"
)

// Indicators is the indicator set served per symbol.
type Indicators struct {
	Symbol     string     `json:"symbol"`
	Timeframe  Timeframe  `json:"timeframe"`
	Candles    int        `json:"candles"`
	Close      float64    `json:"close"`
	SMA20      float64    `json:"sma_20"`
	EMA12      float64    `json:"ema_12"`
	RSI14      float64    `json:"rsi_14"`
	RSISignal  Signal     `json:"rsi_signal"`
	MACD       MACDResult `json:"macd"`
	MACDSignal Signal     `json:"macd_signal"`
	Bollinger  Bands      `json:"bollinger"`
}

// Compute builds the indicator set from closes, oldest first.
func Compute(symbol string, tf Timeframe, closes []float64) Indicators {
	ind := Indicators{
		Symbol:    symbol,
		Timeframe: tf,
		Candles:   len(closes),
		SMA20:     SMA(closes, BollingerPeriod),
		EMA12:     EMA(closes, MACDFast),
		RSI14:     RSI(closes, RSIPeriod),
		MACD:      MACD(closes, MACDFast, MACDSlow, MACDSignal),
		Bollinger: Bollinger(closes, BollingerPeriod, BollingerWidth),
	}
	if len(closes) > 0 {
		ind.Close = closes[len(closes)-1]
	}

	switch {
	case ind.RSI14 < rsiOversold:
		ind.RSISignal = SignalBuy
	case ind.RSI14 > rsiOverbought:
		ind.RSISignal = SignalSell
	default:
		ind.RSISignal = SignalNeutral
	}
	switch {
	case ind.MACD.Histogram > 0:
		ind.MACDSignal = SignalBuy
	case ind.MACD.Histogram < 0:
		ind.MACDSignal = SignalSell
	default:
		ind.MACDSignal = SignalNeutral
	}
	return ind
}
