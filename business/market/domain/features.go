package domain

import "math"

const (
	// MinFeatureCandles is the history ExtractFeatures needs.
	MinFeatureCandles = 50

	momentumPeriod = 10
)

// Features is the model input derived from one candle series.
type Features struct {
	SMA10       float64    `json:"sma_10"`
	SMA20       float64    `json:"sma_20"`
	SMA50       float64    `json:"sma_50"`
	RSI14       float64    `json:"rsi_14"`
	MACD        MACDResult `json:"macd"`
	Bollinger   Bands      `json:"bollinger"`
	VolumeSMA10 float64    `json:"volume_sma_10"`
	VolumeRatio float64    `json:"volume_ratio"`
	Momentum10  float64    `json:"momentum_10"`
	Volatility  float64    `json:"volatility"`
}

// ExtractFeatures derives Features from candles, oldest first. ok is false
// with fewer than MinFeatureCandles candles.
func ExtractFeatures(candles []Candle) (f Features, ok bool) {
	if len(candles) < MinFeatureCandles {
		return Features{}, false
	}
	closes := Closes(candles)
	volumes := Volumes(candles)
	last := len(closes) - 1

	f = Features{
		SMA10:       SMA(closes, 10),
		SMA20:       SMA(closes, 20),
		SMA50:       SMA(closes, 50),
		RSI14:       RSI(closes, RSIPeriod),
		MACD:        MACD(closes, MACDFast, MACDSlow, MACDSignal),
		Bollinger:   Bollinger(closes, BollingerPeriod, BollingerWidth),
		VolumeSMA10: SMA(volumes, 10),
		Volatility:  Volatility(closes),
	}
	if f.VolumeSMA10 > 0 {
		f.VolumeRatio = volumes[last] / f.VolumeSMA10
	}
	if base := closes[len(closes)-momentumPeriod]; base != 0 {
		f.Momentum10 = (closes[last] - base) / base
	}
	return f, true
}

// Volatility is the population standard deviation of simple returns.
// Steps from a zero price are skipped.
func Volatility(prices []float64) float64 {
	returns := make([]float64, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	return stddev(returns)
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return math.Sqrt(variance / float64(len(xs)))
}
