package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MinReturnsForRatios is the sample size below which Sharpe and Sortino are 0.
	MinReturnsForRatios = 30

	crossCorrelation = 0.3
	tradingDays      = 252
	cvarMultiplier   = 1.2
)

// Retention windows for the history kept in memory and in the store.
const (
	SnapshotRetention = 30 * 24 * time.Hour
	PnLRetention      = 90 * 24 * time.Hour
)

// Snapshot is a point-in-time portfolio valuation.
type Snapshot struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// PnLEntry is a realized profit or loss.
type PnLEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	PnL       decimal.Decimal `json:"pnl"`
}

// PortfolioRisk summarizes the portfolio for the dashboard.
type PortfolioRisk struct {
	TotalValue         decimal.Decimal `json:"total_value"`
	TotalRisk          decimal.Decimal `json:"total_risk"`
	VaR95              decimal.Decimal `json:"var_95"`
	CVaR95             decimal.Decimal `json:"cvar_95"`
	SharpeRatio        float64         `json:"sharpe_ratio"`
	SortinoRatio       float64         `json:"sortino_ratio"`
	MaxDrawdown        float64         `json:"max_drawdown"`
	CurrentDrawdown    float64         `json:"current_drawdown"`
	DailyPnL           decimal.Decimal `json:"daily_pnl"`
	RiskAdjustedReturn float64         `json:"risk_adjusted_return"`
	Positions          []Position      `json:"positions"`
}

// PortfolioVaR combines position VaRs with unit self-correlation and a flat
// 0.3 cross-correlation.
func PortfolioVaR(vars []decimal.Decimal) decimal.Decimal {
	f := make([]float64, len(vars))
	for i, v := range vars {
		f[i] = v.InexactFloat64()
	}
	var sum float64
	for i := range f {
		for j := range f {
			rho := crossCorrelation
			if i == j {
				rho = 1
			}
			sum += f[i] * f[j] * rho
		}
	}
	if sum <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(math.Sqrt(sum))
}

// CVaR approximates expected shortfall from VaR.
func CVaR(v decimal.Decimal) decimal.Decimal {
	return v.Mul(decimal.NewFromFloat(cvarMultiplier))
}

// SharpeRatio annualizes mean over population standard deviation.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < MinReturnsForRatios {
		return 0
	}
	m := mean(returns)
	var variance float64
	for _, r := range returns {
		variance += (r - m) * (r - m)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return m / std * math.Sqrt(tradingDays)
}

// SortinoRatio annualizes mean over the downside deviation of negative returns.
func SortinoRatio(returns []float64) float64 {
	if len(returns) < MinReturnsForRatios {
		return 0
	}
	var downside float64
	var n int
	for _, r := range returns {
		if r < 0 {
			downside += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	dd := math.Sqrt(downside / float64(n))
	if dd == 0 {
		return 0
	}
	return mean(returns) / dd * math.Sqrt(tradingDays)
}

// Drawdowns returns the worst peak-to-trough fall across history and the
// fall of current from the historical peak. Both are fractions.
func Drawdowns(history []Snapshot, current decimal.Decimal) (maxDD, currentDD float64) {
	if len(history) == 0 {
		return 0, 0
	}
	peak := history[0].Value.InexactFloat64()
	for _, s := range history {
		v := s.Value.InexactFloat64()
		if v > peak {
			peak = v
		}
		if peak > 0 {
			maxDD = math.Max(maxDD, (peak-v)/peak)
		}
	}
	if peak > 0 {
		currentDD = math.Max(0, (peak-current.InexactFloat64())/peak)
	}
	return maxDD, currentDD
}

// DailyPnL sums the entries booked since the UTC start of now's day.
func DailyPnL(entries []PnLEntry, now time.Time) decimal.Decimal {
	start := now.UTC().Truncate(24 * time.Hour)
	total := decimal.Zero
	for _, e := range entries {
		if !e.Timestamp.Before(start) {
			total = total.Add(e.PnL)
		}
	}
	return total
}

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
