package domain

import "math"

const fullLiquidityUSD = 1_000_000

// RiskTier buckets a risk score.
type RiskTier string

const (
	RiskLow    RiskTier = "Low"
	RiskMedium RiskTier = "Medium"
	RiskHigh   RiskTier = "High"
)

// TierFor maps a risk score onto a tier.
func TierFor(score float64) RiskTier {
	switch {
	case score < 0.3:
		return RiskLow
	case score < 0.7:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Metrics grade a pool for ranking.
type Metrics struct {
	LiquidityScore float64 `json:"liquidity_score"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	RiskScore      float64 `json:"risk_score"`
}

// PoolMetrics grades p. Pools at or above $1M TVL get full liquidity score.
func PoolMetrics(p Pool) Metrics {
	tvl := p.TVL.InexactFloat64()
	m := Metrics{SharpeRatio: p.APY / 15}
	if tvl > 0 {
		m.LiquidityScore = math.Min(tvl/fullLiquidityUSD, 1)
		m.Volatility = p.Volume24h.InexactFloat64() / tvl * 100
	}
	m.RiskScore = (1 - m.LiquidityScore) * p.ImpermanentLoss
	return m
}

// Score ranks pools for BestPools: yield weighted by depth, discounted by risk.
func (m Metrics) Score(apy float64) float64 {
	return apy * m.LiquidityScore / (1 + m.RiskScore)
}

// PoolAnalytics is one pool with its grade.
type PoolAnalytics struct {
	Pool           Pool     `json:"pool"`
	Metrics        Metrics  `json:"metrics"`
	Positions      int      `json:"positions"`
	RiskAssessment RiskTier `json:"risk_assessment"`
}

// Analytics summarizes every pool the manager tracks.
type Analytics struct {
	TotalTVL       float64  `json:"total_tvl"`
	AverageAPY     float64  `json:"average_apy"`
	TotalPools     int      `json:"total_pools"`
	TotalPositions int      `json:"total_positions"`
	AverageRisk    float64  `json:"average_risk"`
	RiskTier       RiskTier `json:"risk_tier"`
	TotalRewards   float64  `json:"total_rewards"`
	Rebalances     uint64   `json:"rebalances"`
}
