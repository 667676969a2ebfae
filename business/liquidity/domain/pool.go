// Package domain contains liquidity pools, LP positions and the impermanent
// loss and pool-quality math.
package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultILThreshold     = 0.05
	DefaultRebalance       = 5 * time.Minute
	DefaultMinLiquidityUSD = 1000
	DefaultMaxSlippage     = 0.02

	hoursPerYear = 8760
)

// Pool is a two-token AMM pool. Price is TokenA quoted in TokenB.
type Pool struct {
	ID              string          `json:"id"`
	Pair            string          `json:"pair"`
	Protocol        string          `json:"protocol"`
	TokenA          string          `json:"token_a"`
	TokenB          string          `json:"token_b"`
	ReserveA        decimal.Decimal `json:"reserve_a"`
	ReserveB        decimal.Decimal `json:"reserve_b"`
	Price           decimal.Decimal `json:"price"`
	FeeTier         decimal.Decimal `json:"fee_tier"`
	TVL             decimal.Decimal `json:"tvl"`
	Volume24h       decimal.Decimal `json:"volume_24h"`
	APY             float64         `json:"apy"` // percent
	TotalShares     decimal.Decimal `json:"total_shares"`
	ImpermanentLoss float64         `json:"impermanent_loss"`
	UpdatedAt       time.Time       `json:"last_update"`
}

// FeeAPY annualizes a day of fees over TVL, in percent.
func FeeAPY(feeTier, volume24h, tvl decimal.Decimal) float64 {
	if !tvl.IsPositive() {
		return 0
	}
	return feeTier.Mul(volume24h).Mul(decimal.NewFromInt(365)).Div(tvl).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// ShareValue prices shares against the pool's TVL.
func (p Pool) ShareValue(shares decimal.Decimal) decimal.Decimal {
	if !p.TotalShares.IsPositive() {
		return decimal.Zero
	}
	return shares.Mul(p.TVL).Div(p.TotalShares)
}

// Deposit grows the pool by amountUSD and returns the shares minted for it.
// Reserves scale with TVL; an empty pool is seeded half in each token.
func (p *Pool) Deposit(amountUSD decimal.Decimal) decimal.Decimal {
	shares := amountUSD
	if p.TotalShares.IsPositive() && p.TVL.IsPositive() {
		shares = amountUSD.Mul(p.TotalShares).Div(p.TVL)
	}

	half := amountUSD.Div(decimal.NewFromInt(2))
	switch {
	case p.TVL.IsPositive():
		scale := p.TVL.Add(amountUSD).Div(p.TVL)
		p.ReserveA = p.ReserveA.Mul(scale)
		p.ReserveB = p.ReserveB.Mul(scale)
	case p.Price.IsPositive():
		p.ReserveA = half.Div(p.Price)
		p.ReserveB = half
	}
	p.TVL = p.TVL.Add(amountUSD)
	p.TotalShares = p.TotalShares.Add(shares)
	return shares
}

// Withdraw burns shares and returns their USD value.
func (p *Pool) Withdraw(shares decimal.Decimal) decimal.Decimal {
	value := p.ShareValue(shares)
	if p.TVL.IsPositive() {
		scale := p.TVL.Sub(value).Div(p.TVL)
		p.ReserveA = p.ReserveA.Mul(scale)
		p.ReserveB = p.ReserveB.Mul(scale)
	}
	p.TVL = p.TVL.Sub(value)
	p.TotalShares = p.TotalShares.Sub(shares)
	return value
}

// Position is one owner's stake in a pool.
type Position struct {
	ID              string          `json:"id"`
	PoolID          string          `json:"pool_id"`
	Owner           string          `json:"owner"`
	LiquidityUSD    decimal.Decimal `json:"liquidity_usd"`
	EntryPriceRatio decimal.Decimal `json:"entry_price_ratio"`
	Shares          decimal.Decimal `json:"shares"`
	RewardsEarned   decimal.Decimal `json:"rewards_earned"`
	AutoCompound    bool            `json:"auto_compound"`
	CreatedAt       time.Time       `json:"created_at"`
	LastHarvest     time.Time       `json:"last_harvest"`
	LastRebalance   time.Time       `json:"last_rebalance,omitempty"`
}

// HourlyYield is the share growth from one hour of a pool's APY.
func HourlyYield(apy float64) decimal.Decimal {
	return decimal.NewFromFloat(apy).Div(decimal.NewFromInt(100 * hoursPerYear))
}

// ImpermanentLoss is the loss of an LP against holding, given the price
// ratio at entry and now: |2r/(1+r) - 1| with r = sqrt(current/entry).
func ImpermanentLoss(entryRatio, currentRatio decimal.Decimal) float64 {
	if !entryRatio.IsPositive() || !currentRatio.IsPositive() {
		return 0
	}
	r := math.Sqrt(currentRatio.Div(entryRatio).InexactFloat64())
	return math.Abs(2*r/(1+r) - 1)
}
