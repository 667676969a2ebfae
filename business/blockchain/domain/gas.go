// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

var weiPerGwei = decimal.New(1, 9)

// GasPrice represents gas price information.
type GasPrice struct {
	wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	if wei == nil {
		wei = big.NewInt(0)
	}
	return &GasPrice{
		wei:       new(big.Int).Set(wei),
		Timestamp: time.Now(),
	}
}

// NewGasPriceFromGwei creates a GasPrice from a gwei amount.
func NewGasPriceFromGwei(gwei decimal.Decimal) *GasPrice {
	return NewGasPrice(gwei.Mul(weiPerGwei).BigInt())
}

// Wei returns a copy of the price in wei.
func (g *GasPrice) Wei() *big.Int {
	return new(big.Int).Set(g.wei)
}

// GweiDecimal returns the price in gwei.
func (g *GasPrice) GweiDecimal() decimal.Decimal {
	return decimal.NewFromBigInt(g.wei, 0).Div(weiPerGwei)
}

// Gwei returns the price in gwei as float64, for metrics and display.
func (g *GasPrice) Gwei() float64 {
	f, _ := g.GweiDecimal().Float64()
	return f
}

// Age returns how old the observation is.
func (g *GasPrice) Age() time.Duration {
	return time.Since(g.Timestamp)
}

// GasEstimate represents estimated gas costs for an operation.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *GasPrice
	TotalWei *big.Int
}

// NewGasEstimate computes the total gas cost.
func NewGasEstimate(gasLimit uint64, gasPrice *GasPrice) *GasEstimate {
	totalWei := new(big.Int).Mul(gasPrice.wei, new(big.Int).SetUint64(gasLimit))

	return &GasEstimate{
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		TotalWei: totalWei,
	}
}

// TotalGwei returns limit x price in gwei.
func (e *GasEstimate) TotalGwei() float64 {
	f, _ := decimal.NewFromBigInt(e.TotalWei, 0).Div(weiPerGwei).Float64()
	return f
}

// TotalETH returns the total cost in ETH.
func (e *GasEstimate) TotalETH() decimal.Decimal {
	return decimal.NewFromBigInt(e.TotalWei, -18)
}
