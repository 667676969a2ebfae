// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/internal/asset"
)

// GasCost represents the gas cost for a DEX transaction.
type GasCost struct {
	GasLimit uint64
	GasPrice *big.Int     // in wei
	TotalETH asset.Amount // gasLimit * gasPrice
	TotalUSD asset.Amount // converted using current ETH price
}

// NewGasCost creates a GasCost from gas parameters.
func NewGasCost(gasLimit uint64, gasPriceWei *big.Int, ethPriceUSD decimal.Decimal) *GasCost {
	if gasPriceWei == nil {
		gasPriceWei = big.NewInt(0)
	}
	totalWei := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(gasLimit))
	eth := asset.NewAmount(asset.ETH, totalWei)

	return &GasCost{
		GasLimit: gasLimit,
		GasPrice: new(big.Int).Set(gasPriceWei),
		TotalETH: eth,
		TotalUSD: toAmount(asset.USD, eth.ToDecimal().Mul(ethPriceUSD)),
	}
}

// TotalWei returns gasLimit * gasPrice in wei.
func (g *GasCost) TotalWei() *big.Int {
	return g.TotalETH.Raw()
}

// ProfitResult contains the calculated profit for an opportunity.
// Amounts cannot be negative, so the sign of the net result lives in
// NetProfitRaw.
type ProfitResult struct {
	GrossProfit  asset.Amount
	ExchangeFees asset.Amount
	GasCost      asset.Amount
	TotalCosts   asset.Amount
	NetProfit    asset.Amount
	NetProfitRaw decimal.Decimal
	NetProfitPct decimal.Decimal // as percentage (e.g., 0.86 for 0.86%)
	IsProfitable bool
}

// NewProfitResultWithFees builds a result from gross profit, gas and exchange
// fees, all denominated in quote. NetProfit holds |net|.
func NewProfitResultWithFees(gross, gas, fees decimal.Decimal, quote *asset.Asset) *ProfitResult {
	places := int32(quote.Decimals())
	net := gross.Sub(gas).Sub(fees).Round(places)

	return &ProfitResult{
		GrossProfit:  toAmount(quote, gross),
		ExchangeFees: toAmount(quote, fees),
		GasCost:      toAmount(quote, gas),
		TotalCosts:   toAmount(quote, gas.Add(fees)),
		NetProfit:    toAmount(quote, net),
		NetProfitRaw: net,
		NetProfitPct: pctOf(net, gross),
		IsProfitable: net.IsPositive(),
	}
}

// toAmount rounds |d| to the asset's precision.
func toAmount(a *asset.Asset, d decimal.Decimal) asset.Amount {
	amt, err := asset.ParseDecimal(a, d.Abs().Round(int32(a.Decimals())))
	if err != nil {
		return asset.Zero(a)
	}
	return amt
}

func pctOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}
