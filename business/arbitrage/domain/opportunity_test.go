package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/asset"
)

func TestExecutionPlan(t *testing.T) {
	pair := pricingDomain.NewPair(asset.ETH, asset.USDC)

	cexFirst := ExecutionPlan(DirectionCEXToDEX, pair, dec("2.5"))
	require.Len(t, cexFirst, 3)
	assert.Equal(t, "Buy 2.5 ETH on Binance with USDC", cexFirst[0].Description)
	assert.Equal(t, "Swap 2.5 ETH for USDC on Uniswap", cexFirst[2].Description)

	dexFirst := ExecutionPlan(DirectionDEXToCEX, pair, dec("1"))
	require.Len(t, dexFirst, 3)
	assert.Equal(t, "Swap USDC for 1 ETH on Uniswap", dexFirst[0].Description)
	for i, step := range dexFirst {
		assert.Equal(t, i+1, step.Number)
	}
}

func TestAssessRisks(t *testing.T) {
	names := func(risks []RiskFactor) []string {
		out := make([]string, len(risks))
		for i, r := range risks {
			out[i] = r.Name
		}
		return out
	}
	gas := &GasCost{TotalUSD: toAmount(asset.USD, dec("60"))}

	t.Run("wide spread cheap gas", func(t *testing.T) {
		profit := NewProfitResultWithFees(dec("500"), dec("17"), dec("0"), asset.USD)
		cheap := &GasCost{TotalUSD: toAmount(asset.USD, dec("17"))}
		assert.Equal(t, []string{"transfer_latency"}, names(AssessRisks(dec("150"), profit, cheap)))
	})

	t.Run("thin negative spread with heavy gas", func(t *testing.T) {
		profit := NewProfitResultWithFees(dec("100"), dec("60"), dec("0"), asset.USD)
		assert.Equal(t, []string{"thin_spread", "gas_heavy", "transfer_latency"}, names(AssessRisks(dec("-12"), profit, gas)))
	})

	t.Run("missing profit", func(t *testing.T) {
		assert.Equal(t, []string{"transfer_latency"}, names(AssessRisks(dec("40"), nil, gas)))
	})
}

func TestDirection_Strings(t *testing.T) {
	assert.Equal(t, "CEX→DEX", DirectionCEXToDEX.ShortString())
	assert.Equal(t, "DEX→CEX", DirectionDEXToCEX.ShortString())
	assert.Equal(t, "?", Direction("").ShortString())
	assert.Equal(t, "Unknown", Direction("x").String())

	opp := &Opportunity{}
	assert.False(t, opp.IsProfitable())
}
