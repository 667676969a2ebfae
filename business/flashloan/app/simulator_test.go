package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/business/flashloan/domain"
	"github.com/fd1az/dexter/business/flashloan/infra/catalog"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestSimulator(t *testing.T, maxHistory int) *Simulator {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return NewSimulator(c, Config{GasPriceGwei: d("30"), MaxHistory: maxHistory}, logger.NewNop())
}

func TestSimulate_USDCOnAave(t *testing.T) {
	sim := newTestSimulator(t, 0)

	res, err := sim.Simulate(context.Background(), domain.Request{
		Provider: "aave-v3", Strategy: "simple_arbitrage", Token: "USDC", Amount: d("100000"),
	})
	require.NoError(t, err)

	require.Len(t, res.Path, 2)
	assert.True(t, res.Path[0].Output.Equal(d("102000")))
	assert.True(t, res.FinalOutput.Equal(d("104040")))
	assert.True(t, res.LoanFee.Equal(d("90")))
	assert.True(t, res.GasCostUSD.Equal(d("30.6")), "gas %s", res.GasCostUSD)
	assert.True(t, res.ProfitLoss.Equal(d("3950")))
	assert.True(t, res.NetProfit.Equal(d("3919.4")))
	assert.True(t, res.TotalFees.Equal(d("120.6")))
	assert.True(t, res.Success)

	assert.Equal(t, 300*time.Millisecond, res.Timing.Total)
	assert.Equal(t, 0.4, res.Risk.Overall)
	assert.InDelta(t, 0.01, res.Risk.Liquidity, 1e-9)
	assert.InDelta(t, 0.02, res.Risk.Execution, 1e-9)
}

func TestSimulate_DAIOnAave(t *testing.T) {
	sim := newTestSimulator(t, 0)

	res, err := sim.Simulate(context.Background(), domain.Request{
		Provider: "aave-v3", Strategy: "simple_arbitrage", Token: "DAI", Amount: d("100000"),
	})
	require.NoError(t, err)

	assert.True(t, res.LoanFee.Equal(d("90")))
	assert.True(t, res.GasCost.Equal(d("30.6")), "gas in DAI %s", res.GasCost)
	assert.True(t, res.NetProfit.Equal(d("3919.4")))
	assert.True(t, res.Success)
}

func TestSimulate_UnpricedToken(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	delete(c.Prices, "DAI")
	sim := NewSimulator(c, Config{GasPriceGwei: d("30")}, logger.NewNop())

	_, err = sim.Simulate(context.Background(), domain.Request{
		Provider: "aave-v3", Strategy: "simple_arbitrage", Token: "DAI", Amount: d("5000"),
	})
	assert.Equal(t, apperror.CodeFlashLoanPriceUnavailable, apperror.GetCode(err))
	assert.Equal(t, 503, apperror.HTTPStatus(err))
}

func TestSimulate_ETHOnDydxConvertsGas(t *testing.T) {
	sim := newTestSimulator(t, 0)

	res, err := sim.Simulate(context.Background(), domain.Request{
		Provider: "dYdX", Strategy: "simple_arbitrage", Token: "eth", Amount: d("10"),
	})
	require.NoError(t, err)

	assert.True(t, res.LoanFee.Equal(d("0.005")))
	assert.True(t, res.GasCost.Equal(d("0.009")), "gas in ETH %s", res.GasCost)
	assert.True(t, res.NetProfit.Equal(d("0.39")), "net %s", res.NetProfit)
	assert.True(t, res.NetProfitUSD.Equal(d("1326")))
}

func TestSimulate_Validation(t *testing.T) {
	sim := newTestSimulator(t, 0)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.Request
		code apperror.Code
	}{
		{"unknown provider", domain.Request{Provider: "nope", Strategy: "simple_arbitrage", Token: "USDC", Amount: d("5000")}, apperror.CodeFlashLoanProviderNotFound},
		{"unknown strategy", domain.Request{Provider: "aave-v3", Strategy: "x", Token: "USDC", Amount: d("5000")}, apperror.CodeFlashLoanStrategyNotFound},
		{"token not lent", domain.Request{Provider: "dydx", Strategy: "simple_arbitrage", Token: "DAI", Amount: d("5000")}, apperror.CodeInvalidFlashLoanToken},
		{"below minimum", domain.Request{Provider: "aave-v3", Strategy: "simple_arbitrage", Token: "USDC", Amount: d("100")}, apperror.CodeInvalidFlashLoanAmount},
		{"above maximum", domain.Request{Provider: "aave-v3", Strategy: "simple_arbitrage", Token: "USDC", Amount: d("20000000")}, apperror.CodeInvalidFlashLoanAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Simulate(ctx, tt.req)
			assert.Equal(t, tt.code, apperror.GetCode(err))
		})
	}
	assert.Empty(t, sim.History(0))
}

func TestHistoryAndStats(t *testing.T) {
	sim := newTestSimulator(t, 2)
	ctx := context.Background()

	var ids []string
	for _, amt := range []string{"1000", "2000", "3000"} {
		res, err := sim.Simulate(ctx, domain.Request{Provider: "aave-v3", Strategy: "simple_arbitrage", Token: "USDC", Amount: d(amt)})
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}

	h := sim.History(10)
	require.Len(t, h, 2)
	assert.Equal(t, ids[2], h[0].ID)
	assert.Equal(t, ids[1], h[1].ID)

	st := sim.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 2, st.Successful)
	assert.Equal(t, 300*time.Millisecond, st.AvgExecTime)
	// (2000·0.0404 − 1.8 − 30.6 + 3000·0.0404 − 2.7 − 30.6) / 2
	assert.True(t, st.AvgProfit.Equal(d("68.15")), "avg %s", st.AvgProfit)
}

func TestSetPrice(t *testing.T) {
	sim := newTestSimulator(t, 0)
	sim.SetPrice("eth", d("4000"))
	p, ok := sim.Price("ETH")
	require.True(t, ok)
	assert.True(t, p.Equal(d("4000")))

	sim.SetPrice("ETH", d("0"))
	p, _ = sim.Price("ETH")
	assert.True(t, p.Equal(d("4000")))
}
