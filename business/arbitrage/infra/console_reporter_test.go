package infra

import (
	"bytes"
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/asset"
)

func TestConsoleReporter_Report(t *testing.T) {
	pair := pricingDomain.NewPair(asset.ETH, asset.USDC)
	size := decimal.NewFromInt(2)
	cex, dex := decimal.NewFromInt(3400), decimal.NewFromInt(3434)

	opp := &domain.Opportunity{
		ID:             "opp-1",
		BlockNumber:    19_000_000,
		Timestamp:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Pair:           pair,
		Direction:      domain.DirectionCEXToDEX,
		TradeSize:      size,
		CEXPrice:       cex,
		DEXPrice:       dex,
		Spread:         pricingDomain.CalculateSpread(cex, dex),
		GasCost:        domain.NewGasCost(150_000, big.NewInt(30_000_000_000), cex),
		ExecutionSteps: domain.ExecutionPlan(domain.DirectionCEXToDEX, pair, size),
		RiskFactors:    []domain.RiskFactor{{Name: "gas", Description: "gas spike", Severity: "high"}},
	}

	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf)
	r.Report(opp)
	out := buf.String()

	assert.Contains(t, out, "OPPORTUNITY opp-1  block #19000000  2024-03-01T12:00:00Z")
	assert.Contains(t, out, "ETH-USDC")
	assert.Contains(t, out, "size 2.0000 ETH")
	assert.Contains(t, out, "CEX      $3400.00")
	assert.Contains(t, out, "spread   100.00 bps CEX_TO_DEX")
	assert.Contains(t, out, "gas      0.004500 ETH ($15.30)")
	assert.Contains(t, out, "  1. Buy 2 ETH on Binance")
	assert.Contains(t, out, "[high] gas: gas spike")
	assert.NotContains(t, out, "gross", "profit section needs a result")
	assert.NotContains(t, out, "render opportunity")
}

func TestConsoleReporter_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf)

	require.NoError(t, r.Start(context.Background()))
	r.UpdateConnectionStatus("binance", true, 12*time.Millisecond)
	r.UpdateConnectionStatus("ethereum", false, 0)
	r.UpdatePrices(nil)
	r.ReportScan(nil)
	require.NoError(t, r.Stop())

	out := buf.String()
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "binance    up 12ms")
	assert.Contains(t, out, "ethereum   down")
	assert.Contains(t, out, "stopped")
}
