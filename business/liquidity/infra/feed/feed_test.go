package feed

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
)

type staticPrices map[string][]pricingDomain.ExchangePrice

func (s staticPrices) Prices(pair string) []pricingDomain.ExchangePrice { return s[pair] }

func TestFeed_Pools(t *testing.T) {
	pair := pricingDomain.MustParseMarketPair("SOL/USDC")

	dex := pricingDomain.NewExchangePrice("dexscreener", pricingDomain.ExchangeDEX, pair, decimal.NewFromInt(150))
	dex.Liquidity = decimal.NewFromInt(2_000_000)
	dex.Volume24h = decimal.NewFromInt(1_000_000)
	dex.TakerFee = decimal.RequireFromString("0.0025")

	cex := pricingDomain.NewExchangePrice("kraken", pricingDomain.ExchangeCEX, pair, decimal.NewFromInt(151))
	cex.Liquidity = decimal.NewFromInt(9_000_000)

	shallow := pricingDomain.NewExchangePrice("jupiter", pricingDomain.ExchangeDEX, pair, decimal.NewFromInt(150))

	f := New(staticPrices{"SOL/USDC": {dex, cex, shallow}}, []string{"SOL/USDC", "ETH/USDC"})
	pools, err := f.Pools(context.Background())
	require.NoError(t, err)
	require.Len(t, pools, 1)

	p := pools[0]
	assert.Equal(t, "dexscreener:"+pair.String(), p.ID)
	assert.Equal(t, "SOL", p.TokenA)
	assert.Equal(t, "USDC", p.TokenB)
	assert.True(t, p.ReserveB.Equal(decimal.NewFromInt(1_000_000)))
	assert.True(t, p.ReserveA.Equal(decimal.RequireFromString("6666.6666666666666667")), "reserve %s", p.ReserveA)
	// 0.25% of $1M daily over $2M TVL: 45.625%
	assert.InDelta(t, 45.625, p.APY, 1e-9)
	assert.True(t, p.TotalShares.Equal(p.TVL))
}
