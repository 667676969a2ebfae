package asset

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetID(t *testing.T) {
	assert.Equal(t, "eip155:1/slip44:60", ETH.ID().String())
	assert.Equal(t, "eip155:1/erc20:"+AddrUSDCEthereum.Hex(), USDC.ID().String())
	assert.Equal(t, "fiat:USD", USD.ID().String())

	assert.True(t, ETH.IsNative())
	assert.True(t, USDC.IsToken())
	assert.True(t, USD.IsFiat())
	assert.Equal(t, KindToken, WETH.ID().Kind())

	// Same symbol on another chain is a different asset.
	polyUSDC := NewAsset(NewTokenAssetID(ChainIDPolygon, AddrUSDCEthereum), "USDC", 6)
	assert.False(t, polyUSDC.Equals(USDC))
	assert.True(t, USDC.Equals(NewAsset(NewTokenAssetID(ChainIDEthereum, AddrUSDCEthereum), "usdc.e", 6)))

	assert.Panics(t, func() { NewTokenAssetID(1, common.Address{}) })
	assert.Panics(t, func() { NewAsset(NewNativeAssetID(1), "", 18) })
}

func TestAmount_ParseAndDisplay(t *testing.T) {
	a, err := ParseString(ETH, "1.5")
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", a.Raw().String())
	assert.Equal(t, "1.5 ETH", a.String())
	assert.Equal(t, "1.50 ETH", a.StringFixed(2))

	_, err = ParseString(USDC, "1.0000001")
	assert.ErrorIs(t, err, ErrTooManyDecimals)
	_, err = ParseDecimal(USDC, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeAmount)
	_, err = ParseString(USDC, "abc")
	assert.Error(t, err)

	assert.True(t, Zero(USD).IsZero())
	assert.True(t, Amount{}.IsZero())
	assert.Equal(t, "0 ???", Amount{}.String())
}

func TestAmount_Arithmetic(t *testing.T) {
	one := NewAmount(USDC, big.NewInt(1_000_000))
	two := NewAmount(USDC, big.NewInt(2_000_000))

	sum, err := one.Add(two)
	require.NoError(t, err)
	assert.True(t, sum.ToDecimal().Equal(decimal.NewFromInt(3)))

	diff, err := two.Sub(one)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), diff.Raw().Int64())

	_, err = one.Sub(two)
	assert.ErrorIs(t, err, ErrNegativeResult)

	_, err = one.Add(NewAmount(USDT, big.NewInt(1)))
	assert.ErrorIs(t, err, ErrAssetMismatch)

	cmp, err := one.Cmp(two)
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)
}

func TestAmount_Immutable(t *testing.T) {
	raw := big.NewInt(5)
	a := NewAmount(WBTC, raw)
	raw.SetInt64(9)
	a.Raw().SetInt64(7)
	assert.Equal(t, int64(5), a.Raw().Int64())
	assert.Panics(t, func() { NewAmount(WBTC, big.NewInt(-1)) })
}

func TestPrice_ConvertAndInvert(t *testing.T) {
	p := NewPrice(ETH, USDC, decimal.RequireFromString("3400.123456789"), time.Unix(1_700_000_000, 0))
	assert.Equal(t, "ETH/USDC", p.Pair())

	half, _ := ParseString(ETH, "0.5")
	out, err := p.Convert(half)
	require.NoError(t, err)
	assert.Equal(t, USDC, out.Asset())
	assert.True(t, out.ToDecimal().Equal(decimal.RequireFromString("1700.061728")), "got %s", out.ToDecimal())

	_, err = p.Convert(Zero(USDC))
	assert.ErrorIs(t, err, ErrAssetMismatch)

	inv := NewPrice(ETH, USD, decimal.NewFromInt(4000), time.Time{}).Invert()
	assert.Equal(t, USD, inv.Base())
	assert.True(t, inv.Rate().Equal(decimal.RequireFromString("0.00025")))
	assert.True(t, NewPriceNow(ETH, USD, decimal.Zero).Invert().IsZero())
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, 7, r.Len())

	a, ok := r.GetBySymbolAndChain("weth", ChainIDEthereum)
	require.True(t, ok)
	assert.Same(t, WETH, a)

	a, ok = r.GetToken(ChainIDEthereum, AddrUSDCEthereum)
	require.True(t, ok)
	assert.Same(t, USDC, a)

	_, ok = r.GetToken(ChainIDEthereum, common.Address{})
	assert.False(t, ok)

	usd, ok := r.GetBySymbolAndChain("USD", ChainIDFiat)
	require.True(t, ok)
	assert.Same(t, USD, usd)

	assert.Error(t, r.Register(ETH))
	dup := NewAsset(NewTokenAssetID(ChainIDEthereum, common.HexToAddress("0x01")), "usdc", 6)
	assert.Error(t, r.Register(dup), "symbol clash on the same chain")

	arb := NewAsset(NewTokenAssetID(ChainIDArbitrum, AddrUSDCEthereum), "USDC", 6)
	require.NoError(t, r.Register(arb))
	got, _ := r.GetBySymbolAndChain("USDC", ChainIDArbitrum)
	assert.Same(t, arb, got)

	all := r.All()
	require.Len(t, all, 8)
	assert.Equal(t, "eip155:1/erc20:", all[0].ID().String()[:15])
}
