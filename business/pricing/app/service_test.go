package app

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/asset"
)

type fakeCEX struct {
	bid, ask decimal.Decimal
	err      error
}

func (f *fakeCEX) GetOrderbook(ctx context.Context, pair domain.Pair) (*domain.Orderbook, error) {
	return nil, f.err
}

func (f *fakeCEX) GetEffectivePrice(ctx context.Context, pair domain.Pair, size decimal.Decimal, side domain.Side) (*domain.Price, error) {
	if f.err != nil {
		return nil, f.err
	}
	rate := f.ask
	if side == domain.SideSell {
		rate = f.bid
	}
	amt, _ := asset.ParseDecimal(pair.Base, size)
	p := domain.NewPrice(asset.NewPriceNow(pair.Base, pair.Quote, rate), amt, side, "binance")
	return &p, nil
}

type fakeDEX struct {
	rate    decimal.Decimal
	tokenIn common.Address
	amount  *big.Int
}

func (f *fakeDEX) GetQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*domain.Quote, error) {
	f.tokenIn = tokenIn
	f.amount = amountIn
	in := asset.NewAmount(asset.WETH, amountIn)
	outDec := in.ToDecimal().Mul(f.rate)
	out, err := asset.ParseDecimal(asset.USDC, outDec.Round(6))
	if err != nil {
		return nil, err
	}
	q := domain.NewQuote(asset.WETH, asset.USDC, in, out, 120000, 3000)
	return &q, nil
}

func TestPricingService_GetPriceSnapshot(t *testing.T) {
	cex := &fakeCEX{bid: d("3399"), ask: d("3401")}
	dex := &fakeDEX{rate: d("3366")}
	svc := NewPricingService(cex, dex)

	snap, err := svc.GetPriceSnapshot(context.Background(), domain.NewPair(asset.ETH, asset.USDC), d("2"))
	require.NoError(t, err)

	assert.Equal(t, asset.AddrWETHEthereum, dex.tokenIn)
	assert.Equal(t, "2000000000000000000", dex.amount.String())

	assert.True(t, snap.CEXBid.Rate.Rate().Equal(d("3399")))
	assert.True(t, snap.CEXAsk.Rate.Rate().Equal(d("3401")))
	assert.True(t, snap.Spread.CEXPrice.Equal(d("3400")))
	assert.True(t, snap.Spread.Absolute.Equal(d("-34")), snap.Spread.Absolute.String())
	assert.Equal(t, domain.SpreadDEXToCEX, snap.Spread.Direction)
}

func TestPricingService_GetPriceSnapshotCEXDown(t *testing.T) {
	svc := NewPricingService(&fakeCEX{err: errors.New("stale orderbook")}, &fakeDEX{rate: d("3366")})

	_, err := svc.GetPriceSnapshot(context.Background(), domain.NewPair(asset.ETH, asset.USDC), d("1"))
	require.Error(t, err)
}
