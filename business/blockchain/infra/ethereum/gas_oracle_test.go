package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/business/blockchain/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

type fakeGasClient struct {
	price   atomic.Pointer[big.Int]
	calls   atomic.Int32
	err     error
	release chan struct{}
}

func (f *fakeGasClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(f.price.Load()), nil
}

func (f *fakeGasClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (f *fakeGasClient) Close() {}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func newTestOracle(t *testing.T, client *fakeGasClient, cacheTTL time.Duration) *GasOracle {
	t.Helper()
	cfg := DefaultGasOracleConfig("http://unused")
	cfg.CacheTTL = cacheTTL

	g, err := newGasOracle(cfg, client, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func TestGasOracle_CachesPrice(t *testing.T) {
	client := &fakeGasClient{}
	client.price.Store(gwei(30))
	g := newTestOracle(t, client, time.Minute)

	for range 3 {
		p, err := g.GetGasPrice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 30.0, p.Gwei())
	}
	assert.EqualValues(t, 1, client.calls.Load())
}

func TestGasOracle_ConcurrentCallersShareFetch(t *testing.T) {
	client := &fakeGasClient{release: make(chan struct{})}
	client.price.Store(gwei(25))
	g := newTestOracle(t, client, time.Minute)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.GetGasPrice(context.Background())
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return client.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(client.release)
	wg.Wait()

	assert.LessOrEqual(t, client.calls.Load(), int32(2))
}

func TestGasOracle_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	client := &fakeGasClient{release: make(chan struct{})}
	client.price.Store(gwei(25))
	g := newTestOracle(t, client, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := g.GetGasPrice(ctx)
		first <- err
	}()
	require.Eventually(t, func() bool { return client.calls.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared fetch")
	}

	second := make(chan *domain.GasPrice, 1)
	go func() {
		p, err := g.GetGasPrice(context.Background())
		assert.NoError(t, err)
		second <- p
	}()
	close(client.release)

	select {
	case p := <-second:
		require.NotNil(t, p)
		assert.Equal(t, 25.0, p.Gwei())
	case <-time.After(time.Second):
		t.Fatal("waiter never received the shared price")
	}
	assert.EqualValues(t, 1, client.calls.Load())
}

func TestGasOracle_BaselineAndListeners(t *testing.T) {
	client := &fakeGasClient{}
	g := newTestOracle(t, client, time.Nanosecond)

	var seen []float64
	g.OnGasPrice(func(p *domain.GasPrice) { seen = append(seen, p.Gwei()) })

	_, ok := g.BaselineGwei()
	require.False(t, ok)

	for _, v := range []int64{20, 30, 40} {
		client.price.Store(gwei(v))
		time.Sleep(time.Millisecond)
		_, err := g.GetGasPrice(context.Background())
		require.NoError(t, err)
	}

	base, ok := g.BaselineGwei()
	require.True(t, ok)
	assert.True(t, base.Equal(decimal.NewFromInt(30)), "baseline %s", base)
	assert.Equal(t, []float64{20, 30, 40}, seen)
}

func TestGasOracle_EstimateGasCostCapsPrice(t *testing.T) {
	client := &fakeGasClient{}
	client.price.Store(gwei(2000))
	g := newTestOracle(t, client, time.Minute)

	est, err := g.EstimateGasCost(context.Background(), 100_000)
	require.NoError(t, err)
	// 100k gas at the 500 gwei cap
	assert.True(t, est.TotalETH().Equal(decimal.RequireFromString("0.05")), "total %s", est.TotalETH())

	base, _ := g.BaselineGwei()
	assert.True(t, base.Equal(decimal.NewFromInt(2000)), "baseline keeps the uncapped price, got %s", base)
}

func TestGasOracle_BaseFeeFloorsEstimates(t *testing.T) {
	client := &fakeGasClient{}
	client.price.Store(gwei(5))
	g := newTestOracle(t, client, time.Minute)
	ctx := context.Background()

	g.ObserveBlock(ctx, &domain.Block{Number: 1, GasLimit: 30_000_000, GasUsed: 30_000_000, BaseFee: gwei(10)})
	g.ObserveBlock(ctx, &domain.Block{Number: 2, GasLimit: 30_000_000})

	est, err := g.EstimateGasCost(ctx, 100_000)
	require.NoError(t, err)
	assert.Equal(t, 11.25, est.GasPrice.Gwei(), "a full block lifts the next base fee by an eighth")

	client.price.Store(gwei(40))
	g.prices.Delete(ctx, gasPriceKey)
	est, err = g.EstimateGasCost(ctx, 100_000)
	require.NoError(t, err)
	assert.Equal(t, 40.0, est.GasPrice.Gwei())
}

func TestGasOracle_EstimateGasAddsMargin(t *testing.T) {
	g := newTestOracle(t, &fakeGasClient{}, time.Minute)

	gas, err := g.EstimateGas(context.Background(), []byte{0x01}, "0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.EqualValues(t, 110_000, gas)
}

func TestGasOracle_Errors(t *testing.T) {
	t.Run("rpc failure", func(t *testing.T) {
		g := newTestOracle(t, &fakeGasClient{err: errors.New("node down")}, time.Minute)
		_, err := g.GetGasPrice(context.Background())
		assert.Equal(t, apperror.CodeEthereumRPCError, apperror.GetCode(err))
	})

	t.Run("not connected", func(t *testing.T) {
		g, err := NewGasOracle(DefaultGasOracleConfig("http://unused"), logger.NewNop())
		require.NoError(t, err)
		defer g.Close()

		_, err = g.GetGasPrice(context.Background())
		assert.Equal(t, apperror.CodeEthereumConnectionFailed, apperror.GetCode(err))
		_, err = g.EstimateGas(context.Background(), nil, "0x01")
		assert.Equal(t, apperror.CodeEthereumConnectionFailed, apperror.GetCode(err))
	})
}

func TestGasBaseline_DropsSamplesOutsideWindow(t *testing.T) {
	b := newGasBaseline(time.Minute)
	t0 := time.Unix(1_700_000_000, 0)

	b.add(t0, decimal.NewFromInt(100))
	b.add(t0.Add(50*time.Second), decimal.NewFromInt(20))

	mean, ok := b.mean(t0.Add(50 * time.Second))
	require.True(t, ok)
	assert.True(t, mean.Equal(decimal.NewFromInt(60)))

	mean, ok = b.mean(t0.Add(90 * time.Second))
	require.True(t, ok)
	assert.True(t, mean.Equal(decimal.NewFromInt(20)))

	_, ok = b.mean(t0.Add(5 * time.Minute))
	assert.False(t, ok)
}
