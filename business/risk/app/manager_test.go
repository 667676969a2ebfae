package app

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/business/risk/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type memStore struct {
	mu        sync.Mutex
	snapshots []domain.Snapshot
	pnl       []domain.PnLEntry
	err       error
}

func (s *memStore) SaveSnapshot(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *memStore) SavePnL(ctx context.Context, e domain.PnLEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.pnl = append(s.pnl, e)
	return nil
}

func (s *memStore) Snapshots(ctx context.Context, since time.Time) ([]domain.Snapshot, error) {
	return s.snapshots, s.err
}

func (s *memStore) PnLEntries(ctx context.Context, since time.Time) ([]domain.PnLEntry, error) {
	return s.pnl, s.err
}

func (s *memStore) Ping(ctx context.Context) error { return s.err }
func (s *memStore) Close() error                   { return nil }

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestManager(limits domain.Limits, store Store) *Manager {
	m := NewManager(limits, d("100000"), store, logger.NewNop())
	m.now = func() time.Time { return fixedNow }
	return m
}

func breachCheck(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeRiskLimitExceeded, appErr.Code)
	return appErr.Context
}

func TestValidateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("within limits", func(t *testing.T) {
		m := newTestManager(domain.DefaultLimits(), nil)
		assert.NoError(t, m.ValidateOrder(ctx, domain.Order{Symbol: "ETH", Size: d("2"), Price: d("3000")}))
	})

	t.Run("malformed order", func(t *testing.T) {
		m := newTestManager(domain.DefaultLimits(), nil)
		err := m.ValidateOrder(ctx, domain.Order{Symbol: "ETH", Size: d("0"), Price: d("3000")})
		assert.Equal(t, apperror.CodeInvalidOrder, apperror.GetCode(err))
	})

	t.Run("position size", func(t *testing.T) {
		m := newTestManager(domain.DefaultLimits(), nil)
		err := m.ValidateOrder(ctx, domain.Order{Symbol: "ETH", Size: d("4"), Price: d("3000")})
		assert.Equal(t, "position_size", breachCheck(t, err))
	})

	t.Run("portfolio risk", func(t *testing.T) {
		limits := domain.DefaultLimits()
		limits.MaxPortfolioRisk = d("0.001")
		m := newTestManager(limits, nil)
		// 6000 × 2% stop = 120 > 100
		err := m.ValidateOrder(ctx, domain.Order{Symbol: "ETH", Size: d("2"), Price: d("3000")})
		assert.Equal(t, "portfolio_risk", breachCheck(t, err))
	})

	t.Run("daily loss", func(t *testing.T) {
		m := newTestManager(domain.DefaultLimits(), nil)
		require.NoError(t, m.RecordPnL(ctx, "ETH", d("-6000")))
		err := m.ValidateOrder(ctx, domain.Order{Symbol: "LINK", Size: d("1"), Price: d("10")})
		assert.Equal(t, "daily_loss", breachCheck(t, err))
	})

	t.Run("correlated positions", func(t *testing.T) {
		m := newTestManager(domain.DefaultLimits(), nil)
		for _, sym := range []string{"ETH", "BTC", "WBTC"} {
			_, err := m.OpenPosition(ctx, domain.Order{Symbol: sym, Size: d("1"), Price: d("1000")})
			require.NoError(t, err)
		}
		err := m.ValidateOrder(ctx, domain.Order{Symbol: "WETH", Size: d("1"), Price: d("1000")})
		assert.Equal(t, "correlation", breachCheck(t, err))

		assert.NoError(t, m.ValidateOrder(ctx, domain.Order{Symbol: "SOL", Size: d("1"), Price: d("100")}))
	})
}

func TestCalculatePositionSize(t *testing.T) {
	m := newTestManager(domain.DefaultLimits(), nil)

	// 1% risk over a 2% stop wants 50000, capped at 10% of the portfolio.
	assert.True(t, m.CalculatePositionSize(d("3000"), d("2940")).Equal(d("10000")))
	// 50% stop distance: 1000 / 0.5
	assert.True(t, m.CalculatePositionSize(d("100"), d("50")).Equal(d("2000")))
	assert.True(t, m.CalculatePositionSize(d("100"), d("100")).Equal(d("10000")))
	assert.True(t, m.CalculatePositionSize(d("0"), d("0")).IsZero())
}

func TestPositionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	m := newTestManager(domain.DefaultLimits(), store)

	pos, err := m.OpenPosition(ctx, domain.Order{Symbol: "ETH", Size: d("2"), Price: d("3000")})
	require.NoError(t, err)
	assert.True(t, pos.StopLoss.Equal(d("2940")))
	assert.True(t, pos.TakeProfit.Equal(d("3120")))
	assert.True(t, pos.RiskAmount.Equal(d("120")))

	_, err = m.OpenPosition(ctx, domain.Order{Symbol: "ETH", Size: d("1"), Price: d("3000")})
	assert.Equal(t, apperror.CodeInvalidOrder, apperror.GetCode(err))

	stop, target := m.UpdatePrice("ETH", d("2930"))
	assert.True(t, stop)
	assert.False(t, target)

	stop, target = m.UpdatePrice("ETH", d("3200"))
	assert.False(t, stop)
	assert.True(t, target)

	stop, target = m.UpdatePrice("NOPE", d("1"))
	assert.False(t, stop || target)

	m.UpdatePrice("ETH", d("3100"))
	snap, err := m.RecordSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Value.Equal(d("100200")), "value %s includes unrealized pnl", snap.Value)

	pnl, err := m.ClosePosition(ctx, "ETH", d("3100"))
	require.NoError(t, err)
	assert.True(t, pnl.Equal(d("200")))
	assert.Empty(t, m.Positions())

	require.Len(t, store.pnl, 1)
	require.Len(t, store.snapshots, 1)
	assert.True(t, m.PortfolioRisk().DailyPnL.Equal(d("200")))

	_, err = m.ClosePosition(ctx, "ETH", d("3100"))
	assert.Equal(t, apperror.CodeNotFound, apperror.GetCode(err))
}

func TestPortfolioRisk(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(domain.DefaultLimits(), nil)

	_, err := m.OpenPosition(ctx, domain.Order{Symbol: "ETH", Size: d("2"), Price: d("3000")})
	require.NoError(t, err)
	_, err = m.OpenPosition(ctx, domain.Order{Symbol: "SOL", Size: d("10"), Price: d("150")})
	require.NoError(t, err)

	risk := m.PortfolioRisk()
	require.Len(t, risk.Positions, 2)
	assert.Equal(t, "ETH", risk.Positions[0].Symbol)
	assert.True(t, risk.TotalRisk.Equal(d("150")))

	a, b := 6000*0.02*1.645, 1500*0.02*1.645
	want := math.Sqrt(a*a + b*b + 2*0.3*a*b)
	assert.InDelta(t, want, risk.VaR95.InexactFloat64(), 1e-6)
	assert.InDelta(t, want*1.2, risk.CVaR95.InexactFloat64(), 1e-6)
	assert.Zero(t, risk.SharpeRatio)
}

func TestHistoryRetention(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(domain.DefaultLimits(), nil)

	require.NoError(t, m.RecordPnL(ctx, "ETH", d("10")))
	_, err := m.RecordSnapshot(ctx)
	require.NoError(t, err)

	later := fixedNow.Add(domain.PnLRetention + time.Hour)
	m.now = func() time.Time { return later }
	require.NoError(t, m.RecordPnL(ctx, "ETH", d("20")))
	_, err = m.RecordSnapshot(ctx)
	require.NoError(t, err)

	assert.Len(t, m.pnl, 1)
	assert.Len(t, m.snapshots, 1)
}

func TestStoreFailureIsReported(t *testing.T) {
	m := newTestManager(domain.DefaultLimits(), &memStore{err: errors.New("disk full")})

	err := m.RecordPnL(context.Background(), "ETH", d("1"))
	assert.Equal(t, apperror.CodeRiskStoreFailed, apperror.GetCode(err))
	assert.Error(t, m.Ping(context.Background()))
}

func TestLoadAndUpdateLimits(t *testing.T) {
	store := &memStore{
		pnl: []domain.PnLEntry{{Timestamp: fixedNow.Add(-time.Hour), Symbol: "ETH", PnL: d("-40")}},
	}
	m := newTestManager(domain.DefaultLimits(), store)
	require.NoError(t, m.Load(context.Background()))
	assert.True(t, m.PortfolioRisk().DailyPnL.Equal(d("-40")))

	bad := domain.DefaultLimits()
	bad.RiskPerTrade = d("0")
	assert.Error(t, m.UpdateLimits(bad))

	next := domain.DefaultLimits()
	next.MaxPositionSize = d("0.2")
	require.NoError(t, m.UpdateLimits(next))
	assert.True(t, m.CalculatePositionSize(d("3000"), d("2940")).Equal(d("20000")))
}
