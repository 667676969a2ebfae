package app

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/dexter/business/risk/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

const meterName = "risk.manager"

type managerMetrics struct {
	validations metric.Int64Counter
	rejections  metric.Int64Counter
}

// Manager validates orders against the risk limits and tracks open
// positions, realized PnL and portfolio history.
type Manager struct {
	mu             sync.RWMutex
	limits         domain.Limits
	portfolioValue decimal.Decimal
	positions      map[string]*domain.Position
	snapshots      []domain.Snapshot
	pnl            []domain.PnLEntry

	store   Store // optional
	logger  logger.LoggerInterface
	now     func() time.Time
	metrics managerMetrics
}

// NewManager creates a Manager. store may be nil for an in-memory manager.
func NewManager(limits domain.Limits, portfolioValue decimal.Decimal, store Store, log logger.LoggerInterface) *Manager {
	m := &Manager{
		limits:         limits,
		portfolioValue: portfolioValue,
		positions:      make(map[string]*domain.Position),
		store:          store,
		logger:         log,
		now:            time.Now,
	}
	meter := otel.Meter(meterName)
	m.metrics.validations, _ = meter.Int64Counter("risk_order_validations_total",
		metric.WithDescription("Orders run through the risk checks"))
	m.metrics.rejections, _ = meter.Int64Counter("risk_order_rejections_total",
		metric.WithDescription("Orders rejected by a risk limit"))
	return m
}

// Load restores history from the store.
func (m *Manager) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	now := m.now()
	snaps, err := m.store.Snapshots(ctx, now.Add(-domain.SnapshotRetention))
	if err != nil {
		return apperror.Wrap(err, apperror.CodeRiskStoreFailed, "load snapshots")
	}
	entries, err := m.store.PnLEntries(ctx, now.Add(-domain.PnLRetention))
	if err != nil {
		return apperror.Wrap(err, apperror.CodeRiskStoreFailed, "load pnl")
	}

	m.mu.Lock()
	m.snapshots = snaps
	m.pnl = entries
	m.mu.Unlock()

	m.logger.Info(ctx, "risk history loaded", "snapshots", len(snaps), "pnl_entries", len(entries))
	return nil
}

// Limits returns the active limits.
func (m *Manager) Limits() domain.Limits {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limits
}

// UpdateLimits swaps the limits in place. Open positions are kept.
func (m *Manager) UpdateLimits(limits domain.Limits) error {
	if err := limits.Validate(); err != nil {
		return apperror.Validation(apperror.CodeInvalidInput, err.Error())
	}
	m.mu.Lock()
	m.limits = limits
	m.mu.Unlock()
	return nil
}

// PortfolioValue returns the base portfolio value used for percentages.
func (m *Manager) PortfolioValue() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.portfolioValue
}

// SetPortfolioValue updates the portfolio value.
func (m *Manager) SetPortfolioValue(v decimal.Decimal) {
	m.mu.Lock()
	m.portfolioValue = v
	m.mu.Unlock()
}

// ValidateOrder runs the position, portfolio risk, daily loss and
// correlation checks in that order and returns the first breach.
func (m *Manager) ValidateOrder(ctx context.Context, order domain.Order) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.validateLocked(ctx, order)
}

func (m *Manager) validateLocked(ctx context.Context, order domain.Order) error {
	m.metrics.validations.Add(ctx, 1)

	if order.Symbol == "" || !order.Size.IsPositive() || !order.Price.IsPositive() {
		return m.reject(ctx, "order", apperror.Validation(apperror.CodeInvalidOrder,
			fmt.Sprintf("symbol=%q size=%s price=%s", order.Symbol, order.Size, order.Price)))
	}
	if !m.portfolioValue.IsPositive() {
		return m.reject(ctx, "portfolio", apperror.Validation(apperror.CodeInvalidOrder, "portfolio value is not positive"))
	}

	value := order.Value()
	pv := m.portfolioValue
	l := m.limits

	if pct := value.Div(pv); pct.GreaterThan(l.MaxPositionSize) {
		return m.reject(ctx, "position_size", breach("position_size",
			"position %s%% of portfolio exceeds %s%%", pctString(pct), pctString(l.MaxPositionSize)))
	}

	totalRisk := value.Mul(l.StopLossPct)
	for _, p := range m.positions {
		totalRisk = totalRisk.Add(p.RiskAmount)
	}
	if pct := totalRisk.Div(pv); pct.GreaterThan(l.MaxPortfolioRisk) {
		return m.reject(ctx, "portfolio_risk", breach("portfolio_risk",
			"portfolio risk %s%% exceeds %s%%", pctString(pct), pctString(l.MaxPortfolioRisk)))
	}

	daily := domain.DailyPnL(m.pnl, m.now())
	if daily.LessThan(l.MaxDailyLoss.Mul(pv).Neg()) {
		return m.reject(ctx, "daily_loss", breach("daily_loss",
			"daily loss %s exceeds %s%% of portfolio", daily.StringFixed(2), pctString(l.MaxDailyLoss)))
	}

	group := domain.CorrelationGroup(order.Symbol)
	var correlated int
	for _, p := range m.positions {
		if p.CorrelationGroup == group {
			correlated++
		}
	}
	if correlated >= l.MaxCorrelatedTrades {
		return m.reject(ctx, "correlation", breach("correlation",
			"%d open positions in %s, limit %d", correlated, group, l.MaxCorrelatedTrades))
	}

	return nil
}

func (m *Manager) reject(ctx context.Context, check string, err error) error {
	m.metrics.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("check", check)))
	m.logger.Debug(ctx, "order rejected", "check", check, "error", err)
	return err
}

func breach(check, format string, args ...any) error {
	return apperror.New(apperror.CodeRiskLimitExceeded,
		apperror.WithMessage(fmt.Sprintf(format, args...)),
		apperror.WithContext(check))
}

func pctString(f decimal.Decimal) string {
	return f.Mul(decimal.NewFromInt(100)).StringFixed(2)
}

// CalculatePositionSize returns the notional that risks RiskPerTrade of the
// portfolio if price falls from entry to stop, capped at MaxPositionSize.
func (m *Manager) CalculatePositionSize(entry, stop decimal.Decimal) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	maxValue := m.portfolioValue.Mul(m.limits.MaxPositionSize)
	if !entry.IsPositive() {
		return decimal.Zero
	}
	priceRisk := entry.Sub(stop).Abs().Div(entry)
	if priceRisk.IsZero() {
		return maxValue
	}
	riskValue := m.portfolioValue.Mul(m.limits.RiskPerTrade).Div(priceRisk)
	return decimal.Min(riskValue, maxValue)
}

// OpenPosition validates order and tracks it with percentage stop and target
// levels derived from the limits.
func (m *Manager) OpenPosition(ctx context.Context, order domain.Order) (*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateLocked(ctx, order); err != nil {
		return nil, err
	}
	if _, ok := m.positions[order.Symbol]; ok {
		return nil, apperror.Validation(apperror.CodeInvalidOrder, "position already open: "+order.Symbol)
	}

	exit := domain.ExitStrategy{}
	pos := domain.NewPosition(order.Symbol, order.Size, order.Price, m.limits.StopLossPct,
		exit.PercentStop(order.Price, m.limits.StopLossPct),
		exit.PercentTarget(order.Price, m.limits.TakeProfitPct),
		m.now())
	m.positions[order.Symbol] = pos

	m.logger.Info(ctx, "position opened",
		"symbol", pos.Symbol, "size", pos.Size.String(), "entry", pos.EntryPrice.String(),
		"stop", pos.StopLoss.StringFixed(2), "target", pos.TakeProfit.StringFixed(2))
	cp := *pos
	return &cp, nil
}

// UpdatePrice marks a position and reports whether its stop or target is hit.
func (m *Manager) UpdatePrice(symbol string, price decimal.Decimal) (stopHit, targetHit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return false, false
	}
	pos.Mark(price)
	return pos.StopHit(), pos.TargetHit()
}

// ClosePosition realizes the position at exit and records the PnL.
func (m *Manager) ClosePosition(ctx context.Context, symbol string, exit decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	pos, ok := m.positions[symbol]
	if !ok {
		m.mu.Unlock()
		return decimal.Zero, apperror.NotFound(apperror.CodeNotFound, "position "+symbol)
	}
	delete(m.positions, symbol)
	m.mu.Unlock()

	pnl := exit.Sub(pos.EntryPrice).Mul(pos.Size)
	if err := m.RecordPnL(ctx, symbol, pnl); err != nil {
		return pnl, err
	}
	return pnl, nil
}

// Positions returns copies of the open positions sorted by symbol.
func (m *Manager) Positions() []domain.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// RecordPnL books a realized PnL entry and persists it.
func (m *Manager) RecordPnL(ctx context.Context, symbol string, pnl decimal.Decimal) error {
	entry := domain.PnLEntry{Timestamp: m.now(), Symbol: symbol, PnL: pnl}

	m.mu.Lock()
	m.pnl = append(m.pnl, entry)
	m.pnl = prune(m.pnl, entry.Timestamp.Add(-domain.PnLRetention), func(e domain.PnLEntry) time.Time { return e.Timestamp })
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	if err := m.store.SavePnL(ctx, entry); err != nil {
		return apperror.Wrap(err, apperror.CodeRiskStoreFailed, "save pnl")
	}
	return nil
}

// RecordSnapshot appends the current portfolio value plus unrealized PnL to
// the history and persists it.
func (m *Manager) RecordSnapshot(ctx context.Context) (domain.Snapshot, error) {
	m.mu.Lock()
	value := m.portfolioValue
	for _, p := range m.positions {
		value = value.Add(p.UnrealizedPnL)
	}
	snap := domain.Snapshot{Timestamp: m.now(), Value: value}
	m.snapshots = append(m.snapshots, snap)
	m.snapshots = prune(m.snapshots, snap.Timestamp.Add(-domain.SnapshotRetention), func(s domain.Snapshot) time.Time { return s.Timestamp })
	m.mu.Unlock()

	if m.store == nil {
		return snap, nil
	}
	if err := m.store.SaveSnapshot(ctx, snap); err != nil {
		return snap, apperror.Wrap(err, apperror.CodeRiskStoreFailed, "save snapshot")
	}
	return snap, nil
}

// PortfolioRisk computes VaR, ratios and drawdown over the tracked state.
func (m *Manager) PortfolioRisk() domain.PortfolioRisk {
	m.mu.RLock()
	defer m.mu.RUnlock()

	positions := make([]domain.Position, 0, len(m.positions))
	vars := make([]decimal.Decimal, 0, len(m.positions))
	totalRisk := decimal.Zero
	for _, p := range m.positions {
		positions = append(positions, *p)
		vars = append(vars, p.VaR95)
		totalRisk = totalRisk.Add(p.RiskAmount)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })

	returns := make([]float64, len(m.pnl))
	for i, e := range m.pnl {
		returns[i] = e.PnL.InexactFloat64()
	}

	v := domain.PortfolioVaR(vars)
	daily := domain.DailyPnL(m.pnl, m.now())
	maxDD, curDD := domain.Drawdowns(m.snapshots, m.portfolioValue)

	return domain.PortfolioRisk{
		TotalValue:         m.portfolioValue,
		TotalRisk:          totalRisk,
		VaR95:              v,
		CVaR95:             domain.CVaR(v),
		SharpeRatio:        domain.SharpeRatio(returns),
		SortinoRatio:       domain.SortinoRatio(returns),
		MaxDrawdown:        maxDD,
		CurrentDrawdown:    curDD,
		DailyPnL:           daily,
		RiskAdjustedReturn: daily.InexactFloat64() / (v.InexactFloat64() + 0.0001),
		Positions:          positions,
	}
}

// Sizer returns a position sizer over the current portfolio value.
func (m *Manager) Sizer() domain.PositionSizer {
	return domain.PositionSizer{PortfolioValue: m.PortfolioValue()}
}

// Ping checks the history store.
func (m *Manager) Ping(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	return m.store.Ping(ctx)
}

// Close releases the history store.
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

func prune[T any](xs []T, cutoff time.Time, ts func(T) time.Time) []T {
	return slices.DeleteFunc(xs, func(x T) bool { return !ts(x).After(cutoff) })
}
