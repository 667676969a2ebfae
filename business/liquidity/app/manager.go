package app

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/dexter/business/liquidity/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

const meterName = "liquidity.manager"

// Config tunes the manager and its loops.
type Config struct {
	ILThreshold       float64
	RebalanceInterval time.Duration
	MetricsInterval   time.Duration
	CompoundInterval  time.Duration
	MinLiquidityUSD   decimal.Decimal
	MaxSlippage       decimal.Decimal
}

func (c *Config) setDefaults() {
	if c.ILThreshold <= 0 {
		c.ILThreshold = domain.DefaultILThreshold
	}
	if c.RebalanceInterval <= 0 {
		c.RebalanceInterval = domain.DefaultRebalance
	}
	if c.MetricsInterval <= 0 {
		c.MetricsInterval = 30 * time.Second
	}
	if c.CompoundInterval <= 0 {
		c.CompoundInterval = time.Hour
	}
	if !c.MinLiquidityUSD.IsPositive() {
		c.MinLiquidityUSD = decimal.NewFromInt(domain.DefaultMinLiquidityUSD)
	}
	if !c.MaxSlippage.IsPositive() {
		c.MaxSlippage = decimal.NewFromFloat(domain.DefaultMaxSlippage)
	}
}

// Manager tracks pools and LP positions, ranks pools and keeps positions
// inside the impermanent-loss threshold.
type Manager struct {
	config Config
	source PoolSource
	logger logger.LoggerInterface
	now    func() time.Time

	rebalanced metric.Int64Counter
	compounded metric.Int64Counter

	mu        sync.RWMutex
	pools     map[string]*domain.Pool
	positions map[string]*domain.Position
	metrics   map[string]domain.Metrics
	rewards   decimal.Decimal

	queueMu sync.Mutex
	queue   *domain.RebalanceQueue

	rebalances atomic.Uint64
}

// NewManager creates a Manager. source may be nil when pools are added by hand.
func NewManager(config Config, source PoolSource, log logger.LoggerInterface) *Manager {
	config.setDefaults()
	m := &Manager{
		config:    config,
		source:    source,
		logger:    log,
		now:       time.Now,
		pools:     make(map[string]*domain.Pool),
		positions: make(map[string]*domain.Position),
		metrics:   make(map[string]domain.Metrics),
		queue:     domain.NewRebalanceQueue(),
	}
	meter := otel.Meter(meterName)
	m.rebalanced, _ = meter.Int64Counter("liquidity_rebalances_total",
		metric.WithDescription("Positions reset to the current price ratio"))
	m.compounded, _ = meter.Int64Counter("liquidity_compounds_total",
		metric.WithDescription("Positions that compounded rewards"))
	return m
}

// UpsertPool adds a pool or refreshes the market fields of a known one.
// TVL, reserves and shares of a known pool are owned by the manager.
func (m *Manager) UpsertPool(p domain.Pool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = m.now()
	}
	cur, ok := m.pools[p.ID]
	if !ok {
		if !p.TotalShares.IsPositive() {
			p.TotalShares = p.TVL
		}
		m.pools[p.ID] = &p
		return
	}
	cur.Price = p.Price
	cur.Volume24h = p.Volume24h
	cur.FeeTier = p.FeeTier
	cur.APY = p.APY
	cur.UpdatedAt = p.UpdatedAt
}

// Pool returns a copy of the pool with id.
func (m *Manager) Pool(id string) (domain.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[id]
	if !ok {
		return domain.Pool{}, apperror.NotFound(apperror.CodePoolNotFound, id)
	}
	return *p, nil
}

// Pools returns every pool sorted by ID.
func (m *Manager) Pools() []domain.Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Pool, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b domain.Pool) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Position returns a copy of the position with id.
func (m *Manager) Position(id string) (domain.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[id]
	if !ok {
		return domain.Position{}, apperror.NotFound(apperror.CodePositionNotFound, id)
	}
	return *pos, nil
}

// Positions returns every open position, oldest first.
func (m *Manager) Positions() []domain.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b domain.Position) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// AddLiquidity deposits amountUSD into a pool for owner.
func (m *Manager) AddLiquidity(ctx context.Context, poolID, owner string, amountUSD decimal.Decimal) (domain.Position, error) {
	if amountUSD.LessThan(m.config.MinLiquidityUSD) {
		return domain.Position{}, apperror.Validation(apperror.CodeInvalidLiquidity,
			amountUSD.String()+" below minimum "+m.config.MinLiquidityUSD.String())
	}

	m.mu.Lock()
	pool, ok := m.pools[poolID]
	if !ok {
		m.mu.Unlock()
		return domain.Position{}, apperror.NotFound(apperror.CodePoolNotFound, poolID)
	}
	now := m.now()
	pos := &domain.Position{
		ID:              uuid.NewString(),
		PoolID:          poolID,
		Owner:           owner,
		LiquidityUSD:    amountUSD,
		EntryPriceRatio: pool.Price,
		Shares:          pool.Deposit(amountUSD),
		AutoCompound:    true,
		CreatedAt:       now,
		LastHarvest:     now,
	}
	m.positions[pos.ID] = pos
	out := *pos
	m.mu.Unlock()

	m.logger.Info(ctx, "liquidity added",
		"position", out.ID, "pool", poolID, "owner", owner, "usd", amountUSD.StringFixed(2))
	return out, nil
}

// RemoveLiquidity withdraws fraction (0, 1] of a position and returns the
// USD withdrawn. Withdrawals larger than the slippage limit relative to the
// pool's TVL are refused. A fully withdrawn position is closed.
func (m *Manager) RemoveLiquidity(ctx context.Context, positionID string, fraction decimal.Decimal) (decimal.Decimal, error) {
	if !fraction.IsPositive() || fraction.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidLiquidity, "fraction "+fraction.String())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[positionID]
	if !ok {
		return decimal.Zero, apperror.NotFound(apperror.CodePositionNotFound, positionID)
	}
	pool, ok := m.pools[pos.PoolID]
	if !ok {
		return decimal.Zero, apperror.NotFound(apperror.CodePoolNotFound, pos.PoolID)
	}

	shares := pos.Shares.Mul(fraction)
	value := pool.ShareValue(shares)
	if pool.TVL.IsPositive() && value.Div(pool.TVL).GreaterThan(m.config.MaxSlippage) {
		return decimal.Zero, apperror.New(apperror.CodeSlippageExceeded,
			apperror.WithContext(value.StringFixed(2)+" of "+pool.TVL.StringFixed(2)+" TVL"))
	}

	withdrawn := pool.Withdraw(shares)
	pos.Shares = pos.Shares.Sub(shares)
	pos.LiquidityUSD = pos.LiquidityUSD.Mul(decimal.NewFromInt(1).Sub(fraction))
	if fraction.Equal(decimal.NewFromInt(1)) || !pos.Shares.IsPositive() {
		delete(m.positions, positionID)
		m.queueMu.Lock()
		m.queue.Remove(positionID)
		m.queueMu.Unlock()
	}

	m.logger.Info(ctx, "liquidity removed",
		"position", positionID, "fraction", fraction.String(), "usd", withdrawn.StringFixed(2))
	return withdrawn, nil
}

// RefreshPools pulls the latest pools from the source.
func (m *Manager) RefreshPools(ctx context.Context) error {
	if m.source == nil {
		return nil
	}
	pools, err := m.source.Pools(ctx)
	if err != nil {
		return err
	}
	for _, p := range pools {
		m.UpsertPool(p)
	}
	return nil
}

// RefreshMetrics recomputes each pool's worst position IL and its grade.
func (m *Manager) RefreshMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	worst := make(map[string]float64, len(m.pools))
	for _, pos := range m.positions {
		pool, ok := m.pools[pos.PoolID]
		if !ok {
			continue
		}
		il := domain.ImpermanentLoss(pos.EntryPriceRatio, pool.Price)
		if il > worst[pos.PoolID] {
			worst[pos.PoolID] = il
		}
	}
	for id, pool := range m.pools {
		pool.ImpermanentLoss = worst[id]
		m.metrics[id] = domain.PoolMetrics(*pool)
	}
}

// metricsFor must be called with mu held.
func (m *Manager) metricsFor(p *domain.Pool) domain.Metrics {
	if mt, ok := m.metrics[p.ID]; ok {
		return mt
	}
	return domain.PoolMetrics(*p)
}

// BestPools returns the n highest-scoring pools.
func (m *Manager) BestPools(n int) []domain.Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		pool  domain.Pool
		score float64
	}
	all := make([]scored, 0, len(m.pools))
	for _, p := range m.pools {
		all = append(all, scored{*p, m.metricsFor(p).Score(p.APY)})
	}
	slices.SortFunc(all, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return strings.Compare(a.pool.ID, b.pool.ID)
	})

	if n <= 0 || n > len(all) {
		n = len(all)
	}
	out := make([]domain.Pool, n)
	for i := range out {
		out[i] = all[i].pool
	}
	return out
}

// PoolAnalytics grades one pool.
func (m *Manager) PoolAnalytics(id string) (domain.PoolAnalytics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[id]
	if !ok {
		return domain.PoolAnalytics{}, apperror.NotFound(apperror.CodePoolNotFound, id)
	}
	mt := m.metricsFor(p)
	n := 0
	for _, pos := range m.positions {
		if pos.PoolID == id {
			n++
		}
	}
	return domain.PoolAnalytics{Pool: *p, Metrics: mt, Positions: n, RiskAssessment: domain.TierFor(mt.RiskScore)}, nil
}

// Analytics summarizes all pools and positions.
func (m *Manager) Analytics() domain.Analytics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a := domain.Analytics{
		TotalPools:     len(m.pools),
		TotalPositions: len(m.positions),
		TotalRewards:   m.rewards.InexactFloat64(),
		Rebalances:     m.rebalances.Load(),
	}
	var apy, risk float64
	for _, p := range m.pools {
		a.TotalTVL += p.TVL.InexactFloat64()
		apy += p.APY
		risk += m.metricsFor(p).RiskScore
	}
	if len(m.pools) > 0 {
		a.AverageAPY = apy / float64(len(m.pools))
		a.AverageRisk = risk / float64(len(m.pools))
	}
	a.RiskTier = domain.TierFor(a.AverageRisk)
	return a
}

// Scan queues every position whose IL exceeds the threshold and returns how
// many were queued.
func (m *Manager) Scan() int {
	m.mu.RLock()
	type candidate struct {
		id string
		il float64
	}
	var found []candidate
	for _, pos := range m.positions {
		pool, ok := m.pools[pos.PoolID]
		if !ok {
			continue
		}
		if il := domain.ImpermanentLoss(pos.EntryPriceRatio, pool.Price); il > m.config.ILThreshold {
			found = append(found, candidate{pos.ID, il})
		}
	}
	m.mu.RUnlock()

	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	for _, c := range found {
		m.queue.Push(c.id, c.il)
	}
	return len(found)
}

// QueueLen is the number of positions waiting for rebalance.
func (m *Manager) QueueLen() int {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	return m.queue.Len()
}

// ProcessNext rebalances the queued position with the largest IL by moving
// its entry ratio to the pool's current price.
func (m *Manager) ProcessNext(ctx context.Context) (domain.RebalanceItem, bool) {
	m.queueMu.Lock()
	item, ok := m.queue.Pop()
	m.queueMu.Unlock()
	if !ok {
		return domain.RebalanceItem{}, false
	}

	m.mu.Lock()
	pos, okPos := m.positions[item.PositionID]
	var pool *domain.Pool
	if okPos {
		pool, okPos = m.pools[pos.PoolID]
	}
	if okPos {
		pos.EntryPriceRatio = pool.Price
		pos.LastRebalance = m.now()
	}
	m.mu.Unlock()

	if !okPos {
		return item, true
	}
	m.rebalances.Add(1)
	m.rebalanced.Add(ctx, 1)
	m.logger.Info(ctx, "position rebalanced", "position", item.PositionID, "il", item.Loss)
	return item, true
}

// Compound reinvests one period of each auto-compounding position's yield.
// Shares minted for the reward keep the pool's share price unchanged.
func (m *Manager) Compound(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, pos := range m.positions {
		pool, ok := m.pools[pos.PoolID]
		if !ok || !pos.AutoCompound || pool.APY <= 0 {
			continue
		}
		reward := pool.ShareValue(pos.Shares).Mul(domain.HourlyYield(pool.APY))
		if !reward.IsPositive() {
			continue
		}
		pos.Shares = pos.Shares.Add(pool.Deposit(reward))
		pos.LiquidityUSD = pos.LiquidityUSD.Add(reward)
		pos.RewardsEarned = pos.RewardsEarned.Add(reward)
		pos.LastHarvest = m.now()
		m.rewards = m.rewards.Add(reward)
		n++
	}
	if n > 0 {
		m.compounded.Add(ctx, int64(n))
		m.logger.Debug(ctx, "rewards compounded", "positions", n)
	}
	return n
}

// Run drives the metrics, rebalance and compound loops until ctx ends.
func (m *Manager) Run(ctx context.Context) {
	metricsTick := time.NewTicker(m.config.MetricsInterval)
	rebalanceTick := time.NewTicker(m.config.RebalanceInterval)
	compoundTick := time.NewTicker(m.config.CompoundInterval)
	defer metricsTick.Stop()
	defer rebalanceTick.Stop()
	defer compoundTick.Stop()

	m.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-metricsTick.C:
			m.refresh(ctx)
		case <-rebalanceTick.C:
			if queued := m.Scan(); queued > 0 {
				m.logger.Info(ctx, "positions queued for rebalance", "count", queued)
			}
			for {
				if _, ok := m.ProcessNext(ctx); !ok {
					break
				}
			}
		case <-compoundTick.C:
			m.Compound(ctx)
		}
	}
}

func (m *Manager) refresh(ctx context.Context) {
	if err := m.RefreshPools(ctx); err != nil {
		m.logger.Warn(ctx, "pool refresh failed", "error", err)
	}
	m.RefreshMetrics()
}
