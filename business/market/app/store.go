// Package app contains the in-memory market data store.
package app

import (
	"slices"
	"strings"
	"sync"

	"github.com/fd1az/dexter/business/market/domain"
	"github.com/fd1az/dexter/internal/apperror"
)

const (
	defaultMaxCandles   = 1000
	defaultMaxTicks     = 100_000
	defaultMaxSnapshots = 10_000
)

// Limits bound what the store keeps per symbol.
type Limits struct {
	MaxCandles   int
	MaxTicks     int
	MaxSnapshots int
}

type series struct {
	ticks     []domain.Tick
	candles   map[domain.Timeframe][]domain.Candle
	snapshots []domain.Snapshot
}

// Store aggregates ticks into candles and keeps recent snapshots.
type Store struct {
	limits Limits

	mu      sync.RWMutex
	symbols map[string]*series
}

// NewStore creates an empty Store.
func NewStore(limits Limits) *Store {
	if limits.MaxCandles <= 0 {
		limits.MaxCandles = defaultMaxCandles
	}
	if limits.MaxTicks <= 0 {
		limits.MaxTicks = defaultMaxTicks
	}
	if limits.MaxSnapshots <= 0 {
		limits.MaxSnapshots = defaultMaxSnapshots
	}
	return &Store{limits: limits, symbols: make(map[string]*series)}
}

func normalize(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

// get must be called with mu held for writing.
func (s *Store) get(symbol string) *series {
	sr, ok := s.symbols[symbol]
	if !ok {
		sr = &series{candles: make(map[domain.Timeframe][]domain.Candle)}
		s.symbols[symbol] = sr
	}
	return sr
}

// bounded drops the oldest entries beyond limit by reslicing, so a full
// series costs no copy per insert; append moves only the retained window
// when it outgrows the backing array.
func bounded[T any](items []T, limit int) []T {
	if over := len(items) - limit; over > 0 {
		return items[over:]
	}
	return items
}

// AddTrade records a tick and folds it into every tracked timeframe.
func (s *Store) AddTrade(symbol string, t domain.Tick) {
	symbol = normalize(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	sr := s.get(symbol)
	sr.ticks = bounded(append(sr.ticks, t), s.limits.MaxTicks)

	for _, tf := range domain.Tracked {
		start := tf.Start(t.Timestamp)
		candles := sr.candles[tf]
		if n := len(candles); n > 0 && candles[n-1].Start.Equal(start) {
			candles[n-1].Apply(t)
			continue
		}
		sr.candles[tf] = bounded(append(candles, domain.NewCandle(start, t)), s.limits.MaxCandles)
	}
}

// Candles returns up to the last n candles of symbol, oldest first. n <= 0
// returns all of them.
func (s *Store) Candles(symbol string, tf domain.Timeframe, n int) []domain.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.symbols[normalize(symbol)]
	if !ok {
		return nil
	}
	candles := sr.candles[tf]
	if n > 0 && n < len(candles) {
		candles = candles[len(candles)-n:]
	}
	return slices.Clone(candles)
}

// Ticks returns up to the last n ticks of symbol, oldest first.
func (s *Store) Ticks(symbol string, n int) []domain.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.symbols[normalize(symbol)]
	if !ok {
		return nil
	}
	ticks := sr.ticks
	if n > 0 && n < len(ticks) {
		ticks = ticks[len(ticks)-n:]
	}
	return slices.Clone(ticks)
}

// AddSnapshot records a top-of-book snapshot.
func (s *Store) AddSnapshot(snap domain.Snapshot) {
	snap.Symbol = normalize(snap.Symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	sr := s.get(snap.Symbol)
	sr.snapshots = bounded(append(sr.snapshots, snap), s.limits.MaxSnapshots)
}

// LatestSnapshot returns the most recent snapshot of symbol.
func (s *Store) LatestSnapshot(symbol string) (domain.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.symbols[normalize(symbol)]
	if !ok || len(sr.snapshots) == 0 {
		return domain.Snapshot{}, false
	}
	return sr.snapshots[len(sr.snapshots)-1], true
}

// Symbols lists every symbol with data, sorted.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}

// Indicators computes the indicator set from symbol's candles on tf.
func (s *Store) Indicators(symbol string, tf domain.Timeframe) (domain.Indicators, error) {
	symbol = normalize(symbol)
	candles := s.Candles(symbol, tf, 0)
	if len(candles) == 0 {
		return domain.Indicators{}, apperror.NotFound(apperror.CodeSymbolNotFound, symbol)
	}
	return domain.Compute(symbol, tf, domain.Closes(candles)), nil
}
