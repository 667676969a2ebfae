package binance

import (
	"sync"
	"time"

	"github.com/fd1az/dexter/business/pricing/domain"
)

// book is the latest known orderbook for one symbol.
type book struct {
	mu      sync.RWMutex
	bids    []domain.OrderbookLevel
	asks    []domain.OrderbookLevel
	updated time.Time
}

// replace installs a full snapshot.
func (b *book) replace(bids, asks []domain.OrderbookLevel, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids, b.asks, b.updated = bids, asks, at
}

// setTop overwrites the best level of each side, keeping deeper levels.
func (b *book) setTop(bid, ask domain.OrderbookLevel, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = withTop(b.bids, bid)
	b.asks = withTop(b.asks, ask)
	b.updated = at
}

func withTop(levels []domain.OrderbookLevel, top domain.OrderbookLevel) []domain.OrderbookLevel {
	if len(levels) == 0 {
		return []domain.OrderbookLevel{top}
	}
	levels[0] = top
	return levels
}

// fresh reports whether both sides have data newer than maxAge.
func (b *book) fresh(now time.Time, maxAge time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bids) > 0 && len(b.asks) > 0 && now.Sub(b.updated) <= maxAge
}

// snapshot copies the book into a domain orderbook.
func (b *book) snapshot(pair domain.Pair) *domain.Orderbook {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &domain.Orderbook{
		Pair:      pair,
		Bids:      append([]domain.OrderbookLevel(nil), b.bids...),
		Asks:      append([]domain.OrderbookLevel(nil), b.asks...),
		Timestamp: b.updated,
	}
}
