package app

import (
	"context"
	"time"

	"github.com/fd1az/dexter/business/market/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/logger"
)

// PriceSource is the aggregator view the recorder samples.
type PriceSource interface {
	Prices(pair string) []pricingDomain.ExchangePrice
	LastRefresh() time.Time
}

// Recorder copies each new aggregator refresh into the store as ticks and
// snapshots.
type Recorder struct {
	store  *Store
	source PriceSource
	pairs  []string
	logger logger.LoggerInterface

	last time.Time
}

// NewRecorder creates a Recorder for pairs.
func NewRecorder(store *Store, source PriceSource, pairs []string, log logger.LoggerInterface) *Recorder {
	return &Recorder{store: store, source: source, pairs: pairs, logger: log}
}

// Record stores the latest refresh if it has not been seen and returns the
// number of prices recorded.
func (r *Recorder) Record() int {
	refreshed := r.source.LastRefresh()
	if refreshed.IsZero() || !refreshed.After(r.last) {
		return 0
	}
	r.last = refreshed

	n := 0
	for _, pair := range r.pairs {
		for _, p := range r.source.Prices(pair) {
			if !p.Price.IsPositive() {
				continue
			}
			ts := p.Timestamp
			if ts.IsZero() {
				ts = refreshed
			}
			r.store.AddTrade(p.Symbol, domain.Tick{Price: p.Price, Exchange: p.Exchange, Timestamp: ts})
			r.store.AddSnapshot(domain.Snapshot{
				Symbol:    p.Symbol,
				Exchange:  p.Exchange,
				Bid:       p.EffectiveBid(),
				Ask:       p.EffectiveAsk(),
				Last:      p.Price,
				Volume24h: p.Volume24h,
				Timestamp: ts,
			})
			n++
		}
	}
	return n
}

// Run samples the source every interval until ctx ends.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Record(); n > 0 {
				r.logger.Debug(ctx, "market prices recorded", "count", n)
			}
		}
	}
}
