package app

import (
	"context"
	"time"

	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/business/streaming/domain"
	"github.com/fd1az/dexter/internal/logger"
)

// DepthLevels is how many orderbook levels per side are streamed.
const DepthLevels = 10

// OrderbookSource returns a CEX orderbook. Implemented by the pricing CEX provider.
type OrderbookSource interface {
	GetOrderbook(ctx context.Context, pair pricingDomain.Pair) (*pricingDomain.Orderbook, error)
}

// DepthPoller publishes orderbook depth on the depth channel.
type DepthPoller struct {
	hub      *Hub
	source   OrderbookSource
	exchange string
	pairs    []pricingDomain.Pair
	logger   logger.LoggerInterface
}

// NewDepthPoller creates a poller for pairs quoted by exchange.
func NewDepthPoller(hub *Hub, source OrderbookSource, exchange string, pairs []pricingDomain.Pair, log logger.LoggerInterface) *DepthPoller {
	return &DepthPoller{hub: hub, source: source, exchange: exchange, pairs: pairs, logger: log}
}

// Poll fetches every pair once and publishes the books that succeeded.
func (p *DepthPoller) Poll(ctx context.Context) int {
	published := 0
	for _, pair := range p.pairs {
		book, err := p.source.GetOrderbook(ctx, pair)
		if err != nil {
			p.logger.Debug(ctx, "orderbook fetch failed", "pair", pair.String(), "error", err)
			continue
		}
		p.hub.Publish(ctx, string(domain.ChannelDepth), domain.TypeMarketDepth, book.Depth(p.exchange, DepthLevels))
		published++
	}
	return published
}

// Run polls every interval until ctx ends.
func (p *DepthPoller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}
