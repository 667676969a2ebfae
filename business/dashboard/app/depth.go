package app

import (
	"context"

	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/asset"
)

const depthLevels = 20

// OrderbookSource returns a CEX orderbook. Implemented by the pricing CEX provider.
type OrderbookSource interface {
	GetOrderbook(ctx context.Context, pair pricingDomain.Pair) (*pricingDomain.Orderbook, error)
}

// OrderbookDepth resolves pair symbols against the asset registry and
// summarizes the CEX book.
type OrderbookDepth struct {
	source   OrderbookSource
	registry *asset.Registry
	chainID  uint64
	exchange string
}

// NewOrderbookDepth creates a DepthSource over source.
func NewOrderbookDepth(source OrderbookSource, registry *asset.Registry, chainID uint64, exchange string) *OrderbookDepth {
	return &OrderbookDepth{source: source, registry: registry, chainID: chainID, exchange: exchange}
}

// Depth implements DepthSource.
func (d *OrderbookDepth) Depth(ctx context.Context, pair string) (pricingDomain.MarketDepth, error) {
	p, err := pricingDomain.ResolvePair(d.registry, d.chainID, pair)
	if err != nil {
		return pricingDomain.MarketDepth{}, apperror.New(apperror.CodeVenuePairNotFound,
			apperror.WithContext(pair), apperror.WithCause(err))
	}
	book, err := d.source.GetOrderbook(ctx, p)
	if err != nil {
		return pricingDomain.MarketDepth{}, apperror.Wrap(err, apperror.CodeOrderbookFetchFailed, pair)
	}
	return book.Depth(d.exchange, depthLevels), nil
}
