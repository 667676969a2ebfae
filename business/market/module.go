// Package market implements the market data bounded context: candles,
// snapshots and technical indicators built from aggregator prices.
package market

import (
	"context"
	"time"

	"github.com/fd1az/dexter/business/market/app"
	marketDI "github.com/fd1az/dexter/business/market/di"
	pricingDI "github.com/fd1az/dexter/business/pricing/di"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/monolith"
)

const defaultSampleInterval = 5 * time.Second

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, marketDI.Store, func(sr di.ServiceRegistry) *app.Store {
		cfg := sr.Get("config").(*config.Config)
		return app.NewStore(app.Limits{
			MaxCandles:   cfg.Market.MaxCandles,
			MaxTicks:     cfg.Market.MaxTicks,
			MaxSnapshots: cfg.Market.MaxSnapshots,
		})
	})
	return nil
}

// Startup samples the aggregator into the store when pricing is loaded.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	store := marketDI.GetStore(mono.Services())
	if !mono.Services().Has(pricingDI.Aggregator.Name()) {
		mono.Logger().Info(ctx, "market module started without a price feed")
		return nil
	}

	cfg := mono.Config()
	interval := cfg.Aggregator.Interval
	if interval <= 0 {
		interval = defaultSampleInterval
	}
	rec := app.NewRecorder(store, pricingDI.GetAggregator(mono.Services()), cfg.Aggregator.Pairs, mono.Logger())
	go rec.Run(ctx, interval)

	mono.Logger().Info(ctx, "market module started", "pairs", cfg.Aggregator.Pairs, "interval", interval)
	return nil
}
