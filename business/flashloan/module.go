// Package flashloan implements the flash-loan bounded context: the provider
// and strategy catalog and the simulator.
package flashloan

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/flashloan/app"
	flashloanDI "github.com/fd1az/dexter/business/flashloan/di"
	"github.com/fd1az/dexter/business/flashloan/infra/catalog"
	pricingDI "github.com/fd1az/dexter/business/pricing/di"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/monolith"
)

const priceSyncInterval = 30 * time.Second

// Module implements the flashloan bounded context.
type Module struct{}

// RegisterServices registers all flashloan services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, flashloanDI.Simulator, func(sr di.ServiceRegistry) *app.Simulator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		cat, err := catalog.Default()
		if err != nil {
			panic("failed to load flash loan catalog: " + err.Error())
		}
		return app.NewSimulator(cat, app.Config{
			GasPriceGwei: decimal.NewFromFloat(cfg.FlashLoan.GasPriceGwei),
			MaxHistory:   cfg.FlashLoan.MaxHistory,
		}, log)
	})
	return nil
}

// Startup keeps reference prices in line with the aggregator when pricing is loaded.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	sim := flashloanDI.GetSimulator(mono.Services())
	mono.Logger().Info(ctx, "flashloan module started",
		"providers", len(sim.Providers()), "strategies", len(sim.Strategies()))

	if !mono.Services().Has(pricingDI.Aggregator.Name()) {
		return nil
	}
	agg := pricingDI.GetAggregator(mono.Services())

	go func() {
		ticker := time.NewTicker(priceSyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, token := range []string{"ETH", "SOL", "DAI"} {
					if px, ok := agg.MidPrice(token + "/USDC"); ok {
						sim.SetPrice(token, px)
					}
				}
			}
		}
	}()
	return nil
}
