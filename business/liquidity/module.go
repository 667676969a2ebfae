// Package liquidity implements the liquidity bounded context: pool tracking,
// LP positions, impermanent-loss rebalancing and auto-compounding.
package liquidity

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/liquidity/app"
	liquidityDI "github.com/fd1az/dexter/business/liquidity/di"
	"github.com/fd1az/dexter/business/liquidity/infra/feed"
	pricingDI "github.com/fd1az/dexter/business/pricing/di"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/monolith"
)

// Module implements the liquidity bounded context.
type Module struct{}

// RegisterServices registers all liquidity services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, liquidityDI.Manager, func(sr di.ServiceRegistry) *app.Manager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		// Pools are discovered from DEX quotes when pricing is loaded.
		var source app.PoolSource
		if sr.Has(pricingDI.Aggregator.Name()) {
			source = feed.New(pricingDI.GetAggregator(sr), cfg.Aggregator.Pairs)
		}

		lc := cfg.Liquidity
		return app.NewManager(app.Config{
			ILThreshold:       lc.ILThreshold,
			RebalanceInterval: lc.RebalanceInterval,
			MetricsInterval:   lc.MetricsInterval,
			CompoundInterval:  lc.CompoundInterval,
			MinLiquidityUSD:   decimal.NewFromFloat(lc.MinLiquidityUSD),
			MaxSlippage:       decimal.NewFromFloat(lc.MaxSlippage),
		}, source, log)
	})
	return nil
}

// Startup runs the metrics, rebalance and compound loops under ctx.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mgr := liquidityDI.GetManager(mono.Services())
	go mgr.Run(ctx)
	mono.Logger().Info(ctx, "liquidity module started",
		"il_threshold", mono.Config().Liquidity.ILThreshold,
		"rebalance_interval", mono.Config().Liquidity.RebalanceInterval)
	return nil
}
