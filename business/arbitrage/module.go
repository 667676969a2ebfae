// Package arbitrage implements the arbitrage bounded context for opportunity detection.
package arbitrage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/dexter/business/arbitrage/di"
	"github.com/fd1az/dexter/business/arbitrage/infra"
	blockchainDI "github.com/fd1az/dexter/business/blockchain/di"
	pricingDI "github.com/fd1az/dexter/business/pricing/di"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	riskDI "github.com/fd1az/dexter/business/risk/di"
	"github.com/fd1az/dexter/internal/asset"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.ProfitCalculator, func(sr di.ServiceRegistry) *app.ProfitCalculator {
		cfg := sr.Get("config").(*config.Config)
		fees := app.DefaultFees
		if cfg.Arbitrage.DEXFee > 0 {
			fees.DEX = decimal.NewFromFloat(cfg.Arbitrage.DEXFee)
		}
		if cfg.Arbitrage.CEXFee > 0 {
			fees.CEX = decimal.NewFromFloat(cfg.Arbitrage.CEXFee)
		}
		return app.NewProfitCalculator(
			decimal.NewFromFloat(cfg.Arbitrage.MinProfitBps),
			cfg.Arbitrage.MinProfitUSDDecimal(),
			app.WithFees(fees),
		)
	})

	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Arbitrage.TUIMode {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter()
	})

	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		pairs := make([]pricingDomain.Pair, 0, len(cfg.Arbitrage.Pairs))
		for _, raw := range cfg.Arbitrage.Pairs {
			pair, err := pricingDomain.ResolvePair(registry, cfg.Ethereum.ChainID, raw)
			if err != nil {
				panic("invalid arbitrage pair: " + err.Error())
			}
			pairs = append(pairs, pair)
		}

		// Risk sizing is optional: the risk module may not be loaded.
		var sizer app.PositionSizer
		if sr.Has(riskDI.Manager.Name()) {
			sizer = riskDI.GetManager(sr)
		}

		detector := app.NewDetector(
			blockchainDI.GetBlockchainService(sr),
			pricingDI.GetPricingService(sr),
			arbitrageDI.GetProfitCalculator(sr),
			arbitrageDI.GetReporter(sr),
			sizer,
			app.DetectorConfig{
				Pairs:       pairs,
				TradeSizes:  cfg.Arbitrage.TradeSizesDecimal(),
				GasLimit:    cfg.Arbitrage.GasLimit,
				StopLossPct: decimal.NewFromFloat(cfg.Risk.StopLossPct),
			},
			log,
		)
		detector.SetReferencePrices(pricingDI.GetAggregator(sr))
		return detector
	})

	return nil
}

// Startup resolves the detector so wiring errors surface at boot. The
// detection loop itself is started by the command that owns the reporter.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	detector := arbitrageDI.GetDetector(mono.Services())
	mono.Logger().Info(ctx, "arbitrage module started", "found", detector.Found())
	return nil
}
