// Package mev implements the MEV bounded context: threat detection over
// submitted transactions and the protection rules engine.
package mev

import (
	"context"

	"github.com/shopspring/decimal"

	blockchainDI "github.com/fd1az/dexter/business/blockchain/di"
	blockchainDomain "github.com/fd1az/dexter/business/blockchain/domain"
	"github.com/fd1az/dexter/business/mev/app"
	mevDI "github.com/fd1az/dexter/business/mev/di"
	"github.com/fd1az/dexter/business/mev/infra/rules"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/monolith"
)

// Module implements the MEV bounded context.
type Module struct{}

// RegisterServices registers all MEV services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, mevDI.ProtectionEngine, func(sr di.ServiceRegistry) *app.ProtectionEngine {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		defaults, err := rules.Default()
		if err != nil {
			panic("failed to load MEV protection rules: " + err.Error())
		}
		return app.NewProtectionEngine(defaults, cfg.MEV.ProtectionEnabled, log)
	})

	di.RegisterToken(c, mevDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		// The gas baseline is optional: without the blockchain module only
		// the fixed threshold rule applies.
		var baseline app.BaselineSource
		if sr.Has(blockchainDI.BlockchainService.Name()) {
			baseline = blockchainDI.GetBlockchainService(sr)
		}

		return app.NewDetector(app.DetectorConfig{
			GasThresholdGwei:   decimal.NewFromFloat(cfg.MEV.GasThresholdGwei),
			BaselineMultiplier: decimal.NewFromFloat(cfg.MEV.BaselineMultiplier),
			Sensitivity:        cfg.MEV.Sensitivity,
			MaxHistory:         cfg.MEV.MaxHistory,
		}, baseline, mevDI.GetProtectionEngine(sr), log)
	})

	return nil
}

// Startup slides the sandwich window forward on every new block.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	if !mono.Config().MEV.Enabled {
		mono.Logger().Info(ctx, "mev module disabled")
		return nil
	}
	detector := mevDI.GetDetector(mono.Services())

	if mono.Services().Has(blockchainDI.BlockchainService.Name()) {
		blockchainDI.GetBlockchainService(mono.Services()).OnBlock(func(_ context.Context, b *blockchainDomain.Block) {
			detector.AdvanceBlock(b.Number)
		})
	}

	mono.Logger().Info(ctx, "mev module started",
		"rules", len(detector.Protection().Rules()),
		"protection", detector.Protection().Enabled())
	return nil
}
