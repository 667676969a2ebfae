// Package risk implements the risk bounded context: order validation,
// position sizing, portfolio risk metrics and the persistent history.
package risk

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fd1az/dexter/business/risk/app"
	riskDI "github.com/fd1az/dexter/business/risk/di"
	"github.com/fd1az/dexter/business/risk/domain"
	"github.com/fd1az/dexter/business/risk/infra/sqlite"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/monolith"
)

const snapshotInterval = 5 * time.Minute

// Module implements the risk bounded context.
type Module struct{}

// RegisterServices registers all risk services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Store (SQLite) - private dependency
	di.RegisterToken(c, riskDI.Store, func(sr di.ServiceRegistry) app.Store {
		cfg := sr.Get("config").(*config.Config)
		store, err := sqlite.Open(context.Background(), cfg.Risk.DBPath)
		if err != nil {
			panic("failed to open risk store: " + err.Error())
		}
		return store
	})

	// Register Manager (public - used by arbitrage sizing and the dashboard)
	di.RegisterToken(c, riskDI.Manager, func(sr di.ServiceRegistry) *app.Manager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var store app.Store
		if cfg.Risk.DBPath != "" {
			store = riskDI.GetStore(sr)
		}
		return app.NewManager(LimitsFromConfig(cfg.Risk), decimal.NewFromFloat(cfg.Risk.PortfolioValue), store, log)
	})

	return nil
}

// Startup restores history, hot-reloads limits on config edits and
// snapshots the portfolio periodically.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	manager := riskDI.GetManager(mono.Services())

	if err := manager.Load(ctx); err != nil {
		log.Warn(ctx, "risk history unavailable", "error", err)
	}

	if mono.Services().Has("viper") {
		v := mono.Services().Get("viper").(*viper.Viper)
		config.Watch(v, func(cfg *config.Config) {
			limits := LimitsFromConfig(cfg.Risk)
			if err := manager.UpdateLimits(limits); err != nil {
				log.Warn(ctx, "risk limits rejected", "error", err)
				return
			}
			manager.SetPortfolioValue(decimal.NewFromFloat(cfg.Risk.PortfolioValue))
			log.Info(ctx, "risk limits reloaded",
				"max_position", limits.MaxPositionSize.String(),
				"max_portfolio_risk", limits.MaxPortfolioRisk.String())
		}, func(err error) {
			log.Warn(ctx, "config reload failed", "error", err)
		})
	}

	go func() {
		ticker := time.NewTicker(snapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if err := manager.Close(); err != nil {
					log.Warn(context.Background(), "risk store close failed", "error", err)
				}
				return
			case <-ticker.C:
				if _, err := manager.RecordSnapshot(ctx); err != nil {
					log.Warn(ctx, "portfolio snapshot failed", "error", err)
				}
			}
		}
	}()

	log.Info(ctx, "risk module started", "portfolio_value", manager.PortfolioValue().StringFixed(2))
	return nil
}

// LimitsFromConfig converts the config section to domain limits.
func LimitsFromConfig(rc config.RiskConfig) domain.Limits {
	return domain.Limits{
		MaxPositionSize:     decimal.NewFromFloat(rc.MaxPositionSize),
		MaxPortfolioRisk:    decimal.NewFromFloat(rc.MaxPortfolioRisk),
		MaxDailyLoss:        decimal.NewFromFloat(rc.MaxDailyLoss),
		MaxLeverage:         decimal.NewFromFloat(rc.MaxLeverage),
		StopLossPct:         decimal.NewFromFloat(rc.StopLossPct),
		TakeProfitPct:       decimal.NewFromFloat(rc.TakeProfitPct),
		MaxCorrelatedTrades: rc.MaxCorrelatedTrades,
		RiskPerTrade:        decimal.NewFromFloat(rc.RiskPerTrade),
	}
}
