// Package dashboard implements the REST API over every loaded context and
// hosts the stream endpoint.
package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	crosschainDI "github.com/fd1az/dexter/business/crosschain/di"
	"github.com/fd1az/dexter/business/dashboard/app"
	dashboardDI "github.com/fd1az/dexter/business/dashboard/di"
	flashloanDI "github.com/fd1az/dexter/business/flashloan/di"
	liquidityDI "github.com/fd1az/dexter/business/liquidity/di"
	marketDI "github.com/fd1az/dexter/business/market/di"
	mevDI "github.com/fd1az/dexter/business/mev/di"
	pricingDI "github.com/fd1az/dexter/business/pricing/di"
	riskDI "github.com/fd1az/dexter/business/risk/di"
	streamingDI "github.com/fd1az/dexter/business/streaming/di"
	"github.com/fd1az/dexter/internal/asset"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/monolith"
)

const shutdownTimeout = 5 * time.Second

// Module implements the dashboard bounded context.
type Module struct{}

// RegisterServices registers the handler and server with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, dashboardDI.Handler, func(sr di.ServiceRegistry) *app.Handler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var deps app.Deps
		if sr.Has(pricingDI.Aggregator.Name()) {
			deps.Opportunities = pricingDI.GetAggregator(sr)
		}
		if sr.Has(pricingDI.PricingService.Name()) {
			registry := sr.Get("assetRegistry").(*asset.Registry)
			deps.Depth = app.NewOrderbookDepth(pricingDI.GetPricingService(sr).CEX(), registry, cfg.Ethereum.ChainID, "binance")
		}
		if sr.Has(flashloanDI.Simulator.Name()) {
			deps.FlashLoans = flashloanDI.GetSimulator(sr)
		}
		if sr.Has(mevDI.Detector.Name()) {
			deps.Threats = mevDI.GetDetector(sr)
		}
		if sr.Has(marketDI.Store.Name()) {
			store := marketDI.GetStore(sr)
			deps.Indicators = store
			deps.Backtests = store
		}
		if sr.Has(crosschainDI.Service.Name()) {
			deps.Routes = crosschainDI.GetService(sr)
		}
		if sr.Has(liquidityDI.Manager.Name()) {
			deps.Pools = liquidityDI.GetManager(sr)
		}
		if sr.Has(riskDI.Manager.Name()) {
			deps.Risk = riskDI.GetManager(sr)
		}
		if sr.Has(streamingDI.Hub.Name()) {
			deps.Stream = streamingDI.GetHub(sr)
		}

		return app.NewHandler(deps, app.Defaults{
			TopN:             10,
			CrossChainToken:  firstOr(cfg.CrossChain.Tokens, "USDC"),
			CrossChainAmount: decimal.NewFromFloat(cfg.CrossChain.TradeAmount),
			CrossChainMinPct: decimal.NewFromFloat(cfg.CrossChain.MinProfitPct),
		}, log)
	})

	di.RegisterToken(c, dashboardDI.Server, func(sr di.ServiceRegistry) *app.Server {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewServer(app.ServerConfig{
			Port:         cfg.Dashboard.Port,
			ReadTimeout:  cfg.Dashboard.ReadTimeout,
			WriteTimeout: cfg.Dashboard.WriteTimeout,

			RequestsPerMinute: cfg.Dashboard.RequestsPerMinute,
		}, dashboardDI.GetHandler(sr), log)
	})
	return nil
}

// Startup mounts the stream hub and starts listening; the server stops with ctx.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	sr := mono.Services()
	srv := dashboardDI.GetServer(sr)

	if sr.Has(streamingDI.Hub.Name()) {
		srv.Handle(mono.Config().Streaming.Path, streamingDI.GetHub(sr))
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			mono.Logger().Warn(shutdownCtx, "dashboard shutdown", "error", err)
		}
	}()
	return nil
}

func firstOr(list []string, def string) string {
	if len(list) == 0 {
		return def
	}
	return list[0]
}
