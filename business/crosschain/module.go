// Package crosschain implements the cross-chain bounded context: the chain and
// bridge catalog, route finding and the periodic opportunity scan.
package crosschain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/crosschain/app"
	crosschainDI "github.com/fd1az/dexter/business/crosschain/di"
	"github.com/fd1az/dexter/business/crosschain/infra/catalog"
	pricingApp "github.com/fd1az/dexter/business/pricing/app"
	pricingDI "github.com/fd1az/dexter/business/pricing/di"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/monolith"
)

const defaultScanInterval = 30 * time.Second

// Module implements the crosschain bounded context.
type Module struct{}

// RegisterServices registers all crosschain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, crosschainDI.Service, func(sr di.ServiceRegistry) *app.Service {
		log := sr.Get("logger").(logger.LoggerInterface)
		cat, err := catalog.Default()
		if err != nil {
			panic("failed to load cross-chain catalog: " + err.Error())
		}
		return app.NewService(cat, log)
	})
	return nil
}

// Startup scans the configured tokens on an interval, pulling per-chain
// prices from the aggregator when pricing is loaded.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	svc := crosschainDI.GetService(mono.Services())

	log.Info(ctx, "crosschain module started",
		"chains", len(svc.Chains()), "bridges", len(svc.Bridges()), "tokens", cfg.CrossChain.Tokens)

	var agg *pricingApp.Aggregator
	if mono.Services().Has(pricingDI.Aggregator.Name()) {
		agg = pricingDI.GetAggregator(mono.Services())
	}

	interval := cfg.CrossChain.ScanInterval
	if interval <= 0 {
		interval = defaultScanInterval
	}
	go scanLoop(ctx, svc, agg, cfg.CrossChain, interval, log)
	return nil
}

func scanLoop(ctx context.Context, svc *app.Service, agg *pricingApp.Aggregator, cfg config.CrossChainConfig, interval time.Duration, log logger.LoggerInterface) {
	amount := decimal.NewFromFloat(cfg.TradeAmount)
	minProfit := decimal.NewFromFloat(cfg.MinProfitPct)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, token := range cfg.Tokens {
				if agg != nil {
					syncPrices(svc, agg, token, log)
				}
				opps := svc.FindOpportunities(ctx, token, amount, minProfit)
				if len(opps) > 0 {
					best := opps[0]
					log.Info(ctx, "cross-chain opportunity",
						"token", token, "from", best.From, "to", best.To,
						"profit", best.Profit.StringFixed(2), "pct", best.ProfitPct.StringFixed(3))
				}
			}
		}
	}
}

// syncPrices maps each venue quote onto the chains that venue trades on.
func syncPrices(svc *app.Service, agg *pricingApp.Aggregator, token string, log logger.LoggerInterface) {
	pair := token + "/USDC"
	if token == "USDC" {
		pair = "USDC/USDT"
	}
	for _, p := range agg.Prices(pair) {
		for _, c := range svc.Chains() {
			if !c.QuotedBy(p.Exchange) {
				continue
			}
			if err := svc.UpdateTokenPrice(c.ID, token, p.Price); err != nil {
				log.Debug(context.Background(), "cross-chain price skipped",
					"chain", c.ID, "venue", p.Exchange, "error", err)
			}
		}
	}
}
