// Package pricing implements the pricing bounded context: CEX/DEX price
// comparison and the multi-venue aggregator.
package pricing

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/pricing/app"
	pricingDI "github.com/fd1az/dexter/business/pricing/di"
	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/business/pricing/infra/binance"
	"github.com/fd1az/dexter/business/pricing/infra/bitquery"
	"github.com/fd1az/dexter/business/pricing/infra/dexscreener"
	"github.com/fd1az/dexter/business/pricing/infra/geckoterminal"
	"github.com/fd1az/dexter/business/pricing/infra/jupiter"
	"github.com/fd1az/dexter/business/pricing/infra/kraken"
	"github.com/fd1az/dexter/business/pricing/infra/uniswap"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register CEXProvider (Binance) - private dependency
	di.RegisterToken(c, pricingDI.CEXProvider, func(sr di.ServiceRegistry) app.CEXProvider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		providerCfg := binance.ProviderConfig{
			WebSocketURL:   cfg.Binance.WebSocketURL,
			HTTPURL:        cfg.Binance.RESTURL,
			Symbols:        cfg.Binance.Symbols,
			DepthSpeedMs:   cfg.Binance.DepthSpeedMs,
			SnapshotDepth:  20,
			StaleTimeout:   cfg.Binance.StaleTimeout,
			EnableFallback: cfg.Binance.RESTURL != "",
		}

		provider, err := binance.NewProvider(providerCfg, log)
		if err != nil {
			panic("failed to create binance provider: " + err.Error())
		}
		return provider
	})

	// Register DEXProvider (Uniswap) - private dependency
	di.RegisterToken(c, pricingDI.DEXProvider, func(sr di.ServiceRegistry) app.DEXProvider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		provider, err := uniswap.NewProvider(ethClient, cfg.Uniswap, log)
		if err != nil {
			panic("failed to create uniswap provider: " + err.Error())
		}
		return provider
	})

	// Register venue price sources - private dependency
	di.RegisterToken(c, pricingDI.VenueSources, func(sr di.ServiceRegistry) []app.VenuePriceSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return buildVenueSources(sr, cfg, log)
	})

	// Register Aggregator (public - read by dashboard, TUI and streaming)
	di.RegisterToken(c, pricingDI.Aggregator, func(sr di.ServiceRegistry) *app.Aggregator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		pairs := make([]domain.MarketPair, 0, len(cfg.Aggregator.Pairs))
		for _, raw := range cfg.Aggregator.Pairs {
			pair, err := domain.ParseMarketPair(raw)
			if err != nil {
				panic("invalid aggregator pair " + raw + ": " + err.Error())
			}
			pairs = append(pairs, pair)
		}

		return app.NewAggregator(app.AggregatorConfig{
			Pairs:        pairs,
			Interval:     cfg.Aggregator.Interval,
			MinProfitPct: decimal.NewFromFloat(cfg.Aggregator.MinProfitPct),
			TopN:         cfg.Aggregator.TopN,
		}, pricingDI.GetVenueSources(sr), log)
	})

	// Register PricingService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cex := pricingDI.GetCEXProvider(sr)
		dex := pricingDI.GetDEXProvider(sr)
		return app.NewPricingService(cex, dex)
	})

	return nil
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	cex := pricingDI.GetCEXProvider(mono.Services())
	if c, ok := cex.(connector); ok {
		go connectWithBackoff(ctx, c, log, cexBackoff())
	}

	agg := pricingDI.GetAggregator(mono.Services())
	go func() {
		if err := agg.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "aggregator stopped", "error", err)
		}
	}()

	log.Info(ctx, "pricing module started", "venues", agg.Sources())
	return nil
}

type connector interface {
	Connect(context.Context) error
}

func cexBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	return b
}

// connectWithBackoff dials the exchange until it succeeds or ctx ends.
// Startup never waits on it; price reads fail over to REST meanwhile.
func connectWithBackoff(ctx context.Context, c connector, log logger.LoggerInterface, b backoff.BackOff) {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, c.Connect(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn(ctx, "binance connect failed", "attempt", attempt, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		return
	}
	log.Info(ctx, "binance connected", "attempts", attempt)
}

// buildVenueSources constructs every enabled venue. A venue that fails to
// build is logged and left out.
func buildVenueSources(sr di.ServiceRegistry, cfg *config.Config, log logger.LoggerInterface) []app.VenuePriceSource {
	ctx := context.Background()
	var sources []app.VenuePriceSource

	add := func(name string, src app.VenuePriceSource, err error) {
		if err != nil {
			log.Warn(ctx, "venue disabled", "venue", name, "error", err)
			return
		}
		sources = append(sources, src)
	}

	ticker, err := binance.NewTickerSource(config.VenueConfig{
		Enabled:           true,
		BaseURL:           cfg.Binance.RESTURL,
		Timeout:           10 * time.Second,
		RequestsPerMinute: 1200,
		CacheTTL:          2 * time.Second,
	}, log)
	add("binance", ticker, err)

	if cfg.Kraken.Enabled {
		src, err := kraken.NewClient(cfg.Kraken, log)
		add("kraken", src, err)
	}
	if cfg.Jupiter.Enabled {
		src, err := jupiter.NewClient(cfg.Jupiter, log)
		add("jupiter", src, err)
	}
	if cfg.GeckoTerminal.Enabled {
		src, err := geckoterminal.NewClient(cfg.GeckoTerminal, log)
		add("geckoterminal", src, err)
	}
	if cfg.DexScreener.Enabled {
		src, err := dexscreener.NewClient(cfg.DexScreener, log)
		add("dexscreener", src, err)
	}
	if cfg.Bitquery.Enabled {
		src, err := bitquery.NewClient(cfg.Bitquery, log)
		add("bitquery", src, err)
	}

	if provider, ok := pricingDI.GetDEXProvider(sr).(*uniswap.Provider); ok {
		sources = append(sources, uniswap.NewPriceSource(provider))
	}

	return sources
}
