// Package streaming implements the real-time stream: a WebSocket hub that
// fans price, opportunity, MEV and depth events out to subscribers, with an
// optional Redis stream mirror.
package streaming

import (
	"context"
	"time"

	crosschainDI "github.com/fd1az/dexter/business/crosschain/di"
	mevDI "github.com/fd1az/dexter/business/mev/di"
	pricingDI "github.com/fd1az/dexter/business/pricing/di"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/business/streaming/app"
	streamingDI "github.com/fd1az/dexter/business/streaming/di"
	"github.com/fd1az/dexter/business/streaming/infra/redis"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/monolith"
)

const defaultDepthInterval = 5 * time.Second

// Module implements the streaming bounded context.
type Module struct{}

// RegisterServices registers all streaming services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, streamingDI.RedisPublisher, func(sr di.ServiceRegistry) *redis.Publisher {
		cfg := sr.Get("config").(*config.Config)
		return redis.NewPublisher(cfg.Redis)
	})

	di.RegisterToken(c, streamingDI.Hub, func(sr di.ServiceRegistry) *app.Hub {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var sink app.Sink
		if cfg.Redis.Enabled {
			sink = streamingDI.GetRedisPublisher(sr)
		}
		return app.NewHub(app.Config{
			ClientBuffer:   cfg.Streaming.ClientBuffer,
			WriteTimeout:   cfg.Streaming.WriteTimeout,
			AllowedOrigins: cfg.Streaming.AllowedOrigins,
		}, sink, log)
	})
	return nil
}

// Startup attaches the hub to every loaded publisher and starts the sink and
// depth loops.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	sr := mono.Services()
	cfg := mono.Config()
	hub := streamingDI.GetHub(sr)

	attached := 0
	if sr.Has(pricingDI.Aggregator.Name()) {
		pricingDI.GetAggregator(sr).SetPublisher(hub)
		attached++
	}
	if sr.Has(mevDI.Detector.Name()) {
		mevDI.GetDetector(sr).SetPublisher(hub)
		attached++
	}
	if sr.Has(crosschainDI.Service.Name()) {
		crosschainDI.GetService(sr).SetPublisher(hub)
		attached++
	}

	go hub.Run(ctx)

	if sr.Has(pricingDI.PricingService.Name()) {
		pairs := depthPairs(mono, cfg.Arbitrage.Pairs)
		interval := cfg.Aggregator.Interval
		if interval <= 0 {
			interval = defaultDepthInterval
		}
		poller := app.NewDepthPoller(hub, pricingDI.GetPricingService(sr).CEX(), "binance", pairs, mono.Logger())
		go poller.Run(ctx, interval)
	}

	go func() {
		<-ctx.Done()
		hub.Close()
		if cfg.Redis.Enabled {
			_ = streamingDI.GetRedisPublisher(sr).Close()
		}
	}()

	mono.Logger().Info(ctx, "streaming module started",
		"path", cfg.Streaming.Path, "publishers", attached, "redis", cfg.Redis.Enabled)
	return nil
}

func depthPairs(mono monolith.Monolith, raw []string) []pricingDomain.Pair {
	pairs := make([]pricingDomain.Pair, 0, len(raw))
	for _, s := range raw {
		pair, err := pricingDomain.ResolvePair(mono.AssetRegistry(), mono.Config().Ethereum.ChainID, s)
		if err != nil {
			mono.Logger().Warn(context.Background(), "skipping depth pair", "pair", s, "error", err)
			continue
		}
		pairs = append(pairs, pair)
	}
	return pairs
}
