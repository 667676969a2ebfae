package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/fd1az/dexter/business/arbitrage"
	"github.com/fd1az/dexter/business/blockchain"
	"github.com/fd1az/dexter/business/crosschain"
	"github.com/fd1az/dexter/business/dashboard"
	dashboardDI "github.com/fd1az/dexter/business/dashboard/di"
	"github.com/fd1az/dexter/business/flashloan"
	"github.com/fd1az/dexter/business/liquidity"
	"github.com/fd1az/dexter/business/market"
	"github.com/fd1az/dexter/business/mev"
	"github.com/fd1az/dexter/business/pricing"
	"github.com/fd1az/dexter/business/risk"
	riskDI "github.com/fd1az/dexter/business/risk/di"
	"github.com/fd1az/dexter/business/streaming"
	streamingDI "github.com/fd1az/dexter/business/streaming/di"
	"github.com/fd1az/dexter/internal/apm"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/health"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/metrics"
	"github.com/fd1az/dexter/internal/monolith"
)

// platform bundles what every long-running command needs.
type platform struct {
	cfg     *config.Config
	viper   *viper.Viper
	log     *logger.Logger
	mono    monolithApp
	modules []monolith.Module
	health  *health.Server
	traces  apm.TraceProvider
	meters  *metrics.Provider
	scrape  *metrics.Server
}

// monolithApp is the concrete container returned by monolith.New.
type monolithApp interface {
	monolith.Monolith
	RegisterModules(modules ...monolith.Module) error
	StartModules(ctx context.Context, modules ...monolith.Module) error
	OnProgress(fn monolith.ProgressFunc)
	Close() error
}

// allModules lists the bounded contexts in dependency order.
func allModules() []monolith.Module {
	return []monolith.Module{
		&blockchain.Module{}, // block subscription and gas oracle
		&pricing.Module{},    // CEX/DEX providers and the venue aggregator
		&risk.Module{},       // position sizing for arbitrage
		&arbitrage.Module{},
		&mev.Module{},
		&flashloan.Module{},
		&crosschain.Module{},
		&liquidity.Module{},
		&market.Module{},
		&streaming.Module{}, // attaches to the publishers above
		&dashboard.Module{}, // serves everything above
	}
}

func parseLevel(s string) logger.Level {
	switch s {
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

// bootstrap loads config, observability and the module container. Modules
// are registered but not started.
func bootstrap(ctx context.Context, tuiMode bool) (*platform, error) {
	v, cfg, err := config.LoadViper(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Arbitrage.TUIMode = tuiMode

	var out io.Writer = os.Stderr
	if tuiMode {
		// In TUI mode, suppress logs (discard output)
		out = io.Discard
	}
	log := logger.New(out, parseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting dexter", "version", version, "environment", cfg.App.Environment)

	p := &platform{cfg: cfg, viper: v, log: log}

	if cfg.Telemetry.Enabled {
		headers, err := apm.ParseHeaders(cfg.Telemetry.OTLPHeaders)
		if err != nil {
			return nil, err
		}
		p.traces, err = apm.NewTraceProvider(ctx, apm.Options{
			ServiceName: cfg.Telemetry.ServiceName,
			Version:     version,
			Exporter:    apm.Exporter(cfg.Telemetry.Exporter),
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			Headers:     headers,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return nil, err
		}

		meterOpts := metrics.Options{
			ServiceName: cfg.Telemetry.ServiceName,
			Version:     version,
			Prometheus:  true,
		}
		if apm.Exporter(cfg.Telemetry.Exporter) == apm.ExporterOTLPGRPC {
			meterOpts.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
			meterOpts.OTLPHeaders = headers
		}
		p.meters, err = metrics.NewMetricProvider(ctx, meterOpts)
		if err != nil {
			p.close(ctx)
			return nil, err
		}
		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		p.scrape = metrics.NewServer(p.meters, port)
		if _, err := p.scrape.Start(func(err error) {
			log.Error(ctx, "metrics server stopped", "error", err)
		}); err != nil {
			p.close(ctx)
			return nil, err
		}
		log.Info(ctx, "telemetry initialized", "prometheus_port", port)
	}

	mono, err := monolith.New(cfg, log)
	if err != nil {
		p.close(ctx)
		return nil, fmt.Errorf("failed to create monolith: %w", err)
	}
	// Risk limits hot-reload from the same viper instance.
	mono.Container().Register("viper", v)
	p.mono = mono

	p.modules = allModules()
	if err := mono.RegisterModules(p.modules...); err != nil {
		p.close(ctx)
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}

	p.health = health.NewServer(cfg.Health.Port, version, log)
	return p, nil
}

// start starts every module and wires the health checks.
func (p *platform) start(ctx context.Context) error {
	if err := p.mono.StartModules(ctx, p.modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	sr := p.mono.Services()
	p.health.Register("ethereum", func(ctx context.Context) error {
		_, err := p.mono.EthClient().ChainID(ctx)
		return err
	})
	if sr.Has(streamingDI.Hub.Name()) {
		p.health.Register("stream", streamingDI.GetHub(sr).Check)
	}
	if sr.Has(riskDI.Manager.Name()) {
		p.health.Register("risk_store", riskDI.GetManager(sr).Ping)
	}
	if p.cfg.Redis.Enabled {
		p.health.Register("redis", streamingDI.GetRedisPublisher(sr).Check)
	}
	if sr.Has(dashboardDI.Server.Name()) {
		dashboardDI.GetServer(sr).Handle("/health", p.health.Handler())
	}
	if err := p.health.Start(); err != nil {
		p.log.Warn(ctx, "failed to start health server", "error", err)
	}
	return nil
}

func (p *platform) close(ctx context.Context) {
	if p.health != nil {
		_ = p.health.Stop(context.WithoutCancel(ctx))
	}
	if p.mono != nil {
		_ = p.mono.Close()
	}
	if p.scrape != nil {
		_ = p.scrape.Stop(context.WithoutCancel(ctx))
	}
	if p.meters != nil {
		_ = p.meters.Shutdown(context.WithoutCancel(ctx))
	}
	if p.traces != nil {
		_ = p.traces.Stop()
	}
}
