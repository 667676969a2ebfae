package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	arbitrageDI "github.com/fd1az/dexter/business/arbitrage/di"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the headless platform: dashboard, stream and detectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	p, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer p.close(ctx)

	if err := p.start(ctx); err != nil {
		return err
	}

	detector := arbitrageDI.GetDetector(p.mono.Services())
	if err := detector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start detector: %w", err)
	}
	p.log.Info(ctx, "all modules started",
		"dashboard_port", p.cfg.Dashboard.Port, "stream_path", p.cfg.Streaming.Path)

	<-ctx.Done()
	p.log.Info(context.WithoutCancel(ctx), "shutting down")

	if err := detector.Stop(); err != nil {
		p.log.Error(context.WithoutCancel(ctx), "error stopping detector", "error", err)
	}
	return nil
}
