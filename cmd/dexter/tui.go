package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	arbitrageDI "github.com/fd1az/dexter/business/arbitrage/di"
	"github.com/fd1az/dexter/internal/monolith"
	"github.com/fd1az/dexter/pkg/ui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the platform behind the terminal dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		p, err := bootstrap(ctx, true)
		if err != nil {
			return err
		}
		defer p.close(ctx)

		steps := make([]string, 0, len(p.modules))
		for _, m := range p.modules {
			steps = append(steps, monolith.ModuleName(m))
		}
		p.mono.OnProgress(func(module string, err error) {
			msg := ui.StartupMsg{Step: module, Status: ui.StepDone}
			if err != nil {
				msg.Status, msg.Message = ui.StepFailed, err.Error()
			}
			ui.Send(msg)
		})

		start := func() error {
			if err := p.start(ctx); err != nil {
				return err
			}
			go feedTUI(ctx, p.mono.Services(), p.cfg)
			return arbitrageDI.GetDetector(p.mono.Services()).Start(ctx)
		}
		stop := func() {
			_ = arbitrageDI.GetDetector(p.mono.Services()).Stop()
		}
		return runTUI(ctx, cancel, ui.New(steps...), start, stop)
	},
}

func runTUI(ctx context.Context, cancel context.CancelFunc, model ui.Model, startFunc func() error, stopFunc func()) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// The program starts on the welcome screen; modules start once it is left.
	p := tea.NewProgram(model, tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		// Connections happen here, the TUI shows progress
		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		stopFunc()
		errCh <- nil
	}()

	_, err := p.Run()
	// Quitting the TUI stops the platform.
	cancel()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
