package main

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"

	"github.com/fd1az/dexter/business/flashloan/app"
	"github.com/fd1az/dexter/business/flashloan/domain"
	"github.com/fd1az/dexter/business/flashloan/infra/catalog"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/logger"
)

var simulateReq struct {
	provider string
	strategy string
	token    string
	amount   string
}

var simulateCmd = &cobra.Command{
	Use:     "simulate",
	Short:   "Run one flash-loan simulation and print it as JSON",
	Example: `  dexter simulate --provider aave --strategy arbitrage --token USDC --amount 100000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		amount, err := decimal.NewFromString(simulateReq.amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", simulateReq.amount, err)
		}

		cat, err := catalog.Default()
		if err != nil {
			return err
		}
		sim := app.NewSimulator(cat, app.Config{
			GasPriceGwei: decimal.NewFromFloat(cfg.FlashLoan.GasPriceGwei),
			MaxHistory:   1,
		}, logger.New(io.Discard, logger.LevelError, cfg.App.Name, nil))

		res, err := sim.Simulate(cmd.Context(), domain.Request{
			Provider: simulateReq.provider,
			Strategy: simulateReq.strategy,
			Token:    simulateReq.token,
			Amount:   amount,
		})
		if err != nil {
			return err
		}
		data, err := sonnet.Marshal(res)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simulateReq.provider, "provider", "aave", "Flash-loan provider")
	f.StringVar(&simulateReq.strategy, "strategy", "arbitrage", "Strategy to simulate")
	f.StringVar(&simulateReq.token, "token", "USDC", "Borrowed token")
	f.StringVar(&simulateReq.amount, "amount", "100000", "Borrowed amount in token units")
}
