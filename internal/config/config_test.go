package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
ethereum:
  websocket_url: wss://eth.example/ws
  http_url: https://eth.example
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Name != "dexter" {
		t.Errorf("app.name = %q, want dexter", cfg.App.Name)
	}
	if cfg.MEV.GasThresholdGwei != 1000 {
		t.Errorf("mev.gas_threshold_gwei = %v, want 1000", cfg.MEV.GasThresholdGwei)
	}
	if cfg.Liquidity.RebalanceInterval != 5*time.Minute {
		t.Errorf("liquidity.rebalance_interval = %v, want 5m", cfg.Liquidity.RebalanceInterval)
	}
	if cfg.Risk.MaxCorrelatedTrades != 3 {
		t.Errorf("risk.max_correlated_trades = %d, want 3", cfg.Risk.MaxCorrelatedTrades)
	}
	if cfg.Kraken.BaseURL != "https://api.kraken.com/0/public" {
		t.Errorf("kraken.base_url = %q", cfg.Kraken.BaseURL)
	}
	if cfg.Jupiter.SlippageBps != 50 || cfg.Jupiter.BaseURL == "" {
		t.Errorf("jupiter config not squashed: %+v", cfg.Jupiter)
	}
	if cfg.Streaming.ClientBuffer != 1000 {
		t.Errorf("streaming.client_buffer = %d, want 1000", cfg.Streaming.ClientBuffer)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DEXTER_MIN_PROFIT_USD", "42")
	t.Setenv("DEXTER_PORTFOLIO_VALUE", "250000")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Arbitrage.MinProfitUSD != 42 {
		t.Errorf("arbitrage.min_profit_usd = %v, want 42", cfg.Arbitrage.MinProfitUSD)
	}
	if cfg.Risk.PortfolioValue != 250000 {
		t.Errorf("risk.portfolio_value = %v, want 250000", cfg.Risk.PortfolioValue)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing websocket url",
			yaml:    "ethereum:\n  http_url: https://eth.example\n",
			wantErr: "ethereum.websocket_url",
		},
		{
			name:    "bitquery without key",
			yaml:    minimalYAML + "bitquery:\n  enabled: true\n",
			wantErr: "bitquery.api_key",
		},
		{
			name:    "position size above one",
			yaml:    minimalYAML + "risk:\n  max_position_size: 1.5\n",
			wantErr: "risk.max_position_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg.Ethereum.HTTPURL = ""
	cfg.Arbitrage.TradeSizes = []float64{1, -0.5}
	cfg.Telemetry.Exporter = "jaeger"
	cfg.Telemetry.SampleRatio = 2

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"ethereum.http_url", "arbitrage.trade_sizes", `"jaeger"`, "telemetry.sample_ratio"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
