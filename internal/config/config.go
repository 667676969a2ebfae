// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Ethereum      EthereumConfig      `mapstructure:"ethereum"`
	Binance       BinanceConfig       `mapstructure:"binance"`
	Kraken        VenueConfig         `mapstructure:"kraken"`
	Jupiter       JupiterConfig       `mapstructure:"jupiter"`
	GeckoTerminal GeckoTerminalConfig `mapstructure:"geckoterminal"`
	DexScreener   VenueConfig         `mapstructure:"dexscreener"`
	Bitquery      BitqueryConfig      `mapstructure:"bitquery"`
	Uniswap       UniswapConfig       `mapstructure:"uniswap"`
	Arbitrage     ArbitrageConfig     `mapstructure:"arbitrage"`
	Aggregator    AggregatorConfig    `mapstructure:"aggregator"`
	MEV           MEVConfig           `mapstructure:"mev"`
	FlashLoan     FlashLoanConfig     `mapstructure:"flashloan"`
	CrossChain    CrossChainConfig    `mapstructure:"crosschain"`
	Liquidity     LiquidityConfig     `mapstructure:"liquidity"`
	Risk          RiskConfig          `mapstructure:"risk"`
	Market        MarketConfig        `mapstructure:"market"`
	Streaming     StreamingConfig     `mapstructure:"streaming"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Dashboard     DashboardConfig     `mapstructure:"dashboard"`
	Health        HealthConfig        `mapstructure:"health"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// BinanceConfig holds Binance API configuration.
type BinanceConfig struct {
	WebSocketURL string        `mapstructure:"websocket_url"` // wss://stream.binance.com:9443 or wss://stream.binance.us:9443 for US
	RESTURL      string        `mapstructure:"rest_url"`
	Symbols      []string      `mapstructure:"symbols"`
	DepthSpeedMs int           `mapstructure:"depth_speed_ms"`
	StaleTimeout time.Duration `mapstructure:"stale_timeout"`
}

// VenueConfig is the shared shape of the REST price venues.
type VenueConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// JupiterConfig holds Jupiter aggregator settings.
type JupiterConfig struct {
	VenueConfig `mapstructure:",squash"`
	SlippageBps int               `mapstructure:"slippage_bps"`
	Mints       map[string]string `mapstructure:"mints"` // symbol -> base58 mint
}

// GeckoTerminalConfig maps pairs to tracked pools.
type GeckoTerminalConfig struct {
	VenueConfig `mapstructure:",squash"`
	Network     string            `mapstructure:"network"`
	Pools       map[string]string `mapstructure:"pools"` // "ETH/USDC" -> pool address
}

// BitqueryConfig holds the GraphQL endpoint credentials.
type BitqueryConfig struct {
	VenueConfig `mapstructure:",squash"`
	APIKey      string `mapstructure:"api_key"`
	Network     string `mapstructure:"network"`
}

// UniswapConfig holds Uniswap V3 contract addresses.
type UniswapConfig struct {
	QuoterAddress  string `mapstructure:"quoter_address"`
	RouterAddress  string `mapstructure:"router_address"`
	FactoryAddress string `mapstructure:"factory_address"`
	DefaultFeeTier int    `mapstructure:"default_fee_tier"`
}

// QuoterAddressHex returns the quoter address as common.Address.
func (c *UniswapConfig) QuoterAddressHex() common.Address {
	return common.HexToAddress(c.QuoterAddress)
}

// RouterAddressHex returns the router address as common.Address.
func (c *UniswapConfig) RouterAddressHex() common.Address {
	return common.HexToAddress(c.RouterAddress)
}

// ArbitrageConfig holds CEX/DEX arbitrage detection configuration.
type ArbitrageConfig struct {
	Pairs        []string  `mapstructure:"pairs"`
	TradeSizes   []float64 `mapstructure:"trade_sizes"`
	MinProfitBps float64   `mapstructure:"min_profit_bps"`
	MinProfitUSD float64   `mapstructure:"min_profit_usd"`
	GasLimit     uint64    `mapstructure:"gas_limit"` // swap + transfer gas budget per opportunity
	DEXFee       float64   `mapstructure:"dex_fee"`
	CEXFee       float64   `mapstructure:"cex_fee"`
	TUIMode      bool      `mapstructure:"-"` // Set at runtime, not from config file
}

// TradeSizesDecimal returns trade sizes as decimal.Decimal slice.
func (c *ArbitrageConfig) TradeSizesDecimal() []decimal.Decimal {
	result := make([]decimal.Decimal, len(c.TradeSizes))
	for i, s := range c.TradeSizes {
		result[i] = decimal.NewFromFloat(s)
	}
	return result
}

// MinProfitUSDDecimal returns min profit USD as decimal.Decimal.
func (c *ArbitrageConfig) MinProfitUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitUSD)
}

// AggregatorConfig drives the cross-venue price aggregator.
type AggregatorConfig struct {
	Pairs        []string      `mapstructure:"pairs"`
	Interval     time.Duration `mapstructure:"interval"`
	MinProfitPct float64       `mapstructure:"min_profit_pct"`
	TopN         int           `mapstructure:"top_n"`
}

// MEVConfig holds detector and protection settings.
type MEVConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	GasThresholdGwei   float64       `mapstructure:"gas_threshold_gwei"`
	BaselineMultiplier float64       `mapstructure:"baseline_multiplier"`
	BaselineWindow     time.Duration `mapstructure:"baseline_window"`
	Sensitivity        float64       `mapstructure:"sensitivity"`
	MaxHistory         int           `mapstructure:"max_history"`
	ProtectionEnabled  bool          `mapstructure:"protection_enabled"`
}

// FlashLoanConfig holds simulator settings.
type FlashLoanConfig struct {
	GasPriceGwei float64 `mapstructure:"gas_price_gwei"`
	MaxHistory   int     `mapstructure:"max_history"`
}

// CrossChainConfig holds cross-chain scanner settings.
type CrossChainConfig struct {
	Tokens       []string      `mapstructure:"tokens"`
	TradeAmount  float64       `mapstructure:"trade_amount"`
	MinProfitPct float64       `mapstructure:"min_profit_pct"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
}

// LiquidityConfig holds pool manager settings.
type LiquidityConfig struct {
	ILThreshold       float64       `mapstructure:"il_threshold"`
	RebalanceInterval time.Duration `mapstructure:"rebalance_interval"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	CompoundInterval  time.Duration `mapstructure:"compound_interval"`
	MinLiquidityUSD   float64       `mapstructure:"min_liquidity_usd"`
	MaxSlippage       float64       `mapstructure:"max_slippage"`
}

// RiskConfig holds risk limits and the history store location.
type RiskConfig struct {
	PortfolioValue      float64 `mapstructure:"portfolio_value"`
	MaxPositionSize     float64 `mapstructure:"max_position_size"`
	MaxPortfolioRisk    float64 `mapstructure:"max_portfolio_risk"`
	MaxDailyLoss        float64 `mapstructure:"max_daily_loss"`
	MaxLeverage         float64 `mapstructure:"max_leverage"`
	StopLossPct         float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct       float64 `mapstructure:"take_profit_pct"`
	MaxCorrelatedTrades int     `mapstructure:"max_correlated_trades"`
	RiskPerTrade        float64 `mapstructure:"risk_per_trade"`
	DBPath              string  `mapstructure:"db_path"`
}

// MarketConfig holds candle store limits.
type MarketConfig struct {
	MaxCandles   int `mapstructure:"max_candles"`
	MaxTicks     int `mapstructure:"max_ticks"`
	MaxSnapshots int `mapstructure:"max_snapshots"`
}

// StreamingConfig holds the WebSocket hub settings.
type StreamingConfig struct {
	Path           string        `mapstructure:"path"`
	ClientBuffer   int           `mapstructure:"client_buffer"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// RedisConfig holds the optional stream fan-out target.
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	DB        int    `mapstructure:"db"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Stream    string `mapstructure:"stream"`
	ActiveKey string `mapstructure:"active_key"`
	MaxLen    int64  `mapstructure:"max_len"`
}

// DashboardConfig holds the REST API listener.
type DashboardConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// RequestsPerMinute caps each client address; 0 disables.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// HealthConfig holds the health listener.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ServiceName    string  `mapstructure:"service_name"`
	Exporter       string  `mapstructure:"exporter"` // zipkin, otlp-grpc, otlp-http, stdout, none
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string  `mapstructure:"otlp_headers"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
	PrometheusPort int     `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	_, cfg, err := LoadViper(configPath)
	return cfg, err
}

// LoadViper is Load that also returns the viper instance, for Watch.
func LoadViper(configPath string) (*viper.Viper, *Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("DEXTER")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return v, cfg, nil
}

// Watch re-decodes the config whenever the backing file changes and hands
// valid results to fn. Invalid edits are reported through onErr.
func Watch(v *viper.Viper, fn func(*Config), onErr func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			if onErr != nil {
				onErr(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		fn(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "DEXTER_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "DEXTER_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "DEXTER_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.websocket_url", "DEXTER_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.http_url", "DEXTER_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "DEXTER_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Venues
	v.BindEnv("binance.websocket_url", "DEXTER_BINANCE_WS_URL", "BINANCE_WS_URL")
	v.BindEnv("binance.rest_url", "DEXTER_BINANCE_REST_URL", "BINANCE_REST_URL")
	v.BindEnv("binance.symbols", "DEXTER_BINANCE_SYMBOLS", "BINANCE_SYMBOLS")
	v.BindEnv("bitquery.api_key", "DEXTER_BITQUERY_API_KEY", "BITQUERY_API_KEY")
	v.BindEnv("bitquery.enabled", "DEXTER_BITQUERY_ENABLED")

	// Uniswap
	v.BindEnv("uniswap.quoter_address", "DEXTER_UNISWAP_QUOTER", "UNISWAP_QUOTER")
	v.BindEnv("uniswap.router_address", "DEXTER_UNISWAP_ROUTER", "UNISWAP_ROUTER")

	// Arbitrage
	v.BindEnv("arbitrage.pairs", "DEXTER_PAIRS")
	v.BindEnv("arbitrage.min_profit_bps", "DEXTER_MIN_PROFIT_BPS")
	v.BindEnv("arbitrage.min_profit_usd", "DEXTER_MIN_PROFIT_USD")

	// Risk
	v.BindEnv("risk.portfolio_value", "DEXTER_PORTFOLIO_VALUE")
	v.BindEnv("risk.db_path", "DEXTER_RISK_DB", "RISK_DB_PATH")

	// Redis
	v.BindEnv("redis.enabled", "DEXTER_REDIS_ENABLED")
	v.BindEnv("redis.addr", "DEXTER_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "DEXTER_REDIS_PASSWORD", "REDIS_PASSWORD")

	// Telemetry
	v.BindEnv("telemetry.enabled", "DEXTER_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "DEXTER_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "DEXTER_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "DEXTER_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	v.BindEnv("telemetry.exporter", "DEXTER_OTEL_EXPORTER")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dexter")
	v.SetDefault("app.version", "3.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.max_reconnects", 0) // infinite
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")

	// Binance defaults
	v.SetDefault("binance.websocket_url", "wss://stream.binance.com:9443")
	v.SetDefault("binance.rest_url", "https://api.binance.com")
	v.SetDefault("binance.symbols", []string{"ETHUSDC"})
	v.SetDefault("binance.depth_speed_ms", 100)
	v.SetDefault("binance.stale_timeout", "5s")

	// REST venues
	setVenueDefaults(v, "kraken", "https://api.kraken.com/0/public", 60)
	setVenueDefaults(v, "jupiter", "https://quote-api.jup.ag/v6", 60)
	setVenueDefaults(v, "geckoterminal", "https://api.geckoterminal.com/api/v2", 30)
	setVenueDefaults(v, "dexscreener", "https://api.dexscreener.com/latest", 300)
	setVenueDefaults(v, "bitquery", "https://graphql.bitquery.io", 10)
	v.SetDefault("bitquery.enabled", false)
	v.SetDefault("bitquery.network", "ethereum")
	v.SetDefault("jupiter.slippage_bps", 50)
	v.SetDefault("jupiter.mints", map[string]string{
		"SOL":  "So11111111111111111111111111111111111111112",
		"USDC": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		"ETH":  "7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs",
	})
	v.SetDefault("geckoterminal.network", "eth")
	v.SetDefault("geckoterminal.pools", map[string]string{
		"ETH/USDC": "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640",
	})

	// Uniswap V3 Mainnet defaults
	v.SetDefault("uniswap.quoter_address", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("uniswap.router_address", "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	v.SetDefault("uniswap.factory_address", "0x1F98431c8aD98523631AE4a59f267346ea31F984")
	v.SetDefault("uniswap.default_fee_tier", 3000) // 0.3%

	// Arbitrage defaults
	v.SetDefault("arbitrage.pairs", []string{"ETH-USDC"})
	v.SetDefault("arbitrage.trade_sizes", []float64{0.1, 0.5, 1.0})
	v.SetDefault("arbitrage.min_profit_bps", 10)
	v.SetDefault("arbitrage.min_profit_usd", 5)
	v.SetDefault("arbitrage.gas_limit", 200000)
	v.SetDefault("arbitrage.dex_fee", 0.003)
	v.SetDefault("arbitrage.cex_fee", 0.001)

	// Aggregator defaults
	v.SetDefault("aggregator.pairs", []string{"ETH/USDC", "SOL/USDC"})
	v.SetDefault("aggregator.interval", "5s")
	v.SetDefault("aggregator.min_profit_pct", 0.1)
	v.SetDefault("aggregator.top_n", 10)

	// MEV defaults
	v.SetDefault("mev.enabled", true)
	v.SetDefault("mev.gas_threshold_gwei", 1000)
	v.SetDefault("mev.baseline_multiplier", 1.5)
	v.SetDefault("mev.baseline_window", "5m")
	v.SetDefault("mev.sensitivity", 0.8)
	v.SetDefault("mev.max_history", 10000)
	v.SetDefault("mev.protection_enabled", true)

	// Flash loan defaults
	v.SetDefault("flashloan.gas_price_gwei", 30)
	v.SetDefault("flashloan.max_history", 1000)

	// Cross-chain defaults
	v.SetDefault("crosschain.tokens", []string{"USDC", "USDT"})
	v.SetDefault("crosschain.trade_amount", 10000)
	v.SetDefault("crosschain.min_profit_pct", 0.5)
	v.SetDefault("crosschain.scan_interval", "30s")

	// Liquidity defaults
	v.SetDefault("liquidity.il_threshold", 0.05)
	v.SetDefault("liquidity.rebalance_interval", "5m")
	v.SetDefault("liquidity.metrics_interval", "30s")
	v.SetDefault("liquidity.compound_interval", "1h")
	v.SetDefault("liquidity.min_liquidity_usd", 1000)
	v.SetDefault("liquidity.max_slippage", 0.02)

	// Risk defaults
	v.SetDefault("risk.portfolio_value", 100000)
	v.SetDefault("risk.max_position_size", 0.1)
	v.SetDefault("risk.max_portfolio_risk", 0.2)
	v.SetDefault("risk.max_daily_loss", 0.05)
	v.SetDefault("risk.max_leverage", 3)
	v.SetDefault("risk.stop_loss_pct", 0.02)
	v.SetDefault("risk.take_profit_pct", 0.04)
	v.SetDefault("risk.max_correlated_trades", 3)
	v.SetDefault("risk.risk_per_trade", 0.01)
	v.SetDefault("risk.db_path", "dexter-risk.db")

	// Market defaults
	v.SetDefault("market.max_candles", 1000)
	v.SetDefault("market.max_ticks", 100000)
	v.SetDefault("market.max_snapshots", 10000)

	// Streaming defaults
	v.SetDefault("streaming.path", "/ws")
	v.SetDefault("streaming.client_buffer", 1000)
	v.SetDefault("streaming.write_timeout", "5s")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.stream", "dexter:stream")
	v.SetDefault("redis.active_key", "dexter:channels:active")
	v.SetDefault("redis.max_len", 10000)

	// Listeners
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("dashboard.read_timeout", "10s")
	v.SetDefault("dashboard.write_timeout", "15s")
	v.SetDefault("dashboard.requests_per_minute", 600)
	v.SetDefault("health.port", 8081)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dexter")
	v.SetDefault("telemetry.exporter", "zipkin")
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:9411/api/v2/spans")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.prometheus_port", 9090)
}

func setVenueDefaults(v *viper.Viper, venue, baseURL string, rpm int) {
	v.SetDefault(venue+".enabled", true)
	v.SetDefault(venue+".base_url", baseURL)
	v.SetDefault(venue+".timeout", "10s")
	v.SetDefault(venue+".requests_per_minute", rpm)
	v.SetDefault(venue+".cache_ttl", "3s")
}

// Validate reports every problem at once, joined.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Ethereum.WebSocketURL != "", "ethereum.websocket_url is required")
	check(c.Ethereum.HTTPURL != "", "ethereum.http_url is required")
	check(common.IsHexAddress(c.Uniswap.QuoterAddress), "invalid uniswap.quoter_address: %q", c.Uniswap.QuoterAddress)
	check(len(c.Binance.Symbols) > 0, "binance.symbols cannot be empty")
	check(!c.Bitquery.Enabled || c.Bitquery.APIKey != "", "bitquery.api_key is required when bitquery is enabled")

	for _, size := range c.Arbitrage.TradeSizes {
		check(size > 0, "arbitrage.trade_sizes must be positive: %v", size)
	}
	check(inUnit(c.Arbitrage.DEXFee) && c.Arbitrage.DEXFee < 1, "arbitrage.dex_fee must be in [0, 1): %v", c.Arbitrage.DEXFee)
	check(inUnit(c.Arbitrage.CEXFee) && c.Arbitrage.CEXFee < 1, "arbitrage.cex_fee must be in [0, 1): %v", c.Arbitrage.CEXFee)

	check(c.Risk.MaxPositionSize > 0 && c.Risk.MaxPositionSize <= 1, "risk.max_position_size must be in (0, 1]: %v", c.Risk.MaxPositionSize)
	check(c.Risk.PortfolioValue > 0, "risk.portfolio_value must be positive")
	check(inUnit(c.MEV.Sensitivity), "mev.sensitivity must be in [0, 1]: %v", c.MEV.Sensitivity)
	check(c.Liquidity.MaxSlippage > 0, "liquidity.max_slippage must be positive")
	check(c.Streaming.ClientBuffer > 0, "streaming.client_buffer must be positive")
	check(!c.Redis.Enabled || c.Redis.Addr != "", "redis.addr is required when redis is enabled")

	check(c.Dashboard.RequestsPerMinute >= 0, "dashboard.requests_per_minute cannot be negative")
	check(inUnit(c.Telemetry.SampleRatio), "telemetry.sample_ratio must be in [0, 1]: %v", c.Telemetry.SampleRatio)
	switch c.Telemetry.Exporter {
	case "", "zipkin", "otlp-grpc", "otlp-http", "stdout", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown telemetry.exporter %q", c.Telemetry.Exporter))
	}

	return errors.Join(errs...)
}

func inUnit(f float64) bool { return f >= 0 && f <= 1 }
