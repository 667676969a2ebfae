package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Chain and venue error codes
const (
	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumSubscribeFailed  Code = "ETHEREUM_SUBSCRIBE_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeBlockNotFound            Code = "BLOCK_NOT_FOUND"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeEthPriceUnavailable      Code = "ETH_USD_PRICE_UNAVAILABLE"

	// CEX (Binance) errors
	CodeBinanceConnectionFailed Code = "BINANCE_CONNECTION_FAILED"
	CodeBinanceAPIError         Code = "BINANCE_API_ERROR"
	CodeBinanceRateLimited      Code = "BINANCE_RATE_LIMITED"
	CodeOrderbookFetchFailed    Code = "ORDERBOOK_FETCH_FAILED"
	CodeInvalidOrderbook        Code = "INVALID_ORDERBOOK"

	// DEX (Uniswap) errors
	CodeUniswapQuoteFailed Code = "UNISWAP_QUOTE_FAILED"
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"

	CodeCacheExpired Code = "CACHE_EXPIRED"
	CodeCircuitOpen  Code = "CIRCUIT_OPEN"
)

// Venue (REST price source) error codes
const (
	CodeKrakenAPIError        Code = "KRAKEN_API_ERROR"
	CodeJupiterQuoteFailed    Code = "JUPITER_QUOTE_FAILED"
	CodeInvalidMint           Code = "INVALID_MINT"
	CodeGeckoTerminalAPIError Code = "GECKOTERMINAL_API_ERROR"
	CodeDexScreenerAPIError   Code = "DEXSCREENER_API_ERROR"
	CodeBitqueryAPIError      Code = "BITQUERY_API_ERROR"
	CodeVenuePairNotFound     Code = "VENUE_PAIR_NOT_FOUND"
	CodeAggregatorNoPrices    Code = "AGGREGATOR_NO_PRICES"
)

// Platform context error codes
const (
	// MEV
	CodeMEVRuleNotFound Code = "MEV_RULE_NOT_FOUND"
	CodeInvalidMEVRule  Code = "INVALID_MEV_RULE"

	// Flash loans
	CodeFlashLoanProviderNotFound Code = "FLASHLOAN_PROVIDER_NOT_FOUND"
	CodeFlashLoanStrategyNotFound Code = "FLASHLOAN_STRATEGY_NOT_FOUND"
	CodeInvalidFlashLoanToken     Code = "INVALID_FLASHLOAN_TOKEN"
	CodeInvalidFlashLoanAmount    Code = "INVALID_FLASHLOAN_AMOUNT"
	CodeFlashLoanPriceUnavailable Code = "FLASHLOAN_PRICE_UNAVAILABLE"

	// Cross-chain
	CodeChainNotFound       Code = "CHAIN_NOT_FOUND"
	CodeBridgeRouteNotFound Code = "BRIDGE_ROUTE_NOT_FOUND"
	CodeInvalidAddress      Code = "INVALID_ADDRESS"
	CodeCatalogLoadFailed   Code = "CATALOG_LOAD_FAILED"
	CodeInvalidTokenPrice   Code = "INVALID_TOKEN_PRICE"

	// Liquidity
	CodePoolNotFound     Code = "POOL_NOT_FOUND"
	CodePositionNotFound Code = "POSITION_NOT_FOUND"
	CodeInvalidLiquidity Code = "INVALID_LIQUIDITY_AMOUNT"
	CodeSlippageExceeded Code = "INVALID_SLIPPAGE_EXCEEDED"

	// Risk
	CodeRiskLimitExceeded Code = "INVALID_RISK_LIMIT_EXCEEDED"
	CodeInvalidOrder      Code = "INVALID_ORDER"
	CodeRiskStoreFailed   Code = "RISK_STORE_FAILED"

	// Market data
	CodeSymbolNotFound   Code = "SYMBOL_NOT_FOUND"
	CodeInvalidTimeframe Code = "INVALID_TIMEFRAME"
	CodeInvalidBacktest  Code = "INVALID_BACKTEST_CONFIG"
	CodeShortHistory     Code = "INSUFFICIENT_MARKET_HISTORY"

	// Streaming
	CodeInvalidSubscription Code = "INVALID_SUBSCRIPTION"
	CodeStreamPublishFailed Code = "STREAM_PUBLISH_FAILED"

	// Dashboard
	CodeInvalidRequestBody Code = "INVALID_REQUEST_BODY"
	CodeInvalidQueryParam  Code = "INVALID_QUERY_PARAM"
	CodeInvalidMarketPair  Code = "INVALID_MARKET_PAIR"
)
