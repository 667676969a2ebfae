package apperror

// messages are the default user-facing text per code.
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeBlockNotFound:            "Block not found",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeEthPriceUnavailable:      "No ETH/USD price to convert gas",

	// CEX (Binance) errors
	CodeBinanceConnectionFailed: "Failed to connect to Binance API",
	CodeBinanceAPIError:         "Binance API error",
	CodeBinanceRateLimited:      "Binance rate limit exceeded",
	CodeOrderbookFetchFailed:    "Failed to fetch orderbook",
	CodeInvalidOrderbook:        "Invalid orderbook data",

	// DEX (Uniswap) errors
	CodeUniswapQuoteFailed: "Failed to get Uniswap quote",
	CodeContractCallFailed: "Smart contract call failed",

	CodeCacheExpired: "Cache entry expired",
	CodeCircuitOpen:  "Circuit breaker is open",

	// Venue errors
	CodeKrakenAPIError:        "Kraken API error",
	CodeJupiterQuoteFailed:    "Failed to get Jupiter quote",
	CodeInvalidMint:           "Invalid Solana mint address",
	CodeGeckoTerminalAPIError: "GeckoTerminal API error",
	CodeDexScreenerAPIError:   "DEX Screener API error",
	CodeBitqueryAPIError:      "Bitquery API error",
	CodeVenuePairNotFound:     "Pair not listed on venue",
	CodeAggregatorNoPrices:    "No venue returned prices",

	// MEV
	CodeMEVRuleNotFound: "Protection rule not found",
	CodeInvalidMEVRule:  "Invalid protection rule",

	// Flash loans
	CodeFlashLoanProviderNotFound: "Flash loan provider not found",
	CodeFlashLoanStrategyNotFound: "Flash loan strategy not found",
	CodeInvalidFlashLoanToken:     "Token not supported by flash loan provider",
	CodeInvalidFlashLoanAmount:    "Flash loan amount outside provider limits",
	CodeFlashLoanPriceUnavailable: "No USD price for flash loan token",

	// Cross-chain
	CodeChainNotFound:       "Chain not found",
	CodeBridgeRouteNotFound: "No bridge route found",
	CodeInvalidAddress:      "Invalid address for chain",
	CodeCatalogLoadFailed:   "Failed to load catalog",

	// Liquidity
	CodePoolNotFound:     "Liquidity pool not found",
	CodePositionNotFound: "Liquidity position not found",
	CodeInvalidLiquidity: "Invalid liquidity amount",
	CodeSlippageExceeded: "Slippage exceeds maximum",

	// Risk
	CodeRiskLimitExceeded: "Risk limit exceeded",
	CodeInvalidOrder:      "Invalid order",
	CodeRiskStoreFailed:   "Risk history store failure",

	// Market data
	CodeSymbolNotFound:   "Symbol not found",
	CodeInvalidTimeframe: "Invalid timeframe",
	CodeInvalidBacktest:  "Invalid backtest configuration",
	CodeShortHistory:     "Not enough market history",

	// Streaming
	CodeInvalidSubscription: "Invalid subscription request",
	CodeStreamPublishFailed: "Failed to publish stream message",

	// Dashboard
	CodeInvalidRequestBody: "Request body could not be decoded",
	CodeInvalidQueryParam:  "Invalid query parameter",
	CodeInvalidMarketPair:  "Invalid market pair",
}
