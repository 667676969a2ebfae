package asset

import "github.com/ethereum/go-ethereum/common"

// EVM chain IDs.
const (
	ChainIDFiat      = 0
	ChainIDEthereum  = 1
	ChainIDOptimism  = 10
	ChainIDBSC       = 56
	ChainIDPolygon   = 137
	ChainIDBase      = 8453
	ChainIDArbitrum  = 42161
	ChainIDAvalanche = 43114
)

// Ethereum mainnet token contracts.
var (
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDTEthereum = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrDAIEthereum  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrWETHEthereum = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrWBTCEthereum = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

var (
	ETH  = NewAssetWithName(NewNativeAssetID(ChainIDEthereum), "ETH", "Ethereum", 18)
	USDC = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrUSDCEthereum), "USDC", "USD Coin", 6)
	USDT = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrUSDTEthereum), "USDT", "Tether USD", 6)
	DAI  = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrDAIEthereum), "DAI", "Dai Stablecoin", 18)
	WETH = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrWETHEthereum), "WETH", "Wrapped Ether", 18)
	WBTC = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrWBTCEthereum), "WBTC", "Wrapped Bitcoin", 8)

	// USD denominates costs and P&L, in cents.
	USD = NewAssetWithName(NewFiatAssetID("USD"), "USD", "US Dollar", 2)
)

// DefaultRegistry holds the mainnet assets the pricing venues quote.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(ETH, USDC, USDT, DAI, WETH, WBTC, USD)
	return r
}
