package uniswap

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Uniswap V3 pool fee tiers, in hundredths of a bip.
const (
	FeeTier001 = 100
	FeeTier005 = 500
	FeeTier030 = 3000
	FeeTier100 = 10000
)

// QuoterV2ABI covers quoteExactInputSingle only.
const QuoterV2ABI = `[{
	"name": "quoteExactInputSingle",
	"type": "function",
	"stateMutability": "nonpayable",
	"inputs": [{
		"name": "params",
		"type": "tuple",
		"internalType": "struct IQuoterV2.QuoteExactInputSingleParams",
		"components": [
			{"name": "tokenIn", "type": "address"},
			{"name": "tokenOut", "type": "address"},
			{"name": "amountIn", "type": "uint256"},
			{"name": "fee", "type": "uint24"},
			{"name": "sqrtPriceLimitX96", "type": "uint160"}
		]
	}],
	"outputs": [
		{"name": "amountOut", "type": "uint256"},
		{"name": "sqrtPriceX96After", "type": "uint160"},
		{"name": "initializedTicksCrossed", "type": "uint32"},
		{"name": "gasEstimate", "type": "uint256"}
	]
}]`

// erc20MetaABI reads token metadata for assets missing from the registry.
const erc20MetaABI = `[
	{"name": "decimals", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint8"}]},
	{"name": "symbol", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "string"}]}
]`

// exactInputSingle mirrors IQuoterV2.QuoteExactInputSingleParams.
type exactInputSingle struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type tierQuote struct {
	fee       int
	amountOut *big.Int
	gas       uint64
	ticks     uint32
}
