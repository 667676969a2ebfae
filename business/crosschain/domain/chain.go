// Package domain contains chains, bridges and cross-chain routes.
package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Family groups chains that share an address format and fee model.
type Family string

const (
	FamilyEVM    Family = "evm"
	FamilySolana Family = "solana"
)

// DestinationGasUnits prices claiming bridged tokens on an EVM chain.
const DestinationGasUnits = 50_000

// Chain is a network a bridge can reach.
type Chain struct {
	ID            string          `yaml:"id" json:"id"`
	Name          string          `yaml:"name" json:"name"`
	Family        Family          `yaml:"family" json:"family"`
	NativeToken   string          `yaml:"native_token" json:"native_token"`
	ChainID       uint64          `yaml:"chain_id" json:"chain_id"`
	BlockTime     time.Duration   `yaml:"block_time" json:"block_time"`
	GasTokenPrice decimal.Decimal `yaml:"gas_token_price" json:"gas_token_price"`
	AvgGasPrice   decimal.Decimal `yaml:"avg_gas_price" json:"avg_gas_price"` // gwei, or native units per tx on solana
	SourceGas     uint64          `yaml:"source_gas" json:"source_gas"`
	Venues        []string        `yaml:"venues" json:"venues,omitempty"`
}

// GasCostUSD prices units of gas on the chain. Solana charges a flat native
// fee, so units are ignored there.
func (c Chain) GasCostUSD(units uint64) decimal.Decimal {
	if c.Family == FamilySolana {
		return c.AvgGasPrice.Mul(c.GasTokenPrice)
	}
	return decimal.NewFromInt(int64(units)).Mul(c.AvgGasPrice).Mul(c.GasTokenPrice).Shift(-9)
}

// QuotedBy reports whether a pricing venue quotes this chain.
func (c Chain) QuotedBy(venue string) bool {
	return slices.ContainsFunc(c.Venues, func(v string) bool { return strings.EqualFold(v, venue) })
}

// ValidateAddress checks addr against the chain family's address format.
func (c Chain) ValidateAddress(addr string) error {
	switch c.Family {
	case FamilySolana:
		if _, err := solana.PublicKeyFromBase58(addr); err != nil {
			return fmt.Errorf("%s address %q: %w", c.ID, addr, err)
		}
	default:
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s address %q: not a hex address", c.ID, addr)
		}
	}
	return nil
}

// Bridge moves tokens from one chain to another.
type Bridge struct {
	ID            string          `yaml:"id" json:"id"`
	Name          string          `yaml:"name" json:"name"`
	From          string          `yaml:"from" json:"source_chain"`
	To            string          `yaml:"to" json:"destination_chain"`
	Fee           decimal.Decimal `yaml:"fee" json:"fee_percentage"` // fraction of the amount
	MinAmount     decimal.Decimal `yaml:"min_amount" json:"min_amount"`
	MaxAmount     decimal.Decimal `yaml:"max_amount" json:"max_amount"`
	EstimatedTime time.Duration   `yaml:"estimated_time" json:"estimated_time"`
	Tokens        []string        `yaml:"tokens" json:"supported_tokens"`
}

// Supports reports whether the bridge carries token.
func (b Bridge) Supports(token string) bool {
	return slices.ContainsFunc(b.Tokens, func(t string) bool { return strings.EqualFold(t, token) })
}

// Touches reports whether chain is either end of the bridge.
func (b Bridge) Touches(chain string) bool {
	return b.From == chain || b.To == chain
}

// Catalog is the set of chains and bridges the service starts with.
type Catalog struct {
	Chains  []Chain  `yaml:"chains"`
	Bridges []Bridge `yaml:"bridges"`
}

// Validate checks that every bridge connects two known chains.
func (c Catalog) Validate() error {
	known := make(map[string]bool, len(c.Chains))
	for _, ch := range c.Chains {
		if ch.ID == "" {
			return fmt.Errorf("chain without id")
		}
		if ch.Family != FamilyEVM && ch.Family != FamilySolana {
			return fmt.Errorf("chain %q: unknown family %q", ch.ID, ch.Family)
		}
		known[ch.ID] = true
	}
	for _, b := range c.Bridges {
		if !known[b.From] || !known[b.To] {
			return fmt.Errorf("bridge %q: unknown chain %s -> %s", b.ID, b.From, b.To)
		}
		if b.Fee.IsNegative() || b.Fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("bridge %q: fee %s out of range", b.ID, b.Fee)
		}
		if len(b.Tokens) == 0 {
			return fmt.Errorf("bridge %q: no tokens", b.ID)
		}
	}
	return nil
}
