package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Kind separates native coins, ERC20 tokens and off-chain currencies.
type Kind uint8

const (
	KindFiat Kind = iota
	KindNative
	KindToken
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindToken:
		return "erc20"
	default:
		return "fiat"
	}
}

// AssetID is the identity of an asset. Symbols are display metadata and
// never identify an asset on their own.
type AssetID struct {
	kind    Kind
	chainID uint64
	address common.Address
	code    string
}

// NewNativeAssetID identifies a chain's native coin.
func NewNativeAssetID(chainID uint64) AssetID {
	return AssetID{kind: KindNative, chainID: chainID}
}

// NewTokenAssetID identifies an ERC20 contract. It panics on the zero address.
func NewTokenAssetID(chainID uint64, addr common.Address) AssetID {
	if addr == (common.Address{}) {
		panic("asset: zero token address, use NewNativeAssetID")
	}
	return AssetID{kind: KindToken, chainID: chainID, address: addr}
}

// NewFiatAssetID identifies an ISO 4217 currency.
func NewFiatAssetID(code string) AssetID {
	return AssetID{kind: KindFiat, code: code}
}

func (id AssetID) Kind() Kind              { return id.kind }
func (id AssetID) ChainID() uint64         { return id.chainID }
func (id AssetID) Address() common.Address { return id.address }
func (id AssetID) IsNative() bool          { return id.kind == KindNative }
func (id AssetID) IsToken() bool           { return id.kind == KindToken }
func (id AssetID) IsFiat() bool            { return id.kind == KindFiat }

// Equals reports whether both IDs name the same asset.
func (id AssetID) Equals(other AssetID) bool {
	return id == other
}

// String renders the ID in CAIP-19 form, e.g. eip155:1/erc20:0xA0b8...
func (id AssetID) String() string {
	switch id.kind {
	case KindNative:
		return fmt.Sprintf("eip155:%d/slip44:60", id.chainID)
	case KindToken:
		return fmt.Sprintf("eip155:%d/erc20:%s", id.chainID, id.address.Hex())
	default:
		return "fiat:" + id.code
	}
}
