// Package asset models crypto and fiat assets. Amounts are exact integers in
// the asset's smallest unit; decimals only appear at the edges.
package asset

import "github.com/ethereum/go-ethereum/common"

// Asset is the metadata of a coin, token or currency.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
}

// NewAsset creates an asset. It panics on an empty symbol or more than 30
// decimals.
func NewAsset(id AssetID, symbol string, decimals uint8) *Asset {
	return NewAssetWithName(id, symbol, "", decimals)
}

// NewAssetWithName is NewAsset with a display name.
func NewAssetWithName(id AssetID, symbol, name string, decimals uint8) *Asset {
	switch {
	case symbol == "":
		panic("asset: empty symbol")
	case decimals > 30:
		panic("asset: more than 30 decimals")
	}
	return &Asset{id: id, symbol: symbol, name: name, decimals: decimals}
}

func (a *Asset) ID() AssetID             { return a.id }
func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Decimals() uint8         { return a.decimals }
func (a *Asset) ChainID() uint64         { return a.id.ChainID() }
func (a *Asset) Address() common.Address { return a.id.Address() }
func (a *Asset) IsNative() bool          { return a.id.IsNative() }
func (a *Asset) IsToken() bool           { return a.id.IsToken() }
func (a *Asset) IsFiat() bool            { return a.id.IsFiat() }
func (a *Asset) String() string          { return a.symbol }

// Name falls back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Equals compares by ID; two nil assets are equal.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id
}
