package asset

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type symbolKey struct {
	symbol  string
	chainID uint64
}

// Registry indexes known assets by ID and by symbol per chain. Symbol lookups
// are case-insensitive.
type Registry struct {
	mu       sync.RWMutex
	byID     map[AssetID]*Asset
	bySymbol map[symbolKey]*Asset
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[AssetID]*Asset),
		bySymbol: make(map[symbolKey]*Asset),
	}
}

// Register adds a. An ID or a symbol already taken on the same chain is an
// error.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return ErrNilAsset
	}
	key := symbolKey{strings.ToUpper(a.Symbol()), a.ChainID()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID()]; ok {
		return fmt.Errorf("asset: %s already registered", a.ID())
	}
	if other, ok := r.bySymbol[key]; ok {
		return fmt.Errorf("asset: symbol %s on chain %d already used by %s", a.Symbol(), a.ChainID(), other.ID())
	}
	r.byID[a.ID()] = a
	r.bySymbol[key] = a
	return nil
}

// MustRegister panics when Register fails.
func (r *Registry) MustRegister(assets ...*Asset) {
	for _, a := range assets {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
}

// Get finds an asset by ID.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// GetToken finds an ERC20 by contract address.
func (r *Registry) GetToken(chainID uint64, addr common.Address) (*Asset, bool) {
	if addr == (common.Address{}) {
		return nil, false
	}
	return r.Get(NewTokenAssetID(chainID, addr))
}

// GetBySymbolAndChain finds an asset by ticker on one chain. Fiat currencies
// live on chain 0.
func (r *Registry) GetBySymbolAndChain(symbol string, chainID uint64) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.bySymbol[symbolKey{strings.ToUpper(symbol), chainID}]
	return a, ok
}

// All returns every asset ordered by ID.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	out := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Asset) int { return strings.Compare(a.ID().String(), b.ID().String()) })
	return out
}

// Len returns the number of registered assets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
