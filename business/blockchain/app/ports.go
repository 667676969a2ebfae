// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/blockchain/domain"
)

// BlockSubscriber defines the interface for subscribing to new blocks.
type BlockSubscriber interface {
	// Subscribe starts listening for new blocks and returns a channel of blocks.
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)

	// LatestBlock retrieves the most recent block.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// State returns the current connection state.
	State() domain.ConnectionState

	// Status adds the last block, its delay and the transport in use.
	Status() domain.ConnectionStatus

	// OnBlock registers a non-blocking listener for every processed block.
	OnBlock(fn func(context.Context, *domain.Block))
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// EstimateGas estimates the gas needed for a transaction.
	EstimateGas(ctx context.Context, data []byte, to string) (uint64, error)

	// EstimateGasCost prices a known gas limit.
	EstimateGasCost(ctx context.Context, gasLimit uint64) (*domain.GasEstimate, error)

	// BaselineGwei is the rolling mean gas price used as the MEV baseline.
	BaselineGwei() (decimal.Decimal, bool)

	// ObserveBlock feeds each new head's base fee into cost estimates.
	ObserveBlock(ctx context.Context, b *domain.Block)
}
