// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/blockchain/domain"
)

// BlockchainService coordinates blockchain interactions.
type BlockchainService struct {
	subscriber BlockSubscriber
	gasOracle  GasOracle
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(subscriber BlockSubscriber, gasOracle GasOracle) *BlockchainService {
	return &BlockchainService{
		subscriber: subscriber,
		gasOracle:  gasOracle,
	}
}

// SubscribeBlocks starts the block subscription and returns the channel.
func (s *BlockchainService) SubscribeBlocks(ctx context.Context) (<-chan *domain.Block, error) {
	return s.subscriber.Subscribe(ctx)
}

// OnBlock registers a block listener.
func (s *BlockchainService) OnBlock(fn func(context.Context, *domain.Block)) {
	s.subscriber.OnBlock(fn)
}

// LatestBlock returns the most recent block header.
func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.subscriber.LatestBlock(ctx)
}

// GetGasPrice retrieves the current gas price.
func (s *BlockchainService) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GetGasPrice(ctx)
}

// EstimateGasCost prices a gas limit at the current gas price.
func (s *BlockchainService) EstimateGasCost(ctx context.Context, gasLimit uint64) (*domain.GasEstimate, error) {
	return s.gasOracle.EstimateGasCost(ctx, gasLimit)
}

// GasBaseline returns the rolling gas baseline in gwei.
func (s *BlockchainService) GasBaseline() (decimal.Decimal, bool) {
	return s.gasOracle.BaselineGwei()
}

// ConnectionState returns the current connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.subscriber.State()
}

// ConnectionStatus returns the subscriber's detailed status.
func (s *BlockchainService) ConnectionStatus() domain.ConnectionStatus {
	return s.subscriber.Status()
}
