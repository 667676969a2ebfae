// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// EIP-1559 base fee adjustment: the target is half the gas limit and the
// fee moves by at most 1/8 per block.
const (
	elasticityMultiplier     = 2
	baseFeeChangeDenominator = 8
)

// Block is a head as seen by the subscriber.
type Block struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Timestamp  time.Time
	GasLimit   uint64
	GasUsed    uint64
	BaseFee    *big.Int // nil before London

	Source     string // head transport, or "rpc" for LatestBlock
	ReceivedAt time.Time
}

// BlockFromHeader copies the fields the pipeline reads out of h.
func BlockFromHeader(h *types.Header, source string, receivedAt time.Time) *Block {
	b := &Block{
		Number:     h.Number.Uint64(),
		Hash:       h.Hash(),
		ParentHash: h.ParentHash,
		Timestamp:  time.Unix(int64(h.Time), 0),
		GasLimit:   h.GasLimit,
		GasUsed:    h.GasUsed,
		Source:     source,
		ReceivedAt: receivedAt,
	}
	if h.BaseFee != nil {
		b.BaseFee = new(big.Int).Set(h.BaseFee)
	}
	return b
}

// Delay is how long after its timestamp the block arrived.
func (b *Block) Delay() time.Duration {
	if b.ReceivedAt.IsZero() {
		return 0
	}
	return b.ReceivedAt.Sub(b.Timestamp)
}

// BaseFeeGwei returns the base fee in gwei, zero before London.
func (b *Block) BaseFeeGwei() decimal.Decimal {
	if b.BaseFee == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(b.BaseFee, 0).Div(weiPerGwei)
}

// Utilization is GasUsed over GasLimit.
func (b *Block) Utilization() float64 {
	if b.GasLimit == 0 {
		return 0
	}
	return float64(b.GasUsed) / float64(b.GasLimit)
}

// NextBaseFee projects the base fee of the child block. It returns nil when
// b carries no base fee.
func (b *Block) NextBaseFee() *big.Int {
	if b.BaseFee == nil {
		return nil
	}
	target := b.GasLimit / elasticityMultiplier
	if target == 0 || b.GasUsed == target {
		return new(big.Int).Set(b.BaseFee)
	}

	used, tgt := new(big.Int).SetUint64(b.GasUsed), new(big.Int).SetUint64(target)
	delta := new(big.Int)
	if b.GasUsed > target {
		delta.Sub(used, tgt)
	} else {
		delta.Sub(tgt, used)
	}
	delta.Mul(delta, b.BaseFee)
	delta.Div(delta, tgt)
	delta.Div(delta, big.NewInt(baseFeeChangeDenominator))

	if b.GasUsed > target {
		if delta.Sign() == 0 {
			delta.SetInt64(1)
		}
		return delta.Add(b.BaseFee, delta)
	}
	next := new(big.Int).Sub(b.BaseFee, delta)
	if next.Sign() < 0 {
		next.SetInt64(0)
	}
	return next
}

// ConnectionState is the subscriber's transport state.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// ConnectionStatus is a snapshot of the subscriber and its last head.
type ConnectionStatus struct {
	State       ConnectionState
	Latency     time.Duration // delay of the last block
	LastBlock   uint64
	LastUpdate  time.Time
	BaseFeeGwei decimal.Decimal // of the last block
	Reconnects  int
	UsingHTTP   bool
}
