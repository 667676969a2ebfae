// Package app contains the MEV detector, the protection engine and their ports.
package app

import (
	"context"

	"github.com/shopspring/decimal"
)

// BaselineSource supplies the rolling gas price baseline in gwei.
// Implemented by the blockchain service.
type BaselineSource interface {
	GasBaseline() (decimal.Decimal, bool)
}

// Publisher fans detections out to stream subscribers.
type Publisher interface {
	Publish(ctx context.Context, channel, msgType string, data any)
}
