// Package app contains the liquidity pool manager and its background loops.
package app

import (
	"context"

	"github.com/fd1az/dexter/business/liquidity/domain"
)

// PoolSource discovers pools and their latest price, volume and fee.
type PoolSource interface {
	Pools(ctx context.Context) ([]domain.Pool, error)
}
