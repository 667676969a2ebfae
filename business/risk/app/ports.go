// Package app contains the risk manager and its ports.
package app

import (
	"context"
	"time"

	"github.com/fd1az/dexter/business/risk/domain"
)

// Store persists portfolio history. Implementations prune entries older than
// the retention windows on every insert.
type Store interface {
	SaveSnapshot(ctx context.Context, s domain.Snapshot) error
	SavePnL(ctx context.Context, e domain.PnLEntry) error
	Snapshots(ctx context.Context, since time.Time) ([]domain.Snapshot, error)
	PnLEntries(ctx context.Context, since time.Time) ([]domain.PnLEntry, error)
	Ping(ctx context.Context) error
	Close() error
}
