// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/dexter/business/market/app"
	"github.com/fd1az/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Store = di.NewToken[*app.Store]("market.Store")
)

// Helper functions for type-safe access
func GetStore(c di.ServiceRegistry) *app.Store {
	return di.GetToken(c, Store)
}
