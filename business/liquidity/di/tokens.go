// Package di contains dependency injection tokens for the liquidity context.
package di

import (
	"github.com/fd1az/dexter/business/liquidity/app"
	"github.com/fd1az/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Manager = di.NewToken[*app.Manager]("liquidity.Manager")
)

// Helper functions for type-safe access
func GetManager(c di.ServiceRegistry) *app.Manager {
	return di.GetToken(c, Manager)
}
