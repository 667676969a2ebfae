// Package di contains dependency injection tokens for the risk context.
package di

import (
	"github.com/fd1az/dexter/business/risk/app"
	"github.com/fd1az/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Manager = di.NewToken[*app.Manager]("risk.Manager")
)

// Private dependency tokens - internal to risk module
var (
	Store = di.NewToken[app.Store]("risk:store")
)

// Helper functions for type-safe access
func GetManager(c di.ServiceRegistry) *app.Manager {
	return di.GetToken(c, Manager)
}

func GetStore(c di.ServiceRegistry) app.Store {
	return di.GetToken(c, Store)
}
