// Package di contains dependency injection tokens for the dashboard context.
package di

import (
	"github.com/fd1az/dexter/business/dashboard/app"
	"github.com/fd1az/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Server = di.NewToken[*app.Server]("dashboard.Server")
)

// Private dependency tokens - internal to dashboard module
var (
	Handler = di.NewToken[*app.Handler]("dashboard:handler")
)

// Helper functions for type-safe access
func GetServer(c di.ServiceRegistry) *app.Server {
	return di.GetToken(c, Server)
}

func GetHandler(c di.ServiceRegistry) *app.Handler {
	return di.GetToken(c, Handler)
}
