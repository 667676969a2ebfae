// Package di contains dependency injection tokens for the crosschain context.
package di

import (
	"github.com/fd1az/dexter/business/crosschain/app"
	"github.com/fd1az/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("crosschain.Service")
)

// Helper functions for type-safe access
func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}
