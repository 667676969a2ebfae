// Package di contains dependency injection tokens for the flashloan context.
package di

import (
	"github.com/fd1az/dexter/business/flashloan/app"
	"github.com/fd1az/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Simulator = di.NewToken[*app.Simulator]("flashloan.Simulator")
)

// Helper functions for type-safe access
func GetSimulator(c di.ServiceRegistry) *app.Simulator {
	return di.GetToken(c, Simulator)
}
