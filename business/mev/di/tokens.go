// Package di contains dependency injection tokens for the MEV context.
package di

import (
	"github.com/fd1az/dexter/business/mev/app"
	"github.com/fd1az/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Detector = di.NewToken[*app.Detector]("mev.Detector")
)

// Private dependency tokens - internal to mev module
var (
	ProtectionEngine = di.NewToken[*app.ProtectionEngine]("mev:protectionEngine")
)

// Helper functions for type-safe access
func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

func GetProtectionEngine(c di.ServiceRegistry) *app.ProtectionEngine {
	return di.GetToken(c, ProtectionEngine)
}
