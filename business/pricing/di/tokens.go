// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/dexter/business/pricing/app"
	"github.com/fd1az/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
	Aggregator     = di.NewToken[*app.Aggregator]("pricing.Aggregator")
)

// Private dependency tokens - internal to pricing module
var (
	CEXProvider  = di.NewToken[app.CEXProvider]("pricing:cexProvider")
	DEXProvider  = di.NewToken[app.DEXProvider]("pricing:dexProvider")
	VenueSources = di.NewToken[[]app.VenuePriceSource]("pricing:venueSources")
)

// Helper functions for type-safe access
func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}

func GetAggregator(c di.ServiceRegistry) *app.Aggregator {
	return di.GetToken(c, Aggregator)
}

func GetCEXProvider(c di.ServiceRegistry) app.CEXProvider {
	return di.GetToken(c, CEXProvider)
}

func GetDEXProvider(c di.ServiceRegistry) app.DEXProvider {
	return di.GetToken(c, DEXProvider)
}

func GetVenueSources(c di.ServiceRegistry) []app.VenuePriceSource {
	return di.GetToken(c, VenueSources)
}
