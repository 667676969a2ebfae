// Package domain contains the core domain types for the arbitrage context.
package domain

import "fmt"

// Direction is the side of the CEX/DEX pair that gets bought first.
type Direction string

const (
	// DirectionCEXToDEX buys on the exchange and sells into the pool.
	DirectionCEXToDEX Direction = "CEX_TO_DEX"

	// DirectionDEXToCEX buys from the pool and sells on the exchange.
	DirectionDEXToCEX Direction = "DEX_TO_CEX"
)

// Legs names the venue bought on and the venue sold on.
func (d Direction) Legs() (buy, sell string) {
	switch d {
	case DirectionCEXToDEX:
		return "Binance", "Uniswap"
	case DirectionDEXToCEX:
		return "Uniswap", "Binance"
	}
	return "", ""
}

func (d Direction) String() string {
	buy, sell := d.Legs()
	if buy == "" {
		return "Unknown"
	}
	return fmt.Sprintf("%s (buy %s, sell %s)", d.ShortString(), buy, sell)
}

// ShortString is the compact table label.
func (d Direction) ShortString() string {
	switch d {
	case DirectionCEXToDEX:
		return "CEX→DEX"
	case DirectionDEXToCEX:
		return "DEX→CEX"
	}
	return "?"
}
