package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var bpsPerUnit = decimal.NewFromInt(10_000)

// SpreadDirection names the leg order that captures a spread.
type SpreadDirection string

const (
	SpreadCEXToDEX SpreadDirection = "CEX_TO_DEX" // DEX rich: buy CEX, sell DEX
	SpreadDEXToCEX SpreadDirection = "DEX_TO_CEX" // DEX cheap: buy DEX, sell CEX
	SpreadNone     SpreadDirection = "NONE"
)

// Spread is the DEX price measured against a CEX reference.
type Spread struct {
	CEXPrice    decimal.Decimal
	DEXPrice    decimal.Decimal
	Absolute    decimal.Decimal // DEX - CEX, in quote units
	BasisPoints decimal.Decimal // Absolute relative to CEX; zero when CEX is zero
	Direction   SpreadDirection
}

// CalculateSpread measures dex against cex.
func CalculateSpread(cex, dex decimal.Decimal) Spread {
	s := Spread{
		CEXPrice:    cex,
		DEXPrice:    dex,
		Absolute:    dex.Sub(cex),
		BasisPoints: decimal.Zero,
		Direction:   SpreadNone,
	}
	if !cex.IsZero() {
		s.BasisPoints = s.Absolute.Div(cex).Mul(bpsPerUnit)
	}
	switch s.Absolute.Sign() {
	case 1:
		s.Direction = SpreadCEXToDEX
	case -1:
		s.Direction = SpreadDEXToCEX
	}
	return s
}

// Magnitude is the width of the spread in basis points, ignoring direction.
func (s Spread) Magnitude() decimal.Decimal { return s.BasisPoints.Abs() }

// Clears reports whether the spread is at least minBps wide.
func (s Spread) Clears(minBps decimal.Decimal) bool {
	return s.Direction != SpreadNone && s.Magnitude().GreaterThanOrEqual(minBps)
}

// Capture is the gross quote-currency value of trading size across the spread.
func (s Spread) Capture(size decimal.Decimal) decimal.Decimal {
	return s.Absolute.Abs().Mul(size)
}

func (s Spread) String() string {
	return fmt.Sprintf("%s bps %s", s.BasisPoints.StringFixed(2), s.Direction)
}
