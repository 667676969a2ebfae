package domain

import "github.com/shopspring/decimal"

// ExitStrategy computes stop and target levels. Long is the default side.
type ExitStrategy struct {
	Short bool
}

// ATRStop places the stop mult ATRs away from entry.
func (e ExitStrategy) ATRStop(entry, atr, mult decimal.Decimal) decimal.Decimal {
	off := atr.Mul(mult)
	if e.Short {
		return entry.Add(off)
	}
	return entry.Sub(off)
}

// PercentStop places the stop pct away from entry.
func (e ExitStrategy) PercentStop(entry, pct decimal.Decimal) decimal.Decimal {
	return entry.Mul(decimal.NewFromInt(1).Sub(e.sign().Mul(pct)))
}

// PercentTarget places the target pct away from entry.
func (e ExitStrategy) PercentTarget(entry, pct decimal.Decimal) decimal.Decimal {
	return entry.Mul(decimal.NewFromInt(1).Add(e.sign().Mul(pct)))
}

// RiskRewardTarget places the target rr times the stop distance past entry.
func (e ExitStrategy) RiskRewardTarget(entry, stop, rr decimal.Decimal) decimal.Decimal {
	return entry.Add(e.sign().Mul(entry.Sub(stop).Abs().Mul(rr)))
}

// TrailingStop ratchets the stop toward price and never loosens it.
// A zero prev means no stop has been set yet.
func (e ExitStrategy) TrailingStop(prev, price, trail decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if e.Short {
		next := price.Mul(one.Add(trail))
		if prev.IsZero() {
			return next
		}
		return decimal.Min(prev, next)
	}
	return decimal.Max(prev, price.Mul(one.Sub(trail)))
}

func (e ExitStrategy) sign() decimal.Decimal {
	if e.Short {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}
