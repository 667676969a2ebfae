package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrAssetMismatch   = errors.New("asset: different assets")
	ErrNegativeResult  = errors.New("asset: result would be negative")
	ErrTooManyDecimals = errors.New("asset: too many decimal places")
)

// Amount is an immutable non-negative quantity in the asset's smallest unit.
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount copies raw. It panics on a nil asset or a negative value.
func NewAmount(a *Asset, raw *big.Int) Amount {
	switch {
	case a == nil:
		panic(ErrNilAsset)
	case raw == nil:
		raw = new(big.Int)
	case raw.Sign() < 0:
		panic(ErrNegativeAmount)
	}
	return Amount{raw: new(big.Int).Set(raw), asset: a}
}

// Zero returns a zero amount of a.
func Zero(a *Asset) Amount {
	return NewAmount(a, nil)
}

// ParseDecimal converts a human amount such as 1.5 ETH. Fractions finer than
// the asset's decimals are rejected, not rounded.
func ParseDecimal(a *Asset, d decimal.Decimal) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	scaled := d.Shift(int32(a.Decimals()))
	if !scaled.IsInteger() {
		return Amount{}, fmt.Errorf("%w: %s has %d", ErrTooManyDecimals, a.Symbol(), a.Decimals())
	}
	return NewAmount(a, scaled.BigInt()), nil
}

// ParseString is ParseDecimal for strings.
func ParseString(a *Asset, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: parse %q: %w", s, err)
	}
	return ParseDecimal(a, d)
}

// Raw returns a copy of the smallest-unit value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

func (a Amount) Asset() *Asset    { return a.asset }
func (a Amount) IsZero() bool     { return a.raw == nil || a.raw.Sign() == 0 }
func (a Amount) IsPositive() bool { return a.raw != nil && a.raw.Sign() > 0 }

// Add sums two amounts of the same asset.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.sameAsset(b); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.asset, new(big.Int).Add(a.Raw(), b.Raw())), nil
}

// Sub returns a-b, or ErrNegativeResult when b is larger.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.sameAsset(b); err != nil {
		return Amount{}, err
	}
	diff := new(big.Int).Sub(a.Raw(), b.Raw())
	if diff.Sign() < 0 {
		return Amount{}, ErrNegativeResult
	}
	return NewAmount(a.asset, diff), nil
}

// Cmp compares two amounts of the same asset.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.sameAsset(b); err != nil {
		return 0, err
	}
	return a.Raw().Cmp(b.Raw()), nil
}

// ToDecimal converts to whole units for display and USD math.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.Decimals()))
}

// ToFloat64 is for logging and metrics only.
func (a Amount) ToFloat64() float64 {
	return a.ToDecimal().InexactFloat64()
}

// String renders "1.5 ETH".
func (a Amount) String() string {
	return a.ToDecimal().String() + " " + a.symbol()
}

// StringFixed renders with a fixed number of places.
func (a Amount) StringFixed(places int32) string {
	return a.ToDecimal().StringFixed(places) + " " + a.symbol()
}

func (a Amount) symbol() string {
	if a.asset == nil {
		return "???"
	}
	return a.asset.Symbol()
}

func (a Amount) sameAsset(b Amount) error {
	if a.asset == nil || b.asset == nil {
		return ErrNilAsset
	}
	if !a.asset.Equals(b.asset) {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset, b.asset)
	}
	return nil
}
