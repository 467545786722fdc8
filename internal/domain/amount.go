package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount is a signed fixed-point quantity of an Asset, stored in base units
// (10^-Decimals of a display unit).
type Amount struct {
	asset Asset
	base  decimal.Decimal // always an integer
}

// NewAmount builds a non-negative Amount from display units. It fails with
// ErrInvalidAmount when the value carries more fractional digits than the
// asset's precision or is negative.
func NewAmount(asset Asset, display decimal.Decimal) (Amount, error) {
	if display.IsNegative() {
		return Amount{}, fmt.Errorf("domain: amount %s %s is negative: %w", display, asset, ErrInvalidAmount)
	}
	return NewSignedAmount(asset, display)
}

// NewSignedAmount is like NewAmount but accepts negative values.
func NewSignedAmount(asset Asset, display decimal.Decimal) (Amount, error) {
	if asset.Decimals < 0 || asset.Decimals > MaxDecimals {
		return Amount{}, fmt.Errorf("domain: asset %s decimals %d: %w", asset, asset.Decimals, ErrInvalidAmount)
	}
	base := display.Shift(asset.Decimals)
	if !base.Equal(base.Truncate(0)) {
		return Amount{}, fmt.Errorf("domain: amount %s exceeds %d decimals of %s: %w",
			display, asset.Decimals, asset, ErrInvalidAmount)
	}
	return Amount{asset: asset, base: base.Truncate(0)}, nil
}

// ParseAmount parses a display-unit string such as "1.5" into a non-negative Amount.
func ParseAmount(asset Asset, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("domain: parse amount %q: %w", s, ErrInvalidAmount)
	}
	return NewAmount(asset, d)
}

// AmountFromBase builds an Amount from integer base units.
func AmountFromBase(asset Asset, base *big.Int) Amount {
	if base == nil {
		base = new(big.Int)
	}
	return Amount{asset: asset, base: decimal.NewFromBigInt(base, 0)}
}

// AmountFromBaseInt64 is AmountFromBase for small values.
func AmountFromBaseInt64(asset Asset, base int64) Amount {
	return Amount{asset: asset, base: decimal.NewFromInt(base)}
}

// ZeroAmount returns a zero quantity of asset.
func ZeroAmount(asset Asset) Amount {
	return Amount{asset: asset, base: decimal.Zero}
}

// Asset returns the amount's asset.
func (a Amount) Asset() Asset { return a.asset }

// Base returns the integer base-unit value.
func (a Amount) Base() *big.Int { return a.base.BigInt() }

// Display returns the value in display units.
func (a Amount) Display() decimal.Decimal {
	return a.base.Shift(-a.asset.Decimals)
}

func (a Amount) IsZero() bool     { return a.base.IsZero() }
func (a Amount) IsPositive() bool { return a.base.IsPositive() }
func (a Amount) IsNegative() bool { return a.base.IsNegative() }

func (a Amount) sameAsset(b Amount) error {
	if !a.asset.Equal(b.asset) || a.asset.Decimals != b.asset.Decimals {
		return fmt.Errorf("domain: %s vs %s (%d/%d decimals): %w",
			a.asset, b.asset, a.asset.Decimals, b.asset.Decimals, ErrAssetMismatch)
	}
	return nil
}

// Add returns a+b. Both operands must share asset and precision.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.sameAsset(b); err != nil {
		return Amount{}, err
	}
	return Amount{asset: a.asset, base: a.base.Add(b.base)}, nil
}

// Sub returns a-b. Both operands must share asset and precision.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.sameAsset(b); err != nil {
		return Amount{}, err
	}
	return Amount{asset: a.asset, base: a.base.Sub(b.base)}, nil
}

// MulScalar multiplies by k, truncating toward zero at base-unit precision.
func (a Amount) MulScalar(k decimal.Decimal) Amount {
	return Amount{asset: a.asset, base: a.base.Mul(k).Truncate(0)}
}

// Ratio returns a/b as an unrounded decimal. It fails with ErrAssetMismatch or
// ErrInvalidAmount when b is zero.
func (a Amount) Ratio(b Amount) (decimal.Decimal, error) {
	if err := a.sameAsset(b); err != nil {
		return decimal.Zero, err
	}
	if b.base.IsZero() {
		return decimal.Zero, fmt.Errorf("domain: ratio by zero %s: %w", b.asset, ErrInvalidAmount)
	}
	return a.base.DivRound(b.base, 2*MaxDecimals), nil
}

// Convert rescales a to another precision of the same asset, truncating any
// digits the target precision cannot hold.
func (a Amount) Convert(decimals int32) Amount {
	asset := a.asset.WithDecimals(decimals)
	return Amount{asset: asset, base: a.base.Shift(decimals - a.asset.Decimals).Truncate(0)}
}

// Format renders the display value with exactly the asset's decimal places.
func (a Amount) Format() string {
	return a.Display().StringFixed(a.asset.Decimals)
}

// String renders "<display> <asset>".
func (a Amount) String() string {
	return a.Format() + " " + a.asset.String()
}
