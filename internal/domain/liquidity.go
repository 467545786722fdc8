package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AddLiquidityRequest asks to deposit into the pool of Pool. Either side may
// be zero but not both.
type AddLiquidityRequest struct {
	Pool  Asset
	Asset Amount
	Rune  Amount
}

// Validate checks the request shape and returns its mode.
func (r AddLiquidityRequest) Validate() (Mode, error) {
	if r.Pool.IsZero() {
		return "", fmt.Errorf("add liquidity: pool asset required: %w", ErrInvalidRequest)
	}
	if r.Pool.IsRune() {
		return "", fmt.Errorf("add liquidity: %s is not a pool: %w", r.Pool, ErrInvalidRequest)
	}
	if r.Asset.IsNegative() || r.Rune.IsNegative() {
		return "", fmt.Errorf("add liquidity: negative side: %w", ErrInvalidRequest)
	}
	if !r.Asset.IsZero() && !r.Asset.Asset().Equal(r.Pool) {
		return "", fmt.Errorf("add liquidity: asset side %s does not match pool %s: %w",
			r.Asset.Asset(), r.Pool, ErrInvalidRequest)
	}
	if !r.Rune.IsZero() && !r.Rune.Asset().IsRune() {
		return "", fmt.Errorf("add liquidity: rune side is %s: %w", r.Rune.Asset(), ErrInvalidRequest)
	}
	switch {
	case r.Asset.IsPositive() && r.Rune.IsPositive():
		return ModeSymmetric, nil
	case r.Asset.IsPositive():
		return ModeAsymmetricAsset, nil
	case r.Rune.IsPositive():
		return ModeAsymmetricRune, nil
	default:
		return "", fmt.Errorf("add liquidity: both sides are zero: %w", ErrInvalidRequest)
	}
}

// WithdrawLiquidityRequest asks to withdraw Percentage (0 < p <= 100) of a
// position and names where each side is paid out.
type WithdrawLiquidityRequest struct {
	Pool         Asset
	Percentage   decimal.Decimal
	AssetAddress string
	RuneAddress  string
}

// MaxBasisPoints is 100%.
const MaxBasisPoints = 10000

// BasisPoints converts the percentage to integer basis points in 1..10000.
// Fractions of a basis point are truncated.
func (r WithdrawLiquidityRequest) BasisPoints() (int64, error) {
	if r.Percentage.LessThanOrEqual(decimal.Zero) || r.Percentage.GreaterThan(decimal.NewFromInt(100)) {
		return 0, fmt.Errorf("withdraw liquidity: percentage %s outside (0,100]: %w", r.Percentage, ErrInvalidPercentage)
	}
	bps := r.Percentage.Mul(decimal.NewFromInt(100)).IntPart()
	if bps < 1 || bps > MaxBasisPoints {
		return 0, fmt.Errorf("withdraw liquidity: %s%% is %d basis points: %w", r.Percentage, bps, ErrInvalidPercentage)
	}
	return bps, nil
}

// Mode derives the withdrawal mode from the supplied addresses.
func (r WithdrawLiquidityRequest) Mode() (Mode, error) {
	switch {
	case r.AssetAddress != "" && r.RuneAddress != "":
		return ModeSymmetric, nil
	case r.AssetAddress != "":
		return ModeAsymmetricAsset, nil
	case r.RuneAddress != "":
		return ModeAsymmetricRune, nil
	default:
		return "", fmt.Errorf("withdraw liquidity: no withdrawal address: %w", ErrInvalidRequest)
	}
}
