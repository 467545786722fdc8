// Package valuation prices a liquidity position against a pool snapshot and
// computes its vested impermanent-loss protection.
package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// Protocol defaults: 14,400 blocks a day and full protection after 100 days.
const (
	DefaultBlocksPerDay         = 14400
	DefaultFullProtectionBlocks = 100 * DefaultBlocksPerDay
)

// Params holds the protocol constants the valuation depends on.
type Params struct {
	BlocksPerDay         int64
	FullProtectionBlocks int64
}

// DefaultParams returns the mainnet constants.
func DefaultParams() Params {
	return Params{
		BlocksPerDay:         DefaultBlocksPerDay,
		FullProtectionBlocks: DefaultFullProtectionBlocks,
	}
}

// Valuator is a pure function of its inputs; it holds only Params.
type Valuator struct {
	params Params
}

// NewValuator creates a Valuator. Non-positive params fall back to defaults.
func NewValuator(p Params) *Valuator {
	d := DefaultParams()
	if p.BlocksPerDay <= 0 {
		p.BlocksPerDay = d.BlocksPerDay
	}
	if p.FullProtectionBlocks <= 0 {
		p.FullProtectionBlocks = d.FullProtectionBlocks
	}
	return &Valuator{params: p}
}

// Params returns the constants in use.
func (v *Valuator) Params() Params { return v.params }

// ComputePosition values rec against snap at settlement height. All amounts in
// the result are in settlement precision.
func (v *Valuator) ComputePosition(rec domain.LiquidityPositionRecord, snap domain.PoolSnapshot, height int64) (domain.LiquidityPosition, error) {
	if !rec.Asset.Equal(snap.Asset) {
		return domain.LiquidityPosition{}, fmt.Errorf("valuation: record %s vs pool %s: %w", rec.Asset, snap.Asset, domain.ErrAssetMismatch)
	}

	assetDepth := snap.AssetDepth.Convert(domain.SettlementDecimals)
	runeDepth := snap.RuneDepth.Convert(domain.SettlementDecimals)

	share := decimal.Zero
	if snap.PoolUnits.IsPositive() {
		share = rec.Units.DivRound(snap.PoolUnits, 2*domain.MaxDecimals)
	}
	if share.GreaterThan(decimal.NewFromInt(1)) {
		return domain.LiquidityPosition{}, fmt.Errorf("valuation: %s units exceed pool units %s: %w", rec.Units, snap.PoolUnits, domain.ErrInvalidAmount)
	}

	pos := domain.LiquidityPosition{
		Record:     rec,
		Pool:       snap,
		AssetShare: assetDepth.MulScalar(share),
		RuneShare:  runeDepth.MulScalar(share),
		PoolShare:  share,
	}

	pos.ILP = v.protection(rec, pos, snap.Ratio(), height)
	return pos, nil
}

// protection is the held-versus-pooled rune shortfall, priced at the current
// pool price and vested linearly over FullProtectionBlocks.
func (v *Valuator) protection(rec domain.LiquidityPositionRecord, pos domain.LiquidityPosition, ratio domain.PoolRatio, height int64) domain.ImpermanentLossProtection {
	a0 := decimal.NewFromBigInt(rec.AssetDepositValue.Convert(domain.SettlementDecimals).Base(), 0)
	r0 := decimal.NewFromBigInt(rec.RuneDepositValue.Convert(domain.SettlementDecimals).Base(), 0)
	a1 := decimal.NewFromBigInt(pos.AssetShare.Base(), 0)
	r1 := decimal.NewFromBigInt(pos.RuneShare.Base(), 0)

	// P1 in rune per asset. Both sides share settlement precision so the
	// base-unit quotient equals the display quotient.
	var p1 decimal.Decimal
	switch {
	case a1.IsPositive():
		p1 = r1.DivRound(a1, 2*domain.MaxDecimals)
	case ratio.Defined:
		p1 = ratio.AssetToRune
	default:
		p1 = decimal.Zero
	}

	held := a0.Mul(p1).Add(r0)
	pooled := a1.Mul(p1).Add(r1)
	coverage := held.Sub(pooled)
	if coverage.IsNegative() {
		coverage = decimal.Zero
	}

	elapsed := height - rec.LastAddHeight
	if elapsed < 0 || rec.LastAddHeight <= 0 {
		elapsed = 0
	}
	progress := decimal.NewFromInt(elapsed).DivRound(decimal.NewFromInt(v.params.FullProtectionBlocks), 2*domain.MaxDecimals)
	if progress.GreaterThan(decimal.NewFromInt(1)) {
		progress = decimal.NewFromInt(1)
	}

	protected := coverage.Mul(progress).Truncate(0)
	return domain.ImpermanentLossProtection{
		Protection: domain.AmountFromBase(domain.AssetRune, protected.BigInt()),
		Progress:   progress,
		TotalDays:  decimal.NewFromInt(elapsed).DivRound(decimal.NewFromInt(v.params.BlocksPerDay), 4),
	}
}
