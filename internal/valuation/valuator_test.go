package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

const depositHeight = 1_000_000

func amt(t *testing.T, a domain.Asset, s string) domain.Amount {
	t.Helper()
	v, err := domain.ParseAmount(a, s)
	require.NoError(t, err)
	return v
}

// A provider deposited 1 BTC + 100 RUNE and owns the whole pool. The price
// has since moved 4x, leaving 0.5 BTC + 200 RUNE: held value 500 RUNE,
// pooled value 400 RUNE, so full coverage is 100 RUNE.
func movedPool(t *testing.T) (domain.LiquidityPositionRecord, domain.PoolSnapshot) {
	t.Helper()
	rec := domain.LiquidityPositionRecord{
		Asset:             domain.AssetBTC,
		Units:             decimal.NewFromInt(1000),
		AssetDepositValue: amt(t, domain.AssetBTC, "1"),
		RuneDepositValue:  amt(t, domain.AssetRune, "100"),
		LastAddHeight:     depositHeight,
	}
	snap := domain.PoolSnapshot{
		Asset:      domain.AssetBTC,
		AssetDepth: amt(t, domain.AssetBTC, "0.5"),
		RuneDepth:  amt(t, domain.AssetRune, "200"),
		PoolUnits:  decimal.NewFromInt(1000),
		Status:     domain.PoolStatusAvailable,
	}
	return rec, snap
}

func TestComputePosition_Shares(t *testing.T) {
	rec, snap := movedPool(t)
	snap.PoolUnits = decimal.NewFromInt(4000)

	pos, err := NewValuator(DefaultParams()).ComputePosition(rec, snap, depositHeight)
	require.NoError(t, err)
	assert.True(t, pos.PoolShare.Equal(decimal.RequireFromString("0.25")))
	assert.Equal(t, "0.12500000", pos.AssetShare.Format())
	assert.Equal(t, "50.00000000", pos.RuneShare.Format())
}

func TestComputePosition_ProtectionVesting(t *testing.T) {
	rec, snap := movedPool(t)
	v := NewValuator(DefaultParams())

	at := func(h int64) domain.ImpermanentLossProtection {
		pos, err := v.ComputePosition(rec, snap, h)
		require.NoError(t, err)
		return pos.ILP
	}

	assert.True(t, at(depositHeight).Protection.IsZero(), "no protection at deposit time")
	assert.Equal(t, "50.00000000", at(depositHeight+DefaultFullProtectionBlocks/2).Protection.Format())
	assert.Equal(t, "100.00000000", at(depositHeight+DefaultFullProtectionBlocks).Protection.Format())
	assert.Equal(t, "100.00000000", at(depositHeight+5*DefaultFullProtectionBlocks).Protection.Format(), "capped at maturity")

	full := at(depositHeight + DefaultFullProtectionBlocks)
	assert.True(t, full.Progress.Equal(decimal.NewFromInt(1)))
	assert.True(t, full.TotalDays.Equal(decimal.NewFromInt(100)))
}

func TestComputePosition_ProtectionMonotonic(t *testing.T) {
	rec, snap := movedPool(t)
	v := NewValuator(DefaultParams())

	prev := decimal.NewFromInt(-1)
	for h := int64(depositHeight); h <= depositHeight+DefaultFullProtectionBlocks+DefaultBlocksPerDay; h += 7 * DefaultBlocksPerDay / 3 {
		pos, err := v.ComputePosition(rec, snap, h)
		require.NoError(t, err)
		cur := pos.ILP.Protection.Display()
		assert.True(t, cur.GreaterThanOrEqual(prev), "height %d: %s < %s", h, cur, prev)
		prev = cur
	}
}

func TestComputePosition_Idempotent(t *testing.T) {
	rec, snap := movedPool(t)
	v := NewValuator(DefaultParams())

	a, err := v.ComputePosition(rec, snap, depositHeight+12345)
	require.NoError(t, err)
	b, err := v.ComputePosition(rec, snap, depositHeight+12345)
	require.NoError(t, err)
	assert.Equal(t, a.ILP.Protection.Format(), b.ILP.Protection.Format())
	assert.True(t, a.ILP.Progress.Equal(b.ILP.Progress))
}

func TestComputePosition_NoLossNoProtection(t *testing.T) {
	rec, snap := movedPool(t)
	snap.AssetDepth = amt(t, domain.AssetBTC, "1")
	snap.RuneDepth = amt(t, domain.AssetRune, "100")

	pos, err := NewValuator(DefaultParams()).ComputePosition(rec, snap, depositHeight+DefaultFullProtectionBlocks)
	require.NoError(t, err)
	assert.True(t, pos.ILP.Protection.IsZero())
}

func TestComputePosition_Rejects(t *testing.T) {
	rec, snap := movedPool(t)
	v := NewValuator(Params{})
	assert.Equal(t, DefaultParams(), v.Params())

	other := snap
	other.Asset = domain.AssetETH
	_, err := v.ComputePosition(rec, other, depositHeight)
	assert.ErrorIs(t, err, domain.ErrAssetMismatch)

	rec.Units = decimal.NewFromInt(2000)
	_, err = v.ComputePosition(rec, snap, depositHeight)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestComputePosition_EmptyPool(t *testing.T) {
	rec, snap := movedPool(t)
	snap.AssetDepth = domain.ZeroAmount(domain.AssetBTC)
	snap.RuneDepth = domain.ZeroAmount(domain.AssetRune)
	snap.PoolUnits = decimal.Zero

	pos, err := NewValuator(DefaultParams()).ComputePosition(rec, snap, depositHeight+DefaultFullProtectionBlocks)
	require.NoError(t, err)
	assert.True(t, pos.AssetShare.IsZero())
	// held value of the rune side alone is still owed
	assert.Equal(t, "100.00000000", pos.ILP.Protection.Format())
}
