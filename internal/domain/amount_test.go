package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_RoundTripAllPrecisions(t *testing.T) {
	for dec := int32(0); dec <= MaxDecimals; dec++ {
		asset := Asset{Chain: ChainETH, Ticker: "TKN", Decimals: dec}
		display := decimal.New(123456789, -dec) // fits exactly in dec places

		a, err := NewAmount(asset, display)
		require.NoError(t, err, "decimals %d", dec)

		back := AmountFromBase(asset, a.Base())
		assert.True(t, back.Display().Equal(display), "decimals %d: got %s want %s", dec, back.Display(), display)
		assert.Equal(t, big.NewInt(123456789), back.Base(), "decimals %d", dec)
	}
}

func TestNewAmount_Rejects(t *testing.T) {
	_, err := NewAmount(AssetBTC, decimal.RequireFromString("0.000000001"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewAmount(AssetBTC, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewAmount(Asset{Chain: ChainETH, Ticker: "X", Decimals: 19}, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount(AssetRune, "abc")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAmount_Arithmetic(t *testing.T) {
	a, err := ParseAmount(AssetRune, "1.5")
	require.NoError(t, err)
	b, err := ParseAmount(AssetRune, "0.25")
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "1.75000000", sum.Format())

	diff, err := b.Sub(a)
	require.NoError(t, err)
	assert.True(t, diff.IsNegative())
	assert.Equal(t, "-1.25000000", diff.Format())

	half := a.MulScalar(decimal.RequireFromString("0.5"))
	assert.Equal(t, "0.75000000", half.Format())

	r, err := a.Ratio(b)
	require.NoError(t, err)
	assert.True(t, r.Equal(decimal.NewFromInt(6)))

	assert.Equal(t, "1.50000000 THOR.RUNE", a.String())
}

func TestAmount_MismatchAndZeroDivision(t *testing.T) {
	rune1, _ := ParseAmount(AssetRune, "1")
	btc1, _ := ParseAmount(AssetBTC, "1")

	_, err := rune1.Add(btc1)
	assert.ErrorIs(t, err, ErrAssetMismatch)

	// same asset at another precision is not implicitly rescaled
	eth18, _ := ParseAmount(AssetETH, "1")
	_, err = eth18.Sub(eth18.Convert(SettlementDecimals))
	assert.ErrorIs(t, err, ErrAssetMismatch)

	_, err = rune1.Ratio(ZeroAmount(AssetRune))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAmount_ConvertTruncates(t *testing.T) {
	eth, err := ParseAmount(AssetETH, "1.123456789123456789")
	require.NoError(t, err)

	settled := eth.Convert(SettlementDecimals)
	assert.Equal(t, int32(8), settled.Asset().Decimals)
	assert.Equal(t, "1.12345678", settled.Format())

	back := settled.Convert(18)
	assert.Equal(t, "1.123456780000000000", back.Format())
}
