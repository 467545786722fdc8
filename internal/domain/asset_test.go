package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAsset(t *testing.T) {
	a, err := ParseAsset("BNB.BUSD-BD1", 8)
	require.NoError(t, err)
	assert.Equal(t, ChainBNB, a.Chain)
	assert.Equal(t, "BUSD", a.Ticker)
	assert.Equal(t, "BD1", a.ID)
	assert.Equal(t, "BNB.BUSD-BD1", a.String())

	eth, err := ParseAsset("eth.eth", 18)
	require.NoError(t, err)
	assert.True(t, eth.Equal(AssetETH))

	rn, err := ParseAsset("THOR.RUNE", 8)
	require.NoError(t, err)
	assert.True(t, rn.IsRune())

	for _, bad := range []string{"", "ETH", ".ETH", "ETH."} {
		_, err := ParseAsset(bad, 8)
		assert.ErrorIs(t, err, ErrInvalidRequest, bad)
	}

	_, err = ParseAsset("ETH.ETH", 30)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAsset_EqualIgnoresDecimals(t *testing.T) {
	assert.True(t, AssetETH.Equal(AssetETH.WithDecimals(8)))
	assert.False(t, AssetETH.Equal(AssetAVAX))
	assert.True(t, Asset{}.IsZero())
}

func TestLookupAsset(t *testing.T) {
	eth, err := LookupAsset("ETH.ETH", DecimalsUnknown)
	require.NoError(t, err)
	assert.Equal(t, int32(18), eth.Decimals)

	rn, err := LookupAsset("thor.rune", DecimalsUnknown)
	require.NoError(t, err)
	assert.Equal(t, int32(8), rn.Decimals)

	usdc, err := LookupAsset("ETH.USDC-0XA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48", DecimalsUnknown)
	require.NoError(t, err)
	assert.Equal(t, int32(SettlementDecimals), usdc.Decimals)

	usdc, err = LookupAsset("ETH.USDC-0XA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48", 6)
	require.NoError(t, err)
	assert.Equal(t, int32(6), usdc.Decimals)

	for _, bad := range []int32{19, -2} {
		_, err = LookupAsset("ETH.ETH", bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, "decimals %d", bad)
	}
	_, err = LookupAsset("nope", DecimalsUnknown)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLookupAssetZeroDecimals(t *testing.T) {
	tok, err := LookupAsset("BNB.TWT-8C2", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(0), tok.Decimals)

	one, err := ParseAmount(tok, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", one.Base().String())

	_, err = ParseAmount(tok, "0.5")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
