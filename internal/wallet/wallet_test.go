package wallet

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lpbot/internal/chain/chaintest"
	"github.com/alanyoungcy/lpbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWallet_RoutesByChain(t *testing.T) {
	j := &chaintest.Journal{}
	eth := chaintest.NewClient(j, domain.ChainETH, "0xabc")
	thor := chaintest.NewClient(j, domain.ChainTHOR, "thor1abc")

	w, err := New(testLogger(), thor, eth)
	require.NoError(t, err)
	assert.Equal(t, []domain.Chain{domain.ChainETH, domain.ChainTHOR}, w.Chains())

	addr, err := w.Address(context.Background(), domain.ChainETH)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", addr)

	one, _ := domain.ParseAmount(domain.AssetRune, "1")
	tx, err := w.BuildAndBroadcast(context.Background(), domain.ChainTHOR, domain.Deposit{From: "thor1abc", Amount: one, Memo: "ADD:ETH.ETH"})
	require.NoError(t, err)
	assert.Equal(t, "THOR-tx-1", tx)
	assert.Len(t, j.Broadcasts(), 1)
	assert.Equal(t, 1, j.CountFor(domain.ChainETH))
}

func TestWallet_UnknownChain(t *testing.T) {
	w, err := New(testLogger())
	require.NoError(t, err)

	_, err = w.Address(context.Background(), domain.ChainBTC)
	assert.ErrorIs(t, err, domain.ErrChainNotConfigured)

	_, err = w.BuildAndBroadcast(context.Background(), domain.ChainBTC, domain.Deposit{})
	assert.ErrorIs(t, err, domain.ErrChainNotConfigured)
	assert.False(t, w.Has(domain.ChainBTC))
}

func TestWallet_Errors(t *testing.T) {
	j := &chaintest.Journal{}
	boom := errors.New("rpc down")
	eth := chaintest.NewClient(j, domain.ChainETH, "")
	btc := chaintest.NewClient(j, domain.ChainBTC, "bc1q")
	btc.BroadcastErr = boom

	_, err := New(testLogger(), eth, chaintest.NewClient(j, domain.ChainETH, "0x2"))
	assert.Error(t, err)

	w, err := New(testLogger(), eth, btc)
	require.NoError(t, err)

	_, err = w.Address(context.Background(), domain.ChainETH)
	assert.Error(t, err, "empty address is rejected")

	_, err = w.BuildAndBroadcast(context.Background(), domain.ChainBTC, domain.Deposit{})
	assert.ErrorIs(t, err, boom)
}
