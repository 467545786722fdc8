package poolquery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

type fakeSource struct {
	pools    map[string]domain.PoolSnapshot
	lps      map[string]domain.LiquidityPositionRecord // by address
	inbound  []domain.InboundAddress
	height   int64
	err      error
	lpLookup []string
}

func (f *fakeSource) Pool(_ context.Context, asset domain.Asset) (domain.PoolSnapshot, error) {
	if f.err != nil {
		return domain.PoolSnapshot{}, f.err
	}
	p, ok := f.pools[asset.String()]
	if !ok {
		return domain.PoolSnapshot{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeSource) LiquidityProvider(_ context.Context, _ domain.Asset, address string) (domain.LiquidityPositionRecord, error) {
	f.lpLookup = append(f.lpLookup, address)
	rec, ok := f.lps[address]
	if !ok {
		return domain.LiquidityPositionRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeSource) InboundAddresses(context.Context) ([]domain.InboundAddress, error) {
	return f.inbound, f.err
}

func (f *fakeSource) LastBlockHeight(context.Context) (int64, error) {
	return f.height, f.err
}

type countingLimiter struct{ waits int }

func (l *countingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

func (l *countingLimiter) Wait(context.Context, string) error {
	l.waits++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pool(t *testing.T, asset domain.Asset, assetDepth, runeDepth string, status domain.PoolStatus) domain.PoolSnapshot {
	t.Helper()
	ad, err := domain.ParseAmount(asset.WithDecimals(domain.SettlementDecimals), assetDepth)
	require.NoError(t, err)
	rd, err := domain.ParseAmount(domain.AssetRune, runeDepth)
	require.NoError(t, err)
	return domain.PoolSnapshot{Asset: asset, AssetDepth: ad, RuneDepth: rd, Status: status}
}

func TestAdapter_PoolSnapshot(t *testing.T) {
	src := &fakeSource{pools: map[string]domain.PoolSnapshot{
		"BTC.BTC":   pool(t, domain.AssetBTC, "10", "1000000", domain.PoolStatusAvailable),
		"ETH.ETH":   pool(t, domain.AssetETH, "0", "0", domain.PoolStatusStaged),
		"AVAX.AVAX": pool(t, domain.AssetAVAX, "1", "1", domain.PoolStatusSuspended),
	}}
	lim := &countingLimiter{}
	a := NewAdapter(src, lim, testLogger())
	ctx := context.Background()

	snap, err := a.PoolSnapshot(ctx, domain.AssetBTC)
	require.NoError(t, err)
	assert.Equal(t, domain.PoolStatusAvailable, snap.Status)

	snap, err = a.PoolSnapshot(ctx, domain.AssetETH)
	assert.ErrorIs(t, err, domain.ErrPoolStaged)
	assert.Equal(t, domain.PoolStatusStaged, snap.Status, "staged snapshot is still returned")

	_, err = a.PoolSnapshot(ctx, domain.AssetAVAX)
	assert.ErrorIs(t, err, domain.ErrPoolNotFound)

	_, err = a.PoolSnapshot(ctx, domain.AssetATOM)
	assert.ErrorIs(t, err, domain.ErrPoolNotFound)

	assert.Equal(t, 4, lim.waits)
}

func TestAdapter_PoolRatio(t *testing.T) {
	src := &fakeSource{pools: map[string]domain.PoolSnapshot{
		"BTC.BTC": pool(t, domain.AssetBTC, "10", "1000000", domain.PoolStatusAvailable),
		"ETH.ETH": pool(t, domain.AssetETH, "5", "0", domain.PoolStatusStaged),
	}}
	a := NewAdapter(src, nil, testLogger())

	r, err := a.PoolRatio(context.Background(), domain.AssetBTC)
	require.NoError(t, err)
	require.True(t, r.Defined)
	assert.True(t, r.AssetToRune.Equal(decimal.NewFromInt(100000)))

	r, err = a.PoolRatio(context.Background(), domain.AssetETH)
	require.NoError(t, err)
	assert.Equal(t, domain.UndefinedRatio, r)

	_, err = a.PoolRatio(context.Background(), domain.AssetATOM)
	assert.ErrorIs(t, err, domain.ErrPoolNotFound)
}

func TestAdapter_PositionRecord(t *testing.T) {
	rec := domain.LiquidityPositionRecord{Asset: domain.AssetBTC, Units: decimal.NewFromInt(100),
		PendingAsset: domain.ZeroAmount(domain.AssetBTC), PendingRune: domain.ZeroAmount(domain.AssetRune)}
	src := &fakeSource{lps: map[string]domain.LiquidityPositionRecord{"bc1asset": rec}}
	a := NewAdapter(src, nil, testLogger())
	ctx := context.Background()

	got, err := a.PositionRecord(ctx, domain.AssetBTC, "bc1asset", "thor1rune")
	require.NoError(t, err)
	assert.True(t, got.Units.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, []string{"thor1rune", "bc1asset"}, src.lpLookup)

	_, err = a.PositionRecord(ctx, domain.AssetBTC, "", "thor1none")
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)

	_, err = a.PositionRecord(ctx, domain.AssetBTC, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestAdapter_InboundAddress(t *testing.T) {
	src := &fakeSource{inbound: []domain.InboundAddress{
		{Chain: domain.ChainETH, Address: "0xvault", Router: "0xrouter"},
		{Chain: domain.ChainBTC, Address: "bc1vault", Halted: true},
	}}
	a := NewAdapter(src, nil, testLogger())
	ctx := context.Background()

	in, err := a.InboundAddress(ctx, domain.ChainETH)
	require.NoError(t, err)
	assert.Equal(t, "0xrouter", in.Router)

	_, err = a.InboundAddress(ctx, domain.ChainBTC)
	assert.ErrorIs(t, err, domain.ErrChainHalted)

	_, err = a.InboundAddress(ctx, domain.ChainGAIA)
	assert.ErrorIs(t, err, domain.ErrChainNotConfigured)

	_, err = a.InboundAddress(ctx, domain.ChainTHOR)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestAdapter_TransportErrorsPassThrough(t *testing.T) {
	boom := errors.New("connection refused")
	a := NewAdapter(&fakeSource{err: boom}, nil, testLogger())

	_, err := a.PoolSnapshot(context.Background(), domain.AssetBTC)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrPoolNotFound)

	_, err = a.BlockHeight(context.Background())
	assert.ErrorIs(t, err, boom)
}
