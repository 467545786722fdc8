package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lpbot/internal/config"
	"github.com/alanyoungcy/lpbot/internal/domain"
	"github.com/alanyoungcy/lpbot/internal/service"
	"github.com/alanyoungcy/lpbot/internal/valuation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCoord struct {
	outcome  domain.Outcome
	err      error
	add      domain.AddLiquidityRequest
	withdraw domain.WithdrawLiquidityRequest
}

func (c *fakeCoord) AddLiquidityPosition(_ context.Context, req domain.AddLiquidityRequest) (domain.Outcome, error) {
	c.add = req
	return c.outcome, c.err
}

func (c *fakeCoord) WithdrawLiquidityPosition(_ context.Context, req domain.WithdrawLiquidityRequest) (domain.Outcome, error) {
	c.withdraw = req
	return c.outcome, c.err
}

func (c *fakeCoord) SizeSymmetricAdd(_ context.Context, asset domain.Amount) (domain.AddLiquidityRequest, error) {
	return domain.AddLiquidityRequest{
		Pool:  asset.Asset(),
		Asset: asset,
		Rune:  domain.AmountFromBaseInt64(domain.AssetRune, 100_000_000),
	}, nil
}

type fakePools struct {
	snap   domain.PoolSnapshot
	rec    domain.LiquidityPositionRecord
	height int64
}

func (p *fakePools) PoolSnapshot(context.Context, domain.Asset) (domain.PoolSnapshot, error) {
	return p.snap, nil
}

func (p *fakePools) PositionRecord(context.Context, domain.Asset, string, string) (domain.LiquidityPositionRecord, error) {
	return p.rec, nil
}

func (p *fakePools) BlockHeight(context.Context) (int64, error) { return p.height, nil }

type fakeActions struct {
	byStatus map[domain.OutcomeStatus][]domain.ActionRecord
}

func (f *fakeActions) Create(context.Context, domain.ActionRecord) error { return nil }

func (f *fakeActions) GetByID(context.Context, string) (domain.ActionRecord, error) {
	return domain.ActionRecord{}, domain.ErrNotFound
}

func (f *fakeActions) ListRecent(context.Context, domain.ListOpts) ([]domain.ActionRecord, error) {
	return nil, nil
}

func (f *fakeActions) ListByStatus(_ context.Context, status domain.OutcomeStatus, _ domain.ListOpts) ([]domain.ActionRecord, error) {
	return f.byStatus[status], nil
}

type fakeBlobs struct {
	paths []string
}

func (b *fakeBlobs) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b.paths = append(b.paths, path)
	_, err := io.Copy(io.Discard, data)
	return err
}

func newTestApp(mode string, params Params) (*App, *bytes.Buffer) {
	cfg := config.Defaults()
	cfg.Mode = mode
	a := New(&cfg, params, testLogger())
	out := &bytes.Buffer{}
	a.out = out
	return a, out
}

func addOutcome(status domain.OutcomeStatus) domain.Outcome {
	return domain.Outcome{
		Action: domain.ActionAdd,
		Pool:   domain.AssetBTC,
		Mode:   domain.ModeAsymmetricAsset,
		Status: status,
		Stage:  domain.StageDone,
		Legs: []domain.LegResult{{
			Role:      domain.LegRoleAsset,
			Chain:     domain.ChainBTC,
			Amount:    domain.AmountFromBaseInt64(domain.AssetBTC, 10_000_000),
			TxID:      "btc-tx",
			Attempted: true,
		}},
	}
}

func TestAddModePrintsOutcome(t *testing.T) {
	coord := &fakeCoord{outcome: addOutcome(domain.OutcomeSuccess)}
	deps := &Dependencies{Liquidity: service.NewLiquidityService(coord, 0, testLogger())}
	a, out := newTestApp("add", Params{Pool: "BTC.BTC", AssetAmount: "0.1"})

	require.NoError(t, a.AddMode(context.Background(), deps))
	assert.True(t, coord.add.Pool.Equal(domain.AssetBTC))
	assert.Equal(t, "0.10000000", coord.add.Asset.Format())
	assert.True(t, coord.add.Rune.IsZero())

	var rec domain.ActionRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, domain.OutcomeSuccess, rec.Status)
	assert.NotEmpty(t, rec.ID)
	require.Len(t, rec.Legs, 1)
	assert.Equal(t, "btc-tx", rec.Legs[0].TxID)
}

func TestAddModeSymmetric(t *testing.T) {
	coord := &fakeCoord{outcome: addOutcome(domain.OutcomeSuccess)}
	deps := &Dependencies{Liquidity: service.NewLiquidityService(coord, 0, testLogger())}

	a, _ := newTestApp("add", Params{Pool: "ETH.ETH", AssetAmount: "2", Symmetric: true})
	require.NoError(t, a.AddMode(context.Background(), deps))
	assert.Equal(t, int32(18), coord.add.Asset.Asset().Decimals)
	assert.Equal(t, "1.00000000", coord.add.Rune.Format())

	a, _ = newTestApp("add", Params{Pool: "ETH.ETH", AssetAmount: "2", RuneAmount: "1", Symmetric: true})
	assert.ErrorIs(t, a.AddMode(context.Background(), deps), domain.ErrInvalidRequest)
}

func TestAddModePartialIsAnError(t *testing.T) {
	out := addOutcome(domain.OutcomePartialSuccess)
	out.Mode = domain.ModeSymmetric
	out.Stage = domain.StageObserving
	failed := &domain.LegError{Role: domain.LegRoleRune, Chain: domain.ChainTHOR, Stage: domain.StageObserving, Err: domain.ErrObservationTimeout}
	coord := &fakeCoord{outcome: out, err: &domain.PartialError{Committed: out.Legs[0], Failed: failed}}
	deps := &Dependencies{Liquidity: service.NewLiquidityService(coord, 0, testLogger())}

	a, buf := newTestApp("add", Params{Pool: "BTC.BTC", AssetAmount: "0.1", RuneAmount: "2000"})
	err := a.AddMode(context.Background(), deps)
	require.Error(t, err)
	assert.True(t, domain.IsPartial(err))
	assert.ErrorIs(t, err, domain.ErrObservationTimeout)
	assert.Contains(t, buf.String(), `"status": "partial_success"`)
}

func TestAddModeZeroDecimalToken(t *testing.T) {
	coord := &fakeCoord{outcome: addOutcome(domain.OutcomeSuccess)}
	deps := &Dependencies{Liquidity: service.NewLiquidityService(coord, 0, testLogger())}
	zero := int32(0)

	a, _ := newTestApp("add", Params{Pool: "BNB.TWT-8C2", Decimals: &zero, AssetAmount: "42"})
	require.NoError(t, a.AddMode(context.Background(), deps))
	assert.Equal(t, int32(0), coord.add.Asset.Asset().Decimals)
	assert.Equal(t, "42", coord.add.Asset.Base().String())

	a, _ = newTestApp("add", Params{Pool: "BNB.TWT-8C2", Decimals: &zero, AssetAmount: "0.5"})
	assert.ErrorIs(t, a.AddMode(context.Background(), deps), domain.ErrInvalidAmount)
}

func TestAddModeRejectsBadAmounts(t *testing.T) {
	deps := &Dependencies{Liquidity: service.NewLiquidityService(&fakeCoord{}, 0, testLogger())}

	a, buf := newTestApp("add", Params{Pool: "BTC.BTC", AssetAmount: "0.123456789"})
	assert.ErrorIs(t, a.AddMode(context.Background(), deps), domain.ErrInvalidAmount)
	assert.Empty(t, buf.String())

	a, _ = newTestApp("add", Params{Pool: "BTC", AssetAmount: "1"})
	assert.ErrorIs(t, a.AddMode(context.Background(), deps), domain.ErrInvalidRequest)
}

func TestWithdrawMode(t *testing.T) {
	out := addOutcome(domain.OutcomeSuccess)
	out.Action = domain.ActionWithdraw
	coord := &fakeCoord{outcome: out}
	deps := &Dependencies{Liquidity: service.NewLiquidityService(coord, 0, testLogger())}

	a, _ := newTestApp("withdraw", Params{Pool: "BTC.BTC", Percentage: "25.5", RuneAddress: "thor1abc"})
	require.NoError(t, a.WithdrawMode(context.Background(), deps))
	assert.True(t, coord.withdraw.Percentage.Equal(decimal.RequireFromString("25.5")))
	assert.Equal(t, "thor1abc", coord.withdraw.RuneAddress)

	a, _ = newTestApp("withdraw", Params{Pool: "BTC.BTC", Percentage: "all"})
	assert.ErrorIs(t, a.WithdrawMode(context.Background(), deps), domain.ErrInvalidPercentage)
}

func positionFixture() *fakePools {
	return &fakePools{
		snap: domain.PoolSnapshot{
			Asset:      domain.AssetBTC,
			AssetDepth: domain.AmountFromBaseInt64(domain.AssetBTC, 1_000_000_000),
			RuneDepth:  domain.AmountFromBaseInt64(domain.AssetRune, 20_000_000_000_000),
			PoolUnits:  decimal.NewFromInt(1000),
			Status:     domain.PoolStatusAvailable,
		},
		rec: domain.LiquidityPositionRecord{
			Asset:             domain.AssetBTC,
			RuneAddress:       "thor1abc",
			Units:             decimal.NewFromInt(10),
			AssetDepositValue: domain.AmountFromBaseInt64(domain.AssetBTC, 10_000_000),
			RuneDepositValue:  domain.AmountFromBaseInt64(domain.AssetRune, 200_000_000_000),
			LastAddHeight:     100,
		},
		height: 100,
	}
}

func TestPositionMode(t *testing.T) {
	deps := &Dependencies{
		Positions: service.NewPositionService(positionFixture(), valuation.NewValuator(valuation.DefaultParams()), testLogger()),
	}

	a, buf := newTestApp("position", Params{Pool: "BTC.BTC", RuneAddress: "thor1abc"})
	require.NoError(t, a.PositionMode(context.Background(), deps))

	var view service.PositionView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view))
	assert.Equal(t, "BTC.BTC", view.Pool)
	assert.Equal(t, "0.10000000", view.AssetShare)
	assert.Equal(t, "2000.00000000", view.RuneShare)

	a, _ = newTestApp("position", Params{Pool: "BTC.BTC"})
	assert.ErrorIs(t, a.PositionMode(context.Background(), deps), domain.ErrInvalidRequest)
}

func TestReportMode(t *testing.T) {
	partial := domain.ActionRecord{ID: "a-1", Status: domain.OutcomePartialSuccess, CreatedAt: time.Now()}
	actions := &fakeActions{byStatus: map[domain.OutcomeStatus][]domain.ActionRecord{
		domain.OutcomePartialSuccess: {partial},
		domain.OutcomeFailed:         {{ID: "a-2"}, {ID: "a-3"}},
	}}
	blobs := &fakeBlobs{}
	deps := &Dependencies{
		Reports:    service.NewReportService(actions, blobs, testLogger()),
		Positions:  service.NewPositionService(positionFixture(), valuation.NewValuator(valuation.DefaultParams()), testLogger()),
		BlobWriter: blobs,
	}

	a, buf := newTestApp("report", Params{Since: 24 * time.Hour, Pool: "BTC.BTC", RuneAddress: "thor1abc"})
	require.NoError(t, a.ReportMode(context.Background(), deps))

	var report service.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	require.Len(t, report.Partial, 1)
	assert.Equal(t, "a-1", report.Partial[0].ID)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Positions, 1)
	require.Len(t, blobs.paths, 1)
	assert.True(t, strings.HasPrefix(blobs.paths[0], "reports/"))

	// Archiving without an archiver is a configuration error.
	a, _ = newTestApp("report", Params{Since: time.Hour, ArchiveAfter: 90 * 24 * time.Hour})
	assert.ErrorContains(t, a.ReportMode(context.Background(), deps), "archiving needs")

	a, _ = newTestApp("report", Params{})
	assert.ErrorContains(t, a.ReportMode(context.Background(), &Dependencies{}), "journal is not configured")
}
