package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lpbot/internal/domain"
	"github.com/alanyoungcy/lpbot/internal/valuation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ========== Fakes ==========

type fakeCoord struct {
	calls   int
	outcome domain.Outcome
	err     error
	sized   domain.AddLiquidityRequest
}

func (c *fakeCoord) AddLiquidityPosition(_ context.Context, req domain.AddLiquidityRequest) (domain.Outcome, error) {
	c.calls++
	c.sized = req
	return c.outcome, c.err
}

func (c *fakeCoord) WithdrawLiquidityPosition(context.Context, domain.WithdrawLiquidityRequest) (domain.Outcome, error) {
	c.calls++
	return c.outcome, c.err
}

func (c *fakeCoord) SizeSymmetricAdd(_ context.Context, asset domain.Amount) (domain.AddLiquidityRequest, error) {
	return domain.AddLiquidityRequest{
		Pool:  asset.Asset(),
		Asset: asset,
		Rune:  domain.AmountFromBaseInt64(domain.AssetRune, 42),
	}, nil
}

type fakeLocks struct {
	held     map[string]bool
	released []string
}

func (l *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	l.held[key] = true
	return func() {
		delete(l.held, key)
		l.released = append(l.released, key)
	}, nil
}

type memActions struct {
	mu      sync.Mutex
	records []domain.ActionRecord
	err     error
}

func (m *memActions) Create(_ context.Context, rec domain.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memActions) GetByID(context.Context, string) (domain.ActionRecord, error) {
	return domain.ActionRecord{}, domain.ErrNotFound
}

func (m *memActions) ListRecent(context.Context, domain.ListOpts) ([]domain.ActionRecord, error) {
	return m.records, nil
}

func (m *memActions) ListByStatus(_ context.Context, status domain.OutcomeStatus, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	var out []domain.ActionRecord
	for _, r := range m.records {
		if r.Status != status {
			continue
		}
		if opts.Since != nil && r.CreatedAt.Before(*opts.Since) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type memAudit struct {
	events []string
}

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type memBus struct {
	published [][]byte
	streamed  [][]byte
}

func (b *memBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.published = append(b.published, payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (b *memBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	b.streamed = append(b.streamed, payload)
	return nil
}

func (b *memBus) StreamRecent(context.Context, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type recordingAlerter struct {
	got []domain.ActionRecord
}

func (a *recordingAlerter) NotifyAction(_ context.Context, rec domain.ActionRecord) error {
	a.got = append(a.got, rec)
	return nil
}

type harness struct {
	coord   *fakeCoord
	locks   *fakeLocks
	actions *memActions
	audit   *memAudit
	bus     *memBus
	alerts  *recordingAlerter
	svc     *LiquidityService
}

func newHarness() *harness {
	h := &harness{
		coord:   &fakeCoord{},
		locks:   &fakeLocks{},
		actions: &memActions{},
		audit:   &memAudit{},
		bus:     &memBus{},
		alerts:  &recordingAlerter{},
	}
	h.svc = NewLiquidityService(h.coord, time.Minute, testLogger()).
		WithLocks(h.locks).
		WithJournal(h.actions, h.audit).
		WithBus(h.bus).
		WithAlerts(h.alerts)
	return h
}

func btcAmount(t *testing.T, s string) domain.Amount {
	t.Helper()
	a, err := domain.ParseAmount(domain.AssetBTC, s)
	require.NoError(t, err)
	return a
}

func successOutcome() domain.Outcome {
	return domain.Outcome{
		Action: domain.ActionAdd,
		Pool:   domain.AssetBTC,
		Mode:   domain.ModeAsymmetricAsset,
		Status: domain.OutcomeSuccess,
		Stage:  domain.StageDone,
		Legs: []domain.LegResult{{
			Role: domain.LegRoleAsset, Chain: domain.ChainBTC, TxID: "BTC-tx-1", Attempted: true,
			Amount: domain.AmountFromBaseInt64(domain.AssetBTC, 1000),
		}},
	}
}

// ========== LiquidityService ==========

func TestLiquidityService_SuccessIsJournaled(t *testing.T) {
	h := newHarness()
	h.coord.outcome = successOutcome()

	res, err := h.svc.AddLiquidity(context.Background(), domain.AddLiquidityRequest{Pool: domain.AssetBTC, Asset: btcAmount(t, "0.00001")})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome.Status)

	require.Len(t, h.actions.records, 1)
	assert.Equal(t, res.ID, h.actions.records[0].ID)
	assert.Equal(t, "BTC.BTC", h.actions.records[0].Pool)
	assert.Equal(t, []string{"liquidity.add"}, h.audit.events)

	require.Len(t, h.bus.published, 1)
	require.Len(t, h.bus.streamed, 1)
	var evt domain.ActionEvent
	require.NoError(t, json.Unmarshal(h.bus.published[0], &evt))
	assert.Equal(t, []string{"BTC-tx-1"}, evt.TxIDs)
	assert.Equal(t, domain.OutcomeSuccess, evt.Status)

	assert.Len(t, h.alerts.got, 1)
	assert.Equal(t, []string{"pool:BTC.BTC"}, h.locks.released)
}

func TestLiquidityService_PartialKeepsErrorAndAlerts(t *testing.T) {
	h := newHarness()
	out := successOutcome()
	out.Mode = domain.ModeSymmetric
	out.Status = domain.OutcomePartialSuccess
	failed := &domain.LegError{Role: domain.LegRoleRune, Chain: domain.ChainTHOR, Stage: domain.StageDispatching, Err: errors.New("node down")}
	h.coord.outcome = out
	h.coord.err = &domain.PartialError{Committed: out.Legs[0], Failed: failed}

	res, err := h.svc.AddLiquidity(context.Background(), domain.AddLiquidityRequest{Pool: domain.AssetBTC})
	require.Error(t, err)
	assert.True(t, domain.IsPartial(err))
	assert.ErrorIs(t, err, domain.ErrLegDispatchFailed)
	assert.Equal(t, domain.OutcomePartialSuccess, res.Outcome.Status)

	require.Len(t, h.alerts.got, 1)
	assert.Equal(t, domain.OutcomePartialSuccess, h.alerts.got[0].Status)
	assert.Contains(t, h.actions.records[0].Error, "node down")
}

func TestLiquidityService_RejectedRequestIsNotJournaled(t *testing.T) {
	h := newHarness()
	h.coord.outcome = domain.Outcome{Action: domain.ActionAdd, Status: domain.OutcomeFailed}
	h.coord.err = domain.ErrInvalidRequest

	_, err := h.svc.AddLiquidity(context.Background(), domain.AddLiquidityRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Empty(t, h.actions.records)
	assert.Empty(t, h.bus.published)
	assert.Empty(t, h.alerts.got)
}

func TestLiquidityService_PoolLockHeld(t *testing.T) {
	h := newHarness()
	h.locks.held = map[string]bool{"pool:BTC.BTC": true}

	res, err := h.svc.WithdrawLiquidity(context.Background(), domain.WithdrawLiquidityRequest{
		Pool: domain.AssetBTC, Percentage: decimal.NewFromInt(50), RuneAddress: "thor1",
	})
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome.Status)
	assert.Zero(t, h.coord.calls)
}

func TestLiquidityService_JournalFailureDoesNotChangeOutcome(t *testing.T) {
	h := newHarness()
	h.coord.outcome = successOutcome()
	h.actions.err = errors.New("db down")

	res, err := h.svc.AddLiquidity(context.Background(), domain.AddLiquidityRequest{Pool: domain.AssetBTC})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome.Status)
	assert.Len(t, h.bus.published, 1)
}

func TestLiquidityService_RecordsAfterCallerCancelled(t *testing.T) {
	h := newHarness()
	h.coord.outcome = successOutcome()
	h.coord.outcome.Status = domain.OutcomePartialSuccess
	h.coord.err = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.svc.AddLiquidity(ctx, domain.AddLiquidityRequest{Pool: domain.AssetBTC})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, h.actions.records, 1)
}

func TestLiquidityService_AddSymmetricSizesFirst(t *testing.T) {
	h := newHarness()
	h.coord.outcome = successOutcome()

	_, err := h.svc.AddSymmetric(context.Background(), btcAmount(t, "0.5"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), h.coord.sized.Rune.Base().Int64())
	assert.True(t, h.coord.sized.Pool.Equal(domain.AssetBTC))
}

// ========== PositionService ==========

type fakePoolQuery struct {
	snap      domain.PoolSnapshot
	snapErr   error
	rec       domain.LiquidityPositionRecord
	recErr    error
	height    int64
	snapshots int
}

func (f *fakePoolQuery) PoolSnapshot(context.Context, domain.Asset) (domain.PoolSnapshot, error) {
	f.snapshots++
	return f.snap, f.snapErr
}

func (f *fakePoolQuery) PositionRecord(context.Context, domain.Asset, string, string) (domain.LiquidityPositionRecord, error) {
	return f.rec, f.recErr
}

func (f *fakePoolQuery) BlockHeight(context.Context) (int64, error) {
	return f.height, nil
}

func btcPool() domain.PoolSnapshot {
	return domain.PoolSnapshot{
		Asset:      domain.AssetBTC,
		AssetDepth: domain.AmountFromBaseInt64(domain.AssetBTC, 200_000_000),
		RuneDepth:  domain.AmountFromBaseInt64(domain.AssetRune, 20_000_000_000),
		PoolUnits:  decimal.NewFromInt(1000),
		Status:     domain.PoolStatusAvailable,
	}
}

func btcRecord() domain.LiquidityPositionRecord {
	return domain.LiquidityPositionRecord{
		Asset:             domain.AssetBTC,
		RuneAddress:       "thor1lp",
		Units:             decimal.NewFromInt(100),
		AssetDepositValue: domain.AmountFromBaseInt64(domain.AssetBTC, 20_000_000),
		RuneDepositValue:  domain.AmountFromBaseInt64(domain.AssetRune, 2_000_000_000),
		LastAddHeight:     100,
	}
}

func TestPositionService_CheckPosition(t *testing.T) {
	pools := &fakePoolQuery{snap: btcPool(), rec: btcRecord(), height: 100 + 14_400}
	svc := NewPositionService(pools, valuation.NewValuator(valuation.DefaultParams()), testLogger())

	pos, err := svc.CheckPosition(context.Background(), domain.AssetBTC, "", "thor1lp")
	require.NoError(t, err)
	assert.Equal(t, "20000000", pos.AssetShare.Base().String())
	assert.Equal(t, "2000000000", pos.RuneShare.Base().String())
	assert.True(t, pos.PoolShare.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, pos.ILP.Protection.IsZero())
	assert.True(t, pos.ILP.TotalDays.Equal(decimal.NewFromInt(1)))

	view := NewPositionView(pos)
	assert.Equal(t, "BTC.BTC", view.Pool)
	assert.Equal(t, "0.20000000", view.AssetShare)
	assert.Equal(t, "0.0100", view.ILPProgress)
}

func TestPositionService_CheckPositionErrors(t *testing.T) {
	staged := btcPool()
	staged.Status = domain.PoolStatusStaged
	pools := &fakePoolQuery{snap: staged, snapErr: domain.ErrPoolStaged, rec: btcRecord(), height: 200}
	svc := NewPositionService(pools, valuation.NewValuator(valuation.DefaultParams()), testLogger())

	_, err := svc.CheckPosition(context.Background(), domain.AssetBTC, "", "thor1lp")
	require.NoError(t, err, "staged pools are still valued")

	pools.recErr = domain.ErrPositionNotFound
	_, err = svc.CheckPosition(context.Background(), domain.AssetBTC, "", "thor1lp")
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)
}

type memPoolCache struct {
	snaps map[string]domain.PoolSnapshot
}

func (c *memPoolCache) SetPool(_ context.Context, snap domain.PoolSnapshot, _ time.Duration) error {
	if c.snaps == nil {
		c.snaps = map[string]domain.PoolSnapshot{}
	}
	c.snaps[snap.Asset.String()] = snap
	return nil
}

func (c *memPoolCache) GetPool(_ context.Context, asset domain.Asset) (domain.PoolSnapshot, error) {
	snap, ok := c.snaps[asset.String()]
	if !ok {
		return domain.PoolSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func TestPositionService_PoolUsesCache(t *testing.T) {
	pools := &fakePoolQuery{snap: btcPool()}
	cache := &memPoolCache{}
	svc := NewPositionService(pools, valuation.NewValuator(valuation.DefaultParams()), testLogger()).
		WithPoolCache(cache, time.Minute)

	for i := 0; i < 3; i++ {
		snap, err := svc.Pool(context.Background(), domain.AssetBTC)
		require.NoError(t, err)
		assert.Equal(t, domain.PoolStatusAvailable, snap.Status)
	}
	assert.Equal(t, 1, pools.snapshots)

	pools.snapErr = domain.ErrPoolNotFound
	_, err := svc.Pool(context.Background(), domain.AssetETH)
	assert.ErrorIs(t, err, domain.ErrPoolNotFound)
}

// ========== ReportService ==========

type memBlobs struct {
	objects map[string][]byte
}

func (b *memBlobs) Put(_ context.Context, path string, data io.Reader, _ string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if b.objects == nil {
		b.objects = map[string][]byte{}
	}
	b.objects[path] = body
	return nil
}

func (b *memBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := b.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (b *memBlobs) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo
	for path, body := range b.objects {
		if strings.HasPrefix(path, prefix) {
			out = append(out, domain.BlobInfo{Path: path, Size: int64(len(body))})
		}
	}
	return out, nil
}

func TestReportService_BuildAndUpload(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	actions := &memActions{records: []domain.ActionRecord{
		{ID: "old", Status: domain.OutcomePartialSuccess, CreatedAt: since.Add(-time.Hour)},
		{ID: "p1", Status: domain.OutcomePartialSuccess, CreatedAt: since.Add(time.Hour)},
		{ID: "f1", Status: domain.OutcomeFailed, CreatedAt: since.Add(time.Hour)},
		{ID: "s1", Status: domain.OutcomeSuccess, CreatedAt: since.Add(time.Hour)},
	}}
	blobs := &memBlobs{}
	svc := NewReportService(actions, blobs, testLogger())
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	r, err := svc.Build(context.Background(), since, nil)
	require.NoError(t, err)
	require.Len(t, r.Partial, 1)
	assert.Equal(t, "p1", r.Partial[0].ID)
	assert.Equal(t, 1, r.Failed)

	path, err := svc.Upload(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "reports/2025-01-02/report-1735787045.json", path)

	var decoded Report
	require.NoError(t, json.Unmarshal(blobs.objects[path], &decoded))
	assert.Equal(t, 1, decoded.Failed)

	_, err = NewReportService(actions, nil, testLogger()).Upload(context.Background(), r)
	assert.Error(t, err)
}

func TestReportService_ListAndLoadStoredReports(t *testing.T) {
	blobs := &memBlobs{}
	svc := NewReportService(&memActions{}, blobs, testLogger()).WithReader(blobs)
	ctx := context.Background()

	for _, at := range []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	} {
		svc.now = func() time.Time { return at }
		r, err := svc.Build(ctx, at.Add(-time.Hour), nil)
		require.NoError(t, err)
		_, err = svc.Upload(ctx, r)
		require.NoError(t, err)
	}
	blobs.objects["reports/README.txt"] = []byte("not a report")

	infos, err := svc.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "2025-01-03/report-1735862400.json", infos[0].Name)
	assert.Equal(t, "2025-01-01/report-1735689600.json", infos[2].Name)

	r, err := svc.LoadReport(ctx, infos[0].Name)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), r.GeneratedAt)

	_, err = svc.LoadReport(ctx, "2025-01-09/report-1.json")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	for _, bad := range []string{"", "../secrets.json", "/etc/report.json", "2025-01-03/report.txt"} {
		_, err = svc.LoadReport(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest, bad)
	}

	_, err = NewReportService(&memActions{}, blobs, testLogger()).ListReports(ctx)
	assert.Error(t, err)
}
