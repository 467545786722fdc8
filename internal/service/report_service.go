package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// PositionView is the JSON form of a valued position.
type PositionView struct {
	Pool               string `json:"pool"`
	AssetAddress       string `json:"asset_address,omitempty"`
	RuneAddress        string `json:"rune_address,omitempty"`
	Units              string `json:"units"`
	PoolShare          string `json:"pool_share"`
	AssetShare         string `json:"asset_share"`
	RuneShare          string `json:"rune_share"`
	AssetDeposited     string `json:"asset_deposited"`
	RuneDeposited      string `json:"rune_deposited"`
	ILPProtection      string `json:"ilp_protection"`
	ILPProgress        string `json:"ilp_progress"`
	ILPDays            string `json:"ilp_days"`
	LastAddHeight      int64  `json:"last_add_height"`
	LastWithdrawHeight int64  `json:"last_withdraw_height,omitempty"`
}

// NewPositionView renders pos for output.
func NewPositionView(pos domain.LiquidityPosition) PositionView {
	return PositionView{
		Pool:               pos.Record.Asset.String(),
		AssetAddress:       pos.Record.AssetAddress,
		RuneAddress:        pos.Record.RuneAddress,
		Units:              pos.Record.Units.String(),
		PoolShare:          pos.PoolShare.StringFixed(8),
		AssetShare:         pos.AssetShare.Format(),
		RuneShare:          pos.RuneShare.Format(),
		AssetDeposited:     pos.Record.AssetDepositValue.Format(),
		RuneDeposited:      pos.Record.RuneDepositValue.Format(),
		ILPProtection:      pos.ILP.Protection.Format(),
		ILPProgress:        pos.ILP.Progress.StringFixed(4),
		ILPDays:            pos.ILP.TotalDays.String(),
		LastAddHeight:      pos.Record.LastAddHeight,
		LastWithdrawHeight: pos.Record.LastWithdrawHeight,
	}
}

// Report is a reconciliation snapshot: actions that left one side committed
// without its pair, plus any positions the operator asked to value.
type Report struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Since       time.Time             `json:"since"`
	Partial     []domain.ActionRecord `json:"partial_actions"`
	Failed      int                   `json:"failed_actions"`
	Positions   []PositionView        `json:"positions,omitempty"`
}

// reportPrefix is the blob key prefix under which reports are stored.
const reportPrefix = "reports/"

// ReportInfo describes one stored report. Name is its key below reports/.
type ReportInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ReportService builds reconciliation reports from the action journal.
type ReportService struct {
	actions domain.ActionStore
	blobs   domain.BlobWriter
	stored  domain.BlobReader
	logger  *slog.Logger
	now     func() time.Time
}

// NewReportService creates a ReportService. blobs may be nil, in which case
// reports are only returned.
func NewReportService(actions domain.ActionStore, blobs domain.BlobWriter, logger *slog.Logger) *ReportService {
	return &ReportService{
		actions: actions,
		blobs:   blobs,
		logger:  logger.With(slog.String("component", "report_service")),
		now:     time.Now,
	}
}

// WithReader lets the service list and load previously uploaded reports.
func (s *ReportService) WithReader(r domain.BlobReader) *ReportService {
	s.stored = r
	return s
}

// Build collects partial and failed actions journaled since the cutoff.
func (s *ReportService) Build(ctx context.Context, since time.Time, positions []domain.LiquidityPosition) (Report, error) {
	opts := domain.ListOpts{Since: &since}

	partial, err := s.actions.ListByStatus(ctx, domain.OutcomePartialSuccess, opts)
	if err != nil {
		return Report{}, fmt.Errorf("report_service: partial actions: %w", err)
	}
	failed, err := s.actions.ListByStatus(ctx, domain.OutcomeFailed, opts)
	if err != nil {
		return Report{}, fmt.Errorf("report_service: failed actions: %w", err)
	}

	r := Report{
		GeneratedAt: s.now().UTC(),
		Since:       since.UTC(),
		Partial:     partial,
		Failed:      len(failed),
	}
	for _, p := range positions {
		r.Positions = append(r.Positions, NewPositionView(p))
	}
	return r, nil
}

// Upload writes r as JSON under reports/YYYY-MM-DD/ and returns its path.
func (s *ReportService) Upload(ctx context.Context, r Report) (string, error) {
	if s.blobs == nil {
		return "", fmt.Errorf("report_service: no blob store configured")
	}
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report_service: marshal: %w", err)
	}

	path := fmt.Sprintf(reportPrefix+"%s/report-%d.json", r.GeneratedAt.Format("2006-01-02"), r.GeneratedAt.Unix())
	if err := s.blobs.Put(ctx, path, bytes.NewReader(body), "application/json"); err != nil {
		return "", fmt.Errorf("report_service: upload: %w", err)
	}

	s.logger.InfoContext(ctx, "report uploaded",
		slog.String("path", path),
		slog.Int("partial", len(r.Partial)),
		slog.Int("failed", r.Failed),
	)
	return path, nil
}

// ListReports returns stored reports, newest first.
func (s *ReportService) ListReports(ctx context.Context) ([]ReportInfo, error) {
	if s.stored == nil {
		return nil, fmt.Errorf("report_service: no blob store configured")
	}
	blobs, err := s.stored.List(ctx, reportPrefix)
	if err != nil {
		return nil, fmt.Errorf("report_service: list: %w", err)
	}

	infos := make([]ReportInfo, 0, len(blobs))
	for _, b := range blobs {
		name := strings.TrimPrefix(b.Path, reportPrefix)
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		infos = append(infos, ReportInfo{Name: name, Size: b.Size, LastModified: b.LastModified})
	}
	// Names embed the date and unix time, so they order like generation time.
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name > infos[j].Name })
	return infos, nil
}

// LoadReport reads the stored report called name, as returned by
// ListReports.
func (s *ReportService) LoadReport(ctx context.Context, name string) (Report, error) {
	if s.stored == nil {
		return Report{}, fmt.Errorf("report_service: no blob store configured")
	}
	if name == "" || !strings.HasSuffix(name, ".json") || strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
		return Report{}, fmt.Errorf("report_service: report name %q: %w", name, domain.ErrInvalidRequest)
	}

	body, err := s.stored.Get(ctx, reportPrefix+name)
	if err != nil {
		return Report{}, fmt.Errorf("report_service: load %s: %w", name, err)
	}
	defer body.Close()

	var r Report
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("report_service: decode %s: %w", name, err)
	}
	return r, nil
}
