package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/lpbot/internal/service"
)

// ReportService lists and loads stored reconciliation reports.
type ReportService interface {
	ListReports(ctx context.Context) ([]service.ReportInfo, error)
	LoadReport(ctx context.Context, name string) (service.Report, error)
}

// ReportHandler serves reports uploaded by report mode.
type ReportHandler struct {
	reports ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logHandler(logger, "report")}
}

type listReportsResponse struct {
	Reports []service.ReportInfo `json:"reports"`
}

// ListReports returns stored reports, newest first.
// GET /api/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	infos, err := h.reports.ListReports(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list reports failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if infos == nil {
		infos = []service.ReportInfo{}
	}
	writeJSON(w, http.StatusOK, listReportsResponse{Reports: infos})
}

// GetReport returns one stored report.
// GET /api/reports/{name...}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	report, err := h.reports.LoadReport(r.Context(), name)
	if err != nil {
		switch code := statusFor(err); code {
		case http.StatusBadRequest, http.StatusNotFound:
			writeError(w, code, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "load report failed",
				slog.String("name", name),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to load report")
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}
