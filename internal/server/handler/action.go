package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// ActionHandler serves the liquidity action journal.
type ActionHandler struct {
	actions domain.ActionStore
	logger  *slog.Logger
}

// NewActionHandler creates an ActionHandler.
func NewActionHandler(actions domain.ActionStore, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{actions: actions, logger: logHandler(logger, "action")}
}

// listActionsResponse wraps the list actions response.
type listActionsResponse struct {
	Actions []domain.ActionRecord `json:"actions"`
}

// ListActions returns journaled actions, newest first.
// GET /api/actions?status=partial_success&since=2024-01-01T00:00:00Z&limit=50&offset=0
func (h *ActionHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		actions []domain.ActionRecord
		err     error
	)
	switch status := domain.OutcomeStatus(r.URL.Query().Get("status")); status {
	case "":
		actions, err = h.actions.ListRecent(r.Context(), opts)
	case domain.OutcomeSuccess, domain.OutcomePartialSuccess, domain.OutcomeFailed:
		actions, err = h.actions.ListByStatus(r.Context(), status, opts)
	default:
		writeError(w, http.StatusBadRequest, "status must be success, partial_success or failed")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list actions failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list actions")
		return
	}

	if actions == nil {
		actions = []domain.ActionRecord{}
	}
	writeJSON(w, http.StatusOK, listActionsResponse{Actions: actions})
}

// GetAction returns one journaled action.
// GET /api/actions/{id}
func (h *ActionHandler) GetAction(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing action id")
		return
	}

	rec, err := h.actions.GetByID(r.Context(), id)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusNotFound {
			writeError(w, code, "action not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get action failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get action")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
