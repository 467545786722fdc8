package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// StatusHandler serves the process mode, uptime and configured chains.
type StatusHandler struct {
	mode      string
	chains    []string
	startedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, chains []string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{mode: mode, chains: chains, startedAt: startedAt}
}

// GetStatus responds with a domain.BotStatus.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	chains := h.chains
	if chains == nil {
		chains = []string{}
	}
	writeJSON(w, http.StatusOK, domain.BotStatus{
		Mode:          h.mode,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Chains:        chains,
		Settlement:    string(domain.ChainTHOR),
	})
}
