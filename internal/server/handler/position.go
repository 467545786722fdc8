package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/lpbot/internal/domain"
	"github.com/alanyoungcy/lpbot/internal/service"
)

// PositionService defines the methods that the position handler requires.
type PositionService interface {
	CheckPosition(ctx context.Context, asset domain.Asset, assetAddress, runeAddress string) (domain.LiquidityPosition, error)
	Pool(ctx context.Context, asset domain.Asset) (domain.PoolSnapshot, error)
}

// PositionHandler serves pool and position reads.
type PositionHandler struct {
	positions PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given service and logger.
func NewPositionHandler(positions PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logHandler(logger, "position"),
	}
}

// poolResponse is the JSON form of a pool snapshot.
type poolResponse struct {
	Asset       string    `json:"asset"`
	Status      string    `json:"status"`
	AssetDepth  string    `json:"asset_depth"`
	RuneDepth   string    `json:"rune_depth"`
	PoolUnits   string    `json:"pool_units"`
	AssetToRune string    `json:"asset_to_rune,omitempty"`
	RuneToAsset string    `json:"rune_to_asset,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func newPoolResponse(snap domain.PoolSnapshot) poolResponse {
	resp := poolResponse{
		Asset:      snap.Asset.String(),
		Status:     string(snap.Status),
		AssetDepth: snap.AssetDepth.Format(),
		RuneDepth:  snap.RuneDepth.Format(),
		PoolUnits:  snap.PoolUnits.String(),
		FetchedAt:  snap.FetchedAt,
	}
	if ratio := snap.Ratio(); ratio.Defined {
		resp.AssetToRune = ratio.AssetToRune.StringFixed(8)
		resp.RuneToAsset = ratio.RuneToAsset.StringFixed(8)
	}
	return resp
}

// GetPool returns the current snapshot of one pool.
// GET /api/pools/{asset}
func (h *PositionHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	asset, err := domain.LookupAsset(pathParam(r, "asset"), domain.DecimalsUnknown)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pool asset")
		return
	}

	snap, err := h.positions.Pool(r.Context(), asset)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "get pool failed",
				slog.String("pool", asset.String()),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newPoolResponse(snap))
}

// GetPosition values the position of one provider in a pool.
// GET /api/positions?pool=BTC.BTC&asset_address=...&rune_address=thor1...
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	asset, err := domain.LookupAsset(q.Get("pool"), domain.DecimalsUnknown)
	if err != nil {
		writeError(w, http.StatusBadRequest, "pool query parameter required (CHAIN.SYMBOL)")
		return
	}
	assetAddr, runeAddr := q.Get("asset_address"), q.Get("rune_address")
	if assetAddr == "" && runeAddr == "" {
		writeError(w, http.StatusBadRequest, "asset_address or rune_address query parameter required")
		return
	}

	pos, err := h.positions.CheckPosition(r.Context(), asset, assetAddr, runeAddr)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "check position failed",
				slog.String("pool", asset.String()),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, service.NewPositionView(pos))
}
