package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/lpbot/internal/domain"
	"github.com/alanyoungcy/lpbot/internal/service"
)

// LiquidityService defines the methods that the liquidity handler requires.
type LiquidityService interface {
	AddLiquidity(ctx context.Context, req domain.AddLiquidityRequest) (service.ActionResult, error)
	AddSymmetric(ctx context.Context, asset domain.Amount) (service.ActionResult, error)
	WithdrawLiquidity(ctx context.Context, req domain.WithdrawLiquidityRequest) (service.ActionResult, error)
}

// LiquidityHandler serves add and withdraw actions.
type LiquidityHandler struct {
	liquidity LiquidityService
	logger    *slog.Logger
}

// NewLiquidityHandler creates a LiquidityHandler.
func NewLiquidityHandler(liquidity LiquidityService, logger *slog.Logger) *LiquidityHandler {
	return &LiquidityHandler{
		liquidity: liquidity,
		logger:    logHandler(logger, "liquidity"),
	}
}

// addRequest is the body of POST /api/liquidity/add. Amounts are display
// units. Decimals is only needed for tokens that are not a chain's gas asset.
// With Symmetric set, the rune side is sized from the pool ratio and
// RuneAmount must be empty.
type addRequest struct {
	Pool        string `json:"pool"`
	Decimals    *int32 `json:"decimals,omitempty"`
	AssetAmount string `json:"asset_amount,omitempty"`
	RuneAmount  string `json:"rune_amount,omitempty"`
	Symmetric   bool   `json:"symmetric,omitempty"`
}

// withdrawRequest is the body of POST /api/liquidity/withdraw.
type withdrawRequest struct {
	Pool         string `json:"pool"`
	Percentage   string `json:"percentage"`
	AssetAddress string `json:"asset_address,omitempty"`
	RuneAddress  string `json:"rune_address,omitempty"`
}

func parseSide(asset domain.Asset, s string) (domain.Amount, error) {
	if strings.TrimSpace(s) == "" {
		return domain.ZeroAmount(asset), nil
	}
	return domain.ParseAmount(asset, strings.TrimSpace(s))
}

// AddLiquidity submits an add.
// POST /api/liquidity/add
func (h *LiquidityHandler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	var body addRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	decimals := domain.DecimalsUnknown
	if body.Decimals != nil {
		if *body.Decimals < 0 {
			writeError(w, http.StatusBadRequest, "invalid decimals: must be 0-18")
			return
		}
		decimals = *body.Decimals
	}
	pool, err := domain.LookupAsset(body.Pool, decimals)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pool: "+err.Error())
		return
	}
	assetSide, err := parseSide(pool, body.AssetAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset_amount: "+err.Error())
		return
	}
	runeSide, err := parseSide(domain.AssetRune, body.RuneAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rune_amount: "+err.Error())
		return
	}

	var res service.ActionResult
	if body.Symmetric {
		if !runeSide.IsZero() {
			writeError(w, http.StatusBadRequest, "rune_amount must be empty when symmetric is set")
			return
		}
		res, err = h.liquidity.AddSymmetric(r.Context(), assetSide)
	} else {
		res, err = h.liquidity.AddLiquidity(r.Context(), domain.AddLiquidityRequest{
			Pool:  pool,
			Asset: assetSide,
			Rune:  runeSide,
		})
	}
	h.writeResult(w, r, res, err)
}

// WithdrawLiquidity submits a withdraw.
// POST /api/liquidity/withdraw
func (h *LiquidityHandler) WithdrawLiquidity(w http.ResponseWriter, r *http.Request) {
	var body withdrawRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	pool, err := domain.LookupAsset(body.Pool, domain.DecimalsUnknown)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pool: "+err.Error())
		return
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(body.Percentage))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid percentage")
		return
	}

	res, err := h.liquidity.WithdrawLiquidity(r.Context(), domain.WithdrawLiquidityRequest{
		Pool:         pool,
		Percentage:   pct,
		AssetAddress: strings.TrimSpace(body.AssetAddress),
		RuneAddress:  strings.TrimSpace(body.RuneAddress),
	})
	h.writeResult(w, r, res, err)
}

// writeResult renders the journaled form of an outcome. Requests that never
// reached a chain get a plain error body.
func (h *LiquidityHandler) writeResult(w http.ResponseWriter, r *http.Request, res service.ActionResult, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, domain.NewActionRecord(res.ID, res.Outcome, nil, time.Now()))
	case domain.IsPartial(err):
		h.logger.WarnContext(r.Context(), "liquidity action partially committed",
			slog.String("id", res.ID),
			slog.String("pool", res.Outcome.Pool.String()),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusMultiStatus, domain.NewActionRecord(res.ID, res.Outcome, err, time.Now()))
	case res.Outcome.Stage == "":
		writeError(w, statusFor(err), err.Error())
	default:
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "liquidity action failed",
				slog.String("id", res.ID),
				slog.String("error", err.Error()),
			)
		}
		writeJSON(w, code, domain.NewActionRecord(res.ID, res.Outcome, err, time.Now()))
	}
}
