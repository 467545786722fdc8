package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/lpbot/internal/domain"
	"github.com/alanyoungcy/lpbot/internal/notify"
	"github.com/alanyoungcy/lpbot/internal/server"
	"github.com/alanyoungcy/lpbot/internal/server/handler"
	"github.com/alanyoungcy/lpbot/internal/server/ws"
	"github.com/alanyoungcy/lpbot/internal/service"
)

// shutdownTimeout bounds the HTTP server's graceful shutdown.
const shutdownTimeout = 5 * time.Second

// ServeMode runs the HTTP API, and the WebSocket event stream when Redis is
// wired, until ctx is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	startedAt := time.Now().UTC()
	chains := a.cfg.ChainNames()
	status := func() domain.BotStatus {
		return domain.BotStatus{
			Mode:          a.cfg.Mode,
			UptimeSeconds: int64(time.Since(startedAt).Seconds()),
			Chains:        chains,
			Settlement:    string(domain.ChainTHOR),
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Status:    handler.NewStatusHandler(a.cfg.Mode, chains, startedAt),
		Positions: handler.NewPositionHandler(deps.Positions, a.logger),
		Liquidity: handler.NewLiquidityHandler(deps.Liquidity, a.logger),
	}
	if deps.ActionStore != nil {
		handlers.Actions = handler.NewActionHandler(deps.ActionStore, a.logger)
	}
	if deps.Reports != nil && deps.BlobReader != nil {
		handlers.Reports = handler.NewReportHandler(deps.Reports, a.logger)
	}
	if deps.SignalBus != nil {
		hub := ws.NewHub(deps.SignalBus, status, a.cfg.Server.CORSOrigins, a.logger)
		handlers.Hub = hub
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:              a.cfg.Server.Port,
		CORSOrigins:       a.cfg.Server.CORSOrigins,
		APIKey:            a.cfg.Server.APIKey,
		RequestsPerMinute: a.cfg.Server.RequestsPerMinute,
		// A symmetric add holds the request through the observation wait.
		WriteTimeout: a.cfg.Coordinator.ObserveTimeout.Duration + time.Minute,
	}, handlers, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if deps.Notifier.Enabled(notify.EventStartup) {
		if err := deps.Notifier.Notify(ctx, notify.EventStartup, "lpbot started",
			fmt.Sprintf("mode %s, chains %s", a.cfg.Mode, strings.Join(chains, ", "))); err != nil {
			a.logger.WarnContext(ctx, "startup notification failed", slog.String("error", err.Error()))
		}
	}

	return g.Wait()
}

// PositionMode values one provider's position and prints it.
func (a *App) PositionMode(ctx context.Context, deps *Dependencies) error {
	pool, err := a.poolAsset()
	if err != nil {
		return fmt.Errorf("position mode: pool: %w", err)
	}
	if a.params.AssetAddress == "" && a.params.RuneAddress == "" {
		return fmt.Errorf("position mode: an asset or rune address is required: %w", domain.ErrInvalidRequest)
	}

	pos, err := deps.Positions.CheckPosition(ctx, pool, a.params.AssetAddress, a.params.RuneAddress)
	if err != nil {
		return fmt.Errorf("position mode: %w", err)
	}
	return a.print(service.NewPositionView(pos))
}

// AddMode submits one add and prints the journaled outcome. A partial success
// is printed and returned as an error.
func (a *App) AddMode(ctx context.Context, deps *Dependencies) error {
	pool, err := a.poolAsset()
	if err != nil {
		return fmt.Errorf("add mode: pool: %w", err)
	}
	assetSide, err := parseSide(pool, a.params.AssetAmount)
	if err != nil {
		return fmt.Errorf("add mode: asset amount: %w", err)
	}
	runeSide, err := parseSide(domain.AssetRune, a.params.RuneAmount)
	if err != nil {
		return fmt.Errorf("add mode: rune amount: %w", err)
	}

	var res service.ActionResult
	if a.params.Symmetric {
		if !runeSide.IsZero() {
			return fmt.Errorf("add mode: rune amount is sized from the pool when symmetric: %w", domain.ErrInvalidRequest)
		}
		res, err = deps.Liquidity.AddSymmetric(ctx, assetSide)
	} else {
		res, err = deps.Liquidity.AddLiquidity(ctx, domain.AddLiquidityRequest{
			Pool:  pool,
			Asset: assetSide,
			Rune:  runeSide,
		})
	}
	return a.finish("add mode", res, err)
}

// WithdrawMode submits one withdraw and prints the journaled outcome.
func (a *App) WithdrawMode(ctx context.Context, deps *Dependencies) error {
	pool, err := a.poolAsset()
	if err != nil {
		return fmt.Errorf("withdraw mode: pool: %w", err)
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(a.params.Percentage))
	if err != nil {
		return fmt.Errorf("withdraw mode: percentage %q: %w", a.params.Percentage, domain.ErrInvalidPercentage)
	}

	res, err := deps.Liquidity.WithdrawLiquidity(ctx, domain.WithdrawLiquidityRequest{
		Pool:         pool,
		Percentage:   pct,
		AssetAddress: a.params.AssetAddress,
		RuneAddress:  a.params.RuneAddress,
	})
	return a.finish("withdraw mode", res, err)
}

// ReportMode builds a reconciliation report, uploads it when S3 is wired and
// optionally archives old journal rows.
func (a *App) ReportMode(ctx context.Context, deps *Dependencies) error {
	if deps.Reports == nil {
		return errors.New("report mode: the action journal is not configured")
	}

	since := time.Now().Add(-a.params.Since)
	var positions []domain.LiquidityPosition
	if a.params.Pool != "" && (a.params.AssetAddress != "" || a.params.RuneAddress != "") {
		pool, err := a.poolAsset()
		if err != nil {
			return fmt.Errorf("report mode: pool: %w", err)
		}
		pos, err := deps.Positions.CheckPosition(ctx, pool, a.params.AssetAddress, a.params.RuneAddress)
		if err != nil {
			return fmt.Errorf("report mode: %w", err)
		}
		positions = append(positions, pos)
	}

	report, err := deps.Reports.Build(ctx, since, positions)
	if err != nil {
		return fmt.Errorf("report mode: %w", err)
	}
	if err := a.print(report); err != nil {
		return err
	}

	if deps.BlobWriter != nil {
		path, err := deps.Reports.Upload(ctx, report)
		if err != nil {
			return fmt.Errorf("report mode: %w", err)
		}
		a.logger.InfoContext(ctx, "report stored", slog.String("path", path))
	}

	if a.params.ArchiveAfter > 0 {
		if deps.Archiver == nil {
			return errors.New("report mode: archiving needs both s3 and supabase")
		}
		n, err := deps.Archiver.ArchiveActions(ctx, time.Now().Add(-a.params.ArchiveAfter))
		if err != nil {
			return fmt.Errorf("report mode: %w", err)
		}
		a.logger.InfoContext(ctx, "actions archived", slog.Int64("count", n))
	}
	return nil
}

// finish prints the outcome of an action when it reached a chain, then
// returns err.
func (a *App) finish(mode string, res service.ActionResult, err error) error {
	if res.Outcome.Stage != "" {
		if perr := a.print(domain.NewActionRecord(res.ID, res.Outcome, err, time.Now())); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", mode, err)
	}
	return nil
}

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("app: write output: %w", err)
	}
	return nil
}

// poolAsset resolves the -pool argument and its precision.
func (a *App) poolAsset() (domain.Asset, error) {
	decimals := domain.DecimalsUnknown
	if a.params.Decimals != nil {
		if *a.params.Decimals < 0 {
			return domain.Asset{}, fmt.Errorf("decimals %d: %w", *a.params.Decimals, domain.ErrInvalidAmount)
		}
		decimals = *a.params.Decimals
	}
	return domain.LookupAsset(a.params.Pool, decimals)
}

func parseSide(asset domain.Asset, s string) (domain.Amount, error) {
	if strings.TrimSpace(s) == "" {
		return domain.ZeroAmount(asset), nil
	}
	return domain.ParseAmount(asset, strings.TrimSpace(s))
}
