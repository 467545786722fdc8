// Package app provides the top-level application lifecycle for the liquidity
// bot. It wires the settlement-chain client, chain clients, coordinator,
// services and optional backing stores, then runs the configured mode.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alanyoungcy/lpbot/internal/config"
)

// Params carries the one-shot mode arguments from the command line. Amounts
// are display units; Percentage is 0-100.
type Params struct {
	Pool string
	// Decimals is the pool asset's precision; nil infers it.
	Decimals     *int32
	AssetAmount  string
	RuneAmount   string
	Symmetric    bool
	Percentage   string
	AssetAddress string
	RuneAddress  string

	// Since is how far back the report looks.
	Since time.Duration
	// ArchiveAfter archives journal rows older than this; zero disables.
	ArchiveAfter time.Duration
}

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	params  Params
	logger  *slog.Logger
	out     io.Writer
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, params Params, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		params: params,
		logger: logger.With(slog.String("component", "app")),
		out:    os.Stdout,
	}
}

// Run is the main entry point. It wires all dependencies, runs the selected
// mode and blocks until it finishes or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
		slog.Any("chains", a.cfg.ChainNames()),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "serve":
		return a.ServeMode(ctx, deps)
	case "position":
		return a.PositionMode(ctx, deps)
	case "add":
		return a.AddMode(ctx, deps)
	case "withdraw":
		return a.WithdrawMode(ctx, deps)
	case "report":
		return a.ReportMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
