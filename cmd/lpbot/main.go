// Command lpbot adds and withdraws cross-chain pool liquidity. It loads
// configuration, validates it, wires dependencies, sets up signal handling,
// and runs either the HTTP API (serve) or a one-shot mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alanyoungcy/lpbot/internal/app"
	"github.com/alanyoungcy/lpbot/internal/config"
)

func main() {
	var params app.Params
	configPath := flag.String("config", "", "path to a TOML configuration file (defaults and LPBOT_* env only when empty)")
	mode := flag.String("mode", "", "override the configured mode: serve, position, add, withdraw, report")
	flag.StringVar(&params.Pool, "pool", "", "pool asset, e.g. BTC.BTC or ETH.USDC-0XA0B8...")
	decimals := flag.Int("decimals", -1, "pool asset precision (0-18) for tokens that are not a chain's gas asset; -1 infers it")
	flag.StringVar(&params.AssetAmount, "asset-amount", "", "asset side to add, display units")
	flag.StringVar(&params.RuneAmount, "rune-amount", "", "rune side to add, display units")
	flag.BoolVar(&params.Symmetric, "symmetric", false, "size the rune side from the current pool ratio")
	flag.StringVar(&params.Percentage, "percent", "", "share of the position to withdraw, 0-100")
	flag.StringVar(&params.AssetAddress, "asset-address", "", "asset-chain address (position lookup or withdraw payout)")
	flag.StringVar(&params.RuneAddress, "rune-address", "", "settlement-chain address (position lookup or withdraw payout)")
	flag.DurationVar(&params.Since, "since", 24*time.Hour, "report window")
	flag.DurationVar(&params.ArchiveAfter, "archive-after", 0, "report mode: archive journal rows older than this to s3 (0 disables)")
	flag.Parse()
	if *decimals >= 0 {
		d := int32(*decimals)
		params.Decimals = &d
	}

	// Bootstrap logger until the configured one exists.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	logger, closeLog, logErr := newLogger(cfg, cfg.Mode != "serve", nil)
	defer closeLog()
	slog.SetDefault(logger)
	if logErr != nil {
		logger.Warn("rotating log file disabled", slog.String("error", logErr.Error()))
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		closeLog()
		os.Exit(1)
	}
	logger.Debug("configuration loaded", slog.Any("config", config.RedactedConfig(cfg)))

	application := app.New(cfg, params, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = application.Run(ctx)
	application.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		stop()
		closeLog()
		os.Exit(1)
	}

	logger.Info("lpbot stopped")
}
