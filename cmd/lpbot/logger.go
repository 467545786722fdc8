package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alanyoungcy/lpbot/internal/config"
)

// parseLevel maps a config log level to slog; unknown values mean info.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the JSON process logger. One-shot modes print their result
// on stdout, so their logs go to stderr. With [log] file set, every line is
// also written to a rotating file; if that file cannot be set up the console
// logger is still returned together with the error.
func newLogger(cfg *config.Config, oneShot bool, console io.Writer) (*slog.Logger, func(), error) {
	if console == nil {
		console = os.Stdout
		if oneShot {
			console = os.Stderr
		}
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	if cfg.Log.File == "" {
		return slog.New(slog.NewJSONHandler(console, opts)), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return slog.New(slog.NewJSONHandler(console, opts)), func() {},
			fmt.Errorf("log file %s: %w", cfg.Log.File, err)
	}

	file := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}
	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(console, file), opts))
	return logger, func() { _ = file.Close() }, nil
}
