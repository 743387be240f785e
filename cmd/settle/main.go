// Command settle runs one settlement for the period ending now and exits.
// It is meant to be scheduled weekly.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vandelay/guacbot/internal/app"
	"github.com/vandelay/guacbot/internal/config"
	"github.com/vandelay/guacbot/internal/logging"
	"github.com/vandelay/guacbot/internal/models"
)

func main() {
	configPath := flag.String("config", ".env", "path to an optional .env file")
	flag.Parse()

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return 1
	}
	logging.Setup(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize dependencies", "error", err)
		return 1
	}
	defer deps.Close()

	report, err := deps.Settlement.Run(ctx)
	switch {
	case errors.Is(err, models.ErrPeriodAlreadySettled), errors.Is(err, models.ErrPeriodLocked):
		slog.Warn("[SETTLEMENT] skipped", "reason", err)
		return 0
	case err != nil:
		slog.Error("[SETTLEMENT] failed", "error", err)
		return 1
	}

	slog.Info("[SETTLEMENT] done",
		"period", report.PeriodKey,
		"empty", report.Empty,
		"events", report.EventCount,
		"winners", len(report.Winners),
		"losers", len(report.Losers),
	)
	return 0
}
