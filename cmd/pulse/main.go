package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/skillbridge/console/internal/infra"
	"github.com/skillbridge/console/internal/provider"
	"github.com/skillbridge/console/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("pulse failed", "error", err)
		os.Exit(1)
	}
}

// run performs one keep-alive pass and prints the report to stdout. Intended
// to be invoked from cron; free-tier hosts idle out without it.
func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The database warm read is optional: without a reachable database the
	// probes still run.
	var warm func(ctx context.Context) error
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Warn("postgres unreachable, skipping warm read", "error", err)
	} else {
		defer pool.Close()
		settingsRepo := repository.NewPgSettingsRepository()
		warm = func(ctx context.Context) error {
			_, err := settingsRepo.Get(ctx, pool)
			return err
		}
	}

	pinger := provider.NewPinger(cfg.PulseTargets, warm, logger)
	report := pinger.Run(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	for _, r := range report.Results {
		if !r.OK {
			logger.Warn("target unhealthy", "target", r.Target, "status", r.Status, "error", r.Error)
		}
	}
	return nil
}
