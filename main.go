package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"knowra/apps/indexer/internal/app"
	"knowra/apps/indexer/internal/config"
	"knowra/apps/indexer/internal/logger"
)

func main() {
	// Structured logger with correlation ids pulled from context
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	if err := app.New(cfg, deps).Run(ctx); err != nil {
		slog.Error("indexer stopped with error", "error", err)
		os.Exit(1)
	}
}
