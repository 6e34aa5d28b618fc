package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/TripLoader/internal/config"
	"github.com/JonMunkholm/TripLoader/internal/core"
	"github.com/JonMunkholm/TripLoader/internal/logging"
	"github.com/JonMunkholm/TripLoader/internal/store"
	"github.com/JonMunkholm/TripLoader/internal/web"
)

func main() {
	if err := config.LoadEnvFiles(".env"); err != nil {
		slog.Warn("could not read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	dest, err := store.Open(ctx, cfg.Database, cfg.Import.Table)
	if err != nil {
		slog.Error("failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer dest.Close()

	if n, err := store.MigrateUp(ctx, dest); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	} else if n > 0 {
		slog.Info("migrations applied", "count", n)
	}

	norm, err := core.NewNormalizer(cfg.Import.SourceZone)
	if err != nil {
		slog.Error("invalid source zone", "error", err)
		os.Exit(1)
	}

	service := core.NewService(dest, norm, core.Options{
		Table:          cfg.Import.Table,
		BatchSize:      cfg.Import.BatchSize,
		DuplicatesPath: cfg.Import.DuplicatesPath,
		Timeout:        cfg.Import.Timeout,
		MaxFileSize:    cfg.Import.MaxFileSize,
	}, core.NewImportLimiter(cfg.Import.MaxWait)).WithHistory(dest)

	server := web.NewServer(cfg, service, dest, dest)

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if cfg.Import.HistoryRetention > 0 {
		go core.RunRetention(bgCtx, dest, core.RetentionConfig{
			Retention: cfg.Import.HistoryRetention,
			Interval:  cfg.Import.HistoryPruneInterval,
		})
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down")
		stopBackground()
		if service.Limiter().Busy() {
			slog.Info("waiting for running import", "import", service.Limiter().Status().Current)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}
