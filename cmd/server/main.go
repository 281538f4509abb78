package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandroruanova/outage-analytics-service/internal/api"
	"github.com/alejandroruanova/outage-analytics-service/internal/app"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/queue"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/storage"
	"github.com/alejandroruanova/outage-analytics-service/internal/observability"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/config"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/logger"
)

const cleanupInterval = time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.Initialize(cfg.Environment)
	cfg.LogConfig(log)

	metrics := observability.NewMetrics()

	rt, err := app.NewRuntime(cfg, metrics, log)
	if err != nil {
		return fmt.Errorf("starting runtime: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Error("closing runtime", slog.Any("error", err))
		}
	}()

	store, err := storage.NewLocalStorage(&storage.LocalStorageConfig{BasePath: cfg.Storage.BasePath}, log)
	if err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}

	deps := api.Deps{
		Analyzer:       rt.Analyzer,
		Storage:        store,
		Data:           cfg.Data,
		MaxUploadBytes: cfg.MaxFileSizeBytes(),
		Checks:         map[string]api.HealthChecker{},
	}
	if rt.Redis != nil {
		deps.Checks["redis"] = rt.Redis
	}
	if rt.DB != nil {
		deps.Checks["postgres"] = rt.DB
	}

	// The sync queue shares the redis deployment, so it follows the cache switch.
	if cfg.Cache.Enabled {
		client, err := queue.NewAsynqClient(&cfg.Queue, log)
		if err != nil {
			return fmt.Errorf("creating queue client: %w", err)
		}
		defer client.Close()
		deps.Queue = client
	} else {
		log.Info("queue disabled, sync requests run inline")
	}

	srv := api.NewServer(cfg.GetServerAddr(), api.NewHandler(deps, log), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cleanupLoop(ctx, store, cfg.Storage.Retention, log)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", slog.Any("error", err))
	}

	log.Info("shutdown complete")
	return nil
}

// cleanupLoop removes uploads and sync outputs older than retention.
func cleanupLoop(ctx context.Context, store *storage.LocalStorage, retention time.Duration, log *slog.Logger) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupOldFiles(ctx, retention)
			if err != nil {
				log.Warn("storage cleanup failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				log.Info("storage cleanup", slog.Int("removed", removed))
			}
		}
	}
}
