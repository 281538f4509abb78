package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alejandroruanova/outage-analytics-service/internal/app"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/queue"
	"github.com/alejandroruanova/outage-analytics-service/internal/observability"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/config"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/logger"
	"github.com/alejandroruanova/outage-analytics-service/internal/watcher"
)

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

	log := logger.Initialize(cfg.Environment).With(slog.String("component", "worker"))

	rt, err := app.NewRuntime(cfg, observability.NewMetrics(), log)
	if err != nil {
		return fmt.Errorf("starting runtime: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Error("closing runtime", slog.Any("error", err))
		}
	}()

	srv, err := queue.NewAsynqServer(&cfg.Queue, log)
	if err != nil {
		return fmt.Errorf("creating queue server: %w", err)
	}
	srv.HandleFunc(queue.TaskTypeWorkbookSync, queue.NewSyncHandler(rt.Analyzer.SyncFiles, log))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Data.WatchDir != "" {
		client, err := queue.NewAsynqClient(&cfg.Queue, log)
		if err != nil {
			return fmt.Errorf("creating queue client: %w", err)
		}
		defer client.Close()

		w := watcher.New(watchConfig(cfg.Data), enqueueOnChange(client, cfg.Data, log), log)
		if err := w.Start(ctx); err != nil {
			return err
		}
	}

	if err := srv.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutdown signal received")
	srv.Shutdown()
	log.Info("shutdown complete")
	return nil
}

// watchConfig watches the base and update workbooks of the configured sync.
// Writes to the sync output never trigger another run.
func watchConfig(data config.DataConfig) watcher.Config {
	cfg := watcher.Config{Dir: data.WatchDir}
	for _, p := range []string{data.SyncBasePath, data.SyncUpdatePath} {
		if p != "" {
			cfg.Files = append(cfg.Files, filepath.Base(p))
		}
	}
	if data.SyncOutputPath != "" {
		cfg.Ignore = []string{data.SyncOutputPath}
	}
	return cfg
}

func enqueueOnChange(client *queue.AsynqClient, data config.DataConfig, log *slog.Logger) watcher.TriggerFunc {
	return func(ctx context.Context, changed string) error {
		info, err := client.EnqueueSync(ctx, queue.SyncPayload{
			BasePath:   data.SyncBasePath,
			UpdatePath: data.SyncUpdatePath,
			OutputPath: data.SyncOutputPath,
			Trigger:    "watch",
		})
		if err != nil {
			return err
		}
		log.Info("sync queued", slog.String("task_id", info.ID), slog.String("changed", changed))
		return nil
	}
}
