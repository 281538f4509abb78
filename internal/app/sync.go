package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/workbooksync"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/parsers"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/queue"
	"github.com/alejandroruanova/outage-analytics-service/internal/observability"
)

// SyncWorkbooks merges the first sheet of base into the update workbook and
// writes the result to out as XLSX.
func (a *Analyzer) SyncWorkbooks(ctx context.Context, base, update parsers.Source, out io.Writer) (stats workbooksync.Stats, err error) {
	defer func() {
		a.metrics.SyncRuns.WithLabelValues(observability.Outcome(err)).Inc()
	}()

	baseWB, err := a.LoadWorkbook(ctx, base)
	if err != nil {
		return stats, err
	}
	baseSheet, err := firstSheet(baseWB, base)
	if err != nil {
		return stats, err
	}
	updateWB, err := a.LoadWorkbook(ctx, update)
	if err != nil {
		return stats, err
	}

	merged, stats, err := workbooksync.Sync(baseSheet, updateWB, a.dicts, a.logger)
	if err != nil {
		return stats, err
	}
	if err := a.writer.Write(merged, out); err != nil {
		return stats, err
	}
	return stats, nil
}

// SyncFiles runs a sync between workbooks on disk. The output is written to
// a temporary file next to OutputPath and renamed into place.
func (a *Analyzer) SyncFiles(ctx context.Context, p queue.SyncPayload) error {
	if err := p.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(p.OutputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".sync-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	stats, err := a.SyncWorkbooks(ctx, parsers.NewPathSource(p.BasePath), parsers.NewPathSource(p.UpdatePath), tmp)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write output file: %w", closeErr)
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), p.OutputPath); err != nil {
		return fmt.Errorf("failed to move output file: %w", err)
	}

	a.logger.Info("workbooks synced",
		slog.String("base", p.BasePath),
		slog.String("update", p.UpdatePath),
		slog.String("output", p.OutputPath),
		slog.String("trigger", p.Trigger),
		slog.Int("rows", stats.Rows))
	return nil
}
