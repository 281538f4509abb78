package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// AnalysisRunRepository persists criticality runs and their ranked scores
type AnalysisRunRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewAnalysisRunRepository creates a new repository instance
func NewAnalysisRunRepository(db *gorm.DB, logger *slog.Logger) *AnalysisRunRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &AnalysisRunRepository{
		db:     db,
		logger: logger,
	}
}

// Start records a run in the running state
func (r *AnalysisRunRepository) Start(ctx context.Context, run *domain.AnalysisRun) error {
	run.Status = domain.RunStatusRunning
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		r.logger.Error("failed to create analysis run",
			slog.String("outages_hash", run.OutagesHash),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}
	return nil
}

// Complete stores the ranked scores and marks the run completed in one
// transaction
func (r *AnalysisRunRepository) Complete(ctx context.Context, run *domain.AnalysisRun, scores []domain.CriticalityScore) error {
	now := domain.Now()
	snapshots := domain.NewScoreSnapshots(run.ID, scores)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(snapshots) > 0 {
			if err := tx.CreateInBatches(snapshots, 500).Error; err != nil {
				return fmt.Errorf("failed to insert scores: %w", err)
			}
		}
		return tx.Model(run).Updates(map[string]interface{}{
			"status":           domain.RunStatusCompleted,
			"outage_rows":      run.OutageRows,
			"measurement_rows": run.MeasurementRows,
			"scored_rows":      len(scores),
			"completed_at":     now,
		}).Error
	})
	if err != nil {
		r.logger.Error("failed to complete analysis run",
			slog.String("run_id", run.ID.String()),
			slog.Int("score_count", len(scores)),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}

	run.Status = domain.RunStatusCompleted
	run.ScoredRows = len(scores)
	run.CompletedAt = &now

	r.logger.Info("analysis run completed",
		slog.String("run_id", run.ID.String()),
		slog.Int("score_count", len(scores)))
	return nil
}

// Fail marks the run failed with cause
func (r *AnalysisRunRepository) Fail(ctx context.Context, run *domain.AnalysisRun, cause error) error {
	now := domain.Now()
	err := r.db.WithContext(ctx).Model(run).Updates(map[string]interface{}{
		"status":        domain.RunStatusFailed,
		"error_message": cause.Error(),
		"completed_at":  now,
	}).Error
	if err != nil {
		r.logger.Error("failed to mark analysis run as failed",
			slog.String("run_id", run.ID.String()),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}

	run.Status = domain.RunStatusFailed
	run.ErrorMessage = cause.Error()
	run.CompletedAt = &now
	return nil
}

// Get loads a run with its scores ordered by rank
func (r *AnalysisRunRepository) Get(ctx context.Context, id uuid.UUID) (*domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	err := r.db.WithContext(ctx).
		Preload("Scores", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank ASC")
		}).
		First(&run, "id = ?", id).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RecordNotFound("analysis run")
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return &run, nil
}

// LatestForSources returns the most recent completed run over the same
// pair of workbooks
func (r *AnalysisRunRepository) LatestForSources(ctx context.Context, outagesHash, resistanceHash string) (*domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	err := r.db.WithContext(ctx).
		Where("outages_hash = ? AND resistance_hash = ? AND status = ?",
			outagesHash, resistanceHash, domain.RunStatusCompleted).
		Order("created_at DESC").
		First(&run).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RecordNotFound("analysis run")
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return &run, nil
}

// List returns the latest runs without scores
func (r *AnalysisRunRepository) List(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []domain.AnalysisRun
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).
		Error
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return runs, nil
}
