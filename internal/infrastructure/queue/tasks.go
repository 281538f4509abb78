package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeWorkbookSync merges the base outage workbook into the update workbook
const TaskTypeWorkbookSync = "workbook:sync"

// syncTaskTimeout bounds a single sync run
const syncTaskTimeout = 10 * time.Minute

// SyncPayload names the workbooks of one sync run
type SyncPayload struct {
	BasePath   string `json:"base_path"`
	UpdatePath string `json:"update_path"`
	OutputPath string `json:"output_path"`
	Trigger    string `json:"trigger,omitempty"`
}

// Validate checks that every path is set
func (p SyncPayload) Validate() error {
	switch {
	case p.BasePath == "":
		return fmt.Errorf("base_path is required")
	case p.UpdatePath == "":
		return fmt.Errorf("update_path is required")
	case p.OutputPath == "":
		return fmt.Errorf("output_path is required")
	}
	return nil
}

// NewSyncTask builds a workbook:sync task
func NewSyncTask(p SyncPayload) (*asynq.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sync payload: %w", err)
	}
	return asynq.NewTask(TaskTypeWorkbookSync, data), nil
}

// ParseSyncPayload decodes a workbook:sync task payload
func ParseSyncPayload(task *asynq.Task) (SyncPayload, error) {
	var p SyncPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to decode sync payload: %w", err)
	}
	return p, p.Validate()
}

// EnqueueSync queues a sync run. Runs for the same output collapse while
// one is pending.
func (a *AsynqClient) EnqueueSync(ctx context.Context, p SyncPayload) (*asynq.TaskInfo, error) {
	task, err := NewSyncTask(p)
	if err != nil {
		return nil, err
	}
	return a.EnqueueContext(ctx, task,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(a.maxRetries),
		asynq.Timeout(syncTaskTimeout),
		asynq.Unique(time.Minute),
	)
}

// SyncFunc performs one sync run
type SyncFunc func(ctx context.Context, p SyncPayload) error

// NewSyncHandler adapts fn to an asynq handler. Malformed payloads are not
// retried.
func NewSyncHandler(fn SyncFunc, logger *slog.Logger) func(context.Context, *asynq.Task) error {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := ParseSyncPayload(task)
		if err != nil {
			logger.Error("invalid sync task", slog.Any("error", err))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		logger.Info("processing sync task",
			slog.String("base", p.BasePath),
			slog.String("update", p.UpdatePath),
			slog.String("output", p.OutputPath),
			slog.String("trigger", p.Trigger))

		return fn(ctx, p)
	}
}
