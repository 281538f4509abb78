// Package watcher triggers a workbook sync when the watched input workbooks
// change on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
)

// DefaultDebounce collapses the burst of events an editor emits on save
const DefaultDebounce = 2 * time.Second

// TriggerFunc runs once per settled change
type TriggerFunc func(ctx context.Context, changed string) error

// Config selects what is watched
type Config struct {
	Dir      string
	Files    []string // base names inside Dir; empty means any workbook
	Ignore   []string // paths never matched, such as the sync output
	Debounce time.Duration
}

// Watcher monitors a directory and calls the trigger after changes settle
type Watcher struct {
	cfg     Config
	trigger TriggerFunc
	clock   clockwork.Clock
	logger  *slog.Logger

	mu      sync.Mutex
	pending clockwork.Timer
}

// New creates a watcher. Call Start to begin watching.
func New(cfg Config, trigger TriggerFunc, logger *slog.Logger) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{cfg: cfg, trigger: trigger, clock: clockwork.NewRealClock(), logger: logger}
}

// WithClock swaps the debounce clock
func (w *Watcher) WithClock(c clockwork.Clock) *Watcher {
	w.clock = c
	return w
}

// Start watches until ctx is done. It returns once the directory is being
// watched; events are handled in the background.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(w.cfg.Dir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Dir, err)
	}

	w.logger.Info("watching workbooks",
		slog.String("dir", w.cfg.Dir),
		slog.Any("files", w.cfg.Files),
		slog.Duration("debounce", w.cfg.Debounce))

	go func() {
		defer fw.Close()
		for {
			select {
			case <-ctx.Done():
				w.stopPending()
				return
			case evt, ok := <-fw.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && w.matches(evt.Name) {
					w.schedule(ctx, evt.Name)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", slog.Any("error", err))
			}
		}
	}()
	return nil
}

func (w *Watcher) matches(path string) bool {
	for _, ignored := range w.cfg.Ignore {
		if filepath.Clean(ignored) == filepath.Clean(path) {
			return false
		}
	}
	name := filepath.Base(path)
	if len(w.cfg.Files) == 0 {
		switch filepath.Ext(name) {
		case ".xlsx", ".xlsm", ".csv":
			return true
		}
		return false
	}
	for _, f := range w.cfg.Files {
		if f == name {
			return true
		}
	}
	return false
}

// schedule restarts the debounce timer; only the last change in a burst fires
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = w.clock.AfterFunc(w.cfg.Debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.logger.Info("workbook changed", slog.String("path", path))
		if err := w.trigger(ctx, path); err != nil {
			w.logger.Error("sync trigger failed",
				slog.String("path", path),
				slog.Any("error", err))
		}
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
}
