// Package app wires the parsers, preparers and analysis services into the
// operations exposed by the HTTP API, the worker and the CLI.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/lookup"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/analytics"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/assistant"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/criticality"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/locator"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/prepare"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/parsers"
	"github.com/alejandroruanova/outage-analytics-service/internal/observability"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Cache layer label values.
const (
	layerMemory = "memory"
	layerRedis  = "redis"
)

// maxMemoryWorkbooks bounds the in-process workbook cache.
const maxMemoryWorkbooks = 32

// WorkbookCache is a shared cache of parsed workbooks keyed by content hash.
type WorkbookCache interface {
	Get(ctx context.Context, fingerprint string) (*domain.Workbook, bool, error)
	Put(ctx context.Context, fingerprint string, wb *domain.Workbook) error
}

// RunRecorder persists criticality runs.
type RunRecorder interface {
	Start(ctx context.Context, run *domain.AnalysisRun) error
	Complete(ctx context.Context, run *domain.AnalysisRun, scores []domain.CriticalityScore) error
	Fail(ctx context.Context, run *domain.AnalysisRun, cause error) error
}

// Options configures an Analyzer. Only Parsers is required in practice; the
// zero value of every other field disables the matching feature.
type Options struct {
	Parsers       *parsers.ParserFactory
	Dictionaries  *lookup.Dictionaries
	Cache         WorkbookCache
	Runs          RunRecorder
	Completer     assistant.Completer
	Conversations assistant.Store
	Assistant     assistant.Config
	Metrics       *observability.Metrics
}

// Analyzer runs every analysis over explicit workbook sources. It keeps no
// per-request state besides the workbook cache.
type Analyzer struct {
	parsers   *parsers.ParserFactory
	writer    *parsers.WorkbookWriter
	dicts     *lookup.Dictionaries
	preparer  *prepare.Preparer
	locator   *locator.Service
	assistant *assistant.Service
	cache     WorkbookCache
	runs      RunRecorder
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu        sync.Mutex
	workbooks map[string]*domain.Workbook
}

// NewAnalyzer creates an analyzer from opts
func NewAnalyzer(opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Parsers == nil {
		opts.Parsers = parsers.NewParserFactory(nil)
	}
	if opts.Dictionaries == nil {
		opts.Dictionaries = lookup.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}

	return &Analyzer{
		parsers:   opts.Parsers,
		writer:    parsers.NewWorkbookWriter(),
		dicts:     opts.Dictionaries,
		preparer:  prepare.NewPreparer(opts.Dictionaries, logger),
		locator:   locator.NewService(logger),
		assistant: assistant.NewService(opts.Completer, opts.Conversations, opts.Assistant, logger),
		cache:     opts.Cache,
		runs:      opts.Runs,
		metrics:   opts.Metrics,
		logger:    logger,
		workbooks: make(map[string]*domain.Workbook),
	}
}

// Dictionaries returns the lookup tables in use.
func (a *Analyzer) Dictionaries() *lookup.Dictionaries {
	return a.dicts
}

// AssistantConfigured reports whether questions can reach a model.
func (a *Analyzer) AssistantConfigured() bool {
	return a.assistant.Configured()
}

// LoadWorkbook parses src, reusing a cached copy when its content was seen before.
func (a *Analyzer) LoadWorkbook(ctx context.Context, src parsers.Source) (*domain.Workbook, error) {
	wb, _, err := a.load(ctx, src)
	return wb, err
}

func (a *Analyzer) load(ctx context.Context, src parsers.Source) (*domain.Workbook, string, error) {
	fingerprint, err := src.Fingerprint()
	if err != nil {
		return nil, "", err
	}

	if wb, ok := a.fromMemory(fingerprint); ok {
		a.metrics.WorkbookCache.WithLabelValues(layerMemory, observability.CacheHit).Inc()
		return wb, fingerprint, nil
	}
	a.metrics.WorkbookCache.WithLabelValues(layerMemory, observability.CacheMiss).Inc()

	if a.cache != nil {
		wb, ok, err := a.cache.Get(ctx, fingerprint)
		if err != nil {
			a.logger.Warn("workbook cache lookup failed",
				slog.String("source", src.Name()),
				slog.Any("error", err))
		}
		if ok {
			a.metrics.WorkbookCache.WithLabelValues(layerRedis, observability.CacheHit).Inc()
			a.remember(fingerprint, wb)
			return wb, fingerprint, nil
		}
		a.metrics.WorkbookCache.WithLabelValues(layerRedis, observability.CacheMiss).Inc()
	}

	result, err := a.parsers.Parse(ctx, src)
	if err != nil {
		return nil, "", err
	}
	a.metrics.WorkbooksParsed.WithLabelValues(result.Format).Inc()
	a.logger.Info("workbook parsed",
		slog.String("source", src.Name()),
		slog.String("format", result.Format),
		slog.Int("sheets", len(result.Workbook.Sheets)),
		slog.Int("rows", result.TotalRows),
		slog.Int("skipped_rows", result.SkippedRows))

	a.remember(fingerprint, result.Workbook)
	if a.cache != nil {
		if err := a.cache.Put(ctx, fingerprint, result.Workbook); err != nil {
			a.logger.Warn("failed to cache workbook",
				slog.String("source", src.Name()),
				slog.Any("error", err))
		}
	}
	return result.Workbook, fingerprint, nil
}

func (a *Analyzer) fromMemory(fingerprint string) (*domain.Workbook, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	wb, ok := a.workbooks[fingerprint]
	return wb, ok
}

func (a *Analyzer) remember(fingerprint string, wb *domain.Workbook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.workbooks) >= maxMemoryWorkbooks {
		a.workbooks = make(map[string]*domain.Workbook)
	}
	a.workbooks[fingerprint] = wb
}

// firstSheet returns the data sheet of a single-table workbook.
func firstSheet(wb *domain.Workbook, src parsers.Source) (*domain.Table, error) {
	sheet, ok := wb.First()
	if !ok {
		return nil, apperrors.InvalidFile("workbook " + src.Name() + " has no sheets")
	}
	return sheet, nil
}

func (a *Analyzer) observe(stats prepare.Stats) {
	a.metrics.RowsPrepared.WithLabelValues(stats.Dataset).Add(float64(stats.Kept))
	for reason, n := range stats.Dropped {
		a.metrics.RowsDropped.WithLabelValues(stats.Dataset, reason).Add(float64(n))
	}
}

// Outages loads src and prepares its first sheet for tower analysis.
func (a *Analyzer) Outages(ctx context.Context, src parsers.Source) ([]domain.Outage, prepare.Stats, error) {
	wb, err := a.LoadWorkbook(ctx, src)
	if err != nil {
		return nil, prepare.Stats{}, err
	}
	sheet, err := firstSheet(wb, src)
	if err != nil {
		return nil, prepare.Stats{}, err
	}
	outages, stats, err := a.preparer.Outages(sheet)
	if err != nil {
		return nil, stats, err
	}
	a.observe(stats)
	return outages, stats, nil
}

// CleanOutages loads src and prepares its first sheet for the analytics views.
func (a *Analyzer) CleanOutages(ctx context.Context, src parsers.Source) ([]domain.Outage, error) {
	wb, err := a.LoadWorkbook(ctx, src)
	if err != nil {
		return nil, err
	}
	sheet, err := firstSheet(wb, src)
	if err != nil {
		return nil, err
	}
	outages, stats, err := a.preparer.Clean(sheet)
	if err != nil {
		return nil, err
	}
	a.observe(stats)
	return outages, nil
}

// Measurements loads src and prepares its first sheet as resistance readings.
func (a *Analyzer) Measurements(ctx context.Context, src parsers.Source) ([]domain.Measurement, prepare.Stats, error) {
	wb, err := a.LoadWorkbook(ctx, src)
	if err != nil {
		return nil, prepare.Stats{}, err
	}
	sheet, err := firstSheet(wb, src)
	if err != nil {
		return nil, prepare.Stats{}, err
	}
	ms, stats, err := a.preparer.Resistance(sheet)
	if err != nil {
		return nil, stats, err
	}
	a.observe(stats)
	return ms, stats, nil
}

// CriticalityResult is the ranked join of one outage and one resistance workbook.
type CriticalityResult struct {
	RunID      *uuid.UUID                `json:"run_id,omitempty"`
	Scores     []domain.CriticalityScore `json:"scores"`
	Top        []domain.CriticalityScore `json:"top"`
	LineTotals []criticality.LineTotal   `json:"line_totals"`
	Outages    prepare.Stats             `json:"outages"`
	Resistance prepare.Stats             `json:"resistance"`
}

// Criticality joins the two workbooks and ranks the top towers. When a run
// recorder is configured the run and its top scores are persisted; a
// persistence failure is logged and does not fail the analysis.
func (a *Analyzer) Criticality(ctx context.Context, outagesSrc, resistanceSrc parsers.Source, top int) (*CriticalityResult, error) {
	outagesWB, outagesHash, err := a.load(ctx, outagesSrc)
	if err != nil {
		return nil, err
	}
	resistanceWB, resistanceHash, err := a.load(ctx, resistanceSrc)
	if err != nil {
		return nil, err
	}

	run := a.startRun(ctx, &domain.AnalysisRun{
		OutagesSource:    outagesSrc.Name(),
		OutagesHash:      outagesHash,
		ResistanceSource: resistanceSrc.Name(),
		ResistanceHash:   resistanceHash,
	})

	result, err := a.criticality(outagesWB, resistanceWB, outagesSrc, resistanceSrc, top)
	if err != nil {
		a.failRun(ctx, run, err)
		return nil, err
	}

	if run != nil {
		run.OutageRows = result.Outages.Kept
		run.MeasurementRows = result.Resistance.Kept
		run.ScoredRows = len(result.Scores)
		if err := a.runs.Complete(ctx, run, result.Top); err != nil {
			a.logger.Warn("failed to persist analysis run",
				slog.String("run_id", run.ID.String()),
				slog.Any("error", err))
		} else {
			id := run.ID
			result.RunID = &id
		}
	}

	a.logger.Info("criticality computed",
		slog.String("outages", outagesSrc.Name()),
		slog.String("resistance", resistanceSrc.Name()),
		slog.Int("scores", len(result.Scores)),
		slog.Int("top", len(result.Top)))
	return result, nil
}

func (a *Analyzer) criticality(outagesWB, resistanceWB *domain.Workbook, outagesSrc, resistanceSrc parsers.Source, top int) (*CriticalityResult, error) {
	outagesSheet, err := firstSheet(outagesWB, outagesSrc)
	if err != nil {
		return nil, err
	}
	resistanceSheet, err := firstSheet(resistanceWB, resistanceSrc)
	if err != nil {
		return nil, err
	}

	outages, outageStats, err := a.preparer.Outages(outagesSheet)
	if err != nil {
		return nil, err
	}
	a.observe(outageStats)

	ms, resistanceStats, err := a.preparer.Resistance(resistanceSheet)
	if err != nil {
		return nil, err
	}
	a.observe(resistanceStats)

	scores := criticality.Join(outages, ms)
	a.metrics.CriticalityRows.Observe(float64(len(scores)))

	return &CriticalityResult{
		Scores:     scores,
		Top:        criticality.TopN(scores, top),
		LineTotals: criticality.LineTotals(scores),
		Outages:    outageStats,
		Resistance: resistanceStats,
	}, nil
}

func (a *Analyzer) startRun(ctx context.Context, run *domain.AnalysisRun) *domain.AnalysisRun {
	if a.runs == nil {
		return nil
	}
	if err := a.runs.Start(ctx, run); err != nil {
		a.logger.Warn("failed to record analysis run", slog.Any("error", err))
		return nil
	}
	return run
}

func (a *Analyzer) failRun(ctx context.Context, run *domain.AnalysisRun, cause error) {
	if run == nil {
		return
	}
	if err := a.runs.Fail(ctx, run, cause); err != nil {
		a.logger.Warn("failed to mark analysis run as failed",
			slog.String("run_id", run.ID.String()),
			slog.Any("error", err))
	}
}

// Analytics computes the outage dashboard series for filter.
func (a *Analyzer) Analytics(ctx context.Context, src parsers.Source, filter analytics.Filter) (*analytics.Report, error) {
	outages, err := a.CleanOutages(ctx, src)
	if err != nil {
		return nil, err
	}
	return analytics.BuildReport(outages, filter, a.dicts), nil
}

// Grounding computes the resistance dashboard for one line. A nil rng uses
// the line bounds.
func (a *Analyzer) Grounding(ctx context.Context, src parsers.Source, line string, rng *analytics.Bounds) (*analytics.GroundingReport, error) {
	ms, _, err := a.Measurements(ctx, src)
	if err != nil {
		return nil, err
	}
	return analytics.BuildGroundingReport(ms, line, rng), nil
}

// Catalog lists the concessions and lines of a locator workbook.
func (a *Analyzer) Catalog(ctx context.Context, src parsers.Source) (*locator.LineCatalog, error) {
	wb, err := a.LoadWorkbook(ctx, src)
	if err != nil {
		return nil, err
	}
	return a.locator.Catalog(wb)
}

// Locate draws the span around the searched km of one line.
func (a *Analyzer) Locate(ctx context.Context, src parsers.Source, req locator.Request) (*locator.Result, error) {
	wb, err := a.LoadWorkbook(ctx, src)
	if err != nil {
		return nil, err
	}
	return a.locator.Locate(wb, req)
}

// Ask answers a question about the outages of src.
func (a *Analyzer) Ask(ctx context.Context, src parsers.Source, q assistant.Question) (*assistant.Answer, error) {
	if !a.assistant.Configured() {
		return nil, apperrors.LLMNotConfigured()
	}
	outages, err := a.CleanOutages(ctx, src)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	answer, err := a.assistant.Ask(ctx, outages, q)
	if apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) || apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		return nil, err
	}
	a.metrics.LLMRequests.WithLabelValues(observability.Outcome(err)).Inc()
	a.metrics.LLMDuration.Observe(time.Since(start).Seconds())
	return answer, err
}

// Conversation returns the stored history of a session.
func (a *Analyzer) Conversation(ctx context.Context, id uuid.UUID) (*assistant.Conversation, error) {
	return a.assistant.History(ctx, id)
}

// ResetConversation clears the history of a session.
func (a *Analyzer) ResetConversation(ctx context.Context, id uuid.UUID) error {
	return a.assistant.Reset(ctx, id)
}
