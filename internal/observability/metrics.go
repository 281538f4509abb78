package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "outage_analytics"

// Metrics holds the Prometheus counters and histograms for the analytics service.
type Metrics struct {
	// Workbook ingestion.
	WorkbooksParsed *prometheus.CounterVec // labels: format={XLSX,CSV}
	WorkbookCache   *prometheus.CounterVec // labels: layer={memory,redis}, result={hit,miss}

	// Dataset preparation.
	RowsPrepared *prometheus.CounterVec // labels: dataset
	RowsDropped  *prometheus.CounterVec // labels: dataset, reason

	// Criticality.
	CriticalityRows prometheus.Histogram

	// Assistant.
	LLMRequests *prometheus.CounterVec // labels: outcome={success,error}
	LLMDuration prometheus.Histogram

	// Workbook sync.
	SyncRuns *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.WorkbooksParsed,
		m.WorkbookCache,
		m.RowsPrepared,
		m.RowsDropped,
		m.CriticalityRows,
		m.LLMRequests,
		m.LLMDuration,
		m.SyncRuns,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		WorkbooksParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workbooks_parsed_total",
			Help:      "Workbooks parsed by format.",
		}, []string{"format"}),
		WorkbookCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workbook_cache_total",
			Help:      "Parsed workbook cache lookups by layer and result.",
		}, []string{"layer", "result"}),
		RowsPrepared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_prepared_total",
			Help:      "Rows kept by the dataset preparers.",
		}, []string{"dataset"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows dropped by the dataset preparers by reason.",
		}, []string{"dataset", "reason"}),
		CriticalityRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "criticality_rows",
			Help:      "Rows produced by a criticality join.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 250, 500, 1000},
		}),
		LLMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Assistant model requests by outcome.",
		}, []string{"outcome"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Assistant model request duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Workbook sync runs by outcome.",
		}, []string{"outcome"}),
	}
}

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Cache result label values.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Outcome maps an error to its label value.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
