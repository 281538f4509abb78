package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()

	m.WorkbooksParsed.WithLabelValues("XLSX").Inc()
	m.RowsDropped.WithLabelValues("outages", "structure").Add(2)
	m.SyncRuns.WithLabelValues(Outcome(errors.New("boom"))).Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkbooksParsed.WithLabelValues("XLSX")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsDropped.WithLabelValues("outages", "structure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncRuns.WithLabelValues(OutcomeError)))

	// A second instance does not collide with the first.
	assert.NotPanics(t, func() { NewMetricsForTesting() })
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil))
	assert.Equal(t, OutcomeError, Outcome(errors.New("x")))
}
