package analytics

import (
	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/lookup"
)

// Report bundles every outage series for one filter selection.
type Report struct {
	Filter             Filter        `json:"filter"`
	Total              int           `json:"total"`
	ConcessionOptions  []string      `json:"concession_options"`
	YearOptions        []string      `json:"year_options"`
	CauseDistribution  []Count       `json:"cause_distribution"`
	TopLines           []Count       `json:"top_lines"`
	MonthlySeasonality []MonthCount  `json:"monthly_seasonality"`
	LineMonthHeatmap   Heatmap       `json:"line_month_heatmap"`
	CauseMonthHeatmap  Heatmap       `json:"cause_month_heatmap"`
	CauseLegend        []LegendEntry `json:"cause_legend"`
	TopCauses          []Count       `json:"top_causes"`
	FailuresPerTower   []Count       `json:"failures_per_tower"`
}

// BuildReport filters outages and computes every series. Options are taken
// from the unfiltered data.
func BuildReport(outages []domain.Outage, filter Filter, dicts *lookup.Dictionaries) *Report {
	filtered := filter.Apply(outages)
	return &Report{
		Filter:             filter,
		Total:              len(filtered),
		ConcessionOptions:  ConcessionOptions(outages),
		YearOptions:        YearOptions(outages),
		CauseDistribution:  CauseDistribution(filtered),
		TopLines:           TopLines(filtered, DefaultTopLines),
		MonthlySeasonality: MonthlySeasonality(filtered),
		LineMonthHeatmap:   LineMonthHeatmap(filtered, DefaultHeatmapLines),
		CauseMonthHeatmap:  CauseMonthHeatmap(filtered),
		CauseLegend:        CauseLegend(filtered, dicts),
		TopCauses:          TopCauses(filtered, DefaultTopCauses),
		FailuresPerTower:   FailuresPerTower(filtered, DefaultTopTowers),
	}
}

// GroundingReport bundles the resistance views for one line and range.
type GroundingReport struct {
	Line         string               `json:"line"`
	Lines        []string             `json:"lines"`
	Bounds       Bounds               `json:"bounds"`
	Selected     Bounds               `json:"selected"`
	Total        int                  `json:"total"`
	Histogram    []Bin                `json:"histogram"`
	Summary      MeasurementSummary   `json:"summary"`
	Measurements []domain.Measurement `json:"measurements"`
}

// BuildGroundingReport filters measurements by line and range. A nil rng
// uses the line bounds.
func BuildGroundingReport(ms []domain.Measurement, line string, rng *Bounds) *GroundingReport {
	if line == "" {
		line = AllLines
	}
	bounds := ResistanceBounds(ms, line)
	selected := bounds
	if rng != nil {
		selected = *rng
	}

	filtered := FilterMeasurements(ms, line, selected.Min, selected.Max)
	return &GroundingReport{
		Line:         line,
		Lines:        MeasurementLines(ms),
		Bounds:       bounds,
		Selected:     selected,
		Total:        len(filtered),
		Histogram:    ResistanceHistogram(ResistanceValues(filtered), DefaultHistogramBins),
		Summary:      MeasurementStats(filtered),
		Measurements: filtered,
	}
}
