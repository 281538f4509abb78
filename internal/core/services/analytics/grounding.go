package analytics

import (
	"math"
	"sort"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
)

// AllLines selects every line in the grounding filters.
const AllLines = "Todas"

// DefaultHistogramBins is the bin count of the resistance histogram.
const DefaultHistogramBins = 50

// Bounds used when no measurement matches.
const (
	defaultMinResistance = 0
	defaultMaxResistance = 999
)

// MeasurementLines lists AllLines followed by every measured line, sorted.
func MeasurementLines(ms []domain.Measurement) []string {
	set := make(map[string]struct{})
	for _, m := range ms {
		if m.LineID != "" {
			set[m.LineID] = struct{}{}
		}
	}
	lines := make([]string, 0, len(set))
	for l := range set {
		lines = append(lines, l)
	}
	sort.Strings(lines)
	return append([]string{AllLines}, lines...)
}

func matchesLine(m domain.Measurement, line string) bool {
	return line == "" || line == AllLines || m.LineID == line
}

// Bounds is a resistance range in ohms.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ResistanceBounds returns the slider range for a line: the floor of the
// minimum, never below zero, and the ceiling of the maximum.
func ResistanceBounds(ms []domain.Measurement, line string) Bounds {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, m := range ms {
		if !matchesLine(m, line) || m.ResistanceOhms == nil {
			continue
		}
		lo = math.Min(lo, *m.ResistanceOhms)
		hi = math.Max(hi, *m.ResistanceOhms)
	}
	if math.IsInf(lo, 1) {
		return Bounds{Min: defaultMinResistance, Max: defaultMaxResistance}
	}
	return Bounds{Min: math.Max(0, math.Floor(lo)), Max: math.Ceil(hi)}
}

// FilterMeasurements keeps the measurements of line with a resistance inside
// [min, max]. Measurements without a value never match.
func FilterMeasurements(ms []domain.Measurement, line string, min, max float64) []domain.Measurement {
	out := make([]domain.Measurement, 0, len(ms))
	for _, m := range ms {
		if !matchesLine(m, line) || m.ResistanceOhms == nil {
			continue
		}
		if v := *m.ResistanceOhms; v >= min && v <= max {
			out = append(out, m)
		}
	}
	return out
}

// ResistanceValues extracts the known resistance values.
func ResistanceValues(ms []domain.Measurement) []float64 {
	out := make([]float64, 0, len(ms))
	for _, m := range ms {
		if m.ResistanceOhms != nil {
			out = append(out, *m.ResistanceOhms)
		}
	}
	return out
}

// Bin is one histogram bar covering [Lower, Upper). The last bin includes Upper.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// ResistanceHistogram splits values into equal-width bins between their
// minimum and maximum.
func ResistanceHistogram(values []float64, bins int) []Bin {
	values = finite(values)
	if len(values) == 0 {
		return []Bin{}
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i < 0 {
			i = 0
		}
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// finite drops NaN and infinite values
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// MeasurementSummary is the headline numbers of a grounding dataset.
type MeasurementSummary struct {
	Total             int      `json:"total"`
	MeanResistance    *float64 `json:"mean_resistance,omitempty"`
	MostFrequentTower string   `json:"most_frequent_tower,omitempty"`
}

// MeasurementStats counts measurements, averages the known resistances and
// finds the most measured tower label. Ties pick the smallest label.
func MeasurementStats(ms []domain.Measurement) MeasurementSummary {
	summary := MeasurementSummary{Total: len(ms)}

	values := ResistanceValues(ms)
	if len(values) > 0 {
		var sum float64
		for _, v := range values {
			sum += v
		}
		mean := sum / float64(len(values))
		summary.MeanResistance = &mean
	}

	counts := make(map[string]int)
	for _, m := range ms {
		if m.Tower.RawLabel != "" {
			counts[m.Tower.RawLabel]++
		}
	}
	best := 0
	for label, n := range counts {
		if n > best || (n == best && label < summary.MostFrequentTower) {
			best = n
			summary.MostFrequentTower = label
		}
	}
	return summary
}
