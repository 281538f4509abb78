// Package analytics computes the data series behind the outage and grounding
// dashboards. Rendering is left to clients.
package analytics

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/lookup"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Filter option values meaning "no filter".
const (
	AllConcessions = "TODAS"
	AllYears       = "TODOS"
)

// Default series sizes.
const (
	DefaultTopLines     = 10
	DefaultHeatmapLines = 20
	DefaultTopCauses    = 20
	DefaultTopTowers    = 20
)

// Filter selects outages by concession and year. Empty values select all.
type Filter struct {
	Concession string `json:"concession" form:"concession"`
	Year       int    `json:"year" form:"year"`
}

// ParseYear reads a year option. "", "TODOS" and "0" select every year.
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, AllYears) {
		return 0, nil
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 0 {
		return 0, apperrors.InvalidInput("year must be a number or " + AllYears)
	}
	return year, nil
}

func (f Filter) allConcessions() bool {
	return f.Concession == "" || f.Concession == AllConcessions
}

// Apply returns the outages matching both criteria.
func (f Filter) Apply(outages []domain.Outage) []domain.Outage {
	out := make([]domain.Outage, 0, len(outages))
	for _, o := range outages {
		if !f.allConcessions() && o.Concession != f.Concession {
			continue
		}
		if f.Year != 0 && o.Year() != f.Year {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ConcessionOptions lists AllConcessions followed by every concession, sorted.
func ConcessionOptions(outages []domain.Outage) []string {
	set := make(map[string]struct{})
	for _, o := range outages {
		set[o.Concession] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{AllConcessions}, names...)
}

// YearOptions lists AllYears followed by every known year, newest first.
func YearOptions(outages []domain.Outage) []string {
	set := make(map[int]struct{})
	for _, o := range outages {
		if y := o.Year(); y > 0 {
			set[y] = struct{}{}
		}
	}
	years := make([]int, 0, len(set))
	for y := range set {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	out := make([]string, 0, len(years)+1)
	out = append(out, AllYears)
	for _, y := range years {
		out = append(out, strconv.Itoa(y))
	}
	return out
}

// Count is one bar or slice of a chart.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// countBy counts non-empty keys, highest first, ties by label.
func countBy(outages []domain.Outage, key func(domain.Outage) string) []Count {
	counts := make(map[string]int)
	for _, o := range outages {
		if k := key(o); k != "" {
			counts[k]++
		}
	}
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func limit(counts []Count, n int) []Count {
	if n > 0 && len(counts) > n {
		return counts[:n]
	}
	return counts
}

func byCause(o domain.Outage) string { return o.Cause }
func byLine(o domain.Outage) string  { return o.LineID }
func byTower(o domain.Outage) string { return o.Tower.RawLabel }

// CauseDistribution counts outages per cause.
func CauseDistribution(outages []domain.Outage) []Count {
	return countBy(outages, byCause)
}

// TopLines returns the n lines with the most outages.
func TopLines(outages []domain.Outage, n int) []Count {
	if n <= 0 {
		n = DefaultTopLines
	}
	return limit(countBy(outages, byLine), n)
}

// TopCauses returns the n most frequent causes.
func TopCauses(outages []domain.Outage, n int) []Count {
	if n <= 0 {
		n = DefaultTopCauses
	}
	return limit(countBy(outages, byCause), n)
}

// FailuresPerTower returns the n tower labels with the most outages.
func FailuresPerTower(outages []domain.Outage, n int) []Count {
	if n <= 0 {
		n = DefaultTopTowers
	}
	return limit(countBy(outages, byTower), n)
}

// MonthLabel is the short English month name used on chart axes.
func MonthLabel(m time.Month) string {
	return m.String()[:3]
}

// MonthCount is the number of outages in one calendar month, across years.
type MonthCount struct {
	Month int    `json:"month"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MonthlySeasonality counts dated outages per calendar month. Only months
// with outages are listed, in calendar order.
func MonthlySeasonality(outages []domain.Outage) []MonthCount {
	var counts [13]int
	for _, o := range outages {
		counts[o.Month()]++
	}
	var out []MonthCount
	for m := 1; m <= 12; m++ {
		if counts[m] > 0 {
			out = append(out, MonthCount{Month: m, Label: MonthLabel(time.Month(m)), Count: counts[m]})
		}
	}
	return out
}

// Heatmap is a count matrix: one row per label and one column per month.
type Heatmap struct {
	Rows   []string `json:"rows"`
	Months []string `json:"months"`
	Cells  [][]int  `json:"cells"`
}

// heatmap pivots dated outages by key and month. Rows are sorted by label and
// restricted to keep when it is not nil. Columns are the months present in
// outages.
func heatmap(outages []domain.Outage, key func(domain.Outage) string, keep map[string]bool) Heatmap {
	var present [13]bool
	cells := make(map[string]*[13]int)
	for _, o := range outages {
		m := o.Month()
		k := key(o)
		if m == 0 || k == "" {
			continue
		}
		present[m] = true
		if keep != nil && !keep[k] {
			continue
		}
		row, ok := cells[k]
		if !ok {
			row = &[13]int{}
			cells[k] = row
		}
		row[m]++
	}

	h := Heatmap{Rows: make([]string, 0, len(cells))}
	var months []int
	for m := 1; m <= 12; m++ {
		if present[m] {
			months = append(months, m)
			h.Months = append(h.Months, MonthLabel(time.Month(m)))
		}
	}
	for k := range cells {
		h.Rows = append(h.Rows, k)
	}
	sort.Strings(h.Rows)

	h.Cells = make([][]int, len(h.Rows))
	for i, k := range h.Rows {
		h.Cells[i] = make([]int, len(months))
		for j, m := range months {
			h.Cells[i][j] = cells[k][m]
		}
	}
	return h
}

// LineMonthHeatmap pivots the topN most affected lines by month.
func LineMonthHeatmap(outages []domain.Outage, topN int) Heatmap {
	if topN <= 0 {
		topN = DefaultHeatmapLines
	}
	keep := make(map[string]bool)
	for _, c := range limit(countBy(outages, byLine), topN) {
		keep[c.Label] = true
	}
	return heatmap(outages, byLine, keep)
}

// CauseMonthHeatmap pivots every cause by month.
func CauseMonthHeatmap(outages []domain.Outage) Heatmap {
	return heatmap(outages, byCause, nil)
}

// LegendEntry explains one cause code.
type LegendEntry struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// CauseLegend describes the causes present, in order of first appearance.
func CauseLegend(outages []domain.Outage, dicts *lookup.Dictionaries) []LegendEntry {
	if dicts == nil {
		dicts = lookup.Default()
	}
	seen := make(map[string]bool)
	var out []LegendEntry
	for _, o := range outages {
		if seen[o.Cause] {
			continue
		}
		seen[o.Cause] = true
		out = append(out, LegendEntry{Code: o.Cause, Description: dicts.Describe(o.Cause)})
	}
	return out
}

// LastMonths keeps the outages dated within months of the latest outage.
// Undated outages are dropped.
func LastMonths(outages []domain.Outage, months int) []domain.Outage {
	var latest time.Time
	for _, o := range outages {
		if o.OccurredAt != nil && o.OccurredAt.After(latest) {
			latest = *o.OccurredAt
		}
	}
	if latest.IsZero() {
		return []domain.Outage{}
	}

	cutoff := latest.AddDate(0, -months, 0)
	out := make([]domain.Outage, 0, len(outages))
	for _, o := range outages {
		if o.OccurredAt != nil && !o.OccurredAt.Before(cutoff) {
			out = append(out, o)
		}
	}
	return out
}
