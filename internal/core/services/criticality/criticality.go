// Package criticality joins outage counts with grounding resistance readings
// to rank towers for maintenance.
package criticality

import (
	"sort"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
)

// DefaultTopN is the size of the critical towers ranking.
const DefaultTopN = 20

type towerLine struct {
	tower int
	line  string
}

type resistanceAgg struct {
	sum         float64
	count       int
	line        string
	improvement string
	seen        bool
}

// Join counts outages per (tower, line), averages resistance per tower and
// inner-joins both on the tower id. Towers missing from either side, or with
// no resistance value at all, produce no row. The result is ordered by tower
// then line.
func Join(outages []domain.Outage, measurements []domain.Measurement) []domain.CriticalityScore {
	freq := make(map[towerLine]int)
	for _, o := range outages {
		id, ok := o.Tower.Number()
		if !ok {
			continue
		}
		freq[towerLine{id, o.LineID}]++
	}

	res := make(map[int]*resistanceAgg)
	for _, m := range measurements {
		id, ok := m.Tower.Number()
		if !ok {
			continue
		}
		agg, exists := res[id]
		if !exists {
			agg = &resistanceAgg{}
			res[id] = agg
		}
		if !agg.seen {
			agg.line = m.LineID
			agg.improvement = m.Improvement
			agg.seen = true
		}
		if m.ResistanceOhms != nil {
			agg.sum += *m.ResistanceOhms
			agg.count++
		}
	}

	scores := make([]domain.CriticalityScore, 0, len(freq))
	for key, count := range freq {
		agg, ok := res[key.tower]
		if !ok || agg.count == 0 {
			continue
		}
		mean := agg.sum / float64(agg.count)
		scores = append(scores, domain.CriticalityScore{
			TowerID:          key.tower,
			LineID:           key.line,
			FailureFrequency: count,
			MeanResistance:   mean,
			Score:            float64(count) * mean,
			MeasurementLine:  agg.line,
			Improvement:      agg.improvement,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].TowerID != scores[j].TowerID {
			return scores[i].TowerID < scores[j].TowerID
		}
		return scores[i].LineID < scores[j].LineID
	})
	return scores
}

// TopN returns the n highest scores. Ties keep their input order. A
// non-positive n uses DefaultTopN.
func TopN(scores []domain.CriticalityScore, n int) []domain.CriticalityScore {
	if n <= 0 {
		n = DefaultTopN
	}
	ranked := make([]domain.CriticalityScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// LineTotal is the number of joined outages on one line.
type LineTotal struct {
	LineID  string `json:"line_id"`
	Outages int    `json:"outages"`
}

// LineTotals sums failure frequencies per line, most affected first.
func LineTotals(scores []domain.CriticalityScore) []LineTotal {
	totals := make(map[string]int)
	for _, s := range scores {
		totals[s.LineID] += s.FailureFrequency
	}

	out := make([]LineTotal, 0, len(totals))
	for line, n := range totals {
		out = append(out, LineTotal{LineID: line, Outages: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Outages != out[j].Outages {
			return out[i].Outages > out[j].Outages
		}
		return out[i].LineID < out[j].LineID
	})
	return out
}
