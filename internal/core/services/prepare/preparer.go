// Package prepare turns raw spreadsheet tables into typed outage and
// measurement records: header aliasing, tower extraction, locale numbers,
// dates and dictionary canonicalization.
package prepare

import (
	"log/slog"
	"strings"
	"time"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/lookup"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Dataset names used in errors, logs and metrics.
const (
	DatasetOutages    = "outages"
	DatasetResistance = "resistance"
)

// Reasons a row is dropped.
const (
	DropStructure          = "structure"
	DropNoTower            = "no_tower"
	DropNoDate             = "no_date"
	DropNoConcession       = "no_concession"
	DropExcludedConcession = "excluded_concession"
)

// excludedConcession marks rows that belong to another operator.
const excludedConcession = "SUTIÃ"

// Stats summarizes one preparation pass.
type Stats struct {
	Dataset string         `json:"dataset"`
	Input   int            `json:"input"`
	Kept    int            `json:"kept"`
	Dropped map[string]int `json:"dropped"`
}

func newStats(dataset string, input int) Stats {
	return Stats{Dataset: dataset, Input: input, Dropped: make(map[string]int)}
}

func (s *Stats) drop(reason string) {
	s.Dropped[reason]++
}

// Preparer holds the dictionaries shared by every preparation call.
type Preparer struct {
	dicts  *lookup.Dictionaries
	logger *slog.Logger
}

// NewPreparer creates a preparer. A nil dicts uses lookup.Default().
func NewPreparer(dicts *lookup.Dictionaries, logger *slog.Logger) *Preparer {
	if dicts == nil {
		dicts = lookup.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Preparer{dicts: dicts, logger: logger}
}

// PrepareOutages prepares an outage sheet for tower analysis.
func PrepareOutages(table *domain.Table, dicts *lookup.Dictionaries) ([]domain.Outage, error) {
	out, _, err := NewPreparer(dicts, nil).Outages(table)
	return out, err
}

// PrepareResistance prepares a grounding resistance sheet.
func PrepareResistance(table *domain.Table, dicts *lookup.Dictionaries) ([]domain.Measurement, error) {
	out, _, err := NewPreparer(dicts, nil).Resistance(table)
	return out, err
}

// CleanOutages prepares an outage sheet for the analytics views, where the
// tower is optional.
func CleanOutages(table *domain.Table, dicts *lookup.Dictionaries) ([]domain.Outage, error) {
	out, _, err := NewPreparer(dicts, nil).Clean(table)
	return out, err
}

// Outages keeps only rows that name a numbered tower. When the sheet has a
// date column, rows without a valid date are dropped as well.
func (p *Preparer) Outages(table *domain.Table) ([]domain.Outage, Stats, error) {
	stats := newStats(DatasetOutages, rowCount(table))
	if table.IsEmpty() {
		return []domain.Outage{}, stats, nil
	}

	h := resolveHeaders(table.Columns, outageAliases)
	if missing := h.missing(FieldTower, FieldLine); len(missing) > 0 {
		return nil, stats, apperrors.MissingColumns(DatasetOutages, missing...)
	}

	out := make([]domain.Outage, 0, len(table.Rows))
	for _, row := range table.Rows {
		o := p.outage(row, h)

		label := o.Tower.RawLabel
		if domain.IsStructure(label) {
			stats.drop(DropStructure)
			continue
		}
		if o.Tower.ID == nil {
			stats.drop(DropNoTower)
			continue
		}
		if h.has(FieldDate) && o.Year() <= 0 {
			stats.drop(DropNoDate)
			continue
		}
		out = append(out, o)
	}

	stats.Kept = len(out)
	p.logStats(table, stats)
	return out, stats, nil
}

// Clean applies the concession filters used by the analytics views. Rows
// without a tower are kept.
func (p *Preparer) Clean(table *domain.Table) ([]domain.Outage, Stats, error) {
	stats := newStats(DatasetOutages, rowCount(table))
	if table.IsEmpty() {
		return []domain.Outage{}, stats, nil
	}

	h := resolveHeaders(table.Columns, outageAliases)
	if missing := h.missing(FieldConcession, FieldCause, FieldLine); len(missing) > 0 {
		return nil, stats, apperrors.MissingColumns(DatasetOutages, missing...)
	}

	out := make([]domain.Outage, 0, len(table.Rows))
	for _, row := range table.Rows {
		o := p.outage(row, h)
		if o.Concession == "" {
			stats.drop(DropNoConcession)
			continue
		}
		if strings.Contains(strings.ToUpper(o.Concession), excludedConcession) {
			stats.drop(DropExcludedConcession)
			continue
		}
		if h.has(FieldDate) && o.Year() <= 0 {
			stats.drop(DropNoDate)
			continue
		}
		out = append(out, o)
	}

	stats.Kept = len(out)
	p.logStats(table, stats)
	return out, stats, nil
}

// Resistance keeps only rows that name a numbered tower. Absent resistance
// values are kept and ignored later by the joiner.
func (p *Preparer) Resistance(table *domain.Table) ([]domain.Measurement, Stats, error) {
	stats := newStats(DatasetResistance, rowCount(table))
	if table.IsEmpty() {
		return []domain.Measurement{}, stats, nil
	}

	h := resolveHeaders(table.Columns, resistanceAliases)
	if !h.has(FieldResistance) {
		for _, col := range table.Columns {
			if _, used := h.byHeader[col]; used {
				continue
			}
			if strings.Contains(strings.ToLower(col), "resist") {
				h.bind(FieldResistance, col)
				break
			}
		}
	}
	if missing := h.missing(FieldTower, FieldResistance); len(missing) > 0 {
		return nil, stats, apperrors.MissingColumns(DatasetResistance, missing...)
	}

	out := make([]domain.Measurement, 0, len(table.Rows))
	for _, row := range table.Rows {
		m := p.measurement(row, h)
		if domain.IsStructure(m.Tower.RawLabel) {
			stats.drop(DropStructure)
			continue
		}
		if m.Tower.ID == nil {
			stats.drop(DropNoTower)
			continue
		}
		out = append(out, m)
	}

	stats.Kept = len(out)
	p.logStats(table, stats)
	return out, stats, nil
}

func (p *Preparer) outage(row domain.Row, h headers) domain.Outage {
	get := fieldGetter(row, h)

	o := domain.Outage{
		Concession: get(FieldConcession),
		Equipment:  get(FieldEquipment),
		LineID:     p.dicts.Lines.Canonicalize(get(FieldLine)),
		Phase:      p.dicts.Phases.Canonicalize(get(FieldPhase)),
		Cause:      p.dicts.Causes.Canonicalize(get(FieldCause)),
		Problem:    get(FieldProblem),
		Tower:      domain.NewTowerRef(get(FieldTower)),
		OccurredAt: optionalDate(get(FieldDate)),
		KmReal:     optionalFloat(get(FieldKmReal)),
		Extra:      extras(row, h, outageStructFields),
	}
	if clock, ok := ParseClock(get(FieldTime)); ok {
		o.Time = clock
	} else {
		o.Time = get(FieldTime)
	}
	return o
}

func (p *Preparer) measurement(row domain.Row, h headers) domain.Measurement {
	get := fieldGetter(row, h)

	return domain.Measurement{
		Tower:             domain.NewTowerRef(get(FieldTower)),
		LineID:            get(FieldMeasLine),
		TowerType:         get(FieldTowerType),
		GroundingPhase:    get(FieldGroundingPhase),
		ResistanceOhms:    optionalFloat(get(FieldResistance)),
		MeasuredAt:        optionalDate(get(FieldMeasuredAt)),
		Supervisor:        get(FieldSupervisor),
		Improvement:       get(FieldImprovement),
		ImprovedAt:        optionalDate(get(FieldImprovedAt)),
		ParallelBefore:    optionalFloat(get(FieldParallelBefore)),
		ParallelAfter:     optionalFloat(get(FieldParallelAfter)),
		OppositeBefore:    optionalFloat(get(FieldOppositeBefore)),
		OppositeAfter:     optionalFloat(get(FieldOppositeAfter)),
		PhasesImplemented: get(FieldPhasesImplemented),
		Extra:             extras(row, h, measurementStructFields),
	}
}

var outageStructFields = map[string]bool{
	FieldConcession: true, FieldEquipment: true, FieldLine: true, FieldPhase: true,
	FieldCause: true, FieldProblem: true, FieldTower: true, FieldDate: true,
	FieldKmReal: true, FieldTime: true,
}

var measurementStructFields = map[string]bool{
	FieldTower: true, FieldMeasLine: true, FieldTowerType: true, FieldGroundingPhase: true,
	FieldResistance: true, FieldMeasuredAt: true, FieldSupervisor: true, FieldImprovement: true,
	FieldImprovedAt: true, FieldParallelBefore: true, FieldParallelAfter: true,
	FieldOppositeBefore: true, FieldOppositeAfter: true, FieldPhasesImplemented: true,
}

func fieldGetter(row domain.Row, h headers) func(string) string {
	return func(field string) string {
		header, ok := h.byField[field]
		if !ok {
			return ""
		}
		return row.Get(header)
	}
}

// extras keeps every cell that has no struct field: aliased columns under
// their canonical name and unknown columns under the original header.
func extras(row domain.Row, h headers, structFields map[string]bool) domain.Row {
	var out domain.Row
	for header, value := range row {
		key := header
		if field, ok := h.byHeader[header]; ok {
			if structFields[field] {
				continue
			}
			key = field
		}
		if out == nil {
			out = make(domain.Row)
		}
		out[key] = value
	}
	return out
}

func optionalFloat(s string) *float64 {
	f, ok := ParseLocaleFloat(s)
	if !ok {
		return nil
	}
	return &f
}

func optionalDate(s string) *time.Time {
	t, ok := ParseDate(s)
	if !ok {
		return nil
	}
	return &t
}

func rowCount(table *domain.Table) int {
	if table == nil {
		return 0
	}
	return len(table.Rows)
}

func (p *Preparer) logStats(table *domain.Table, stats Stats) {
	p.logger.Debug("dataset prepared",
		slog.String("dataset", stats.Dataset),
		slog.String("sheet", table.Name),
		slog.Int("input_rows", stats.Input),
		slog.Int("kept_rows", stats.Kept),
		slog.Any("dropped", stats.Dropped))
}
