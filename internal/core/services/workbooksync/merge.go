// Package workbooksync merges a base outage sheet into an update workbook:
// union of rows, date cleanup, key-based deduplication and dictionary
// canonicalization.
package workbooksync

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/lookup"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/prepare"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Column names the merge reads or writes.
const (
	ColumnConcession = "Concessão"
	ColumnDate       = "Data"
	ColumnLine       = "FT"
	ColumnTime       = "Hora"
	ColumnYear       = "Ano"
	ColumnCause      = "Causa"
	ColumnPhase      = "Fase"
	ColumnTower      = "Torre"
)

// TargetSheet is the update sheet that receives the merged rows.
const TargetSheet = "Ocorrencia"

const dataset = "sync"

// Stats summarizes one merge.
type Stats struct {
	BaseRows    int `json:"base_rows"`
	UpdateRows  int `json:"update_rows"`
	InvalidDate int `json:"invalid_date"`
	Duplicates  int `json:"duplicates"`
	Rows        int `json:"rows"`
}

// Merge concatenates base and target rows and cleans the result. Rows with
// an unparseable Data are dropped, duplicates on Concessão, Data, FT (and
// Hora when present) keep the first occurrence, and the dictionaries run
// after deduplication.
func Merge(base, target *domain.Table, dicts *lookup.Dictionaries) (*domain.Table, Stats, error) {
	if dicts == nil {
		dicts = lookup.Default()
	}

	stats := Stats{BaseRows: rowsOf(base), UpdateRows: rowsOf(target)}
	columns := unionColumns(base, target)
	merged := &domain.Table{Name: TargetSheet, Columns: columns}
	if target != nil && target.Name != "" {
		merged.Name = target.Name
	}

	if missing := missingKeys(columns); len(missing) > 0 {
		return nil, stats, apperrors.MissingColumns(dataset, missing...)
	}

	hasTime := contains(columns, ColumnTime)
	if !contains(columns, ColumnYear) {
		merged.Columns = append(merged.Columns, ColumnYear)
	}

	seen := make(map[string]struct{})
	for _, src := range []*domain.Table{base, target} {
		if src == nil {
			continue
		}
		for _, raw := range src.Rows {
			row := raw.Clone()

			date, ok := prepare.ParseDate(row.Get(ColumnDate))
			if !ok || date.Year() <= 0 {
				stats.InvalidDate++
				continue
			}
			row[ColumnYear] = strconv.Itoa(date.Year())

			if hasTime {
				clock, _ := prepare.ParseClock(row.Get(ColumnTime))
				row[ColumnTime] = clock
			}

			key := dedupKey(row, date, hasTime)
			if _, dup := seen[key]; dup {
				stats.Duplicates++
				continue
			}
			seen[key] = struct{}{}

			canonicalize(row, dicts)
			row[ColumnDate] = date.Format(prepare.DateFormat)
			merged.Rows = append(merged.Rows, row)
		}
	}

	stats.Rows = len(merged.Rows)
	return merged, stats, nil
}

// Sync merges base into the target sheet of update and returns the output
// workbook. The target is TargetSheet when present (accents and case are
// ignored), else the first sheet. Other sheets are copied unchanged and
// keep their order.
func Sync(base *domain.Table, update *domain.Workbook, dicts *lookup.Dictionaries, logger *slog.Logger) (*domain.Workbook, Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}

	target, ok := update.FindSheet(TargetSheet)
	if !ok {
		target, ok = update.First()
	}
	if !ok {
		return nil, Stats{}, apperrors.MissingSheet(TargetSheet)
	}

	merged, stats, err := Merge(base, target, dicts)
	if err != nil {
		return nil, stats, err
	}

	out := &domain.Workbook{Name: update.Name, Sheets: make([]*domain.Table, 0, len(update.Sheets))}
	for _, sheet := range update.Sheets {
		if sheet == target {
			out.Sheets = append(out.Sheets, merged)
			continue
		}
		out.Sheets = append(out.Sheets, sheet)
	}

	logger.Info("workbooks synchronized",
		slog.String("target_sheet", merged.Name),
		slog.Int("base_rows", stats.BaseRows),
		slog.Int("update_rows", stats.UpdateRows),
		slog.Int("invalid_date", stats.InvalidDate),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("rows", stats.Rows))

	return out, stats, nil
}

func dedupKey(row domain.Row, date time.Time, hasTime bool) string {
	parts := []string{
		row.Get(ColumnConcession),
		date.Format(time.RFC3339),
		row.Get(ColumnLine),
	}
	if hasTime {
		parts = append(parts, row.Get(ColumnTime))
	}
	return strings.Join(parts, "\x1f")
}

func canonicalize(row domain.Row, dicts *lookup.Dictionaries) {
	apply := func(column string, table *lookup.Table) {
		if v, ok := row[column]; ok {
			row[column] = table.Canonicalize(v)
		}
	}
	apply(ColumnCause, dicts.Causes)
	apply(ColumnLine, dicts.Lines)
	apply(ColumnPhase, dicts.Phases)
	apply(ColumnTower, dicts.Towers)
}

func unionColumns(tables ...*domain.Table) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func missingKeys(columns []string) []string {
	var missing []string
	for _, c := range []string{ColumnConcession, ColumnDate, ColumnLine} {
		if !contains(columns, c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func contains(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

func rowsOf(t *domain.Table) int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
