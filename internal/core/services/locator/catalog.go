package locator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/outage-analytics-service/internal/pkg/errors"
)

// Sheet and column names of the locator workbook.
const (
	SheetCatalog = "DADOS"
	SheetLengths = "KM_LT"
	SheetFigures = "Torres JBJU"

	ColumnConcessions = "CONCESSÕES"
	ColumnLine        = "LT"

	// TerminalNotFound is reported when a line has no KM_LT entry.
	TerminalNotFound = "Não Encontrado"
)

type catalogEntry struct {
	concession string
	line       string
}

// LineCatalog lists the lines of each concession.
type LineCatalog struct {
	entries []catalogEntry
}

// ReadLineCatalog reads the DADOS sheet.
func ReadLineCatalog(sheet *domain.Table) (*LineCatalog, error) {
	if sheet == nil {
		return nil, apperrors.MissingSheet(SheetCatalog)
	}
	var missing []string
	for _, col := range []string{ColumnConcessions, ColumnLine} {
		if !sheet.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingColumns(SheetCatalog, missing...)
	}

	c := &LineCatalog{entries: make([]catalogEntry, 0, len(sheet.Rows))}
	for _, row := range sheet.Rows {
		c.entries = append(c.entries, catalogEntry{
			concession: row.Get(ColumnConcessions),
			line:       row.Get(ColumnLine),
		})
	}
	return c, nil
}

// Concessions returns the distinct non-empty concessions, sorted.
func (c *LineCatalog) Concessions() []string {
	set := make(map[string]struct{})
	for _, e := range c.entries {
		if e.concession != "" {
			set[e.concession] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Lines returns the distinct non-empty lines of a concession, sorted.
func (c *LineCatalog) Lines(concession string) []string {
	set := make(map[string]struct{})
	for _, e := range c.entries {
		if e.concession == concession && e.line != "" {
			set[e.line] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LineLength is the KM_LT entry of a line.
type LineLength struct {
	LengthKm  *float64 `json:"length_km,omitempty"`
	TerminalA string   `json:"terminal_a"`
}

// LineLengths indexes KM_LT by line name.
type LineLengths struct {
	byLine map[string]LineLength
}

// ReadLineLengths reads KM_LT by position: line in column A, length in B and
// the reference terminal in C. A missing or narrower sheet yields an empty index.
func ReadLineLengths(sheet *domain.Table) *LineLengths {
	l := &LineLengths{byLine: make(map[string]LineLength)}
	if sheet == nil || len(sheet.Columns) < 3 {
		return l
	}
	lineCol, kmCol, terminalCol := sheet.Columns[0], sheet.Columns[1], sheet.Columns[2]

	for _, row := range sheet.Rows {
		line := row.Get(lineCol)
		if _, seen := l.byLine[line]; seen {
			continue
		}
		entry := LineLength{TerminalA: row.Get(terminalCol)}
		if km, err := strconv.ParseFloat(row.Get(kmCol), 64); err == nil {
			entry.LengthKm = &km
		}
		l.byLine[line] = entry
	}
	return l
}

// Lookup returns the entry for line, defaulting the terminal to TerminalNotFound.
func (l *LineLengths) Lookup(line string) LineLength {
	if l != nil {
		if entry, ok := l.byLine[strings.TrimSpace(line)]; ok {
			return entry
		}
	}
	return LineLength{TerminalA: TerminalNotFound}
}

// TowerFigure describes a tower model: its figure reference, real phase
// sequence and a picture path.
type TowerFigure struct {
	Figure    string `json:"figure"`
	Sequence  string `json:"sequence"`
	ImagePath string `json:"image_path,omitempty"`
}

// TowerFigures maps a tower code, as written in the phases column, to its figure.
type TowerFigures map[string]TowerFigure

// ReadTowerFigures reads "Torres JBJU": code in column A, figure in B,
// sequence in C and image path in E.
func ReadTowerFigures(sheet *domain.Table) (TowerFigures, error) {
	figures := make(TowerFigures)
	if sheet == nil {
		return figures, nil
	}
	if len(sheet.Columns) < 5 {
		return figures, apperrors.InvalidInput(
			fmt.Sprintf("sheet %q needs at least 5 columns, found %d", SheetFigures, len(sheet.Columns)))
	}

	codeCol, figureCol, seqCol, imageCol := sheet.Columns[0], sheet.Columns[1], sheet.Columns[2], sheet.Columns[4]
	for _, row := range sheet.Rows {
		figures[row.Get(codeCol)] = TowerFigure{
			Figure:    row.Get(figureCol),
			Sequence:  strings.ToUpper(row.Get(seqCol)),
			ImagePath: row.Get(imageCol),
		}
	}
	return figures, nil
}
