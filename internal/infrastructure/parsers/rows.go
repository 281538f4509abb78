package parsers

import (
	"fmt"
	"strings"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/domain"
)

// buildTable turns raw grid rows (header first) into a named table.
// Blank headers become "Unnamed: <i>" and repeated ones get a ".<n>" suffix,
// so every column keeps a unique name and its position.
func buildTable(name string, rows [][]string, config *ParserConfig) (*domain.Table, int, int) {
	table := &domain.Table{Name: name, Columns: []string{}, Rows: []domain.Row{}}
	if len(rows) == 0 {
		return table, 0, 0
	}

	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	table.Columns = headerNames(rows[0], width)

	total, skipped := 0, 0
	for _, raw := range rows[1:] {
		total++
		if config.SkipEmptyRows && isEmptyRow(raw) {
			skipped++
			continue
		}

		row := make(domain.Row, len(table.Columns))
		for i, col := range table.Columns {
			value := ""
			if i < len(raw) {
				value = raw[i]
			}
			if config.TrimWhitespace {
				value = strings.TrimSpace(value)
			}
			row[col] = value
		}
		table.Rows = append(table.Rows, row)
	}

	return table, total, skipped
}

func headerNames(header []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

// isEmptyRow checks if a row contains only empty strings
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
