package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Workbook is every sheet of one spreadsheet file, in file order.
type Workbook struct {
	Name   string   `json:"name"`
	Sheets []*Table `json:"sheets"`
}

// SheetNames lists sheet names in file order.
func (w *Workbook) SheetNames() []string {
	if w == nil {
		return nil
	}
	names := make([]string, 0, len(w.Sheets))
	for _, s := range w.Sheets {
		names = append(names, s.Name)
	}
	return names
}

// Sheet finds a sheet by exact name.
func (w *Workbook) Sheet(name string) (*Table, bool) {
	if w == nil {
		return nil, false
	}
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// FindSheet tries an exact match first and then compares folded names, so
// "Ocorrencias" finds "Ocorrências".
func (w *Workbook) FindSheet(name string) (*Table, bool) {
	if s, ok := w.Sheet(name); ok {
		return s, true
	}
	if w == nil {
		return nil, false
	}
	want := FoldName(name)
	for _, s := range w.Sheets {
		if FoldName(s.Name) == want {
			return s, true
		}
	}
	return nil, false
}

// First returns the first sheet.
func (w *Workbook) First() (*Table, bool) {
	if w == nil || len(w.Sheets) == 0 {
		return nil, false
	}
	return w.Sheets[0], true
}

// FoldName lowercases s, trims it and strips diacritics.
func FoldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
