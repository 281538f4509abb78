package domain

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Structure prefixes in NFC. Upper-casing keeps the accent, so both spellings are listed.
var structurePrefixes = []string{"PORTICO", "PÓRTICO"}

// TowerRef ties a free-text location label to its numeric tower id.
type TowerRef struct {
	RawLabel string `json:"raw_label"`
	ID       *int   `json:"normalized_id,omitempty"`
}

// NewTowerRef classifies and parses label. Structures never get an id.
func NewTowerRef(label string) TowerRef {
	ref := TowerRef{RawLabel: strings.TrimSpace(label)}
	if IsStructure(ref.RawLabel) {
		return ref
	}
	if n, ok := ExtractTowerNumber(ref.RawLabel); ok {
		ref.ID = &n
	}
	return ref
}

// Number returns the normalized id and whether the reference has one.
func (t TowerRef) Number() (int, bool) {
	if t.ID == nil {
		return 0, false
	}
	return *t.ID, true
}

// ExtractTowerNumber returns the first run of decimal digits in label as an integer.
// "Torre 019" -> 19, "T368 (km 210,5)" -> 368. Labels without digits yield false.
func ExtractTowerNumber(label string) (int, bool) {
	s := strings.TrimSpace(label)
	start := -1
	end := len(s)
	for i := 0; i < len(s); i++ {
		isDigit := s[i] >= '0' && s[i] <= '9'
		if start < 0 && isDigit {
			start = i
			continue
		}
		if start >= 0 && !isDigit {
			end = i
			break
		}
	}
	if start < 0 {
		return 0, false
	}

	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		// digit run too long for an int
		return 0, false
	}
	return n, true
}

// IsStructure reports whether label names a portico/gantry instead of a tower.
func IsStructure(label string) bool {
	upper := cases.Upper(language.BrazilianPortuguese).String(norm.NFC.String(strings.TrimSpace(label)))
	for _, prefix := range structurePrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}
