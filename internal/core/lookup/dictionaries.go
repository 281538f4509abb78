package lookup

import "sync"

// UnknownCauseDescription is reported for cause codes missing from the legend.
const UnknownCauseDescription = "Descrição não cadastrada"

// Dictionaries bundles every lookup table used by the preparers, the sync
// merge and the analytics legend. Build it once and share the pointer.
type Dictionaries struct {
	Causes *Table
	Lines  *Table
	Phases *Table
	Towers *Table
	Legend *Table
}

var (
	defaultOnce sync.Once
	defaultDict *Dictionaries
)

// Default returns the built-in dictionaries.
func Default() *Dictionaries {
	defaultOnce.Do(func() {
		defaultDict = &Dictionaries{
			Causes: NewTable("causes", defaultCauses),
			Lines:  NewTable("lines", defaultLines),
			Phases: NewTable("phases", defaultPhases),
			Towers: NewTable("towers", defaultTowers),
			Legend: NewTable("legend", defaultLegend),
		}
	})
	return defaultDict
}

// Describe returns the legend text for a cause code.
func (d *Dictionaries) Describe(code string) string {
	if desc, ok := d.Legend.Lookup(code); ok {
		return desc
	}
	return UnknownCauseDescription
}
