package domain

import "time"

// Outage is one forced shutdown record from the "Ocorrências" sheet.
type Outage struct {
	Concession string     `json:"concessao"`
	Equipment  string     `json:"equipamento"`
	LineID     string     `json:"ft"`
	Phase      string     `json:"fase"`
	Cause      string     `json:"causa"`
	Problem    string     `json:"problema,omitempty"`
	OccurredAt *time.Time `json:"data,omitempty"`
	Time       string     `json:"horario,omitempty"`
	Tower      TowerRef   `json:"torre"`
	KmReal     *float64   `json:"km_real,omitempty"`

	// Columns without a canonical name, kept verbatim.
	Extra Row `json:"extra,omitempty"`
}

// Year returns the outage year, or 0 when the date is unknown.
func (o Outage) Year() int {
	if o.OccurredAt == nil {
		return 0
	}
	return o.OccurredAt.Year()
}

// Month returns the outage month, or 0 when the date is unknown.
func (o Outage) Month() time.Month {
	if o.OccurredAt == nil {
		return 0
	}
	return o.OccurredAt.Month()
}
