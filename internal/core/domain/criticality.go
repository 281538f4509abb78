package domain

// CriticalityScore ranks a (tower, line) pair for grounding maintenance.
// It is derived on every request and never treated as authoritative.
type CriticalityScore struct {
	TowerID          int     `json:"normalized_id" csv:"torre"`
	LineID           string  `json:"line_id" csv:"ft"`
	FailureFrequency int     `json:"failure_frequency" csv:"frequencia_falhas"`
	MeanResistance   float64 `json:"mean_resistance" csv:"resistencia_media"`
	Score            float64 `json:"score" csv:"score_criticidade"`

	// Taken from the first measurement of the tower.
	MeasurementLine string `json:"measurement_line,omitempty" csv:"linha_transmissao,omitempty"`
	Improvement     string `json:"improvement,omitempty" csv:"melhoria,omitempty"`
}
