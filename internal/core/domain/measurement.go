package domain

import "time"

// Measurement is one grounding resistance reading from the "LT Torre" sheet.
type Measurement struct {
	Tower             TowerRef   `json:"torre"`
	LineID            string     `json:"linha"`
	TowerType         string     `json:"tipo_torre,omitempty"`
	GroundingPhase    string     `json:"fase_aterramento,omitempty"`
	ResistanceOhms    *float64   `json:"resistencia,omitempty"`
	MeasuredAt        *time.Time `json:"data_medicao_resistencia,omitempty"`
	Supervisor        string     `json:"supervisor,omitempty"`
	Improvement       string     `json:"melhoria,omitempty"`
	ImprovedAt        *time.Time `json:"data_medicao,omitempty"`
	ParallelBefore    *float64   `json:"paralelo_antes,omitempty"`
	ParallelAfter     *float64   `json:"paralelo_depois,omitempty"`
	OppositeBefore    *float64   `json:"oposto_antes,omitempty"`
	OppositeAfter     *float64   `json:"oposto_depois,omitempty"`
	PhasesImplemented string     `json:"fases_implementadas,omitempty"`

	Extra Row `json:"extra,omitempty"`
}
