package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnalysisRun records one criticality computation over a pair of workbooks
type AnalysisRun struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OutagesSource    string     `gorm:"type:varchar(500);not null" json:"outages_source"`
	OutagesHash      string     `gorm:"type:varchar(64);not null;index:idx_runs_sources" json:"outages_hash"`
	ResistanceSource string     `gorm:"type:varchar(500);not null" json:"resistance_source"`
	ResistanceHash   string     `gorm:"type:varchar(64);not null;index:idx_runs_sources" json:"resistance_hash"`
	Status           string     `gorm:"type:varchar(50);not null;default:'running'" json:"status"`
	OutageRows       int        `gorm:"default:0" json:"outage_rows"`
	MeasurementRows  int        `gorm:"default:0" json:"measurement_rows"`
	ScoredRows       int        `gorm:"default:0" json:"scored_rows"`
	ErrorMessage     string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	// Relations
	Scores []ScoreSnapshot `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"scores,omitempty"`
}

// TableName specifies the table name for GORM
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// BeforeCreate GORM hook - called before creating a record
func (r *AnalysisRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ValidRunStatuses returns list of valid run statuses
func ValidRunStatuses() []string {
	return []string{RunStatusRunning, RunStatusCompleted, RunStatusFailed}
}

// IsValidRunStatus checks if a status is valid
func IsValidRunStatus(status string) bool {
	for _, s := range ValidRunStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// ScoreSnapshot stores one ranked row of a completed run
type ScoreSnapshot struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID            uuid.UUID `gorm:"type:uuid;not null;index:idx_snapshots_run_rank" json:"run_id"`
	Rank             int       `gorm:"not null;index:idx_snapshots_run_rank" json:"rank"`
	TowerID          int       `gorm:"not null;index:idx_snapshots_tower" json:"tower_id"`
	LineID           string    `gorm:"type:varchar(255);not null" json:"line_id"`
	FailureFrequency int       `gorm:"not null" json:"failure_frequency"`
	MeanResistance   float64   `gorm:"not null" json:"mean_resistance"`
	Score            float64   `gorm:"not null" json:"score"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Run *AnalysisRun `gorm:"foreignKey:RunID" json:"run,omitempty"`
}

// TableName specifies the table name for GORM
func (ScoreSnapshot) TableName() string {
	return "score_snapshots"
}

// BeforeCreate GORM hook
func (s *ScoreSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// NewScoreSnapshots converts ranked scores into rows for runID, rank starting at 1.
func NewScoreSnapshots(runID uuid.UUID, scores []CriticalityScore) []ScoreSnapshot {
	out := make([]ScoreSnapshot, 0, len(scores))
	for i, s := range scores {
		out = append(out, ScoreSnapshot{
			RunID:            runID,
			Rank:             i + 1,
			TowerID:          s.TowerID,
			LineID:           s.LineID,
			FailureFrequency: s.FailureFrequency,
			MeanResistance:   s.MeanResistance,
			Score:            s.Score,
		})
	}
	return out
}
