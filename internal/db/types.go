package db

import (
	"time"

	"github.com/google/uuid"
)

// Run represents a generation run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Topic       string     `json:"topic"`
	SlideCount  int        `json:"slide_count"`
	Strategy    string     `json:"strategy"`
	Status      string     `json:"status"`
	FinalTier   *string    `json:"final_tier,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Run status constants
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusDegraded  = "degraded"
	RunStatusFailed    = "failed"
)

// ArtifactStep constants for known artifact types
const (
	StepResearch      = "research"
	StepOutline       = "outline"
	StepTheme         = "theme"
	StepDraft         = "draft"
	StepImages        = "images"
	StepAssembled     = "assembled"
	StepRefined       = "refined"
	StepQualityReport = "quality_report"
	StepDeckHTML      = "deck_html"
)
