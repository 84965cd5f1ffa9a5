package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusTimedOut  = "timed_out"
)

// AnalysisJob is one submission attempt against the video-analysis
// service. The table is an append-only audit trail: a resubmission
// creates a new row, it never rewrites an old one.
type AnalysisJob struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID string    `gorm:"column:asset_id;size:32;not null;index" json:"asset_id"`

	OperationName string         `gorm:"column:operation_name" json:"operation_name"`
	Features      datatypes.JSON `gorm:"column:features;type:jsonb" json:"features"`

	Status      string     `gorm:"column:status;not null;default:'pending';index" json:"status"`
	SubmittedAt time.Time  `gorm:"column:submitted_at;not null" json:"submitted_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	ResultURI string `gorm:"column:result_uri" json:"result_uri"`
	Error     string `gorm:"column:error" json:"error,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (AnalysisJob) TableName() string { return "analysis_jobs" }
