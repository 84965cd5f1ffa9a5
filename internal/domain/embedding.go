package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Embedding is the derived vector for one transcript segment under
// one model version. Rows are append-only per version: a segment has
// at most one embedding per model version and it is never recomputed,
// so versions can coexist for comparison.
type Embedding struct {
	SegmentID    string `gorm:"column:segment_id;primaryKey;size:64" json:"segment_id"`
	ModelVersion string `gorm:"column:model_version;primaryKey;size:128" json:"model_version"`

	Vector datatypes.JSON `gorm:"column:vector;type:jsonb;not null" json:"vector"`
	Dim    int            `gorm:"column:dim;not null" json:"dim"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Embedding) TableName() string { return "embeddings" }
