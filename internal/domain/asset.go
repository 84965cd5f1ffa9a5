package domain

import (
	"time"
)

// Asset processing states. An asset only ever moves forward through
// these; rows are never deleted, only state-transitioned.
const (
	AssetStateDiscovered = "discovered"
	AssetStateSubmitted  = "submitted"
	AssetStateAnalyzed   = "analyzed"
	AssetStateIndexed    = "indexed"
	AssetStateFailed     = "failed"
)

// Asset is the root entity: one source video tracked through the
// pipeline. ID is derived deterministically from the source path so
// re-discovery is idempotent.
type Asset struct {
	ID    string `gorm:"primaryKey;size:32" json:"id"`
	Title string `gorm:"column:title;not null" json:"title"`

	SourceURI string `gorm:"column:source_uri;uniqueIndex;not null" json:"source_uri"`
	JSONURI   string `gorm:"column:json_uri" json:"json_uri"`
	AudioURI  string `gorm:"column:audio_uri" json:"audio_uri"`

	DurationMs     int64 `gorm:"column:duration_ms" json:"duration_ms"`
	TotalSegments  int   `gorm:"column:total_segments" json:"total_segments"`
	TotalSpeakers  int   `gorm:"column:total_speakers" json:"total_speakers"`
	HasDiarization bool  `gorm:"column:has_diarization" json:"has_diarization"`
	HasOCR         bool  `gorm:"column:has_ocr" json:"has_ocr"`

	State string `gorm:"column:state;not null;default:'discovered';index" json:"state"`

	DiscoveredAt time.Time  `gorm:"column:discovered_at;not null" json:"discovered_at"`
	IndexedAt    *time.Time `gorm:"column:indexed_at" json:"indexed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Asset) TableName() string { return "assets_metadata" }
