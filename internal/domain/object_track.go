package domain

import (
	"time"

	"gorm.io/datatypes"
)

// BoundingFrame is one timestamped normalized bounding box of a
// tracked object; a track carries an ordered sequence of them in its
// Frames JSON column.
type BoundingFrame struct {
	OffsetMs int64   `json:"offset_ms"`
	Left     float64 `json:"left"`
	Top      float64 `json:"top"`
	Right    float64 `json:"right"`
	Bottom   float64 `json:"bottom"`
}

// ObjectTrack is one detected object followed across a time range.
type ObjectTrack struct {
	ID      string `gorm:"primaryKey;size:64" json:"id"`
	AssetID string `gorm:"column:asset_id;size:32;not null;index" json:"asset_id"`

	Label      string  `gorm:"column:label;not null;index" json:"label"`
	Confidence float64 `gorm:"column:confidence" json:"confidence"`

	StartMs int64          `gorm:"column:start_ms;not null" json:"start_ms"`
	EndMs   int64          `gorm:"column:end_ms;not null" json:"end_ms"`
	Frames  datatypes.JSON `gorm:"column:frames;type:jsonb" json:"frames"`

	IndexedAt time.Time `gorm:"column:indexed_at;not null" json:"indexed_at"`
}

func (ObjectTrack) TableName() string { return "object_tracks" }
