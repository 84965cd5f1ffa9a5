package domain

import "time"

// Shot is one camera shot detected in an asset. All offsets are
// milliseconds from the start of the video.
type Shot struct {
	ID      string `gorm:"primaryKey;size:64" json:"id"`
	AssetID string `gorm:"column:asset_id;size:32;not null;index" json:"asset_id"`

	StartMs    int64   `gorm:"column:start_ms;not null" json:"start_ms"`
	EndMs      int64   `gorm:"column:end_ms;not null" json:"end_ms"`
	Confidence float64 `gorm:"column:confidence" json:"confidence"`

	IndexedAt time.Time `gorm:"column:indexed_at;not null" json:"indexed_at"`
}

func (Shot) TableName() string { return "shots" }
