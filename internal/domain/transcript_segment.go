package domain

import "time"

// TranscriptSegment is one stretch of transcribed speech. Segments
// for an asset are ordered by start offset; SpeakerTag is nil when
// diarization was off or the service produced none.
type TranscriptSegment struct {
	ID      string `gorm:"primaryKey;size:64" json:"id"`
	AssetID string `gorm:"column:asset_id;size:32;not null;index" json:"asset_id"`

	StartMs    int64   `gorm:"column:start_ms;not null" json:"start_ms"`
	EndMs      int64   `gorm:"column:end_ms;not null" json:"end_ms"`
	SpeakerTag *int    `gorm:"column:speaker_tag" json:"speaker_tag,omitempty"`
	Text       string  `gorm:"column:text" json:"text"`
	SlideText  string  `gorm:"column:slide_text" json:"slide_text"`
	Confidence float64 `gorm:"column:confidence" json:"confidence"`

	// Combined transcript + slide text, what the agent searches over
	// and what embeddings are computed from.
	CombinedText string `gorm:"column:combined_text" json:"combined_text"`
	WordCount    int    `gorm:"column:word_count" json:"word_count"`
	CharCount    int    `gorm:"column:char_count" json:"char_count"`

	IndexedAt time.Time `gorm:"column:indexed_at;not null" json:"indexed_at"`
}

func (TranscriptSegment) TableName() string { return "transcript_segments" }
