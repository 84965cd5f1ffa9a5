package videoindex

import (
	"gorm.io/gorm"

	"github.com/yungbote/videosearch-backend/internal/domain"
	"github.com/yungbote/videosearch-backend/internal/pkg/dbctx"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

// EmbeddingRepo owns the derived vector table. Writes are append-only:
// a (segment_id, model_version) pair is inserted once and never
// recomputed.
type EmbeddingRepo interface {
	// SegmentsMissingEmbedding returns transcript segments with
	// non-empty combined text that have no embedding under the given
	// model version, oldest ids first. limit <= 0 means no limit.
	SegmentsMissingEmbedding(dbc dbctx.Context, modelVersion string, limit int) ([]*domain.TranscriptSegment, error)

	Append(dbc dbctx.Context, rows []*domain.Embedding) error
	CountByModel(dbc dbctx.Context, modelVersion string) (int64, error)
}

type embeddingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmbeddingRepo(db *gorm.DB, baseLog *logger.Logger) EmbeddingRepo {
	return &embeddingRepo{db: db, log: baseLog.With("repo", "EmbeddingRepo")}
}

func (r *embeddingRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *embeddingRepo) SegmentsMissingEmbedding(dbc dbctx.Context, modelVersion string, limit int) ([]*domain.TranscriptSegment, error) {
	q := r.handle(dbc).WithContext(dbc.Ctx).
		Table("transcript_segments AS ts").
		Select("ts.*").
		Joins("LEFT JOIN embeddings e ON e.segment_id = ts.id AND e.model_version = ?", modelVersion).
		Where("e.segment_id IS NULL").
		Where("TRIM(ts.combined_text) <> ''").
		Order("ts.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []*domain.TranscriptSegment
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *embeddingRepo) Append(dbc dbctx.Context, rows []*domain.Embedding) error {
	if len(rows) == 0 {
		return nil
	}
	return r.handle(dbc).WithContext(dbc.Ctx).CreateInBatches(rows, insertBatchSize).Error
}

func (r *embeddingRepo) CountByModel(dbc dbctx.Context, modelVersion string) (int64, error) {
	var n int64
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.Embedding{}).
		Where("model_version = ?", modelVersion).
		Count(&n).Error
	return n, err
}
