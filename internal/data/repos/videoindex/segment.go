package videoindex

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/videosearch-backend/internal/domain"
	"github.com/yungbote/videosearch-backend/internal/pkg/dbctx"
	pipeerrors "github.com/yungbote/videosearch-backend/internal/pkg/errors"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

const insertBatchSize = 500

// SegmentRepo owns the per-asset analysis rows (shots, object tracks,
// transcript segments). Loads are replace-by-key: one transaction
// deletes every existing row for the asset and inserts the new set, so
// replays converge instead of duplicating.
type SegmentRepo interface {
	ReplaceForAsset(dbc dbctx.Context, assetID string,
		shots []*domain.Shot,
		tracks []*domain.ObjectTrack,
		transcripts []*domain.TranscriptSegment) error

	TranscriptsByAsset(dbc dbctx.Context, assetID string) ([]*domain.TranscriptSegment, error)
	CountForAsset(dbc dbctx.Context, assetID string) (shots, tracks, transcripts int64, err error)
}

type segmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSegmentRepo(db *gorm.DB, baseLog *logger.Logger) SegmentRepo {
	return &segmentRepo{db: db, log: baseLog.With("repo", "SegmentRepo")}
}

func (r *segmentRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *segmentRepo) ReplaceForAsset(dbc dbctx.Context, assetID string,
	shots []*domain.Shot,
	tracks []*domain.ObjectTrack,
	transcripts []*domain.TranscriptSegment) error {

	if assetID == "" {
		return fmt.Errorf("%w: empty asset id", pipeerrors.ErrLoadFailure)
	}

	replace := func(tx *gorm.DB) error {
		if err := tx.Where("asset_id = ?", assetID).Delete(&domain.Shot{}).Error; err != nil {
			return fmt.Errorf("clear shots: %w", err)
		}
		if err := tx.Where("asset_id = ?", assetID).Delete(&domain.ObjectTrack{}).Error; err != nil {
			return fmt.Errorf("clear object tracks: %w", err)
		}
		if err := tx.Where("asset_id = ?", assetID).Delete(&domain.TranscriptSegment{}).Error; err != nil {
			return fmt.Errorf("clear transcript segments: %w", err)
		}

		if len(shots) > 0 {
			if err := tx.CreateInBatches(shots, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert shots: %w", err)
			}
		}
		if len(tracks) > 0 {
			if err := tx.CreateInBatches(tracks, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert object tracks: %w", err)
			}
		}
		if len(transcripts) > 0 {
			if err := tx.CreateInBatches(transcripts, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert transcript segments: %w", err)
			}
		}
		return nil
	}

	var err error
	if dbc.Tx != nil {
		err = replace(dbc.Tx.WithContext(dbc.Ctx))
	} else {
		err = r.db.WithContext(dbc.Ctx).Transaction(replace)
	}
	if err != nil {
		return fmt.Errorf("%w: replace rows for asset %s: %v", pipeerrors.ErrLoadFailure, assetID, err)
	}

	r.log.Debug("Replaced analysis rows",
		"asset_id", assetID,
		"shots", len(shots), "tracks", len(tracks), "transcripts", len(transcripts))
	return nil
}

func (r *segmentRepo) TranscriptsByAsset(dbc dbctx.Context, assetID string) ([]*domain.TranscriptSegment, error) {
	var out []*domain.TranscriptSegment
	if assetID == "" {
		return out, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("asset_id = ?", assetID).
		Order("start_ms ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *segmentRepo) CountForAsset(dbc dbctx.Context, assetID string) (int64, int64, int64, error) {
	h := r.handle(dbc).WithContext(dbc.Ctx)

	var shots, tracks, transcripts int64
	if err := h.Model(&domain.Shot{}).Where("asset_id = ?", assetID).Count(&shots).Error; err != nil {
		return 0, 0, 0, err
	}
	if err := h.Model(&domain.ObjectTrack{}).Where("asset_id = ?", assetID).Count(&tracks).Error; err != nil {
		return 0, 0, 0, err
	}
	if err := h.Model(&domain.TranscriptSegment{}).Where("asset_id = ?", assetID).Count(&transcripts).Error; err != nil {
		return 0, 0, 0, err
	}
	return shots, tracks, transcripts, nil
}
