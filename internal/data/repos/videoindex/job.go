package videoindex

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/videosearch-backend/internal/domain"
	"github.com/yungbote/videosearch-backend/internal/pkg/dbctx"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

// JobRepo records analysis submission attempts. Rows are append-only
// across attempts: a resubmission creates a new row; only the
// lifecycle of a single attempt (pending -> running -> terminal) is
// updated in place.
type JobRepo interface {
	Create(dbc dbctx.Context, row *domain.AnalysisJob) error
	MarkRunning(dbc dbctx.Context, id uuid.UUID, operationName string) error
	MarkTerminal(dbc dbctx.Context, id uuid.UUID, status, resultURI, errMsg string) error
	GetByAssetID(dbc dbctx.Context, assetID string) ([]*domain.AnalysisJob, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{db: db, log: baseLog.With("repo", "JobRepo")}
}

func (r *jobRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *jobRepo) Create(dbc dbctx.Context, row *domain.AnalysisJob) error {
	if row == nil {
		return nil
	}
	return r.handle(dbc).WithContext(dbc.Ctx).Create(row).Error
}

func (r *jobRepo) MarkRunning(dbc dbctx.Context, id uuid.UUID, operationName string) error {
	if id == uuid.Nil {
		return nil
	}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.AnalysisJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         domain.JobStatusRunning,
			"operation_name": operationName,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (r *jobRepo) MarkTerminal(dbc dbctx.Context, id uuid.UUID, jobStatus, resultURI, errMsg string) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.AnalysisJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       jobStatus,
			"result_uri":   resultURI,
			"error":        errMsg,
			"completed_at": &now,
			"updated_at":   now,
		}).Error
}

func (r *jobRepo) GetByAssetID(dbc dbctx.Context, assetID string) ([]*domain.AnalysisJob, error) {
	var out []*domain.AnalysisJob
	if assetID == "" {
		return out, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("asset_id = ?", assetID).
		Order("submitted_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
