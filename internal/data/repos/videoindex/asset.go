package videoindex

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/videosearch-backend/internal/domain"
	"github.com/yungbote/videosearch-backend/internal/pkg/dbctx"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

type AssetRepo interface {
	// Upsert inserts the asset or refreshes its mutable columns; the
	// deterministic id makes re-discovery idempotent.
	Upsert(dbc dbctx.Context, row *domain.Asset) error

	GetByID(dbc dbctx.Context, id string) (*domain.Asset, error)
	GetByState(dbc dbctx.Context, state string) ([]*domain.Asset, error)

	UpdateState(dbc dbctx.Context, id, state string) error
	UpdateFields(dbc dbctx.Context, id string, updates map[string]interface{}) error
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return &assetRepo{db: db, log: baseLog.With("repo", "AssetRepo")}
}

func (r *assetRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *assetRepo) Upsert(dbc dbctx.Context, row *domain.Asset) error {
	if row == nil {
		return nil
	}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "json_uri", "audio_uri",
				"duration_ms", "total_segments", "total_speakers",
				"has_diarization", "has_ocr",
				"state", "indexed_at", "updated_at",
			}),
		}).
		Create(row).Error
}

func (r *assetRepo) GetByID(dbc dbctx.Context, id string) (*domain.Asset, error) {
	if id == "" {
		return nil, nil
	}
	var out []*domain.Asset
	if err := r.handle(dbc).WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *assetRepo) GetByState(dbc dbctx.Context, state string) ([]*domain.Asset, error) {
	var out []*domain.Asset
	if state == "" {
		return out, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("state = ?", state).
		Order("discovered_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetRepo) UpdateState(dbc dbctx.Context, id, state string) error {
	return r.UpdateFields(dbc, id, map[string]interface{}{"state": state})
}

func (r *assetRepo) UpdateFields(dbc dbctx.Context, id string, updates map[string]interface{}) error {
	if id == "" {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.Asset{}).
		Where("id = ?", id).
		Updates(updates).Error
}
