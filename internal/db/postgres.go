package db

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/videosearch-backend/internal/config"
	"github.com/yungbote/videosearch-backend/internal/domain"
	pipeerrors "github.com/yungbote/videosearch-backend/internal/pkg/errors"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

// StoreService owns the structured-store connection. Table creation
// lives here (the schema manager); everything else goes through repos.
type StoreService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(cfg *config.Config, log *logger.Logger) (*StoreService, error) {
	serviceLog := log.With("service", "StoreService")

	serviceLog.Info("Connecting to Postgres...", "host", cfg.PostgresHost, "database", cfg.Dataset)
	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to Postgres: %w", err)
	}

	return &StoreService{db: gdb, log: serviceLog}, nil
}

// NewWithDialector lets callers supply their own driver (tests use the
// SQLite dialector).
func NewWithDialector(d gorm.Dialector, log *logger.Logger) (*StoreService, error) {
	gdb, err := gorm.Open(d, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &StoreService{db: gdb, log: log.With("service", "StoreService")}, nil
}

func (s *StoreService) DB() *gorm.DB {
	return s.db
}

func tableModels() []interface{} {
	return []interface{}{
		&domain.Asset{},
		&domain.AnalysisJob{},
		&domain.Shot{},
		&domain.ObjectTrack{},
		&domain.TranscriptSegment{},
		&domain.Embedding{},
	}
}

// EnsureTables creates each pipeline table if and only if it is
// absent. It never alters or drops an existing table, so running it
// against an already-provisioned dataset performs zero DDL. Returns
// the names of tables it created. Any creation failure is a fatal
// prerequisite problem, not something the pipeline retries.
func (s *StoreService) EnsureTables(ctx context.Context) ([]string, error) {
	migrator := s.db.WithContext(ctx).Migrator()

	var created []string
	for _, model := range tableModels() {
		if migrator.HasTable(model) {
			continue
		}
		if err := migrator.CreateTable(model); err != nil {
			return created, fmt.Errorf("%w: create table for %T: %v", pipeerrors.ErrSchemaSetup, model, err)
		}
		stmt := &gorm.Statement{DB: s.db}
		if perr := stmt.Parse(model); perr == nil {
			created = append(created, stmt.Schema.Table)
		}
	}

	if len(created) > 0 {
		s.log.Info("Created tables", "tables", created)
	} else {
		s.log.Info("All tables present, no DDL performed")
	}
	return created, nil
}
