package testutil

import (
	"fmt"
	"os"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/videosearch-backend/internal/db"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

// Logger returns a quiet logger for repo tests.
func Logger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("prod")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// DB opens a throwaway store with all tables created. By default it
// runs on an in-memory SQLite database so tests need no services; set
// TEST_POSTGRES_DSN to run the same tests against real Postgres.
func DB(t *testing.T) *db.StoreService {
	t.Helper()

	dialector := gorm.Dialector(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())))
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		dialector = postgres.Open(dsn)
	}

	store, err := db.NewWithDialector(dialector, Logger(t))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if _, err := store.EnsureTables(t.Context()); err != nil {
		t.Fatalf("ensure tables: %v", err)
	}
	return store
}

// Tx hands the test a transaction that is rolled back on cleanup, so
// tests sharing a Postgres database leave no rows behind.
func Tx(t *testing.T, store *db.StoreService) *gorm.DB {
	t.Helper()
	tx := store.DB().Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() { tx.Rollback() })
	return tx
}
