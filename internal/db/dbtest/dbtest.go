// Package dbtest opens throwaway SQLite databases migrated like production.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Keoroanthony/go-dairydelight/internal/db"
)

// Open returns a migrated in-memory SQLite database private to t.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)

	opts := db.Options()
	opts.Logger = logger.Default.LogMode(logger.Silent)

	testDB, err := gorm.Open(sqlite.Open(dsn), opts)
	if err != nil {
		t.Fatalf("failed to connect test database: %v", err)
	}

	if err := db.Migrate(testDB); err != nil {
		t.Fatalf("failed to auto-migrate models: %v", err)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// a shared-cache memory database lives as long as one connection is open
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return testDB
}
