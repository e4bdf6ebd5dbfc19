// Package storetest opens throwaway stores for tests in other packages.
package storetest

import (
	"path/filepath"
	"testing"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLite returns a migrated GormStore backed by a sqlite file in t.TempDir().
// The pool holds one connection so concurrent callers serialize on the database.
func NewSQLite(t testing.TB) *store.GormStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := store.NewGormStore(db)
	require.NoError(t, s.AutoMigrate())
	t.Cleanup(func() { sqlDB.Close() })
	return s
}
