// Package dbtest opens throwaway in-memory stores for tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/kojileo/datebank/internal/model"
	"github.com/kojileo/datebank/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory sqlite database that lives as long as the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every query must see the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// User inserts a verified user.
func User(t testing.TB, db *gorm.DB, email string) model.User {
	t.Helper()

	now := time.Now()
	u := model.User{Email: email, Name: email, EmailVerifiedAt: &now}
	require.NoError(t, db.Create(&u).Error)
	return u
}
