package repository

import (
	"testing"

	"skillswap/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory SQLite database per test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps all queries on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Skill{}, &models.SwapRequest{}))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func createUser(t *testing.T, db *gorm.DB, u *models.User) *models.User {
	t.Helper()
	if u.Password == "" {
		u.Password = "hash"
	}
	if u.Availability == "" {
		u.Availability = models.AvailabilityFlexible
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	u.IsActive = true
	require.NoError(t, db.Create(u).Error)
	return u
}
