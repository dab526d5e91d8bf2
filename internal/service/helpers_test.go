package service

import (
	"context"
	"testing"
	"time"

	"examprep-billing/internal/catalog"
	"examprep-billing/internal/client"
	"examprep-billing/internal/model"
	"examprep-billing/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testNow
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection so every query sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, client.Migrate(db))
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) repository.CatalogRepository {
	t.Helper()

	repo := repository.NewCatalogRepository(db)
	require.NoError(t, repo.Seed(context.Background()))
	return repo
}

func newTestCatalogCache(t *testing.T, db *gorm.DB) *catalog.Cache {
	t.Helper()
	return catalog.NewCache(seedCatalog(t, db), time.Minute, fixedClock)
}

func createUser(t *testing.T, db *gorm.DB, user *model.User) {
	t.Helper()
	if user.Role == "" {
		user.Role = "user"
	}
	require.NoError(t, db.Create(user).Error)
}

func createCoupon(t *testing.T, db *gorm.DB, coupon *model.Coupon) {
	t.Helper()
	require.NoError(t, repository.NewCouponRepository(db).Create(context.Background(), coupon))
}

func intPtr(v int) *int {
	return &v
}

func timePtr(v time.Time) *time.Time {
	return &v
}
