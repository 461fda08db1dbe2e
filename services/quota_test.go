package services_test

import (
	"testing"
	"time"

	"fitchekapi/dbhelper"
	"fitchekapi/models"
	"fitchekapi/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestWeekStartMondayAnchor(t *testing.T) {
	// 2026-08-31 is a Monday
	monday := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-31", services.WeekStart(monday))

	thursday := time.Date(2026, 9, 3, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-31", services.WeekStart(thursday))

	sunday := time.Date(2026, 9, 6, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, "2026-08-31", services.WeekStart(sunday))

	nextMonday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-09-07", services.WeekStart(nextMonday))
}

func TestWeekStartNormalizesToUTC(t *testing.T) {
	kiribati := time.FixedZone("UTC+14", 14*3600)
	// Monday 00:30 local is still Sunday in UTC
	localMonday := time.Date(2026, 9, 7, 0, 30, 0, 0, kiribati)
	assert.Equal(t, "2026-08-31", services.WeekStart(localMonday))
}

func quotaTestUser(db *gorm.DB, email string) models.UserAccount {
	user := models.UserAccount{
		Name:     "QuotaUser",
		Email:    email,
		Platform: models.PlatformAndroid,
		Status:   "FINISHED_AUTH",
	}
	db.Create(&user)
	return user
}

func TestQuotaFreeUserLifecycle(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := quotaTestUser(db, "quota-free@example.com")

	for i := 0; i < services.FreeWeeklyActionLimit; i++ {
		require.NoError(t, services.CheckQuota(db, user, services.ActionRating))
		require.NoError(t, services.CommitQuotaUsage(db, user, services.ActionRating))
	}

	assert.ErrorIs(t, services.CheckQuota(db, user, services.ActionRating), services.ErrQuotaExceeded)
	assert.ErrorIs(t, services.CommitQuotaUsage(db, user, services.ActionRating), services.ErrQuotaExceeded)

	var counter models.UsageCounter
	db.Where("user_account_id = ?", user.ID).First(&counter)
	assert.Equal(t, services.FreeWeeklyActionLimit, counter.RatingsUsed)
	assert.Equal(t, services.WeekStart(time.Now()), counter.WeekStart)
}

func TestQuotaActionsIndependent(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := quotaTestUser(db, "quota-actions@example.com")

	for i := 0; i < services.FreeWeeklyActionLimit; i++ {
		require.NoError(t, services.CommitQuotaUsage(db, user, services.ActionRating))
	}

	assert.ErrorIs(t, services.CheckQuota(db, user, services.ActionRating), services.ErrQuotaExceeded)
	assert.NoError(t, services.CheckQuota(db, user, services.ActionGeneration))
	assert.NoError(t, services.CommitQuotaUsage(db, user, services.ActionGeneration))

	var counter models.UsageCounter
	db.Where("user_account_id = ?", user.ID).First(&counter)
	assert.Equal(t, services.FreeWeeklyActionLimit, counter.RatingsUsed)
	assert.Equal(t, 1, counter.GenerationsUsed)
}

func TestQuotaPremiumBypass(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := quotaTestUser(db, "quota-premium@example.com")
	expiration := time.Now().Add(time.Hour * 24)
	db.Model(&user).Updates(map[string]interface{}{
		"subscription":    string(models.Premium),
		"expiration_date": expiration,
	})
	db.First(&user, user.ID)

	for i := 0; i < services.FreeWeeklyActionLimit*3; i++ {
		require.NoError(t, services.CheckQuota(db, user, services.ActionGeneration))
		require.NoError(t, services.CommitQuotaUsage(db, user, services.ActionGeneration))
	}

	// premium commits never touch the ledger
	var count int64
	db.Model(&models.UsageCounter{}).Where("user_account_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestQuotaExpiredPremiumCountsAsFree(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := quotaTestUser(db, "quota-expired@example.com")
	expiration := time.Now().Add(-time.Hour)
	db.Model(&user).Updates(map[string]interface{}{
		"subscription":    string(models.Premium),
		"expiration_date": expiration,
	})
	db.First(&user, user.ID)

	require.False(t, user.IsPremium())
	for i := 0; i < services.FreeWeeklyActionLimit; i++ {
		require.NoError(t, services.CommitQuotaUsage(db, user, services.ActionRating))
	}
	assert.ErrorIs(t, services.CheckQuota(db, user, services.ActionRating), services.ErrQuotaExceeded)
}

func TestQuotaConcurrentCommitBoundary(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := quotaTestUser(db, "quota-race@example.com")

	results := make(chan error, services.FreeWeeklyActionLimit+2)
	for i := 0; i < services.FreeWeeklyActionLimit+2; i++ {
		go func() {
			results <- services.CommitQuotaUsage(db, user, services.ActionRating)
		}()
	}

	var granted, rejected int
	for i := 0; i < services.FreeWeeklyActionLimit+2; i++ {
		err := <-results
		if err == nil {
			granted++
		} else {
			require.ErrorIs(t, err, services.ErrQuotaExceeded)
			rejected++
		}
	}
	assert.Equal(t, services.FreeWeeklyActionLimit, granted)
	assert.Equal(t, 2, rejected)

	var counter models.UsageCounter
	db.Where("user_account_id = ?", user.ID).First(&counter)
	assert.Equal(t, services.FreeWeeklyActionLimit, counter.RatingsUsed)
}

func TestCurrentUsage(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user := quotaTestUser(db, "quota-usage@example.com")

	usage, err := services.CurrentUsage(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.RatingsUsed)
	assert.Equal(t, 0, usage.GenerationsUsed)
	assert.Equal(t, services.FreeWeeklyActionLimit, usage.WeeklyLimit)
	assert.Equal(t, services.WeekStart(time.Now()), usage.WeekStart)

	require.NoError(t, services.CommitQuotaUsage(db, user, services.ActionRating))
	require.NoError(t, services.CommitQuotaUsage(db, user, services.ActionGeneration))
	require.NoError(t, services.CommitQuotaUsage(db, user, services.ActionGeneration))

	usage, err = services.CurrentUsage(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.RatingsUsed)
	assert.Equal(t, 2, usage.GenerationsUsed)
}
