package services

import (
	"errors"
	"fmt"
	"time"

	"fitchekapi/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FreeWeeklyActionLimit is the free tier allowance per action type per week.
const FreeWeeklyActionLimit = 3

// QuotaExceededMessage is the user facing rejection, always paired with an
// upgrade path on the client.
const QuotaExceededMessage = "You reached the weekly free limit. Go Premium for unlimited checks!"

var ErrQuotaExceeded = errors.New("quota exceeded")

type QuotaAction string

const (
	ActionRating     QuotaAction = "rating"
	ActionGeneration QuotaAction = "generation"
)

func (a QuotaAction) counterColumn() string {
	if a == ActionGeneration {
		return "generations_used"
	}
	return "ratings_used"
}

// WeekStart resolves the Monday on/before t as a calendar date in UTC, the
// canonical key of the weekly usage window.
func WeekStart(t time.Time) string {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format("2006-01-02")
}

// CheckQuota is the pre-action gate: premium users bypass the policy
// entirely, everyone else is checked against this week's persisted counter.
// An absent row counts as zero. The state is recomputed on every call, there
// is no cached "exhausted" flag anywhere.
func CheckQuota(db *gorm.DB, user models.UserAccount, action QuotaAction) error {
	if user.IsPremium() {
		return nil
	}

	var counter models.UsageCounter
	result := db.Where("user_account_id = ? AND week_start = ?", user.ID, WeekStart(time.Now())).Limit(1).Find(&counter)
	if result.Error != nil {
		return result.Error
	}

	used := counter.RatingsUsed
	if action == ActionGeneration {
		used = counter.GenerationsUsed
	}
	if used >= FreeWeeklyActionLimit {
		fmt.Printf("[User %v] %s quota exhausted for week %s (%v used)\n", user.ID, action, WeekStart(time.Now()), used)
		return ErrQuotaExceeded
	}
	return nil
}

// CommitQuotaUsage burns one unit of this week's allowance after a successful
// provider call. The increment is a single conditional UPDATE so two racing
// requests at the boundary cannot both get past the limit: the row is upserted
// first, then `SET x = x + 1 WHERE x < limit` decides the winner by affected
// row count. Failed provider calls never reach this, so they stay free.
func CommitQuotaUsage(db *gorm.DB, user models.UserAccount, action QuotaAction) error {
	if user.IsPremium() {
		return nil
	}

	weekStart := WeekStart(time.Now())
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UsageCounter{
		UserAccountID: user.ID,
		WeekStart:     weekStart,
	}).Error
	if err != nil {
		return err
	}

	column := action.counterColumn()
	result := db.Model(&models.UsageCounter{}).
		Where("user_account_id = ? AND week_start = ? AND "+column+" < ?", user.ID, weekStart, FreeWeeklyActionLimit).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// lost the race at the boundary, the other request took the last unit
		return ErrQuotaExceeded
	}
	return nil
}

// CurrentUsage reads this week's counter for advisory display, zero values
// for an absent row.
func CurrentUsage(db *gorm.DB, userID uint) (models.UsageOut, error) {
	weekStart := WeekStart(time.Now())
	var counter models.UsageCounter
	result := db.Where("user_account_id = ? AND week_start = ?", userID, weekStart).Limit(1).Find(&counter)
	if result.Error != nil {
		return models.UsageOut{}, result.Error
	}
	return models.UsageOut{
		WeekStart:       weekStart,
		RatingsUsed:     counter.RatingsUsed,
		GenerationsUsed: counter.GenerationsUsed,
		WeeklyLimit:     FreeWeeklyActionLimit,
	}, nil
}
