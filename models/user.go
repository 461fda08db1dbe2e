package models

import (
	"time"

	"github.com/lib/pq"
)

type JsonModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserAccount struct {
	JsonModel
	Name   string `json:"name"`
	Email  string `json:"email" gorm:"unique"`
	Banned bool   `gorm:"default:false" json:"-"`
	LastIp string `json:"-"`
	//"STARTED_AUTH", "FINISHED_AUTH"
	Status    string   `json:"-"`
	GoogleID  string   `json:"-"`
	AppleID   string   `json:"-"`
	UTMSource string   `json:"utm_source"`
	Platform  Platform `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`

	Subscription   *string    `json:"subscription"`
	ExpirationDate *time.Time `json:"-"`

	// onboarding answers, read-only input for rating/generation
	StylePrimary      pq.StringArray `gorm:"type:text[]" json:"style_primary"`
	MainContext       *string        `json:"main_context"`
	PreferenceBalance *string        `json:"preference_balance"`
	ImprovementGoals  pq.StringArray `gorm:"type:text[]" json:"improvement_goals"`

	ReceiveNotifications bool       `json:"receive_notifications"`
	AvatarURL            string     `json:"avatar_url"`
	ConfirmedDeleteDate  *time.Time `json:"-"`
}

// IsPremium is the entitlement check the quota policy relies on. A user is
// premium while a paid subscription is set and not expired.
func (u UserAccount) IsPremium() bool {
	if u.Subscription == nil || *u.Subscription == "" || *u.Subscription == string(Free) {
		return false
	}
	if u.ExpirationDate != nil && u.ExpirationDate.Before(time.Now()) {
		return false
	}
	return true
}

type UserPushToken struct {
	JsonModel
	UserAccountID uint
	UserAccount   UserAccount `json:"user_account"`
	Platform      Platform    `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	Token         string      `json:"token"`
	Active        bool        `gorm:"default:false" json:"-"`
}

type UserPushIn struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type UserSettingsIn struct {
	ReceiveNotifications bool `json:"receive_notifications"`
}

type StyleContextIn struct {
	StylePrimary      []string `json:"style_primary" validate:"omitempty,max=2"`
	MainContext       *string  `json:"main_context"`
	PreferenceBalance *string  `json:"preference_balance" validate:"omitempty,comfort_style"`
	ImprovementGoals  []string `json:"improvement_goals"`
}
