package models

import "github.com/lib/pq"

type WardrobeItem struct {
	JsonModel
	Category       Category       `sql:"type:ENUM('top', 'bottom', 'shoes', 'jacket', 'accessory')" json:"category"`
	Type           string         `json:"type"`
	ColorPrimary   string         `json:"color_primary"`
	ColorSecondary *string        `json:"color_secondary"`
	StyleTags      pq.StringArray `gorm:"type:text[]" json:"style_tags"`
	SeasonTags     pq.StringArray `gorm:"type:text[]" json:"season_tags"`
	// file **key** in storage, not a full URL
	ImageURL *string     `json:"image_url"`
	Owner    UserAccount `json:"-"`
	OwnerID  uint        `json:"-"`
	Deleted  bool        `json:"-"`
}
