package models

import "github.com/lib/pq"

// OutfitRating is a persisted rating result. Rows are written once after a
// successful provider call and never mutated afterwards.
type OutfitRating struct {
	JsonModel
	Owner   UserAccount `json:"-"`
	OwnerID uint        `json:"-"`

	// file **key** or URL of the rated photo
	ImageReference string `json:"image_reference"`

	Score         int `json:"score"`
	AxisColors    int `json:"axis_colors"`
	AxisCoherence int `json:"axis_coherence"`
	AxisOccasion  int `json:"axis_occasion"`

	Strengths    pq.StringArray `gorm:"type:text[]" json:"strengths"`
	Improvements pq.StringArray `gorm:"type:text[]" json:"improvements"`
	// serialized []{item_id, reason}, at most 2 entries
	SuggestionsJSON *string `gorm:"type:text" json:"-"`

	ProviderName string `json:"provider_name"`
}

// OutfitGeneration is a persisted outfit selection plus its render state.
// Slot references always point at wardrobe items of the same owner and the
// matching category, enforced at creation time.
type OutfitGeneration struct {
	JsonModel
	Owner   UserAccount `json:"-"`
	OwnerID uint        `json:"-"`

	TopID       *uint         `json:"top_id"`
	Top         *WardrobeItem `json:"top"`
	BottomID    *uint         `json:"bottom_id"`
	Bottom      *WardrobeItem `json:"bottom"`
	ShoesID     *uint         `json:"shoes_id"`
	Shoes       *WardrobeItem `json:"shoes"`
	JacketID    *uint         `json:"jacket_id"`
	Jacket      *WardrobeItem `json:"jacket"`
	AccessoryID *uint         `json:"accessory_id"`
	Accessory   *WardrobeItem `json:"accessory"`

	Description    string  `json:"description"`
	EstimatedScore int     `json:"estimated_score"`
	ReasonTop      *string `json:"reason_top"`
	ReasonBottom   *string `json:"reason_bottom"`
	ReasonShoes    *string `json:"reason_shoes"`

	Occasion     *string `json:"occasion"`
	ComfortStyle string  `json:"comfort_style"`
	ProviderName string  `json:"provider_name"`

	// idle, pending, rendered, failed
	RenderStatus       string  `json:"render_status"`
	RenderRetryTimes   int     `json:"-"`
	RenderErrorMessage *string `json:"render_error_message"`
	// data URI (mock) or storage key (model-backed)
	PreviewImageRef *string `gorm:"type:text" json:"preview_image_ref"`
}

// UsageCounter is the weekly free-tier ledger, one row per user per Monday
// anchored week. Mutated only through the quota policy's atomic increment.
type UsageCounter struct {
	JsonModel
	UserAccountID uint   `gorm:"uniqueIndex:idx_usage_user_week"`
	WeekStart     string `gorm:"uniqueIndex:idx_usage_user_week" json:"week_start"`

	RatingsUsed     int `gorm:"default:0" json:"ratings_used"`
	GenerationsUsed int `gorm:"default:0" json:"generations_used"`
}
