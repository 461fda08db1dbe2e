package services

import (
	"context"
	"errors"
)

// Failure kinds shared by every provider implementation. Controllers map
// these to HTTP statuses, nothing below the controller layer reinterprets them.
var (
	ErrInvalidInput        = errors.New("invalid provider input")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrRenderFailure       = errors.New("render failure")
)

// UserContext carries the onboarding answers into a provider call, so the
// provider has no hidden dependency on accounts or any process-wide state.
type UserContext struct {
	StylePrimary      []string `json:"style_primary,omitempty"`
	MainContext       *string  `json:"main_context,omitempty"`
	PreferenceBalance *string  `json:"preference_balance,omitempty"`
	ImprovementGoals  []string `json:"improvement_goals,omitempty"`
}

// WardrobeItemInput is a read-only snapshot of a catalogued garment.
// Providers must never mutate these.
type WardrobeItemInput struct {
	ID             uint     `json:"id"`
	Category       string   `json:"category"`
	Type           string   `json:"type"`
	ColorPrimary   string   `json:"color_primary"`
	ColorSecondary *string  `json:"color_secondary,omitempty"`
	StyleTags      []string `json:"style_tags,omitempty"`
	SeasonTags     []string `json:"season_tags,omitempty"`
	ImageURL       *string  `json:"image_url,omitempty"`
}

type RatingAxes struct {
	Colors    int `json:"colors"`
	Coherence int `json:"coherence"`
	Occasion  int `json:"occasion"`
}

type WardrobeSuggestion struct {
	ItemID uint   `json:"item_id"`
	Reason string `json:"reason"`
}

// RatingResult is created once per rating request and immutable afterwards.
// Score tracks the axes but is not required to equal their mean.
type RatingResult struct {
	Score               int                  `json:"score"`
	Axes                RatingAxes           `json:"axes"`
	Strengths           []string             `json:"strengths"`
	Improvements        []string             `json:"improvements"`
	WardrobeSuggestions []WardrobeSuggestion `json:"wardrobe_suggestions,omitempty"`
}

type OutfitReasons struct {
	Top    *string `json:"top,omitempty"`
	Bottom *string `json:"bottom,omitempty"`
	Shoes  *string `json:"shoes,omitempty"`
}

// OutfitSelection references only items that were passed in, by id. A nil slot
// means no candidate existed in that category, which is expected for partial
// wardrobes, not an error.
type OutfitSelection struct {
	TopID       *uint `json:"top_id,omitempty"`
	BottomID    *uint `json:"bottom_id,omitempty"`
	ShoesID     *uint `json:"shoes_id,omitempty"`
	JacketID    *uint `json:"jacket_id,omitempty"`
	AccessoryID *uint `json:"accessory_id,omitempty"`

	Description    string        `json:"description"`
	EstimatedScore int           `json:"estimated_score"`
	Reasons        OutfitReasons `json:"reasons"`
}

type GenerateOutfitParams struct {
	WardrobeItems []WardrobeItemInput
	UserContext   UserContext
	Occasion      *string
	// defaults to balanced when nil
	ComfortStyle *string
}

// AIServiceProvider is the only contract a rating/generation backend has to
// satisfy. Implementations are selected once at process start, see registry.
type AIServiceProvider interface {
	Name() string
	RateOutfit(ctx context.Context, imageReference string, userContext UserContext, wardrobeItems []WardrobeItemInput) (*RatingResult, error)
	GenerateOutfit(ctx context.Context, params GenerateOutfitParams) (*OutfitSelection, error)
	RenderOutfitImage(ctx context.Context, selection OutfitSelection, wardrobeItems []WardrobeItemInput, includeLabels bool) (string, error)
}

// OutfitHash is the rolling hash behind the mock engine's repeatability: a
// pure function of the input string, stable across calls within a process.
func OutfitHash(s string) uint32 {
	var h int32
	for i := 0; i < len(s); i++ {
		h = h<<5 - h + int32(s[i])
	}
	if h < 0 {
		h = -h
	}
	return uint32(h)
}
