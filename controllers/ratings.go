package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"fitchekapi/models"
	"fitchekapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type RateOutfitIn struct {
	// file key of an uploaded photo or a full URL
	ImageReference string `json:"image_reference" validate:"required,max=1000"`
}

type RatingResponse struct {
	ID           uint                          `json:"id"`
	Score        int                           `json:"score"`
	Axes         services.RatingAxes           `json:"axes"`
	Strengths    []string                      `json:"strengths"`
	Improvements []string                      `json:"improvements"`
	Suggestions  []services.WardrobeSuggestion `json:"wardrobe_suggestions"`
	ProviderName string                        `json:"provider_name"`
	CreatedAt    string                        `json:"created_at"`
}

type RatingCreatedResponse struct {
	Rating RatingResponse  `json:"rating"`
	Usage  models.UsageOut `json:"usage"`
}

type RatingsController struct {
	AIProvider services.AIServiceProvider
}

func (controller *RatingsController) RatingRoutes(g *echo.Group) {
	g.POST("/rate", controller.RateOutfit)
	g.GET("/ratings", controller.ListRatings)
}

func userContextOf(user models.UserAccount) services.UserContext {
	return services.UserContext{
		StylePrimary:      user.StylePrimary,
		MainContext:       user.MainContext,
		PreferenceBalance: user.PreferenceBalance,
		ImprovementGoals:  user.ImprovementGoals,
	}
}

func wardrobeSnapshot(db *gorm.DB, userID uint) ([]services.WardrobeItemInput, error) {
	var items []models.WardrobeItem
	if err := db.Where("owner_id = ? AND deleted = false", userID).Find(&items).Error; err != nil {
		return nil, err
	}
	inputs := make([]services.WardrobeItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, services.WardrobeItemInput{
			ID:             item.ID,
			Category:       string(item.Category),
			Type:           item.Type,
			ColorPrimary:   item.ColorPrimary,
			ColorSecondary: item.ColorSecondary,
			StyleTags:      item.StyleTags,
			SeasonTags:     item.SeasonTags,
			ImageURL:       item.ImageURL,
		})
	}
	return inputs, nil
}

func (controller *RatingsController) RateOutfit(c echo.Context) error {
	var req RateOutfitIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	if err := services.CheckQuota(db, user, services.ActionRating); err != nil {
		if errors.Is(err, services.ErrQuotaExceeded) {
			return c.JSON(http.StatusPaymentRequired, echo.Map{
				"error":   "Quota exceeded",
				"message": services.QuotaExceededMessage,
			})
		}
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to check your weekly usage"})
	}

	wardrobeItems, err := wardrobeSnapshot(db, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch wardrobe"})
	}

	result, err := controller.AIProvider.RateOutfit(c.Request().Context(), req.ImageReference, userContextOf(user), wardrobeItems)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Sorry, this photo could not be rated, please try another one"})
		}
		fmt.Println("Rating provider failed for user", user.ID, err)
		sentry.CaptureException(err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Rating is not available right now, please try again"})
	}

	// the provider call succeeded, burn one unit. Losing the commit race at
	// the boundary means the result is discarded, not stored.
	if err := services.CommitQuotaUsage(db, user, services.ActionRating); err != nil {
		if errors.Is(err, services.ErrQuotaExceeded) {
			return c.JSON(http.StatusPaymentRequired, echo.Map{
				"error":   "Quota exceeded",
				"message": services.QuotaExceededMessage,
			})
		}
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to record your weekly usage"})
	}

	rating := models.OutfitRating{
		OwnerID:        user.ID,
		ImageReference: req.ImageReference,
		Score:          result.Score,
		AxisColors:     result.Axes.Colors,
		AxisCoherence:  result.Axes.Coherence,
		AxisOccasion:   result.Axes.Occasion,
		Strengths:      pq.StringArray(result.Strengths),
		Improvements:   pq.StringArray(result.Improvements),
		ProviderName:   controller.AIProvider.Name(),
	}
	if len(result.WardrobeSuggestions) > 0 {
		raw, err := json.Marshal(result.WardrobeSuggestions)
		if err == nil {
			rating.SuggestionsJSON = StrPointer(string(raw))
		}
	}
	if err := db.Create(&rating).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save your rating"})
	}
	fmt.Println("Outfit rated for user", user.ID, "score", result.Score, "provider", controller.AIProvider.Name())

	usage, err := services.CurrentUsage(db, user.ID)
	if err != nil {
		fmt.Println("Failed to fetch usage for user", user.ID, err)
	}

	return c.JSON(http.StatusCreated, RatingCreatedResponse{
		Rating: RatingResponse{
			ID:           rating.ID,
			Score:        rating.Score,
			Axes:         result.Axes,
			Strengths:    rating.Strengths,
			Improvements: rating.Improvements,
			Suggestions:  result.WardrobeSuggestions,
			ProviderName: rating.ProviderName,
			CreatedAt:    rating.CreatedAt.Format("2006-01-02T15:04:05Z"),
		},
		Usage: usage,
	})
}

func ratingResponseOf(rating models.OutfitRating) RatingResponse {
	var suggestions []services.WardrobeSuggestion
	if rating.SuggestionsJSON != nil && *rating.SuggestionsJSON != "" {
		if err := json.Unmarshal([]byte(*rating.SuggestionsJSON), &suggestions); err != nil {
			fmt.Println("Corrupted suggestions payload for rating", rating.ID, err)
		}
	}
	return RatingResponse{
		ID:    rating.ID,
		Score: rating.Score,
		Axes: services.RatingAxes{
			Colors:    rating.AxisColors,
			Coherence: rating.AxisCoherence,
			Occasion:  rating.AxisOccasion,
		},
		Strengths:    rating.Strengths,
		Improvements: rating.Improvements,
		Suggestions:  suggestions,
		ProviderName: rating.ProviderName,
		CreatedAt:    rating.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (controller *RatingsController) ListRatings(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	var ratings []models.OutfitRating
	if err := db.Where("owner_id = ?", user.ID).Order("created_at desc").Limit(50).Find(&ratings).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch ratings"})
	}

	responses := make([]RatingResponse, 0, len(ratings))
	for _, rating := range ratings {
		responses = append(responses, ratingResponseOf(rating))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ratings": responses,
	})
}
