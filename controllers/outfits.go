package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fitchekapi/models"
	"fitchekapi/services"
	"fitchekapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type GenerateOutfitIn struct {
	Occasion     *string `json:"occasion" validate:"omitempty,max=100"`
	ComfortStyle *string `json:"comfort_style" validate:"omitempty,comfort_style"`
}

type RenderOutfitIn struct {
	IncludeLabels bool `json:"include_labels"`
}

type OutfitSlotResponse struct {
	ItemID *uint   `json:"item_id"`
	Type   *string `json:"type,omitempty"`
	Reason *string `json:"reason,omitempty"`
}

type OutfitResponse struct {
	ID             uint               `json:"id"`
	Top            OutfitSlotResponse `json:"top"`
	Bottom         OutfitSlotResponse `json:"bottom"`
	Shoes          OutfitSlotResponse `json:"shoes"`
	Jacket         OutfitSlotResponse `json:"jacket"`
	Accessory      OutfitSlotResponse `json:"accessory"`
	Description    string             `json:"description"`
	EstimatedScore int                `json:"estimated_score"`
	Occasion       *string            `json:"occasion"`
	ComfortStyle   string             `json:"comfort_style"`
	ProviderName   string             `json:"provider_name"`
	RenderStatus   string             `json:"render_status"`
	PreviewUri     *string            `json:"preview_uri,omitempty"`
	CreatedAt      string             `json:"created_at"`
}

type OutfitCreatedResponse struct {
	Outfit OutfitResponse  `json:"outfit"`
	Usage  models.UsageOut `json:"usage"`
}

type OutfitsController struct {
	AIProvider  services.AIServiceProvider
	AWSService  services.AWSServiceProvider
	FirebaseApp *firebase.App
	URLCache    services.URLCacheServiceProvider
}

func (controller *OutfitsController) OutfitRoutes(g *echo.Group) {
	g.POST("/generate", controller.GenerateOutfit)
	g.POST("/outfits/:outfitId/render", controller.RenderOutfit)
	g.GET("/outfits", controller.ListOutfits)
	g.GET("/today", controller.TodayOutfit)
}

// sanitizeSelection drops slot references the provider fabricated or put in
// the wrong category. The reason for a dropped slot goes with it.
func sanitizeSelection(selection *services.OutfitSelection, items []services.WardrobeItemInput) {
	byId := make(map[uint]string, len(items))
	for _, item := range items {
		byId[item.ID] = item.Category
	}
	check := func(id *uint, category string) *uint {
		if id == nil {
			return nil
		}
		if byId[*id] != category {
			fmt.Println("Dropping fabricated or miscategorized slot reference", *id, "expected", category)
			return nil
		}
		return id
	}
	if selection.TopID = check(selection.TopID, "top"); selection.TopID == nil {
		selection.Reasons.Top = nil
	}
	if selection.BottomID = check(selection.BottomID, "bottom"); selection.BottomID == nil {
		selection.Reasons.Bottom = nil
	}
	if selection.ShoesID = check(selection.ShoesID, "shoes"); selection.ShoesID == nil {
		selection.Reasons.Shoes = nil
	}
	selection.JacketID = check(selection.JacketID, "jacket")
	selection.AccessoryID = check(selection.AccessoryID, "accessory")
}

func (controller *OutfitsController) GenerateOutfit(c echo.Context) error {
	var req GenerateOutfitIn
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

	wardrobeItems, err := wardrobeSnapshot(db, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch wardrobe"})
	}
	// an empty wardrobe is user guidance, it must not burn quota
	if len(wardrobeItems) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Your wardrobe is empty, add a few garments first to get outfit ideas"})
	}

	if err := services.CheckQuota(db, user, services.ActionGeneration); err != nil {
		if errors.Is(err, services.ErrQuotaExceeded) {
			return c.JSON(http.StatusPaymentRequired, echo.Map{
				"error":   "Quota exceeded",
				"message": services.QuotaExceededMessage,
			})
		}
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to check your weekly usage"})
	}

	selection, err := controller.AIProvider.GenerateOutfit(c.Request().Context(), services.GenerateOutfitParams{
		WardrobeItems: wardrobeItems,
		UserContext:   userContextOf(user),
		Occasion:      req.Occasion,
		ComfortStyle:  req.ComfortStyle,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Sorry, outfit could not be generated from this request"})
		}
		fmt.Println("Generation provider failed for user", user.ID, err)
		sentry.CaptureException(err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Outfit generation is not available right now, please try again"})
	}
	sanitizeSelection(selection, wardrobeItems)
	// nothing wearable survived, guide the user instead of charging a unit
	if selection.TopID == nil && selection.BottomID == nil && selection.ShoesID == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Not enough garments to build an outfit, add a top, bottom or shoes first"})
	}

	if err := services.CommitQuotaUsage(db, user, services.ActionGeneration); err != nil {
		if errors.Is(err, services.ErrQuotaExceeded) {
			return c.JSON(http.StatusPaymentRequired, echo.Map{
				"error":   "Quota exceeded",
				"message": services.QuotaExceededMessage,
			})
		}
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to record your weekly usage"})
	}

	comfortStyle := "balanced"
	if req.ComfortStyle != nil && *req.ComfortStyle != "" {
		comfortStyle = *req.ComfortStyle
	}
	generation := models.OutfitGeneration{
		OwnerID:        user.ID,
		TopID:          selection.TopID,
		BottomID:       selection.BottomID,
		ShoesID:        selection.ShoesID,
		JacketID:       selection.JacketID,
		AccessoryID:    selection.AccessoryID,
		Description:    selection.Description,
		EstimatedScore: selection.EstimatedScore,
		ReasonTop:      selection.Reasons.Top,
		ReasonBottom:   selection.Reasons.Bottom,
		ReasonShoes:    selection.Reasons.Shoes,
		Occasion:       req.Occasion,
		ComfortStyle:   comfortStyle,
		ProviderName:   controller.AIProvider.Name(),
		RenderStatus:   "idle",
	}
	if err := db.Create(&generation).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save your outfit"})
	}
	fmt.Println("Outfit generated for user", user.ID, "generation", generation.ID, "provider", controller.AIProvider.Name())

	usage, err := services.CurrentUsage(db, user.ID)
	if err != nil {
		fmt.Println("Failed to fetch usage for user", user.ID, err)
	}

	return c.JSON(http.StatusCreated, OutfitCreatedResponse{
		Outfit: controller.outfitResponse(c, generation),
		Usage:  usage,
	})
}

func (controller *OutfitsController) RenderOutfit(c echo.Context) error {
	var outfitId uint
	if err := echo.PathParamsBinder(c).Uint("outfitId", &outfitId).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	var req RenderOutfitIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Service is not available, please try again a bit later"})
	}

	var generation models.OutfitGeneration
	r := db.Where("id = ? AND owner_id = ?", outfitId, user.ID).Limit(1).Find(&generation)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfit"})
	}
	if r.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	if generation.RenderStatus == "pending" {
		return c.JSON(http.StatusOK, echo.Map{
			"outfit_id":     generation.ID,
			"render_status": generation.RenderStatus,
		})
	}

	generation.RenderStatus = "pending"
	generation.RenderErrorMessage = nil
	if err := db.Save(&generation).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to schedule the render"})
	}

	task, err := tasks.NewOutfitRenderTask(user.ID, generation.ID, req.IncludeLabels)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not start the render, please try again"})
	}
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("generate"))
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not start the render, please try again"})
	}
	fmt.Println("[Queue] Outfit render task submitted, Outfit ID: ", generation.ID, " Task ID: ", info.ID)

	return c.JSON(http.StatusAccepted, echo.Map{
		"outfit_id":     generation.ID,
		"render_status": generation.RenderStatus,
	})
}

func (controller *OutfitsController) outfitResponse(c echo.Context, generation models.OutfitGeneration) OutfitResponse {
	slot := func(id *uint, item *models.WardrobeItem, reason *string) OutfitSlotResponse {
		resp := OutfitSlotResponse{ItemID: id, Reason: reason}
		if item != nil {
			resp.Type = StrPointer(item.Type)
		}
		return resp
	}

	var previewUri *string
	if generation.PreviewImageRef != nil && *generation.PreviewImageRef != "" {
		if strings.HasPrefix(*generation.PreviewImageRef, "data:") {
			previewUri = generation.PreviewImageRef
		} else {
			url, err := controller.URLCache.GetReadURL(c.Request().Context(), *generation.PreviewImageRef)
			if err != nil {
				fmt.Println("Failed to presign preview for outfit", generation.ID, err)
				sentry.CaptureException(err)
			} else {
				previewUri = &url
			}
		}
	}

	return OutfitResponse{
		ID:             generation.ID,
		Top:            slot(generation.TopID, generation.Top, generation.ReasonTop),
		Bottom:         slot(generation.BottomID, generation.Bottom, generation.ReasonBottom),
		Shoes:          slot(generation.ShoesID, generation.Shoes, generation.ReasonShoes),
		Jacket:         slot(generation.JacketID, generation.Jacket, nil),
		Accessory:      slot(generation.AccessoryID, generation.Accessory, nil),
		Description:    generation.Description,
		EstimatedScore: generation.EstimatedScore,
		Occasion:       generation.Occasion,
		ComfortStyle:   generation.ComfortStyle,
		ProviderName:   generation.ProviderName,
		RenderStatus:   generation.RenderStatus,
		PreviewUri:     previewUri,
		CreatedAt:      generation.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (controller *OutfitsController) ListOutfits(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	var generations []models.OutfitGeneration
	if err := db.Preload("Top").Preload("Bottom").Preload("Shoes").Preload("Jacket").Preload("Accessory").
		Where("owner_id = ?", user.ID).Order("created_at desc").Limit(50).Find(&generations).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfits"})
	}

	responses := make([]OutfitResponse, 0, len(generations))
	for _, generation := range generations {
		responses = append(responses, controller.outfitResponse(c, generation))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"outfits": responses,
	})
}

// TodayOutfit returns the latest outfit generated today and the latest
// rating of the day, advisory for the home screen. It never triggers a
// generation on its own.
func (controller *OutfitsController) TodayOutfit(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	today := time.Now().UTC().Format("2006-01-02")
	var generations []models.OutfitGeneration
	if err := db.Preload("Top").Preload("Bottom").Preload("Shoes").Preload("Jacket").Preload("Accessory").
		Where("owner_id = ? AND DATE(created_at) = ?", user.ID, today).
		Order("created_at desc").Limit(1).Find(&generations).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfit"})
	}

	var ratings []models.OutfitRating
	if err := db.Where("owner_id = ? AND DATE(created_at) = ?", user.ID, today).
		Order("created_at desc").Limit(1).Find(&ratings).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch ratings"})
	}

	var outfit *OutfitResponse
	if len(generations) > 0 {
		response := controller.outfitResponse(c, generations[0])
		outfit = &response
	}
	var rating *RatingResponse
	if len(ratings) > 0 {
		response := ratingResponseOf(ratings[0])
		rating = &response
	}
	return c.JSON(http.StatusOK, echo.Map{
		"outfit": outfit,
		"rating": rating,
	})
}
