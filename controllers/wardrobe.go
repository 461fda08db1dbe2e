package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"fitchekapi/models"
	"fitchekapi/services"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type CreateWardrobeItemIn struct {
	Category       string   `json:"category" validate:"required,category"`
	Type           string   `json:"type" validate:"required,max=100"`
	ColorPrimary   string   `json:"color_primary" validate:"required,max=50"`
	ColorSecondary *string  `json:"color_secondary" validate:"omitempty,max=50"`
	StyleTags      []string `json:"style_tags" validate:"omitempty,max=10,dive,max=50"`
	SeasonTags     []string `json:"season_tags" validate:"omitempty,max=4,dive,max=20"`
	FileName       *string  `json:"file_name" validate:"omitempty,max=200"`
}

type UpdateWardrobeItemIn struct {
	Type           *string  `json:"type" validate:"omitempty,max=100"`
	ColorPrimary   *string  `json:"color_primary" validate:"omitempty,max=50"`
	ColorSecondary *string  `json:"color_secondary" validate:"omitempty,max=50"`
	StyleTags      []string `json:"style_tags" validate:"omitempty,max=10,dive,max=50"`
	SeasonTags     []string `json:"season_tags" validate:"omitempty,max=4,dive,max=20"`
}

type WardrobeItemResponse struct {
	ID             uint     `json:"id"`
	Category       string   `json:"category"`
	Type           string   `json:"type"`
	ColorPrimary   string   `json:"color_primary"`
	ColorSecondary *string  `json:"color_secondary"`
	StyleTags      []string `json:"style_tags"`
	SeasonTags     []string `json:"season_tags"`
	Uri            *string  `json:"uri,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

type WardrobeItemCreatedResponse struct {
	Item          WardrobeItemResponse `json:"item"`
	FileUploadUrl string               `json:"file_upload_url,omitempty"`
}

type WardrobeListResponse struct {
	Tops        []WardrobeItemResponse `json:"tops"`
	Bottoms     []WardrobeItemResponse `json:"bottoms"`
	Shoes       []WardrobeItemResponse `json:"shoes"`
	Jackets     []WardrobeItemResponse `json:"jackets"`
	Accessories []WardrobeItemResponse `json:"accessories"`
}

type WardrobeController struct {
	AWSService  services.AWSServiceProvider
	FirebaseApp *firebase.App
	URLCache    services.URLCacheServiceProvider
}

func (controller *WardrobeController) WardrobeRoutes(g *echo.Group) {
	g.POST("/create", controller.CreateItem)
	g.GET("/list", controller.ListItems)
	g.POST("/:itemId/update", controller.UpdateItem)
	g.POST("/:itemId/delete", controller.DeleteItem)
}

func (controller *WardrobeController) CreateItem(c echo.Context) error {
	var req CreateWardrobeItemIn
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

	item := models.WardrobeItem{
		Category:       models.ScanCategory(req.Category),
		Type:           req.Type,
		ColorPrimary:   req.ColorPrimary,
		ColorSecondary: req.ColorSecondary,
		StyleTags:      pq.StringArray(req.StyleTags),
		SeasonTags:     pq.StringArray(req.SeasonTags),
		OwnerID:        user.ID,
	}

	var uploadUrl string
	if req.FileName != nil && *req.FileName != "" {
		if !services.IsSupportedImageName(*req.FileName) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Sorry, this image format is not supported"})
		}
		var bucketName = services.GetEnv("R2_BUCKET_NAME", "")
		safeFileName := fmt.Sprintf("wardrobe/%v/%s", user.ID, *req.FileName)
		var presignErr error
		uploadUrl, presignErr = controller.AWSService.PresignLink(context.Background(), bucketName, safeFileName)
		if presignErr != nil {
			log.Printf("Unable to presign upload for %s!, %s", item.Type, presignErr)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Error while creating wardrobe item with photo",
			})
		}
		item.ImageURL = &safeFileName
	}

	if err := db.Create(&item).Error; err != nil {
		sentry.CaptureException(err)
		return err
	}

	response := WardrobeItemCreatedResponse{
		Item: WardrobeItemResponse{
			ID:             item.ID,
			Category:       string(item.Category),
			Type:           item.Type,
			ColorPrimary:   item.ColorPrimary,
			ColorSecondary: item.ColorSecondary,
			StyleTags:      item.StyleTags,
			SeasonTags:     item.SeasonTags,
			CreatedAt:      item.CreatedAt.Format("2006-01-02T15:04:05Z"),
			UpdatedAt:      item.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		},
		FileUploadUrl: uploadUrl,
	}

	return c.JSON(http.StatusCreated, response)
}

// populatePresignedItemImages enriches raw wardrobe models with presigned URLs concurrently,
// with a manual R2 fallback for when the cache system itself fails.
func (controller *WardrobeController) populatePresignedItemImages(ctx context.Context, items []models.WardrobeItem) []WardrobeItemResponse {
	if len(items) == 0 {
		return []WardrobeItemResponse{}
	}

	var wg sync.WaitGroup
	processedResponses := make([]WardrobeItemResponse, len(items))
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")

	for i, wardrobeItem := range items {
		wg.Add(1)
		go func(index int, item models.WardrobeItem) {
			defer wg.Done()

			var imageUrl string
			if item.ImageURL != nil && *item.ImageURL != "" {
				objectKey := *item.ImageURL

				url, err := controller.URLCache.GetReadURL(ctx, objectKey)

				if err == nil {
					imageUrl = url
				} else {
					log.Printf("CACHE WARNING: Cache system failed for key '%s': %v. Triggering manual R2 fallback.", objectKey, err)

					sentry.WithScope(func(scope *sentry.Scope) {
						scope.SetTag("failure_type", "cache_system")
						scope.SetExtra("objectKey", objectKey)
						sentry.CaptureException(err)
					})

					fallbackUrl, fallbackErr := controller.AWSService.GetPresignedR2FileReadURL(ctx, bucketName, objectKey)
					if fallbackErr != nil {
						log.Printf("CRITICAL: Manual R2 fallback also failed for key '%s': %v", objectKey, fallbackErr)
						sentry.CaptureException(fallbackErr)
					} else {
						imageUrl = fallbackUrl
					}
				}
			}
			processedResponses[index] = WardrobeItemResponse{
				ID:             item.ID,
				Category:       string(item.Category),
				Type:           item.Type,
				ColorPrimary:   item.ColorPrimary,
				ColorSecondary: item.ColorSecondary,
				StyleTags:      item.StyleTags,
				SeasonTags:     item.SeasonTags,
				CreatedAt:      item.CreatedAt.Format("2006-01-02T15:04:05Z"),
				UpdatedAt:      item.UpdatedAt.Format("2006-01-02T15:04:05Z"),
				Uri:            &imageUrl,
			}
		}(i, wardrobeItem)
	}

	wg.Wait()
	return processedResponses
}

func (controller *WardrobeController) ListItems(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	var items []models.WardrobeItem
	if err := db.Where("owner_id = ? AND deleted = false", user.ID).Order("created_at desc").Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch wardrobe"})
	}

	processedResponses := controller.populatePresignedItemImages(c.Request().Context(), items)

	response := WardrobeListResponse{
		Tops:        []WardrobeItemResponse{},
		Bottoms:     []WardrobeItemResponse{},
		Shoes:       []WardrobeItemResponse{},
		Jackets:     []WardrobeItemResponse{},
		Accessories: []WardrobeItemResponse{},
	}

	for _, resp := range processedResponses {
		switch resp.Category {
		case "top":
			response.Tops = append(response.Tops, resp)
		case "bottom":
			response.Bottoms = append(response.Bottoms, resp)
		case "shoes":
			response.Shoes = append(response.Shoes, resp)
		case "jacket":
			response.Jackets = append(response.Jackets, resp)
		case "accessory":
			response.Accessories = append(response.Accessories, resp)
		}
	}

	return c.JSON(http.StatusOK, response)
}

func (controller *WardrobeController) UpdateItem(c echo.Context) error {
	var itemId uint
	if err := echo.PathParamsBinder(c).Uint("itemId", &itemId).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	var req UpdateWardrobeItemIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var item models.WardrobeItem
	r := db.Where("id = ? AND owner_id = ? AND deleted = false", itemId, user.ID).Limit(1).Find(&item)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch wardrobe item"})
	}
	if r.RowsAffected == 0 {
		return echo.ErrNotFound
	}

	if req.Type != nil {
		item.Type = *req.Type
	}
	if req.ColorPrimary != nil {
		item.ColorPrimary = *req.ColorPrimary
	}
	if req.ColorSecondary != nil {
		item.ColorSecondary = req.ColorSecondary
	}
	if req.StyleTags != nil {
		item.StyleTags = pq.StringArray(req.StyleTags)
	}
	if req.SeasonTags != nil {
		item.SeasonTags = pq.StringArray(req.SeasonTags)
	}
	if err := db.Save(&item).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update wardrobe item"})
	}

	return c.JSON(http.StatusOK, WardrobeItemResponse{
		ID:             item.ID,
		Category:       string(item.Category),
		Type:           item.Type,
		ColorPrimary:   item.ColorPrimary,
		ColorSecondary: item.ColorSecondary,
		StyleTags:      item.StyleTags,
		SeasonTags:     item.SeasonTags,
		CreatedAt:      item.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      item.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (controller *WardrobeController) DeleteItem(c echo.Context) error {
	var itemId uint
	if err := echo.PathParamsBinder(c).Uint("itemId", &itemId).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	// soft flag so past ratings and generations keep their item snapshots
	result := db.Model(&models.WardrobeItem{}).Where("id = ? AND owner_id = ?", itemId, user.ID).Update("deleted", true)
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete wardrobe item"})
	}
	if result.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	fmt.Println("Wardrobe item deleted", itemId, "user", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "deleted",
	})
}
