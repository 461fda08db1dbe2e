package tasks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitchekapi/models"
	"fitchekapi/services"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

const (
	TypeOutfitRender = "generate:outfit_render"
	TypeWeeklyDigest = "notify:weekly_digest"
)

type OutfitRenderPayload struct {
	UserID        uint `json:"user_id"`
	OutfitID      uint `json:"outfit_id"`
	IncludeLabels bool `json:"include_labels"`
}

func NewOutfitRenderTask(userID uint, outfitID uint, includeLabels bool) (*asynq.Task, error) {
	payload, err := json.Marshal(OutfitRenderPayload{UserID: userID, OutfitID: outfitID, IncludeLabels: includeLabels})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOutfitRender, payload), nil
}

func NewWeeklyDigestTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeWeeklyDigest, nil), nil
}

func snapshotFromGeneration(generation models.OutfitGeneration) ([]services.WardrobeItemInput, services.OutfitSelection) {
	var items []services.WardrobeItemInput
	add := func(item *models.WardrobeItem) {
		if item == nil {
			return
		}
		items = append(items, services.WardrobeItemInput{
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
	add(generation.Top)
	add(generation.Bottom)
	add(generation.Shoes)
	add(generation.Jacket)
	add(generation.Accessory)

	selection := services.OutfitSelection{
		TopID:          generation.TopID,
		BottomID:       generation.BottomID,
		ShoesID:        generation.ShoesID,
		JacketID:       generation.JacketID,
		AccessoryID:    generation.AccessoryID,
		Description:    generation.Description,
		EstimatedScore: generation.EstimatedScore,
	}
	return items, selection
}

func saveRenderFail(db *gorm.DB, generation models.OutfitGeneration, msg string, shouldRetry bool) error {
	generation.RenderRetryTimes = generation.RenderRetryTimes + 1
	generation.RenderErrorMessage = &msg
	if !shouldRetry || generation.RenderRetryTimes >= 3 {
		generation.RenderStatus = "failed"
	}
	tx := db.Save(&generation)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Fail Outfit %v] Error on saving outfit for failed render status", generation.ID))
		return tx.Error
	}
	return nil
}

// HandleOutfitRenderTask renders the preview for a generated outfit. SVG
// previews (mock provider) are stored inline as data URIs, raster previews
// are uploaded to R2 and referenced by key.
func HandleOutfitRenderTask(
	ctx context.Context, t *asynq.Task, db *gorm.DB, aiProvider services.AIServiceProvider,
	awsService services.AWSServiceProvider, fbApp *firebase.App) error {
	var payload OutfitRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Outfit: %v] Render processing\n", payload.OutfitID)

	var generation models.OutfitGeneration
	res := db.Preload("Top").Preload("Bottom").Preload("Shoes").Preload("Jacket").Preload("Accessory").
		First(&generation, payload.OutfitID)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving outfit for render %v", payload.OutfitID))
		return res.Error
	}
	if generation.RenderStatus == "rendered" {
		fmt.Printf("[Outfit: %v] Already rendered\n", payload.OutfitID)
		return nil
	}

	items, selection := snapshotFromGeneration(generation)
	rendered, err := aiProvider.RenderOutfitImage(ctx, selection, items, payload.IncludeLabels)
	if err != nil {
		fmt.Printf("[Outfit: %v] Render failed: %v\n", payload.OutfitID, err)
		sentry.CaptureException(fmt.Errorf("[Outfit: %v] Error on rendering outfit preview: %v", payload.OutfitID, err))
		if errors.Is(err, services.ErrRenderFailure) {
			// the stored selection itself is broken, another attempt cannot fix it
			saveRenderFail(db, generation, "This outfit could not be rendered", false)
			return nil
		}
		saveRenderFail(db, generation, "Failed to render the outfit preview, please try again", true)
		return err
	}

	if strings.HasPrefix(rendered, "data:image/svg+xml") {
		generation.PreviewImageRef = &rendered
	} else {
		idx := strings.Index(rendered, "base64,")
		if idx < 0 {
			sentry.CaptureException(fmt.Errorf("[Outfit: %v] Unexpected render payload format", payload.OutfitID))
			saveRenderFail(db, generation, "Failed to store the outfit preview, please try again", false)
			return fmt.Errorf("[Outfit: %v] Unexpected render payload format", payload.OutfitID)
		}
		imageBytes, err := base64.StdEncoding.DecodeString(rendered[idx+len("base64,"):])
		if err != nil {
			sentry.CaptureException(fmt.Errorf("[Outfit: %v] Error decoding rendered preview: %v", payload.OutfitID, err))
			saveRenderFail(db, generation, "Failed to store the outfit preview, please try again", false)
			return err
		}

		bucketName := services.GetEnv("R2_BUCKET_NAME", "")
		safeFileName := fmt.Sprintf("outfits/%v/outfit-%v.png", generation.OwnerID, generation.ID)
		uploadUrl, presignErr := awsService.PresignLink(context.Background(), bucketName, safeFileName)
		if presignErr != nil {
			fmt.Printf("[Outfit: %v] Unable to create presign link: %v\n", generation.ID, presignErr)
			sentry.CaptureException(presignErr)
			saveRenderFail(db, generation, "Failed to store the outfit preview, please try again", true)
			return presignErr
		}
		respBody, statusCode, err := awsService.UploadToPresignedURL(context.Background(), uploadUrl, imageBytes, "image/png")
		fmt.Printf("[Outfit: %v] R2 Upload preview size %v, response body: %s, status code: %d\n", generation.ID, len(imageBytes), respBody, statusCode)
		if err != nil || statusCode != 200 {
			if err == nil {
				err = fmt.Errorf("[Outfit: %v] Preview upload returned status %d", generation.ID, statusCode)
			}
			fmt.Printf("[Outfit: %v] Error on uploading preview: %v\n", generation.ID, err)
			sentry.CaptureException(err)
			saveRenderFail(db, generation, "Failed to store the outfit preview, please try again", true)
			return err
		}
		generation.PreviewImageRef = &safeFileName
	}

	generation.RenderStatus = "rendered"
	generation.RenderErrorMessage = nil
	tx := db.Save(&generation)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on saving outfit %v", payload.OutfitID))
		return tx.Error
	}
	fmt.Printf("[Outfit: %v] Render finished successfully\n", payload.OutfitID)

	var user models.UserAccount
	if err := db.First(&user, generation.OwnerID).Error; err == nil && user.ReceiveNotifications {
		services.SendNotification(fbApp, db, generation.OwnerID, "Your outfit is ready 👀",
			fmt.Sprintf("Tap to see your styled look: %s", generation.Description),
			map[string]string{"outfit_id": fmt.Sprintf("%d", generation.ID), "type": "outfit_rendered"})
	}
	return nil
}

// ScheduledWeeklyDigestTask is triggered every Monday morning, it tells free
// users their weekly allowance is fresh again.
func ScheduledWeeklyDigestTask(ctx context.Context, t *asynq.Task, db *gorm.DB, fbApp *firebase.App) error {

	fmt.Printf("[Weekly Digest] Processing for all users\n")

	var users []models.UserAccount
	result := db.Where("banned = ? AND receive_notifications = ?", false, true).Find(&users)
	if result.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Weekly Digest] Error fetching users: %v", result.Error))
		return result.Error
	}

	fmt.Printf("[Weekly Digest] Found %d users to send notifications\n", len(users))

	for _, user := range users {
		if user.IsPremium() {
			continue
		}
		services.SendNotification(fbApp, db, user.ID,
			"Fresh week, fresh fits ✨",
			fmt.Sprintf("Your %v free ratings and %v outfit ideas are back. Time for a fit check!", services.FreeWeeklyActionLimit, services.FreeWeeklyActionLimit),
			map[string]string{"type": "weekly_digest"})
		time.Sleep(1 * time.Second) // To avoid hitting rate limits
	}

	return nil
}
