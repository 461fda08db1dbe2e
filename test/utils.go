package test

import (
	"context"
	"encoding/json"
	"fitchekapi/models"
	"fitchekapi/services"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {

	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func NewJSONAuthRequestCustomAuth(method string, target string, authorizationString string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", authorizationString)
	return req
}

func StrPointer(data string) *string {
	return &data
}

func UintPointer(i uint) *uint {
	return &i
}

func TimePointer(t time.Time) *time.Time {
	return &t
}

func FakeUser(db *gorm.DB) *models.UserAccount {
	user := &models.UserAccount{
		Name:                 "OurName",
		Email:                "email@example.com",
		GoogleID:             "12232",
		Platform:             models.PlatformIOS,
		LastIp:               "123.122.122.122",
		Status:               "FINISHED_AUTH",
		AvatarURL:            "pictureurl",
		ReceiveNotifications: true,
	}
	db.Create(&user)
	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      "android",
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU-rqG1sxS8_WCF5cGZchf",
		Active:        true,
	}
	db.Save(&tokenDb)
	return user
}

func FakeUserV2(db *gorm.DB, userName string, email string) *models.UserAccount {
	if email == "" {
		email = "email@example.com"
	}
	user := &models.UserAccount{
		Name:      userName,
		Email:     email,
		GoogleID:  "12232",
		Platform:  models.PlatformIOS,
		LastIp:    "123.122.122.122",
		Status:    "FINISHED_AUTH",
		AvatarURL: "pictureurl",
	}
	db.Create(&user)
	return user
}

func FakePremiumUser(db *gorm.DB) *models.UserAccount {
	user := FakeUserV2(db, "PremiumName", "premium@example.com")
	expiration := time.Now().Add(time.Hour * 24 * 30)
	db.Model(&user).Updates(map[string]interface{}{
		"subscription":    string(models.Premium),
		"expiration_date": expiration,
	})
	db.First(&user, user.ID)
	return user
}

func FakeWardrobeItem(db *gorm.DB, userID uint, category models.Category, itemType string, color string) *models.WardrobeItem {
	item := &models.WardrobeItem{
		OwnerID:      userID,
		Category:     category,
		Type:         itemType,
		ColorPrimary: color,
	}
	db.Create(&item)
	return item
}

func Contains(items []string, lookFor string) bool {

	for i := 0; i < len(items); i++ {

		if items[i] == lookFor {
			return true
		}
	}
	return false
}

type GoogleServiceMock struct{}

func (gsm GoogleServiceMock) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {

	return &idtoken.Payload{Issuer: "Issue", Audience: "AAA", Expires: 119919191919, IssuedAt: 12312321321, Subject: "fake@example.com", Claims: map[string]interface{}{
		"email":   "fake@example.com",
		"picture": "pictureurl",
		"sub":     "123googleid",
	}}, nil

}

func (gsm GoogleServiceMock) GetUserSubscriptionStatus(ctx context.Context, appUserId string) ([]byte, error) {
	data := `
	{
		"request_date": "2026-05-11T06:50:56Z",
		"request_date_ms": 1778395856322,
		"subscriber": {
		  "entitlements": {
			"premium": {
			  "expires_date": "2029-05-12T22:28:12Z",
			  "grace_period_expires_date": null,
			  "product_identifier": "fitchek_premium",
			  "product_plan_identifier": "premium-monthly",
			  "purchase_date": "2026-05-10T22:23:12Z"
			}
		  },
		  "first_seen": "2026-05-07T12:41:57Z",
		  "last_seen": "2026-05-10T20:43:21Z",
		  "management_url": "https://play.google.com/store/account/subscriptions",
		  "non_subscriptions": {},
		  "original_app_user_id": "$RCAnonymousID:60ad7a0c84694890b4b272b5654efa1f",
		  "original_application_version": null,
		  "original_purchase_date": null,
		  "other_purchases": {},
		  "subscriptions": {
			"fitchek_premium": {
			  "auto_resume_date": null,
			  "billing_issues_detected_at": null,
			  "expires_date": "2029-05-12T22:28:12Z",
			  "grace_period_expires_date": null,
			  "is_sandbox": true,
			  "original_purchase_date": "2026-05-10T21:56:21Z",
			  "period_type": "normal",
			  "product_plan_identifier": "premium-monthly",
			  "purchase_date": "2026-05-10T22:23:12Z",
			  "refunded_at": null,
			  "store": "play_store",
			  "store_transaction_id": "GPA.3311-8032-8178-10570..5",
			  "unsubscribe_detected_at": null
			}
		  }
		}
	  }
	  `

	return []byte(data), nil
}

type AWSProviderMock struct {
	MockUrl    string
	PresignErr error
}

func (awsService AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	if awsService.PresignErr != nil {
		return "", awsService.PresignErr
	}
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	return awsService.MockUrl, nil
}

func (awsService AWSProviderMock) UploadToPresignedURL(ctx context.Context, url string, fileContent []byte, contentType string) (string, int, error) {
	return url, 200, nil
}

type URLCacheMock struct {
	MockUrl string
}

func (c URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	if c.MockUrl != "" {
		return c.MockUrl, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/%s", objectKey), nil
}

// AIProviderStub lets a test pin exact provider output or force a failure
// without touching the deterministic engine.
type AIProviderStub struct {
	RatingResult *services.RatingResult
	Selection    *services.OutfitSelection
	RenderedRef  string
	Err          error

	RateCalls     int
	GenerateCalls int
	RenderCalls   int
}

func (p *AIProviderStub) Name() string {
	return "stub"
}

func (p *AIProviderStub) RateOutfit(ctx context.Context, imageReference string, userContext services.UserContext, wardrobeItems []services.WardrobeItemInput) (*services.RatingResult, error) {
	p.RateCalls++
	if p.Err != nil {
		return nil, p.Err
	}
	if p.RatingResult != nil {
		return p.RatingResult, nil
	}
	return &services.RatingResult{
		Score:        84,
		Axes:         services.RatingAxes{Colors: 80, Coherence: 85, Occasion: 78},
		Strengths:    []string{"Strong color story"},
		Improvements: []string{"Try a slimmer shoe"},
	}, nil
}

func (p *AIProviderStub) GenerateOutfit(ctx context.Context, params services.GenerateOutfitParams) (*services.OutfitSelection, error) {
	p.GenerateCalls++
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Selection != nil {
		return p.Selection, nil
	}
	selection := &services.OutfitSelection{
		Description:    "A clean everyday look",
		EstimatedScore: 82,
	}
	for _, item := range params.WardrobeItems {
		id := item.ID
		switch item.Category {
		case string(models.CategoryTop):
			if selection.TopID == nil {
				selection.TopID = &id
			}
		case string(models.CategoryBottom):
			if selection.BottomID == nil {
				selection.BottomID = &id
			}
		case string(models.CategoryShoes):
			if selection.ShoesID == nil {
				selection.ShoesID = &id
			}
		}
	}
	return selection, nil
}

func (p *AIProviderStub) RenderOutfitImage(ctx context.Context, selection services.OutfitSelection, wardrobeItems []services.WardrobeItemInput, includeLabels bool) (string, error) {
	p.RenderCalls++
	if p.Err != nil {
		return "", p.Err
	}
	if p.RenderedRef != "" {
		return p.RenderedRef, nil
	}
	return "data:image/svg+xml;base64,PHN2Zz48L3N2Zz4=", nil
}
