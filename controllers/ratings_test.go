package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"fitchekapi/dbhelper"
	"fitchekapi/models"
	"fitchekapi/services"
	"fitchekapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateOutfitOk(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	provider := &test.AIProviderStub{}
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, provider, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	reqBody := RateOutfitIn{ImageReference: "wardrobe/1/fit-check.jpg"}
	req := test.NewJSONAuthRequest("POST", "/ai/rate", strconv.FormatUint(uint64(user.ID), 10), reqBody)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, "Expected status code 201 Created, got %d", rec.Code)

	var response RatingCreatedResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, 84, response.Rating.Score)
	assert.Equal(t, "stub", response.Rating.ProviderName)
	assert.Equal(t, 1, response.Usage.RatingsUsed)
	assert.Equal(t, 0, response.Usage.GenerationsUsed)
	assert.Equal(t, services.FreeWeeklyActionLimit, response.Usage.WeeklyLimit)
	assert.Equal(t, 1, provider.RateCalls)

	var rating models.OutfitRating
	db.Where("owner_id = ?", user.ID).First(&rating)
	assert.Equal(t, reqBody.ImageReference, rating.ImageReference)
	assert.Equal(t, 84, rating.Score)
}

func TestRateOutfitValidationError(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	provider := &test.AIProviderStub{}
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, provider, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	req := test.NewJSONAuthRequest("POST", "/ai/rate", strconv.FormatUint(uint64(user.ID), 10), RateOutfitIn{})
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, provider.RateCalls)
}

func TestRateOutfitUnauthorized(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, &test.AIProviderStub{}, nil, nil, &test.URLCacheMock{})

	req := test.NewJSONRequest("POST", "/ai/rate", RateOutfitIn{ImageReference: "photo.jpg"})
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateOutfitQuotaExceeded(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	provider := &test.AIProviderStub{}
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, provider, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	db.Create(&models.UsageCounter{
		UserAccountID: user.ID,
		WeekStart:     services.WeekStart(time.Now()),
		RatingsUsed:   services.FreeWeeklyActionLimit,
	})

	req := test.NewJSONAuthRequest("POST", "/ai/rate", strconv.FormatUint(uint64(user.ID), 10), RateOutfitIn{ImageReference: "photo.jpg"})
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	var response map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "Quota exceeded", response["error"])
	assert.Equal(t, services.QuotaExceededMessage, response["message"])
	// exhausted quota never reaches the provider
	assert.Equal(t, 0, provider.RateCalls)
}

func TestRateOutfitProviderFailureDoesNotBurnQuota(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	provider := &test.AIProviderStub{Err: services.ErrProviderUnavailable}
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, provider, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	req := test.NewJSONAuthRequest("POST", "/ai/rate", strconv.FormatUint(uint64(user.ID), 10), RateOutfitIn{ImageReference: "photo.jpg"})
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var counterCount, ratingCount int64
	db.Model(&models.UsageCounter{}).Where("user_account_id = ?", user.ID).Count(&counterCount)
	db.Model(&models.OutfitRating{}).Where("owner_id = ?", user.ID).Count(&ratingCount)
	assert.Equal(t, int64(0), counterCount)
	assert.Equal(t, int64(0), ratingCount)
}

func TestRateOutfitProviderInvalidInput(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	provider := &test.AIProviderStub{Err: services.ErrInvalidInput}
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, provider, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	req := test.NewJSONAuthRequest("POST", "/ai/rate", strconv.FormatUint(uint64(user.ID), 10), RateOutfitIn{ImageReference: "photo.jpg"})
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateOutfitPremiumSkipsLedger(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	provider := &test.AIProviderStub{}
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, provider, nil, nil, &test.URLCacheMock{})
	user := test.FakePremiumUser(db)

	for i := 0; i < services.FreeWeeklyActionLimit+2; i++ {
		req := test.NewJSONAuthRequest("POST", "/ai/rate", strconv.FormatUint(uint64(user.ID), 10), RateOutfitIn{ImageReference: "photo.jpg"})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var counterCount int64
	db.Model(&models.UsageCounter{}).Where("user_account_id = ?", user.ID).Count(&counterCount)
	assert.Equal(t, int64(0), counterCount)
}

func TestListRatings(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, &test.AIProviderStub{}, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	suggestions, _ := json.Marshal([]services.WardrobeSuggestion{{ItemID: 7, Reason: "Try it with the white sneakers"}})
	first := models.OutfitRating{
		OwnerID:        user.ID,
		ImageReference: "first.jpg",
		Score:          71,
		ProviderName:   "mock",
	}
	db.Create(&first)
	second := models.OutfitRating{
		OwnerID:         user.ID,
		ImageReference:  "second.jpg",
		Score:           88,
		ProviderName:    "mock",
		SuggestionsJSON: test.StrPointer(string(suggestions)),
	}
	db.Create(&second)
	// another user's rating must not leak in
	other := test.FakeUserV2(db, "Other", "other@example.com")
	db.Create(&models.OutfitRating{OwnerID: other.ID, ImageReference: "private.jpg", Score: 90, ProviderName: "mock"})

	req := test.NewJSONAuthRequest("GET", "/ai/ratings", strconv.FormatUint(uint64(user.ID), 10), nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response struct {
		Ratings []RatingResponse `json:"ratings"`
	}
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	require.Len(t, response.Ratings, 2)
	assert.Equal(t, second.ID, response.Ratings[0].ID)
	assert.Equal(t, first.ID, response.Ratings[1].ID)
	require.Len(t, response.Ratings[0].Suggestions, 1)
	assert.Equal(t, uint(7), response.Ratings[0].Suggestions[0].ItemID)
	assert.Empty(t, response.Ratings[1].Suggestions)
}
