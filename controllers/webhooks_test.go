package controllers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"fitchekapi/dbhelper"
	"fitchekapi/models"
	"fitchekapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rcEvent(appUserId string, eventType string, extra map[string]interface{}) map[string]interface{} {
	event := map[string]interface{}{
		"app_id":               "appfitchek01",
		"app_user_id":          appUserId,
		"environment":          "SANDBOX",
		"original_app_user_id": appUserId,
		"period_type":          "NORMAL",
		"product_id":           "fitchek_premium",
		"store":                "PLAY_STORE",
		"type":                 eventType,
	}
	for k, v := range extra {
		event[k] = v
	}
	return map[string]interface{}{"api_version": "1.0", "event": event}
}

func TestWebhookUnauthorized(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, &test.AIProviderStub{}, nil, nil, &test.URLCacheMock{})

	req := test.NewJSONRequest("POST", "/webhooks/rc-subscription-webhooks", rcEvent("1", "INITIAL_PURCHASE", nil))
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookTransferSkipped(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, &test.AIProviderStub{}, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	req := test.NewJSONAuthRequestCustomAuth("POST", "/webhooks/rc-subscription-webhooks",
		"Bearer "+os.Getenv("RC_WEBHOOK_TOKEN"), rcEvent(fmt.Sprint(user.ID), "TRANSFER", nil))
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stored models.UserAccount
	db.First(&stored, user.ID)
	assert.False(t, stored.IsPremium())
}

func TestWebhookPremiumActivation(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, &test.AIProviderStub{}, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	req := test.NewJSONAuthRequestCustomAuth("POST", "/webhooks/rc-subscription-webhooks",
		"Bearer "+os.Getenv("RC_WEBHOOK_TOKEN"), rcEvent(fmt.Sprint(user.ID), "INITIAL_PURCHASE", nil))
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.UserAccount
	db.First(&stored, user.ID)
	require.NotNil(t, stored.Subscription)
	assert.Equal(t, string(models.Premium), *stored.Subscription)
	require.NotNil(t, stored.ExpirationDate)
	assert.True(t, stored.IsPremium())
}

func TestWebhookAnonymousIdFallsBackToOriginal(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, &test.AIProviderStub{}, nil, nil, &test.URLCacheMock{})
	user := test.FakeUser(db)

	body := rcEvent("$RCAnonymousID:60ad7a0c84694890b4b272b5654efa1f", "RENEWAL", map[string]interface{}{
		"original_app_user_id": fmt.Sprint(user.ID),
	})
	req := test.NewJSONAuthRequestCustomAuth("POST", "/webhooks/rc-subscription-webhooks",
		"Bearer "+os.Getenv("RC_WEBHOOK_TOKEN"), body)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stored models.UserAccount
	db.First(&stored, user.ID)
	assert.True(t, stored.IsPremium())
}

func TestWebhookExpirationDowngrade(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, &test.AWSProviderMock{}, &test.AIProviderStub{}, nil, nil, &test.URLCacheMock{})
	user := test.FakePremiumUser(db)
	require.True(t, user.IsPremium())

	body := rcEvent(fmt.Sprint(user.ID), "EXPIRATION", map[string]interface{}{
		"expiration_reason": "BILLING_ERROR",
	})
	req := test.NewJSONAuthRequestCustomAuth("POST", "/webhooks/rc-subscription-webhooks",
		"Bearer "+os.Getenv("RC_WEBHOOK_TOKEN"), body)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stored models.UserAccount
	db.First(&stored, user.ID)
	require.NotNil(t, stored.Subscription)
	assert.Equal(t, string(models.Free), *stored.Subscription)
	assert.False(t, stored.IsPremium())
}
