package tasks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"fitchekapi/dbhelper"
	"fitchekapi/models"
	"fitchekapi/services"
	"fitchekapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNewOutfitRenderTaskPayload(t *testing.T) {
	task, err := NewOutfitRenderTask(12, 34, true)
	require.NoError(t, err)
	assert.Equal(t, TypeOutfitRender, task.Type())

	var payload OutfitRenderPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, uint(12), payload.UserID)
	assert.Equal(t, uint(34), payload.OutfitID)
	assert.True(t, payload.IncludeLabels)
}

func renderFixture(db *gorm.DB) (*models.UserAccount, models.OutfitGeneration) {
	user := test.FakeUser(db)
	top := test.FakeWardrobeItem(db, user.ID, models.CategoryTop, "Tee", "black")
	shoes := test.FakeWardrobeItem(db, user.ID, models.CategoryShoes, "Sneakers", "white")
	generation := models.OutfitGeneration{
		OwnerID:      user.ID,
		TopID:        &top.ID,
		ShoesID:      &shoes.ID,
		Description:  "Clean and well thought out",
		ComfortStyle: "balanced",
		ProviderName: "mock",
		RenderStatus: "pending",
	}
	db.Create(&generation)
	return user, generation
}

func TestHandleOutfitRenderTaskInlineSVG(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user, generation := renderFixture(db)

	task, err := NewOutfitRenderTask(user.ID, generation.ID, true)
	require.NoError(t, err)

	err = HandleOutfitRenderTask(context.Background(), task, db, services.NewMockAIProvider(nil), &test.AWSProviderMock{}, nil)
	require.NoError(t, err)

	var stored models.OutfitGeneration
	db.First(&stored, generation.ID)
	assert.Equal(t, "rendered", stored.RenderStatus)
	assert.Nil(t, stored.RenderErrorMessage)
	require.NotNil(t, stored.PreviewImageRef)
	require.True(t, strings.HasPrefix(*stored.PreviewImageRef, "data:image/svg+xml;base64,"))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(*stored.PreviewImageRef, "data:image/svg+xml;base64,"))
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "FitChek")
}

func TestHandleOutfitRenderTaskUploadsRaster(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user, generation := renderFixture(db)

	pngBytes := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	provider := &test.AIProviderStub{
		RenderedRef: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
	}

	task, err := NewOutfitRenderTask(user.ID, generation.ID, false)
	require.NoError(t, err)

	err = HandleOutfitRenderTask(context.Background(), task, db, provider, &test.AWSProviderMock{}, nil)
	require.NoError(t, err)

	var stored models.OutfitGeneration
	db.First(&stored, generation.ID)
	assert.Equal(t, "rendered", stored.RenderStatus)
	require.NotNil(t, stored.PreviewImageRef)
	assert.Equal(t, fmt.Sprintf("outfits/%v/outfit-%v.png", user.ID, generation.ID), *stored.PreviewImageRef)
}

func TestHandleOutfitRenderTaskAlreadyRendered(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user, generation := renderFixture(db)
	db.Model(&generation).Update("render_status", "rendered")

	provider := &test.AIProviderStub{Err: services.ErrRenderFailure}
	task, err := NewOutfitRenderTask(user.ID, generation.ID, false)
	require.NoError(t, err)

	err = HandleOutfitRenderTask(context.Background(), task, db, provider, &test.AWSProviderMock{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, provider.RenderCalls)
}

func TestHandleOutfitRenderTaskRenderFailureTerminal(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user, generation := renderFixture(db)

	provider := &test.AIProviderStub{Err: services.ErrRenderFailure}
	task, err := NewOutfitRenderTask(user.ID, generation.ID, false)
	require.NoError(t, err)

	// a broken selection stays broken, the task must not come back
	err = HandleOutfitRenderTask(context.Background(), task, db, provider, &test.AWSProviderMock{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.RenderCalls)

	var stored models.OutfitGeneration
	db.First(&stored, generation.ID)
	assert.Equal(t, "failed", stored.RenderStatus)
	assert.Equal(t, 1, stored.RenderRetryTimes)
	require.NotNil(t, stored.RenderErrorMessage)
}

func TestHandleOutfitRenderTaskTransientFailureRetriesThenFails(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user, generation := renderFixture(db)

	provider := &test.AIProviderStub{Err: services.ErrProviderUnavailable}
	task, err := NewOutfitRenderTask(user.ID, generation.ID, false)
	require.NoError(t, err)

	for attempt := 1; attempt <= 2; attempt++ {
		err = HandleOutfitRenderTask(context.Background(), task, db, provider, &test.AWSProviderMock{}, nil)
		require.Error(t, err)
		var stored models.OutfitGeneration
		db.First(&stored, generation.ID)
		assert.Equal(t, attempt, stored.RenderRetryTimes)
		assert.Equal(t, "pending", stored.RenderStatus)
		require.NotNil(t, stored.RenderErrorMessage)
	}

	err = HandleOutfitRenderTask(context.Background(), task, db, provider, &test.AWSProviderMock{}, nil)
	require.Error(t, err)
	var stored models.OutfitGeneration
	db.First(&stored, generation.ID)
	assert.Equal(t, 3, stored.RenderRetryTimes)
	assert.Equal(t, "failed", stored.RenderStatus)
}

func TestHandleOutfitRenderTaskPresignFailureRecorded(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user, generation := renderFixture(db)

	pngBytes := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	provider := &test.AIProviderStub{
		RenderedRef: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
	}
	awsMock := &test.AWSProviderMock{PresignErr: errors.New("presign backend down")}

	task, err := NewOutfitRenderTask(user.ID, generation.ID, false)
	require.NoError(t, err)

	err = HandleOutfitRenderTask(context.Background(), task, db, provider, awsMock, nil)
	require.Error(t, err)

	var stored models.OutfitGeneration
	db.First(&stored, generation.ID)
	assert.Equal(t, "pending", stored.RenderStatus)
	assert.Equal(t, 1, stored.RenderRetryTimes)
	require.NotNil(t, stored.RenderErrorMessage)
}

func TestHandleOutfitRenderTaskMalformedPayloadFailsForGood(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	user, generation := renderFixture(db)

	provider := &test.AIProviderStub{RenderedRef: "not a data uri at all"}
	task, err := NewOutfitRenderTask(user.ID, generation.ID, false)
	require.NoError(t, err)

	err = HandleOutfitRenderTask(context.Background(), task, db, provider, &test.AWSProviderMock{}, nil)
	require.Error(t, err)

	var stored models.OutfitGeneration
	db.First(&stored, generation.ID)
	assert.Equal(t, "failed", stored.RenderStatus)
	assert.Equal(t, 1, stored.RenderRetryTimes)
}
