package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAIProviderResolution(t *testing.T) {
	assert.Equal(t, "mock", NewAIProvider("mock").Name())
	assert.Equal(t, "gemini", NewAIProvider("gemini").Name())
	assert.Equal(t, "mock", NewAIProvider("MOCK").Name())
	assert.Equal(t, "gemini", NewAIProvider("  Gemini  ").Name())
}

func TestNewAIProviderUnknownFallsBackToMock(t *testing.T) {
	assert.Equal(t, "mock", NewAIProvider("gpt9000").Name())
	assert.Equal(t, "mock", NewAIProvider("").Name())
}

func TestAIProviderFromEnv(t *testing.T) {
	t.Setenv("AI_PROVIDER", "gemini")
	assert.Equal(t, "gemini", AIProviderFromEnv().Name())

	t.Setenv("AI_PROVIDER", "")
	assert.Equal(t, "mock", AIProviderFromEnv().Name())
}
