package services

import (
	"fmt"
	"strings"

	"github.com/getsentry/sentry-go"
)

// providerFactories maps a provider identifier to its constructor. New
// variants register here and become selectable through AI_PROVIDER.
var providerFactories = map[string]func() AIServiceProvider{
	"mock": func() AIServiceProvider {
		return NewMockAIProvider(nil)
	},
	"gemini": func() AIServiceProvider {
		return &GeminiAIProvider{}
	},
}

// NewAIProvider resolves a provider by name. Unknown names fail closed to the
// mock with a loud diagnostic, never a silent behavior change.
func NewAIProvider(name string) AIServiceProvider {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "mock"
	}
	factory, ok := providerFactories[key]
	if !ok {
		fmt.Printf("WARNING: unknown AI provider %q, falling back to mock\n", name)
		sentry.CaptureMessage(fmt.Sprintf("Unknown AI provider configured: %q, falling back to mock", name))
		factory = providerFactories["mock"]
	}
	provider := factory()
	fmt.Println("AI provider selected:", provider.Name())
	return provider
}

// AIProviderFromEnv is the startup entry point, AI_PROVIDER decides the
// variant for the whole process lifetime.
func AIProviderFromEnv() AIServiceProvider {
	return NewAIProvider(GetEnv("AI_PROVIDER", "mock"))
}
