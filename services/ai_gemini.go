package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

const geminiOutfitModel = "gemini-2.5-flash"

// GeminiAIProvider is the model-backed provider variant. It satisfies the
// same contract as the mock: the caller cannot tell them apart beyond the
// quality of the answers.
type GeminiAIProvider struct{}

func (g *GeminiAIProvider) Name() string {
	return "gemini"
}

func (g *GeminiAIProvider) newClient(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GOOGLE_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %v: %w", err, ErrProviderUnavailable)
	}
	return client, nil
}

func (g *GeminiAIProvider) RateOutfit(ctx context.Context, imageReference string, userContext UserContext, wardrobeItems []WardrobeItemInput) (*RatingResult, error) {
	if strings.TrimSpace(imageReference) == "" {
		return nil, fmt.Errorf("empty image reference: %w", ErrInvalidInput)
	}
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}

	imageBytes, err := ReadFileFromUrl(imageReference)
	if err != nil {
		fmt.Println("Error downloading outfit photo:", imageReference, err)
		return nil, fmt.Errorf("downloading outfit photo: %v: %w", err, ErrProviderUnavailable)
	}

	contextJSON, _ := json.Marshal(userContext)
	wardrobeJSON, _ := json.Marshal(wardrobeItems)
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: imageBytes}},
		{Text: fmt.Sprintf(
			"Rate the outfit in the photo. User context: %s. Wardrobe: %s. "+
				"Respond with strict JSON only: {\"score\": 0-100, \"axes\": {\"colors\": 0-100, \"coherence\": 0-100, \"occasion\": 0-100}, "+
				"\"strengths\": [2 short strings], \"improvements\": [2 short strings], "+
				"\"wardrobe_suggestions\": [{\"item_id\": <id from wardrobe>, \"reason\": string}] with at most 2 entries, "+
				"only ids that exist in the wardrobe list, omit the field when the wardrobe is empty.",
			contextJSON, wardrobeJSON)},
	}

	result, err := client.Models.GenerateContent(ctx, geminiOutfitModel, []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return nil, fmt.Errorf("rate outfit: %v: %w", err, ErrProviderUnavailable)
	}

	var rating RatingResult
	if err := json.Unmarshal([]byte(result.Text()), &rating); err != nil {
		fmt.Println("Unparseable rating payload:", result.Text())
		return nil, fmt.Errorf("unparseable rating payload: %v: %w", err, ErrProviderUnavailable)
	}
	// never let the model point at items it was not given
	known := map[uint]bool{}
	for _, item := range wardrobeItems {
		known[item.ID] = true
	}
	var suggestions []WardrobeSuggestion
	for _, s := range rating.WardrobeSuggestions {
		if known[s.ItemID] && len(suggestions) < 2 {
			suggestions = append(suggestions, s)
		}
	}
	rating.WardrobeSuggestions = suggestions
	return &rating, nil
}

func (g *GeminiAIProvider) GenerateOutfit(ctx context.Context, params GenerateOutfitParams) (*OutfitSelection, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}

	comfortStyle := "balanced"
	if params.ComfortStyle != nil && *params.ComfortStyle != "" {
		comfortStyle = *params.ComfortStyle
	}
	occasion := "everyday"
	if params.Occasion != nil && *params.Occasion != "" {
		occasion = *params.Occasion
	}

	contextJSON, _ := json.Marshal(params.UserContext)
	wardrobeJSON, _ := json.Marshal(params.WardrobeItems)
	parts := []*genai.Part{
		{Text: fmt.Sprintf(
			"Assemble one outfit from this wardrobe only: %s. Occasion: %s. Preference: %s. User context: %s. "+
				"Respond with strict JSON only: {\"top_id\", \"bottom_id\", \"shoes_id\" (each an id from the wardrobe of the matching category, omit when no candidate), "+
				"\"description\": short string, \"estimated_score\": 0-100, \"reasons\": {\"top\", \"bottom\", \"shoes\": short strings, only for filled slots}}.",
			wardrobeJSON, occasion, comfortStyle, contextJSON)},
	}

	result, err := client.Models.GenerateContent(ctx, geminiOutfitModel, []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return nil, fmt.Errorf("generate outfit: %v: %w", err, ErrProviderUnavailable)
	}

	var selection OutfitSelection
	if err := json.Unmarshal([]byte(result.Text()), &selection); err != nil {
		fmt.Println("Unparseable selection payload:", result.Text())
		return nil, fmt.Errorf("unparseable selection payload: %v: %w", err, ErrProviderUnavailable)
	}

	// fabricated or miscategorized references degrade to absent slots
	categories := map[uint]string{}
	for _, item := range params.WardrobeItems {
		categories[item.ID] = item.Category
	}
	sanitize := func(id *uint, category string) *uint {
		if id == nil || categories[*id] != category {
			return nil
		}
		return id
	}
	selection.TopID = sanitize(selection.TopID, "top")
	selection.BottomID = sanitize(selection.BottomID, "bottom")
	selection.ShoesID = sanitize(selection.ShoesID, "shoes")
	selection.JacketID = sanitize(selection.JacketID, "jacket")
	selection.AccessoryID = sanitize(selection.AccessoryID, "accessory")
	if selection.TopID == nil {
		selection.Reasons.Top = nil
	}
	if selection.BottomID == nil {
		selection.Reasons.Bottom = nil
	}
	if selection.ShoesID == nil {
		selection.Reasons.Shoes = nil
	}
	return &selection, nil
}

func (g *GeminiAIProvider) RenderOutfitImage(ctx context.Context, selection OutfitSelection, wardrobeItems []WardrobeItemInput, includeLabels bool) (string, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return "", err
	}

	items := map[uint]WardrobeItemInput{}
	for _, item := range wardrobeItems {
		items[item.ID] = item
	}
	var parts []*genai.Part
	for slot, id := range map[string]*uint{
		"top": selection.TopID, "bottom": selection.BottomID, "shoes": selection.ShoesID,
	} {
		if id == nil {
			continue
		}
		item, ok := items[*id]
		if !ok {
			return "", fmt.Errorf("%s item %v not found in wardrobe snapshot: %w", slot, *id, ErrRenderFailure)
		}
		if item.ImageURL == nil || *item.ImageURL == "" {
			continue
		}
		imageBytes, err := ReadFileFromUrl(*item.ImageURL)
		if err != nil {
			fmt.Println("Error downloading garment image:", *item.ImageURL, err)
			return "", fmt.Errorf("downloading garment image: %v: %w", err, ErrProviderUnavailable)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: imageBytes}})
	}

	prompt := "Compose a clean vertical outfit flat-lay from the supplied garment photos on a neutral background, top then bottom then shoes."
	if includeLabels {
		prompt += " Annotate each region with its category label and add a small FitChek watermark."
	}
	parts = append(parts, &genai.Part{Text: prompt})

	result, err := client.Models.GenerateContent(ctx, geminiOutfitModel, []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{})
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return "", fmt.Errorf("render outfit: %v: %w", err, ErrProviderUnavailable)
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return "data:image/png;base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
			}
		}
	}
	return "", fmt.Errorf("no image candidate in response: %w", ErrProviderUnavailable)
}
