package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"fitchekapi/languageutil"
)

var strengthsPool = [6]string{
	"The colors complement each other well",
	"Good balance between the pieces",
	"Coherent style, well done",
	"The proportions work well",
	"Successful casual/dressy mix",
	"Good overall harmony",
}

var improvementsPool = [6]string{
	"Try more varied colors",
	"The shoes could match better",
	"Some layering could add style",
	"Try an accessory to elevate the look",
	"The proportions could be adjusted",
	"A statement piece would make the difference",
}

var outfitDescriptionsPool = [6]string{
	"Simple and effective look",
	"Chill, laid-back vibe",
	"Stylish without overdoing it",
	"Clean and well thought out",
	"Balanced and coherent",
	"Killer look, spot on",
}

// MockAIProvider produces plausible, hash-derived ratings and randomized but
// constrained selections without a real model, so the whole pipeline can be
// exercised. It never fails on well formed input: partial wardrobes degrade
// to absent slots.
type MockAIProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockAIProvider takes the random source used for slot selection so tests
// can seed it and assert exact picks.
func NewMockAIProvider(rng *rand.Rand) *MockAIProvider {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockAIProvider{rng: rng}
}

func (m *MockAIProvider) Name() string {
	return "mock"
}

func (m *MockAIProvider) RateOutfit(ctx context.Context, imageReference string, userContext UserContext, wardrobeItems []WardrobeItemInput) (*RatingResult, error) {
	if strings.TrimSpace(imageReference) == "" {
		return nil, fmt.Errorf("empty image reference: %w", ErrInvalidInput)
	}

	h := OutfitHash(imageReference)

	result := &RatingResult{
		Score: int(60 + h%35),
		Axes: RatingAxes{
			Colors:    int(65 + h%30),
			Coherence: int(70 + (h+5)%25),
			Occasion:  int(60 + (h+10)%35),
		},
		Strengths: []string{
			strengthsPool[h%6],
			strengthsPool[(h+1)%6],
		},
		Improvements: []string{
			improvementsPool[(h+2)%6],
			improvementsPool[(h+3)%6],
		},
	}

	// suggest shoes/tops from the wardrobe, at most two, stable input order
	for _, item := range wardrobeItems {
		if len(result.WardrobeSuggestions) == 2 {
			break
		}
		if item.Category != "shoes" && item.Category != "top" {
			continue
		}
		result.WardrobeSuggestions = append(result.WardrobeSuggestions, WardrobeSuggestion{
			ItemID: item.ID,
			Reason: fmt.Sprintf("Try it with the %s %s", item.ColorPrimary, languageutil.GarmentLabel(item.Type)),
		})
	}

	return result, nil
}

func (m *MockAIProvider) GenerateOutfit(ctx context.Context, params GenerateOutfitParams) (*OutfitSelection, error) {
	var tops, bottoms, shoes []WardrobeItemInput
	for _, item := range params.WardrobeItems {
		switch item.Category {
		case "top":
			tops = append(tops, item)
		case "bottom":
			bottoms = append(bottoms, item)
		case "shoes":
			shoes = append(shoes, item)
		}
	}

	selectedTop := m.pick(tops)
	selectedBottom := m.pick(bottoms)
	selectedShoes := m.pick(shoes)

	occasion := "default"
	if params.Occasion != nil && *params.Occasion != "" {
		occasion = *params.Occasion
	}
	h := OutfitHash(occasion)

	selection := &OutfitSelection{
		Description:    outfitDescriptionsPool[h%6],
		EstimatedScore: int(70 + h%25),
	}
	if selectedTop != nil {
		selection.TopID = &selectedTop.ID
		selection.Reasons.Top = StrPointer(fmt.Sprintf("%s %s as the base", languageutil.GarmentLabel(selectedTop.Type), selectedTop.ColorPrimary))
	}
	if selectedBottom != nil {
		selection.BottomID = &selectedBottom.ID
		selection.Reasons.Bottom = StrPointer(fmt.Sprintf("%s %s matches nicely", languageutil.GarmentLabel(selectedBottom.Type), selectedBottom.ColorPrimary))
	}
	if selectedShoes != nil {
		selection.ShoesID = &selectedShoes.ID
		selection.Reasons.Shoes = StrPointer(fmt.Sprintf("%s to complete the look", languageutil.GarmentLabel(selectedShoes.Type)))
	}

	return selection, nil
}

// pick chooses one item uniformly, nil for an empty partition.
func (m *MockAIProvider) pick(items []WardrobeItemInput) *WardrobeItemInput {
	if len(items) == 0 {
		return nil
	}
	m.mu.Lock()
	idx := m.rng.Intn(len(items))
	m.mu.Unlock()
	return &items[idx]
}

// RenderOutfitImage synthesizes a placeholder visual: three stacked regions
// for top/bottom/shoes, labels and a watermark when requested. It does not
// depict the real garments, a model-backed provider is expected to.
func (m *MockAIProvider) RenderOutfitImage(ctx context.Context, selection OutfitSelection, wardrobeItems []WardrobeItemInput, includeLabels bool) (string, error) {
	known := map[uint]bool{}
	for _, item := range wardrobeItems {
		known[item.ID] = true
	}
	for slot, id := range map[string]*uint{
		"top": selection.TopID, "bottom": selection.BottomID, "shoes": selection.ShoesID,
		"jacket": selection.JacketID, "accessory": selection.AccessoryID,
	} {
		if id != nil && !known[*id] {
			return "", fmt.Errorf("%s item %v not found in wardrobe snapshot: %w", slot, *id, ErrRenderFailure)
		}
	}

	var b strings.Builder
	b.WriteString(`<svg width="300" height="600" xmlns="http://www.w3.org/2000/svg">`)
	b.WriteString(`<rect width="300" height="600" fill="#f5f5f5"/>`)
	b.WriteString(`<rect x="75" y="50" width="150" height="120" fill="#333" rx="10"/>`)
	b.WriteString(`<rect x="75" y="200" width="150" height="180" fill="#1a5fb4" rx="10"/>`)
	b.WriteString(`<rect x="75" y="410" width="150" height="80" fill="#fff" stroke="#333" stroke-width="2" rx="10"/>`)
	if includeLabels {
		b.WriteString(`<text x="150" y="180" text-anchor="middle" font-size="12" fill="#666">Top</text>`)
		b.WriteString(`<text x="150" y="390" text-anchor="middle" font-size="12" fill="#666">Bottom</text>`)
		b.WriteString(`<text x="150" y="510" text-anchor="middle" font-size="12" fill="#666">Shoes</text>`)
		b.WriteString(`<text x="150" y="560" text-anchor="middle" font-size="14" font-weight="bold" fill="#0ea5e9">FitChek</text>`)
	}
	b.WriteString(`</svg>`)

	encoded := base64.StdEncoding.EncodeToString([]byte(b.String()))
	return "data:image/svg+xml;base64," + encoded, nil
}
