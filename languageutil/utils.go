package languageutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var TitleCaser = cases.Title(language.English)
var LowerCaser = cases.Lower(language.English)

// GarmentLabel normalizes a free-text garment type for user facing messages:
// trimmed, single spaced, lower cased ("Chelsea  BOOTS" -> "chelsea boots").
func GarmentLabel(garmentType string) string {
	label := strings.Join(strings.Fields(garmentType), " ")
	if label == "" {
		return "piece"
	}
	return LowerCaser.String(label)
}

// GarmentTitle is the display variant used on catalog listings.
func GarmentTitle(garmentType string) string {
	label := strings.Join(strings.Fields(garmentType), " ")
	if label == "" {
		return ""
	}
	return TitleCaser.String(label)
}
