package models

import (
	"regexp"

	"github.com/go-playground/validator"
)

// Category is the garment slot taxonomy. Only top/bottom/shoes are eligible
// for automatic selection, jacket/accessory are catalogued but left to the user.
type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryShoes     Category = "shoes"
	CategoryJacket    Category = "jacket"
	CategoryAccessory Category = "accessory"
)

func (c *Category) Scan(value interface{}) error {
	*c = Category(value.(string))
	return nil
}

func (c Category) Value() (string, error) {
	return string(c), nil
}

func ScanCategory(value string) Category {
	return Category(value)
}

var categoryRegex = regexp.MustCompile("^(top|bottom|shoes|jacket|accessory)$")

func ValidateCategory(fl validator.FieldLevel) bool {
	return categoryRegex.MatchString(fl.Field().String())
}

func ValidateCategoryRaw(value string) bool {
	return categoryRegex.MatchString(value)
}

// ComfortStyle is the user's preference balance for generation.
type ComfortStyle string

const (
	ComfortFirst ComfortStyle = "comfort_first"
	Balanced     ComfortStyle = "balanced"
	StyleFirst   ComfortStyle = "style_first"
)

var comfortStyleRegex = regexp.MustCompile("^(comfort_first|balanced|style_first)$")

func ValidateComfortStyle(fl validator.FieldLevel) bool {
	return comfortStyleRegex.MatchString(fl.Field().String())
}

func ValidateComfortStyleRaw(value string) bool {
	return comfortStyleRegex.MatchString(value)
}
