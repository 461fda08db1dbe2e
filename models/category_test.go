package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCategoryRejectsSupersets(t *testing.T) {
	for _, valid := range []string{"top", "bottom", "shoes", "jacket", "accessory"} {
		assert.True(t, ValidateCategoryRaw(valid), valid)
	}
	for _, invalid := range []string{"tops", "bottoms", "topcoat", "shoes ", "accessory2", ""} {
		assert.False(t, ValidateCategoryRaw(invalid), invalid)
	}
}

func TestValidateComfortStyleExactMatch(t *testing.T) {
	assert.True(t, ValidateComfortStyleRaw("balanced"))
	assert.False(t, ValidateComfortStyleRaw("balanced_plus"))
	assert.False(t, ValidateComfortStyleRaw("comfort_firstly"))
}

func TestValidatePlatformExactMatch(t *testing.T) {
	assert.True(t, ValidatePlatformRaw("ios"))
	assert.True(t, ValidatePlatformRaw("android"))
	assert.False(t, ValidatePlatformRaw("androids"))
	assert.False(t, ValidatePlatformRaw("iosx"))
}
