package constants

import (
	"strings"
)

// AssetCategory is the fixed asset classification the extractor is asked to choose from.
type AssetCategory string

const (
	InformationTechnology AssetCategory = "L-Information & Technology"
	FurnitureFixture      AssetCategory = "E-furniture & fixture"
	PlantMachinery        AssetCategory = "C-plant & Machinery"
)

var allCategories = []AssetCategory{
	InformationTechnology,
	FurnitureFixture,
	PlantMachinery,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps loosely spelled categories onto the fixed set.
func Canonicalize(input string) (AssetCategory, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]AssetCategory{
		"information technology": InformationTechnology,
		"it":                     InformationTechnology,
		"furniture":              FurnitureFixture,
		"furniture & fixture":    FurnitureFixture,
		"plant & machinery":      PlantMachinery,
		"machinery":              PlantMachinery,
	}
	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}
	return "", false
}
