package invoice

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

var reSheetUnsafe = regexp.MustCompile(`[\[\]:*?/\\]`)

const maxSheetName = 25

// NormalizeVendor trims and title-cases a vendor name; blank names become the unknown sentinel.
func NormalizeVendor(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return constants.UnknownVendor
	}
	return cases.Title(language.Und).String(name)
}

// SanitizeSheetName strips characters spreadsheets reject in sheet names and truncates to 25 runes.
func SanitizeSheetName(name string) string {
	if name == "" {
		return constants.UnknownVendorSheet
	}
	clean := reSheetUnsafe.ReplaceAllString(name, "")
	if r := []rune(clean); len(r) > maxSheetName {
		clean = string(r[:maxSheetName])
	}
	// workbooks reject sheet names that begin or end with an apostrophe
	clean = strings.Trim(clean, "'")
	if clean == "" {
		return constants.UnknownVendorSheet
	}
	return clean
}
