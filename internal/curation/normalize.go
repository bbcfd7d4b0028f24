package curation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	keywordCaser     = cases.Fold()
	attributionCaser = cases.Title(language.English, cases.NoLower)
)

// NormalizeKeyword canonicalizes a search keyword so that "Sunset", "sunset"
// and " SUNSET " all index the same cache entry.
func NormalizeKeyword(keyword string) string {
	folded := keywordCaser.String(strings.TrimSpace(keyword))
	return strings.Join(strings.Fields(folded), " ")
}

// attributionText builds the human-readable credit line stored with a record.
func attributionText(creator, provider, licenseID string) string {
	creator = strings.TrimSpace(creator)
	if creator == "" {
		creator = "Unknown"
	}
	source := attributionCaser.String(strings.TrimSpace(provider))
	if licenseID != "" {
		return creator + " / " + source + " (" + licenseID + ")"
	}
	return creator + " / " + source
}
