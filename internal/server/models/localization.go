package models

// LanguageEnglish is the fallback language for all localized text.
const LanguageEnglish = "en"

// Localization owner kinds. A supplement-owned row is the package-level
// fallback; a version-owned row is the most specific source.
const (
	LocalizationOwnerSupplement = "supplement"
	LocalizationOwnerVersion    = "version"
)

// Localization holds optional localized text for either a package supplement
// or a package version, keyed by natural-language code. Empty values are
// represented as nil, never as empty strings.
type Localization struct {
	ID           int64
	OwnerType    string
	OwnerID      int64
	LanguageCode string
	Title        *string
	Summary      *string
	Description  *string
}

// HasAnyText reports whether at least one field carries text.
func (l *Localization) HasAnyText() bool {
	return l.Title != nil || l.Summary != nil || l.Description != nil
}
