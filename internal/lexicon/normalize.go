package lexicon

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

// Normalize folds full-width forms to their narrow equivalents and lowercases.
// Matching is substring-based, so both the text and keywords go through this.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	// Casers carry state; one per call.
	return cases.Lower(language.Und).String(width.Fold.String(s))
}
