package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// RestoreTitle fixes shouting-case text sometimes produced by media servers
// that derive titles from file names ("THE MANDALORIAN" -> "The Mandalorian").
// Mixed-case input is returned untouched: it already carries intentional
// casing.
func RestoreTitle(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return trimmed
	}
	if !isShouting(trimmed) {
		return trimmed
	}
	return titleCaser.String(strings.ToLower(trimmed))
}

func isShouting(text string) bool {
	hasUpper := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}
