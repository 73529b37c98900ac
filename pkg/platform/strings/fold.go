// Package strings provides the text normalization shared by address parsing,
// province lookups and cache keys.
package strings

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// UpperASCIIFolding removes accents, upper-cases, trims and collapses inner
// whitespace. "  Álava  " becomes "ALAVA"; "ñ" folds to "N".
func UpperASCIIFolding(s string) string {
	folded, _, err := transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		s,
	)
	if err != nil {
		folded = s
	}
	return CollapseSpaces(strings.ToUpper(folded))
}

// CollapseSpaces trims s and replaces every whitespace run with one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DedupeFolded removes values that fold to the same key, keeping the first
// occurrence in its original form. Empty values are dropped.
//
// Example:
//
//	DedupeFolded([]string{"Álava", "ALAVA", " ", "Araba"})
//	// Returns: []string{"Álava", "Araba"}
func DedupeFolded(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		key := UpperASCIIFolding(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			result = append(result, strings.TrimSpace(v))
		}
	}

	return result
}
