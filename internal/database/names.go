package database

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameKey folds a display name for ordering: diacritics stripped, lowercased,
// hyphens and runs of whitespace collapsed to single spaces.
func nameKey(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(strings.ReplaceAll(folded, "-", " "))
	return strings.Join(strings.Fields(folded), " ")
}

// SortIdentities orders identities by diacritic-insensitive name, then ID.
func SortIdentities(identities []Identity) {
	slices.SortStableFunc(identities, func(a, b Identity) int {
		if c := strings.Compare(nameKey(a.Name), nameKey(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
