package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds diacritics, lowercases, and collapses every run of
// non-alphanumeric characters into a single space. "Café  Del-Mar!" becomes
// "cafe del mar".
func Normalize(s string) string {
	folded := FoldDiacritics(s)
	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		if r == '\'' || r == '’' {
			continue
		}
		space = true
	}
	return b.String()
}

// FoldDiacritics decomposes s and strips combining marks.
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slugify builds a URL slug: normalized words joined by hyphens.
func Slugify(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "-")
}
