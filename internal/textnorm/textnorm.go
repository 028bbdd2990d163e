// Package textnorm folds human-typed spreadsheet labels into a comparable
// form: no accents, lower case, single spaces between alphanumeric words.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents removes combining marks ("Aprovação" -> "Aprovacao").
func StripAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold strips accents, lowercases and trims s.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(StripAccents(s)))
}

// NormalizeLabel folds s and collapses every run of non-alphanumeric
// characters into a single space.
func NormalizeLabel(s string) string {
	folded := Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// HasPhrase reports whether the normalized label contains phrase on word
// boundaries. Both arguments must already be normalized.
func HasPhrase(label, phrase string) bool {
	if label == "" || phrase == "" {
		return false
	}
	return strings.Contains(" "+label+" ", " "+phrase+" ")
}

// MatchAny returns the first pattern contained in label as a substring.
func MatchAny(label string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if p != "" && strings.Contains(label, p) {
			return p, true
		}
	}
	return "", false
}
