// Package ingredient turns free-text ingredient phrases into comparable keys.
package ingredient

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases text, removes every rune that is not a letter, digit,
// underscore or whitespace, collapses whitespace runs and trims the result.
// It matches how normalized_ingredient is stored in the recipe database.
// The result is NFC, also where dropped punctuation separated a base letter
// from its combining mark, so Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	text = strings.ToLower(norm.NFC.String(text))

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return norm.NFC.String(strings.Join(strings.Fields(b.String()), " "))
}

// NormalizeAll applies Normalize to every term and drops the ones that end up empty.
func NormalizeAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if n := Normalize(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}
