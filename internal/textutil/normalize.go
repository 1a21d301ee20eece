// Package textutil holds the text normalization shared by retrieval,
// embedding and validation. All three must agree on it, so it lives in one
// place.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// newMarkStripper decomposes, drops combining marks (Arabic harakat,
// superscript alef, Latin accents) and recomposes. Transformers are
// stateful, so each call gets its own chain.
func newMarkStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize strips diacritics and punctuation, lowercases and collapses
// whitespace. Hamza-carrying alef forms fold to bare alef as a side effect
// of decomposition.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	stripped, _, err := transform.String(newMarkStripper(), text)
	if err != nil {
		stripped = text
	}

	var b strings.Builder
	b.Grow(len(stripped))
	space := true
	for _, r := range stripped {
		switch {
		case isElided(r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// isElided reports runes removed without leaving a word break
func isElided(r rune) bool {
	switch r {
	case tatweel, '\'', '`', '‘', '’', 'ʼ', 'ʾ', 'ʿ':
		return true
	}
	return false
}
