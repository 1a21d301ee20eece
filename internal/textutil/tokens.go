package textutil

import (
	"strings"
	"unicode/utf8"
)

// stopwords are excluded from content tokens in both languages
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "and": true, "or": true,
	"but": true, "if": true, "then": true, "than": true, "so": true,
	"as": true, "at": true, "by": true, "for": true, "from": true,
	"in": true, "into": true, "of": true, "on": true, "to": true,
	"with": true, "about": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "your": true, "we": true, "they": true, "he": true,
	"she": true, "her": true, "him": true, "us": true, "them": true,
	"tell": true, "there": true, "these": true, "those": true, "any": true,
	"في": true, "من": true, "على": true, "الى": true, "عن": true,
	"ما": true, "ماذا": true, "هل": true, "هو": true, "هي": true,
	"هذا": true, "هذه": true, "ذلك": true, "التي": true, "الذي": true,
	"او": true, "ثم": true, "مع": true, "كان": true, "ان": true,
}

// Tokens splits normalized text into words
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// ContentTokens returns unique content-bearing tokens in first-seen order:
// stopwords and single-rune tokens are dropped and the Arabic definite
// article is stripped from longer words.
func ContentTokens(text string) []string {
	words := Tokens(text)
	seen := make(map[string]bool, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < 2 || stopwords[w] {
			continue
		}
		w = stripArticle(w)
		if stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// TokenSet returns the content tokens of text as a set
func TokenSet(text string) map[string]struct{} {
	tokens := ContentTokens(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// IsStopword reports whether a normalized word is a stopword
func IsStopword(w string) bool {
	return stopwords[w]
}

func stripArticle(w string) string {
	for _, prefix := range []string{"وال", "بال", "فال", "ال"} {
		if strings.HasPrefix(w, prefix) && utf8.RuneCountInString(w)-utf8.RuneCountInString(prefix) >= 3 {
			return strings.TrimPrefix(w, prefix)
		}
	}
	return w
}

// attached lists Arabic particles written joined to the following word,
// longest first
var attached = []string{"وال", "بال", "فال", "كال", "لل", "ال", "و", "ف", "ب", "ل"}

// WordForms returns a normalized word followed by the forms left after
// removing one attached particle. Remainders shorter than two runes are
// skipped.
func WordForms(w string) []string {
	forms := []string{w}
	for _, prefix := range attached {
		if strings.HasPrefix(w, prefix) && utf8.RuneCountInString(w)-utf8.RuneCountInString(prefix) >= 2 {
			forms = append(forms, strings.TrimPrefix(w, prefix))
		}
	}
	return forms
}
