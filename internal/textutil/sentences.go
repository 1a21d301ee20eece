package textutil

import "strings"

// Span is a trimmed region of a larger text
type Span struct {
	Text  string
	Start int // Byte offset of Text in the original
	End   int
}

// isTerminator reports sentence-ending runes in English and Arabic
func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '\n', '؟', '؛':
		return true
	}
	return false
}

// SplitSentences splits text on sentence terminators, keeping byte offsets.
// Empty spans are dropped.
func SplitSentences(text string) []Span {
	var spans []Span
	start := 0
	emit := func(end int) {
		raw := text[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			offset := start + strings.Index(raw, trimmed)
			spans = append(spans, Span{Text: trimmed, Start: offset, End: offset + len(trimmed)})
		}
	}
	for i, r := range text {
		if isTerminator(r) {
			emit(i)
			start = i + len(string(r))
		}
	}
	if start < len(text) {
		emit(len(text))
	}
	return spans
}
