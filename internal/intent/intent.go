// Package intent classifies questions by topic and detects requests for a
// personal binding ruling, which the answer pipeline must never issue.
package intent

import (
	"strings"

	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/textutil"
)

type topicRule struct {
	topic    model.IntentTopic
	keywords []string
}

type tagRule struct {
	tag      string
	keywords []string
}

// Classifier matches normalized keywords. Rules are checked in order and
// the first match wins, so specific issue tags precede the umbrella tags
// (wudu, taharah) that questions about them usually mention too.
type Classifier struct {
	topics []topicRule
	tags   []tagRule
	safety []string
}

// NewClassifier creates a classifier with the built-in keyword lists
func NewClassifier() *Classifier {
	c := &Classifier{
		topics: []topicRule{
			{model.IntentFiqh, []string{"wudu", "وضوء", "طهارة", "fiqh", "حكم"}},
			{model.IntentAqidah, []string{"aqidah", "عقيدة", "iman", "إيمان"}},
			{model.IntentAkhlaq, []string{"akhlaq", "أخلاق", "adab", "تزكية"}},
			{model.IntentHistory, []string{"history", "سيرة", "تاريخ"}},
		},
		tags: []tagRule{
			{"basmala", []string{"basmala", "bismillah", "بسملة", "تسمية"}},
			{"touching", []string{"touching", "touch", "touches", "لمس"}},
			{"tayammum", []string{"tayammum", "تيمم"}},
			{"ghusl", []string{"ghusl", "غسل"}},
			{"wudu", []string{"wudu", "ablution", "وضوء"}},
			{"taharah", []string{"taharah", "purification", "طهارة"}},
			{"salah", []string{"salah", "prayer", "صلاة"}},
			{"sawm", []string{"sawm", "fasting", "صوم", "صيام"}},
			{"zakat", []string{"zakat", "زكاة"}},
			{"hajj", []string{"hajj", "pilgrimage", "حج"}},
		},
		safety: []string{
			"my divorce", "طلاقي", "specific fatwa", "fatwa", "فتوى",
			"personal ruling", "case-specific", "حالتي الشخصية",
		},
	}
	for i := range c.topics {
		c.topics[i].keywords = normalizeAll(c.topics[i].keywords)
	}
	for i := range c.tags {
		c.tags[i].keywords = normalizeAll(c.tags[i].keywords)
	}
	c.safety = normalizeAll(c.safety)
	return c
}

// Classify returns the intent of question. Keywords match whole words;
// an Arabic word also matches once an attached article or particle is
// removed. Multi-word phrases match on word boundaries.
func (c *Classifier) Classify(question string) model.Intent {
	q := newText(question)
	in := model.Intent{Topic: model.IntentLanguage}

	for _, rule := range c.topics {
		if q.match(rule.keywords) != "" {
			in.Topic = rule.topic
			break
		}
	}
	for _, rule := range c.tags {
		if q.match(rule.keywords) != "" {
			in.TopicTag = rule.tag
			break
		}
	}
	if phrase := q.match(c.safety); phrase != "" {
		in.PersonalRuling = true
		in.MatchedSafety = phrase
	}
	return in
}

// text is a normalized question indexed by word form
type text struct {
	padded string
	words  map[string]bool
}

func newText(question string) text {
	norm := textutil.Normalize(question)
	t := text{padded: " " + norm + " ", words: make(map[string]bool)}
	for _, w := range strings.Fields(norm) {
		for _, form := range textutil.WordForms(w) {
			t.words[form] = true
		}
	}
	return t
}

// match returns the first keyword present in t
func (t text) match(keywords []string) string {
	for _, k := range keywords {
		switch {
		case k == "":
		case strings.Contains(k, " "):
			if strings.Contains(t.padded, " "+k+" ") {
				return k
			}
		case t.words[k]:
			return k
		}
	}
	return ""
}

func normalizeAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = textutil.Normalize(w)
	}
	return out
}
