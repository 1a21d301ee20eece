package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/textutil"
)

// noiseTags never name an issue
var noiseTags = map[string]bool{
	"ikhtilaf": true, "fiqh": true, "aqidah": true, "akhlaq": true,
	"history": true, "general": true, "comparative": true,
	"quran": true, "sunnah": true, "hadith": true,
}

// umbrellaTags name a chapter of rulings rather than a single issue
var umbrellaTags = map[string]bool{
	"wudu": true, "taharah": true, "salah": true, "sawm": true,
	"zakat": true, "hajj": true,
}

// StanceExtractor attributes evidence cards to schools and reads the
// categorical position each school takes
type StanceExtractor struct {
	negative []string
	positive []string
}

// NewStanceExtractor creates a stance extractor with the default phrase lists
func NewStanceExtractor() *StanceExtractor {
	return &StanceExtractor{
		negative: normalizeAll([]string{
			"does not invalidate", "do not invalidate", "does not nullify", "do not nullify",
			"does not break", "do not break", "is not obligatory", "not obligatory",
			"is not required", "not required", "is not valid", "not necessary",
			"لا ينقض", "لا تنقض", "لا يبطل", "لا يجب", "غير واجب", "ليس بواجب",
		}),
		positive: normalizeAll([]string{
			"invalidates", "invalidate", "nullifies", "nullify", "breaks", "is obligatory",
			"obligatory", "is required", "must", "is necessary",
			"ينقض", "تنقض", "يبطل", "يجب", "واجب",
		}),
	}
}

// Extract returns at most one stance per school and issue, ordered by issue
// as first seen in cards and then by school. Each card's issue comes from its
// own tags (see CardTopic). When topicHint names a specific issue that some
// attributed card speaks to, stances on other issues are dropped. A school
// whose evidence on an issue is contradictory or carries no recognizable
// position is left out of it.
func (e *StanceExtractor) Extract(cards []model.EvidenceCard, topicHint string, lang model.Language) []model.OpinionStance {
	type acc struct {
		categories map[model.StanceCategory]bool
		cards      []model.EvidenceCard
	}
	byTopic := make(map[string]map[string]*acc)
	var topics []string

	for _, card := range cards {
		school := detectSchool(card)
		if school == "" {
			continue
		}
		topic := CardTopic(card, topicHint)
		bySchool, ok := byTopic[topic]
		if !ok {
			bySchool = make(map[string]*acc)
			byTopic[topic] = bySchool
			topics = append(topics, topic)
		}
		a := bySchool[school]
		if a == nil {
			a = &acc{categories: make(map[model.StanceCategory]bool)}
			bySchool[school] = a
		}
		a.categories[e.detectCategory(card)] = true
		a.cards = append(a.cards, card)
	}
	if hint := strings.ToLower(strings.TrimSpace(topicHint)); hint != "" && !umbrellaTags[hint] {
		if _, ok := byTopic[hint]; ok {
			topics = []string{hint}
		}
	}

	var stances []model.OpinionStance
	for _, topic := range topics {
		for _, school := range model.Schools {
			a, ok := byTopic[topic][school.Key]
			if !ok {
				continue
			}
			category := mergeCategories(a.categories)
			if category == model.StanceUnclear {
				continue
			}
			ids := make([]string, 0, len(a.cards))
			for _, c := range a.cards {
				ids = append(ids, c.PassageID)
			}
			stances = append(stances, model.OpinionStance{
				School:      school.Key,
				SchoolLabel: model.SchoolLabel(school.Key, lang),
				Topic:       topic,
				Category:    category,
				Summary:     snippet(a.cards[0], lang),
				EvidenceIDs: ids,
			})
		}
	}
	return stances
}

func (e *StanceExtractor) detectCategory(card model.EvidenceCard) model.StanceCategory {
	text := " " + textutil.Normalize(card.EnglishQuote+" . "+card.ArabicQuote) + " "
	for _, phrase := range e.negative {
		if strings.Contains(text, " "+phrase+" ") {
			return model.StanceNegative
		}
	}
	for _, phrase := range e.positive {
		if strings.Contains(text, " "+phrase+" ") {
			return model.StanceAffirmative
		}
	}
	return model.StanceUnclear
}

// mergeCategories collapses one school's evidence to a single category:
// unclear yields to an explicit position, and conflicting explicit
// positions become unclear
func mergeCategories(categories map[model.StanceCategory]bool) model.StanceCategory {
	aff, neg := categories[model.StanceAffirmative], categories[model.StanceNegative]
	switch {
	case aff && neg:
		return model.StanceUnclear
	case aff:
		return model.StanceAffirmative
	case neg:
		return model.StanceNegative
	}
	return model.StanceUnclear
}

// detectSchool attributes a card to a school from its tags, its reference,
// then its text
func detectSchool(card model.EvidenceCard) string {
	for _, tag := range card.TopicTags {
		if s := matchSchool(strings.ToLower(tag)); s != "" {
			return s
		}
	}
	if ref, ok := card.Reference.(model.FiqhReference); ok {
		if s := matchSchool(strings.ToLower(ref.School)); s != "" {
			return s
		}
	}
	normalized := " " + textutil.Normalize(card.EnglishQuote+" "+card.ArabicQuote) + " "
	tokens := textutil.TokenSet(normalized)
	for _, school := range model.Schools {
		for _, alias := range school.Aliases {
			if strings.Contains(alias, " ") {
				if strings.Contains(normalized, " "+alias+" ") {
					return school.Key
				}
			} else if _, ok := tokens[alias]; ok {
				return school.Key
			}
		}
	}
	return ""
}

func matchSchool(s string) string {
	if s == "" {
		return ""
	}
	for _, school := range model.Schools {
		if s == school.Key {
			return school.Key
		}
		for _, alias := range school.Aliases {
			if s == alias {
				return school.Key
			}
		}
	}
	return ""
}

// CardTopic names the issue a card speaks to. Noise, source and school tags
// are ignored, and a specific tag such as touching or basmala wins over an
// umbrella tag such as wudu. hint is used when the card carries it and the
// card has nothing more specific. A card with no usable tag is "general".
func CardTopic(card model.EvidenceCard, hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	var specific, umbrella string
	carriesHint := false
	for _, t := range card.TopicTags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || noiseTags[t] || matchSchool(t) != "" {
			continue
		}
		if t == hint {
			carriesHint = true
		}
		switch {
		case umbrellaTags[t]:
			if umbrella == "" {
				umbrella = t
			}
		case specific == "":
			specific = t
		}
	}
	switch {
	case carriesHint && !umbrellaTags[hint]:
		return hint
	case specific != "":
		return specific
	case carriesHint:
		return hint
	case umbrella != "":
		return umbrella
	}
	return "general"
}

func snippet(card model.EvidenceCard, lang model.Language) string {
	text := card.CitationSpan
	if text == "" {
		text = card.Quote(lang)
	}
	const limit = 220
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:limit])) + "…"
}

func normalizeAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, textutil.Normalize(p))
	}
	return out
}
