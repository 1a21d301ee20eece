// Package ikhtilaf classifies retrieved evidence as scholarly consensus,
// disagreement, or insufficient for either.
package ikhtilaf

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/nurpath/nurpath/internal/extract"
	"github.com/nurpath/nurpath/internal/model"
)

const summaryLimit = 160

var arabicTopics = map[string]string{
	"basmala":  "البسملة",
	"fiqh":     "الفقه",
	"general":  "المسألة",
	"ghusl":    "الغسل",
	"hajj":     "الحج",
	"salah":    "الصلاة",
	"sawm":     "الصيام",
	"taharah":  "الطهارة",
	"tayammum": "التيمم",
	"touching": "اللمس",
	"wudu":     "الوضوء",
	"zakat":    "الزكاة",
}

// Classifier extracts stances from evidence cards and analyzes them
type Classifier struct {
	stances *extract.StanceExtractor
}

// NewClassifier creates a classifier with the default stance extractor
func NewClassifier() *Classifier {
	return &Classifier{stances: extract.NewStanceExtractor()}
}

// Compare extracts the stances supported by cards and classifies them.
// The returned stances put madhhab first when it is present.
func (c *Classifier) Compare(cards []model.EvidenceCard, topicHint string, lang model.Language, madhhab string) ([]model.OpinionStance, model.IkhtilafAnalysis) {
	stances := c.stances.Extract(cards, topicHint, lang)
	analysis := Analyze(cards, stances, lang)
	return PreferSchool(stances, madhhab), analysis
}

// group is the set of stances attributed to one topic, at most one per school
type group struct {
	topic   string
	order   []string
	schools map[string]*model.OpinionStance
}

// Analyze classifies stances. When cards is non-empty, evidence ids outside
// it are ignored and a stance left without evidence does not count. Only
// stance categories are compared, never their prose.
func Analyze(cards []model.EvidenceCard, stances []model.OpinionStance, lang model.Language) model.IkhtilafAnalysis {
	groups := groupStances(filterEvidence(cards, stances))

	analysis := model.IkhtilafAnalysis{
		Status:        model.IkhtilafInsufficient,
		Topic:         "general",
		Schools:       []string{},
		ConflictPairs: []model.ConflictPair{},
	}
	if len(groups) > 0 {
		analysis.Topic = groups[0].topic
	}

	var compared *group
	for _, g := range groups {
		if len(g.order) < 2 {
			continue
		}
		if compared == nil {
			compared = g
		}
		for i := 0; i < len(g.order); i++ {
			for j := i + 1; j < len(g.order); j++ {
				left, right := g.schools[g.order[i]], g.schools[g.order[j]]
				if left.Category == right.Category {
					continue
				}
				if len(analysis.ConflictPairs) == 0 {
					compared = g
				}
				analysis.ConflictPairs = append(analysis.ConflictPairs, model.ConflictPair{
					Topic:         g.topic,
					Left:          label(left, lang),
					LeftCategory:  left.Category,
					Right:         label(right, lang),
					RightCategory: right.Category,
					EvidenceIDs:   union(left.EvidenceIDs, right.EvidenceIDs),
				})
			}
		}
	}

	switch {
	case compared == nil:
		analysis.Status = model.IkhtilafInsufficient
	case len(analysis.ConflictPairs) > 0:
		analysis.Status = model.IkhtilafDisagreement
	default:
		analysis.Status = model.IkhtilafConsensus
	}
	if compared != nil {
		analysis.Topic = compared.topic
		for _, school := range compared.order {
			analysis.Schools = append(analysis.Schools, label(compared.schools[school], lang))
		}
		analysis.Summary = summarize(analysis.Status, compared, lang)
	} else {
		analysis.Summary = summarize(analysis.Status, nil, lang)
	}
	return analysis
}

// PreferSchool returns stances with the madhhab school first and marked
// preferred. The relative order of the others is kept.
func PreferSchool(stances []model.OpinionStance, madhhab string) []model.OpinionStance {
	out := make([]model.OpinionStance, 0, len(stances))
	madhhab = strings.ToLower(strings.TrimSpace(madhhab))
	if madhhab == "" {
		return append(out, stances...)
	}
	var rest []model.OpinionStance
	for _, s := range stances {
		if s.School == madhhab {
			s.Preferred = true
			out = append(out, s)
		} else {
			rest = append(rest, s)
		}
	}
	return append(out, rest...)
}

func filterEvidence(cards []model.EvidenceCard, stances []model.OpinionStance) []model.OpinionStance {
	if len(cards) == 0 {
		return stances
	}
	known := make(map[string]bool, len(cards))
	for _, c := range cards {
		known[c.PassageID] = true
	}
	out := make([]model.OpinionStance, 0, len(stances))
	for _, s := range stances {
		var ids []string
		for _, id := range s.EvidenceIDs {
			if known[id] {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		s.EvidenceIDs = ids
		out = append(out, s)
	}
	return out
}

// groupStances buckets stances by topic in first-seen order. A school that
// appears twice on a topic with different categories is dropped from it.
func groupStances(stances []model.OpinionStance) []*group {
	var groups []*group
	byTopic := make(map[string]*group)
	conflicted := make(map[string]bool)

	for _, s := range stances {
		if s.School == "" || s.Category == model.StanceUnclear {
			continue
		}
		topic := strings.ToLower(strings.TrimSpace(s.Topic))
		if topic == "" {
			topic = "general"
		}
		g := byTopic[topic]
		if g == nil {
			g = &group{topic: topic, schools: make(map[string]*model.OpinionStance)}
			byTopic[topic] = g
			groups = append(groups, g)
		}
		key := topic + "\x00" + s.School
		if conflicted[key] {
			continue
		}
		prev, ok := g.schools[s.School]
		switch {
		case !ok:
			stance := s
			g.schools[s.School] = &stance
			g.order = append(g.order, s.School)
		case prev.Category == s.Category:
			prev.EvidenceIDs = union(prev.EvidenceIDs, s.EvidenceIDs)
		default:
			conflicted[key] = true
			delete(g.schools, s.School)
			g.order = remove(g.order, s.School)
		}
	}
	return groups
}

func summarize(status model.IkhtilafStatus, g *group, lang model.Language) string {
	if status == model.IkhtilafInsufficient || g == nil {
		if lang == model.LangArabic {
			return "لا توجد أدلة كافية عبر مدارس متعددة للحكم باتفاق أو اختلاف."
		}
		return "Not enough cross-school evidence to classify consensus or disagreement."
	}

	first := g.schools[g.order[0]]
	example := fmt.Sprintf("%s: %s", label(first, lang), truncate(first.Summary))

	if lang == model.LangArabic {
		topic := arabicTopics[g.topic]
		if topic == "" {
			topic = g.topic
		}
		if status == model.IkhtilafDisagreement {
			return fmt.Sprintf("اختلفت المذاهب في %s. %s", topic, example)
		}
		return fmt.Sprintf("اتفقت المذاهب المذكورة في %s. %s", topic, example)
	}

	topic := strings.ReplaceAll(g.topic, "_", " ")
	if status == model.IkhtilafDisagreement {
		return fmt.Sprintf("Schools differ on %s. %s", topic, example)
	}
	return fmt.Sprintf("The cited schools agree on %s. %s", topic, example)
}

func label(s *model.OpinionStance, lang model.Language) string {
	if _, ok := model.LookupSchool(s.School); ok {
		return model.SchoolLabel(s.School, lang)
	}
	if s.SchoolLabel != "" {
		return s.SchoolLabel
	}
	return s.School
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= summaryLimit {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:summaryLimit])) + "…"
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range append(append([]string{}, a...), b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func remove(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
