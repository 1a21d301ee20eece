package extract

import (
	"testing"

	"github.com/nurpath/nurpath/internal/model"
)

func fiqhCard(id, school, text string, tags ...string) model.EvidenceCard {
	return model.EvidenceCard{
		PassageID:    id,
		SourceType:   model.SourceFiqh,
		EnglishQuote: text,
		CitationSpan: text,
		TopicTags:    tags,
		Reference:    model.FiqhReference{Book: "Book", Page: 1, School: school},
	}
}

func TestStanceExtractor_DetectsSchoolsAndCategories(t *testing.T) {
	cards := []model.EvidenceCard{
		fiqhCard("f-hanafi", "", "Touching a woman does not invalidate wudu.", "fiqh", "wudu", "hanafi"),
		fiqhCard("f-shafii", "shafii", "Touching a non-mahram woman invalidates wudu.", "fiqh", "wudu"),
		fiqhCard("f-maliki", "", "The Maliki position is that touching with desire invalidates wudu.", "fiqh", "wudu"),
		{PassageID: "q-5-6", SourceType: model.SourceQuran, EnglishQuote: "Wash your faces.", TopicTags: []string{"wudu"}},
	}

	stances := NewStanceExtractor().Extract(cards, "wudu", model.LangEnglish)
	if len(stances) != 3 {
		t.Fatalf("Expected 3 stances, got %d: %+v", len(stances), stances)
	}

	want := map[string]model.StanceCategory{
		"hanafi": model.StanceNegative,
		"shafii": model.StanceAffirmative,
		"maliki": model.StanceAffirmative,
	}
	for _, s := range stances {
		if s.Category != want[s.School] {
			t.Errorf("%s: got %s, want %s", s.School, s.Category, want[s.School])
		}
		if s.Topic != "wudu" {
			t.Errorf("%s: topic = %q", s.School, s.Topic)
		}
	}
	if stances[0].School != "hanafi" || stances[0].SchoolLabel != "Hanafi" {
		t.Errorf("Expected stances in school order, got %s first", stances[0].School)
	}
}

func TestStanceExtractor_DropsContradictoryAndUnclear(t *testing.T) {
	cards := []model.EvidenceCard{
		fiqhCard("a", "hanbali", "Touching invalidates wudu.", "wudu"),
		fiqhCard("b", "hanbali", "Touching does not invalidate wudu.", "wudu"),
		fiqhCard("c", "maliki", "Scholars discussed this at length.", "wudu"),
	}
	if stances := NewStanceExtractor().Extract(cards, "", model.LangEnglish); len(stances) != 0 {
		t.Errorf("Expected no stances, got %+v", stances)
	}
}

func TestStanceExtractor_Arabic(t *testing.T) {
	cards := []model.EvidenceCard{
		{PassageID: "ar-1", ArabicQuote: "قال الحنفية: مس المرأة لا ينقض الوضوء", TopicTags: []string{"wudu"}},
	}
	stances := NewStanceExtractor().Extract(cards, "wudu", model.LangArabic)
	if len(stances) != 1 {
		t.Fatalf("Expected 1 stance, got %d", len(stances))
	}
	if stances[0].School != "hanafi" || stances[0].Category != model.StanceNegative {
		t.Errorf("Unexpected stance %+v", stances[0])
	}
	if stances[0].SchoolLabel != "الحنفية" {
		t.Errorf("Expected arabic label, got %q", stances[0].SchoolLabel)
	}
}

func TestCardTopic(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		hint string
		want string
	}{
		{"specific over umbrella", []string{"fiqh", "wudu", "touching", "hanafi"}, "", "touching"},
		{"specific over umbrella hint", []string{"fiqh", "wudu", "basmala", "hanafi"}, "wudu", "basmala"},
		{"specific hint", []string{"fiqh", "wudu", "tayammum", "touching", "quran"}, "touching", "touching"},
		{"umbrella only", []string{"fiqh", "wudu", "shafii"}, "wudu", "wudu"},
		{"hint not carried", []string{"fiqh", "wudu", "shafii"}, "touching", "wudu"},
		{"noise only", []string{"fiqh", "sunnah"}, "", "general"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CardTopic(model.EvidenceCard{TopicTags: tt.tags}, tt.hint); got != tt.want {
				t.Errorf("CardTopic = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStanceExtractor_SplitsIssues(t *testing.T) {
	cards := []model.EvidenceCard{
		fiqhCard("hidayah-1-12", "hanafi", "Saying bismillah at the start of wudu is sunnah and is not obligatory.", "fiqh", "wudu", "basmala", "hanafi"),
		fiqhCard("majmu-2-26", "shafii", "Touching a non-mahram woman invalidates wudu.", "fiqh", "wudu", "touching", "shafii"),
		fiqhCard("hidayah-1-15", "hanafi", "Touching a woman does not invalidate wudu.", "fiqh", "wudu", "touching", "hanafi"),
	}

	stances := NewStanceExtractor().Extract(cards, "wudu", model.LangEnglish)
	if len(stances) != 3 {
		t.Fatalf("Expected 3 stances, got %d: %+v", len(stances), stances)
	}
	want := []struct{ topic, school string }{
		{"basmala", "hanafi"},
		{"touching", "hanafi"},
		{"touching", "shafii"},
	}
	for i, w := range want {
		if stances[i].Topic != w.topic || stances[i].School != w.school {
			t.Errorf("stance %d = %s/%s, want %s/%s", i, stances[i].Topic, stances[i].School, w.topic, w.school)
		}
	}
	if got := stances[0].EvidenceIDs; len(got) != 1 || got[0] != "hidayah-1-12" {
		t.Errorf("basmala stance evidence = %v", got)
	}

	stances = NewStanceExtractor().Extract(cards, "basmala", model.LangEnglish)
	if len(stances) != 1 || stances[0].Topic != "basmala" || stances[0].School != "hanafi" {
		t.Errorf("basmala hint: got %+v, want the hanafi basmala stance only", stances)
	}
}
