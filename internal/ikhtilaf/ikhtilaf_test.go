package ikhtilaf

import (
	"strings"
	"testing"

	"github.com/nurpath/nurpath/internal/model"
)

func stance(school string, category model.StanceCategory, ids ...string) model.OpinionStance {
	return model.OpinionStance{
		School:      school,
		SchoolLabel: model.SchoolLabel(school, model.LangEnglish),
		Topic:       "wudu",
		Category:    category,
		Summary:     school + " position on touching and wudu",
		EvidenceIDs: ids,
	}
}

func fiqhCard(id, school, english string) model.EvidenceCard {
	return model.EvidenceCard{
		PassageID:    id,
		SourceID:     school + "-book",
		SourceType:   model.SourceFiqh,
		Reference:    model.FiqhReference{Book: "Book", Volume: 1, Page: 10, School: school},
		EnglishQuote: english,
		CitationSpan: english,
		TopicTags:    []string{"wudu", school},
	}
}

func TestAnalyzeInsufficient(t *testing.T) {
	tests := []struct {
		name    string
		stances []model.OpinionStance
	}{
		{"none", nil},
		{"one", []model.OpinionStance{stance("hanafi", model.StanceNegative, "a")}},
		{"same school twice", []model.OpinionStance{
			stance("hanafi", model.StanceNegative, "a"),
			stance("hanafi", model.StanceNegative, "b"),
		}},
		{"unclear does not count", []model.OpinionStance{
			stance("hanafi", model.StanceNegative, "a"),
			stance("shafii", model.StanceUnclear, "b"),
		}},
	}

	for _, tt := range tests {
		got := Analyze(nil, tt.stances, model.LangEnglish)
		if got.Status != model.IkhtilafInsufficient {
			t.Errorf("%s: status = %s, want insufficient", tt.name, got.Status)
		}
		if len(got.ConflictPairs) != 0 {
			t.Errorf("%s: conflict pairs = %d, want 0", tt.name, len(got.ConflictPairs))
		}
		again := Analyze(nil, tt.stances, model.LangEnglish)
		if again.Status != got.Status {
			t.Errorf("%s: re-analysis changed status to %s", tt.name, again.Status)
		}
	}
}

func TestAnalyzeDisagreement(t *testing.T) {
	stances := []model.OpinionStance{
		stance("hanafi", model.StanceNegative, "hidayah-1-15"),
		stance("shafii", model.StanceAffirmative, "majmu-2-26"),
	}
	got := Analyze(nil, stances, model.LangEnglish)

	if got.Status != model.IkhtilafDisagreement {
		t.Fatalf("status = %s, want disagreement", got.Status)
	}
	if len(got.ConflictPairs) != 1 {
		t.Fatalf("conflict pairs = %d, want 1", len(got.ConflictPairs))
	}
	pair := got.ConflictPairs[0]
	if pair.Left != "Hanafi" || pair.Right != "Shafi'i" {
		t.Errorf("pair = %s/%s, want Hanafi/Shafi'i", pair.Left, pair.Right)
	}
	if pair.LeftCategory != model.StanceNegative || pair.RightCategory != model.StanceAffirmative {
		t.Errorf("pair categories = %s/%s", pair.LeftCategory, pair.RightCategory)
	}
	if len(pair.EvidenceIDs) != 2 {
		t.Errorf("pair evidence = %v, want both ids", pair.EvidenceIDs)
	}
	if pair.Topic != "wudu" || got.Topic != "wudu" {
		t.Errorf("topic = %s/%s, want wudu", pair.Topic, got.Topic)
	}
	if !strings.Contains(got.Summary, "Hanafi") {
		t.Errorf("summary %q does not name a stance", got.Summary)
	}
}

func TestAnalyzeConsensusIgnoresProse(t *testing.T) {
	a := stance("maliki", model.StanceAffirmative, "x")
	b := stance("hanbali", model.StanceAffirmative, "y")
	b.Summary = a.Summary

	got := Analyze(nil, []model.OpinionStance{a, b}, model.LangEnglish)
	if got.Status != model.IkhtilafConsensus {
		t.Fatalf("status = %s, want consensus", got.Status)
	}
	if len(got.Schools) != 2 {
		t.Errorf("schools = %v, want 2", got.Schools)
	}
	if !strings.Contains(got.Summary, "Maliki") {
		t.Errorf("summary %q does not name a stance", got.Summary)
	}
}

func TestAnalyzeGroupsByTopic(t *testing.T) {
	a := stance("hanafi", model.StanceNegative, "a")
	b := stance("shafii", model.StanceAffirmative, "b")
	b.Topic = "basmala"

	got := Analyze(nil, []model.OpinionStance{a, b}, model.LangEnglish)
	if got.Status != model.IkhtilafInsufficient {
		t.Errorf("stances on different topics: status = %s, want insufficient", got.Status)
	}
}

func TestAnalyzeFiltersEvidenceToCards(t *testing.T) {
	cards := []model.EvidenceCard{{PassageID: "a"}}
	stances := []model.OpinionStance{
		stance("hanafi", model.StanceNegative, "a"),
		stance("shafii", model.StanceAffirmative, "not-retrieved"),
	}
	got := Analyze(cards, stances, model.LangEnglish)
	if got.Status != model.IkhtilafInsufficient {
		t.Errorf("status = %s, want insufficient when one stance has no card", got.Status)
	}
}

func TestAnalyzeArabicSummary(t *testing.T) {
	stances := []model.OpinionStance{
		stance("hanafi", model.StanceNegative, "a"),
		stance("shafii", model.StanceAffirmative, "b"),
	}
	got := Analyze(nil, stances, model.LangArabic)
	if !strings.Contains(got.Summary, "الوضوء") || !strings.Contains(got.Summary, "الحنفية") {
		t.Errorf("arabic summary = %q", got.Summary)
	}
	if got.ConflictPairs[0].Left != "الحنفية" {
		t.Errorf("left label = %q, want arabic label", got.ConflictPairs[0].Left)
	}

	empty := Analyze(nil, nil, model.LangArabic)
	if empty.Summary != "لا توجد أدلة كافية عبر مدارس متعددة للحكم باتفاق أو اختلاف." {
		t.Errorf("insufficient summary = %q", empty.Summary)
	}
}

func TestCompare(t *testing.T) {
	cards := []model.EvidenceCard{
		fiqhCard("hidayah-1-15", "hanafi", "Touching a woman does not invalidate wudu according to the Hanafi school."),
		fiqhCard("majmu-2-26", "shafii", "Touching a woman invalidates wudu according to the Shafi'i school."),
		fiqhCard("mudawwana-1-13", "maliki", "Touching with desire invalidates wudu according to the Maliki school."),
	}

	stances, analysis := NewClassifier().Compare(cards, "wudu", model.LangEnglish, "shafii")
	if analysis.Status != model.IkhtilafDisagreement {
		t.Fatalf("status = %s, want disagreement", analysis.Status)
	}
	if len(analysis.ConflictPairs) != 2 {
		t.Errorf("conflict pairs = %d, want 2 (hanafi against each)", len(analysis.ConflictPairs))
	}
	if len(stances) != 3 {
		t.Fatalf("stances = %d, want 3", len(stances))
	}
	if stances[0].School != "shafii" || !stances[0].Preferred {
		t.Errorf("first stance = %+v, want preferred shafii", stances[0])
	}
	for _, s := range stances[1:] {
		if s.Preferred {
			t.Errorf("stance %s marked preferred", s.School)
		}
	}
}

func TestCompareKeepsIssuesApart(t *testing.T) {
	basmala := fiqhCard("hidayah-1-12", "hanafi", "Saying bismillah at the start of wudu is sunnah and is not obligatory.")
	basmala.TopicTags = []string{"fiqh", "wudu", "basmala", "hanafi"}
	touching := fiqhCard("majmu-2-26", "shafii", "Touching a non-mahram woman invalidates wudu.")
	touching.TopicTags = []string{"fiqh", "wudu", "touching", "shafii"}

	_, analysis := NewClassifier().Compare([]model.EvidenceCard{basmala, touching}, "wudu", model.LangEnglish, "")
	if analysis.Status == model.IkhtilafDisagreement {
		t.Fatalf("positions on different issues reported as disagreement: %+v", analysis.ConflictPairs)
	}
	if analysis.Status != model.IkhtilafInsufficient || len(analysis.ConflictPairs) != 0 {
		t.Errorf("analysis = %+v, want insufficient", analysis)
	}

	hanafiTouching := fiqhCard("hidayah-1-15", "hanafi", "Touching a woman does not invalidate wudu.")
	hanafiTouching.TopicTags = []string{"fiqh", "wudu", "touching", "hanafi"}
	_, analysis = NewClassifier().Compare([]model.EvidenceCard{basmala, touching, hanafiTouching}, "wudu", model.LangEnglish, "")
	if analysis.Status != model.IkhtilafDisagreement || analysis.Topic != "touching" {
		t.Fatalf("analysis = %s on %q, want disagreement on touching", analysis.Status, analysis.Topic)
	}
	for _, pair := range analysis.ConflictPairs {
		for _, id := range pair.EvidenceIDs {
			if id == "hidayah-1-12" {
				t.Errorf("basmala evidence %s cited in touching conflict %+v", id, pair)
			}
		}
	}
}

func TestPreferSchoolKeepsOrder(t *testing.T) {
	in := []model.OpinionStance{
		stance("hanafi", model.StanceNegative),
		stance("maliki", model.StanceAffirmative),
		stance("hanbali", model.StanceAffirmative),
	}
	got := PreferSchool(in, "")
	for i := range in {
		if got[i].School != in[i].School || got[i].Preferred {
			t.Errorf("no preference: position %d = %+v", i, got[i])
		}
	}

	got = PreferSchool(in, "hanbali")
	want := []string{"hanbali", "hanafi", "maliki"}
	for i, school := range want {
		if got[i].School != school {
			t.Errorf("position %d = %s, want %s", i, got[i].School, school)
		}
	}
	if in[2].Preferred {
		t.Error("input slice was modified")
	}
}
