package validate

import (
	"strings"
	"testing"

	"github.com/nurpath/nurpath/internal/model"
)

func shafiiCard() model.EvidenceCard {
	text := "Touching a woman invalidates wudu according to the Shafi'i school."
	return model.EvidenceCard{
		PassageID:      "majmu-2-26",
		SourceType:     model.SourceFiqh,
		EnglishQuote:   text,
		CitationSpan:   text,
		RelevanceScore: 0.5,
	}
}

func wuduCard() model.EvidenceCard {
	return model.EvidenceCard{
		PassageID:      "quran-5-6",
		SourceType:     model.SourceQuran,
		ArabicQuote:    "يا أيها الذين آمنوا إذا قمتم إلى الصلاة فاغسلوا وجوهكم",
		EnglishQuote:   "O you who believe, when you rise to pray, wash your faces and your hands up to the elbows.",
		CitationSpan:   "O you who believe, when you rise to pray, wash your faces and your hands up to the elbows",
		RelevanceScore: 0.7,
	}
}

// majmuCard carries a translation whose wording negates a qualifier the
// Arabic states without negation
func majmuCard() model.EvidenceCard {
	english := "Touching a woman who is not a close relative invalidates wudu according to the Shafi'i school."
	return model.EvidenceCard{
		PassageID:      "majmu-2-26",
		SourceType:     model.SourceFiqh,
		ArabicQuote:    "مس المرأة الأجنبية ينقض الوضوء عند الشافعية",
		EnglishQuote:   english,
		CitationSpan:   english,
		RelevanceScore: 0.5,
	}
}

func TestGate_Passes(t *testing.T) {
	g := NewGate(nil, nil)
	draft := "Touching a woman invalidates wudu according to the Shafi'i school [majmu-2-26]. And Allah knows best."

	got := g.Validate(draft, []model.EvidenceCard{shafiiCard()}, model.Intent{Topic: model.IntentFiqh}, model.DefaultThresholds())
	if !got.Passed || got.Reason != model.ReasonPassed {
		t.Fatalf("result = %+v, want passed", got)
	}
	if got.Citation.TotalClaims != 1 {
		t.Errorf("total claims = %d, want 1 (connective is not factual)", got.Citation.TotalClaims)
	}
	if got.Citation.Coverage != 1 {
		t.Errorf("coverage = %v, want 1", got.Citation.Coverage)
	}
	if got.Faithfulness.Score != 1 {
		t.Errorf("faithfulness = %v, want 1", got.Faithfulness.Score)
	}
}

func TestGate_VerbatimSpansCoverFully(t *testing.T) {
	cards := []model.EvidenceCard{shafiiCard(), wuduCard()}
	var parts []string
	for _, c := range cards {
		parts = append(parts, strings.TrimSuffix(c.CitationSpan, ".")+".")
	}

	check := CheckCitations(strings.Join(parts, " "), cards, model.DefaultThresholds())
	if check.Coverage != 1 || !check.Passed {
		t.Errorf("coverage = %v passed = %v, want full coverage", check.Coverage, check.Passed)
	}
	if check.MappedClaims != 2 {
		t.Errorf("mapped = %d, want 2", check.MappedClaims)
	}
}

func TestGate_SafetyOverridesEverything(t *testing.T) {
	g := NewGate(nil, nil)
	draft := "Touching a woman invalidates wudu according to the Shafi'i school."
	in := model.Intent{Topic: model.IntentFiqh, PersonalRuling: true, MatchedSafety: "fatwa"}

	got := g.Validate(draft, []model.EvidenceCard{shafiiCard()}, in, model.DefaultThresholds())
	if got.Passed {
		t.Fatal("expected safety policy to block the answer")
	}
	if got.Reason != model.ReasonAbstainedBySafety || !got.SafetyTriggered {
		t.Errorf("reason = %s safety = %v", got.Reason, got.SafetyTriggered)
	}
	if !got.Citation.Passed || !got.Grounding.Passed || !got.Faithfulness.Passed {
		t.Errorf("sub-results should still be computed and pass: %+v", got)
	}
}

func TestGate_ReasonPrecedence(t *testing.T) {
	g := NewGate(nil, nil)
	card := shafiiCard()
	draft := card.CitationSpan

	tests := []struct {
		name   string
		adjust func(*model.Thresholds)
		want   model.DecisionReason
	}{
		{"all pass", func(*model.Thresholds) {}, model.ReasonPassed},
		{"grounding", func(th *model.Thresholds) { th.Grounding = 1 }, model.ReasonGroundingBelow},
		{"faithfulness", func(th *model.Thresholds) { th.Faithfulness = 1.01 }, model.ReasonFaithfulnessBelow},
		{"citation before grounding", func(th *model.Thresholds) {
			th.CitationMinCoverage = 1.01
			th.Grounding = 1
		}, model.ReasonCitationIntegrity},
	}
	for _, tt := range tests {
		th := model.DefaultThresholds()
		tt.adjust(&th)
		got := g.Validate(draft, []model.EvidenceCard{card}, model.Intent{}, th)
		if got.Reason != tt.want {
			t.Errorf("%s: reason = %s, want %s", tt.name, got.Reason, tt.want)
		}
		if got.Passed != (tt.want == model.ReasonPassed) {
			t.Errorf("%s: passed = %v", tt.name, got.Passed)
		}
	}
}

func TestGate_NoEvidence(t *testing.T) {
	g := NewGate(nil, nil)
	got := g.Validate("Wudu requires washing the face.", nil, model.Intent{}, model.DefaultThresholds())

	if got.Passed || got.Reason != model.ReasonCitationIntegrity {
		t.Errorf("result = %+v, want citation failure", got)
	}
	if got.Citation.Coverage != 0 || got.Grounding.Score != 0 || got.Faithfulness.Score != 0 {
		t.Errorf("scores should be zero without evidence: %+v", got)
	}
	if len(got.Citation.Unmapped) != 1 {
		t.Errorf("unmapped = %v, want the one claim", got.Citation.Unmapped)
	}
}

func TestGate_EmptyDraft(t *testing.T) {
	g := NewGate(nil, nil)
	got := g.Validate("", []model.EvidenceCard{shafiiCard()}, model.Intent{}, model.DefaultThresholds())
	if got.Passed || got.Reason != model.ReasonCitationIntegrity {
		t.Errorf("result = %+v, want citation failure for empty draft", got)
	}
}

func TestGate_UnsupportedClaim(t *testing.T) {
	g := NewGate(nil, nil)
	draft := "Touching a woman invalidates wudu according to the Shafi'i school. Eating camel meat requires a full bath."

	got := g.Validate(draft, []model.EvidenceCard{shafiiCard()}, model.Intent{}, model.DefaultThresholds())
	if got.Citation.Coverage != 0.5 {
		t.Errorf("coverage = %v, want 0.5", got.Citation.Coverage)
	}
	if got.Reason != model.ReasonCitationIntegrity {
		t.Errorf("reason = %s, want citation_integrity_failed", got.Reason)
	}
}

func TestFaithfulness_NegationMismatch(t *testing.T) {
	g := NewGate(nil, nil)
	draft := "Touching a woman does not invalidate wudu according to the Shafi'i school."

	got := g.Validate(draft, []model.EvidenceCard{shafiiCard()}, model.Intent{}, model.DefaultThresholds())
	if !got.Citation.Passed {
		t.Fatalf("claim should still map to the card: %+v", got.Citation)
	}
	if got.Faithfulness.Passed {
		t.Errorf("faithfulness = %v, want below threshold for contradicted claim", got.Faithfulness.Score)
	}
	if got.Reason != model.ReasonFaithfulnessBelow {
		t.Errorf("reason = %s, want faithfulness_below_threshold", got.Reason)
	}
}

func TestFaithfulness_UnsupportedQuantifier(t *testing.T) {
	cards := []model.EvidenceCard{shafiiCard()}
	th := model.DefaultThresholds()

	plain := Faithfulness("Touching a woman invalidates wudu according to the Shafi'i school.", cards, th)
	quantified := Faithfulness("Touching a woman always invalidates wudu according to the Shafi'i school.", cards, th)
	if quantified >= plain {
		t.Errorf("quantified = %v, want below plain %v", quantified, plain)
	}
}

func TestGrounding(t *testing.T) {
	cards := []model.EvidenceCard{wuduCard()}

	if got := Grounding("anything", nil); got != 0 {
		t.Errorf("no cards: %v, want 0", got)
	}
	high := Grounding("Wash your faces and your hands up to the elbows [quran-5-6].", cards)
	low := Grounding("Fasting in Ramadan is a pillar.", cards)
	if high <= low {
		t.Errorf("grounded draft %v should beat ungrounded %v", high, low)
	}
	if high > 1 || low < 0 {
		t.Errorf("scores out of range: %v %v", high, low)
	}
	if want := 0.35 * 0.7; low < want-1e-4 || low > want+1e-4 {
		t.Errorf("ungrounded score = %v, want relevance share %v", low, want)
	}
}

func TestFaithfulness_VerbatimQuoteInEitherLanguage(t *testing.T) {
	card := majmuCard()
	cards := []model.EvidenceCard{card}
	th := model.DefaultThresholds()

	for _, draft := range []string{
		card.ArabicQuote + " [majmu-2-26].",
		card.EnglishQuote + " [majmu-2-26]",
	} {
		if got := Faithfulness(draft, cards, th); got != 1 {
			t.Errorf("Faithfulness(%q) = %v, want 1", draft, got)
		}
	}

	negatedArabic := "مس المرأة الأجنبية لا ينقض الوضوء عند الشافعية."
	if got := Faithfulness(negatedArabic, cards, th); got >= 0.5 {
		t.Errorf("Faithfulness(negated arabic) = %v, want the negation penalty applied", got)
	}
}

func TestNegated(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"touching does not invalidate wudu", true},
		{"لا ينقض الوضوء", true},
		{"ولا وضوء له", true},
		{"فلا يجب", true},
		{"مس المراة ينقض الوضوء", false},
		{"لمس المراة", false},
		{"touching invalidates wudu", false},
	}
	for _, tt := range tests {
		if got := negated(strings.Fields(tt.text)); got != tt.want {
			t.Errorf("negated(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
