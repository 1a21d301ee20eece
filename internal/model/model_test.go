package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseAuthenticity(t *testing.T) {
	tests := []struct {
		in   string
		want AuthenticityLevel
	}{
		{"sahih", AuthenticityStrong},
		{"Qat'i", AuthenticityConclusive},
		{"mu_tabar", AuthenticityReliable},
		{"hasan", AuthenticityGood},
		{"", AuthenticityUnknown},
	}
	for _, tt := range tests {
		got, err := ParseAuthenticity(tt.in)
		if err != nil {
			t.Fatalf("ParseAuthenticity(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseAuthenticity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseAuthenticity("weak-ish"); err == nil {
		t.Error("expected error for unknown level")
	}
	if !(AuthenticityConclusive > AuthenticityStrong && AuthenticityStrong > AuthenticityGood && AuthenticityGood > AuthenticityReliable) {
		t.Error("authenticity levels are not ordered")
	}
}

func TestAuthenticityJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Level AuthenticityLevel `json:"level"`
	}{AuthenticityStrong})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"level":"sahih"}` {
		t.Errorf("got %s", b)
	}
}

func TestReferenceFieldsBuild(t *testing.T) {
	ref, err := ReferenceFields{Surah: 5, AyahStart: 6}.Build(SourceQuran)
	if err != nil {
		t.Fatalf("quran: %v", err)
	}
	if got := ref.Cite(LangEnglish); got != "Qur'an 5:6" {
		t.Errorf("Cite = %q", got)
	}
	if ref.SourceType() != SourceQuran {
		t.Errorf("SourceType = %s", ref.SourceType())
	}

	hadith, err := ReferenceFields{Collection: "Sahih al-Bukhari", Book: "4", Number: "135"}.Build(SourceHadith)
	if err != nil {
		t.Fatalf("hadith: %v", err)
	}
	if got := hadith.Cite(LangEnglish); got != "Sahih al-Bukhari, Book 4, #135" {
		t.Errorf("Cite = %q", got)
	}

	// A hadith reference cannot satisfy a fiqh source
	if _, err := (ReferenceFields{Collection: "Muslim", Number: "1"}).Build(SourceFiqh); err == nil {
		t.Error("expected error for fiqh reference without book/page")
	}
	if _, err := (ReferenceFields{Surah: 200, AyahStart: 1}).Build(SourceQuran); err == nil {
		t.Error("expected error for surah out of range")
	}
	if _, err := (ReferenceFields{}).Build(SourceType("tafsir")); err == nil {
		t.Error("expected error for unknown source type")
	}
}

func TestSourcePriorityOrder(t *testing.T) {
	cfg := RetrievalConfig{SourcePriority: []string{"hadith"}}
	got := cfg.SourcePriorityOrder()
	want := []SourceType{SourceHadith, SourceQuran, SourceFiqh}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.Retrieval.Lambda = 1
	if err := cfg.Validate(); err == nil {
		t.Error("lambda of 1 must be rejected: lexical weight would be zero")
	}

	cfg = DefaultConfig()
	cfg.Retrieval.SourcePriority = []string{"quran", "quran"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Index.Backend = "pinecone"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestPassageText(t *testing.T) {
	p := Passage{EnglishText: "Wash your faces", ArabicText: "فاغسلوا وجوهكم"}
	if p.Text(LangArabic) != "فاغسلوا وجوهكم" {
		t.Error("expected arabic text")
	}
	if p.Text(LangEnglish) != "Wash your faces" {
		t.Error("expected english text")
	}
	p.ArabicText = ""
	if p.Text(LangArabic) != "Wash your faces" {
		t.Error("expected fallback to english")
	}
	if ParseLanguage(" AR ") != LangArabic || ParseLanguage("fr") != LangEnglish {
		t.Error("ParseLanguage mismatch")
	}
}
