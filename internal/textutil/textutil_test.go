package textutil

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"english punctuation", "What are Wudu evidences, from Qur'an?", "what are wudu evidences from quran"},
		{"arabic diacritics", "فَاغْسِلُوا وُجُوهَكُمْ", "فاغسلوا وجوهكم"},
		{"hamza alef folds", "أحكام إسلام", "احكام اسلام"},
		{"tatweel", "الوضـــوء", "الوضوء"},
		{"accents", "Shāfiʿī", "shafii"},
		{"whitespace", "  a \t\n b  ", "a b"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestContentTokens(t *testing.T) {
	got := ContentTokens("What are the wudu evidences from the Quran and the wudu Sunnah?")
	want := []string{"wudu", "evidences", "quran", "sunnah"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ContentTokens = %v, want %v", got, want)
	}

	got = ContentTokens("هل ينقض لمس المرأة الوضوء")
	want = []string{"ينقض", "لمس", "مراة", "وضوء"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ContentTokens(arabic) = %v, want %v", got, want)
	}
}

func TestSplitSentences(t *testing.T) {
	text := "First claim. Second claim?\nالجملة الثالثة؟ tail"
	spans := SplitSentences(text)
	want := []string{"First claim", "Second claim", "الجملة الثالثة", "tail"}
	if len(spans) != len(want) {
		t.Fatalf("got %d spans: %+v", len(spans), spans)
	}
	for i, s := range spans {
		if s.Text != want[i] {
			t.Errorf("span %d = %q, want %q", i, s.Text, want[i])
		}
		if text[s.Start:s.End] != s.Text {
			t.Errorf("span %d offsets do not match text", i)
		}
	}
}

func TestWordForms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"wudu", []string{"wudu"}},
		{"ولا", []string{"ولا", "لا"}},
		{"بالوضوء", []string{"بالوضوء", "وضوء", "الوضوء"}},
		{"حجة", []string{"حجة"}},
		{"لم", []string{"لم"}},
	}
	for _, tt := range tests {
		if got := WordForms(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("WordForms(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
