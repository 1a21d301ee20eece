package model

import (
	"fmt"
	"strings"
)

// Language is a content or UI language code
type Language string

const (
	LangEnglish Language = "en"
	LangArabic  Language = "ar"
)

// ParseLanguage maps a request language to a supported one, defaulting to English
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LangArabic)) {
		return LangArabic
	}
	return LangEnglish
}

// SourceType classifies a passage by its place in the evidentiary hierarchy
type SourceType string

const (
	SourceQuran  SourceType = "quran"  // Scripture, primary
	SourceHadith SourceType = "hadith" // Scripture, secondary
	SourceFiqh   SourceType = "fiqh"   // Juristic works
)

// DefaultSourcePriority orders source types for tie-breaking, highest first
var DefaultSourcePriority = []SourceType{SourceQuran, SourceHadith, SourceFiqh}

// Valid reports whether s is a known source type
func (s SourceType) Valid() bool {
	switch s {
	case SourceQuran, SourceHadith, SourceFiqh:
		return true
	}
	return false
}

// Tier returns the hierarchy label of the source type
func (s SourceType) Tier() string {
	switch s {
	case SourceQuran:
		return "scripture-primary"
	case SourceHadith:
		return "scripture-secondary"
	case SourceFiqh:
		return "juristic"
	default:
		return "unknown"
	}
}

// AuthenticityLevel is an ordered grading of a passage; higher is stronger
type AuthenticityLevel int

// Levels in ascending strength: mu'tabar, hasan, sahih, qat'i.
const (
	AuthenticityUnknown AuthenticityLevel = iota
	AuthenticityReliable
	AuthenticityGood
	AuthenticityStrong
	AuthenticityConclusive
)

func (a AuthenticityLevel) String() string {
	switch a {
	case AuthenticityReliable:
		return "mutabar"
	case AuthenticityGood:
		return "hasan"
	case AuthenticityStrong:
		return "sahih"
	case AuthenticityConclusive:
		return "conclusive"
	default:
		return "unknown"
	}
}

// ParseAuthenticity parses a grading name or one of its aliases
func ParseAuthenticity(s string) (AuthenticityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conclusive", "qati", "qat'i", "mutawatir":
		return AuthenticityConclusive, nil
	case "sahih", "strong", "authentic":
		return AuthenticityStrong, nil
	case "hasan", "good":
		return AuthenticityGood, nil
	case "mutabar", "mu_tabar", "mu'tabar", "reliable":
		return AuthenticityReliable, nil
	case "", "unknown":
		return AuthenticityUnknown, nil
	}
	return AuthenticityUnknown, fmt.Errorf("unknown authenticity level %q", s)
}

// MarshalText encodes the level by name
func (a AuthenticityLevel) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a level name
func (a *AuthenticityLevel) UnmarshalText(b []byte) error {
	level, err := ParseAuthenticity(string(b))
	if err != nil {
		return err
	}
	*a = level
	return nil
}

// Passage is the atomic citable unit of the catalog
type Passage struct {
	ID           string            `json:"id"`
	SourceID     string            `json:"source_id"`
	SourceType   SourceType        `json:"source_type"`
	Authenticity AuthenticityLevel `json:"authenticity_level"`
	ArabicText   string            `json:"arabic_text"`
	EnglishText  string            `json:"english_text"`
	TopicTags    []string          `json:"topic_tags"`
	URL          string            `json:"url"` // Deep link to this passage, never the source root
	Reference    Reference         `json:"reference"`
}

// Text returns the passage text in lang, falling back to the other language
func (p Passage) Text(lang Language) string {
	if lang == LangArabic && p.ArabicText != "" {
		return p.ArabicText
	}
	if p.EnglishText != "" {
		return p.EnglishText
	}
	return p.ArabicText
}

// HasTag reports whether the passage carries tag (case-insensitive)
func (p Passage) HasTag(tag string) bool {
	for _, t := range p.TopicTags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// SourceDocument is the work a passage belongs to
type SourceDocument struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	TitleAr          string            `json:"title_ar,omitempty"`
	Author           string            `json:"author"`
	AuthorAr         string            `json:"author_ar,omitempty"`
	Era              string            `json:"era,omitempty"`
	Language         string            `json:"language"`
	License          string            `json:"license"`
	LicenseURL       string            `json:"license_url"`
	Attribution      string            `json:"attribution"`
	URL              string            `json:"url"` // Source root
	CitationPolicy   string            `json:"citation_policy,omitempty"`
	CitationPolicyAr string            `json:"citation_policy_ar,omitempty"`
	SourceType       SourceType        `json:"source_type"`
	Authenticity     AuthenticityLevel `json:"authenticity_level"`
	TopicTags        []string          `json:"topic_tags,omitempty"`
	PassageCount     int               `json:"passage_count"`
}
