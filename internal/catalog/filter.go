package catalog

import (
	"strings"

	"github.com/nurpath/nurpath/internal/model"
)

// Filter narrows the source listing. Empty fields match everything.
type Filter struct {
	Language     string `form:"language"`
	Topic        string `form:"topic"`
	Query        string `form:"q"`
	SourceType   string `form:"source_type"`
	Authenticity string `form:"authenticity_level"`
	UILanguage   string `form:"ui_language"`
}

// FilterSources returns sources matching f, localized to f.UILanguage
func (c *Catalog) FilterSources(f Filter) ([]model.SourceDocument, error) {
	var level model.AuthenticityLevel
	if f.Authenticity != "" {
		var err error
		if level, err = model.ParseAuthenticity(f.Authenticity); err != nil {
			return nil, err
		}
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))
	ui := model.ParseLanguage(f.UILanguage)

	out := make([]model.SourceDocument, 0)
	for _, src := range c.Sources() {
		if f.SourceType != "" && !strings.EqualFold(string(src.SourceType), f.SourceType) {
			continue
		}
		if f.Authenticity != "" && src.Authenticity != level {
			continue
		}
		if f.Language != "" && !strings.Contains(strings.ToLower(src.Language), strings.ToLower(f.Language)) {
			continue
		}
		if f.Topic != "" && !hasTag(src.TopicTags, f.Topic) {
			continue
		}
		if query != "" && !matchesQuery(src, query) {
			continue
		}
		out = append(out, Localize(src, ui))
	}
	return out, nil
}

// Localize swaps display fields to their Arabic variants when available
func Localize(src model.SourceDocument, ui model.Language) model.SourceDocument {
	if ui != model.LangArabic {
		return src
	}
	if src.TitleAr != "" {
		src.Title = src.TitleAr
	}
	if src.AuthorAr != "" {
		src.Author = src.AuthorAr
	}
	if src.CitationPolicyAr != "" {
		src.CitationPolicy = src.CitationPolicyAr
	}
	return src
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func matchesQuery(src model.SourceDocument, q string) bool {
	for _, field := range []string{src.Title, src.TitleAr, src.Author, src.AuthorAr, src.Attribution, src.ID} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
