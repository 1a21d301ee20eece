package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nurpath/nurpath/internal/extract"
	"github.com/nurpath/nurpath/internal/model"
	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog format (JSON or YAML)
type File struct {
	Sources []SourceRecord `json:"sources" yaml:"sources"`
}

// SourceRecord is a source document with its passages
type SourceRecord struct {
	ID               string           `json:"id" yaml:"id"`
	Title            string           `json:"title" yaml:"title"`
	TitleAr          string           `json:"title_ar" yaml:"title_ar"`
	Author           string           `json:"author" yaml:"author"`
	AuthorAr         string           `json:"author_ar" yaml:"author_ar"`
	Era              string           `json:"era" yaml:"era"`
	Language         string           `json:"language" yaml:"language"`
	License          string           `json:"license" yaml:"license"`
	LicenseURL       string           `json:"license_url" yaml:"license_url"`
	Attribution      string           `json:"attribution" yaml:"attribution"`
	URL              string           `json:"url" yaml:"url"`
	CitationPolicy   string           `json:"citation_policy" yaml:"citation_policy"`
	CitationPolicyAr string           `json:"citation_policy_ar" yaml:"citation_policy_ar"`
	SourceType       string           `json:"source_type" yaml:"source_type"`
	Authenticity     string           `json:"authenticity_level" yaml:"authenticity_level"`
	Passages         []PassageRecord  `json:"passages" yaml:"passages"`
	Documents        []DocumentRecord `json:"documents,omitempty" yaml:"documents,omitempty"`
}

// PassageRecord is one passage as written in a catalog file
type PassageRecord struct {
	ID           string                `json:"id" yaml:"id"`
	ArabicText   string                `json:"arabic_text" yaml:"arabic_text"`
	EnglishText  string                `json:"english_text" yaml:"english_text"`
	TopicTags    []string              `json:"topic_tags" yaml:"topic_tags"`
	URL          string                `json:"url" yaml:"url"`
	Reference    model.ReferenceFields `json:"reference" yaml:"reference"`
	Authenticity string                `json:"authenticity_level,omitempty" yaml:"authenticity_level,omitempty"`
	Format       string                `json:"format,omitempty" yaml:"format,omitempty"` // "text" (default) or "html"
}

// DocumentRecord is a long juristic text split into passages on load
type DocumentRecord struct {
	ID        string   `json:"id" yaml:"id"`
	Book      string   `json:"book" yaml:"book"`
	Volume    int      `json:"volume" yaml:"volume"`
	Page      int      `json:"page" yaml:"page"`
	School    string   `json:"school,omitempty" yaml:"school,omitempty"`
	URL       string   `json:"url" yaml:"url"`
	Language  string   `json:"language" yaml:"language"`
	Text      string   `json:"text" yaml:"text"`
	Format    string   `json:"format,omitempty" yaml:"format,omitempty"`
	TopicTags []string `json:"topic_tags" yaml:"topic_tags"`
}

// LoadFile reads a catalog from a .json, .yaml or .yml file
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return f.Build(), nil
}

// Build converts the file records into a validated snapshot
func (f File) Build() *Catalog {
	var (
		sources  []model.SourceDocument
		passages []model.Passage
		excluded []Exclusion
	)

	for _, rec := range f.Sources {
		src, err := rec.toSource()
		if err != nil {
			excluded = append(excluded, Exclusion{SourceID: rec.ID, Reason: err.Error()})
			continue
		}
		sources = append(sources, src)

		for _, pr := range rec.Passages {
			p, err := pr.toPassage(src)
			if err != nil {
				excluded = append(excluded, Exclusion{SourceID: rec.ID, PassageID: pr.ID, Reason: err.Error()})
				continue
			}
			passages = append(passages, p)
		}
		for _, doc := range rec.Documents {
			chunked, err := doc.toPassages(src)
			if err != nil {
				excluded = append(excluded, Exclusion{SourceID: rec.ID, PassageID: doc.ID, Reason: err.Error()})
				continue
			}
			passages = append(passages, chunked...)
		}
	}

	c := Build(sources, passages)
	c.excluded = append(excluded, c.excluded...)
	return c
}

func (r SourceRecord) toSource() (model.SourceDocument, error) {
	level, err := model.ParseAuthenticity(r.Authenticity)
	if err != nil {
		return model.SourceDocument{}, err
	}
	return model.SourceDocument{
		ID:               strings.TrimSpace(r.ID),
		Title:            r.Title,
		TitleAr:          r.TitleAr,
		Author:           r.Author,
		AuthorAr:         r.AuthorAr,
		Era:              r.Era,
		Language:         r.Language,
		License:          r.License,
		LicenseURL:       r.LicenseURL,
		Attribution:      r.Attribution,
		URL:              r.URL,
		CitationPolicy:   r.CitationPolicy,
		CitationPolicyAr: r.CitationPolicyAr,
		SourceType:       model.SourceType(strings.ToLower(strings.TrimSpace(r.SourceType))),
		Authenticity:     level,
	}, nil
}

func (r PassageRecord) toPassage(src model.SourceDocument) (model.Passage, error) {
	ref, err := r.Reference.Build(src.SourceType)
	if err != nil {
		return model.Passage{}, err
	}
	level, err := model.ParseAuthenticity(r.Authenticity)
	if err != nil {
		return model.Passage{}, err
	}

	english, arabic := r.EnglishText, r.ArabicText
	if strings.EqualFold(r.Format, "html") {
		if english, err = extract.VisibleText(english); err != nil {
			return model.Passage{}, fmt.Errorf("english html: %w", err)
		}
		if arabic, err = extract.VisibleText(arabic); err != nil {
			return model.Passage{}, fmt.Errorf("arabic html: %w", err)
		}
	}

	return model.Passage{
		ID:           strings.TrimSpace(r.ID),
		SourceID:     src.ID,
		SourceType:   src.SourceType,
		Authenticity: level,
		ArabicText:   strings.TrimSpace(arabic),
		EnglishText:  strings.TrimSpace(english),
		TopicTags:    normalizeTags(r.TopicTags),
		URL:          strings.TrimSpace(r.URL),
		Reference:    ref,
	}, nil
}

// toPassages chunks a long juristic document into overlapping passages that
// all cite the document's page
func (d DocumentRecord) toPassages(src model.SourceDocument) ([]model.Passage, error) {
	if src.SourceType != model.SourceFiqh {
		return nil, fmt.Errorf("documents are only supported for fiqh sources, got %q", src.SourceType)
	}
	ref, err := model.ReferenceFields{Book: d.Book, Volume: d.Volume, Page: d.Page, School: d.School}.Build(model.SourceFiqh)
	if err != nil {
		return nil, err
	}
	text := d.Text
	if strings.EqualFold(d.Format, "html") {
		if text, err = extract.VisibleText(text); err != nil {
			return nil, fmt.Errorf("document html: %w", err)
		}
	}

	chunks := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	passages := make([]model.Passage, 0, len(chunks))
	for i, chunk := range chunks {
		p := model.Passage{
			ID:           fmt.Sprintf("%s-c%02d", d.ID, i+1),
			SourceID:     src.ID,
			SourceType:   src.SourceType,
			Authenticity: src.Authenticity,
			TopicTags:    normalizeTags(d.TopicTags),
			URL:          d.URL,
			Reference:    ref,
		}
		if model.ParseLanguage(d.Language) == model.LangArabic {
			p.ArabicText = chunk
		} else {
			p.EnglishText = chunk
		}
		passages = append(passages, p)
	}
	return passages, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
