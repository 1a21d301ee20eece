package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Reference locates a passage inside its source. The concrete type is
// determined by the passage's source type.
type Reference interface {
	SourceType() SourceType
	Cite(lang Language) string
	Validate() error
	reference()
}

// QuranReference locates a verse range
type QuranReference struct {
	Surah     int `json:"surah"`
	AyahStart int `json:"ayah_start"`
	AyahEnd   int `json:"ayah_end"`
}

// HadithReference locates a narration in a collection
type HadithReference struct {
	Collection string `json:"collection"`
	Book       string `json:"book,omitempty"`
	Number     string `json:"number"`
}

// FiqhReference locates a page in a juristic work
type FiqhReference struct {
	Book   string `json:"book"`
	Volume int    `json:"volume,omitempty"`
	Page   int    `json:"page"`
	School string `json:"school,omitempty"`
}

func (QuranReference) SourceType() SourceType  { return SourceQuran }
func (HadithReference) SourceType() SourceType { return SourceHadith }
func (FiqhReference) SourceType() SourceType   { return SourceFiqh }

func (QuranReference) reference()  {}
func (HadithReference) reference() {}
func (FiqhReference) reference()   {}

func (r QuranReference) Validate() error {
	if r.Surah < 1 || r.Surah > 114 {
		return fmt.Errorf("surah %d out of range", r.Surah)
	}
	if r.AyahStart < 1 {
		return errors.New("missing ayah")
	}
	if r.AyahEnd != 0 && r.AyahEnd < r.AyahStart {
		return fmt.Errorf("ayah range %d-%d is inverted", r.AyahStart, r.AyahEnd)
	}
	return nil
}

func (r HadithReference) Validate() error {
	if strings.TrimSpace(r.Collection) == "" {
		return errors.New("missing hadith collection")
	}
	if strings.TrimSpace(r.Number) == "" {
		return errors.New("missing hadith number")
	}
	return nil
}

func (r FiqhReference) Validate() error {
	if strings.TrimSpace(r.Book) == "" {
		return errors.New("missing book")
	}
	if r.Page < 1 {
		return errors.New("missing page")
	}
	return nil
}

func (r QuranReference) Cite(lang Language) string {
	ayahs := strconv.Itoa(r.AyahStart)
	if r.AyahEnd > r.AyahStart {
		ayahs += "-" + strconv.Itoa(r.AyahEnd)
	}
	if lang == LangArabic {
		return fmt.Sprintf("القرآن %d:%s", r.Surah, ayahs)
	}
	return fmt.Sprintf("Qur'an %d:%s", r.Surah, ayahs)
}

func (r HadithReference) Cite(lang Language) string {
	label := "Book"
	if lang == LangArabic {
		label = "كتاب"
	}
	if r.Book != "" {
		return fmt.Sprintf("%s, %s %s, #%s", r.Collection, label, r.Book, r.Number)
	}
	return fmt.Sprintf("%s #%s", r.Collection, r.Number)
}

func (r FiqhReference) Cite(lang Language) string {
	vol, page := "vol.", "p."
	if lang == LangArabic {
		vol, page = "ج", "ص"
	}
	if r.Volume > 0 {
		return fmt.Sprintf("%s, %s %d, %s %d", r.Book, vol, r.Volume, page, r.Page)
	}
	return fmt.Sprintf("%s, %s %d", r.Book, page, r.Page)
}

// ReferenceFields is the flat wire form of a reference in catalog files
type ReferenceFields struct {
	Surah      int    `json:"surah,omitempty" yaml:"surah,omitempty"`
	AyahStart  int    `json:"ayah_start,omitempty" yaml:"ayah_start,omitempty"`
	AyahEnd    int    `json:"ayah_end,omitempty" yaml:"ayah_end,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Book       string `json:"book,omitempty" yaml:"book,omitempty"`
	Number     string `json:"number,omitempty" yaml:"number,omitempty"`
	Volume     int    `json:"volume,omitempty" yaml:"volume,omitempty"`
	Page       int    `json:"page,omitempty" yaml:"page,omitempty"`
	School     string `json:"school,omitempty" yaml:"school,omitempty"`
}

// Build constructs the reference variant for st and validates it
func (f ReferenceFields) Build(st SourceType) (Reference, error) {
	var ref Reference
	switch st {
	case SourceQuran:
		end := f.AyahEnd
		if end == 0 {
			end = f.AyahStart
		}
		ref = QuranReference{Surah: f.Surah, AyahStart: f.AyahStart, AyahEnd: end}
	case SourceHadith:
		ref = HadithReference{Collection: f.Collection, Book: f.Book, Number: f.Number}
	case SourceFiqh:
		ref = FiqhReference{Book: f.Book, Volume: f.Volume, Page: f.Page, School: f.School}
	default:
		return nil, fmt.Errorf("unknown source type %q", st)
	}
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("%s reference: %w", st, err)
	}
	return ref, nil
}
