package model

// School is a school of jurisprudence (madhhab)
type School struct {
	Key     string   // Canonical key, e.g. "shafii"
	Label   string   // English display label
	LabelAr string   // Arabic display label
	Aliases []string // Normalized spellings found in tags and text
}

// Schools lists the recognized schools in display order
var Schools = []School{
	{Key: "hanafi", Label: "Hanafi", LabelAr: "الحنفية", Aliases: []string{"hanafi", "hanafis", "abu hanifa", "حنفي", "حنفية"}},
	{Key: "maliki", Label: "Maliki", LabelAr: "المالكية", Aliases: []string{"maliki", "malikis", "مالكي", "مالكية"}},
	{Key: "shafii", Label: "Shafi'i", LabelAr: "الشافعية", Aliases: []string{"shafii", "shafiis", "shafi", "شافعي", "شافعية"}},
	{Key: "hanbali", Label: "Hanbali", LabelAr: "الحنابلة", Aliases: []string{"hanbali", "hanbalis", "ahmad ibn hanbal", "حنبلي", "حنابلة"}},
	{Key: "jafari", Label: "Ja'fari", LabelAr: "الجعفرية", Aliases: []string{"jafari", "jafaris", "جعفري", "جعفرية"}},
	{Key: "zahiri", Label: "Zahiri", LabelAr: "الظاهرية", Aliases: []string{"zahiri", "zahiris", "ظاهري", "ظاهرية"}},
}

// LookupSchool returns the school with the given key
func LookupSchool(key string) (School, bool) {
	for _, s := range Schools {
		if s.Key == key {
			return s, true
		}
	}
	return School{}, false
}

// SchoolLabel returns the display label of a school key in lang
func SchoolLabel(key string, lang Language) string {
	s, ok := LookupSchool(key)
	if !ok {
		return key
	}
	if lang == LangArabic {
		return s.LabelAr
	}
	return s.Label
}
