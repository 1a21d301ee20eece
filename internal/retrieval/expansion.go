package retrieval

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nurpath/nurpath/internal/textutil"
)

// ExpansionTable maps a normalized content term to related terms
type ExpansionTable map[string][]string

// DefaultExpansions covers the bilingual vocabulary of the bundled catalog
var DefaultExpansions = ExpansionTable{
	"wudu":         {"ablution", "وضوء", "purification"},
	"ablution":     {"wudu", "وضوء", "washing"},
	"وضوء":         {"wudu", "ablution", "طهارة"},
	"purification": {"طهارة", "taharah", "wudu"},
	"طهارة":        {"purification", "taharah"},
	"prayer":       {"salah", "صلاة"},
	"salah":        {"prayer", "صلاة"},
	"صلاة":         {"prayer", "salah"},
	"basmala":      {"bismillah", "تسمية", "name"},
	"bismillah":    {"basmala", "تسمية"},
	"تسمية":        {"basmala", "bismillah"},
	"fasting":      {"sawm", "صوم", "ramadan"},
	"sawm":         {"fasting", "صوم"},
	"صوم":          {"fasting", "sawm"},
	"charity":      {"zakat", "زكاة", "sadaqah"},
	"zakat":        {"charity", "زكاة"},
	"زكاة":         {"zakat", "charity"},
}

// expansionFile is the on-disk table format
type expansionFile struct {
	Expansions map[string][]string `yaml:"expansions"`
}

// LoadExpansionTable reads a YAML table and merges it over the defaults
func LoadExpansionTable(path string) (ExpansionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read expansion table: %w", err)
	}
	var file expansionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse expansion table %s: %w", path, err)
	}

	table := make(ExpansionTable, len(DefaultExpansions)+len(file.Expansions))
	for k, v := range DefaultExpansions {
		table[k] = v
	}
	for k, v := range file.Expansions {
		key := textutil.Normalize(k)
		if key == "" {
			continue
		}
		table[key] = v
	}
	return table, nil
}

// maxRelatedTerms bounds corpus co-occurrence additions per expansion
const maxRelatedTerms = 3

// Expand augments query with table synonyms and, when the table has nothing
// for a term, with terms that co-occur with it in the corpus. It returns ""
// when no new term was found.
func Expand(query string, table ExpansionTable, corpus *Corpus) string {
	tokens := textutil.ContentTokens(query)
	have := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		have[t] = true
	}

	var added []string
	add := func(term string) {
		for _, t := range textutil.ContentTokens(term) {
			if !have[t] {
				have[t] = true
				added = append(added, t)
			}
		}
	}

	related := 0
	for _, t := range tokens {
		if synonyms, ok := table[t]; ok {
			for _, s := range synonyms {
				add(s)
			}
			continue
		}
		if corpus == nil || related >= maxRelatedTerms {
			continue
		}
		for _, r := range corpus.Related(t, maxRelatedTerms-related) {
			if !have[r] {
				related++
			}
			add(r)
		}
	}

	if len(added) == 0 {
		return ""
	}
	return strings.TrimSpace(query) + " " + strings.Join(added, " ")
}
