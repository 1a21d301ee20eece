// Package catalog holds the passage catalog. A Catalog is an immutable
// snapshot; the Store swaps snapshots atomically so in-flight requests keep
// a consistent view during re-ingestion.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nurpath/nurpath/internal/model"
)

var versionCounter atomic.Uint64

// Exclusion records a catalog row that failed data-quality checks
type Exclusion struct {
	SourceID  string `json:"source_id"`
	PassageID string `json:"passage_id,omitempty"`
	Reason    string `json:"reason"`
}

// Catalog is an immutable snapshot of sources and passages
type Catalog struct {
	sources     map[string]model.SourceDocument
	passages    map[string]model.Passage
	order       []string
	sourceOrder []string
	excluded    []Exclusion
	version     uint64
	loadedAt    time.Time
}

// Build validates sources and passages and assembles a snapshot. Rows that
// fail validation are reported as exclusions, never returned as errors.
func Build(sources []model.SourceDocument, passages []model.Passage) *Catalog {
	c := &Catalog{
		sources:  make(map[string]model.SourceDocument, len(sources)),
		passages: make(map[string]model.Passage, len(passages)),
		version:  versionCounter.Add(1),
		loadedAt: time.Now(),
	}

	for _, src := range sources {
		if err := checkSource(src); err != nil {
			c.excluded = append(c.excluded, Exclusion{SourceID: src.ID, Reason: err.Error()})
			continue
		}
		if _, dup := c.sources[src.ID]; dup {
			c.excluded = append(c.excluded, Exclusion{SourceID: src.ID, Reason: "duplicate source id"})
			continue
		}
		src.PassageCount = 0
		src.TopicTags = nil
		c.sources[src.ID] = src
	}

	tags := make(map[string]map[string]bool)
	for _, p := range passages {
		src, ok := c.sources[p.SourceID]
		if !ok {
			c.excluded = append(c.excluded, Exclusion{SourceID: p.SourceID, PassageID: p.ID, Reason: "unknown or excluded source"})
			continue
		}
		if err := checkPassage(p, src); err != nil {
			c.excluded = append(c.excluded, Exclusion{SourceID: p.SourceID, PassageID: p.ID, Reason: err.Error()})
			continue
		}
		if _, dup := c.passages[p.ID]; dup {
			c.excluded = append(c.excluded, Exclusion{SourceID: p.SourceID, PassageID: p.ID, Reason: "duplicate passage id"})
			continue
		}
		if p.Authenticity == model.AuthenticityUnknown {
			p.Authenticity = src.Authenticity
		}
		c.passages[p.ID] = p
		c.order = append(c.order, p.ID)

		if tags[src.ID] == nil {
			tags[src.ID] = make(map[string]bool)
		}
		for _, t := range p.TopicTags {
			tags[src.ID][strings.ToLower(t)] = true
		}
		src.PassageCount++
		c.sources[src.ID] = src
	}

	for id, src := range c.sources {
		for t := range tags[id] {
			src.TopicTags = append(src.TopicTags, t)
		}
		sort.Strings(src.TopicTags)
		c.sources[id] = src
		c.sourceOrder = append(c.sourceOrder, id)
	}
	sort.Strings(c.order)
	sort.Strings(c.sourceOrder)
	return c
}

func checkSource(src model.SourceDocument) error {
	switch {
	case strings.TrimSpace(src.ID) == "":
		return errors.New("missing source id")
	case !src.SourceType.Valid():
		return fmt.Errorf("unknown source type %q", src.SourceType)
	case strings.TrimSpace(src.License) == "":
		return errors.New("missing license")
	case strings.TrimSpace(src.LicenseURL) == "":
		return errors.New("missing license url")
	case strings.TrimSpace(src.Attribution) == "":
		return errors.New("missing attribution")
	case !isHTTPURL(src.URL):
		return errors.New("missing or invalid source url")
	}
	return nil
}

func checkPassage(p model.Passage, src model.SourceDocument) error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return errors.New("missing passage id")
	case p.SourceType != src.SourceType:
		return fmt.Errorf("passage type %q does not match source type %q", p.SourceType, src.SourceType)
	case strings.TrimSpace(p.ArabicText) == "" && strings.TrimSpace(p.EnglishText) == "":
		return errors.New("missing passage text")
	case !isHTTPURL(p.URL):
		return errors.New("missing or invalid deep link")
	case sameURL(p.URL, src.URL):
		return errors.New("deep link points at the source root")
	case p.Reference == nil:
		return errors.New("missing reference")
	case p.Reference.SourceType() != p.SourceType:
		return fmt.Errorf("reference kind %q does not match source type %q", p.Reference.SourceType(), p.SourceType)
	}
	if err := p.Reference.Validate(); err != nil {
		return fmt.Errorf("invalid reference: %w", err)
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func sameURL(a, b string) bool {
	trim := func(s string) string {
		return strings.TrimRight(strings.ToLower(strings.TrimSpace(s)), "/")
	}
	return trim(a) == trim(b)
}

// Passage returns a passage by id
func (c *Catalog) Passage(id string) (model.Passage, bool) {
	p, ok := c.passages[id]
	return p, ok
}

// Source returns a source document by id
func (c *Catalog) Source(id string) (model.SourceDocument, bool) {
	s, ok := c.sources[id]
	return s, ok
}

// Passages returns all passages ordered by id
func (c *Catalog) Passages() []model.Passage {
	out := make([]model.Passage, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.passages[id])
	}
	return out
}

// Sources returns all sources ordered by id
func (c *Catalog) Sources() []model.SourceDocument {
	out := make([]model.SourceDocument, 0, len(c.sourceOrder))
	for _, id := range c.sourceOrder {
		out = append(out, c.sources[id])
	}
	return out
}

// Len returns the number of passages
func (c *Catalog) Len() int { return len(c.order) }

// Excluded returns the rows rejected by data-quality checks
func (c *Catalog) Excluded() []Exclusion { return c.excluded }

// Version identifies the snapshot; it increases with every build
func (c *Catalog) Version() uint64 { return c.version }

// LoadedAt returns when the snapshot was built
func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

// Store serves the current catalog snapshot
type Store struct {
	current atomic.Pointer[Catalog]
}

// NewStore creates a store serving c
func NewStore(c *Catalog) *Store {
	s := &Store{}
	if c == nil {
		c = Build(nil, nil)
	}
	s.current.Store(c)
	return s
}

// Snapshot returns the current catalog. Callers should take one snapshot
// per request and use it throughout.
func (s *Store) Snapshot() *Catalog {
	return s.current.Load()
}

// Swap replaces the current snapshot
func (s *Store) Swap(c *Catalog) {
	s.current.Store(c)
}

// Reload loads path and swaps it in. The previous snapshot stays in place
// when loading fails.
func (s *Store) Reload(path string) (*Catalog, error) {
	c, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	s.Swap(c)
	return c, nil
}

// Ping reports whether the store has passages to serve
func (s *Store) Ping() error {
	c := s.Snapshot()
	if c == nil || c.Len() == 0 {
		return errors.New("catalog is empty")
	}
	return nil
}
