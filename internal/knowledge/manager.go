// Package knowledge implements the graph and lifecycle operations over the
// door corpus: reading and listing, fuzzy and semantic-path search,
// prerequisite chains, creation (single and batch), validation, auditing
// and statistics.
//
// The Manager owns no state of its own beyond its collaborators. All
// caching lives in the store; the optional full-text index is a derived
// mirror refreshed whenever the hash table is rebuilt.
package knowledge

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Stryk91/PhiSHRI/internal/door"
	"github.com/Stryk91/PhiSHRI/internal/search"
	"github.com/Stryk91/PhiSHRI/internal/store"
)

// Searcher is the full-text index the manager keeps in sync with the
// corpus. *search.Index satisfies it.
type Searcher interface {
	Rebuild(docs []*door.Door) error
	Query(query string, limit int) ([]search.Hit, error)
}

// Options configures a Manager.
type Options struct {
	// Search is optional; when nil, fuzzy find uses weighted scoring only.
	Search Searcher
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Manager provides knowledge operations on top of a document store.
type Manager struct {
	store  *store.Store
	search Searcher
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Manager over st.
func New(st *store.Store, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  st,
		search: opts.Search,
		logger: logger,
		now:    time.Now,
	}
}

// Store returns the underlying document store.
func (m *Manager) Store() *store.Store { return m.store }

// ─── Read / List ─────────────────────────────────────────────────────────────

// Read returns the door for code. Lookup is case-insensitive.
func (m *Manager) Read(code string) (*door.Door, error) {
	return m.store.LoadDocument(code)
}

// ListItem is one line of a door listing.
type ListItem struct {
	ShortCode string `json:"short_code"`
	DoorCode  string `json:"door_code"`
	Category  string `json:"category"`
	Summary   string `json:"summary"`
}

// Line renders the item as "SHORT: summary" (summary capped at 60
// characters) or "SHORT (CODE)" when there is no summary.
func (i ListItem) Line() string {
	if i.Summary == "" {
		return fmt.Sprintf("%s (%s)", i.ShortCode, i.DoorCode)
	}
	return fmt.Sprintf("%s: %s", i.ShortCode, door.Truncate(i.Summary, 60))
}

// List returns up to limit doors in category (empty for all), sorted by
// short code, each with the first line of its summary.
func (m *Manager) List(category string, limit int) ([]ListItem, error) {
	entries, err := m.store.List(category, limit)
	if err != nil {
		return nil, err
	}
	items := make([]ListItem, 0, len(entries))
	for _, e := range entries {
		item := ListItem{ShortCode: e.ShortCode, DoorCode: e.DoorCode, Category: e.Category}
		if d, err := m.store.LoadDocument(e.DoorCode); err == nil {
			item.Summary = d.FirstSummaryLine()
		}
		items = append(items, item)
	}
	return items, nil
}

// ─── Find ────────────────────────────────────────────────────────────────────

// Scoring weights for fuzzy find, applied per query term.
const (
	scoreCode       = 10
	scoreAlias      = 15
	scoreAliasExact = 50
	scorePath       = 8
	scoreSummary    = 5
	scoreTag        = 12

	previewLength = 80
)

// Match is one fuzzy-find result.
type Match struct {
	DoorCode string `json:"door_code"`
	Score    int    `json:"score"`
	Preview  string `json:"preview"`
	// FullText is set when the match came from the full-text index rather
	// than weighted scoring.
	FullText bool `json:"full_text,omitempty"`
}

// Find ranks every indexed door against query and returns the top limit
// matches plus the total number of matches. When weighted scoring finds
// nothing, the full-text index is consulted.
func (m *Manager) Find(query string, limit int) ([]Match, int, error) {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	terms := strings.Fields(queryLower)
	if len(terms) == 0 {
		return nil, 0, nil
	}

	idx, err := m.store.LoadIndex()
	if err != nil {
		return nil, 0, err
	}

	var matches []Match
	for _, code := range idx.Codes() {
		d, err := m.store.LoadDocument(code)
		if err != nil {
			continue
		}
		if score := scoreDoor(d, queryLower, terms); score > 0 {
			matches = append(matches, Match{
				DoorCode: d.DoorCode,
				Score:    score,
				Preview:  door.Truncate(d.ContextBundle.Summary, previewLength),
			})
		}
	}

	if len(matches) == 0 && m.search != nil {
		hits, err := m.search.Query(query, limit)
		if err != nil {
			return nil, 0, err
		}
		for _, h := range hits {
			match := Match{DoorCode: h.DoorCode, Preview: h.Snippet, FullText: true}
			if d, err := m.store.LoadDocument(h.DoorCode); err == nil {
				match.DoorCode = d.DoorCode
				match.Preview = door.Truncate(d.ContextBundle.Summary, previewLength)
			}
			matches = append(matches, match)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].DoorCode < matches[j].DoorCode
	})
	total := len(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, total, nil
}

func scoreDoor(d *door.Door, queryLower string, terms []string) int {
	score := 0
	code := strings.ToLower(d.DoorCode)
	path := strings.ToLower(d.SemanticPath)
	summary := strings.ToLower(d.ContextBundle.Summary)

	for _, term := range terms {
		if strings.Contains(code, term) {
			score += scoreCode
		}
		if strings.Contains(path, term) {
			score += scorePath
		}
		if strings.Contains(summary, term) {
			score += scoreSummary
		}
	}
	for _, alias := range d.Aliases {
		a := strings.ToLower(alias)
		for _, term := range terms {
			if strings.Contains(a, term) {
				score += scoreAlias
			}
		}
		if a == queryLower {
			score += scoreAliasExact
		}
	}
	for _, tag := range d.Tags() {
		t := strings.ToLower(tag)
		for _, term := range terms {
			if strings.Contains(t, term) {
				score += scoreTag
			}
		}
	}
	return score
}

// ─── Semantic path ───────────────────────────────────────────────────────────

// SemanticMatch pairs a door with its semantic path.
type SemanticMatch struct {
	DoorCode     string `json:"door_code"`
	SemanticPath string `json:"semantic_path"`
}

// SearchSemantic returns doors whose semantic path contains path
// (case-insensitive), in short-code order.
func (m *Manager) SearchSemantic(path string) ([]SemanticMatch, error) {
	needle := strings.ToUpper(strings.TrimSpace(path))
	entries, err := m.store.List("", 0)
	if err != nil {
		return nil, err
	}
	var out []SemanticMatch
	for _, e := range entries {
		d, err := m.store.LoadDocument(e.DoorCode)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToUpper(d.SemanticPath), needle) {
			out = append(out, SemanticMatch{DoorCode: d.DoorCode, SemanticPath: d.SemanticPath})
		}
	}
	return out, nil
}

// ─── Indexes ─────────────────────────────────────────────────────────────────

// RebuildResult reports an index rebuild.
type RebuildResult struct {
	DoorsIndexed  int    `json:"doors_indexed"`
	HashTablePath string `json:"hash_table_path"`
	SearchIndexed bool   `json:"search_indexed"`
}

// RebuildIndexes rescans the corpus, persists the hash table, clears every
// cache and refreshes the full-text mirror. A full-text failure is logged
// and does not fail the rebuild.
func (m *Manager) RebuildIndexes() (RebuildResult, error) {
	idx, err := m.store.Scan()
	if err != nil {
		return RebuildResult{}, fmt.Errorf("scanning corpus: %w", err)
	}
	if err := m.store.WriteIndex(idx); err != nil {
		return RebuildResult{}, err
	}
	m.store.ClearCache()

	res := RebuildResult{DoorsIndexed: len(idx), HashTablePath: m.store.IndexPath()}
	if m.search != nil {
		if err := m.search.Rebuild(m.loadAll(idx)); err != nil {
			m.logger.Warn("WARNING: full-text index refresh failed", "error", err)
		} else {
			res.SearchIndexed = true
		}
	}
	return res, nil
}

// RefreshSearch rebuilds only the full-text mirror from a fresh scan.
func (m *Manager) RefreshSearch() error {
	if m.search == nil {
		return nil
	}
	idx, err := m.store.Scan()
	if err != nil {
		return fmt.Errorf("scanning corpus: %w", err)
	}
	return m.search.Rebuild(m.loadAll(idx))
}

// loadAll reads every indexed door straight from disk, skipping failures.
func (m *Manager) loadAll(idx store.Index) []*door.Door {
	docs := make([]*door.Door, 0, len(idx))
	for _, code := range idx.Codes() {
		d, err := m.store.LoadFile(m.store.Abs(idx[code].FilePath))
		if err != nil {
			continue
		}
		docs = append(docs, d)
	}
	return docs
}
