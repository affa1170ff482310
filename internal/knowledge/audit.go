package knowledge

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Stryk91/PhiSHRI/internal/door"
	"github.com/Stryk91/PhiSHRI/internal/store"
)

// ScopeAll selects every door for an audit.
const ScopeAll = "all"

// AuditResult summarizes the health of the corpus.
type AuditResult struct {
	Healthy              bool           `json:"healthy"`
	TotalDoors           int            `json:"total_doors"`
	Errors               []string       `json:"errors"`
	Warnings             []string       `json:"warnings"`
	MissingPrerequisites []string       `json:"missing_prerequisites"`
	BrokenReferences     []string       `json:"broken_references"`
	ByCategory           map[string]int `json:"by_category"`
	// Fixed lists doors rewritten to drop dangling references.
	Fixed []string `json:"fixed,omitempty"`
}

// Audit rescans the corpus and checks every door in scope: "all" (or
// empty), a category name, or an exact door code. Referenced codes are
// checked against the whole corpus regardless of scope. With fix set,
// in-scope doors have dangling prerequisite and related references
// removed and the indexes are rebuilt.
func (m *Manager) Audit(scope string, fix bool) (AuditResult, error) {
	idx, err := m.store.Scan()
	if err != nil {
		return AuditResult{}, fmt.Errorf("scanning corpus: %w", err)
	}

	res := AuditResult{
		TotalDoors: len(idx),
		Errors:     []string{},
		Warnings:   []string{},
		ByCategory: make(map[string]int),
	}
	for _, e := range idx {
		res.ByCategory[e.Category]++
	}

	missing := make(map[string]bool)
	broken := make(map[string]bool)
	var toFix []auditTarget

	for _, code := range idx.Codes() {
		entry := idx[code]
		if !inScope(scope, code, entry) {
			continue
		}
		path := m.store.Abs(entry.FilePath)
		d, err := m.store.LoadFile(path)
		if err != nil {
			res.Errors = append(res.Errors, code+": load failed")
			m.logger.Debug("audit: load failed", "door_code", code, "error", err)
			continue
		}
		if strings.TrimSpace(d.ContextBundle.Summary) == "" {
			res.Warnings = append(res.Warnings, code+": empty summary")
		}
		if d.ContextBundle.Metadata == nil {
			res.Warnings = append(res.Warnings, code+": no metadata")
		}

		dangling := false
		for _, p := range d.ContextBundle.Prerequisites {
			if p := door.NormalizeCode(p); p != "" {
				if _, ok := idx[p]; !ok {
					missing[p] = true
					dangling = true
				}
			}
		}
		for _, r := range d.ContextBundle.RelatedDoors {
			if r := door.NormalizeCode(r); r != "" {
				if _, ok := idx[r]; !ok {
					broken[r] = true
					dangling = true
				}
			}
		}
		if dangling {
			toFix = append(toFix, auditTarget{code: code, path: path, door: d})
		}
	}

	res.MissingPrerequisites = sortedKeys(missing)
	res.BrokenReferences = sortedKeys(broken)
	res.Healthy = len(res.Errors) == 0 && len(res.MissingPrerequisites) == 0

	if fix && len(toFix) > 0 {
		for _, t := range toFix {
			if err := m.dropDangling(t, idx); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: fix failed: %v", t.code, err))
				continue
			}
			res.Fixed = append(res.Fixed, t.code)
		}
		if len(res.Fixed) > 0 {
			if _, err := m.RebuildIndexes(); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

type auditTarget struct {
	code string
	path string
	door *door.Door
}

// dropDangling rewrites the door file without references absent from idx.
func (m *Manager) dropDangling(t auditTarget, idx store.Index) error {
	keep := func(codes []string) []string {
		out := make([]string, 0, len(codes))
		for _, c := range codes {
			if _, ok := idx[door.NormalizeCode(c)]; ok {
				out = append(out, c)
			}
		}
		return out
	}
	d := *t.door
	d.ContextBundle.Prerequisites = keep(d.ContextBundle.Prerequisites)
	d.ContextBundle.RelatedDoors = keep(d.ContextBundle.RelatedDoors)

	data, err := door.Marshal(&d)
	if err != nil {
		return err
	}
	return store.WriteFileAtomic(t.path, data)
}

func inScope(scope, code string, e store.IndexEntry) bool {
	scope = strings.TrimSpace(scope)
	if scope == "" || strings.EqualFold(scope, ScopeAll) {
		return true
	}
	return strings.EqualFold(e.Category, scope) || door.NormalizeCode(scope) == code
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats granularities.
const (
	GranularitySummary  = "summary"
	GranularityCategory = "category"
	GranularityDetailed = "detailed"
)

// Stats holds corpus counts.
type Stats struct {
	TotalDoors  int            `json:"total_doors"`
	ByCategory  map[string]int `json:"by_category"`
	IndexPath   string         `json:"index_path"`
	IndexExists bool           `json:"index_exists"`
	// Codes lists door codes per category at category granularity.
	Codes map[string][]string `json:"codes,omitempty"`
	// Set at detailed granularity only.
	DoorsWithPrerequisites int            `json:"doors_with_prerequisites,omitempty"`
	TagCounts              map[string]int `json:"tag_counts,omitempty"`
}

// TagCount is one tag frequency.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TopTags returns the n most frequent tags, most frequent first, ties
// broken alphabetically. n <= 0 returns all of them.
func (s Stats) TopTags(n int) []TagCount {
	out := make([]TagCount, 0, len(s.TagCounts))
	for tag, c := range s.TagCounts {
		out = append(out, TagCount{Tag: tag, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Stats counts doors per category from a fresh scan. At "category"
// granularity the codes of each category are listed; at "detailed"
// granularity doors with prerequisites and tag frequencies are counted.
func (m *Manager) Stats(granularity string) (Stats, error) {
	idx, err := m.store.Scan()
	if err != nil {
		return Stats{}, fmt.Errorf("scanning corpus: %w", err)
	}

	st := Stats{
		TotalDoors: len(idx),
		ByCategory: make(map[string]int),
		IndexPath:  m.store.IndexPath(),
	}
	if _, err := os.Stat(st.IndexPath); err == nil {
		st.IndexExists = true
	}

	switch granularity {
	case GranularityCategory:
		st.Codes = make(map[string][]string)
	case GranularityDetailed:
		st.TagCounts = make(map[string]int)
	}

	for _, code := range idx.Codes() {
		e := idx[code]
		st.ByCategory[e.Category]++
		if st.Codes != nil {
			st.Codes[e.Category] = append(st.Codes[e.Category], e.DoorCode)
		}
		if st.TagCounts == nil {
			continue
		}
		d, err := m.store.LoadFile(m.store.Abs(e.FilePath))
		if err != nil {
			continue
		}
		if len(d.ContextBundle.Prerequisites) > 0 {
			st.DoorsWithPrerequisites++
		}
		for _, tag := range d.Tags() {
			st.TagCounts[tag]++
		}
	}
	return st, nil
}
