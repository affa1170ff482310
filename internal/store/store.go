// Package store loads door documents and the derived code→location index
// from the corpus on disk.
//
// Two caches sit in front of the filesystem:
//   - the index cache holds the whole parsed HASH_TABLE.json and lives until
//     ClearCache is called;
//   - the document cache holds one entry per requested code and treats an
//     entry older than the TTL as absent (it is reloaded, not evicted).
//
// Both caches are always cleared together. The index is never the source of
// truth: Scan rebuilds it purely from the CONTEXTS tree.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/Stryk91/PhiSHRI/internal/config"
	"github.com/Stryk91/PhiSHRI/internal/door"
)

// IndexEntry locates one door in the corpus.
type IndexEntry struct {
	DoorCode  string `json:"door_code"`
	FilePath  string `json:"file_path"`
	Category  string `json:"category"`
	ShortCode string `json:"short_code"`
}

// Index maps normalized door codes to their location.
type Index map[string]IndexEntry

// Codes returns the index keys in ascending order.
func (idx Index) Codes() []string {
	codes := make([]string, 0, len(idx))
	for code := range idx {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Options configures a Store.
type Options struct {
	// Root is the corpus root containing CONTEXTS/ and INDEXES/.
	Root string
	// TTL is the document cache lifetime. Zero means config.DefaultCacheTTL.
	TTL time.Duration
	// Logger receives debug output for skipped files. Defaults to slog.Default().
	Logger *slog.Logger
}

type cachedDoor struct {
	door     *door.Door
	loadedAt time.Time
}

// Store is the filesystem-backed document store. It is safe for
// concurrent use.
type Store struct {
	root   string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	indexMu sync.RWMutex
	index   Index

	docMu sync.RWMutex
	docs  map[string]cachedDoor
}

// New creates a Store rooted at opts.Root. Nothing is read until first use.
func New(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:   opts.Root,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		docs:   make(map[string]cachedDoor),
	}
}

// Root returns the corpus root.
func (s *Store) Root() string { return s.root }

// ContextsPath returns <root>/CONTEXTS.
func (s *Store) ContextsPath() string {
	return filepath.Join(s.root, config.ContextsDir)
}

// IndexPath returns the canonical index file location.
func (s *Store) IndexPath() string {
	return filepath.Join(s.root, config.IndexesDir, config.HashTableFile)
}

// DocumentPath returns where a door with code in category is written.
func (s *Store) DocumentPath(category, code string) string {
	return filepath.Join(s.ContextsPath(), strings.ToUpper(category), code+".json")
}

// Abs resolves an index-relative path against the corpus root.
func (s *Store) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// ─── Cache ───────────────────────────────────────────────────────────────────

// ClearCache drops the index cache and every cached document.
func (s *Store) ClearCache() {
	s.indexMu.Lock()
	s.docMu.Lock()
	s.index = nil
	s.docs = make(map[string]cachedDoor)
	s.docMu.Unlock()
	s.indexMu.Unlock()
}

// ─── Index ───────────────────────────────────────────────────────────────────

// LoadIndex returns the cached index, reading it from disk on first use or
// after ClearCache. Both the flat and the wrapped {version, mappings}
// formats are accepted.
func (s *Store) LoadIndex() (Index, error) {
	s.indexMu.RLock()
	idx := s.index
	s.indexMu.RUnlock()
	if idx != nil {
		return idx, nil
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if s.index != nil {
		return s.index, nil
	}

	path := s.IndexPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", door.ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("reading index: %w", err)
	}

	idx, err = parseIndex(data)
	if err != nil {
		return nil, &door.ParseError{Path: path, Err: err}
	}
	s.index = idx
	return idx, nil
}

type wrappedIndex struct {
	Version  string            `json:"version"`
	Mappings map[string]string `json:"mappings"`
}

func parseIndex(data []byte) (Index, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	idx := make(Index, len(probe))
	if _, ok := probe["mappings"]; ok {
		var w wrappedIndex
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		for code, path := range w.Mappings {
			key := door.NormalizeCode(code)
			idx[key] = IndexEntry{
				DoorCode:  code,
				FilePath:  path,
				Category:  door.CategoryFromPath(path),
				ShortCode: door.ShortCode(key),
			}
		}
		return idx, nil
	}

	for code, raw := range probe {
		var e IndexEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("entry %s: %w", code, err)
		}
		key := door.NormalizeCode(code)
		if e.DoorCode == "" {
			e.DoorCode = code
		}
		if e.ShortCode == "" {
			e.ShortCode = door.ShortCode(key)
		}
		if e.Category == "" {
			e.Category = door.CategoryFromPath(e.FilePath)
		}
		idx[key] = e
	}
	return idx, nil
}

// ResolveLocation finds the index entry for code: an exact (normalized)
// match first, then the first key in sorted order that starts with the code
// or whose short code equals it.
func (s *Store) ResolveLocation(code string) (IndexEntry, error) {
	idx, err := s.LoadIndex()
	if err != nil {
		return IndexEntry{}, err
	}
	norm := door.NormalizeCode(code)
	if norm == "" {
		return IndexEntry{}, door.NotFound(code)
	}
	if e, ok := idx[norm]; ok {
		return e, nil
	}
	for _, key := range idx.Codes() {
		if strings.HasPrefix(key, norm) || door.ShortCode(key) == norm {
			return idx[key], nil
		}
	}
	return IndexEntry{}, door.NotFound(norm)
}

// List returns index entries filtered by category (case-insensitive, empty
// means all), sorted by short code then code, truncated to limit when
// limit > 0.
func (s *Store) List(category string, limit int) ([]IndexEntry, error) {
	idx, err := s.LoadIndex()
	if err != nil {
		return nil, err
	}
	var out []IndexEntry
	for _, e := range idx {
		if category != "" && !strings.EqualFold(e.Category, category) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShortCode != out[j].ShortCode {
			return out[i].ShortCode < out[j].ShortCode
		}
		return out[i].DoorCode < out[j].DoorCode
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// WriteIndex persists idx to the canonical location as pretty-printed
// flat-format JSON. The write is atomic.
func (s *Store) WriteIndex(idx Index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	if err := WriteFileAtomic(s.IndexPath(), append(data, '\n')); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// ─── Documents ───────────────────────────────────────────────────────────────

// LoadDocument returns the door for code, from cache when the cached copy
// is younger than the TTL. The returned door is shared; callers must not
// mutate it.
func (s *Store) LoadDocument(code string) (*door.Door, error) {
	norm := door.NormalizeCode(code)

	s.docMu.RLock()
	cached, ok := s.docs[norm]
	s.docMu.RUnlock()
	if ok && s.now().Sub(cached.loadedAt) < s.ttl {
		return cached.door, nil
	}

	entry, err := s.ResolveLocation(norm)
	if err != nil {
		return nil, err
	}
	d, err := s.LoadFile(s.Abs(entry.FilePath))
	if err != nil {
		return nil, err
	}

	s.docMu.Lock()
	s.docs[norm] = cachedDoor{door: d, loadedAt: s.now()}
	s.docMu.Unlock()
	return d, nil
}

// LoadFile reads and parses a door from an explicit path, bypassing the
// index and the cache.
func (s *Store) LoadFile(path string) (*door.Door, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: file %s", door.ErrDoorNotFound, path)
		}
		return nil, fmt.Errorf("reading door %s: %w", path, err)
	}
	d, err := door.Parse(data)
	if err != nil {
		return nil, &door.ParseError{Path: path, Err: err}
	}
	return d, nil
}

// WriteDocument writes d under CONTEXTS/<category>/<code>.json and returns
// the absolute path. It does not touch the caches.
func (s *Store) WriteDocument(category string, d *door.Door) (string, error) {
	data, err := door.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshaling door %s: %w", d.DoorCode, err)
	}
	path := s.DocumentPath(category, d.DoorCode)
	if err := WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("writing door %s: %w", d.DoorCode, err)
	}
	return path, nil
}

// ─── Scan ────────────────────────────────────────────────────────────────────

// Scan walks every category directory under CONTEXTS and returns a fresh
// index keyed by each document's own door_code. Unreadable or malformed
// files are skipped. The walk uses an explicit work list with a visited
// set, so symlinked directory loops terminate.
func (s *Store) Scan() (Index, error) {
	idx := make(Index)
	visited := make(map[string]bool)

	for _, category := range door.Categories {
		start := filepath.Join(s.ContextsPath(), category)
		if info, err := os.Stat(start); err != nil || !info.IsDir() {
			continue
		}

		stack := []string{start}
		for len(stack) > 0 {
			dir := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			resolved, err := filepath.EvalSymlinks(dir)
			if err != nil {
				resolved = dir
			}
			if visited[resolved] {
				continue
			}
			visited[resolved] = true

			entries, err := os.ReadDir(dir)
			if err != nil {
				s.logger.Debug("scan: skipping unreadable directory", "dir", dir, "error", err)
				continue
			}
			// Reverse order so the stack pops entries alphabetically.
			for i := len(entries) - 1; i >= 0; i-- {
				e := entries[i]
				path := filepath.Join(dir, e.Name())
				if isDir(path, e) {
					stack = append(stack, path)
					continue
				}
				if !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
					continue
				}
				s.indexFile(idx, category, path)
			}
		}
	}
	return idx, nil
}

func (s *Store) indexFile(idx Index, category, path string) {
	d, err := s.LoadFile(path)
	if err != nil {
		s.logger.Debug("scan: skipping file", "path", path, "error", err)
		return
	}
	if strings.TrimSpace(d.DoorCode) == "" {
		s.logger.Debug("scan: skipping file without door_code", "path", path)
		return
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}
	key := door.NormalizeCode(d.DoorCode)
	idx[key] = IndexEntry{
		DoorCode:  d.DoorCode,
		FilePath:  filepath.ToSlash(rel),
		Category:  category,
		ShortCode: door.ShortCode(key),
	}
}

func isDir(path string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	}
	return false
}

// ─── Files ───────────────────────────────────────────────────────────────────

// WriteFileAtomic creates parent directories and replaces path with data
// via a temp file and rename.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	// atomic.WriteFile leaves new files with temp-file permissions.
	return os.Chmod(path, 0o644)
}
