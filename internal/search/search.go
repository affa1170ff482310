// Package search keeps a SQLite FTS5 mirror of the door corpus for ranked
// full-text lookups over codes, paths, aliases, summaries, tags and
// onboarding text.
//
// The mirror is derived data like the hash table: Rebuild replaces it
// wholesale from a set of loaded doors, and losing the database file only
// costs a rebuild.
package search

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Stryk91/PhiSHRI/internal/door"
)

// ErrSearch wraps every failure of the full-text index.
var ErrSearch = errors.New("search index error")

// openDB is the function used to open the SQLite database.
// It is a package-level variable so tests can inject failures.
var openDB = sql.Open

// Hit is one ranked match.
type Hit struct {
	DoorCode string
	Snippet  string
	Rank     float64
}

// Index is an FTS5-backed search index.
type Index struct {
	db *sql.DB
}

// Open creates or opens the index database at path.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create dir: %w", ErrSearch, err)
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", ErrSearch, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: pragma %q: %w", ErrSearch, p, err)
		}
	}

	x := &Index{db: db}
	if err := x.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migration: %w", ErrSearch, err)
	}
	return x, nil
}

// Close closes the underlying database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (x *Index) migrate() error {
	schema := `
		CREATE VIRTUAL TABLE IF NOT EXISTS doors_fts USING fts5(
			door_code,
			semantic_path,
			aliases,
			summary,
			tags,
			body
		);
	`
	_, err := x.db.Exec(schema)
	return err
}

// ─── Rebuild ─────────────────────────────────────────────────────────────────

// Rebuild replaces the index content with docs in a single transaction.
func (x *Index) Rebuild(docs []*door.Door) error {
	tx, err := x.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrSearch, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM doors_fts"); err != nil {
		return fmt.Errorf("%w: clear: %w", ErrSearch, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO doors_fts (door_code, semantic_path, aliases, summary, tags, body)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrSearch, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range docs {
		if d == nil {
			continue
		}
		if _, err := stmt.Exec(
			door.NormalizeCode(d.DoorCode),
			d.SemanticPath,
			strings.Join(d.Aliases, " "),
			d.ContextBundle.Summary,
			strings.Join(d.Tags(), " "),
			body(d),
		); err != nil {
			return fmt.Errorf("%w: insert %s: %w", ErrSearch, d.DoorCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrSearch, err)
	}
	return nil
}

// body flattens onboarding text that is not covered by the other columns.
func body(d *door.Door) string {
	ob := d.ContextBundle.Onboarding
	if ob == nil {
		return ""
	}
	parts := []string{ob.QuickStart}
	parts = append(parts, ob.CommonPatterns...)
	for _, ke := range ob.KnownErrors {
		parts = append(parts, ke.Text)
	}
	return strings.Join(parts, "\n")
}

// ─── Query ───────────────────────────────────────────────────────────────────

// Query returns up to limit hits ordered by FTS5 rank (best first).
// A blank query returns no hits.
func (x *Index) Query(query string, limit int) ([]Hit, error) {
	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := x.db.Query(`
		SELECT door_code, snippet(doors_fts, 3, '', '', '...', 12), rank
		FROM doors_fts
		WHERE doors_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrSearch, err)
	}
	defer func() { _ = rows.Close() }()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.DoorCode, &h.Snippet, &h.Rank); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrSearch, err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrSearch, err)
	}
	return hits, nil
}

// Count returns the number of indexed doors.
func (x *Index) Count() (int, error) {
	var n int
	if err := x.db.QueryRow("SELECT COUNT(*) FROM doors_fts").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrSearch, err)
	}
	return n, nil
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "ssh key rotation" → `"ssh" "key" "rotation"`
func sanitizeFTS(query string) string {
	var words []string
	for _, w := range strings.Fields(query) {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		words = append(words, `"`+w+`"`)
	}
	return strings.Join(words, " ")
}
