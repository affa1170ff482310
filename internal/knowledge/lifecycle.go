package knowledge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Stryk91/PhiSHRI/internal/door"
	"github.com/Stryk91/PhiSHRI/internal/store"
)

// validate checks create parameters. Field names in messages use the JSON
// names callers send.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateParams describes a door to create. Optional list fields may be
// nil.
type CreateParams struct {
	DoorCode       string   `json:"door_code" validate:"required,max=128,excludesall=/\\"`
	Category       string   `json:"category"`
	SemanticPath   string   `json:"semantic_path"`
	Summary        string   `json:"summary"`
	Aliases        []string `json:"aliases"`
	Prerequisites  []string `json:"prerequisites"`
	RelatedDoors   []string `json:"related_doors"`
	QuickStart     string   `json:"quick_start"`
	CommonPatterns []string `json:"common_patterns"`
	KnownErrors    []string `json:"known_errors"`
	Tags           []string `json:"tags"`
	AgentAffinity  []string `json:"agent_affinity"`
}

// CreateResult reports a created door.
type CreateResult struct {
	DoorCode string `json:"door_code"`
	FilePath string `json:"file_path"`
}

// Create writes a new door and refreshes the indexes. It fails with
// ErrInvalidDoor for bad parameters and ErrDoorExists when the code already
// resolves. A failed index rebuild is logged and does not fail creation;
// the door stays unindexed until the next rebuild.
func (m *Manager) Create(p CreateParams) (CreateResult, error) {
	d, category, err := m.buildDoor(p)
	if err != nil {
		return CreateResult{}, err
	}
	if m.exists(category, d.DoorCode) {
		return CreateResult{}, fmt.Errorf("%w: %s", door.ErrDoorExists, d.DoorCode)
	}

	path, err := m.store.WriteDocument(category, d)
	if err != nil {
		return CreateResult{}, err
	}
	m.store.ClearCache()

	if _, err := m.RebuildIndexes(); err != nil {
		m.logger.Warn("WARNING: index rebuild after create failed", "door_code", d.DoorCode, "error", err)
	}
	return CreateResult{DoorCode: d.DoorCode, FilePath: path}, nil
}

// exists reports whether code already resolves through the index or its
// target file is already on disk.
func (m *Manager) exists(category, code string) bool {
	if _, err := m.store.LoadDocument(code); err == nil {
		return true
	}
	_, err := os.Stat(m.store.DocumentPath(category, code))
	return err == nil
}

// buildDoor validates p and synthesizes the full door document plus the
// category directory it belongs in.
func (m *Manager) buildDoor(p CreateParams) (*door.Door, string, error) {
	p.DoorCode = strings.TrimSpace(p.DoorCode)
	if err := validate.Struct(p); err != nil {
		return nil, "", fmt.Errorf("%w: %s", door.ErrInvalidDoor, describeValidation(err))
	}

	category := strings.ToUpper(strings.TrimSpace(p.Category))
	if category == "" {
		category = door.InferCategory(p.DoorCode)
		p.Category = category
	}
	if !door.IsCategory(category) {
		return nil, "", fmt.Errorf("%w: unknown category %q for %s", door.ErrInvalidDoor, p.Category, p.DoorCode)
	}

	knownErrors := make([]door.KnownError, 0, len(p.KnownErrors))
	for _, e := range p.KnownErrors {
		knownErrors = append(knownErrors, door.NewKnownError(e))
	}

	d := &door.Door{
		DoorCode:     p.DoorCode,
		SemanticPath: p.SemanticPath,
		Aliases:      orEmpty(p.Aliases),
		ContextBundle: door.ContextBundle{
			Summary:       p.Summary,
			Prerequisites: orEmpty(p.Prerequisites),
			RelatedDoors:  orEmpty(p.RelatedDoors),
			Onboarding: &door.Onboarding{
				QuickStart:     p.QuickStart,
				CommonPatterns: orEmpty(p.CommonPatterns),
				KnownErrors:    knownErrors,
			},
			Resources: &door.Resources{
				Docs:   []string{},
				Code:   []string{},
				Tests:  []string{},
				Errors: []string{},
			},
			Metadata: &door.Metadata{
				LastUpdated:   m.now().UTC().Format(time.RFC3339),
				Confidence:    1.0,
				Tags:          orEmpty(p.Tags),
				Category:      p.Category,
				Subcategory:   door.Subcategory(p.SemanticPath),
				Version:       "1.0.0",
				AgentAffinity: orEmpty(p.AgentAffinity),
			},
		},
	}
	return d, category, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fe.Field()+" is too long")
		case "excludesall":
			msgs = append(msgs, fe.Field()+" must not contain path separators")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ─── Validate ────────────────────────────────────────────────────────────────

// ValidationResult lists the problems found in one door. Warnings never
// make a door invalid.
type ValidationResult struct {
	Valid                bool     `json:"valid"`
	DoorCode             string   `json:"door_code,omitempty"`
	FilePath             string   `json:"file_path,omitempty"`
	Errors               []string `json:"errors"`
	Warnings             []string `json:"warnings"`
	MissingPrerequisites []string `json:"missing_prerequisites"`
	BrokenReferences     []string `json:"broken_references"`
}

// Validate checks the door identified by code or, when code is empty, the
// door file at path.
func (m *Manager) Validate(code, path string) ValidationResult {
	var res ValidationResult

	var (
		d   *door.Door
		err error
	)
	switch {
	case strings.TrimSpace(code) != "":
		d, err = m.store.LoadDocument(code)
	case strings.TrimSpace(path) != "":
		res.FilePath = path
		d, err = m.store.LoadFile(path)
	default:
		res.Errors = append(res.Errors, "Must provide door_code or file_path")
		return res
	}
	if err != nil {
		res.DoorCode = code
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to load: %v", err))
		return res
	}

	res.DoorCode = d.DoorCode
	if strings.TrimSpace(d.DoorCode) == "" {
		res.Errors = append(res.Errors, "door_code is empty")
	}
	if strings.TrimSpace(d.ContextBundle.Summary) == "" {
		res.Warnings = append(res.Warnings, "summary is empty")
	}
	for _, p := range d.ContextBundle.Prerequisites {
		if _, err := m.store.LoadDocument(p); err != nil {
			res.Warnings = append(res.Warnings, "Prerequisite not found: "+p)
			res.MissingPrerequisites = append(res.MissingPrerequisites, p)
		}
	}
	for _, r := range d.ContextBundle.RelatedDoors {
		if _, err := m.store.LoadDocument(r); err != nil {
			res.Warnings = append(res.Warnings, "Related door not found: "+r)
			res.BrokenReferences = append(res.BrokenReferences, r)
		}
	}
	if d.ContextBundle.Metadata == nil {
		res.Warnings = append(res.Warnings, "metadata missing")
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// ─── Batch ───────────────────────────────────────────────────────────────────

// BatchResult reports a batch creation.
type BatchResult struct {
	Success        bool     `json:"success"`
	Created        []string `json:"created"`
	Errors         []string `json:"errors"`
	IndexesUpdated bool     `json:"indexes_updated"`
	TotalDoors     int      `json:"total_doors"`
}

// journalEntry records one completed write so it can be undone.
type journalEntry struct {
	path    string
	prev    []byte
	existed bool
}

// writeJournal is the undo log of a batch.
type writeJournal []journalEntry

// rollback undoes every recorded write, newest first. Failures are
// returned for logging; rollback always runs to completion.
func (j writeJournal) rollback() []error {
	var errs []error
	for i := len(j) - 1; i >= 0; i-- {
		e := j[i]
		var err error
		if e.existed {
			err = store.WriteFileAtomic(e.path, e.prev)
		} else {
			err = os.Remove(e.path)
			if errors.Is(err, fs.ErrNotExist) {
				err = nil
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("rolling back %s: %w", e.path, err))
		}
	}
	return errs
}

// BatchCreate writes every item or none of them. With check set, every
// item is checked for an empty code, an existing door or a duplicate
// within the batch before anything is written. A failure while writing
// undoes the writes made so far. Indexes are rebuilt once at the end when
// updateIndexes is set and something was created.
func (m *Manager) BatchCreate(items []CreateParams, check, updateIndexes bool) BatchResult {
	res := BatchResult{Created: []string{}, Errors: []string{}}

	if check {
		res.Errors = m.precheck(items)
		if len(res.Errors) > 0 {
			return res
		}
	}

	var journal writeJournal
	abort := func(msg string) BatchResult {
		for _, err := range journal.rollback() {
			m.logger.Warn("WARNING: batch rollback failed", "error", err)
		}
		res.Created = []string{}
		res.Errors = append(res.Errors, msg)
		return res
	}

	for _, p := range items {
		d, category, err := m.buildDoor(p)
		if err != nil {
			return abort(err.Error())
		}

		path := m.store.DocumentPath(category, d.DoorCode)
		entry := journalEntry{path: path}
		if prev, err := os.ReadFile(path); err == nil {
			entry.prev = prev
			entry.existed = true
		}

		if _, err := m.store.WriteDocument(category, d); err != nil {
			return abort(fmt.Sprintf("Write error: %v", err))
		}
		journal = append(journal, entry)
		res.Created = append(res.Created, d.DoorCode)
	}

	if len(res.Created) > 0 {
		m.store.ClearCache()
		if updateIndexes {
			if r, err := m.RebuildIndexes(); err != nil {
				m.logger.Warn("WARNING: index rebuild after batch create failed", "error", err)
			} else {
				res.IndexesUpdated = true
				res.TotalDoors = r.DoorsIndexed
			}
		}
	}

	res.Success = true
	return res
}

func (m *Manager) precheck(items []CreateParams) []string {
	var msgs []string
	seen := make(map[string]bool, len(items))
	for _, p := range items {
		code := strings.TrimSpace(p.DoorCode)
		if code == "" {
			msgs = append(msgs, "Empty door_code")
			continue
		}
		norm := door.NormalizeCode(code)
		if seen[norm] {
			msgs = append(msgs, fmt.Sprintf("Door %s appears more than once", code))
			continue
		}
		seen[norm] = true

		_, category, err := m.buildDoor(p)
		if err != nil {
			msgs = append(msgs, err.Error())
			continue
		}
		if m.exists(category, code) {
			msgs = append(msgs, fmt.Sprintf("Door %s exists", code))
		}
	}
	return msgs
}
