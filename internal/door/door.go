// Package door defines the on-disk shape of a door document and the small
// set of pure helpers every other layer relies on: code normalization,
// short-code derivation, category inference and markdown rendering.
//
// A door is a single JSON knowledge unit keyed by a unique uppercase code
// such as D05SILENT_INSTALL. Nothing in this package touches the
// filesystem; loading and caching live in internal/store.
package door

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Door is a single knowledge document.
type Door struct {
	DoorCode      string        `json:"door_code"`
	SemanticPath  string        `json:"semantic_path"`
	Aliases       []string      `json:"aliases"`
	ContextBundle ContextBundle `json:"context_bundle"`
}

// ContextBundle holds the knowledge payload of a door.
type ContextBundle struct {
	Summary       string      `json:"summary"`
	Prerequisites []string    `json:"prerequisites"`
	RelatedDoors  []string    `json:"related_doors"`
	Onboarding    *Onboarding `json:"onboarding,omitempty"`
	Resources     *Resources  `json:"resources,omitempty"`
	Metadata      *Metadata   `json:"metadata,omitempty"`
}

// Onboarding carries quick-start guidance for a door.
type Onboarding struct {
	QuickStart      string       `json:"quick_start"`
	FullContextPath string       `json:"full_context_path"`
	CommonPatterns  []string     `json:"common_patterns"`
	KnownErrors     []KnownError `json:"known_errors"`
}

// Resources lists external references attached to a door.
type Resources struct {
	Docs   []string `json:"docs"`
	Code   []string `json:"code"`
	Tests  []string `json:"tests"`
	Errors []string `json:"errors"`
}

// Metadata describes provenance and classification of a door.
type Metadata struct {
	LastUpdated   string   `json:"last_updated"`
	Confidence    float64  `json:"confidence"`
	Tags          []string `json:"tags"`
	Category      string   `json:"category"`
	Subcategory   string   `json:"subcategory"`
	Version       string   `json:"version"`
	AgentAffinity []string `json:"agent_affinity"`
}

// UnmarshalJSON applies the 1.0 confidence default when the field is absent.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type plain Metadata
	out := plain{Confidence: 1.0}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*m = Metadata(out)
	return nil
}

// KnownError is an entry of onboarding.known_errors. Corpus files store
// either a bare string or an object with an "error" field plus arbitrary
// extra keys; both forms round-trip unchanged.
type KnownError struct {
	Text string
	raw  json.RawMessage
}

// NewKnownError builds a string-form known error.
func NewKnownError(text string) KnownError {
	return KnownError{Text: text}
}

// UnmarshalJSON accepts a string or an object with an "error" key.
func (k *KnownError) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*k = KnownError{Text: s}
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	text, _ := obj["error"].(string)
	k.Text = text
	k.raw = append(json.RawMessage(nil), trimmed...)
	return nil
}

// MarshalJSON writes back the original object form when there was one.
func (k KnownError) MarshalJSON() ([]byte, error) {
	if len(k.raw) > 0 {
		return k.raw, nil
	}
	return json.Marshal(k.Text)
}

// Parse decodes a door document. Errors are wrapped in *ParseError by the
// caller that knows the file path.
func Parse(data []byte) (*Door, error) {
	var d Door
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Marshal encodes a door the way corpus files are written: two-space
// indented JSON with a trailing newline.
func Marshal(d *Door) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ShortCode returns the derived short code of the door.
func (d *Door) ShortCode() string {
	return ShortCode(d.DoorCode)
}

// Category returns the metadata category when set, otherwise the
// category inferred from the code prefix.
func (d *Door) Category() string {
	if d.ContextBundle.Metadata != nil && d.ContextBundle.Metadata.Category != "" {
		return d.ContextBundle.Metadata.Category
	}
	return InferCategory(d.DoorCode)
}

// Tags returns metadata tags, or nil when the door has no metadata.
func (d *Door) Tags() []string {
	if d.ContextBundle.Metadata == nil {
		return nil
	}
	return d.ContextBundle.Metadata.Tags
}

// FirstSummaryLine returns the first line of the summary.
func (d *Door) FirstSummaryLine() string {
	s := d.ContextBundle.Summary
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
