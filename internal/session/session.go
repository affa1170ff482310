// Package session persists per-(agent, session) state: one bootstrap
// record and a directory of named checkpoints.
//
// Layout under the sessions root:
//
//	<agent>_<session>/
//	  bootstrap.json
//	  checkpoints/<name>.json
//
// Paths are always derived from sanitized ids, so one session never reads
// or writes another's files. The door corpus is not touched here.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Stryk91/PhiSHRI/internal/config"
	"github.com/Stryk91/PhiSHRI/internal/store"
)

const (
	// BootstrapFile is the per-session progress record.
	BootstrapFile = "bootstrap.json"
	// CheckpointsDir holds named snapshots.
	CheckpointsDir = "checkpoints"
)

// ErrBootstrap wraps every session state failure.
var ErrBootstrap = errors.New("session state error")

// Bootstrap is the progress snapshot of a session.
type Bootstrap struct {
	AgentID        string   `json:"agent_id"`
	SessionID      string   `json:"session_id"`
	UpdatedAt      string   `json:"updated_at"`
	Progress       string   `json:"progress"`
	BatchCompleted string   `json:"batch_completed"`
	NextOptions    []string `json:"next_options"`
	DoorsLoaded    []string `json:"doors_loaded"`
}

// Checkpoint is a named snapshot. Writing a checkpoint with a name that
// sanitizes to an existing one replaces it.
type Checkpoint struct {
	Name        string   `json:"name"`
	CreatedAt   string   `json:"created_at"`
	AgentID     string   `json:"agent_id"`
	SessionID   string   `json:"session_id"`
	DoorsLoaded []string `json:"doors_loaded"`
	Notes       string   `json:"notes"`
}

// Session is the state handle of the running agent session. The agent id
// may change once, when the client identifies itself.
type Session struct {
	root string
	now  func() time.Time

	mu        sync.RWMutex
	agentID   string
	sessionID string
}

// New creates a session handle rooted at sessionsRoot (the directory that
// holds every <agent>_<session> directory). Ids are sanitized.
func New(sessionsRoot, agentID, sessionID string) *Session {
	return &Session{
		root:      sessionsRoot,
		now:       time.Now,
		agentID:   config.SanitizeID(agentID),
		sessionID: config.SanitizeID(sessionID),
	}
}

// AgentID returns the current agent id.
func (s *Session) AgentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agentID
}

// SessionID returns the session id.
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// SetAgent replaces the agent id with the sanitized form of id and returns
// it. A blank id is ignored.
func (s *Session) SetAgent(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(id) != "" {
		s.agentID = config.SanitizeID(id)
	}
	return s.agentID
}

// DirName returns "<agent>_<session>".
func DirName(agentID, sessionID string) string {
	return agentID + "_" + sessionID
}

// Dir returns this session's directory.
func (s *Session) Dir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filepath.Join(s.root, DirName(s.agentID, s.sessionID))
}

// BootstrapPath returns this session's bootstrap file.
func (s *Session) BootstrapPath() string {
	return filepath.Join(s.Dir(), BootstrapFile)
}

// CheckpointsPath returns this session's checkpoints directory.
func (s *Session) CheckpointsPath() string {
	return filepath.Join(s.Dir(), CheckpointsDir)
}

// EnsureDirs creates the session and checkpoints directories.
func (s *Session) EnsureDirs() error {
	if err := os.MkdirAll(s.CheckpointsPath(), 0o755); err != nil {
		return fmt.Errorf("%w: creating session directory: %w", ErrBootstrap, err)
	}
	return nil
}

// --- Bootstrap ---

// ReadBootstrap returns the raw bootstrap file content. ok is false when
// the session has no bootstrap yet.
func (s *Session) ReadBootstrap() (content string, ok bool, err error) {
	data, err := os.ReadFile(s.BootstrapPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: reading bootstrap: %w", ErrBootstrap, err)
	}
	return string(data), true, nil
}

// LoadBootstrap decodes the bootstrap file. ok is false when there is none.
func (s *Session) LoadBootstrap() (b Bootstrap, ok bool, err error) {
	content, ok, err := s.ReadBootstrap()
	if err != nil || !ok {
		return Bootstrap{}, ok, err
	}
	if err := json.Unmarshal([]byte(content), &b); err != nil {
		return Bootstrap{}, true, fmt.Errorf("%w: parsing bootstrap: %w", ErrBootstrap, err)
	}
	return b, true, nil
}

// BootstrapUpdate carries the caller-supplied bootstrap fields. The whole
// record is replaced; nil lists are written as empty lists.
type BootstrapUpdate struct {
	Progress       string
	BatchCompleted string
	NextOptions    []string
	DoorsLoaded    []string
}

// UpdateBootstrap replaces the bootstrap record and returns its path.
func (s *Session) UpdateBootstrap(u BootstrapUpdate) (string, error) {
	if err := s.EnsureDirs(); err != nil {
		return "", err
	}
	b := Bootstrap{
		AgentID:        s.AgentID(),
		SessionID:      s.SessionID(),
		UpdatedAt:      s.now().UTC().Format(time.RFC3339),
		Progress:       u.Progress,
		BatchCompleted: u.BatchCompleted,
		NextOptions:    orEmpty(u.NextOptions),
		DoorsLoaded:    orEmpty(u.DoorsLoaded),
	}
	path := s.BootstrapPath()
	if err := writeJSON(path, b); err != nil {
		return "", fmt.Errorf("%w: writing bootstrap: %w", ErrBootstrap, err)
	}
	return path, nil
}

// --- Checkpoints ---

// Checkpoint writes a named snapshot and returns its path. The file name
// is the sanitized name.
func (s *Session) Checkpoint(name string, doorsLoaded []string, notes string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: checkpoint name is empty", ErrBootstrap)
	}
	if err := s.EnsureDirs(); err != nil {
		return "", err
	}
	cp := Checkpoint{
		Name:        name,
		CreatedAt:   s.now().UTC().Format(time.RFC3339),
		AgentID:     s.AgentID(),
		SessionID:   s.SessionID(),
		DoorsLoaded: orEmpty(doorsLoaded),
		Notes:       notes,
	}
	path := filepath.Join(s.CheckpointsPath(), config.SanitizeID(name)+".json")
	if err := writeJSON(path, cp); err != nil {
		return "", fmt.Errorf("%w: writing checkpoint: %w", ErrBootstrap, err)
	}
	return path, nil
}

// ListCheckpoints returns this session's checkpoints, oldest first.
// Unreadable files are skipped.
func (s *Session) ListCheckpoints() ([]Checkpoint, error) {
	dir := s.CheckpointsPath()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading checkpoints: %w", ErrBootstrap, err)
	}

	var out []Checkpoint
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			continue
		}
		out = append(out, cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// --- Helpers ---

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return store.WriteFileAtomic(path, append(data, '\n'))
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
