package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Info describes one session directory.
type Info struct {
	AgentID   string    `json:"agent_id"`
	SessionID string    `json:"session_id"`
	Dir       string    `json:"dir"`
	ModTime   time.Time `json:"mod_time"`
}

// List returns the sessions under sessionsRoot, optionally only those of
// agent, ordered by agent then session. The directory name is split at its
// first underscore.
func List(sessionsRoot, agent string) ([]Info, error) {
	entries, err := os.ReadDir(sessionsRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading sessions: %w", ErrBootstrap, err)
	}

	var out []Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		agentID, sessionID, ok := strings.Cut(e.Name(), "_")
		if !ok {
			continue
		}
		if agent != "" {
			// Agent ids may themselves contain underscores.
			prefix := agent + "_"
			if !strings.HasPrefix(e.Name(), prefix) {
				continue
			}
			agentID, sessionID = agent, strings.TrimPrefix(e.Name(), prefix)
		}
		dir := filepath.Join(sessionsRoot, e.Name())
		out = append(out, Info{
			AgentID:   agentID,
			SessionID: sessionID,
			Dir:       dir,
			ModTime:   lastModified(dir),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AgentID != out[j].AgentID {
			return out[i].AgentID < out[j].AgentID
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out, nil
}

// Cleanup removes session directories last modified before now-olderThan
// and returns how many were removed. Removal stops at the first failure.
func Cleanup(sessionsRoot string, olderThan time.Duration, now time.Time) (int, error) {
	sessions, err := List(sessionsRoot, "")
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-olderThan)
	removed := 0
	for _, s := range sessions {
		if !s.ModTime.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(s.Dir); err != nil {
			return removed, fmt.Errorf("%w: removing %s: %w", ErrBootstrap, s.Dir, err)
		}
		removed++
	}
	return removed, nil
}

// lastModified is the newer of the directory and its bootstrap file mtime.
func lastModified(dir string) time.Time {
	var latest time.Time
	for _, p := range []string{dir, filepath.Join(dir, BootstrapFile)} {
		if info, err := os.Stat(p); err == nil && info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest
}
