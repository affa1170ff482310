package session_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Stryk91/PhiSHRI/internal/session"
)

var fixedNow = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

func newSession(t *testing.T, root, agent, id string) *session.Session {
	t.Helper()
	s := session.New(root, agent, id)
	s.SetNow(func() time.Time { return fixedNow })
	return s
}

func TestNew_SanitizesIDs(t *testing.T) {
	s := session.New(t.TempDir(), "claude code/1.0", "a b")
	if s.AgentID() != "claude_code_1_0" || s.SessionID() != "a_b" {
		t.Errorf("ids = %q, %q", s.AgentID(), s.SessionID())
	}
	if filepath.Base(s.Dir()) != "claude_code_1_0_a_b" {
		t.Errorf("dir = %s", s.Dir())
	}
}

func TestSetAgent(t *testing.T) {
	s := session.New(t.TempDir(), "default", "s1")
	if got := s.SetAgent("Cursor IDE"); got != "Cursor_IDE" {
		t.Errorf("SetAgent = %q", got)
	}
	if got := s.SetAgent("  "); got != "Cursor_IDE" {
		t.Errorf("blank SetAgent changed agent to %q", got)
	}
}

func TestBootstrap_ReadMissingThenUpdate(t *testing.T) {
	s := newSession(t, t.TempDir(), "agent", "s1")

	_, ok, err := s.ReadBootstrap()
	if err != nil || ok {
		t.Fatalf("ReadBootstrap on new session = %v, %v; want not ok", ok, err)
	}

	path, err := s.UpdateBootstrap(session.BootstrapUpdate{
		Progress:    "batch 2 of 5",
		DoorsLoaded: []string{"D05SILENT_INSTALL"},
	})
	if err != nil {
		t.Fatalf("UpdateBootstrap: %v", err)
	}
	if path != s.BootstrapPath() {
		t.Errorf("path = %s, want %s", path, s.BootstrapPath())
	}

	b, ok, err := s.LoadBootstrap()
	if err != nil || !ok {
		t.Fatalf("LoadBootstrap = %v, %v", ok, err)
	}
	want := session.Bootstrap{
		AgentID:     "agent",
		SessionID:   "s1",
		UpdatedAt:   "2025-06-01T08:30:00Z",
		Progress:    "batch 2 of 5",
		NextOptions: []string{},
		DoorsLoaded: []string{"D05SILENT_INSTALL"},
	}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Errorf("bootstrap mismatch (-want +got):\n%s", diff)
	}
}

func TestSessions_AreIsolated(t *testing.T) {
	root := t.TempDir()
	a := newSession(t, root, "agent", "one")
	b := newSession(t, root, "agent", "two")

	if _, err := a.UpdateBootstrap(session.BootstrapUpdate{Progress: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := b.ReadBootstrap(); ok {
		t.Fatal("session two must not see session one's bootstrap")
	}
	if _, err := b.Checkpoint("cp", nil, ""); err != nil {
		t.Fatal(err)
	}
	cps, err := a.ListCheckpoints()
	if err != nil {
		t.Fatal(err)
	}
	if len(cps) != 0 {
		t.Errorf("session one sees %d foreign checkpoints", len(cps))
	}
}

func TestCheckpoint_SanitizedNameCollisionOverwrites(t *testing.T) {
	s := newSession(t, t.TempDir(), "agent", "s1")

	first, err := s.Checkpoint("before deploy", []string{"W01"}, "first")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Checkpoint("before/deploy", nil, "second")
	if err != nil {
		t.Fatal(err)
	}
	if first != second || filepath.Base(first) != "before_deploy.json" {
		t.Fatalf("paths = %s, %s", first, second)
	}

	data, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	var cp session.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		t.Fatal(err)
	}
	if cp.Name != "before/deploy" || cp.Notes != "second" {
		t.Errorf("checkpoint = %+v", cp)
	}

	cps, err := s.ListCheckpoints()
	if err != nil {
		t.Fatal(err)
	}
	if len(cps) != 1 {
		t.Errorf("checkpoints = %d, want 1", len(cps))
	}
}

func TestCheckpoint_EmptyName(t *testing.T) {
	s := newSession(t, t.TempDir(), "agent", "s1")
	if _, err := s.Checkpoint("  ", nil, ""); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("err = %v, want empty-name error", err)
	}
}

func TestListAndCleanup(t *testing.T) {
	root := t.TempDir()
	for _, s := range []*session.Session{
		newSession(t, root, "agent", "old"),
		newSession(t, root, "agent", "new"),
		newSession(t, root, "other_bot", "x"),
	} {
		if err := s.EnsureDirs(); err != nil {
			t.Fatal(err)
		}
	}
	old := fixedNow.Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(root, "agent_old"), old, old); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{"agent_new", "other_bot_x"} {
		if err := os.Chtimes(filepath.Join(root, dir), fixedNow, fixedNow); err != nil {
			t.Fatal(err)
		}
	}

	mine, err := session.List(root, "agent")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, s := range mine {
		ids = append(ids, s.SessionID)
	}
	if diff := cmp.Diff([]string{"new", "old"}, ids); diff != "" {
		t.Errorf("agent sessions mismatch (-want +got):\n%s", diff)
	}

	bot, err := session.List(root, "other_bot")
	if err != nil {
		t.Fatal(err)
	}
	if len(bot) != 1 || bot[0].SessionID != "x" {
		t.Errorf("underscore agent listing = %+v", bot)
	}

	removed, err := session.Cleanup(root, 24*time.Hour, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(filepath.Join(root, "agent_old")); !os.IsNotExist(err) {
		t.Errorf("old session still present: %v", err)
	}
}

func TestList_MissingRoot(t *testing.T) {
	got, err := session.List(filepath.Join(t.TempDir(), "nope"), "")
	if err != nil || got != nil {
		t.Errorf("List on missing root = %v, %v", got, err)
	}
}
