package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Stryk91/PhiSHRI/internal/config"
	"github.com/Stryk91/PhiSHRI/internal/door"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	d := &door.Door{
		DoorCode:      "T01ALPHA",
		SemanticPath:  "TOOLS.ALPHA",
		ContextBundle: door.ContextBundle{Summary: "Alpha tool"},
	}
	data, err := door.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(root, config.ContextsDir, "TOOLS")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "T01ALPHA.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	return config.Config{
		Root:        root,
		SessionRoot: t.TempDir(),
		AgentID:     config.DefaultAgentID,
		SessionID:   "s1",
		CacheTTL:    time.Minute,
		LogLevel:    "info",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// exchange runs a scripted conversation and returns responses by id.
func exchange(t *testing.T, cfg config.Config, lines ...string) map[int]map[string]any {
	t.Helper()
	s, cleanup, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	got := make(map[int]map[string]any)
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var resp struct {
			ID     int            `json:"id"`
			Result map[string]any `json:"result"`
			Error  map[string]any `json:"error"`
		}
		if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
			t.Fatalf("bad response line %q: %v", sc.Text(), err)
		}
		if resp.Error != nil {
			t.Fatalf("response %d failed: %v", resp.ID, resp.Error)
		}
		got[resp.ID] = resp.Result
	}
	return got
}

const (
	initialize  = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"tester","version":"1"}}}`
	initialized = `{"jsonrpc":"2.0","method":"notifications/initialized"}`
)

func names(t *testing.T, result map[string]any, key, field string) []string {
	t.Helper()
	items, ok := result[key].([]any)
	if !ok {
		t.Fatalf("%s missing from %v", key, result)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.(map[string]any)[field].(string))
	}
	return out
}

func TestServe_RegistersEverything(t *testing.T) {
	got := exchange(t, testConfig(t),
		initialize,
		initialized,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"prompts/list"}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":5,"method":"resources/templates/list"}`,
	)

	info := got[1]["serverInfo"].(map[string]any)
	if info["name"] != "phishri-mcp" || info["version"] != Version {
		t.Errorf("serverInfo = %v", info)
	}
	if got[1]["instructions"] == "" {
		t.Error("instructions missing from handshake")
	}

	wantTools := []string{
		"phishri_read_door", "phishri_list_doors", "phishri_find_door", "phishri_load_chain",
		"phishri_create_door", "phishri_validate_door", "phishri_batch_create",
		"phishri_get_bootstrap", "phishri_update_bootstrap", "phishri_session_checkpoint",
		"phishri_search_semantic", "phishri_get_prerequisites", "phishri_rebuild_indexes",
		"phishri_audit", "phishri_stats",
	}
	if diff := cmp.Diff(wantTools, names(t, got[2], "tools", "name")); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}

	wantPrompts := []string{"open_door", "explore_category", "find_context", "session_resume", "phishri_overview"}
	if diff := cmp.Diff(wantPrompts, names(t, got[3], "prompts", "name")); diff != "" {
		t.Errorf("prompts mismatch (-want +got):\n%s", diff)
	}

	uris := names(t, got[4], "resources", "uri")
	if len(uris) != len(door.Categories)+2 {
		t.Errorf("%d resources: %v", len(uris), uris)
	}

	templates := names(t, got[5], "resourceTemplates", "uriTemplate")
	if diff := cmp.Diff([]string{"phishri://door/{door_code}"}, templates); diff != "" {
		t.Errorf("templates mismatch (-want +got):\n%s", diff)
	}
}

func TestServe_AnswersToolCalls(t *testing.T) {
	cfg := testConfig(t)
	cfg.Watch = true
	got := exchange(t, cfg,
		initialize,
		initialized,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"phishri_rebuild_indexes","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"phishri_read_door","arguments":{"door_code":"t01"}}}`,
	)

	text := func(id int) string {
		content := got[id]["content"].([]any)
		return content[0].(map[string]any)["text"].(string)
	}
	if !strings.Contains(text(2), "Doors indexed: 1") {
		t.Errorf("rebuild = %q", text(2))
	}
	if !strings.Contains(text(3), "T01ALPHA") || !strings.Contains(text(3), "Alpha tool") {
		t.Errorf("read = %q", text(3))
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.AgentID = ""
	if _, cleanup, err := New(cfg, quietLogger()); err == nil {
		cleanup()
		t.Error("expected an error for an empty agent id")
	}
}

func TestCorpusChanged_ClearsCache(t *testing.T) {
	cfg := testConfig(t)
	s, cleanup, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	if _, err := s.Manager().RebuildIndexes(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Manager().Read("T01ALPHA"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(cfg.Root, config.ContextsDir, "TOOLS", "T01ALPHA.json")
	edited := &door.Door{DoorCode: "T01ALPHA", ContextBundle: door.ContextBundle{Summary: "Edited"}}
	data, err := door.Marshal(edited)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s.corpusChanged([]string{path})
	d, err := s.Manager().Read("T01ALPHA")
	if err != nil {
		t.Fatal(err)
	}
	if d.ContextBundle.Summary != "Edited" {
		t.Errorf("summary = %q, want the edited value after cache clear", d.ContextBundle.Summary)
	}
}
