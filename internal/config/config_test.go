package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
)

// envMap returns a lookup func backed by m.
func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// --- SanitizeID ---

func TestSanitizeID_ReplacesIllegalCharacters(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"claude-code", "claude-code"},
		{"Claude Code", "Claude_Code"},
		{"a/b\\c:d", "a_b_c_d"},
		{"agent_01", "agent_01"},
		{"é", "_"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeID(tt.in); got != tt.want {
			t.Errorf("SanitizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeID_CapsLength(t *testing.T) {
	got := SanitizeID(strings.Repeat("x", 200))
	if len(got) != MaxIDLength {
		t.Errorf("len = %d, want %d", len(got), MaxIDLength)
	}
}

func TestSanitizeID_IllegalDifferencesCollapse(t *testing.T) {
	if SanitizeID("my agent") != SanitizeID("my/agent") {
		t.Error("inputs differing only in illegal characters should sanitize equally")
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(LoadOptions{Lookup: envMap(map[string]string{EnvSessionRoot: root})})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SessionRoot != root {
		t.Errorf("SessionRoot = %q, want %q", cfg.SessionRoot, root)
	}
	if cfg.AgentID != DefaultAgentID {
		t.Errorf("AgentID = %q, want %q", cfg.AgentID, DefaultAgentID)
	}
	if cfg.SessionID == "" {
		t.Error("SessionID should be generated")
	}
	if cfg.CacheTTL != DefaultCacheTTL {
		t.Errorf("CacheTTL = %v, want %v", cfg.CacheTTL, DefaultCacheTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_JSONCFileThenEnv(t *testing.T) {
	root := t.TempDir()
	jsonc := `{
		// corpus lives elsewhere
		"root": "/srv/phishri",
		"agent_id": "from file",
		"cache_ttl": "90s",
		"watch": true, // trailing comma below
	}`
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte(jsonc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{Lookup: envMap(map[string]string{
		EnvSessionRoot: root,
		EnvAgentID:     "env-agent",
	})})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != "/srv/phishri" {
		t.Errorf("Root = %q, want /srv/phishri", cfg.Root)
	}
	if cfg.AgentID != "env-agent" {
		t.Errorf("AgentID = %q, env should win over file", cfg.AgentID)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("CacheTTL = %v, want 90s", cfg.CacheTTL)
	}
	if !cfg.Watch {
		t.Error("Watch should be true from file")
	}
}

func TestLoad_ExplicitMissingConfigFails(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigPath: filepath.Join(t.TempDir(), "nope.jsonc"),
		Lookup:     envMap(nil),
	})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_InvalidTTL(t *testing.T) {
	_, err := Load(LoadOptions{Lookup: envMap(map[string]string{
		EnvSessionRoot: t.TempDir(),
		EnvCacheTTL:    "soon",
	})})
	if err == nil {
		t.Fatal("expected error for invalid TTL")
	}
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for log level")
	}
}

// --- Flags ---

func TestOverrides_OnlyChangedFlagsApply(t *testing.T) {
	var o Overrides
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	o.Register(fs)
	if err := fs.Parse([]string{"--root", "/tmp/corpus", "--agent-id", "a b"}); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	before := cfg.SessionRoot
	o.Apply(&cfg, fs)

	if cfg.Root != "/tmp/corpus" {
		t.Errorf("Root = %q", cfg.Root)
	}
	if cfg.AgentID != "a_b" {
		t.Errorf("AgentID = %q, want sanitized a_b", cfg.AgentID)
	}
	if cfg.SessionRoot != before {
		t.Errorf("SessionRoot changed without flag: %q", cfg.SessionRoot)
	}
}

// --- Paths ---

func TestPaths(t *testing.T) {
	cfg := Config{Root: "/k", SessionRoot: "/s"}
	if got := cfg.HashTablePath(); got != filepath.Join("/k", "INDEXES", "HASH_TABLE.json") {
		t.Errorf("HashTablePath = %q", got)
	}
	if got := cfg.ContextsPath(); got != filepath.Join("/k", "CONTEXTS") {
		t.Errorf("ContextsPath = %q", got)
	}
	if got := cfg.SessionsPath(); got != filepath.Join("/s", "sessions") {
		t.Errorf("SessionsPath = %q", got)
	}
}
