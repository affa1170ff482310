// Package config resolves where the door corpus and session state live and
// who the current agent/session is.
//
// Precedence, lowest to highest: defaults, the optional JSONC config file,
// an optional .env file, process environment, command-line flags. The
// result is consumed once at startup and passed explicitly to every layer.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/tailscale/hujson"
)

const (
	// ContextsDir holds the category directories of the corpus.
	ContextsDir = "CONTEXTS"
	// IndexesDir holds derived index files.
	IndexesDir = "INDEXES"
	// HashTableFile is the code→location index.
	HashTableFile = "HASH_TABLE.json"
	// SearchDBFile is the SQLite full-text mirror of the corpus.
	SearchDBFile = "SEARCH.db"
	// SessionsDir is the per-(agent, session) state root.
	SessionsDir = "sessions"
	// ConfigFileName is looked up under the session root when no explicit
	// config path is given.
	ConfigFileName = "config.jsonc"

	// DefaultAgentID is used until the client identifies itself.
	DefaultAgentID = "default"
	// DefaultCacheTTL is how long a loaded door stays cached.
	DefaultCacheTTL = 5 * time.Minute
	// MaxIDLength caps sanitized identifiers.
	MaxIDLength = 64
)

// Environment variable names.
const (
	EnvPath        = "PHISHRI_PATH"
	EnvSessionRoot = "PHISHRI_SESSION_ROOT"
	EnvAgentID     = "PHISHRI_AGENT_ID"
	EnvSessionID   = "PHISHRI_SESSION_ID"
	EnvLog         = "PHISHRI_LOG"
	EnvLogLevel    = "PHISHRI_LOG_LEVEL"
	EnvCacheTTL    = "PHISHRI_CACHE_TTL"
	EnvWatch       = "PHISHRI_WATCH"
	EnvLogJournal  = "PHISHRI_LOG_JOURNAL"
	EnvConfig      = "PHISHRI_CONFIG"
)

var (
	errConfigRead    = errors.New("cannot read config file")
	errConfigInvalid = errors.New("invalid config file")
)

// Config is the resolved runtime configuration.
type Config struct {
	Root        string        `validate:"required"`
	SessionRoot string        `validate:"required"`
	AgentID     string        `validate:"required,max=64"`
	SessionID   string        `validate:"required,max=64"`
	CacheTTL    time.Duration `validate:"gte=0"`
	LogLevel    string        `validate:"oneof=debug info warn error"`
	LogFile     string
	LogJournal  bool
	Watch       bool
}

// fileConfig mirrors the JSONC config file. Empty values leave the
// current setting untouched.
type fileConfig struct {
	Root        string `json:"root"`
	SessionRoot string `json:"session_root"`
	AgentID     string `json:"agent_id"`
	SessionID   string `json:"session_id"`
	CacheTTL    string `json:"cache_ttl"`
	LogLevel    string `json:"log_level"`
	LogFile     string `json:"log_file"`
	LogJournal  *bool  `json:"log_journal"`
	Watch       *bool  `json:"watch"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	sessionRoot := filepath.Join(home, ".phishri")
	return Config{
		Root:        filepath.Join(sessionRoot, "knowledge"),
		SessionRoot: sessionRoot,
		AgentID:     DefaultAgentID,
		SessionID:   NewSessionID(time.Now()),
		CacheTTL:    DefaultCacheTTL,
		LogLevel:    "info",
	}
}

// NewSessionID returns a hex millisecond timestamp with a short random
// suffix so two processes started in the same millisecond do not collide.
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("%x-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// LoadOptions selects optional inputs for Load.
type LoadOptions struct {
	// ConfigPath is an explicit JSONC file; it must exist when set.
	ConfigPath string
	// EnvFile is a dotenv file loaded before the environment is read.
	// Variables already present in the environment win.
	EnvFile string
	// Lookup reads the environment. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load assembles the configuration from defaults, config file and
// environment. Flags are applied afterwards by the caller via Overrides.
func Load(opts LoadOptions) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return Config{}, fmt.Errorf("loading env file %s: %w", opts.EnvFile, err)
		}
	}
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := Default()

	// The session root decides where the default config file lives, so it
	// is resolved from the environment first.
	if v, ok := lookup(EnvSessionRoot); ok && v != "" {
		cfg.SessionRoot = v
	}

	path, mustExist := opts.ConfigPath, true
	if path == "" {
		if v, ok := lookup(EnvConfig); ok && v != "" {
			path = v
		} else {
			path, mustExist = filepath.Join(cfg.SessionRoot, ConfigFileName), false
		}
	}
	fc, found, err := readConfigFile(path, mustExist)
	if err != nil {
		return Config{}, err
	}
	if found {
		if err := cfg.merge(fc); err != nil {
			return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readConfigFile(path string, mustExist bool) (fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !mustExist && errors.Is(err, os.ErrNotExist) {
			return fileConfig{}, false, nil
		}
		return fileConfig{}, false, fmt.Errorf("%w: %s: %w", errConfigRead, path, err)
	}
	fc, err := parseConfig(data)
	if err != nil {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return fc, true, nil
}

func parseConfig(data []byte) (fileConfig, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	var fc fileConfig
	if err := json.Unmarshal(standardized, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return fc, nil
}

func (c *Config) merge(fc fileConfig) error {
	if fc.Root != "" {
		c.Root = expandHome(fc.Root)
	}
	if fc.SessionRoot != "" {
		c.SessionRoot = expandHome(fc.SessionRoot)
	}
	if fc.AgentID != "" {
		c.AgentID = SanitizeID(fc.AgentID)
	}
	if fc.SessionID != "" {
		c.SessionID = SanitizeID(fc.SessionID)
	}
	if fc.CacheTTL != "" {
		d, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return fmt.Errorf("cache_ttl: %w", err)
		}
		c.CacheTTL = d
	}
	if fc.LogLevel != "" {
		c.LogLevel = strings.ToLower(fc.LogLevel)
	}
	if fc.LogFile != "" {
		c.LogFile = expandHome(fc.LogFile)
	}
	if fc.LogJournal != nil {
		c.LogJournal = *fc.LogJournal
	}
	if fc.Watch != nil {
		c.Watch = *fc.Watch
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPath); ok && v != "" {
		c.Root = v
	}
	if v, ok := lookup(EnvSessionRoot); ok && v != "" {
		c.SessionRoot = v
	}
	if v, ok := lookup(EnvAgentID); ok && v != "" {
		c.AgentID = SanitizeID(v)
	}
	if v, ok := lookup(EnvSessionID); ok && v != "" {
		c.SessionID = SanitizeID(v)
	}
	if v, ok := lookup(EnvLog); ok && v != "" {
		c.LogFile = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup(EnvCacheTTL); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		c.CacheTTL = d
	}
	if v, ok := lookup(EnvWatch); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWatch, err)
		}
		c.Watch = b
	}
	if v, ok := lookup(EnvLogJournal); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogJournal, err)
		}
		c.LogJournal = b
	}
	return nil
}

var validate = validator.New()

// Validate checks the assembled configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// --- Paths ---

// ContextsPath returns <root>/CONTEXTS.
func (c Config) ContextsPath() string {
	return filepath.Join(c.Root, ContextsDir)
}

// IndexesPath returns <root>/INDEXES.
func (c Config) IndexesPath() string {
	return filepath.Join(c.Root, IndexesDir)
}

// HashTablePath returns <root>/INDEXES/HASH_TABLE.json.
func (c Config) HashTablePath() string {
	return filepath.Join(c.IndexesPath(), HashTableFile)
}

// SearchDBPath returns <root>/INDEXES/SEARCH.db.
func (c Config) SearchDBPath() string {
	return filepath.Join(c.IndexesPath(), SearchDBFile)
}

// SessionsPath returns <session_root>/sessions.
func (c Config) SessionsPath() string {
	return filepath.Join(c.SessionRoot, SessionsDir)
}

// --- Identifiers ---

// SanitizeID makes s safe for use as a path segment: every character
// outside [A-Za-z0-9_-] becomes '_' and the result is capped at
// MaxIDLength characters.
func SanitizeID(s string) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == MaxIDLength {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
