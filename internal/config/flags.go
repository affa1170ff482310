package config

import (
	"strings"
	"time"

	flag "github.com/spf13/pflag"
)

// Overrides are the command-line settings that take precedence over every
// other source. Only flags the user actually set are applied.
type Overrides struct {
	ConfigPath  string
	EnvFile     string
	Root        string
	SessionRoot string
	AgentID     string
	SessionID   string
	LogLevel    string
	LogFile     string
	LogJournal  bool
	CacheTTL    time.Duration
}

// Register binds the override flags to fs.
func (o *Overrides) Register(fs *flag.FlagSet) {
	fs.StringVar(&o.ConfigPath, "config", "", "Path to a JSONC config file")
	fs.StringVar(&o.EnvFile, "env-file", "", "Load environment variables from a .env file")
	fs.StringVar(&o.Root, "root", "", "Door corpus root (contains CONTEXTS/ and INDEXES/)")
	fs.StringVar(&o.SessionRoot, "session-root", "", "Session state root")
	fs.StringVar(&o.AgentID, "agent-id", "", "Agent identifier")
	fs.StringVar(&o.SessionID, "session-id", "", "Session identifier")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&o.LogFile, "log-file", "", "Also write JSON logs to this file")
	fs.BoolVar(&o.LogJournal, "log-journal", false, "Also send logs to the systemd journal")
	fs.DurationVar(&o.CacheTTL, "cache-ttl", DefaultCacheTTL, "Door cache time-to-live")
}

// Apply copies every flag that was set on fs into cfg.
func (o Overrides) Apply(cfg *Config, fs *flag.FlagSet) {
	if fs.Changed("root") {
		cfg.Root = expandHome(o.Root)
	}
	if fs.Changed("session-root") {
		cfg.SessionRoot = expandHome(o.SessionRoot)
	}
	if fs.Changed("agent-id") {
		cfg.AgentID = SanitizeID(o.AgentID)
	}
	if fs.Changed("session-id") {
		cfg.SessionID = SanitizeID(o.SessionID)
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(o.LogLevel)
	}
	if fs.Changed("log-file") {
		cfg.LogFile = expandHome(o.LogFile)
	}
	if fs.Changed("log-journal") {
		cfg.LogJournal = o.LogJournal
	}
	if fs.Changed("cache-ttl") {
		cfg.CacheTTL = o.CacheTTL
	}
}

// Resolve loads the configuration and applies the flag overrides.
func (o Overrides) Resolve(fs *flag.FlagSet) (Config, error) {
	cfg, err := Load(LoadOptions{ConfigPath: o.ConfigPath, EnvFile: o.EnvFile})
	if err != nil {
		return Config{}, err
	}
	o.Apply(&cfg, fs)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
