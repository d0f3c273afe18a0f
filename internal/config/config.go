package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Terminal kinds accepted in monitor.terminals.
const (
	TerminalITerm2    = "iterm2"
	TerminalAlacritty = "alacritty"
)

// Inspector backends accepted in monitor.inspector.
const (
	InspectorAuto   = "auto"
	InspectorPS     = "ps"
	InspectorPsutil = "psutil"
)

type Config struct {
	Monitor MonitorConfig `yaml:"monitor" toml:"monitor"`
	Paths   PathsConfig   `yaml:"paths" toml:"paths"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	HTTP    HTTPConfig    `yaml:"http" toml:"http"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

type MonitorConfig struct {
	// Program is the process name of the monitored assistant.
	Program      string        `yaml:"program" toml:"program"`
	PollInterval time.Duration `yaml:"poll_interval" toml:"poll_interval"`
	// QueryTimeout bounds every external command the inspector runs.
	QueryTimeout time.Duration `yaml:"query_timeout" toml:"query_timeout"`
	Inspector    string        `yaml:"inspector" toml:"inspector"`
	// Terminals lists enumerated terminal kinds in priority order. The
	// first kind keeps its own ordering; the rest are sorted by tty.
	Terminals   []string `yaml:"terminals" toml:"terminals"`
	WatchClaims bool     `yaml:"watch_claims" toml:"watch_claims"`
}

type PathsConfig struct {
	Socket      string `yaml:"socket" toml:"socket"`
	ProjectsDir string `yaml:"projects_dir" toml:"projects_dir"`
	ClaimsDir   string `yaml:"claims_dir" toml:"claims_dir"`
}

type ServerConfig struct {
	AcceptBackoff time.Duration `yaml:"accept_backoff" toml:"accept_backoff"`
	ErrorBackoff  time.Duration `yaml:"error_backoff" toml:"error_backoff"`
	WriteTimeout  time.Duration `yaml:"write_timeout" toml:"write_timeout"`
}

type HTTPConfig struct {
	Enabled        bool     `yaml:"enabled" toml:"enabled"`
	Addr           string   `yaml:"addr" toml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
	// Token, when set, is required on every request.
	Token string `yaml:"token" toml:"token"`
	// MaxConnections caps concurrent WebSocket clients; 0 means no limit.
	MaxConnections   int           `yaml:"max_connections" toml:"max_connections"`
	Throttle         time.Duration `yaml:"throttle" toml:"throttle"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval" toml:"snapshot_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"`
	Stderr bool   `yaml:"stderr" toml:"stderr"`
}

func defaultConfig() *Config {
	return &Config{
		Monitor: MonitorConfig{
			Program:      "claude",
			PollInterval: 2 * time.Second,
			QueryTimeout: 5 * time.Second,
			Inspector:    InspectorAuto,
			Terminals:    []string{TerminalITerm2, TerminalAlacritty},
		},
		Paths: PathsConfig{
			Socket:      "~/.claude/claude-bar.sock",
			ProjectsDir: "~/.claude/projects",
			ClaimsDir:   "~/.claude/claude-bar",
		},
		Server: ServerConfig{
			AcceptBackoff: 50 * time.Millisecond,
			ErrorBackoff:  100 * time.Millisecond,
			WriteTimeout:  2 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:             "127.0.0.1:7391",
			MaxConnections:   32,
			Throttle:         100 * time.Millisecond,
			SnapshotInterval: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			File:   "~/.claude/claude-bar.log",
		},
	}
}

// Default returns the built-in configuration with paths expanded.
func Default() *Config {
	cfg := defaultConfig()
	cfg.expandPaths()
	return cfg
}

// Load reads a YAML or TOML (by .toml extension) config file on top of the
// defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// DefaultPath is where the CLI looks for a config file when none is given.
func DefaultPath() string {
	return ExpandHome("~/.claude/claude-bar.yaml")
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Monitor.Program) == "" {
		return errors.New("monitor.program must not be empty")
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor.poll_interval must be positive, got %s", c.Monitor.PollInterval)
	}
	if c.Monitor.QueryTimeout <= 0 {
		return fmt.Errorf("monitor.query_timeout must be positive, got %s", c.Monitor.QueryTimeout)
	}
	switch c.Monitor.Inspector {
	case InspectorAuto, InspectorPS, InspectorPsutil:
	default:
		return fmt.Errorf("monitor.inspector: unknown backend %q", c.Monitor.Inspector)
	}
	seen := make(map[string]bool, len(c.Monitor.Terminals))
	for _, kind := range c.Monitor.Terminals {
		switch kind {
		case TerminalITerm2, TerminalAlacritty:
		default:
			return fmt.Errorf("monitor.terminals: unknown terminal %q", kind)
		}
		if seen[kind] {
			return fmt.Errorf("monitor.terminals: %q listed twice", kind)
		}
		seen[kind] = true
	}
	if c.Server.AcceptBackoff <= 0 || c.Server.ErrorBackoff <= 0 || c.Server.WriteTimeout <= 0 {
		return errors.New("server backoffs and write_timeout must be positive")
	}
	if c.Paths.Socket == "" {
		return errors.New("paths.socket must not be empty")
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return errors.New("http.addr is required when http.enabled is set")
	}
	if c.HTTP.MaxConnections < 0 {
		return fmt.Errorf("http.max_connections must not be negative, got %d", c.HTTP.MaxConnections)
	}
	if c.HTTP.Throttle <= 0 || c.HTTP.SnapshotInterval <= 0 {
		return errors.New("http.throttle and http.snapshot_interval must be positive")
	}
	return nil
}

// ResolvedInspector maps "auto" to the backend for the running OS.
func (c *Config) ResolvedInspector() string {
	if c.Monitor.Inspector != InspectorAuto {
		return c.Monitor.Inspector
	}
	if runtime.GOOS == "darwin" {
		return InspectorPS
	}
	return InspectorPsutil
}

func (c *Config) expandPaths() {
	c.Paths.Socket = ExpandHome(c.Paths.Socket)
	c.Paths.ProjectsDir = ExpandHome(c.Paths.ProjectsDir)
	c.Paths.ClaimsDir = ExpandHome(c.Paths.ClaimsDir)
	c.Log.File = ExpandHome(c.Log.File)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
