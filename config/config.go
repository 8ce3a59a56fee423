// Package config loads and validates Tapboard's YAML configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/dotside-studios/tapboard/buildinfo"
	"github.com/dotside-studios/tapboard/nfc"
	"github.com/dotside-studios/tapboard/protocol"
)

// Config is the on-disk configuration.
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Session SessionConfig `yaml:"session"`
	Sim     SimConfig     `yaml:"sim"`
	Filters FiltersConfig `yaml:"filters"`
	Logging LoggingConfig `yaml:"logging"`
}

// AgentConfig selects and authenticates against a network NFC agent.
type AgentConfig struct {
	// URL is the agent's base URL, e.g. "http://192.168.1.20:18080".
	// Empty means discover one via mDNS.
	URL string `yaml:"url"`

	// Secret is sent during the session handshake when the agent
	// requires one.
	Secret string `yaml:"secret"`

	// Fingerprint pins the agent's CA certificate for TLS agents. The
	// CA is fetched once over the agent's bootstrap port and cached.
	Fingerprint string `yaml:"fingerprint"`

	// Discover browses the local network when no URL is set. Unset
	// means on.
	Discover *bool `yaml:"discover"`

	// DiscoverTimeout bounds the mDNS browse, in seconds.
	DiscoverTimeout int `yaml:"discover_timeout"`

	// ReconnectAttempts is the number of redials after a dropped
	// connection. Zero keeps the backend default, -1 disables recovery.
	ReconnectAttempts int `yaml:"reconnect_attempts"`
}

// SessionConfig tunes listening session behavior.
type SessionConfig struct {
	// AutoStart opens a listening session as soon as the app attaches.
	// Unset picks the platform default: on except on macOS, where
	// sessions stay user-initiated.
	AutoStart *bool `yaml:"autostart"`

	// DedupeWindow drops repeated scans of the same tag arriving within
	// this many seconds.
	DedupeWindow int `yaml:"dedupe_window"`
}

// SimConfig configures the built-in simulated reader.
type SimConfig struct {
	Enabled bool `yaml:"enabled"`

	// ListenAddr is where the tag injection endpoint binds.
	ListenAddr string `yaml:"listen_addr"`

	// ReplayInterval replays one fixture per this many seconds while
	// listening. Zero keeps the simulator's default interval.
	ReplayInterval int `yaml:"replay_interval"`

	// Fixtures are tags the simulator can replay.
	Fixtures []FixtureConfig `yaml:"fixtures"`
}

// FixtureConfig is one simulated tag.
type FixtureConfig struct {
	UID  string `yaml:"uid"`
	Type string `yaml:"type"`
	Text string `yaml:"text"`
}

// FiltersConfig narrows which scanned tags reach the user. Patterns use
// glob syntax; an empty list admits everything.
type FiltersConfig struct {
	// TagTypes matches against the tag type, e.g. "NTAG*".
	TagTypes []string `yaml:"tag_types"`

	// RecordTypes matches against the first record's type, e.g. "text".
	// Tags without records are rejected while this is set.
	RecordTypes []string `yaml:"record_types"`
}

// LoggingConfig controls the log sink.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string `yaml:"level"`

	// File receives log output. Empty picks the per-user default path;
	// the frontends own the terminal, so logs never go to stderr.
	File string `yaml:"file"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, buildinfo.DirName, "config.yaml"), nil
}

// Load loads configuration from the default location.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path. A missing file yields the
// defaults; values present in the file override them field by field.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if loaded.Agent.URL != "" {
		cfg.Agent.URL = loaded.Agent.URL
	}
	if loaded.Agent.Secret != "" {
		cfg.Agent.Secret = loaded.Agent.Secret
	}
	if loaded.Agent.Fingerprint != "" {
		cfg.Agent.Fingerprint = loaded.Agent.Fingerprint
	}
	cfg.Agent.Discover = loaded.Agent.Discover
	if loaded.Agent.DiscoverTimeout > 0 {
		cfg.Agent.DiscoverTimeout = loaded.Agent.DiscoverTimeout
	}
	if loaded.Agent.ReconnectAttempts != 0 {
		cfg.Agent.ReconnectAttempts = loaded.Agent.ReconnectAttempts
	}

	cfg.Session.AutoStart = loaded.Session.AutoStart
	if loaded.Session.DedupeWindow > 0 {
		cfg.Session.DedupeWindow = loaded.Session.DedupeWindow
	}

	cfg.Sim.Enabled = loaded.Sim.Enabled
	if loaded.Sim.ListenAddr != "" {
		cfg.Sim.ListenAddr = loaded.Sim.ListenAddr
	}
	if loaded.Sim.ReplayInterval > 0 {
		cfg.Sim.ReplayInterval = loaded.Sim.ReplayInterval
	}
	if len(loaded.Sim.Fixtures) > 0 {
		cfg.Sim.Fixtures = loaded.Sim.Fixtures
	}

	if len(loaded.Filters.TagTypes) > 0 {
		cfg.Filters.TagTypes = loaded.Filters.TagTypes
	}
	if len(loaded.Filters.RecordTypes) > 0 {
		cfg.Filters.RecordTypes = loaded.Filters.RecordTypes
	}

	if loaded.Logging.Level != "" {
		cfg.Logging.Level = loaded.Logging.Level
	}
	if loaded.Logging.File != "" {
		cfg.Logging.File = loaded.Logging.File
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Agent.DiscoverTimeout = 3

	cfg.Session.DedupeWindow = 3

	cfg.Sim.ListenAddr = "127.0.0.1:18089"
	cfg.Sim.ReplayInterval = 0

	cfg.Logging.Level = "info"

	return cfg
}

// Save writes cfg to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Agent.DiscoverTimeout < 0 {
		return fmt.Errorf("discover timeout must be >= 0 seconds")
	}
	if c.Agent.ReconnectAttempts < -1 {
		return fmt.Errorf("reconnect attempts must be >= -1")
	}
	if c.Session.DedupeWindow < 0 {
		return fmt.Errorf("dedupe window must be >= 0 seconds")
	}

	if c.Sim.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.Sim.ListenAddr); err != nil {
			return fmt.Errorf("invalid sim listen address: %w", err)
		}
	}
	for i, fixture := range c.Sim.Fixtures {
		if _, err := protocol.ParseUID(fixture.UID); err != nil {
			return fmt.Errorf("fixture %d: %w", i, err)
		}
	}

	for _, pattern := range c.Filters.TagTypes {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid tag type pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range c.Filters.RecordTypes {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid record type pattern %q: %w", pattern, err)
		}
	}

	return nil
}

// AutoStartEnabled resolves the autostart setting, falling back to the
// platform default when unset.
func (c *Config) AutoStartEnabled() bool {
	if c.Session.AutoStart != nil {
		return *c.Session.AutoStart
	}
	return runtime.GOOS != "darwin"
}

// DiscoverEnabled resolves the discovery setting, on unless the config
// turns it off.
func (c *Config) DiscoverEnabled() bool {
	if c.Agent.Discover != nil {
		return *c.Agent.Discover
	}
	return true
}

// TagFilter compiles the configured filters into a predicate for scanned
// tags, or nil when no filters are set.
func (c *Config) TagFilter() (func(*nfc.TagInfo) bool, error) {
	if len(c.Filters.TagTypes) == 0 && len(c.Filters.RecordTypes) == 0 {
		return nil, nil
	}

	tagGlobs := make([]glob.Glob, 0, len(c.Filters.TagTypes))
	for _, pattern := range c.Filters.TagTypes {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid tag type pattern %q: %w", pattern, err)
		}
		tagGlobs = append(tagGlobs, g)
	}
	recordGlobs := make([]glob.Glob, 0, len(c.Filters.RecordTypes))
	for _, pattern := range c.Filters.RecordTypes {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid record type pattern %q: %w", pattern, err)
		}
		recordGlobs = append(recordGlobs, g)
	}

	return func(tag *nfc.TagInfo) bool {
		if len(tagGlobs) > 0 && !matchAny(tagGlobs, tag.Type) {
			return false
		}
		if len(recordGlobs) > 0 {
			first, ok := tag.FirstRecord()
			if !ok || !matchAny(recordGlobs, string(first.Type)) {
				return false
			}
		}
		return true
	}, nil
}

func matchAny(globs []glob.Glob, value string) bool {
	for _, g := range globs {
		if g.Match(value) {
			return true
		}
	}
	return false
}
