// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatium.
//
// Configuration is read from a TOML file, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - --config PATH
//   - ~/.chatium/config.toml
//   - Built-in defaults
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/chatium-tui/internal/model"
	"github.com/jeranaias/chatium-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatium configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Chat   ChatConfig   `toml:"chat"`
	UI     UIConfig     `toml:"ui"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig describes the remote message store.
type ServerConfig struct {
	// Endpoint is the GraphQL HTTP endpoint
	Endpoint string `toml:"endpoint"`
	// WSEndpoint is the graphql-transport-ws endpoint; derived from Endpoint when empty
	WSEndpoint string `toml:"ws_endpoint"`
	// Subscriptions enables messageAdded live events
	Subscriptions bool `toml:"subscriptions"`
	// TimeoutSecs bounds every HTTP round trip
	TimeoutSecs int `toml:"timeout_secs"`
	// PollIntervalSecs refetches periodically; 0 disables polling
	PollIntervalSecs int `toml:"poll_interval_secs"`
	// RefetchPerSec caps how often the live list is refetched
	RefetchPerSec float64 `toml:"refetch_per_sec"`
}

// ChatConfig contains conversation behaviour.
type ChatConfig struct {
	// Provider is the default provider tag: "claude" or "openai"
	Provider string `toml:"provider"`
	// ConfirmClear asks before clearing the conversation
	ConfirmClear bool `toml:"confirm_clear"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Markdown renders assistant replies with glamour
	Markdown bool `toml:"markdown"`
	// TimeFormat is "12h" or "24h"
	TimeFormat string `toml:"time_format"`
	// AltScreen runs the TUI on the alternate screen buffer
	AltScreen bool `toml:"alt_screen"`
}

// LogConfig controls the diagnostic log.
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `toml:"level"`
	// File is the log path; empty means ~/.chatium/chatium.log, "-" means stderr
	File string `toml:"file"`
}

// Timeout returns the HTTP timeout as a duration.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// PollInterval returns the poll interval as a duration (0 when disabled).
func (s ServerConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSecs) * time.Second
}

// ResolvedWSEndpoint returns WSEndpoint, or Endpoint with its scheme
// switched to ws/wss.
func (s ServerConfig) ResolvedWSEndpoint() string {
	if s.WSEndpoint != "" {
		return s.WSEndpoint
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String()
}

// ProviderTag returns the parsed chat provider, falling back to the default.
func (c ChatConfig) ProviderTag() model.Provider {
	p, err := model.ParseProvider(c.Provider)
	if err != nil {
		return model.DefaultProvider
	}
	return p
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Endpoint:         "http://localhost:8080/graphql",
			WSEndpoint:       "",
			Subscriptions:    true,
			TimeoutSecs:      60,
			PollIntervalSecs: 15,
			RefetchPerSec:    5,
		},
		Chat: ChatConfig{
			Provider:     string(model.DefaultProvider),
			ConfirmClear: true,
		},
		UI: UIConfig{
			Markdown:   true,
			TimeFormat: "12h",
			AltScreen:  true,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the chatium configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatium"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultLogPath returns ~/.chatium/chatium.log.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chatium.log"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// LogPath resolves the configured log file path.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	path, err := DefaultLogPath()
	if err != nil {
		return "-"
	}
	return path
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file. A missing file is
// not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return finalize(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path, applying environment
// overrides, defaults and validation. A missing file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	}
	return finalize(cfg)
}

func finalize(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg. Unknown keys are rejected.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration to path with 0600 permissions. The
// file is replaced atomically so a running watcher never reads half of it.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# chatium configuration file\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.WriteFileAtomic(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validateURL(c.Server.Endpoint, "http", "https"); err != nil {
		errs = append(errs, ValidationError{Field: "server.endpoint", Message: err.Error()})
	}
	if c.Server.WSEndpoint != "" {
		if err := validateURL(c.Server.WSEndpoint, "ws", "wss"); err != nil {
			errs = append(errs, ValidationError{Field: "server.ws_endpoint", Message: err.Error()})
		}
	}
	if c.Server.TimeoutSecs < 1 || c.Server.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "server.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Server.TimeoutSecs),
		})
	}
	if c.Server.PollIntervalSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.poll_interval_secs",
			Message: "must not be negative",
		})
	}
	if c.Server.RefetchPerSec <= 0 {
		errs = append(errs, ValidationError{
			Field:   "server.refetch_per_sec",
			Message: "must be positive",
		})
	}

	if _, err := model.ParseProvider(c.Chat.Provider); err != nil {
		errs = append(errs, ValidationError{Field: "chat.provider", Message: err.Error()})
	}

	switch c.UI.TimeFormat {
	case "12h", "24h":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.time_format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: 12h, 24h", c.UI.TimeFormat),
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("URL scheme must be one of %s, got %q", strings.Join(schemes, ", "), u.Scheme)
}

// SetDefaults fills zero-value fields from Default().
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Server.Endpoint == "" {
		c.Server.Endpoint = defaults.Server.Endpoint
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if c.Server.RefetchPerSec == 0 {
		c.Server.RefetchPerSec = defaults.Server.RefetchPerSec
	}
	if c.Chat.Provider == "" {
		c.Chat.Provider = defaults.Chat.Provider
	}
	c.Chat.Provider = strings.ToLower(strings.TrimSpace(c.Chat.Provider))
	if c.UI.TimeFormat == "" {
		c.UI.TimeFormat = defaults.UI.TimeFormat
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CHATIUM_ENDPOINT: overrides server.endpoint
//   - CHATIUM_WS_ENDPOINT: overrides server.ws_endpoint
//   - CHATIUM_SUBSCRIPTIONS: "1"/"true" or "0"/"false"
//   - CHATIUM_POLL_INTERVAL: overrides server.poll_interval_secs
//   - CHATIUM_PROVIDER: overrides chat.provider
//   - CHATIUM_LOG_LEVEL: overrides log.level
//   - CHATIUM_LOG_FILE: overrides log.file
func (c *Config) ApplyEnvOverrides() {
	if endpoint := os.Getenv("CHATIUM_ENDPOINT"); endpoint != "" {
		c.Server.Endpoint = endpoint
	}
	if ws := os.Getenv("CHATIUM_WS_ENDPOINT"); ws != "" {
		c.Server.WSEndpoint = ws
	}
	if subs := os.Getenv("CHATIUM_SUBSCRIPTIONS"); subs != "" {
		c.Server.Subscriptions = subs == "1" || strings.EqualFold(subs, "true")
	}
	if poll := os.Getenv("CHATIUM_POLL_INTERVAL"); poll != "" {
		if n, err := strconv.Atoi(poll); err == nil {
			c.Server.PollIntervalSecs = n
		}
	}
	if provider := os.Getenv("CHATIUM_PROVIDER"); provider != "" {
		c.Chat.Provider = provider
	}
	if level := os.Getenv("CHATIUM_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if file := os.Getenv("CHATIUM_LOG_FILE"); file != "" {
		c.Log.File = file
	}
}
