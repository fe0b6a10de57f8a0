// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for docchat.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete docchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Server is the document-chat service
	Server ServerConfig `toml:"server" json:"server"`

	// Stream controls how streamed answers are read
	Stream StreamConfig `toml:"stream" json:"stream"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// History is the local record of server sessions
	History HistoryConfig `toml:"history" json:"history"`

	// Log configuration
	Log LogConfig `toml:"log" json:"log"`
}

// ServerConfig locates the chat and upload endpoints.
type ServerConfig struct {
	// URL is the server base URL
	URL string `toml:"url" json:"url"`
	// ChatPath is appended to URL for chat requests
	ChatPath string `toml:"chat_path" json:"chat_path"`
	// UploadPath is appended to URL for file and URL uploads
	UploadPath string `toml:"upload_path" json:"upload_path"`
	// DeletePath deletes a server session; {id} is replaced by the session id
	DeletePath string `toml:"delete_path" json:"delete_path"`
	// CSRFToken is sent as csrfmiddlewaretoken when set
	CSRFToken string `toml:"csrf_token" json:"csrf_token"`
	// RequestsPerSecond limits requests to the server (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	// Burst is the limiter burst size
	Burst int `toml:"burst" json:"burst"`
}

// StreamConfig controls the streamed chat response.
type StreamConfig struct {
	// ConnectTimeoutSecs bounds the wait for response headers
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs"`
	// IdleTimeoutSecs fails the stream when no bytes arrive for this long
	// (0 = wait forever)
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs"`
	// ChunkSize is the read buffer size in bytes
	ChunkSize int `toml:"chunk_size" json:"chunk_size"`
}

// UIConfig contains display settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto" (detect from the terminal)
	Theme string `toml:"theme" json:"theme"`
	// WordWrap is the Markdown wrap width
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// SetWindowTitle shows the conversation title in the terminal title bar
	SetWindowTitle bool `toml:"set_window_title" json:"set_window_title"`
}

// HistoryConfig contains local session history settings.
type HistoryConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the SQLite database (empty = $DOCCHAT_HOME/history.db)
	Path string `toml:"path" json:"path"`
	// MaxSessions prunes the oldest sessions beyond this count (0 = keep all)
	MaxSessions int `toml:"max_sessions" json:"max_sessions"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is a zerolog level name
	Level string `toml:"level" json:"level"`
	// File is the log file (empty = $DOCCHAT_HOME/docchat.log)
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Theme names.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemeAuto  = "auto"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			URL:               "http://127.0.0.1:8000",
			ChatPath:          "/api/chat/",
			UploadPath:        "/api/upload/",
			DeletePath:        "/delete_chat_session/{id}/",
			RequestsPerSecond: 2,
			Burst:             4,
		},

		Stream: StreamConfig{
			ConnectTimeoutSecs: 30,
			IdleTimeoutSecs:    120,
			ChunkSize:          4096,
		},

		UI: UIConfig{
			Theme:          ThemeDark,
			WordWrap:       80,
			SetWindowTitle: true,
		},

		History: HistoryConfig{
			Enabled:     true,
			MaxSessions: 200,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConnectTimeout returns the header wait bound.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Stream.ConnectTimeoutSecs) * time.Second
}

// IdleTimeout returns the chunk wait bound (0 = none).
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Stream.IdleTimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the docchat configuration directory. DOCCHAT_HOME
// overrides the default ~/.docchat.
func ConfigDir() (string, error) {
	if dir := os.Getenv("DOCCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".docchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// HistoryPath returns the history database path.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// LogPath returns the log file path.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "docchat.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			cfg = Default()
			if err := LoadJSON(cfg, path); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	// Defaults, with the load error for informational purposes
	return cfg, loadErr
}

// LoadStored reads the configuration file as written, without
// environment overrides or validation. Missing files yield the defaults.
// Use it when the result will be saved back.
func LoadStored() (*Config, error) {
	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			cfg := Default()
			return cfg, LoadTOML(cfg, path)
		}
	}
	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			cfg := Default()
			return cfg, LoadJSON(cfg, path)
		}
	}
	return Default(), nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	if cfg.Server.URL == "" {
		cfg.Server.URL = defaults.Server.URL
	}
	if cfg.Server.ChatPath == "" {
		cfg.Server.ChatPath = defaults.Server.ChatPath
	}
	if cfg.Server.UploadPath == "" {
		cfg.Server.UploadPath = defaults.Server.UploadPath
	}
	if cfg.Server.DeletePath == "" {
		cfg.Server.DeletePath = defaults.Server.DeletePath
	}
	if cfg.Server.RequestsPerSecond > 0 && cfg.Server.Burst <= 0 {
		cfg.Server.Burst = 1
	}

	if cfg.Stream.ConnectTimeoutSecs == 0 {
		cfg.Stream.ConnectTimeoutSecs = defaults.Stream.ConnectTimeoutSecs
	}
	if cfg.Stream.ChunkSize == 0 {
		cfg.Stream.ChunkSize = defaults.Stream.ChunkSize
	}

	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.WordWrap == 0 {
		cfg.UI.WordWrap = defaults.UI.WordWrap
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file with 0600 permissions.
// The CSRF token can be a session secret, hence owner-only.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# docchat configuration file\n")
	buf.WriteString("# Generated by docchat - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Server.URL),
		})
	}
	for field, path := range map[string]string{
		"server.chat_path":   c.Server.ChatPath,
		"server.upload_path": c.Server.UploadPath,
	} {
		if !strings.HasPrefix(path, "/") {
			errs = append(errs, ValidationError{Field: field, Message: "must start with '/'"})
		}
	}
	if p := c.Server.DeletePath; p != "" && (!strings.HasPrefix(p, "/") || !strings.Contains(p, "{id}")) {
		errs = append(errs, ValidationError{Field: "server.delete_path", Message: "must start with '/' and contain {id}"})
	}
	if c.Server.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{Field: "server.requests_per_second", Message: "cannot be negative"})
	}

	if c.Stream.ConnectTimeoutSecs < 0 || c.Stream.ConnectTimeoutSecs > 600 {
		errs = append(errs, ValidationError{Field: "stream.connect_timeout_secs", Message: "must be between 0 and 600"})
	}
	if c.Stream.IdleTimeoutSecs < 0 || c.Stream.IdleTimeoutSecs > 3600 {
		errs = append(errs, ValidationError{Field: "stream.idle_timeout_secs", Message: "must be between 0 and 3600"})
	}
	if c.Stream.ChunkSize < 64 || c.Stream.ChunkSize > 1<<20 {
		errs = append(errs, ValidationError{Field: "stream.chunk_size", Message: "must be between 64 and 1048576"})
	}

	if !ValidTheme(c.UI.Theme) {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.WordWrap < 20 || c.UI.WordWrap > 400 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "must be between 20 and 400"})
	}

	if c.History.MaxSessions < 0 {
		errs = append(errs, ValidationError{Field: "history.max_sessions", Message: "cannot be negative"})
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidTheme reports whether name is a known theme.
func ValidTheme(name string) bool {
	switch strings.ToLower(name) {
	case ThemeDark, ThemeLight, ThemeAuto:
		return true
	}
	return false
}

// =============================================================================
// THEME PREFERENCE
// =============================================================================

// SetTheme records the theme preference.
func (c *Config) SetTheme(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !ValidTheme(name) {
		return ValidationError{Field: "ui.theme", Message: fmt.Sprintf("invalid theme '%s'", name)}
	}
	c.UI.Theme = name
	return nil
}

// ToggleTheme flips between dark and light and returns the new theme.
// Anything that is not "light" toggles to light.
func (c *Config) ToggleTheme() string {
	if strings.EqualFold(c.UI.Theme, ThemeLight) {
		c.UI.Theme = ThemeDark
	} else {
		c.UI.Theme = ThemeLight
	}
	return c.UI.Theme
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - DOCCHAT_SERVER: overrides server.url
//   - DOCCHAT_CSRF_TOKEN: overrides server.csrf_token
//   - DOCCHAT_THEME: overrides ui.theme
//   - DOCCHAT_IDLE_TIMEOUT: overrides stream.idle_timeout_secs
//   - DOCCHAT_LOG_LEVEL: overrides log.level
//   - DOCCHAT_NO_HISTORY: set to "1" or "true" to disable history
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DOCCHAT_SERVER"); v != "" {
		c.Server.URL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("DOCCHAT_CSRF_TOKEN"); v != "" {
		c.Server.CSRFToken = v
	}
	if v := os.Getenv("DOCCHAT_THEME"); v != "" {
		c.UI.Theme = strings.ToLower(v)
	}
	if v := os.Getenv("DOCCHAT_IDLE_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Stream.IdleTimeoutSecs = secs
		}
	}
	if v := os.Getenv("DOCCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DOCCHAT_NO_HISTORY"); v != "" {
		if v == "1" || strings.EqualFold(v, "true") {
			c.History.Enabled = false
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by toml tag names.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if strings.EqualFold(tag, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func setFieldValue(field reflect.Value, value interface{}) error {
	s, isString := value.(string)
	if !isString {
		rv := reflect.ValueOf(value)
		if !rv.Type().ConvertibleTo(field.Type()) {
			return fmt.Errorf("cannot assign %T to %s", value, field.Type())
		}
		field.Set(rv.Convert(field.Type()))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid boolean '%s'", s)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer '%s'", s)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number '%s'", s)
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			if cfg == nil {
				cfg = Default()
			}
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil && cfg == nil {
		return err
	}
	SetGlobal(cfg)
	return err
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
