// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DOCCHAT_HOME", dir)
	for _, k := range []string{
		"DOCCHAT_SERVER", "DOCCHAT_CSRF_TOKEN", "DOCCHAT_THEME",
		"DOCCHAT_IDLE_TIMEOUT", "DOCCHAT_LOG_LEVEL", "DOCCHAT_NO_HISTORY",
	} {
		t.Setenv(k, "")
	}
	return dir
}

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently. Run with: go test -race ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.Version = "test"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_ConcurrentReload(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()
	_ = Global()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ReloadGlobal()
		}()
	}
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	c := Default()
	c.UI.Theme = ThemeLight
	SetGlobal(c)
	if got := Global().UI.Theme; got != ThemeLight {
		t.Errorf("Global().UI.Theme = %q, want %q", got, ThemeLight)
	}
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg.UI.Theme != ThemeDark {
		t.Errorf("UI.Theme = %q, want %q", cfg.UI.Theme, ThemeDark)
	}
	if cfg.Server.ChatPath != "/api/chat/" {
		t.Errorf("Server.ChatPath = %q, want %q", cfg.Server.ChatPath, "/api/chat/")
	}
	if cfg.Server.UploadPath != "/api/upload/" {
		t.Errorf("Server.UploadPath = %q, want %q", cfg.Server.UploadPath, "/api/upload/")
	}
	if cfg.IdleTimeout() != 120*time.Second {
		t.Errorf("IdleTimeout() = %v, want 2m", cfg.IdleTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad scheme", func(c *Config) { c.Server.URL = "ftp://host" }, "server.url"},
		{"no host", func(c *Config) { c.Server.URL = "http://" }, "server.url"},
		{"chat path", func(c *Config) { c.Server.ChatPath = "api/chat" }, "server.chat_path"},
		{"upload path", func(c *Config) { c.Server.UploadPath = "upload" }, "server.upload_path"},
		{"delete path without id", func(c *Config) { c.Server.DeletePath = "/delete/" }, "server.delete_path"},
		{"negative rate", func(c *Config) { c.Server.RequestsPerSecond = -1 }, "server.requests_per_second"},
		{"idle timeout", func(c *Config) { c.Stream.IdleTimeoutSecs = 7200 }, "stream.idle_timeout_secs"},
		{"chunk size", func(c *Config) { c.Stream.ChunkSize = 1 }, "stream.chunk_size"},
		{"theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
		{"word wrap", func(c *Config) { c.UI.WordWrap = 5 }, "ui.word_wrap"},
		{"max sessions", func(c *Config) { c.History.MaxSessions = -3 }, "history.max_sessions"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "bogus"
	cfg.Log.Level = "bogus"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.theme")
	assert.Contains(t, err.Error(), "log.level")
}

func TestConfig_Theme(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.SetTheme(" Light "))
	assert.Equal(t, ThemeLight, cfg.UI.Theme)

	assert.Equal(t, ThemeDark, cfg.ToggleTheme())
	assert.Equal(t, ThemeLight, cfg.ToggleTheme())

	cfg.UI.Theme = ThemeAuto
	assert.Equal(t, ThemeLight, cfg.ToggleTheme())

	assert.Error(t, cfg.SetTheme("neon"))
	assert.Equal(t, ThemeLight, cfg.UI.Theme, "failed SetTheme must not change the theme")
}

func TestConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("DOCCHAT_SERVER", "https://docs.example.com/")
	t.Setenv("DOCCHAT_THEME", "LIGHT")
	t.Setenv("DOCCHAT_IDLE_TIMEOUT", "15")
	t.Setenv("DOCCHAT_LOG_LEVEL", "debug")
	t.Setenv("DOCCHAT_CSRF_TOKEN", "tok")
	t.Setenv("DOCCHAT_NO_HISTORY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://docs.example.com", cfg.Server.URL)
	assert.Equal(t, ThemeLight, cfg.UI.Theme)
	assert.Equal(t, 15*time.Second, cfg.IdleTimeout())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "tok", cfg.Server.CSRFToken)
	assert.False(t, cfg.History.Enabled)
}

func TestConfig_SaveLoadTOML(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.UI.Theme = ThemeLight
	cfg.Server.URL = "http://10.0.0.5:9000"
	require.NoError(t, Save(cfg))

	path := filepath.Join(dir, "config.toml")
	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %o, want 600", info.Mode().Perm())
	}

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, loaded.UI.Theme)
	assert.Equal(t, "http://10.0.0.5:9000", loaded.Server.URL)
}

func TestConfig_LoadJSONFallback(t *testing.T) {
	dir := isolate(t)
	data := `{"ui": {"theme": "light"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, cfg.UI.Theme)
	// Missing values are filled from defaults
	assert.Equal(t, "/api/chat/", cfg.Server.ChatPath)
	assert.Equal(t, 80, cfg.UI.WordWrap)
}

func TestConfig_LoadBrokenTOMLFallsBack(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("ui = [[["), 0600))

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg, "Load should still return defaults")
	assert.Equal(t, ThemeDark, cfg.UI.Theme)
}

func TestConfig_LoadStoredSkipsEnv(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.UI.Theme = ThemeLight
	require.NoError(t, Save(cfg))
	t.Setenv("DOCCHAT_SERVER", "https://override.example.com")

	stored, err := LoadStored()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, stored.UI.Theme)
	assert.Equal(t, Default().Server.URL, stored.Server.URL)
}

func TestConfig_LoadFromPathInvalid(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"purple\"\n"), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "ui.theme"))
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("ui.theme")
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, v)

	require.NoError(t, cfg.Set("ui.word_wrap", "100"))
	assert.Equal(t, 100, cfg.UI.WordWrap)

	require.NoError(t, cfg.Set("history.enabled", "false"))
	assert.False(t, cfg.History.Enabled)

	require.NoError(t, cfg.Set("server.requests_per_second", "0.5"))
	assert.Equal(t, 0.5, cfg.Server.RequestsPerSecond)

	require.NoError(t, cfg.Set("stream.chunk_size", 2048))
	assert.Equal(t, 2048, cfg.Stream.ChunkSize)

	_, err = cfg.Get("ui.nonexistent")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("ui", "x"))
	assert.Error(t, cfg.Set("ui.word_wrap", "wide"))
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestConfig_Clone(t *testing.T) {
	cfg := Default()
	cp := cfg.Clone()
	cp.UI.Theme = ThemeLight
	assert.Equal(t, ThemeDark, cfg.UI.Theme)
}

func TestConfig_Paths(t *testing.T) {
	dir := isolate(t)
	cfg := Default()

	p, err := cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "history.db"), p)

	p, err = cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "docchat.log"), p)

	cfg.History.Path = "/tmp/h.db"
	p, _ = cfg.HistoryPath()
	assert.Equal(t, "/tmp/h.db", p)
}

func TestWatcher_ReloadsOnSave(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	got := make(chan *Config, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(c *Config) { got <- c })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	cfg := Default()
	cfg.UI.Theme = ThemeLight
	require.NoError(t, SaveTOML(cfg, path))

	select {
	case c := <-got:
		assert.Equal(t, ThemeLight, c.UI.Theme)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}

func TestWatcher_IgnoresInvalidFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	got := make(chan *Config, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(c *Config) { got <- c })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"purple\"\n"), 0600))

	select {
	case c := <-got:
		t.Fatalf("unexpected reload with theme %q", c.UI.Theme)
	case <-time.After(300 * time.Millisecond):
	}
}
