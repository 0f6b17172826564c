// ABOUTME: Tests for the configuration loader
// ABOUTME: Verifies defaults, TOML overrides, environment precedence and validation
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points XDG and NEWTAB_* lookups at a scratch directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	for _, key := range []string{
		"NEWTAB_DATA_DIR", "NEWTAB_KV_BACKEND", "CHARM_HOST", "NEWTAB_CHARM_DB", "CHARM_AUTO_SYNC",
		"NEWTAB_BOOKMARKS_FILE", "NEWTAB_MAX_UPLOAD_BYTES", "NEWTAB_THUMBNAIL_SCALE",
		"NEWTAB_COUPLE_CALENDAR_LANGUAGE", "NEWTAB_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DataDir != filepath.Join(dir, "data", "newtab") {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.KVBackend != BackendLocal {
		t.Errorf("KVBackend = %s, want local", cfg.KVBackend)
	}
	if cfg.Charm.Host != "charm.2389.dev" || cfg.Charm.DBName != "newtab" || !cfg.Charm.AutoSync {
		t.Errorf("Charm = %+v", cfg.Charm)
	}
	if !cfg.CoupleCalendarLanguage {
		t.Error("CoupleCalendarLanguage = false, want true")
	}
	if cfg.ThumbnailScale != 0.25 {
		t.Errorf("ThumbnailScale = %g, want 0.25", cfg.ThumbnailScale)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty without a file", cfg.Path)
	}
	if cfg.SlotsFile() != filepath.Join(cfg.DataDir, "slots.json") {
		t.Errorf("SlotsFile() = %s", cfg.SlotsFile())
	}
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	content := `
data_dir = "/srv/newtab"
kv_backend = "charm"
couple_calendar_language = false
thumbnail_scale = 0.5

[charm]
db = "dashboard"
auto_sync = false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DataDir != "/srv/newtab" || cfg.KVBackend != BackendCharm {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CoupleCalendarLanguage {
		t.Error("file should disable coupling")
	}
	if cfg.Charm.DBName != "dashboard" || cfg.Charm.AutoSync {
		t.Errorf("Charm = %+v", cfg.Charm)
	}
	if cfg.Charm.Host != "charm.2389.dev" {
		t.Errorf("unset key lost its default: %q", cfg.Charm.Host)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q", cfg.Path)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config", "newtab", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`log_level = "info"`+"\n"+`max_upload_bytes = 100`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEWTAB_LOG_LEVEL", "debug")
	t.Setenv("NEWTAB_COUPLE_CALENDAR_LANGUAGE", "false")
	t.Setenv("CHARM_HOST", "charm.example.test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want env value", cfg.LogLevel)
	}
	if cfg.MaxUploadBytes != 100 {
		t.Errorf("MaxUploadBytes = %d, want file value", cfg.MaxUploadBytes)
	}
	if cfg.CoupleCalendarLanguage {
		t.Error("env should disable coupling")
	}
	if cfg.Charm.Host != "charm.example.test" {
		t.Errorf("Charm.Host = %s", cfg.Charm.Host)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := isolate(t)

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("explicit missing file should fail")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("kv_backend = "), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("malformed TOML should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"backend", func(c *Config) { c.KVBackend = "redis" }, "kv_backend"},
		{"upload", func(c *Config) { c.MaxUploadBytes = 0 }, "max_upload_bytes"},
		{"scale", func(c *Config) { c.ThumbnailScale = 2 }, "thumbnail_scale"},
		{"level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
		{"charm db", func(c *Config) { c.KVBackend = BackendCharm; c.Charm.DBName = "" }, "charm.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestCreateDefault(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "init", "config.toml")

	got, err := CreateDefault(path)
	if err != nil {
		t.Fatalf("CreateDefault() error = %v", err)
	}
	if got != path {
		t.Errorf("path = %s", got)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.KVBackend != BackendLocal || !cfg.CoupleCalendarLanguage {
		t.Errorf("generated config = %+v", cfg)
	}

	if err := os.WriteFile(path, []byte(`kv_backend = "charm"`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefault(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != `kv_backend = "charm"` {
		t.Error("CreateDefault overwrote an existing file")
	}
}
