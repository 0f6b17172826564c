// ABOUTME: Centralized configuration for the newtab CLI and MCP server
// ABOUTME: Defaults, then an optional TOML file, then environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

const appName = "newtab"

// Key-value backends.
const (
	BackendLocal = "local"
	BackendCharm = "charm"
)

// Config holds all configuration for newtab
type Config struct {
	// DataDir holds the databases, the local slot file and uploaded images.
	DataDir string `toml:"data_dir"`

	// KVBackend is "local" (a JSON file) or "charm" (synced Charm KV).
	KVBackend string `toml:"kv_backend"`

	Charm CharmConfig `toml:"charm"`

	// BookmarksFile is the Chromium profile Bookmarks file read for tiles.
	BookmarksFile string `toml:"bookmarks_file"`

	MaxUploadBytes int64   `toml:"max_upload_bytes"`
	ThumbnailScale float64 `toml:"thumbnail_scale"`

	// CoupleCalendarLanguage makes a calendar change also switch the language.
	CoupleCalendarLanguage bool `toml:"couple_calendar_language"`

	LogLevel string `toml:"log_level"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-"`
}

// CharmConfig holds charm KV settings
type CharmConfig struct {
	Host     string `toml:"host"`
	DBName   string `toml:"db"`
	AutoSync bool   `toml:"auto_sync"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		DataDir:   filepath.Join(dataHome(), appName),
		KVBackend: BackendLocal,
		Charm: CharmConfig{
			Host:     "charm.2389.dev",
			DBName:   appName,
			AutoSync: true,
		},
		BookmarksFile:          DefaultBookmarksFile(),
		MaxUploadBytes:         10 << 20,
		ThumbnailScale:         0.25,
		CoupleCalendarLanguage: true,
		LogLevel:               "warn",
	}
}

// Load builds the configuration. An empty path means the default location,
// which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.Path = path
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.BookmarksFile = expandHome(cfg.BookmarksFile)
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("NEWTAB_DATA_DIR", c.DataDir)
	c.KVBackend = getEnv("NEWTAB_KV_BACKEND", c.KVBackend)
	c.Charm.Host = getEnv("CHARM_HOST", c.Charm.Host)
	c.Charm.DBName = getEnv("NEWTAB_CHARM_DB", c.Charm.DBName)
	c.Charm.AutoSync = getEnvBool("CHARM_AUTO_SYNC", c.Charm.AutoSync)
	c.BookmarksFile = getEnv("NEWTAB_BOOKMARKS_FILE", c.BookmarksFile)
	c.MaxUploadBytes = int64(getEnvInt("NEWTAB_MAX_UPLOAD_BYTES", int(c.MaxUploadBytes)))
	c.ThumbnailScale = getEnvFloat("NEWTAB_THUMBNAIL_SCALE", c.ThumbnailScale)
	c.CoupleCalendarLanguage = getEnvBool("NEWTAB_COUPLE_CALENDAR_LANGUAGE", c.CoupleCalendarLanguage)
	c.LogLevel = getEnv("NEWTAB_LOG_LEVEL", c.LogLevel)
}

func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.KVBackend != BackendLocal && c.KVBackend != BackendCharm {
		errs = append(errs, fmt.Errorf("kv_backend must be %q or %q, got %q", BackendLocal, BackendCharm, c.KVBackend))
	}
	if c.KVBackend == BackendCharm && c.Charm.DBName == "" {
		errs = append(errs, errors.New("charm.db must not be empty"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes))
	}
	if c.ThumbnailScale <= 0 || c.ThumbnailScale > 1 {
		errs = append(errs, fmt.Errorf("thumbnail_scale must be in (0, 1], got %g", c.ThumbnailScale))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// DBDir is where the logical databases live.
func (c *Config) DBDir() string {
	return filepath.Join(c.DataDir, "db")
}

// BackgroundsDir is where uploaded images and thumbnails are copied.
func (c *Config) BackgroundsDir() string {
	return filepath.Join(c.DataDir, "backgrounds")
}

// SlotsFile is the local key-value slot file.
func (c *Config) SlotsFile() string {
	return filepath.Join(c.DataDir, "slots.json")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(configHome(), appName, "config.toml")
}

// DefaultBookmarksFile returns the default Chrome profile Bookmarks file.
func DefaultBookmarksFile() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Bookmarks")
	case "windows":
		return filepath.Join(xdg.DataHome, "Google", "Chrome", "User Data", "Default", "Bookmarks")
	default:
		return filepath.Join(configHome(), "google-chrome", "Default", "Bookmarks")
	}
}

// CreateDefault writes a commented config file at path unless one exists.
func CreateDefault(path string) (string, error) {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	d := Defaults()
	content := fmt.Sprintf(`# newtab configuration

# Where databases, slots and uploaded backgrounds are kept
# data_dir = %q

# Key-value backend for settings: "local" or "charm"
kv_backend = %q

# Chromium Bookmarks file used for the tile picker
# bookmarks_file = %q

max_upload_bytes = %d
thumbnail_scale = %g

# Switching the calendar also switches the UI language
couple_calendar_language = %t

log_level = %q

[charm]
host = %q
db = %q
auto_sync = %t
`, d.DataDir, d.KVBackend, d.BookmarksFile, d.MaxUploadBytes, d.ThumbnailScale,
		d.CoupleCalendarLanguage, d.LogLevel, d.Charm.Host, d.Charm.DBName, d.Charm.AutoSync)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

// dataHome respects XDG_DATA_HOME set after start-up, for tests.
func dataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	return xdg.DataHome
}

func configHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return xdg.ConfigHome
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
