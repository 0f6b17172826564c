// ABOUTME: Export and import of all dashboard data
// ABOUTME: Direct dump of each collection plus the settings snapshot, JSON or YAML
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/harper/newtab/internal/models"
	"github.com/harper/newtab/internal/settings"
	"github.com/harper/newtab/internal/sls"
)

// Format is the encoding of an export file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
	}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// SettingsStore is the part of the settings manager transfer needs.
type SettingsStore interface {
	Snapshot() settings.Settings
	Replace(settings.Settings) error
}

// Sources are the stores an export reads and an import writes.
type Sources struct {
	Settings    SettingsStore
	Backgrounds *sls.Store[models.Background]
	Bookmarks   *sls.Store[models.Tile]
	Tasks       *sls.Store[models.Task]
	Logger      *log.Logger
}

// Result counts what an import wrote.
type Result struct {
	Settings    bool `json:"settings"`
	Backgrounds int  `json:"backgrounds"`
	Bookmarks   int  `json:"bookmarks"`
	Tasks       int  `json:"tasks"`
	Legacy      bool `json:"legacy"`
}

// Export dumps every collection without transformation.
func Export(ctx context.Context, src Sources) (*Bundle, error) {
	s := src.Settings.Snapshot()
	b := &Bundle{Settings: &s}

	var err error
	if b.Backgrounds, err = src.Backgrounds.GetAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export backgrounds: %w", err)
	}
	if b.Bookmarks, err = src.Bookmarks.GetAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export bookmarks: %w", err)
	}
	if b.Tasks, err = src.Tasks.GetAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export tasks: %w", err)
	}
	return b, nil
}

// Write encodes b in the given format.
func Write(w io.Writer, b *Bundle, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	}
}

// Read decodes an export file in the given format.
func Read(r io.Reader, format Format) (*Bundle, error) {
	if format == FormatYAML {
		return DecodeYAML(r)
	}
	return Decode(r)
}

// Import writes settings, then each collection in turn. A failure stops
// the sequence; collections written before it stay written.
func Import(ctx context.Context, src Sources, b *Bundle) (*Result, error) {
	res := &Result{Legacy: b.Legacy}

	if b.Settings != nil {
		if err := src.Settings.Replace(*b.Settings); err != nil {
			return res, fmt.Errorf("failed to import settings: %w", err)
		}
		res.Settings = true
	}
	if len(b.Backgrounds) > 0 {
		keys, err := src.Backgrounds.PutMany(ctx, b.Backgrounds)
		if err != nil {
			return res, fmt.Errorf("failed to import backgrounds: %w", err)
		}
		res.Backgrounds = sls.DistinctKeys(keys)
	}
	if len(b.Bookmarks) > 0 {
		keys, err := src.Bookmarks.PutMany(ctx, b.Bookmarks)
		if err != nil {
			return res, fmt.Errorf("failed to import bookmarks: %w", err)
		}
		res.Bookmarks = sls.DistinctKeys(keys)
	}
	if len(b.Tasks) > 0 {
		keys, err := src.Tasks.PutMany(ctx, b.Tasks)
		if err != nil {
			return res, fmt.Errorf("failed to import tasks: %w", err)
		}
		res.Tasks = sls.DistinctKeys(keys)
	}

	if src.Logger != nil {
		src.Logger.Info("import complete",
			"backgrounds", res.Backgrounds, "bookmarks", res.Bookmarks, "tasks", res.Tasks, "legacy", res.Legacy)
	}
	return res, nil
}
