// ABOUTME: Export/import bundle and its decoding
// ABOUTME: Detects the unified and legacy notes/todos shapes before anything is written
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/harper/newtab/internal/models"
	"github.com/harper/newtab/internal/settings"
	"github.com/harper/newtab/internal/tasks"
)

// ErrInvalidBundle is returned for files that are not an export bundle.
var ErrInvalidBundle = errors.New("transfer: not a valid export file")

// Bundle is the export file content.
type Bundle struct {
	Settings    *settings.Settings  `json:"settings,omitempty" yaml:"settings,omitempty"`
	Backgrounds []models.Background `json:"backgrounds" yaml:"backgrounds"`
	Bookmarks   []models.Tile       `json:"bookmarks" yaml:"bookmarks"`
	Tasks       []models.Task       `json:"tasks" yaml:"tasks"`

	// Legacy is set when the input used separate notes and todos.
	Legacy bool `json:"-" yaml:"-"`
}

type rawBundle struct {
	Settings    json.RawMessage `json:"settings"`
	Backgrounds json.RawMessage `json:"backgrounds"`
	Bookmarks   json.RawMessage `json:"bookmarks"`
	Tasks       json.RawMessage `json:"tasks"`
	Notes       json.RawMessage `json:"notes"`
	Todos       json.RawMessage `json:"todos"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Decode reads a JSON bundle in either shape and validates every record.
func Decode(r io.Reader) (*Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeYAML reads a YAML bundle as written by Write.
func DecodeYAML(r io.Reader) (*Bundle, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes a JSON bundle held in memory.
func DecodeBytes(data []byte) (*Bundle, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidBundle)
	}
	var raw rawBundle
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	unified := present(raw.Tasks)
	legacy := present(raw.Notes) || present(raw.Todos)
	if !unified && !legacy && !present(raw.Backgrounds) && !present(raw.Bookmarks) && !present(raw.Settings) {
		return nil, fmt.Errorf("%w: no settings, backgrounds, bookmarks or tasks", ErrInvalidBundle)
	}

	b := &Bundle{}
	if present(raw.Settings) {
		s := settings.Defaults()
		if err := json.Unmarshal(raw.Settings, &s); err != nil {
			return nil, fmt.Errorf("%w: settings: %v", ErrInvalidBundle, err)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%w: settings: %v", ErrInvalidBundle, err)
		}
		b.Settings = &s
	}
	if err := decodeList(raw.Backgrounds, "backgrounds", &b.Backgrounds); err != nil {
		return nil, err
	}
	if err := decodeList(raw.Bookmarks, "bookmarks", &b.Bookmarks); err != nil {
		return nil, err
	}

	if unified {
		if err := decodeList(raw.Tasks, "tasks", &b.Tasks); err != nil {
			return nil, err
		}
	} else if legacy {
		var notes []models.LegacyNote
		var todos []models.LegacyTodo
		if err := decodeList(raw.Notes, "notes", &notes); err != nil {
			return nil, err
		}
		if err := decodeList(raw.Todos, "todos", &todos); err != nil {
			return nil, err
		}
		b.Tasks = tasks.ConvertLegacy(notes, todos)
		b.Legacy = true
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeList[T any](raw json.RawMessage, name string, dest *[]T) error {
	if !present(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidBundle, name, err)
	}
	return nil
}

// Validate checks every record in the bundle.
func (b *Bundle) Validate() error {
	for i := range b.Backgrounds {
		if err := b.Backgrounds[i].Validate(); err != nil {
			return fmt.Errorf("%w: backgrounds[%d]: %v", ErrInvalidBundle, i, err)
		}
	}
	for i := range b.Bookmarks {
		if err := b.Bookmarks[i].Validate(); err != nil {
			return fmt.Errorf("%w: bookmarks[%d]: %v", ErrInvalidBundle, i, err)
		}
	}
	for i := range b.Tasks {
		if err := b.Tasks[i].Validate(); err != nil {
			return fmt.Errorf("%w: tasks[%d]: %v", ErrInvalidBundle, i, err)
		}
	}
	return nil
}
