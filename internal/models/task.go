// ABOUTME: Unified note/todo record stored in the tasks collection
// ABOUTME: Also holds the legacy note and todo shapes kept for imports
package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// TaskKind discriminates notes from todos.
type TaskKind string

const (
	KindNote TaskKind = "note"
	KindTodo TaskKind = "todo"
)

const (
	// DefaultNoteEmoji is applied to notes converted from the legacy shape.
	DefaultNoteEmoji = "📝"
	// DefaultTaskColor is used when a record carries no color.
	DefaultTaskColor = "#fef08a"
)

// Task is a note or a todo on the unified board.
type Task struct {
	ID        string    `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	Kind      TaskKind  `json:"type" yaml:"type"`
	CreatedAt Timestamp `json:"createdAt" yaml:"createdAt"`
	Color     string    `json:"color" yaml:"color"`
	Emoji     string    `json:"emoji,omitempty" yaml:"emoji,omitempty"`
	Completed *bool     `json:"completed,omitempty" yaml:"completed,omitempty"`
}

// Done reports whether a todo is checked off; always false for notes.
func (t *Task) Done() bool {
	return t.Completed != nil && *t.Completed
}

// Validate checks if the Task has valid data
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task ID cannot be empty")
	}
	if t.Kind != KindNote && t.Kind != KindTodo {
		return errors.New("invalid task type")
	}
	if t.Kind == KindNote && t.Completed != nil {
		return errors.New("notes cannot carry a completion flag")
	}
	return nil
}

// LooseID decodes record ids written either as strings or as numbers.
type LooseID string

func (id *LooseID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = LooseID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("id must be a string or a number")
	}
	*id = LooseID(n.String())
	return nil
}

// LegacyNote is a record of the superseded notes collection.
type LegacyNote struct {
	ID        LooseID   `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt Timestamp `json:"createdAt" yaml:"createdAt"`
	Color     string    `json:"color,omitempty" yaml:"color,omitempty"`
}

// LegacyTodo is a record of the superseded todos collection.
type LegacyTodo struct {
	ID        LooseID   `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	Completed bool      `json:"completed" yaml:"completed"`
	CreatedAt Timestamp `json:"createdAt" yaml:"createdAt"`
	Color     string    `json:"color,omitempty" yaml:"color,omitempty"`
	Emoji     string    `json:"emoji,omitempty" yaml:"emoji,omitempty"`
}
