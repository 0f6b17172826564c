// ABOUTME: Conversion and one-time migration of the superseded notes and todos collections
// ABOUTME: Guarded by the tasksMigrated flag so it runs once per profile
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/harper/newtab/internal/kv"
	"github.com/harper/newtab/internal/models"
	"github.com/harper/newtab/internal/sls"
)

// KeyMigrated is the flag set once the legacy collections were folded in.
const KeyMigrated = "tasksMigrated"

// Legacy collection descriptors, opened only for migration and import.
var (
	NotesDescriptor = sls.Descriptor{
		Name:       "notesDB",
		Collection: "notes",
		Version:    1,
		PrimaryKey: "id",
		Indexes:    []sls.Index{{Name: "createdAt", Field: "createdAt"}},
	}
	TodosDescriptor = sls.Descriptor{
		Name:       "todosDB",
		Collection: "todos",
		Version:    1,
		PrimaryKey: "id",
		Indexes:    []sls.Index{{Name: "createdAt", Field: "createdAt"}},
	}
)

// FromLegacyNote converts a legacy note, applying the default emoji.
func FromLegacyNote(n models.LegacyNote) models.Task {
	color := n.Color
	if color == "" {
		color = models.DefaultTaskColor
	}
	return models.Task{
		ID:        string(n.ID),
		Text:      n.Text,
		Kind:      models.KindNote,
		CreatedAt: n.CreatedAt,
		Color:     color,
		Emoji:     models.DefaultNoteEmoji,
	}
}

// FromLegacyTodo converts a legacy todo, keeping its completion and emoji.
func FromLegacyTodo(t models.LegacyTodo) models.Task {
	color := t.Color
	if color == "" {
		color = models.DefaultTaskColor
	}
	done := t.Completed
	return models.Task{
		ID:        string(t.ID),
		Text:      t.Text,
		Kind:      models.KindTodo,
		CreatedAt: t.CreatedAt,
		Color:     color,
		Emoji:     t.Emoji,
		Completed: &done,
	}
}

// ConvertLegacy turns legacy notes and todos into tasks. The two legacy
// collections had separate key spaces, so an id already taken in the
// batch gets the kind as prefix ("note-1", "todo-1").
func ConvertLegacy(notes []models.LegacyNote, todos []models.LegacyTodo) []models.Task {
	out := make([]models.Task, 0, len(notes)+len(todos))
	taken := make(map[string]bool, len(notes)+len(todos))
	add := func(t models.Task) {
		t.ID = uniqueID(t.ID, string(t.Kind), taken)
		taken[t.ID] = true
		out = append(out, t)
	}
	for _, n := range notes {
		add(FromLegacyNote(n))
	}
	for _, t := range todos {
		add(FromLegacyTodo(t))
	}
	return out
}

func uniqueID(id, kind string, taken map[string]bool) string {
	if !taken[id] {
		return id
	}
	candidate := kind + "-" + id
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%s-%d", kind, id, n)
	}
	return candidate
}

// MigrateLegacy copies the legacy notes and todos collections into the
// board once. It returns how many tasks were written; 0 when the flag
// was already set.
func (b *Board) MigrateLegacy(ctx context.Context, r *sls.Registry, flags kv.Store) (int, error) {
	if v, err := flags.Get(KeyMigrated); err == nil && v == "true" {
		return 0, nil
	} else if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return 0, fmt.Errorf("failed to read migration flag: %w", err)
	}

	notes, err := sls.OpenStore[models.LegacyNote](ctx, r, NotesDescriptor)
	if err != nil {
		return 0, err
	}
	todos, err := sls.OpenStore[models.LegacyTodo](ctx, r, TodosDescriptor)
	if err != nil {
		return 0, err
	}
	oldNotes, err := notes.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	oldTodos, err := todos.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	converted := ConvertLegacy(oldNotes, oldTodos)
	written := 0
	if len(converted) > 0 {
		keys, err := b.store.PutMany(ctx, converted)
		if err != nil {
			return 0, fmt.Errorf("failed to migrate legacy tasks: %w", err)
		}
		written = sls.DistinctKeys(keys)
	}
	if err := flags.Set(KeyMigrated, "true"); err != nil {
		return written, fmt.Errorf("failed to set migration flag: %w", err)
	}
	b.logger.Info("migrated legacy notes and todos", "notes", len(oldNotes), "todos", len(oldTodos), "tasks", written)
	return written, nil
}
