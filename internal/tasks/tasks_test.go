// ABOUTME: Tests for the tasks board and legacy migration
// ABOUTME: Runs against an in-memory registry with a fixed clock
package tasks

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/newtab/internal/kv"
	"github.com/harper/newtab/internal/models"
	"github.com/harper/newtab/internal/settings"
	"github.com/harper/newtab/internal/sls"
)

func setupBoard(t *testing.T) (*Board, *sls.Registry) {
	t.Helper()
	reg := sls.NewMemoryRegistry(sls.WithLogger(log.New(io.Discard)))
	t.Cleanup(func() { _ = reg.Close() })

	var tick int64
	clock := func() models.Timestamp {
		tick++
		return models.At(time.UnixMilli(1700000000000 + tick*1000))
	}
	b, err := OpenBoard(context.Background(), reg, WithClock(clock))
	if err != nil {
		t.Fatalf("OpenBoard() error = %v", err)
	}
	return b, reg
}

func TestAddNoteAndTodo(t *testing.T) {
	b, _ := setupBoard(t)
	ctx := context.Background()

	note, err := b.AddNote(ctx, "  buy milk  ", "", "")
	if err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}
	if note.Text != "buy milk" || note.Emoji != models.DefaultNoteEmoji || note.Color != models.DefaultTaskColor || note.Completed != nil {
		t.Errorf("AddNote() = %+v", note)
	}

	todo, err := b.AddTodo(ctx, "ship release", "#22c55e", "🚀")
	if err != nil {
		t.Fatalf("AddTodo() error = %v", err)
	}
	if todo.Kind != models.KindTodo || todo.Done() || todo.Completed == nil || todo.Emoji != "🚀" {
		t.Errorf("AddTodo() = %+v", todo)
	}

	if _, err := b.AddNote(ctx, "   ", "", ""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("AddNote(blank) error = %v", err)
	}
	if _, err := b.AddTodo(ctx, "x", "green", ""); !errors.Is(err, settings.ErrInvalidColor) {
		t.Errorf("AddTodo(bad color) error = %v", err)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	b, _ := setupBoard(t)
	ctx := context.Background()
	first, _ := b.AddNote(ctx, "first", "", "")
	second, _ := b.AddTodo(ctx, "second", "", "")
	third, _ := b.AddNote(ctx, "third", "", "")

	all, err := b.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != third.ID || all[2].ID != first.ID {
		t.Errorf("List() = %+v", all)
	}

	todos, _ := b.List(ctx, models.KindTodo)
	if len(todos) != 1 || todos[0].ID != second.ID {
		t.Errorf("List(todo) = %+v", todos)
	}
	notes, _ := b.List(ctx, models.KindNote)
	if len(notes) != 2 {
		t.Errorf("List(note) = %d, want 2", len(notes))
	}
}

func TestToggle(t *testing.T) {
	b, _ := setupBoard(t)
	ctx := context.Background()
	todo, _ := b.AddTodo(ctx, "water plants", "", "")
	note, _ := b.AddNote(ctx, "idea", "", "")

	got, err := b.Toggle(ctx, todo.ID)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !got.Done() {
		t.Error("todo should be done after first toggle")
	}
	got, _ = b.Toggle(ctx, todo.ID)
	if got.Done() {
		t.Error("todo should be open after second toggle")
	}

	if _, err := b.Toggle(ctx, note.ID); !errors.Is(err, ErrNotTodo) {
		t.Errorf("Toggle(note) error = %v", err)
	}
	if _, err := b.Toggle(ctx, "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Toggle(missing) error = %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	b, _ := setupBoard(t)
	ctx := context.Background()
	note, _ := b.AddNote(ctx, "draft", "", "")

	text, emoji := "final", "✅"
	got, err := b.Update(ctx, note.ID, Update{Text: &text, Emoji: &emoji})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Text != "final" || got.Emoji != "✅" || got.Color != note.Color {
		t.Errorf("Update() = %+v", got)
	}
	blank := ""
	if _, err := b.Update(ctx, note.ID, Update{Text: &blank}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Update(blank) error = %v", err)
	}

	if err := b.Delete(ctx, note.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := b.Delete(ctx, note.ID); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if all, _ := b.List(ctx, ""); len(all) != 0 {
		t.Errorf("List() after delete = %+v", all)
	}
}

func TestConvertLegacy(t *testing.T) {
	ts := models.At(time.UnixMilli(1600000000000))
	tasks := ConvertLegacy(
		[]models.LegacyNote{{ID: "n1", Text: "note", CreatedAt: ts}},
		[]models.LegacyTodo{{ID: "t1", Text: "todo", Completed: true, Emoji: "🔥", CreatedAt: ts}},
	)
	if len(tasks) != 2 {
		t.Fatalf("ConvertLegacy() = %d tasks", len(tasks))
	}
	note, todo := tasks[0], tasks[1]
	if note.Kind != models.KindNote || note.Emoji != models.DefaultNoteEmoji || note.Color != models.DefaultTaskColor {
		t.Errorf("note = %+v", note)
	}
	if todo.Kind != models.KindTodo || !todo.Done() || todo.Emoji != "🔥" || todo.Color != models.DefaultTaskColor {
		t.Errorf("todo = %+v", todo)
	}
	if !todo.CreatedAt.Equal(ts.Time) {
		t.Errorf("createdAt not preserved: %v", todo.CreatedAt)
	}
}

func TestConvertLegacySharedIDs(t *testing.T) {
	tasks := ConvertLegacy(
		[]models.LegacyNote{{ID: "1", Text: "note"}, {ID: "todo-1", Text: "odd note"}},
		[]models.LegacyTodo{{ID: "1", Text: "todo"}, {ID: "2", Text: "other"}},
	)

	want := []string{"1", "todo-1", "todo-1-2", "2"}
	if len(tasks) != len(want) {
		t.Fatalf("ConvertLegacy() = %d tasks, want %d", len(tasks), len(want))
	}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Errorf("tasks[%d].ID = %q, want %q", i, tasks[i].ID, id)
		}
	}
}

func TestMigrateLegacyKeepsCollidingRecords(t *testing.T) {
	b, reg := setupBoard(t)
	ctx := context.Background()

	notes, err := sls.OpenStore[models.LegacyNote](ctx, reg, NotesDescriptor)
	if err != nil {
		t.Fatal(err)
	}
	todos, err := sls.OpenStore[models.LegacyTodo](ctx, reg, TodosDescriptor)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := notes.Put(ctx, models.LegacyNote{ID: "1", Text: "a note"}); err != nil {
		t.Fatal(err)
	}
	if _, err := todos.Put(ctx, models.LegacyTodo{ID: "1", Text: "a todo"}); err != nil {
		t.Fatal(err)
	}

	n, err := b.MigrateLegacy(ctx, reg, kv.NewMemory())
	if err != nil {
		t.Fatalf("MigrateLegacy() error = %v", err)
	}
	all, _ := b.List(ctx, "")
	if n != 2 || len(all) != 2 {
		t.Errorf("migrated %d, board has %d tasks; want 2 and 2", n, len(all))
	}
}

func TestMigrateLegacyRunsOnce(t *testing.T) {
	b, reg := setupBoard(t)
	ctx := context.Background()
	flags := kv.NewMemory()

	notes, err := sls.OpenStore[models.LegacyNote](ctx, reg, NotesDescriptor)
	if err != nil {
		t.Fatal(err)
	}
	todos, err := sls.OpenStore[models.LegacyTodo](ctx, reg, TodosDescriptor)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := notes.Put(ctx, models.LegacyNote{ID: "1", Text: "old note"}); err != nil {
		t.Fatal(err)
	}
	if _, err := todos.Put(ctx, models.LegacyTodo{ID: "2", Text: "old todo", Completed: true}); err != nil {
		t.Fatal(err)
	}

	n, err := b.MigrateLegacy(ctx, reg, flags)
	if err != nil {
		t.Fatalf("MigrateLegacy() error = %v", err)
	}
	if n != 2 {
		t.Errorf("migrated %d, want 2", n)
	}
	if v, _ := flags.Get(KeyMigrated); v != "true" {
		t.Errorf("flag = %q", v)
	}

	// A later legacy write is not picked up again.
	_, _ = notes.Put(ctx, models.LegacyNote{ID: "3", Text: "late"})
	n, err = b.MigrateLegacy(ctx, reg, flags)
	if err != nil || n != 0 {
		t.Errorf("second MigrateLegacy() = %d, %v", n, err)
	}

	all, _ := b.List(ctx, "")
	if len(all) != 2 {
		t.Errorf("board has %d tasks, want 2", len(all))
	}
}
