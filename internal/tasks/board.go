// ABOUTME: Unified notes and todos board over the tasks collection
// ABOUTME: Add, edit, toggle and list tasks newest first
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harper/newtab/internal/idgen"
	"github.com/harper/newtab/internal/models"
	"github.com/harper/newtab/internal/settings"
	"github.com/harper/newtab/internal/sls"
)

// Descriptor declares the unified tasks collection.
var Descriptor = sls.Descriptor{
	Name:       "tasksDB",
	Collection: "tasks",
	Version:    1,
	PrimaryKey: "id",
	Indexes: []sls.Index{
		{Name: "createdAt", Field: "createdAt"},
		{Name: "type", Field: "type"},
	},
}

var (
	ErrEmptyText    = errors.New("tasks: text cannot be empty")
	ErrNotTodo      = errors.New("tasks: only todos can be completed")
	ErrTaskNotFound = errors.New("tasks: no such task")
)

// Update carries editable fields; nil means unchanged.
type Update struct {
	Text  *string
	Color *string
	Emoji *string
}

// Board manages the task records.
type Board struct {
	store  *sls.Store[models.Task]
	logger *log.Logger
	newID  idgen.Generator
	now    func() models.Timestamp
}

// Option configures a Board.
type Option func(*Board)

func WithLogger(l *log.Logger) Option {
	return func(b *Board) { b.logger = l }
}

func WithIDGenerator(gen idgen.Generator) Option {
	return func(b *Board) { b.newID = gen }
}

func WithClock(now func() models.Timestamp) Option {
	return func(b *Board) { b.now = now }
}

// NewBoard wraps an open tasks store.
func NewBoard(store *sls.Store[models.Task], opts ...Option) *Board {
	b := &Board{
		store:  store,
		logger: log.New(io.Discard),
		newID:  idgen.Task,
		now:    models.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OpenBoard opens the tasks collection through r.
func OpenBoard(ctx context.Context, r *sls.Registry, opts ...Option) (*Board, error) {
	store, err := sls.OpenStore[models.Task](ctx, r, Descriptor)
	if err != nil {
		return nil, err
	}
	return NewBoard(store, opts...), nil
}

// Store exposes the underlying collection for export and import.
func (b *Board) Store() *sls.Store[models.Task] {
	return b.store
}

// AddNote creates a note. An empty color or emoji gets the default.
func (b *Board) AddNote(ctx context.Context, text, color, emoji string) (*models.Task, error) {
	return b.add(ctx, models.KindNote, text, color, emoji)
}

// AddTodo creates an open todo.
func (b *Board) AddTodo(ctx context.Context, text, color, emoji string) (*models.Task, error) {
	return b.add(ctx, models.KindTodo, text, color, emoji)
}

func (b *Board) add(ctx context.Context, kind models.TaskKind, text, color, emoji string) (*models.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if color == "" {
		color = models.DefaultTaskColor
	}
	if err := settings.ValidateColor(color); err != nil {
		return nil, err
	}

	task := models.Task{
		ID:        b.newID(),
		Text:      text,
		Kind:      kind,
		CreatedAt: b.now(),
		Color:     color,
		Emoji:     emoji,
	}
	if kind == models.KindNote && task.Emoji == "" {
		task.Emoji = models.DefaultNoteEmoji
	}
	if kind == models.KindTodo {
		done := false
		task.Completed = &done
	}

	if _, err := b.store.Put(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	b.logger.Debug("added task", "id", task.ID, "type", kind)
	return &task, nil
}

// Get returns one task.
func (b *Board) Get(ctx context.Context, id string) (*models.Task, error) {
	task, err := b.store.GetByKey(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return task, nil
}

// Update edits text, color or emoji.
func (b *Board) Update(ctx context.Context, id string, upd Update) (*models.Task, error) {
	task, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Text != nil {
		text := strings.TrimSpace(*upd.Text)
		if text == "" {
			return nil, ErrEmptyText
		}
		task.Text = text
	}
	if upd.Color != nil {
		if err := settings.ValidateColor(*upd.Color); err != nil {
			return nil, err
		}
		task.Color = *upd.Color
	}
	if upd.Emoji != nil {
		task.Emoji = *upd.Emoji
	}
	if _, err := b.store.Put(ctx, *task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return task, nil
}

// Toggle flips the completion flag of a todo.
func (b *Board) Toggle(ctx context.Context, id string) (*models.Task, error) {
	task, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Kind != models.KindTodo {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotTodo, id, task.Kind)
	}
	done := !task.Done()
	task.Completed = &done
	if _, err := b.store.Put(ctx, *task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return task, nil
}

// Delete removes a task. Unknown ids are ignored.
func (b *Board) Delete(ctx context.Context, id string) error {
	return b.store.Delete(ctx, id)
}

// List returns tasks of kind, or all tasks when kind is empty, newest first.
func (b *Board) List(ctx context.Context, kind models.TaskKind) ([]models.Task, error) {
	all, err := b.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, t := range all {
		if kind == "" || t.Kind == kind {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt.Time)
	})
	return out, nil
}
