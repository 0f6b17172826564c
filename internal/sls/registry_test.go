// ABOUTME: Tests for the connection registry lifecycle
// ABOUTME: Memoization, shared first connection, failure retry and additive upgrades
package sls

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenIsMemoized(t *testing.T) {
	reg := NewMemoryRegistry(WithLogger(quietLogger()))
	defer func() { _ = reg.Close() }()
	ctx := context.Background()

	if got := reg.State(itemsDB.Name); got != Unconnected {
		t.Fatalf("State() before open = %v, want unconnected", got)
	}

	first, err := reg.Open(ctx, itemsDB)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	second, err := reg.Open(ctx, itemsDB)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if first != second {
		t.Error("Open() should return the same collection for the same name")
	}
	if got := reg.State(itemsDB.Name); got != Connected {
		t.Errorf("State() = %v, want connected", got)
	}
}

func TestConcurrentFirstOpenConnectsOnce(t *testing.T) {
	var calls atomic.Int32
	mem := MemoryOpener()
	opener := func(ctx context.Context, desc Descriptor) (*sql.DB, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return mem(ctx, desc)
	}
	reg := NewMemoryRegistry(WithOpener(opener), WithLogger(quietLogger()))
	defer func() { _ = reg.Close() }()

	var wg sync.WaitGroup
	results := make([]*Collection, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = reg.Open(context.Background(), itemsDB)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Open() #%d error = %v", i, err)
		}
		if results[i] != results[0] {
			t.Fatalf("Open() #%d returned a different collection", i)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("opener called %d times, want 1", n)
	}
}

func TestFailedOpenIsRetried(t *testing.T) {
	var calls atomic.Int32
	mem := MemoryOpener()
	boom := errors.New("quota exceeded")
	opener := func(ctx context.Context, desc Descriptor) (*sql.DB, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return mem(ctx, desc)
	}
	reg := NewMemoryRegistry(WithOpener(opener), WithLogger(quietLogger()))
	defer func() { _ = reg.Close() }()
	ctx := context.Background()

	if _, err := reg.Open(ctx, itemsDB); !errors.Is(err, boom) {
		t.Fatalf("first Open() error = %v, want %v", err, boom)
	}
	if got := reg.State(itemsDB.Name); got != Failed {
		t.Fatalf("State() after failure = %v, want failed", got)
	}

	if _, err := reg.Open(ctx, itemsDB); err != nil {
		t.Fatalf("retry Open() error = %v", err)
	}
	if got := reg.State(itemsDB.Name); got != Connected {
		t.Errorf("State() after retry = %v, want connected", got)
	}
}

func TestOpenDescriptorMismatch(t *testing.T) {
	reg := NewMemoryRegistry(WithLogger(quietLogger()))
	defer func() { _ = reg.Close() }()
	ctx := context.Background()

	if _, err := reg.Open(ctx, itemsDB); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	other := itemsDB
	other.Collection = "other"
	if _, err := reg.Open(ctx, other); !errors.Is(err, ErrDescriptorMismatch) {
		t.Fatalf("Open() with changed descriptor error = %v, want ErrDescriptorMismatch", err)
	}
}

func TestOpenInvalidDescriptor(t *testing.T) {
	reg := NewMemoryRegistry(WithLogger(quietLogger()))
	defer func() { _ = reg.Close() }()

	tests := []struct {
		name string
		desc Descriptor
	}{
		{"no name", Descriptor{Collection: "c", Version: 1, PrimaryKey: "id"}},
		{"path name", Descriptor{Name: "../x", Collection: "c", Version: 1, PrimaryKey: "id"}},
		{"bad collection", Descriptor{Name: "n", Collection: "c; DROP", Version: 1, PrimaryKey: "id"}},
		{"zero version", Descriptor{Name: "n", Collection: "c", Version: 0, PrimaryKey: "id"}},
		{"no key", Descriptor{Name: "n", Collection: "c", Version: 1}},
		{"bad index", Descriptor{Name: "n", Collection: "c", Version: 1, PrimaryKey: "id",
			Indexes: []Index{{Name: "i", Field: "a')"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Open(context.Background(), tt.desc); !errors.Is(err, ErrInvalidDescriptor) {
				t.Fatalf("Open() error = %v, want ErrInvalidDescriptor", err)
			}
		})
	}
}

func TestUpgradeIsAdditive(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	v1 := Descriptor{Name: "notesDB", Collection: "notes", Version: 1, PrimaryKey: "id"}
	reg := NewRegistry(dir, WithLogger(quietLogger()))
	store, err := OpenStore[item](ctx, reg, v1)
	if err != nil {
		t.Fatalf("open v1: %v", err)
	}
	if _, err := store.Put(ctx, item{ID: "survivor", V: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	v2 := v1
	v2.Version = 2
	v2.Indexes = []Index{{Name: "v", Field: "v"}}
	reg = NewRegistry(dir, WithLogger(quietLogger()))
	defer func() { _ = reg.Close() }()
	store, err = OpenStore[item](ctx, reg, v2)
	if err != nil {
		t.Fatalf("open v2: %v", err)
	}

	got, err := store.GetByKey(ctx, "survivor")
	if err != nil || got == nil {
		t.Fatalf("record lost across upgrade: %v, %v", got, err)
	}

	var name string
	err = store.Collection().db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name=?", "notes_v").Scan(&name)
	if err != nil {
		t.Fatalf("index notes_v not created: %v", err)
	}
}

func TestDowngradeIsRejected(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	v2 := Descriptor{Name: "todosDB", Collection: "todos", Version: 2, PrimaryKey: "id"}
	reg := NewRegistry(dir, WithLogger(quietLogger()))
	if _, err := reg.Open(ctx, v2); err != nil {
		t.Fatalf("open v2: %v", err)
	}
	_ = reg.Close()

	v1 := v2
	v1.Version = 1
	reg = NewRegistry(dir, WithLogger(quietLogger()))
	defer func() { _ = reg.Close() }()
	if _, err := reg.Open(ctx, v1); !errors.Is(err, ErrVersionDowngrade) {
		t.Fatalf("Open() older version error = %v, want ErrVersionDowngrade", err)
	}
	if got := reg.State(v1.Name); got != Failed {
		t.Errorf("State() = %v, want failed", got)
	}
}

func TestOpenAfterClose(t *testing.T) {
	reg := NewMemoryRegistry(WithLogger(quietLogger()))
	if err := reg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := reg.Open(context.Background(), itemsDB); !errors.Is(err, ErrClosed) {
		t.Fatalf("Open() after Close error = %v, want ErrClosed", err)
	}
	if err := reg.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestSeparateNamesAreIsolated(t *testing.T) {
	reg := NewMemoryRegistry(WithLogger(quietLogger()))
	defer func() { _ = reg.Close() }()
	ctx := context.Background()

	a, err := OpenStore[item](ctx, reg, Descriptor{Name: "a", Collection: "items", Version: 1, PrimaryKey: "id"})
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	b, err := OpenStore[item](ctx, reg, Descriptor{Name: "b", Collection: "items", Version: 1, PrimaryKey: "id"})
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	if _, err := a.Put(ctx, item{ID: "only-in-a"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	all, err := b.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("database b sees records of a: %#v", all)
	}
}
