// ABOUTME: Tests for the key-value slot backends
// ABOUTME: Shared behaviour table run against memory and file stores
package kv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	f, err := OpenFile(filepath.Join(t.TempDir(), "slots.json"))
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"file":   f,
	}
}

func TestStoreBehaviour(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
			}

			if err := s.Set("textColor", "#ffffff"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := s.Get("textColor")
			if err != nil || got != "#ffffff" {
				t.Fatalf("Get() = %q, %v", got, err)
			}

			if err := s.Set("textColor", "#000000"); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if got, _ := s.Get("textColor"); got != "#000000" {
				t.Errorf("Get() after overwrite = %q", got)
			}

			if err := s.Delete("textColor"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := s.Delete("textColor"); err != nil {
				t.Fatalf("second Delete() error = %v", err)
			}
			if _, err := s.Get("textColor"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after delete error = %v", err)
			}
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	s := NewMemory()
	if err := SetJSON(s, "weekendDays", []int{5, 6}); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	raw, _ := s.Get("weekendDays")
	if raw != "[5,6]" {
		t.Errorf("stored value = %q, want %q", raw, "[5,6]")
	}

	var days []int
	if err := GetJSON(s, "weekendDays", &days); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if len(days) != 2 || days[1] != 6 {
		t.Errorf("GetJSON() = %v", days)
	}

	_ = s.Set("broken", "{")
	if err := GetJSON(s, "broken", &days); err == nil {
		t.Error("GetJSON() should fail on malformed JSON")
	}
}

func TestFilePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "slots.json")

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if err := f.Set("language", "fa"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, err := reopened.Get("language"); err != nil || got != "fa" {
		t.Fatalf("Get() after reopen = %q, %v", got, err)
	}
	keys, _ := reopened.Keys()
	if len(keys) != 1 || keys[0] != "language" {
		t.Errorf("Keys() = %v", keys)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestOpenFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Fatal("OpenFile() should fail on a corrupt file")
	}
}

// writeOnly hides the Keys method of the memory store.
type writeOnly struct{ Store }

func TestEntries(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_ = s.Set("tileSize", "12")
			_ = s.Set("calendarType", "persian")

			got, err := Entries(s)
			if err != nil {
				t.Fatalf("Entries() error = %v", err)
			}
			want := []Entry{{"calendarType", "persian"}, {"tileSize", "12"}}
			if len(got) != len(want) {
				t.Fatalf("Entries() = %v, want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("Entries()[%d] = %v, want %v", i, got[i], want[i])
				}
			}
		})
	}

	if _, err := Entries(writeOnly{NewMemory()}); !errors.Is(err, ErrNotListable) {
		t.Errorf("Entries() on a store without Keys error = %v, want ErrNotListable", err)
	}
}
