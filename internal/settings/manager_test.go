// ABOUTME: Tests for the settings manager
// ABOUTME: Covers round-trip, weekend bound, backward-compatible load and coupling
package settings

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harper/newtab/internal/kv"
)

// failingStore rejects every write.
type failingStore struct {
	*kv.Memory
}

func (failingStore) Set(string, string) error { return errors.New("quota exceeded") }

// gatedStore holds the first composite write carrying tileSize 8 until
// release is closed.
type gatedStore struct {
	*kv.Memory
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Set(key, value string) error {
	if key == KeySettings && strings.Contains(value, `"tileSize":8,`) {
		g.once.Do(func() {
			close(g.started)
			<-g.release
		})
	}
	return g.Memory.Set(key, value)
}

func TestFirstRunPersistsDefaults(t *testing.T) {
	store := kv.NewMemory()
	m := NewManager(store)

	got, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, Defaults()) {
		t.Errorf("Load() = %+v, want defaults", got)
	}

	want := map[string]string{
		KeyCalendarType:    "persian",
		KeyTileSize:        "12",
		KeyWeekendDays:     "[5]",
		KeyWeekendColor:    "#ef4444",
		KeyFirstDayOfWeek:  "6",
		KeyTextColor:       "#ffffff",
		KeyBackgroundColor: "#1e293b",
		KeyLanguage:        "fa",
	}
	for key, val := range want {
		got, err := store.Get(key)
		if err != nil {
			t.Fatalf("individual key %s missing: %v", key, err)
		}
		if got != val {
			t.Errorf("%s = %q, want %q", key, got, val)
		}
	}
	if _, err := store.Get(KeySettings); err != nil {
		t.Errorf("composite blob missing: %v", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := kv.NewMemory()
	m := NewManager(store, WithCalendarLanguageCoupling(false))
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	steps := []func() error{
		func() error { return m.SetCalendarSystem(Gregorian) },
		func() error { return m.SetTileGridSize(24) },
		func() error { return m.SetWeekendDays([]time.Weekday{time.Sunday, time.Saturday}) },
		func() error { return m.SetWeekendColor("#10b981") },
		func() error { return m.SetFirstDayOfWeek(time.Monday) },
		func() error { return m.SetTextColor("#000") },
		func() error { return m.SetBackgroundColor("#f8fafc") },
		func() error { return m.SetLanguage(Farsi) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
	}
	want := m.Snapshot()

	fresh := NewManager(store)
	got, err := fresh.Load()
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reloaded = %+v\nwant      %+v", got, want)
	}
	if want.CalendarType != Gregorian || want.Language != Farsi {
		t.Errorf("uncoupled manager changed language: %+v", want)
	}
}

func TestWeekendBound(t *testing.T) {
	m := NewManager(kv.NewMemory())
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	start := []time.Weekday{time.Thursday, time.Friday, time.Saturday}
	if err := m.SetWeekendDays(start); err != nil {
		t.Fatalf("SetWeekendDays() error = %v", err)
	}

	err := m.ToggleWeekendDay(time.Sunday)
	if !errors.Is(err, ErrWeekendLimit) {
		t.Fatalf("ToggleWeekendDay() error = %v, want ErrWeekendLimit", err)
	}
	if got := m.Snapshot().WeekendDays; !reflect.DeepEqual(got, start) {
		t.Errorf("weekend days = %v, want %v", got, start)
	}

	if err := m.ToggleWeekendDay(time.Friday); err != nil {
		t.Fatalf("shrinking error = %v", err)
	}
	if got := m.Snapshot().WeekendDays; !reflect.DeepEqual(got, []time.Weekday{time.Thursday, time.Saturday}) {
		t.Errorf("after shrink = %v", got)
	}

	if err := m.SetWeekendDays([]time.Weekday{0, 1, 2, 3}); !errors.Is(err, ErrWeekendLimit) {
		t.Errorf("SetWeekendDays(4 days) error = %v", err)
	}
}

func TestBackwardCompatibleLoad(t *testing.T) {
	store := kv.NewMemory()
	// An older blob without textColor, backgroundColor or language.
	old := `{"calendarType":"gregorian","tileSize":16,"weekendDays":[0,6],"weekendColor":"#3b82f6","firstDayOfWeek":1}`
	if err := store.Set(KeySettings, old); err != nil {
		t.Fatal(err)
	}

	got, err := NewManager(store).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Defaults()
	want := Settings{
		CalendarType:    Gregorian,
		TileSize:        16,
		WeekendDays:     []time.Weekday{time.Sunday, time.Saturday},
		WeekendColor:    "#3b82f6",
		FirstDayOfWeek:  time.Monday,
		TextColor:       def.TextColor,
		BackgroundColor: def.BackgroundColor,
		Language:        def.Language,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v\nwant     %+v", got, want)
	}
}

func TestLoadFallsBackToIndividualKeys(t *testing.T) {
	store := kv.NewMemory()
	_ = store.Set(KeySettings, `{"calendarType":"gregorian"}`)
	_ = store.Set(KeyTextColor, "#222222")
	_ = store.Set(KeyTileSize, "20")
	_ = store.Set(KeyWeekendDays, "not json")

	got, err := NewManager(store).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.TextColor != "#222222" {
		t.Errorf("TextColor = %q, want individual key value", got.TextColor)
	}
	if got.TileSize != 20 {
		t.Errorf("TileSize = %d, want 20", got.TileSize)
	}
	if !reflect.DeepEqual(got.WeekendDays, Defaults().WeekendDays) {
		t.Errorf("WeekendDays = %v, want default", got.WeekendDays)
	}
}

func TestUnreadableBlobResetsToDefaults(t *testing.T) {
	store := kv.NewMemory()
	_ = store.Set(KeySettings, "{broken")

	got, err := NewManager(store).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, Defaults()) {
		t.Errorf("Load() = %+v, want defaults", got)
	}
	if blob, _ := store.Get(KeySettings); blob == "{broken" {
		t.Error("defaults were not persisted over the unreadable blob")
	}
}

func TestCalendarLanguageCoupling(t *testing.T) {
	tests := []struct {
		name     string
		couple   bool
		calendar CalendarSystem
		wantLang Language
		wantDir  Direction
		notified bool
	}{
		{"coupled gregorian", true, Gregorian, English, LTR, true},
		{"coupled persian", true, Persian, Farsi, RTL, false},
		{"decoupled gregorian", false, Gregorian, Farsi, RTL, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(kv.NewMemory(), WithCalendarLanguageCoupling(tt.couple))
			if _, err := m.Load(); err != nil {
				t.Fatal(err)
			}
			var gotLang Language
			var gotDir Direction
			called := false
			m.OnLanguageChange(func(l Language, d Direction) {
				called = true
				gotLang, gotDir = l, d
			})

			if err := m.SetCalendarSystem(tt.calendar); err != nil {
				t.Fatalf("SetCalendarSystem() error = %v", err)
			}
			s := m.Snapshot()
			if s.Language != tt.wantLang || s.Language.Direction() != tt.wantDir {
				t.Errorf("language = %s/%s, want %s/%s", s.Language, s.Language.Direction(), tt.wantLang, tt.wantDir)
			}
			if called != tt.notified {
				t.Errorf("listener called = %v, want %v", called, tt.notified)
			}
			if called && (gotLang != tt.wantLang || gotDir != tt.wantDir) {
				t.Errorf("listener got %s/%s", gotLang, gotDir)
			}
		})
	}
}

func TestValidationChangesNothing(t *testing.T) {
	store := kv.NewMemory()
	m := NewManager(store)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	before := m.Snapshot()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"calendar", func() error { return m.SetCalendarSystem("julian") }, ErrInvalidCalendar},
		{"tile size low", func() error { return m.SetTileGridSize(2) }, ErrInvalidTileSize},
		{"tile size high", func() error { return m.SetTileGridSize(49) }, ErrInvalidTileSize},
		{"weekday", func() error { return m.ToggleWeekendDay(7) }, ErrInvalidWeekday},
		{"first day", func() error { return m.SetFirstDayOfWeek(-1) }, ErrInvalidWeekday},
		{"color name", func() error { return m.SetTextColor("red") }, ErrInvalidColor},
		{"color length", func() error { return m.SetWeekendColor("#12345") }, ErrInvalidColor},
		{"language", func() error { return m.SetLanguage("de") }, ErrInvalidLanguage},
		{"replace", func() error {
			bad := Defaults()
			bad.BackgroundColor = "blue"
			return m.Replace(bad)
		}, ErrInvalidColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if !reflect.DeepEqual(m.Snapshot(), before) {
		t.Errorf("state changed after rejected setters: %+v", m.Snapshot())
	}
}

func TestReplaceNormalizesWeekend(t *testing.T) {
	m := NewManager(kv.NewMemory())
	next := Defaults()
	next.WeekendDays = []time.Weekday{time.Saturday, time.Friday, time.Saturday}
	if err := m.Replace(next); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if got := m.Snapshot().WeekendDays; !reflect.DeepEqual(got, []time.Weekday{time.Friday, time.Saturday}) {
		t.Errorf("WeekendDays = %v", got)
	}
}

func TestPersistFailureSurfaces(t *testing.T) {
	m := NewManager(failingStore{kv.NewMemory()})
	if _, err := m.Load(); err == nil {
		t.Fatal("Load() should report the failed first-run persist")
	}
	if err := m.SetTileGridSize(8); err == nil {
		t.Fatal("setter should return the persist error")
	}
	if got := m.Snapshot().TileSize; got != 8 {
		t.Errorf("TileSize = %d, live value should still change", got)
	}
}

func TestConcurrentSettersPersistInOrder(t *testing.T) {
	store := &gatedStore{
		Memory:  kv.NewMemory(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := NewManager(store)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := m.SetTileGridSize(8); err != nil {
			t.Errorf("SetTileGridSize(8) error = %v", err)
		}
	}()
	<-store.started
	go func() {
		defer wg.Done()
		if err := m.SetTileGridSize(20); err != nil {
			t.Errorf("SetTileGridSize(20) error = %v", err)
		}
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	live := m.Snapshot().TileSize
	reloaded, err := NewManager(store.Memory).Load()
	if err != nil {
		t.Fatal(err)
	}
	if live != 20 || reloaded.TileSize != live {
		t.Errorf("live tileSize = %d, durable tileSize = %d; want 20 and 20", live, reloaded.TileSize)
	}
	if raw, _ := store.Get(KeyTileSize); raw != "20" {
		t.Errorf("individual tileSize key = %q, want 20", raw)
	}
}

func TestUpdate(t *testing.T) {
	m := NewManager(kv.NewMemory())
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}

	err := m.Update(func(s *Settings) error {
		s.TileSize = 16
		s.WeekendDays = []time.Weekday{time.Sunday, time.Saturday, time.Sunday}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	s := m.Snapshot()
	if s.TileSize != 16 || !reflect.DeepEqual(s.WeekendDays, []time.Weekday{time.Sunday, time.Saturday}) {
		t.Errorf("after Update() = %+v", s)
	}

	if err := m.Update(func(s *Settings) error { s.TileSize = 2; return nil }); !errors.Is(err, ErrInvalidTileSize) {
		t.Errorf("invalid Update() error = %v, want ErrInvalidTileSize", err)
	}
	if got := m.Snapshot().TileSize; got != 16 {
		t.Errorf("failed Update() changed tileSize to %d", got)
	}

	sentinel := errors.New("stop")
	if err := m.Update(func(*Settings) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("Update() error = %v, want the callback error", err)
	}
}

func TestConcurrentUpdatesKeepEveryChange(t *testing.T) {
	m := NewManager(kv.NewMemory(), WithCalendarLanguageCoupling(false))
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Update(func(s *Settings) error {
				s.TileSize++
				return nil
			})
		}()
	}
	wg.Wait()
	if got := m.Snapshot().TileSize; got != 22 {
		t.Errorf("tileSize = %d, want 22 after ten increments from 12", got)
	}
}

func TestEmptyWeekendPersistsAsList(t *testing.T) {
	store := kv.NewMemory()
	m := NewManager(store)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	if err := m.ToggleWeekendDay(time.Friday); err != nil {
		t.Fatalf("ToggleWeekendDay() error = %v", err)
	}

	blob, _ := store.Get(KeySettings)
	if !strings.Contains(blob, `"weekendDays":[]`) {
		t.Errorf("blob = %s, want an empty weekendDays list", blob)
	}
	if raw, _ := store.Get(KeyWeekendDays); raw != "[]" {
		t.Errorf("individual weekendDays = %q, want []", raw)
	}
	if days := (Settings{}).Clone().WeekendDays; days == nil {
		t.Error("Clone() of an empty weekend returned nil")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewManager(kv.NewMemory())
	s := m.Snapshot()
	s.WeekendDays[0] = time.Monday
	if m.Snapshot().WeekendDays[0] != time.Friday {
		t.Error("mutating a snapshot leaked into the manager")
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"friday", time.Friday, false},
		{"Fri", time.Friday, false},
		{" sat ", time.Saturday, false},
		{"0", time.Sunday, false},
		{"6", time.Saturday, false},
		{"7", 0, true},
		{"fr", 0, true},
		{"someday", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWeekday(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidWeekday) {
				t.Errorf("ParseWeekday(%q) error = %v, want ErrInvalidWeekday", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseWeekday(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}
