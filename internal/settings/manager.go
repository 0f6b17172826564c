// ABOUTME: Settings manager owning the live record and its durable copy
// ABOUTME: Loads once at start-up and persists the whole record after every change
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/newtab/internal/kv"
)

// Durable slot names.
const (
	KeySettings        = "settings"
	KeyCalendarType    = "calendarType"
	KeyTileSize        = "tileSize"
	KeyWeekendDays     = "weekendDays"
	KeyWeekendColor    = "weekendColor"
	KeyFirstDayOfWeek  = "firstDayOfWeek"
	KeyTextColor       = "textColor"
	KeyBackgroundColor = "backgroundColor"
	KeyLanguage        = "language"
)

// LanguageListener is told about every change of the active language.
type LanguageListener func(Language, Direction)

// Manager is the single owner of the settings record.
type Manager struct {
	store  kv.Store
	logger *log.Logger
	couple bool

	// writeMu orders mutations with their persist so the durable copy
	// always ends on the latest record. mu guards the live fields.
	writeMu   sync.Mutex
	mu        sync.RWMutex
	current   Settings
	listeners []LanguageListener
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for fail-soft paths.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithCalendarLanguageCoupling controls whether picking a calendar system
// also switches the UI language.
func WithCalendarLanguageCoupling(on bool) Option {
	return func(m *Manager) { m.couple = on }
}

// NewManager returns a manager holding defaults until Load is called.
func NewManager(store kv.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		logger:  log.New(io.Discard),
		couple:  true,
		current: Defaults(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnLanguageChange registers fn to run after the language changes.
func (m *Manager) OnLanguageChange(fn LanguageListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Snapshot returns a copy of the live record.
func (m *Manager) Snapshot() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// CouplesLanguage reports whether calendar changes drive the language.
func (m *Manager) CouplesLanguage() bool {
	return m.couple
}

// Load reads the durable record. The only error it returns is a failure
// to persist defaults on first run; read and parse problems fall back.
func (m *Manager) Load() (Settings, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	raw, err := m.store.Get(KeySettings)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		m.logger.Warn("failed to read settings, using defaults", "err", err)
	}

	var fields map[string]json.RawMessage
	if err == nil {
		if perr := json.Unmarshal([]byte(raw), &fields); perr != nil || fields == nil {
			m.logger.Warn("stored settings are unreadable, using defaults", "err", perr)
			fields = nil
		}
	}

	if fields == nil {
		s := Defaults()
		m.mu.Lock()
		m.current = s
		m.mu.Unlock()
		if err := m.persist(s); err != nil {
			return s.Clone(), err
		}
		m.logger.Debug("initialized default settings")
		return s.Clone(), nil
	}

	s := m.merge(fields)
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	m.logger.Debug("loaded settings", "calendar", s.CalendarType, "language", s.Language)
	return s.Clone(), nil
}

// merge fills each field from the blob, then its individual key, then its default.
func (m *Manager) merge(fields map[string]json.RawMessage) Settings {
	s := Defaults()

	var cal CalendarSystem
	if m.field(fields, KeyCalendarType, &cal, true) && validateCalendar(cal) == nil {
		s.CalendarType = cal
	}
	var size int
	if m.field(fields, KeyTileSize, &size, false) && validateTileSize(size) == nil {
		s.TileSize = size
	}
	var days []time.Weekday
	if m.field(fields, KeyWeekendDays, &days, false) {
		if norm, err := normalizeWeekend(days); err == nil {
			s.WeekendDays = norm
		}
	}
	var first time.Weekday
	if m.field(fields, KeyFirstDayOfWeek, &first, false) && validateWeekday(first) == nil {
		s.FirstDayOfWeek = first
	}
	for key, dst := range map[string]*string{
		KeyWeekendColor:    &s.WeekendColor,
		KeyTextColor:       &s.TextColor,
		KeyBackgroundColor: &s.BackgroundColor,
	} {
		var c string
		if m.field(fields, key, &c, true) && ValidateColor(c) == nil {
			*dst = c
		}
	}
	var lang Language
	if m.field(fields, KeyLanguage, &lang, true) && validateLanguage(lang) == nil {
		s.Language = lang
	}
	return s
}

// field decodes one value from the blob or, failing that, its individual key.
// plain marks fields whose individual key holds an unquoted string.
func (m *Manager) field(fields map[string]json.RawMessage, key string, dest any, plain bool) bool {
	if raw, ok := fields[key]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, dest); err == nil {
			return true
		}
		m.logger.Warn("ignoring malformed settings field", "field", key)
	}

	var err error
	if plain {
		var val string
		if val, err = m.store.Get(key); err == nil {
			err = json.Unmarshal([]byte(strconv.Quote(val)), dest)
		}
	} else {
		err = kv.GetJSON(m.store, key, dest)
	}
	switch {
	case errors.Is(err, kv.ErrNotFound):
		return false
	case err != nil:
		m.logger.Warn("ignoring unreadable settings key", "key", key, "err", err)
		return false
	}
	return true
}

// persist writes the composite blob and every individual key. Callers
// hold writeMu.
func (m *Manager) persist(s Settings) error {
	var errs []error
	for _, w := range []struct {
		key   string
		value any
	}{
		{KeySettings, s},
		{KeyTileSize, s.TileSize},
		{KeyWeekendDays, s.WeekendDays},
		{KeyFirstDayOfWeek, s.FirstDayOfWeek},
	} {
		if err := kv.SetJSON(m.store, w.key, w.value); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %s: %w", w.key, err))
		}
	}
	for _, w := range []struct{ key, value string }{
		{KeyCalendarType, string(s.CalendarType)},
		{KeyWeekendColor, s.WeekendColor},
		{KeyTextColor, s.TextColor},
		{KeyBackgroundColor, s.BackgroundColor},
		{KeyLanguage, string(s.Language)},
	} {
		if err := m.store.Set(w.key, w.value); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %s: %w", w.key, err))
		}
	}
	return errors.Join(errs...)
}

// update applies fn to a copy of the record, publishes it and persists it.
// Mutations are serialized end to end, so persists land in the same order
// as the records they write.
func (m *Manager) update(fn func(*Settings) error) error {
	m.writeMu.Lock()

	m.mu.Lock()
	next := m.current.Clone()
	if err := fn(&next); err != nil {
		m.mu.Unlock()
		m.writeMu.Unlock()
		return err
	}
	prevLang := m.current.Language
	m.current = next
	listeners := append([]LanguageListener(nil), m.listeners...)
	m.mu.Unlock()

	err := m.persist(next)
	m.writeMu.Unlock()
	if err != nil {
		m.logger.Warn("failed to persist settings", "err", err)
	}

	if next.Language != prevLang {
		for _, fn := range listeners {
			fn(next.Language, next.Language.Direction())
		}
	}
	return err
}

// Update runs fn on a copy of the live record and keeps the result when
// it validates. Reading and writing happen as one step, so concurrent
// callers never overwrite each other's changes.
func (m *Manager) Update(fn func(*Settings) error) error {
	return m.update(func(s *Settings) error {
		if err := fn(s); err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			return err
		}
		norm, err := normalizeWeekend(s.WeekendDays)
		if err != nil {
			return err
		}
		s.WeekendDays = norm
		return nil
	})
}

// SetCalendarSystem switches calendars and, when coupled, the language.
func (m *Manager) SetCalendarSystem(c CalendarSystem) error {
	if err := validateCalendar(c); err != nil {
		return err
	}
	return m.update(func(s *Settings) error {
		s.CalendarType = c
		if m.couple {
			s.Language = calendarLanguage[c]
		}
		return nil
	})
}

func (m *Manager) SetTileGridSize(n int) error {
	if err := validateTileSize(n); err != nil {
		return err
	}
	return m.update(func(s *Settings) error {
		s.TileSize = n
		return nil
	})
}

// ToggleWeekendDay adds or removes d. Growing past the limit returns
// ErrWeekendLimit and leaves the set as it was.
func (m *Manager) ToggleWeekendDay(d time.Weekday) error {
	if err := validateWeekday(d); err != nil {
		return err
	}
	return m.update(func(s *Settings) error {
		if s.IsWeekend(d) {
			kept := s.WeekendDays[:0]
			for _, w := range s.WeekendDays {
				if w != d {
					kept = append(kept, w)
				}
			}
			s.WeekendDays = kept
			return nil
		}
		next, err := normalizeWeekend(append(s.WeekendDays, d))
		if err != nil {
			return err
		}
		s.WeekendDays = next
		return nil
	})
}

// SetWeekendDays replaces the whole weekend set.
func (m *Manager) SetWeekendDays(days []time.Weekday) error {
	norm, err := normalizeWeekend(days)
	if err != nil {
		return err
	}
	return m.update(func(s *Settings) error {
		s.WeekendDays = norm
		return nil
	})
}

func (m *Manager) SetWeekendColor(c string) error {
	return m.setColor(c, func(s *Settings) { s.WeekendColor = c })
}

func (m *Manager) SetTextColor(c string) error {
	return m.setColor(c, func(s *Settings) { s.TextColor = c })
}

func (m *Manager) SetBackgroundColor(c string) error {
	return m.setColor(c, func(s *Settings) { s.BackgroundColor = c })
}

func (m *Manager) setColor(c string, apply func(*Settings)) error {
	if err := ValidateColor(c); err != nil {
		return err
	}
	return m.update(func(s *Settings) error {
		apply(s)
		return nil
	})
}

func (m *Manager) SetFirstDayOfWeek(d time.Weekday) error {
	if err := validateWeekday(d); err != nil {
		return err
	}
	return m.update(func(s *Settings) error {
		s.FirstDayOfWeek = d
		return nil
	})
}

func (m *Manager) SetLanguage(l Language) error {
	if err := validateLanguage(l); err != nil {
		return err
	}
	return m.update(func(s *Settings) error {
		s.Language = l
		return nil
	})
}

// Replace swaps in a whole record, as an import does.
func (m *Manager) Replace(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	norm, _ := normalizeWeekend(next.WeekendDays)
	return m.update(func(s *Settings) error {
		*s = next.Clone()
		s.WeekendDays = norm
		return nil
	})
}
