// ABOUTME: Settings record, defaults and field validation
// ABOUTME: Calendar system, tile grid, weekend, colors and UI language
package settings

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// CalendarSystem selects the calendar the clock widget shows.
type CalendarSystem string

const (
	Gregorian CalendarSystem = "gregorian"
	Persian   CalendarSystem = "persian"
)

// Language is the active UI language.
type Language string

const (
	English Language = "en"
	Farsi   Language = "fa"
)

// Direction is the text direction implied by a language.
type Direction string

const (
	LTR Direction = "ltr"
	RTL Direction = "rtl"
)

// Direction returns rtl for right-to-left languages.
func (l Language) Direction() Direction {
	if l == Farsi {
		return RTL
	}
	return LTR
}

// Bounds for tile grid size and weekend set.
const (
	MinTileSize    = 4
	MaxTileSize    = 48
	MaxWeekendDays = 3
)

var (
	ErrInvalidCalendar = errors.New("settings: unknown calendar system")
	ErrInvalidLanguage = errors.New("settings: unknown language")
	ErrInvalidTileSize = fmt.Errorf("settings: tile grid size must be between %d and %d", MinTileSize, MaxTileSize)
	ErrInvalidWeekday  = errors.New("settings: weekday must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidColor    = errors.New("settings: color must be a hex value like #1e293b")
	// ErrWeekendLimit is the notice shown when a fourth weekend day is picked.
	ErrWeekendLimit = fmt.Errorf("settings: at most %d weekend days can be selected", MaxWeekendDays)
)

// calendarLanguage couples each calendar system to its display language.
var calendarLanguage = map[CalendarSystem]Language{
	Gregorian: English,
	Persian:   Farsi,
}

// LanguageFor returns the language paired with a calendar system.
func LanguageFor(c CalendarSystem) (Language, bool) {
	l, ok := calendarLanguage[c]
	return l, ok
}

// Settings is the composite preferences record.
type Settings struct {
	CalendarType    CalendarSystem `json:"calendarType" yaml:"calendarType"`
	TileSize        int            `json:"tileSize" yaml:"tileSize"`
	WeekendDays     []time.Weekday `json:"weekendDays" yaml:"weekendDays"`
	WeekendColor    string         `json:"weekendColor" yaml:"weekendColor"`
	FirstDayOfWeek  time.Weekday   `json:"firstDayOfWeek" yaml:"firstDayOfWeek"`
	TextColor       string         `json:"textColor" yaml:"textColor"`
	BackgroundColor string         `json:"backgroundColor" yaml:"backgroundColor"`
	Language        Language       `json:"language" yaml:"language"`
}

// Defaults returns the first-run settings.
func Defaults() Settings {
	return Settings{
		CalendarType:    Persian,
		TileSize:        12,
		WeekendDays:     []time.Weekday{time.Friday},
		WeekendColor:    "#ef4444",
		FirstDayOfWeek:  time.Saturday,
		TextColor:       "#ffffff",
		BackgroundColor: "#1e293b",
		Language:        Farsi,
	}
}

// Clone returns a deep copy. An empty weekend stays an empty list, never nil.
func (s Settings) Clone() Settings {
	out := s
	out.WeekendDays = make([]time.Weekday, len(s.WeekendDays))
	copy(out.WeekendDays, s.WeekendDays)
	return out
}

// IsWeekend reports whether d is in the weekend set.
func (s Settings) IsWeekend(d time.Weekday) bool {
	for _, w := range s.WeekendDays {
		if w == d {
			return true
		}
	}
	return false
}

// Validate checks every field.
func (s Settings) Validate() error {
	if err := validateCalendar(s.CalendarType); err != nil {
		return err
	}
	if err := validateTileSize(s.TileSize); err != nil {
		return err
	}
	if _, err := normalizeWeekend(s.WeekendDays); err != nil {
		return err
	}
	if err := validateWeekday(s.FirstDayOfWeek); err != nil {
		return err
	}
	for _, c := range []string{s.WeekendColor, s.TextColor, s.BackgroundColor} {
		if err := ValidateColor(c); err != nil {
			return err
		}
	}
	return validateLanguage(s.Language)
}

func validateCalendar(c CalendarSystem) error {
	if _, ok := calendarLanguage[c]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCalendar, c)
	}
	return nil
}

func validateLanguage(l Language) error {
	if l != English && l != Farsi {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, l)
	}
	return nil
}

func validateTileSize(n int) error {
	if n < MinTileSize || n > MaxTileSize {
		return ErrInvalidTileSize
	}
	return nil
}

func validateWeekday(d time.Weekday) error {
	if d < time.Sunday || d > time.Saturday {
		return ErrInvalidWeekday
	}
	return nil
}

// ParseWeekday reads a weekday from its English name, a three letter
// abbreviation or its number (0 is Sunday).
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		d := time.Weekday(n)
		if err := validateWeekday(d); err != nil {
			return 0, fmt.Errorf("%w: %q", err, s)
		}
		return d, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// ValidateColor accepts #rgb and #rrggbb hex colors.
func ValidateColor(c string) error {
	if len(c) != 4 && len(c) != 7 {
		return fmt.Errorf("%w: %q", ErrInvalidColor, c)
	}
	if _, err := colorful.Hex(c); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidColor, c)
	}
	return nil
}

// normalizeWeekend sorts and de-duplicates days and enforces the size bound.
func normalizeWeekend(days []time.Weekday) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if err := validateWeekday(d); err != nil {
			return nil, err
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if len(out) > MaxWeekendDays {
		return nil, ErrWeekendLimit
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
