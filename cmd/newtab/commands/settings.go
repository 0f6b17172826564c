// ABOUTME: Settings commands for calendar, tile grid, weekend, colors and language
// ABOUTME: Every change is validated and persisted through the settings manager
package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/newtab/internal/app"
	"github.com/harper/newtab/internal/kv"
	"github.com/harper/newtab/internal/settings"
)

// settingKeys maps CLI names to setters.
var settingKeys = map[string]func(m *settings.Manager, value string) error{
	"calendar": func(m *settings.Manager, v string) error {
		return m.SetCalendarSystem(settings.CalendarSystem(strings.ToLower(v)))
	},
	"tiles": func(m *settings.Manager, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("tiles must be a number: %w", settings.ErrInvalidTileSize)
		}
		return m.SetTileGridSize(n)
	},
	"weekend": func(m *settings.Manager, v string) error {
		days, err := parseWeekdays(v)
		if err != nil {
			return err
		}
		return m.SetWeekendDays(days)
	},
	"weekend-color": func(m *settings.Manager, v string) error {
		return m.SetWeekendColor(v)
	},
	"first-day": func(m *settings.Manager, v string) error {
		d, err := settings.ParseWeekday(v)
		if err != nil {
			return err
		}
		return m.SetFirstDayOfWeek(d)
	},
	"text-color": func(m *settings.Manager, v string) error {
		return m.SetTextColor(v)
	},
	"background-color": func(m *settings.Manager, v string) error {
		return m.SetBackgroundColor(v)
	},
	"language": func(m *settings.Manager, v string) error {
		return m.SetLanguage(settings.Language(strings.ToLower(v)))
	},
}

func settingNames() []string {
	return []string{"calendar", "tiles", "weekend", "weekend-color", "first-day", "text-color", "background-color", "language"}
}

func parseWeekdays(v string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, settings.MaxWeekendDays)
	for _, part := range strings.Split(v, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := settings.ParseWeekday(part)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// NewSettingsCmd creates the settings command group
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change dashboard settings",
		Long: `Show and change dashboard settings.

Settings cover the calendar system (gregorian or persian), the number of
bookmark tiles, weekend days and their color, the first day of the week,
text and background colors, and the UI language (en or fa).

Switching the calendar also switches the language unless
couple_calendar_language is turned off in the config.`,
		Example: `  newtab settings
  newtab settings set calendar gregorian
  newtab settings set weekend fri,sat
  newtab settings weekend toggle sun`,
		Args: cobra.NoArgs,
		RunE: runSettingsShow,
	}

	cmd.AddCommand(newSettingsSetCmd())
	cmd.AddCommand(newSettingsWeekendCmd())
	cmd.AddCommand(newSettingsResetCmd())
	cmd.AddCommand(newSettingsSlotsCmd())

	return cmd
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		return printSettings(cmd, a.Settings.Snapshot())
	})
}

func printSettings(cmd *cobra.Command, s settings.Settings) error {
	if wantJSON(cmd) {
		return printJSON(cmd, s)
	}

	weekend := make([]string, len(s.WeekendDays))
	for i, d := range s.WeekendDays {
		weekend[i] = d.String()
	}

	w := newTable(cmd)
	fmt.Fprintf(w, "calendar\t%s\n", s.CalendarType)
	fmt.Fprintf(w, "tiles\t%d\n", s.TileSize)
	fmt.Fprintf(w, "weekend\t%s\n", strings.Join(weekend, ", "))
	fmt.Fprintf(w, "weekend-color\t%s\n", s.WeekendColor)
	fmt.Fprintf(w, "first-day\t%s\n", s.FirstDayOfWeek)
	fmt.Fprintf(w, "text-color\t%s\n", s.TextColor)
	fmt.Fprintf(w, "background-color\t%s\n", s.BackgroundColor)
	fmt.Fprintf(w, "language\t%s (%s)\n", s.Language, s.Language.Direction())
	return w.Flush()
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long: `Change one setting. Keys: ` + strings.Join(settingNames(), ", ") + `.

Weekdays are names (friday), abbreviations (fri) or numbers (0 is Sunday).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, ok := settingKeys[args[0]]
			if !ok {
				return fmt.Errorf("unknown setting %q (valid: %s)", args[0], strings.Join(settingNames(), ", "))
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := set(a.Settings, args[1]); err != nil {
					return err
				}
				info(cmd, "Updated %s", args[0])
				return printSettings(cmd, a.Settings.Snapshot())
			})
		},
	}
}

func newSettingsWeekendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weekend",
		Short: "Manage weekend days",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <day>",
		Short: "Add or remove one weekend day (at most 3)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := settings.ParseWeekday(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Settings.ToggleWeekendDay(d); err != nil {
					return err
				}
				info(cmd, "Toggled %s", d)
				return printSettings(cmd, a.Settings.Snapshot())
			})
		},
	})
	return cmd
}

func newSettingsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Settings.Replace(settings.Defaults()); err != nil {
					return err
				}
				info(cmd, "Settings reset to defaults")
				return printSettings(cmd, a.Settings.Snapshot())
			})
		},
	}
}

func newSettingsSlotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "List the raw durable key-value slots",
		Long: `List every slot of the key-value backend (local file or charm):
the composite settings record, the individual setting keys and feature
flags such as tasksMigrated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				entries, err := kv.Entries(a.Slots)
				if err != nil {
					return err
				}
				if wantJSON(cmd) {
					return printJSON(cmd, entries)
				}
				w := newTable(cmd)
				fmt.Fprintf(w, "KEY\tVALUE\n")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\n", e.Key, truncate(e.Value, 60))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				info(cmd, "\nTotal: %d slot(s)", len(entries))
				return nil
			})
		},
	}
}
