// ABOUTME: Show command renders the dashboard in the terminal
// ABOUTME: Calendar month with weekend colors beside tasks and pinned tiles
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/harper/newtab/internal/app"
	"github.com/harper/newtab/internal/calendar"
	"github.com/harper/newtab/internal/models"
	"github.com/harper/newtab/internal/settings"
)

const showTaskLimit = 8

var (
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// dashboard is everything the show command paints.
type dashboard struct {
	Settings settings.Settings
	Month    calendar.Month
	Today    calendar.Date
	Tasks    []models.Task
	Tiles    []models.Tile
}

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render the dashboard in the terminal",
		Long: `Render the dashboard: the current month in the configured calendar
system with weekend days highlighted, open tasks and pinned tiles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if date != "" {
				parsed, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				day = parsed
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				d, err := loadDashboard(ctx, a, day)
				if err != nil {
					return err
				}
				if wantJSON(cmd) {
					return printJSON(cmd, d)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDashboard(d))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Show the month of this Gregorian day, YYYY-MM-DD")
	return cmd
}

func loadDashboard(ctx context.Context, a *app.App, day time.Time) (dashboard, error) {
	s := a.Settings.Snapshot()
	d := dashboard{
		Settings: s,
		Month:    calendar.MonthGrid(s.CalendarType, day, s.FirstDayOfWeek, s.WeekendDays, s.Language),
		Today:    calendar.DateIn(s.CalendarType, day),
	}

	all, err := a.Tasks.List(ctx, "")
	if err != nil {
		return d, err
	}
	for _, t := range all {
		if !t.Done() {
			d.Tasks = append(d.Tasks, t)
		}
	}
	if d.Tiles, err = a.Tiles.List(ctx); err != nil {
		return d, err
	}
	return d, nil
}

func renderDashboard(d dashboard) string {
	text := lipgloss.NewStyle().Foreground(lipgloss.Color(d.Settings.TextColor))
	header := text.Bold(true).Render(fmt.Sprintf("%s %d %s %d",
		calendar.WeekdayName(d.Today.Weekday, d.Settings.Language),
		d.Today.Day, d.Month.Name, d.Month.Year))

	cal := panelStyle.Render(renderMonth(d.Month, d.Settings))
	side := panelStyle.Width(36).Render(renderTasks(d.Tasks) + "\n\n" + renderTiles(d.Tiles))

	row := lipgloss.JoinHorizontal(lipgloss.Top, cal, side)
	if d.Settings.Language.Direction() == settings.RTL {
		row = lipgloss.JoinHorizontal(lipgloss.Top, side, cal)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, row)
}

func renderMonth(m calendar.Month, s settings.Settings) string {
	weekend := lipgloss.NewStyle().Foreground(lipgloss.Color(s.WeekendColor))
	today := lipgloss.NewStyle().Reverse(true).Bold(true)
	rtl := s.Language.Direction() == settings.RTL

	cells := make([]string, 0, 7)
	for _, wd := range m.Weekdays {
		label := weekdayLabel(wd, s.Language)
		if s.IsWeekend(wd) {
			label = weekend.Render(label)
		}
		cells = append(cells, label)
	}
	lines := []string{joinCells(cells, rtl)}

	for _, week := range m.Weeks {
		cells = cells[:0]
		for _, c := range week {
			label := fmt.Sprintf("%2d", c.Date.Day)
			switch {
			case !c.InMonth:
				label = mutedStyle.Render(label)
			case c.Today:
				label = today.Render(label)
			case c.Weekend:
				label = weekend.Render(label)
			}
			cells = append(cells, label)
		}
		lines = append(lines, joinCells(cells, rtl))
	}
	return strings.Join(lines, "\n")
}

func joinCells(cells []string, rtl bool) string {
	out := make([]string, len(cells))
	copy(out, cells)
	if rtl {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return strings.Join(out, " ")
}

// weekdayLabel is a two column header cell.
func weekdayLabel(d time.Weekday, lang settings.Language) string {
	runes := []rune(calendar.WeekdayName(d, lang))
	if lang == settings.Farsi {
		return " " + string(runes[:1])
	}
	return string(runes[:2])
}

func renderTasks(list []models.Task) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Tasks"))
	if len(list) == 0 {
		b.WriteString("\n" + mutedStyle.Render("nothing open"))
		return b.String()
	}
	for i, t := range list {
		if i == showTaskLimit {
			b.WriteString("\n" + mutedStyle.Render(fmt.Sprintf("+%d more", len(list)-i)))
			break
		}
		mark := lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color)).Render(taskMark(t))
		b.WriteString(fmt.Sprintf("\n%s %s", mark, truncate(t.Text, 28)))
	}
	return b.String()
}

func renderTiles(tiles []models.Tile) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Tiles"))
	if len(tiles) == 0 {
		b.WriteString("\n" + mutedStyle.Render("none pinned"))
		return b.String()
	}
	for _, t := range tiles {
		title := truncate(t.Title, 30)
		if t.Kind == models.TileFolder {
			title += "/"
		}
		b.WriteString("\n" + title)
	}
	return b.String()
}
