// ABOUTME: Month grid for the calendar widget
// ABOUTME: Week rows aligned to the first day of week with weekend and today flags
package calendar

import (
	"time"

	"github.com/harper/newtab/internal/settings"
)

// Cell is one day in the month grid.
type Cell struct {
	Date    Date      `json:"date"`
	Time    time.Time `json:"time"`
	InMonth bool      `json:"inMonth"`
	Weekend bool      `json:"weekend"`
	Today   bool      `json:"today"`
}

// Month is the grid of the month containing a reference day.
type Month struct {
	System   settings.CalendarSystem `json:"system"`
	Year     int                     `json:"year"`
	Month    int                     `json:"month"`
	Name     string                  `json:"name"`
	Weekdays []time.Weekday          `json:"weekdays"`
	Weeks    [][]Cell                `json:"weeks"`
}

// MonthGrid builds the month of t in sys. Rows start on first and cells
// outside the month are padding from the neighbouring months.
func MonthGrid(sys settings.CalendarSystem, t time.Time, first time.Weekday, weekend []time.Weekday, lang settings.Language) Month {
	today := DateIn(sys, t)
	start := FirstOfMonth(sys, today.Year, today.Month, t.Location())

	isWeekend := make(map[time.Weekday]bool, len(weekend))
	for _, d := range weekend {
		isWeekend[d] = true
	}

	offset := (int(start.Weekday()) - int(first) + 7) % 7
	day := start.AddDate(0, 0, -offset)

	m := Month{
		System:   sys,
		Year:     today.Year,
		Month:    today.Month,
		Name:     MonthName(sys, today.Month, lang),
		Weekdays: WeekdayOrder(first),
	}
	for {
		week := make([]Cell, 0, 7)
		inMonth := false
		for i := 0; i < 7; i++ {
			d := DateIn(sys, day)
			cell := Cell{
				Date:    d,
				Time:    day,
				InMonth: d.Year == today.Year && d.Month == today.Month,
				Weekend: isWeekend[day.Weekday()],
				Today:   d == today,
			}
			inMonth = inMonth || cell.InMonth
			week = append(week, cell)
			day = day.AddDate(0, 0, 1)
		}
		if !inMonth {
			break
		}
		m.Weeks = append(m.Weeks, week)
	}
	return m
}
