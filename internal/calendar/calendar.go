// ABOUTME: Gregorian and Persian (Jalali) dates for the clock and calendar widget
// ABOUTME: Conversion, month names and the month grid with weekend flags
package calendar

import (
	"time"

	"github.com/harper/newtab/internal/settings"
)

// Date is a calendar date in one system.
type Date struct {
	System  settings.CalendarSystem `json:"system"`
	Year    int                     `json:"year"`
	Month   int                     `json:"month"`
	Day     int                     `json:"day"`
	Weekday time.Weekday            `json:"weekday"`
}

// ToPersian converts the civil date of t to the Jalali calendar.
func ToPersian(t time.Time) Date {
	jy, jm, jd := gregorianToJalali(t.Year(), int(t.Month()), t.Day())
	return Date{System: settings.Persian, Year: jy, Month: jm, Day: jd, Weekday: t.Weekday()}
}

// FromPersian returns noon of the given Jalali date in loc.
func FromPersian(jy, jm, jd int, loc *time.Location) time.Time {
	gy, gm, gd := jalaliToGregorian(jy, jm, jd)
	return time.Date(gy, time.Month(gm), gd, 12, 0, 0, 0, loc)
}

// DateIn expresses t in the given system.
func DateIn(sys settings.CalendarSystem, t time.Time) Date {
	if sys == settings.Persian {
		return ToPersian(t)
	}
	return Date{System: settings.Gregorian, Year: t.Year(), Month: int(t.Month()), Day: t.Day(), Weekday: t.Weekday()}
}

// FirstOfMonth returns noon of the first day of month m of year y.
func FirstOfMonth(sys settings.CalendarSystem, y, m int, loc *time.Location) time.Time {
	if sys == settings.Persian {
		return FromPersian(y, m, 1, loc)
	}
	return time.Date(y, time.Month(m), 1, 12, 0, 0, 0, loc)
}

// DaysInMonth returns the length of month m of year y.
func DaysInMonth(sys settings.CalendarSystem, y, m int) int {
	start := FirstOfMonth(sys, y, m, time.UTC)
	ny, nm := y, m+1
	if nm > 12 {
		ny, nm = y+1, 1
	}
	next := FirstOfMonth(sys, ny, nm, time.UTC)
	return int(next.Sub(start).Hours() / 24)
}

// gregorianToJalali uses the 33-year arithmetic cycle.
func gregorianToJalali(gy, gm, gd int) (int, int, int) {
	daysBefore := [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}
	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}
	days := 355666 + 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 + gd + daysBefore[gm-1]

	jy := -1595 + 33*(days/12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}

	var jm, jd int
	if days < 186 {
		jm = 1 + days/31
		jd = 1 + days%31
	} else {
		jm = 7 + (days-186)/30
		jd = 1 + (days-186)%30
	}
	return jy, jm, jd
}

func jalaliToGregorian(jy, jm, jd int) (int, int, int) {
	jy += 1595
	days := -355668 + 365*jy + (jy/33)*8 + ((jy%33)+3)/4 + jd
	if jm < 7 {
		days += (jm - 1) * 31
	} else {
		days += (jm-7)*30 + 186
	}

	gy := 400 * (days / 146097)
	days %= 146097
	if days > 36524 {
		days--
		gy += 100 * (days / 36524)
		days %= 36524
		if days >= 365 {
			days++
		}
	}
	gy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		gy += (days - 1) / 365
		days = (days - 1) % 365
	}

	gd := days + 1
	feb := 28
	if (gy%4 == 0 && gy%100 != 0) || gy%400 == 0 {
		feb = 29
	}
	monthDays := [13]int{0, 31, feb, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	gm := 1
	for gm < 13 && gd > monthDays[gm] {
		gd -= monthDays[gm]
		gm++
	}
	return gy, gm, gd
}
