// ABOUTME: Month and weekday names per calendar system and language
// ABOUTME: Persian and transliterated names for the Jalali calendar
package calendar

import (
	"time"

	"github.com/harper/newtab/internal/settings"
)

var persianMonthsFa = [12]string{
	"فروردین", "اردیبهشت", "خرداد", "تیر", "مرداد", "شهریور",
	"مهر", "آبان", "آذر", "دی", "بهمن", "اسفند",
}

var persianMonthsEn = [12]string{
	"Farvardin", "Ordibehesht", "Khordad", "Tir", "Mordad", "Shahrivar",
	"Mehr", "Aban", "Azar", "Dey", "Bahman", "Esfand",
}

var gregorianMonthsFa = [12]string{
	"ژانویه", "فوریه", "مارس", "آوریل", "مه", "ژوئن",
	"ژوئیه", "اوت", "سپتامبر", "اکتبر", "نوامبر", "دسامبر",
}

var weekdaysFa = [7]string{
	"یکشنبه", "دوشنبه", "سه‌شنبه", "چهارشنبه", "پنجشنبه", "جمعه", "شنبه",
}

// MonthName returns the name of month m (1..12).
func MonthName(sys settings.CalendarSystem, m int, lang settings.Language) string {
	if m < 1 || m > 12 {
		return ""
	}
	switch {
	case sys == settings.Persian && lang == settings.Farsi:
		return persianMonthsFa[m-1]
	case sys == settings.Persian:
		return persianMonthsEn[m-1]
	case lang == settings.Farsi:
		return gregorianMonthsFa[m-1]
	default:
		return time.Month(m).String()
	}
}

// WeekdayName returns the name of d in lang.
func WeekdayName(d time.Weekday, lang settings.Language) string {
	if lang == settings.Farsi {
		return weekdaysFa[d]
	}
	return d.String()
}

// WeekdayOrder lists the seven weekdays starting at first.
func WeekdayOrder(first time.Weekday) []time.Weekday {
	out := make([]time.Weekday, 7)
	for i := range out {
		out[i] = (first + time.Weekday(i)) % 7
	}
	return out
}
