package timecalc

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Tiliavir/fieldtime/internal/model"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// parseClock combines a calendar date and a wall-clock time. Times are read
// in UTC so a DST switch never stretches or shrinks a shift.
func parseClock(date, clock string) (time.Time, bool) {
	if date == "" || clock == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{DateLayout + "T" + ClockLayout, DateLayout + "T15:04:05"} {
		if t, err := time.ParseInLocation(layout, date+"T"+clock, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CalculateHours returns the hours between timeIn and timeOut on date,
// rounded to two decimals. An end before the start is read as an overnight
// span into the next day. Equal times and unparseable input yield 0.
func CalculateHours(date, timeIn, timeOut string) float64 {
	start, ok := parseClock(date, timeIn)
	if !ok {
		return 0
	}
	end, ok := parseClock(date, timeOut)
	if !ok {
		return 0
	}
	if end.Equal(start) {
		return 0
	}
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	hours := end.Sub(start).Hours()
	return math.Round(hours*100) / 100
}

// TotalHours sums the hours of all entries.
func TotalHours(entries []model.Entry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Hours
	}
	return math.Round(sum*100) / 100
}

// ValidDate reports whether s is a YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidClock reports whether s is an HH:MM time.
func ValidClock(s string) bool {
	_, err := time.Parse(ClockLayout, s)
	return err == nil
}

// Today returns t's calendar date as YYYY-MM-DD.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}

// WeekRange returns the Monday and Sunday of t's ISO week as YYYY-MM-DD.
func WeekRange(t time.Time) (string, string) {
	// Go's weekday: Sunday=0, Monday=1, …, Saturday=6
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // treat Sunday as 7 (ISO)
	}
	monday := t.AddDate(0, 0, -(wd - 1))
	return monday.Format(DateLayout), monday.AddDate(0, 0, 6).Format(DateLayout)
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// HoursByDate sums entry hours per date for dates in [from, to], both
// YYYY-MM-DD. The returned dates are sorted.
func HoursByDate(entries []model.Entry, from, to string) ([]string, map[string]float64) {
	totals := map[string]float64{}
	var dates []string
	for _, e := range entries {
		if e.Date < from || e.Date > to {
			continue
		}
		if _, seen := totals[e.Date]; !seen {
			dates = append(dates, e.Date)
		}
		totals[e.Date] += e.Hours
	}
	sort.Strings(dates)
	for d, h := range totals {
		totals[d] = math.Round(h*100) / 100
	}
	return dates, totals
}

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatHours renders fractional hours the same way as FormatDuration.
func FormatHours(hours float64) string {
	return FormatDuration(int64(math.Round(hours * 3600)))
}
