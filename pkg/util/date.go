package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-date layout used by CSV files, the API and storage.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, calendar dates and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseDate parses s with any ParseTime layout and truncates it to a calendar day.
func ParseDate(s string) (time.Time, bool) {
	t, ok := ParseTime(s)
	if !ok {
		return time.Time{}, false
	}
	return Day(t), true
}

// Day drops the clock and zone of t, keeping its calendar date at UTC midnight.
// Dates in this project are compared as calendar dates only.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// AddYears adds n*365 calendar days, matching the holding-period convention
// (leap days are not compensated).
func AddYears(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, 365*n)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
