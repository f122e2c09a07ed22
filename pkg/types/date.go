package types

import "time"

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddCalendarMonth returns the same day one month later, normalised the way
// time.AddDate does (2024-01-31 + 1 month = 2024-03-02).
func AddCalendarMonth(start time.Time) time.Time {
	return DateOnly(start).AddDate(0, 1, 0)
}

// StartOfMonth returns the first day of t's month at midnight in t's location.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// FormatDay renders a date the way receipts and comments show it.
func FormatDay(t time.Time) string {
	return t.Format("02/01/2006")
}
