package domain

import "time"

// WeekStartUTC returns the most recent Monday 00:00 UTC at or before t.
// Weekly buckets are keyed by this instant, so it must be computed in
// UTC regardless of the caller's time zone.
func WeekStartUTC(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	year, month, day := t.AddDate(0, 0, -daysSinceMonday).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
