package domain

import "time"

// daysBetween returns the number of UTC calendar-day boundaries between two
// instants. Calendar days, not rolling 24-hour windows, so session timing
// cannot drift a streak.
func daysBetween(earlier, later time.Time) int {
	e := earlier.UTC()
	l := later.UTC()
	eDay := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	lDay := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
	return int(lDay.Sub(eDay).Hours() / 24)
}

// AdvanceStreak computes the streak count after activity at now, given the
// persisted streak and last-active time. Same-day activity leaves the streak
// unchanged, next-day activity extends it, and a gap of two or more days
// resets it to 1 (today's activity counts). A clock skewed into the past is
// treated as same-day; the streak never decrements.
//
// The function is idempotent per calendar day as long as callers always read
// the persisted lastActiveAt immediately before calling it.
func AdvanceStreak(streak int, lastActiveAt, now time.Time) int {
	if lastActiveAt.IsZero() {
		return 1
	}
	switch days := daysBetween(lastActiveAt, now); {
	case days <= 0:
		if streak < 1 {
			return 1
		}
		return streak
	case days == 1:
		return streak + 1
	default:
		return 1
	}
}
