package service

import (
	"time"
)

// GetCurrentPeriodStart calculates when the current daily ad period started
func GetCurrentPeriodStart(resetHour int, now time.Time) time.Time {
	now = now.UTC()
	periodStart := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)

	// If current time is before today's reset, use yesterday's reset time
	if now.Before(periodStart) {
		periodStart = periodStart.AddDate(0, 0, -1)
	}

	return periodStart
}

// GetNextResetTime calculates the next daily reset time based on the configured hour
func GetNextResetTime(resetHour int, now time.Time) time.Time {
	return GetCurrentPeriodStart(resetHour, now).AddDate(0, 0, 1)
}

// CurrentAdDate returns the date-only bucket that identifies the current
// ad-watch day. Counters stamped with an earlier date are stale and reset
// lazily on the next watch.
func CurrentAdDate(resetHour int, now time.Time) time.Time {
	start := GetCurrentPeriodStart(resetHour, now)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}

// IsCurrentAdDay reports whether a stored last_ad_date falls in the current
// ad-watch day. Read paths use this to present stale counters as zero.
func IsCurrentAdDay(resetHour int, last *time.Time) bool {
	return sameAdDate(last, CurrentAdDate(resetHour, time.Now()))
}

// sameAdDate reports whether a stored last_ad_date matches the given bucket.
func sameAdDate(last *time.Time, bucket time.Time) bool {
	if last == nil {
		return false
	}
	y1, m1, d1 := last.UTC().Date()
	y2, m2, d2 := bucket.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
