package scheduler

import (
	"strconv"
	"strings"
	"time"
)

// NextExecution computes the next run time for a schedule string relative to
// now. Supported forms: the named presets hourly|daily|weekly, and the
// five-field cron subset "*/N * * * *", "M * * * *" and "M H * * *". Any
// other pattern is unsupported and returns ok=false, which callers treat as
// "unschedule this job".
func NextExecution(schedule string, now time.Time) (time.Time, bool) {
	schedule = strings.TrimSpace(schedule)

	switch strings.ToLower(schedule) {
	case "hourly":
		return now.Add(time.Hour), true
	case "daily":
		return now.Add(24 * time.Hour), true
	case "weekly":
		return now.Add(7 * 24 * time.Hour), true
	}

	fields := strings.Fields(schedule)
	if len(fields) != 5 {
		return time.Time{}, false
	}
	minuteField, hourField := fields[0], fields[1]
	if fields[2] != "*" || fields[3] != "*" || fields[4] != "*" {
		return time.Time{}, false
	}

	// "*/N * * * *": every N minutes from now.
	if n, ok := strings.CutPrefix(minuteField, "*/"); ok {
		interval, err := strconv.Atoi(n)
		if err != nil || interval <= 0 {
			return time.Time{}, false
		}
		if hourField != "*" {
			return time.Time{}, false
		}
		return now.Add(time.Duration(interval) * time.Minute), true
	}

	minute, err := strconv.Atoi(minuteField)
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, false
	}

	// "M * * * *": next occurrence of that minute-of-hour strictly after now.
	if hourField == "*" {
		next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), minute, 0, 0, now.Location())
		for !next.After(now) {
			next = next.Add(time.Hour)
		}
		return next, true
	}

	// "M H * * *": next occurrence of that time-of-day strictly after now.
	hour, err := strconv.Atoi(hourField)
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, false
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	for !next.After(now) {
		// Roll forward a full period; also covers clock skew producing a
		// past timestamp, which would otherwise busy-loop the job.
		next = next.Add(24 * time.Hour)
	}
	return next, true
}
