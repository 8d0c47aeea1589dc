package service

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned for malformed or inverted date ranges
var ErrInvalidRange = errors.New("invalid date range")

// LastCompleteWeek returns Monday 00:00 through the end of Sunday of the
// most recent week that has fully passed, in now's location.
func LastCompleteWeek(now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sinceMonday := (int(today.Weekday()) + 6) % 7
	start := today.AddDate(0, 0, -(sinceMonday + 7))
	return start, endOfDay(start.AddDate(0, 0, 6))
}

// ParseRange parses YYYY-MM-DD bounds in now's location. The end day is
// included in full. Without bounds the last complete week is used.
func ParseRange(start, end string, now time.Time) (time.Time, time.Time, error) {
	if start == "" && end == "" {
		s, e := LastCompleteWeek(now)
		return s, e, nil
	}
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("both --start and --end are required: %w", ErrInvalidRange)
	}

	s, err := time.ParseInLocation(time.DateOnly, start, now.Location())
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start %q: %w", start, ErrInvalidRange)
	}
	e, err := time.ParseInLocation(time.DateOnly, end, now.Location())
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end %q: %w", end, ErrInvalidRange)
	}
	if s.After(e) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is after end %s: %w", start, end, ErrInvalidRange)
	}
	return s, endOfDay(e), nil
}

func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
